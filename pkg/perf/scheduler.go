package perf

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the Monitor's periodic regression scan on robfig/cron/v3,
// the same library AccessManager's background jobs use (pkg/access), rather
// than a hand-rolled time.Ticker loop.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler wires a periodic DetectRegressions + AutoOptimize scan at
// interval onto a cron job.
func NewScheduler(interval time.Duration, m *Monitor) (*Scheduler, error) {
	c := cron.New(cron.WithSeconds())

	if interval <= 0 {
		interval = time.Minute
	}
	spec := fmt.Sprintf("@every %s", interval)

	if _, err := c.AddFunc(spec, func() {
		regressions := m.DetectRegressions(time.Now())
		if len(regressions) == 0 {
			return
		}
		applied := m.AutoOptimize(regressions)
		m.log.Infow("regression scan applied remedies", "regressions", len(regressions), "actions", applied)
	}); err != nil {
		return nil, fmt.Errorf("schedule regression scan: %w", err)
	}

	return &Scheduler{cron: c}, nil
}

// Start begins running the scheduled scan in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the scheduler and waits for any in-flight scan to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Dispose implements resource.Disposable.
func (s *Scheduler) Dispose() error {
	s.Stop()
	return nil
}
