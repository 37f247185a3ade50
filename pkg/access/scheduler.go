package access

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/codeready-toolchain/taskcore/pkg/config"
)

// Scheduler runs the Manager's periodic deadlock scan and stale-lock
// cleanup jobs on robfig/cron/v3, the same library the pack's
// r3e-network-service_layer uses for background maintenance jobs, rather
// than a hand-rolled time.Ticker loop.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler wires m's DetectDeadlocks and CleanupStaleLocks onto cron
// jobs at the intervals configured in cfg. isAlive reports whether a lock
// holder (an agent or session ID) is still live; callers typically back it
// with AgentRegistry.
func NewScheduler(cfg config.AccessConfig, m *Manager, isAlive func(holder string) bool) (*Scheduler, error) {
	c := cron.New(cron.WithSeconds())

	if _, err := c.AddFunc(everySpec(cfg.DeadlockScanInterval), m.DetectDeadlocks); err != nil {
		return nil, fmt.Errorf("schedule deadlock scan: %w", err)
	}
	if _, err := c.AddFunc(everySpec(cfg.CleanupInterval), func() { m.CleanupStaleLocks(isAlive) }); err != nil {
		return nil, fmt.Errorf("schedule lock cleanup: %w", err)
	}

	return &Scheduler{cron: c}, nil
}

// Start begins running the scheduled jobs in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the scheduler and waits for any in-flight job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func everySpec(d time.Duration) string {
	if d <= 0 {
		d = time.Minute
	}
	return fmt.Sprintf("@every %s", d)
}
