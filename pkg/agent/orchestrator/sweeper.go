package orchestrator

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically invokes SweepHeartbeats against the wall clock,
// requeuing tasks from agents that have gone stale. All operations are
// idempotent. They coordinate through the in-process AccessManager, so
// concurrent sweeps are serialized only within one process.
type Sweeper struct {
	o        *Orchestrator
	interval time.Duration
	log      *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper constructs a Sweeper bound to o, firing every interval.
func NewSweeper(o *Orchestrator, interval time.Duration, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{o: o, interval: interval, log: log}
}

// Start launches the background sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)
	s.log.Info("heartbeat sweeper started", "interval", s.interval)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.log.Info("heartbeat sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	requeued, err := s.o.SweepHeartbeats(ctx, time.Now())
	if err != nil {
		s.log.Error("heartbeat sweep failed", "error", err)
		return
	}
	if len(requeued) > 0 {
		s.log.Info("heartbeat sweep requeued tasks", "count", len(requeued), "taskIds", requeued)
	}
}
