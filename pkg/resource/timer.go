package resource

import "time"

// TimerKind differentiates a one-shot timer from a recurring ticker so
// Dispose calls the correct stop/cancel function (spec §4.13: "Timer
// resources are differentiated (one-shot vs interval) so the correct
// cancel function is used").
type TimerKind int

const (
	TimerOneShot TimerKind = iota
	TimerInterval
)

// Timer wraps either a time.Timer or a time.Ticker as a Disposable.
type Timer struct {
	kind   TimerKind
	timer  *time.Timer
	ticker *time.Ticker
}

// NewOneShotTimer wraps t, a *time.Timer, for registration as a Disposable.
func NewOneShotTimer(t *time.Timer) *Timer {
	return &Timer{kind: TimerOneShot, timer: t}
}

// NewIntervalTimer wraps t, a *time.Ticker, for registration as a Disposable.
func NewIntervalTimer(t *time.Ticker) *Timer {
	return &Timer{kind: TimerInterval, ticker: t}
}

// Dispose stops the underlying timer or ticker. Both time.Timer.Stop and
// time.Ticker.Stop are already idempotent, so no extra guard is needed here.
func (t *Timer) Dispose() error {
	switch t.kind {
	case TimerOneShot:
		t.timer.Stop()
	case TimerInterval:
		t.ticker.Stop()
	}
	return nil
}
