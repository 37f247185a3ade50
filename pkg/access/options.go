package access

import (
	"time"

	"github.com/codeready-toolchain/taskcore/pkg/config"
)

type options struct {
	timeout  time.Duration
	metadata map[string]string
}

func defaultOptions(cfg config.AccessConfig) options {
	return options{timeout: cfg.DefaultLockTimeout}
}

// Option customizes one Acquire call.
type Option func(*options)

// WithTimeout overrides the default acquire timeout, capped at max by the
// caller (the Manager does not itself enforce MaxLockTimeout — callers
// build options through WithBoundedTimeout to respect the configured cap).
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithBoundedTimeout sets the timeout to d, clamped to [0, max].
func WithBoundedTimeout(d, max time.Duration) Option {
	if d > max {
		d = max
	}
	if d < 0 {
		d = 0
	}
	return WithTimeout(d)
}

// WithMetadata attaches caller-supplied metadata to the granted lock.
func WithMetadata(md map[string]string) Option {
	return func(o *options) { o.metadata = md }
}
