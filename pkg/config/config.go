// Package config provides typed, validated configuration for the task
// orchestration core. It is loaded once at process startup (see Load) and
// passed explicitly to every component — the core never reads the process
// environment internally (spec §9, "Config via environment → typed Config
// struct").
package config

import (
	"fmt"
	"time"
)

// SecurityMode is the configured path-security mode. It is validated and
// logged at load time but not passed to PathValidator, which applies the
// same lexical root-containment checks in either mode and resolves no
// symlinks.
type SecurityMode string

const (
	// SecurityModeStrict is the default mode.
	SecurityModeStrict SecurityMode = "strict"
	// SecurityModePermissive is selected by
	// VIBE_TASK_MANAGER_SECURITY_MODE=permissive.
	SecurityModePermissive SecurityMode = "permissive"
)

// IsValid reports whether the security mode is one of the closed set.
func (m SecurityMode) IsValid() bool {
	return m == SecurityModeStrict || m == SecurityModePermissive
}

// SchedulerPolicy is the closed set of six pluggable scheduling policies (§4.9).
type SchedulerPolicy string

const (
	PolicyPriorityFirst   SchedulerPolicy = "priority_first"
	PolicyEarliestDeadline SchedulerPolicy = "earliest_deadline"
	PolicyCriticalPath    SchedulerPolicy = "critical_path"
	PolicyResourceBalanced SchedulerPolicy = "resource_balanced"
	PolicyShortestJob     SchedulerPolicy = "shortest_job"
	PolicyHybridOptimal   SchedulerPolicy = "hybrid_optimal"
)

// IsValid reports whether p is one of the six defined policies.
func (p SchedulerPolicy) IsValid() bool {
	switch p {
	case PolicyPriorityFirst, PolicyEarliestDeadline, PolicyCriticalPath,
		PolicyResourceBalanced, PolicyShortestJob, PolicyHybridOptimal:
		return true
	default:
		return false
	}
}

// StorageConfig controls StorageEngine behavior (§4.2).
type StorageConfig struct {
	ReadRoot          string        `yaml:"read_root"`
	WriteRoot         string        `yaml:"write_root"`
	CompressionEnabled bool         `yaml:"compression_enabled"`
	HotCacheSize      int           `yaml:"hot_cache_size"` // max entities held in the in-memory LRU, default 1000
	SecurityMode      SecurityMode  `yaml:"security_mode"`
}

// AccessConfig controls AccessManager behavior (§4.3).
type AccessConfig struct {
	DefaultLockTimeout  time.Duration `yaml:"default_lock_timeout"`  // default 30s
	MaxLockTimeout      time.Duration `yaml:"max_lock_timeout"`      // cap, default 300s
	CleanupInterval     time.Duration `yaml:"cleanup_interval"`
	DeadlockScanInterval time.Duration `yaml:"deadlock_scan_interval"`
	AuditEnabled        bool          `yaml:"audit_enabled"`
}

// RDDConfig controls the recursive decomposition engine (§4.8).
type RDDConfig struct {
	MaxDepth             int     `yaml:"max_depth" validate:"min=1"` // default 3
	AtomicConfidenceFloor float64 `yaml:"atomic_confidence_floor"`   // default 0.9
	ConvergenceTolerance float64 `yaml:"convergence_tolerance"`      // default 0.25 (±25%)
}

// OracleConfig controls timeouts/retries for the external LLM oracle (§5, §6).
type OracleConfig struct {
	Timeout    time.Duration `yaml:"timeout"`     // default 30s
	MaxRetries int           `yaml:"max_retries"` // default 3
}

// TransportConfig controls agent dispatch transports (§6).
type TransportConfig struct {
	DispatchTimeout time.Duration `yaml:"dispatch_timeout"` // default 30s
	PollingInterval time.Duration `yaml:"polling_interval"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
}

// PerformanceConfig controls PerformanceMonitor thresholds (§4.14, §6).
type PerformanceConfig struct {
	RegressionThresholdMS int `yaml:"regression_threshold_ms" validate:"min=10,max=10000"`
}

// Config is the umbrella configuration object passed explicitly to every
// core component. It is assembled once by Load and never mutated afterward.
type Config struct {
	configDir string

	Storage     StorageConfig
	Access      AccessConfig
	RDD         RDDConfig
	Oracle      OracleConfig
	Transport   TransportConfig
	Performance PerformanceConfig
	Scheduler   SchedulerPolicy
}

// ConfigDir returns the configuration directory the Config was loaded from.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// Validate checks cross-field invariants that struct tags cannot express.
func (c *Config) Validate() error {
	if c.Storage.ReadRoot == "" {
		return NewValidationError("storage", "read_root", "", ErrReadRootMissing)
	}
	if c.Storage.WriteRoot == "" {
		return NewValidationError("storage", "write_root", "", ErrWriteRootMissing)
	}
	if !c.Storage.SecurityMode.IsValid() {
		return NewValidationError("storage", "security_mode", "security_mode",
			fmt.Errorf("%w: %q", ErrInvalidValue, c.Storage.SecurityMode))
	}
	if !c.Scheduler.IsValid() {
		return NewValidationError("scheduler", "policy", "policy",
			fmt.Errorf("%w: %q", ErrInvalidValue, c.Scheduler))
	}
	if c.Access.DefaultLockTimeout > c.Access.MaxLockTimeout {
		return NewValidationError("access", "lock_timeout", "default_lock_timeout",
			fmt.Errorf("%w: default exceeds max", ErrInvalidValue))
	}
	if c.Performance.RegressionThresholdMS < 10 || c.Performance.RegressionThresholdMS > 10000 {
		return NewValidationError("performance", "regression_threshold_ms", "regression_threshold_ms", ErrInvalidValue)
	}
	return nil
}
