package config

import "time"

// Default returns the built-in configuration defaults. Load merges these
// with whatever a YAML file and environment overrides supply — user values
// always win (see applyOverlay and applyEnv in loader.go).
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			CompressionEnabled: false,
			HotCacheSize:       1000,
			SecurityMode:       SecurityModeStrict,
		},
		Access: AccessConfig{
			DefaultLockTimeout:   30 * time.Second,
			MaxLockTimeout:       300 * time.Second,
			CleanupInterval:      1 * time.Minute,
			DeadlockScanInterval: 5 * time.Second,
			AuditEnabled:         true,
		},
		RDD: RDDConfig{
			MaxDepth:              3,
			AtomicConfidenceFloor: 0.9,
			ConvergenceTolerance:  0.25,
		},
		Oracle: OracleConfig{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Transport: TransportConfig{
			DispatchTimeout:   30 * time.Second,
			PollingInterval:   10 * time.Second,
			HeartbeatInterval: 15 * time.Second,
		},
		Performance: PerformanceConfig{
			RegressionThresholdMS: 200,
		},
		Scheduler: PolicyHybridOptimal,
	}
}
