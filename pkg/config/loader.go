package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// yamlConfig mirrors the on-disk core.yaml shape. Every field is optional;
// omitted fields fall back to Default().
type yamlConfig struct {
	Storage     *yamlStorage     `yaml:"storage"`
	Access      *AccessConfig    `yaml:"access"`
	RDD         *RDDConfig       `yaml:"rdd"`
	Oracle      *OracleConfig    `yaml:"oracle"`
	Transport   *TransportConfig `yaml:"transport"`
	Performance *PerformanceConfig `yaml:"performance"`
	Scheduler   SchedulerPolicy  `yaml:"scheduler"`
}

type yamlStorage struct {
	CompressionEnabled *bool `yaml:"compression_enabled"`
	HotCacheSize       int   `yaml:"hot_cache_size"`
}

var validate = validator.New()

// Load assembles a ready-to-use Config. It is the primary entry point for
// configuration loading (teacher pattern: pkg/config.Initialize).
//
// Steps performed:
//  1. Load core.yaml from configDir, if present (optional — env vars alone suffice)
//  2. Expand environment variables in the YAML text
//  3. Parse YAML into a yamlConfig overlay
//  4. Merge overlay onto Default() (overlay wins)
//  5. Apply environment variables named in spec §6 (read/write roots, security mode, perf threshold)
//  6. Validate the result
func Load(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("loading task orchestration core configuration")

	cfg := Default()
	cfg.configDir = configDir

	overlayPath := filepath.Join(configDir, "core.yaml")
	if data, err := os.ReadFile(overlayPath); err == nil {
		expanded := ExpandEnv(data)
		var overlay yamlConfig
		if err := yaml.Unmarshal(expanded, &overlay); err != nil {
			return nil, NewLoadError(overlayPath, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
		}
		if err := applyOverlay(cfg, &overlay); err != nil {
			return nil, NewLoadError(overlayPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, NewLoadError(overlayPath, err)
	}

	applyEnv(cfg)

	if err := validate.Struct(&cfg.RDD); err != nil {
		return nil, NewLoadError(overlayPath, fmt.Errorf("%w: %v", ErrValidationFailed, err))
	}
	if err := validate.Struct(&cfg.Performance); err != nil {
		return nil, NewLoadError(overlayPath, fmt.Errorf("%w: %v", ErrValidationFailed, err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info("configuration loaded",
		"read_root", cfg.Storage.ReadRoot,
		"write_root", cfg.Storage.WriteRoot,
		"scheduler", cfg.Scheduler,
		"security_mode", cfg.Storage.SecurityMode)
	return cfg, nil
}

// applyOverlay merges the parsed YAML overlay onto the defaults, overlay
// values taking precedence (teacher pattern: dario.cat/mergo with
// WithOverride, used identically in the teacher's config loader for
// built-in + user-defined merges).
func applyOverlay(cfg *Config, overlay *yamlConfig) error {
	if overlay.Storage != nil {
		if overlay.Storage.CompressionEnabled != nil {
			cfg.Storage.CompressionEnabled = *overlay.Storage.CompressionEnabled
		}
		if overlay.Storage.HotCacheSize > 0 {
			cfg.Storage.HotCacheSize = overlay.Storage.HotCacheSize
		}
	}
	if overlay.Access != nil {
		if err := mergo.Merge(&cfg.Access, overlay.Access, mergo.WithOverride); err != nil {
			return err
		}
	}
	if overlay.RDD != nil {
		if err := mergo.Merge(&cfg.RDD, overlay.RDD, mergo.WithOverride); err != nil {
			return err
		}
	}
	if overlay.Oracle != nil {
		if err := mergo.Merge(&cfg.Oracle, overlay.Oracle, mergo.WithOverride); err != nil {
			return err
		}
	}
	if overlay.Transport != nil {
		if err := mergo.Merge(&cfg.Transport, overlay.Transport, mergo.WithOverride); err != nil {
			return err
		}
	}
	if overlay.Performance != nil {
		if err := mergo.Merge(&cfg.Performance, overlay.Performance, mergo.WithOverride); err != nil {
			return err
		}
	}
	if overlay.Scheduler != "" {
		cfg.Scheduler = overlay.Scheduler
	}
	return nil
}

// applyEnv overlays the environment variables named in spec §6. Names are
// preserved for compatibility with the system this core was extracted from.
func applyEnv(cfg *Config) {
	if v := os.Getenv("VIBE_TASK_MANAGER_READ_DIR"); v != "" {
		cfg.Storage.ReadRoot = v
	}
	if v := os.Getenv("VIBE_CODER_OUTPUT_DIR"); v != "" {
		cfg.Storage.WriteRoot = v
	}
	if v := os.Getenv("VIBE_TASK_MANAGER_SECURITY_MODE"); v != "" {
		cfg.Storage.SecurityMode = SecurityMode(v)
	}
	if v := os.Getenv("VIBE_SECURITY_PERFORMANCE_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Performance.RegressionThresholdMS = n
		}
	}
}
