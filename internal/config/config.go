// Package config loads the callaudit TOML configuration. Every field
// has a production default; a missing config file is not an error.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the top-level configuration.
type Config struct {
	Logging   LoggingConfig   `toml:"logging"`
	Output    OutputConfig    `toml:"output"`
	Upstream  UpstreamConfig  `toml:"upstream"`
	Storage   StorageConfig   `toml:"storage"`
	Pipeline  PipelineConfig  `toml:"pipeline"`
	Audit     AuditConfig     `toml:"audit"`
	Correlate CorrelateConfig `toml:"correlate"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// OutputConfig configures report artifact locations.
type OutputConfig struct {
	ReportsDir string `toml:"reports_dir"`
	RawDir     string `toml:"raw_dir"`
}

// UpstreamConfig configures the intake-platform API client. The API key
// itself is read from the environment, never from this file.
type UpstreamConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKeyEnv      string `toml:"api_key_env"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// StorageConfig configures the run-index database.
type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

// PipelineConfig configures batch execution.
type PipelineConfig struct {
	MaxConcurrency int `toml:"max_concurrency"`
	DefaultLast    int `toml:"default_last"`
}

// AuditConfig overrides the audit heuristic thresholds.
type AuditConfig struct {
	GibberishCritical float64 `toml:"gibberish_critical"`
	GibberishWarning  float64 `toml:"gibberish_warning"`
	AgentRatioMax     float64 `toml:"agent_ratio_max"`
	TurnGapMs         float64 `toml:"turn_gap_ms"`
	MaxCallMs         float64 `toml:"max_call_ms"`
}

// CorrelateConfig overrides the correlation thresholds.
type CorrelateConfig struct {
	HandoffWindowS float64 `toml:"handoff_window_s"`
	AgentBufferS   float64 `toml:"agent_buffer_s"`
	DedupWindowS   float64 `toml:"dedup_window_s"`
}

// Default returns the production defaults.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Output: OutputConfig{
			ReportsDir: "reports",
			RawDir:     "raw",
		},
		Upstream: UpstreamConfig{
			BaseURL:        "https://api.retellai.com",
			APIKeyEnv:      "RETELL_API_KEY",
			TimeoutSeconds: 30,
		},
		Storage: StorageConfig{
			DBPath: "callaudit.db",
		},
		Pipeline: PipelineConfig{
			MaxConcurrency: 4,
			DefaultLast:    2,
		},
		Audit: AuditConfig{
			GibberishCritical: 0.6,
			GibberishWarning:  0.4,
			AgentRatioMax:     0.65,
			TurnGapMs:         5000,
			MaxCallMs:         240000,
		},
		Correlate: CorrelateConfig{
			HandoffWindowS: 5.0,
			AgentBufferS:   0.5,
			DedupWindowS:   1.0,
		},
	}
}

// Load reads the config file at path, applying defaults for anything
// unset. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}
