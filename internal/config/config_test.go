package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "info" || cfg.Output.ReportsDir != "reports" {
		t.Errorf("missing file must load defaults, got %+v", cfg)
	}
	if cfg.Audit.GibberishCritical != 0.6 || cfg.Correlate.HandoffWindowS != 5.0 {
		t.Errorf("threshold defaults wrong: %+v", cfg)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "callaudit.toml")
	content := `
[logging]
level = "debug"

[audit]
turn_gap_ms = 8000
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Audit.TurnGapMs != 8000 {
		t.Errorf("turn_gap_ms = %v, want 8000", cfg.Audit.TurnGapMs)
	}
	// Everything unset in the file stays at its default.
	if cfg.Audit.GibberishCritical != 0.6 {
		t.Errorf("gibberish_critical = %v, want default 0.6", cfg.Audit.GibberishCritical)
	}
	if cfg.Pipeline.MaxConcurrency != 4 {
		t.Errorf("max_concurrency = %v, want default 4", cfg.Pipeline.MaxConcurrency)
	}
}

func TestLoadRejectsInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("logging = {"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("invalid TOML must fail to load")
	}
}
