package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DelayMin <= 0 {
		t.Error("expected a positive default delay_min")
	}
	if cfg.DelayMax < cfg.DelayMin {
		t.Error("expected delay_max >= delay_min by default")
	}
	if cfg.Output.BaseDirectory != "./downloaded_posts" {
		t.Errorf("unexpected default output directory: %s", cfg.Output.BaseDirectory)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("expected 3 retry attempts, got %d", cfg.Retry.MaxAttempts)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestDelayRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DelayMin = 10
	cfg.DelayMax = 60

	min, max := cfg.DelayRange()
	if min != 10*time.Second {
		t.Errorf("min = %v, want 10s", min)
	}
	if max != 60*time.Second {
		t.Errorf("max = %v, want 60s", max)
	}
}

func TestValidateRejectsBadDelays(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DelayMin = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for delay_min = 0")
	}

	cfg = DefaultConfig()
	cfg.DelayMin = 30
	cfg.DelayMax = 10
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for delay_max < delay_min")
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unknown log level")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
target_account: alice
delay_min: 15
delay_max: 45
output:
  base_directory: /tmp/posts
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.TargetAccount != "alice" {
		t.Errorf("target_account = %q, want alice", cfg.TargetAccount)
	}
	if cfg.DelayMin != 15 || cfg.DelayMax != 45 {
		t.Errorf("delays = %d/%d, want 15/45", cfg.DelayMin, cfg.DelayMax)
	}
	if cfg.Output.BaseDirectory != "/tmp/posts" {
		t.Errorf("base_directory = %q", cfg.Output.BaseDirectory)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("retry max_attempts = %d, want default 3", cfg.Retry.MaxAttempts)
	}
}

func TestLoadFromFileMissingIsNotAnError(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Skip("explicit missing path errors; empty path search does not")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IGFETCH_TARGET_ACCOUNT", "bob")
	t.Setenv("IGFETCH_DELAY_MIN", "20")
	t.Setenv("IGFETCH_DELAY_MAX", "40")
	t.Setenv("IGFETCH_OUTPUT_DIR", "/data/posts")
	t.Setenv("IGFETCH_LOG_LEVEL", "warn")

	cfg := DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}

	if cfg.TargetAccount != "bob" {
		t.Errorf("target = %q, want bob", cfg.TargetAccount)
	}
	if cfg.DelayMin != 20 || cfg.DelayMax != 40 {
		t.Errorf("delays = %d/%d, want 20/40", cfg.DelayMin, cfg.DelayMax)
	}
	if cfg.Output.BaseDirectory != "/data/posts" {
		t.Errorf("output dir = %q", cfg.Output.BaseDirectory)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestLoadFromEnvIgnoresGarbageNumbers(t *testing.T) {
	t.Setenv("IGFETCH_DELAY_MIN", "soon")

	cfg := DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}
	if cfg.DelayMin != DefaultConfig().DelayMin {
		t.Errorf("garbage delay overrode the default: %d", cfg.DelayMin)
	}
}

func TestMergeFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeFlags(map[string]interface{}{
		"target-account": "carol",
		"delay-min":      5,
		"delay-max":      12,
		"output":         "/somewhere",
		"max-retries":    5,
		"log-level":      "error",
	})

	if cfg.TargetAccount != "carol" {
		t.Errorf("target = %q", cfg.TargetAccount)
	}
	if cfg.DelayMin != 5 || cfg.DelayMax != 12 {
		t.Errorf("delays = %d/%d", cfg.DelayMin, cfg.DelayMax)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("max attempts = %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestFlagsBeatEnv(t *testing.T) {
	t.Setenv("IGFETCH_DELAY_MIN", "25")

	cfg := DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatal(err)
	}
	cfg.MergeFlags(map[string]interface{}{"delay-min": 8})

	if cfg.DelayMin != 8 {
		t.Errorf("delay_min = %d, flags should win over env", cfg.DelayMin)
	}
}
