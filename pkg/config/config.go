package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the downloader.
// Delay values are plain seconds so they read naturally in YAML and on
// the command line.
type Config struct {
	// TargetAccount is the default account to download when none is
	// given on the command line.
	TargetAccount string `yaml:"target_account"`

	// DelayMin and DelayMax bound the randomized pause between
	// consecutive requests, in seconds.
	DelayMin int `yaml:"delay_min"`
	DelayMax int `yaml:"delay_max"`

	Output        OutputConfig       `yaml:"output"`
	Retry         RetryConfig        `yaml:"retry"`
	Download      DownloadConfig     `yaml:"download"`
	Instagram     InstagramConfig    `yaml:"instagram"`
	Notifications NotificationConfig `yaml:"notifications"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// OutputConfig holds output directory configuration.
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory"`
}

// RetryConfig bounds the backoff applied when the platform signals
// throttling or the network hiccups.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts"`
	BaseDelaySeconds int     `yaml:"base_delay_seconds"`
	MaxDelaySeconds  int     `yaml:"max_delay_seconds"`
	Multiplier       float64 `yaml:"multiplier"`
}

// DownloadConfig holds per-request download settings.
type DownloadConfig struct {
	TimeoutSeconds int  `yaml:"timeout_seconds"`
	SkipVideos     bool `yaml:"skip_videos"`
}

// InstagramConfig holds platform-specific settings.
type InstagramConfig struct {
	UserAgent string `yaml:"user_agent"`
}

// NotificationConfig holds desktop notification preferences.
type NotificationConfig struct {
	Enabled     bool `yaml:"enabled"`
	OnComplete  bool `yaml:"on_complete"`
	OnRateLimit bool `yaml:"on_rate_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns a Config with conservative defaults. The delay
// range errs on the slow side; faster cadences get accounts flagged.
func DefaultConfig() *Config {
	return &Config{
		DelayMin: 10,
		DelayMax: 30,
		Output: OutputConfig{
			BaseDirectory: "./downloaded_posts",
		},
		Retry: RetryConfig{
			MaxAttempts:      3,
			BaseDelaySeconds: 30,
			MaxDelaySeconds:  300,
			Multiplier:       2.0,
		},
		Download: DownloadConfig{
			TimeoutSeconds: 30,
		},
		Instagram: InstagramConfig{
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		},
		Notifications: NotificationConfig{
			Enabled:     true,
			OnComplete:  true,
			OnRateLimit: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DelayRange returns the configured inter-request delay bounds.
func (c *Config) DelayRange() (min, max time.Duration) {
	return time.Duration(c.DelayMin) * time.Second, time.Duration(c.DelayMax) * time.Second
}

// DownloadTimeout returns the per-request HTTP timeout.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Download.TimeoutSeconds) * time.Second
}

// RetryBaseDelay returns the initial backoff delay.
func (c *RetryConfig) RetryBaseDelay() time.Duration {
	return time.Duration(c.BaseDelaySeconds) * time.Second
}

// RetryMaxDelay returns the backoff delay ceiling.
func (c *RetryConfig) RetryMaxDelay() time.Duration {
	return time.Duration(c.MaxDelaySeconds) * time.Second
}

// LoadFromEnv overlays configuration from IGFETCH_* environment
// variables.
func (c *Config) LoadFromEnv() error {
	if target := os.Getenv("IGFETCH_TARGET_ACCOUNT"); target != "" {
		c.TargetAccount = target
	}
	if v := os.Getenv("IGFETCH_DELAY_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.DelayMin = n
		}
	}
	if v := os.Getenv("IGFETCH_DELAY_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.DelayMax = n
		}
	}
	if dir := os.Getenv("IGFETCH_OUTPUT_DIR"); dir != "" {
		c.Output.BaseDirectory = dir
	}
	if ua := os.Getenv("IGFETCH_USER_AGENT"); ua != "" {
		c.Instagram.UserAgent = ua
	}
	if level := os.Getenv("IGFETCH_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	return nil
}

// LoadFromFile overlays configuration from a YAML file. An empty path
// searches the standard locations; a missing file is not an error.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func findConfigFile() string {
	locations := []string{
		".igfetch.yaml",
		".igfetch.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "igfetch", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".igfetch.yaml"),
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// Validate checks the configuration for values the downloader cannot
// run with.
func (c *Config) Validate() error {
	var errs []error

	if c.DelayMin <= 0 {
		errs = append(errs, errors.New("delay_min must be positive"))
	}
	if c.DelayMax < c.DelayMin {
		errs = append(errs, errors.New("delay_max must be >= delay_min"))
	}
	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry max_attempts must be at least 1"))
	}
	if c.Download.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// MergeFlags overlays command line flag values. Only recognized keys
// are applied.
func (c *Config) MergeFlags(flags map[string]interface{}) {
	if target, ok := flags["target-account"].(string); ok && target != "" {
		c.TargetAccount = target
	}
	if min, ok := flags["delay-min"].(int); ok && min > 0 {
		c.DelayMin = min
	}
	if max, ok := flags["delay-max"].(int); ok && max > 0 {
		c.DelayMax = max
	}
	if dir, ok := flags["output"].(string); ok && dir != "" {
		c.Output.BaseDirectory = dir
	}
	if attempts, ok := flags["max-retries"].(int); ok && attempts > 0 {
		c.Retry.MaxAttempts = attempts
	}
	if timeout, ok := flags["download-timeout"].(int); ok && timeout > 0 {
		c.Download.TimeoutSeconds = timeout
	}
	if skip, ok := flags["skip-videos"].(bool); ok {
		c.Download.SkipVideos = skip
	}
	if level, ok := flags["log-level"].(string); ok && level != "" {
		c.Logging.Level = level
	}
	if enabled, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = enabled
	}
}

// Load builds the effective configuration. Precedence, highest first:
// command line flags > environment variables (including .env) > config
// file > defaults.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igfetch.env"))

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg.MergeFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
