// Package config loads and validates the pipeline configuration from
// flags, environment and config files.
package config

import (
	"net/url"
	"time"

	"github.com/fieldtrace/fieldtrace/internal/record"
)

// Config is the full pipeline configuration.
type Config struct {
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	SpoolDir   string `mapstructure:"spool_dir" yaml:"spool_dir"`
	AppVersion string `mapstructure:"app_version" yaml:"app_version"`

	Log         LogConfig        `mapstructure:"log" yaml:"log"`
	Breadcrumbs BreadcrumbConfig `mapstructure:"breadcrumbs" yaml:"breadcrumbs"`
	Upload      UploadConfig     `mapstructure:"upload" yaml:"upload"`
	Retention   RetentionConfig  `mapstructure:"retention" yaml:"retention"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// BreadcrumbConfig configures the diagnostic trail.
type BreadcrumbConfig struct {
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
}

// UploadConfig configures batch submission.
type UploadConfig struct {
	MaxBatchSize  int           `mapstructure:"max_batch_size" yaml:"max_batch_size"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PruneCorrupt  bool          `mapstructure:"prune_corrupt" yaml:"prune_corrupt"`
	WatchDebounce time.Duration `mapstructure:"watch_debounce" yaml:"watch_debounce"`
	WatchInterval time.Duration `mapstructure:"watch_interval" yaml:"watch_interval"`
}

// RetentionConfig bounds the spool; zero values disable a limit.
type RetentionConfig struct {
	MaxAge   time.Duration `mapstructure:"max_age" yaml:"max_age"`
	MaxCount int           `mapstructure:"max_count" yaml:"max_count"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL:  "https://collect.fieldtrace.io",
		SpoolDir: ".fieldtrace/spool",
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Breadcrumbs: BreadcrumbConfig{
			Capacity: 50,
		},
		Upload: UploadConfig{
			MaxBatchSize:  50,
			Timeout:       30 * time.Second,
			PruneCorrupt:  true,
			WatchDebounce: 2 * time.Second,
			WatchInterval: time.Minute,
		},
	}
}

// Validate checks structural consistency. The API key is checked
// separately by the commands that talk to the collector; inspecting a
// local spool must not require one.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return record.ErrConfig("BASE_URL_MISSING", "base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return record.ErrConfig("BASE_URL_INVALID", "base_url must be an absolute URL")
	}
	if c.SpoolDir == "" {
		return record.ErrConfig("SPOOL_DIR_MISSING", "spool_dir is required")
	}
	if c.Upload.MaxBatchSize <= 0 {
		return record.ErrConfig("BATCH_SIZE_INVALID", "upload.max_batch_size must be positive")
	}
	if c.Breadcrumbs.Capacity <= 0 {
		return record.ErrConfig("CAPACITY_INVALID", "breadcrumbs.capacity must be positive")
	}
	if c.Upload.Timeout <= 0 {
		return record.ErrConfig("TIMEOUT_INVALID", "upload.timeout must be positive")
	}
	return nil
}

// RequireAPIKey checks that an API key is configured; required by
// every command that submits to the collector.
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return record.ErrConfig("API_KEY_MISSING",
			"api_key is required to upload (set FIELDTRACE_API_KEY or api_key in the config file)")
	}
	return nil
}
