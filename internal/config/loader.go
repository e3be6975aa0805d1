package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: "FIELDTRACE",
	}
}

// NewLoaderWithViper creates a loader using an existing viper
// instance, allowing integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "FIELDTRACE",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (FIELDTRACE_*)
// 3. Project config (.fieldtrace/config.yaml in current directory)
// 4. User config (~/.config/fieldtrace/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".fieldtrace")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "fieldtrace"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := Default()
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) setDefaults() {
	def := Default()
	// Every key needs a default registered, or viper's Unmarshal will
	// not see values supplied only through the environment.
	l.v.SetDefault("api_key", "")
	l.v.SetDefault("app_version", "")
	l.v.SetDefault("base_url", def.BaseURL)
	l.v.SetDefault("spool_dir", def.SpoolDir)
	l.v.SetDefault("log.level", def.Log.Level)
	l.v.SetDefault("log.format", def.Log.Format)
	l.v.SetDefault("breadcrumbs.capacity", def.Breadcrumbs.Capacity)
	l.v.SetDefault("upload.max_batch_size", def.Upload.MaxBatchSize)
	l.v.SetDefault("upload.timeout", def.Upload.Timeout)
	l.v.SetDefault("upload.prune_corrupt", def.Upload.PruneCorrupt)
	l.v.SetDefault("upload.watch_debounce", def.Upload.WatchDebounce)
	l.v.SetDefault("upload.watch_interval", def.Upload.WatchInterval)
	l.v.SetDefault("retention.max_age", def.Retention.MaxAge)
	l.v.SetDefault("retention.max_count", def.Retention.MaxCount)
}
