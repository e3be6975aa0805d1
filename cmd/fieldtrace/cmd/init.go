package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fieldtrace/fieldtrace/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	path := cfgFile
	if path == "" {
		path = filepath.Join(".fieldtrace", "config.yaml")
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(starterConfig())
	if err != nil {
		return fmt.Errorf("marshaling default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}

// starterConfig renders the defaults with human-readable durations
// instead of raw nanosecond integers.
func starterConfig() map[string]any {
	def := config.Default()
	return map[string]any{
		"api_key":   "",
		"base_url":  def.BaseURL,
		"spool_dir": def.SpoolDir,
		"log": map[string]any{
			"level":  def.Log.Level,
			"format": def.Log.Format,
		},
		"breadcrumbs": map[string]any{
			"capacity": def.Breadcrumbs.Capacity,
		},
		"upload": map[string]any{
			"max_batch_size": def.Upload.MaxBatchSize,
			"timeout":        def.Upload.Timeout.String(),
			"prune_corrupt":  def.Upload.PruneCorrupt,
			"watch_debounce": def.Upload.WatchDebounce.String(),
			"watch_interval": def.Upload.WatchInterval.String(),
		},
		"retention": map[string]any{
			"max_age":   def.Retention.MaxAge.String(),
			"max_count": def.Retention.MaxCount,
		},
	}
}
