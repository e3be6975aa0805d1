package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously drain the spool as records arrive",
	Long: `watch monitors the spool directories and uploads new records after a
short debounce, with a periodic pass as fallback. Runs until
interrupted.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	u, err := newUploader()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("watching spool", "dir", cfg.SpoolDir,
		"debounce", cfg.Upload.WatchDebounce, "interval", cfg.Upload.WatchInterval)

	err = u.Watch(ctx, cfg.Upload.WatchDebounce, cfg.Upload.WatchInterval)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
