package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldtrace/fieldtrace/internal/store"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply retention limits to the spool",
	Long: `prune deletes records older than retention.max_age and the oldest
records beyond retention.max_count per kind. This is the only path
besides server acknowledgment that removes spool files.`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, _ []string) error {
	if cfg.Retention.MaxAge <= 0 && cfg.Retention.MaxCount <= 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "retention limits are not configured; nothing to do")
		return nil
	}

	st := store.New(cfg.SpoolDir, logger.Logger)
	removed := st.Prune(cfg.Retention.MaxAge, cfg.Retention.MaxCount)
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d record(s)\n", removed)
	return nil
}
