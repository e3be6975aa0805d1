package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldtrace/fieldtrace/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending spool contents",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	st := store.New(cfg.SpoolDir, logger.Logger)

	events, err := st.ListEventFiles()
	if err != nil {
		return err
	}
	crashes, err := st.ListCrashFiles()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Spool:          %s\n", st.Root())
	fmt.Fprintf(out, "Pending events: %d%s\n", len(events), oldestSuffix(events))
	fmt.Fprintf(out, "Pending crashes: %d%s\n", len(crashes), oldestSuffix(crashes))
	return nil
}

// oldestSuffix renders the age of the oldest validly stamped record.
func oldestSuffix(paths []string) string {
	var oldest int64
	for _, p := range paths {
		if key := store.SortKey(p); key > 0 && (oldest == 0 || key < oldest) {
			oldest = key
		}
	}
	if oldest == 0 {
		return ""
	}
	age := time.Since(time.UnixMilli(oldest)).Round(time.Second)
	return fmt.Sprintf(" (oldest %s ago)", age)
}
