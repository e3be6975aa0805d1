package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fieldtrace/fieldtrace/internal/envinfo"
	"github.com/fieldtrace/fieldtrace/internal/record"
	"github.com/fieldtrace/fieldtrace/internal/store"
	"github.com/fieldtrace/fieldtrace/internal/transport"
	"github.com/fieldtrace/fieldtrace/internal/uploader"
)

var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Upload all pending records to the collector",
	Long: `drain lists pending events and crash reports, uploads them oldest
first in bounded batches, and deletes exactly what the collector
acknowledges. Rejected batches stay queued for the next run.`,
	RunE: runDrain,
}

func init() {
	rootCmd.AddCommand(drainCmd)
}

// newUploader builds the drain machinery shared by drain and watch.
// Draining an existing spool reuses the session ids stored inside each
// record; the batch envelope carries the spool's identity, not a fresh
// session.
func newUploader() (*uploader.Uploader, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}

	st := store.New(cfg.SpoolDir, logger.Logger)
	tp := transport.New(cfg.BaseURL, cfg.APIKey, cfg.Upload.Timeout, logger.Logger)
	env := envinfo.New(cfg.AppVersion)

	return uploader.New(st, tp, env.Environment, spoolSessionID(st), uploader.Config{
		MaxBatchSize: cfg.Upload.MaxBatchSize,
		PruneCorrupt: cfg.Upload.PruneCorrupt,
	}, logger.Logger), nil
}

// spoolSessionID recovers a session id from the oldest pending record
// so a standalone drain attributes the batch to the session that
// produced it.
func spoolSessionID(st *store.Store) string {
	paths, err := st.ListEventFiles()
	if err == nil {
		store.SortByTimestamp(paths)
		for _, p := range paths {
			if ev, ok := st.ReadEvent(p); ok && ev.SessionID != "" {
				return ev.SessionID
			}
		}
	}
	paths, err = st.ListCrashFiles()
	if err == nil {
		store.SortByTimestamp(paths)
		for _, p := range paths {
			if cr, ok := st.ReadCrash(p); ok && cr.SessionID != "" {
				return cr.SessionID
			}
		}
	}
	return ""
}

func runDrain(cmd *cobra.Command, _ []string) error {
	u, err := newUploader()
	if err != nil {
		return err
	}

	var events, crashes uploader.Summary
	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		events = u.DrainEvents(ctx)
		return nil
	})
	g.Go(func() error {
		crashes = u.DrainCrashes(ctx)
		return nil
	})
	_ = g.Wait()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "events:  uploaded %d, skipped %d, complete %t\n",
		events.Uploaded, events.Skipped, events.Complete)
	fmt.Fprintf(out, "crashes: uploaded %d, skipped %d, complete %t\n",
		crashes.Uploaded, crashes.Skipped, crashes.Complete)

	if !events.Complete || !crashes.Complete {
		return record.ErrTransport("DRAIN_INCOMPLETE", "some batches were not acknowledged; they remain queued")
	}
	return nil
}
