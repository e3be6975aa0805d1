// Package uploader drains persisted records to the remote collector:
// oldest first, batched, deleting exactly what the server acknowledges
// and nothing else.
package uploader

import (
	"context"
	"log/slog"
	"sync"

	"github.com/fieldtrace/fieldtrace/internal/record"
	"github.com/fieldtrace/fieldtrace/internal/store"
)

// DefaultMaxBatchSize bounds one upload request when the caller
// configures no limit.
const DefaultMaxBatchSize = 50

// Transport submits batches to the collector. A nil return means the
// server acknowledged the batch (2xx); any error leaves the batch
// queued for the next run.
type Transport interface {
	SubmitEvents(ctx context.Context, batch record.EventBatch) error
	SubmitCrashes(ctx context.Context, batch record.CrashBatch) error
}

// Config tunes a drain pass.
type Config struct {
	// MaxBatchSize caps records per upload request.
	MaxBatchSize int
	// PruneCorrupt deletes undecodable spool files instead of leaving
	// them behind; they can never upload successfully.
	PruneCorrupt bool
}

// Summary is the outcome of one drain pass. Transport failures never
// surface as errors that abort the queue; they show up as an incomplete
// pass that the next scheduled run retries from the same state.
type Summary struct {
	Uploaded int  // records acknowledged and deleted
	Skipped  int  // undecodable records passed over
	Pruned   int  // undecodable files deleted (PruneCorrupt)
	Complete bool // every pending batch was acknowledged
}

// Uploader drains the two spool directories. Each kind runs
// non-concurrently with itself: an in-flight pass blocks a second
// overlapping pass for the same kind, which simply reports incomplete.
type Uploader struct {
	store     *store.Store
	transport Transport
	env       func() record.Environment
	sessionID string
	cfg       Config
	logger    *slog.Logger

	eventsMu  sync.Mutex
	crashesMu sync.Mutex
}

// New creates an uploader. A nil env attaches an empty environment.
func New(st *store.Store, tr Transport, env func() record.Environment, sessionID string, cfg Config, logger *slog.Logger) *Uploader {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	if env == nil {
		env = func() record.Environment { return record.Environment{} }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{
		store:     st,
		transport: tr,
		env:       env,
		sessionID: sessionID,
		cfg:       cfg,
		logger:    logger,
	}
}

// DrainEvents uploads all pending analytics events.
func (u *Uploader) DrainEvents(ctx context.Context) Summary {
	if !u.eventsMu.TryLock() {
		u.logger.Debug("event drain already in flight")
		return Summary{}
	}
	defer u.eventsMu.Unlock()

	paths, err := u.store.ListEventFiles()
	if err != nil {
		u.logger.Warn("listing pending events", "error", err)
		return Summary{}
	}
	store.SortByTimestamp(paths)

	var sum Summary
	var pending []string
	var decoded []record.WireEvent
	for _, p := range paths {
		ev, ok := u.store.ReadEvent(p)
		if !ok {
			u.discard(p, &sum)
			continue
		}
		pending = append(pending, p)
		decoded = append(decoded, ev.ToWire())
	}

	sum.Complete = true
	for start := 0; start < len(pending); start += u.cfg.MaxBatchSize {
		end := min(start+u.cfg.MaxBatchSize, len(pending))
		batch := record.EventBatch{
			SessionID:   u.sessionID,
			Environment: u.env(),
			Events:      decoded[start:end],
		}
		if err := u.transport.SubmitEvents(ctx, batch); err != nil {
			// The whole batch stays queued; later batches are not
			// attempted so the server keeps seeing records in order.
			u.logger.Warn("event batch rejected", "count", end-start, "error", err)
			sum.Complete = false
			break
		}
		u.store.DeleteFiles(pending[start:end])
		sum.Uploaded += end - start
	}

	u.logger.Info("event drain finished",
		"uploaded", sum.Uploaded, "skipped", sum.Skipped, "complete", sum.Complete)
	return sum
}

// DrainCrashes uploads all pending crash reports.
func (u *Uploader) DrainCrashes(ctx context.Context) Summary {
	if !u.crashesMu.TryLock() {
		u.logger.Debug("crash drain already in flight")
		return Summary{}
	}
	defer u.crashesMu.Unlock()

	paths, err := u.store.ListCrashFiles()
	if err != nil {
		u.logger.Warn("listing pending crashes", "error", err)
		return Summary{}
	}
	store.SortByTimestamp(paths)

	var sum Summary
	var pending []string
	var decoded []record.WireCrash
	for _, p := range paths {
		cr, ok := u.store.ReadCrash(p)
		if !ok {
			u.discard(p, &sum)
			continue
		}
		pending = append(pending, p)
		decoded = append(decoded, cr.ToWire())
	}

	sum.Complete = true
	for start := 0; start < len(pending); start += u.cfg.MaxBatchSize {
		end := min(start+u.cfg.MaxBatchSize, len(pending))
		batch := record.CrashBatch{
			SessionID:   u.sessionID,
			Environment: u.env(),
			Crashes:     decoded[start:end],
		}
		if err := u.transport.SubmitCrashes(ctx, batch); err != nil {
			u.logger.Warn("crash batch rejected", "count", end-start, "error", err)
			sum.Complete = false
			break
		}
		u.store.DeleteFiles(pending[start:end])
		sum.Uploaded += end - start
	}

	u.logger.Info("crash drain finished",
		"uploaded", sum.Uploaded, "skipped", sum.Skipped, "complete", sum.Complete)
	return sum
}

// discard handles an undecodable spool file: always skipped, deleted
// too when pruning is enabled since it can never be retried to success.
func (u *Uploader) discard(path string, sum *Summary) {
	sum.Skipped++
	if u.cfg.PruneCorrupt {
		u.store.DeleteFiles([]string{path})
		sum.Pruned++
	}
}
