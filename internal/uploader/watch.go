package uploader

import (
	"context"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch drains whenever new records land in the spool, debounced so a
// burst of writes turns into one pass, with a periodic ticker as a
// fallback for missed filesystem notifications. Blocks until ctx is
// canceled.
func (u *Uploader) Watch(ctx context.Context, debounce, interval time.Duration) error {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	if interval <= 0 {
		interval = time.Minute
	}

	// The directories must exist before they can be watched.
	for _, dir := range []string{u.store.EventsDir(), u.store.CrashesDir()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(u.store.EventsDir()); err != nil {
		return err
	}
	if err := watcher.Add(u.store.CrashesDir()); err != nil {
		return err
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Catch anything queued before the watch started.
	u.drainBoth(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// renameio commits records via rename into the directory.
			if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			u.logger.Warn("spool watcher error", "error", err)
		case <-timer.C:
			u.drainBoth(ctx)
		case <-ticker.C:
			u.drainBoth(ctx)
		}
	}
}

func (u *Uploader) drainBoth(ctx context.Context) {
	u.DrainEvents(ctx)
	u.DrainCrashes(ctx)
}
