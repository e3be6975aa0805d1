// Package store provides crash-safe, file-per-record persistence for
// analytics events and crash reports. Every record becomes exactly one
// file under the spool root, written atomically, never mutated, and
// deleted only after the collector acknowledges it (or by explicit
// retention pruning).
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/fieldtrace/fieldtrace/internal/record"
)

const (
	eventsDirName  = "events"
	crashesDirName = "crashes"

	dirPerm  = 0o750
	filePerm = 0o600
)

// Store persists records under <root>/events and <root>/crashes.
// Concurrent writers and a concurrent reader (the uploader draining the
// same directories) are safe: files appear atomically via
// write-to-temp-then-rename and are never modified afterwards.
type Store struct {
	root   string
	logger *slog.Logger
}

// New creates a store rooted at dir. Directories are created lazily on
// first write.
func New(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{root: dir, logger: logger}
}

// Root returns the spool root directory.
func (s *Store) Root() string { return s.root }

// EventsDir returns the directory holding persisted events.
func (s *Store) EventsDir() string { return filepath.Join(s.root, eventsDirName) }

// CrashesDir returns the directory holding persisted crash reports.
func (s *Store) CrashesDir() string { return filepath.Join(s.root, crashesDirName) }

// WriteEvent persists one analytics event to a freshly generated
// filename and returns the written path. A concurrent reader never
// observes a half-written file.
func (s *Store) WriteEvent(ev *record.AnalyticsEvent) (string, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return "", record.ErrStorage("ENCODE_FAILED", "marshaling event").WithCause(err)
	}

	dir := s.EventsDir()
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", record.ErrStorage("MKDIR_FAILED", "creating events directory").WithCause(err)
	}

	path := filepath.Join(dir, eventFilename(time.Now().UnixMilli()))
	if err := renameio.WriteFile(path, data, filePerm); err != nil {
		return "", record.ErrStorage("WRITE_FAILED", "writing event file").WithCause(err)
	}
	return path, nil
}

// WriteCrashSync persists one crash report and returns the written
// path, or an empty string on failure. It is fully synchronous: the
// file is durably committed (or the write has definitively failed)
// before it returns, because the caller is a crash handler and the
// process may be torn down immediately afterwards. No failure, not even
// a panic inside the write path, escapes: raising a second fault inside
// a crash handler would suppress the original crash's reporting. Errors
// are logged and swallowed here, nowhere else.
func (s *Store) WriteCrashSync(cr *record.CrashReport) (path string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while persisting crash report", "panic", fmt.Sprintf("%v", r))
			path = ""
		}
	}()

	data, err := json.Marshal(cr)
	if err != nil {
		s.logger.Error("marshaling crash report", "error", err)
		return ""
	}

	dir := s.CrashesDir()
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		s.logger.Error("creating crashes directory", "error", err)
		return ""
	}

	p := filepath.Join(dir, crashFilename(cr.Timestamp, cr.FatalityMarker()))
	if err := renameio.WriteFile(p, data, filePerm); err != nil {
		s.logger.Error("writing crash file", "error", err, "path", p)
		return ""
	}
	return p
}

// ReadEvent deserializes one persisted event. A missing, unreadable or
// malformed file yields (nil, false), never an error: one bad record
// must not block draining the rest of the queue.
func (s *Store) ReadEvent(path string) (*record.AnalyticsEvent, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var ev record.AnalyticsEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.logger.Warn("skipping malformed event file", "path", path, "error", err)
		return nil, false
	}
	return &ev, true
}

// ReadCrash deserializes one persisted crash report, with the same
// absent-on-corruption contract as ReadEvent.
func (s *Store) ReadCrash(path string) (*record.CrashReport, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var cr record.CrashReport
	if err := json.Unmarshal(data, &cr); err != nil {
		s.logger.Warn("skipping malformed crash file", "path", path, "error", err)
		return nil, false
	}
	return &cr, true
}

// ListEventFiles returns the full paths of all persisted events, in
// unspecified order. A spool that has never been written to is empty,
// not an error.
func (s *Store) ListEventFiles() ([]string, error) {
	return s.listDir(s.EventsDir(), EventExt)
}

// ListCrashFiles returns the full paths of all persisted crash reports.
func (s *Store) ListCrashFiles() ([]string, error) {
	return s.listDir(s.CrashesDir(), CrashExt)
}

func (s *Store) listDir(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, record.ErrStorage("LIST_FAILED", "listing spool directory").WithCause(err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

// DeleteFiles removes the given files, best effort. Already-deleted
// files are ignored; an empty input is a no-op.
func (s *Store) DeleteFiles(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("removing spool file", "path", p, "error", err)
		}
	}
}

// Prune applies retention limits to both spool directories: records
// older than maxAge are removed, then the oldest records beyond
// maxCount per kind. Zero values disable the respective limit. Returns
// the number of files removed.
func (s *Store) Prune(maxAge time.Duration, maxCount int) int {
	removed := 0
	for _, list := range []func() ([]string, error){s.ListEventFiles, s.ListCrashFiles} {
		paths, err := list()
		if err != nil {
			s.logger.Warn("listing spool for pruning", "error", err)
			continue
		}
		SortByTimestamp(paths)

		var drop []string
		if maxAge > 0 {
			cutoff := time.Now().Add(-maxAge).UnixMilli()
			for _, p := range paths {
				if key := SortKey(p); key > 0 && key < cutoff {
					drop = append(drop, p)
				}
			}
		}
		kept := len(paths) - len(drop)
		if maxCount > 0 && kept > maxCount {
			// Oldest first beyond the age cutoff.
			for _, p := range paths {
				if kept <= maxCount {
					break
				}
				if !slices.Contains(drop, p) {
					drop = append(drop, p)
					kept--
				}
			}
		}
		s.DeleteFiles(drop)
		removed += len(drop)
	}
	return removed
}
