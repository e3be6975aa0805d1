package store

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Record filenames encode their own chronology: the leading numeric
// field is the sole sort key. Filesystem metadata is deliberately
// ignored because sync and backup tooling rewrites it.

const (
	EventExt = ".event"
	CrashExt = ".crash"
)

// SortKey extracts the chronological sort key from a record filename:
// the integer formed by all characters before the first dash. A missing
// dash, an empty prefix, or a non-numeric prefix yields 0, which sorts
// before every validly stamped file so malformed entries surface early
// for inspection instead of being buried at the end of the queue.
func SortKey(path string) int64 {
	name := filepath.Base(path)
	i := strings.Index(name, "-")
	if i <= 0 {
		return 0
	}
	key, err := strconv.ParseInt(name[:i], 10, 64)
	if err != nil || key < 0 {
		return 0
	}
	return key
}

// SortByTimestamp orders paths ascending by filename sort key. Ties
// keep their existing relative order.
func SortByTimestamp(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		return SortKey(paths[i]) < SortKey(paths[j])
	})
}

// eventFilename generates a fresh event filename. The uuid suffix keeps
// names unique under same-millisecond concurrent writes.
func eventFilename(unixMillis int64) string {
	return fmt.Sprintf("%d-%s%s", unixMillis, uuid.NewString(), EventExt)
}

// crashFilename generates a fresh crash filename. The fatality marker
// sits in its own field so tooling can filter fatal crashes without
// deserializing.
func crashFilename(unixMillis int64, marker string) string {
	return fmt.Sprintf("%d-%s-%s%s", unixMillis, marker, uuid.NewString(), CrashExt)
}
