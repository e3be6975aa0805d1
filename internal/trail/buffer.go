// Package trail keeps the rolling buffer of recent diagnostic
// breadcrumbs that enriches crash reports.
package trail

import (
	"sync"

	"github.com/fieldtrace/fieldtrace/internal/record"
)

// DefaultCapacity is the breadcrumb count retained when none is
// configured.
const DefaultCapacity = 50

// Buffer is a fixed-capacity, insertion-ordered ring of breadcrumbs.
// When full, adding evicts the single oldest entry. Safe for concurrent
// use; Add, Snapshot and Clear are mutually exclusive.
type Buffer struct {
	mu       sync.Mutex
	crumbs   []record.Breadcrumb
	capacity int
}

// New creates a buffer retaining at most capacity breadcrumbs.
// Non-positive capacities fall back to DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		crumbs:   make([]record.Breadcrumb, 0, capacity),
		capacity: capacity,
	}
}

// Add appends a breadcrumb stamped with the current time, evicting the
// oldest entry if the buffer is full. Messages are stored as-is; length
// limits are the collector's concern, not the trail's.
func (b *Buffer) Add(message string, category record.Category) {
	crumb := record.NewBreadcrumb(message, category)

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.crumbs) == b.capacity {
		copy(b.crumbs, b.crumbs[1:])
		b.crumbs = b.crumbs[:len(b.crumbs)-1]
	}
	b.crumbs = append(b.crumbs, crumb)
}

// Snapshot returns an independent copy of the current contents in
// arrival order. Later mutations of the buffer are never visible in a
// previously returned snapshot.
func (b *Buffer) Snapshot() []record.Breadcrumb {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]record.Breadcrumb, len(b.crumbs))
	copy(out, b.crumbs)
	return out
}

// Clear empties the buffer. Typically called at session boundaries.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.crumbs = b.crumbs[:0]
}

// Len reports the number of breadcrumbs currently retained.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.crumbs)
}
