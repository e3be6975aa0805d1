package trail

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldtrace/fieldtrace/internal/record"
)

func TestBufferFIFOEviction(t *testing.T) {
	const capacity = 5
	b := New(capacity)

	for i := 0; i < capacity+1; i++ {
		b.Add(fmt.Sprintf("crumb-%d", i), record.CategoryCustom)
	}

	snap := b.Snapshot()
	require.Len(t, snap, capacity)
	assert.Equal(t, "crumb-1", snap[0].Message, "oldest entry should have been evicted")
	assert.Equal(t, "crumb-5", snap[capacity-1].Message)
}

func TestBufferSnapshotIsIndependent(t *testing.T) {
	b := New(10)
	b.Add("first", record.CategoryNavigation)
	b.Add("second", record.CategoryNetwork)

	snap := b.Snapshot()
	require.Len(t, snap, 2)

	b.Add("third", record.CategoryError)

	assert.Len(t, snap, 2, "later Add must not be visible in an earlier snapshot")
	assert.Equal(t, "first", snap[0].Message)
	assert.Equal(t, "second", snap[1].Message)
	assert.Equal(t, 3, b.Len())
}

func TestBufferClear(t *testing.T) {
	b := New(10)
	b.Add("one", record.CategoryCustom)
	b.Add("two", record.CategoryCustom)

	b.Clear()

	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Snapshot())

	// Usable after clearing.
	b.Add("three", record.CategoryCustom)
	assert.Equal(t, 1, b.Len())
}

func TestBufferDefaultCapacity(t *testing.T) {
	b := New(0)
	for i := 0; i < DefaultCapacity*2; i++ {
		b.Add("x", record.CategoryCustom)
	}
	assert.Equal(t, DefaultCapacity, b.Len())
}

func TestBufferConcurrentAddAndSnapshot(t *testing.T) {
	b := New(32)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				b.Add(fmt.Sprintf("g%d-%d", g, i), record.CategoryCustom)
			}
		}(g)
	}
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				snap := b.Snapshot()
				if len(snap) > 32 {
					t.Errorf("snapshot larger than capacity: %d", len(snap))
					return
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 32, b.Len())
}
