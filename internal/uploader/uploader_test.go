package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldtrace/fieldtrace/internal/logging"
	"github.com/fieldtrace/fieldtrace/internal/record"
	"github.com/fieldtrace/fieldtrace/internal/store"
)

// fakeTransport records submissions and fails on demand.
type fakeTransport struct {
	eventBatches []record.EventBatch
	crashBatches []record.CrashBatch
	failures     int // fail this many submissions before succeeding
	block        chan struct{}
}

func (f *fakeTransport) SubmitEvents(_ context.Context, batch record.EventBatch) error {
	if f.block != nil {
		<-f.block
	}
	if f.failures > 0 {
		f.failures--
		return errors.New("collector unavailable")
	}
	f.eventBatches = append(f.eventBatches, batch)
	return nil
}

func (f *fakeTransport) SubmitCrashes(_ context.Context, batch record.CrashBatch) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("collector unavailable")
	}
	f.crashBatches = append(f.crashBatches, batch)
	return nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(t.TempDir(), logging.NewNop().Logger)
}

// writeEventAt persists an event file with a fixed filename timestamp
// so ordering assertions are deterministic.
func writeEventAt(t *testing.T, st *store.Store, millis int64, name string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(st.EventsDir(), 0o750))
	ev := record.AnalyticsEvent{SessionID: "s", Name: name, Time: millis}
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	path := filepath.Join(st.EventsDir(), fmt.Sprintf("%d-%s.event", millis, name))
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestDrainEventsUploadsInChronologicalOrder(t *testing.T) {
	st := newTestStore(t)
	// Written out of order; drain must sort by filename timestamp.
	writeEventAt(t, st, 3000, "third")
	writeEventAt(t, st, 1000, "first")
	writeEventAt(t, st, 2000, "second")

	tr := &fakeTransport{}
	u := New(st, tr, nil, "sess-1", Config{}, logging.NewNop().Logger)

	sum := u.DrainEvents(context.Background())

	assert.True(t, sum.Complete)
	assert.Equal(t, 3, sum.Uploaded)
	require.Len(t, tr.eventBatches, 1)
	names := []string{}
	for _, e := range tr.eventBatches[0].Events {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"first", "second", "third"}, names)

	remaining, err := st.ListEventFiles()
	require.NoError(t, err)
	assert.Empty(t, remaining, "acknowledged records must be deleted")
}

func TestDrainEventsFailureLeavesFiles(t *testing.T) {
	st := newTestStore(t)
	paths := []string{
		writeEventAt(t, st, 1000, "a"),
		writeEventAt(t, st, 2000, "b"),
	}

	tr := &fakeTransport{failures: 1}
	u := New(st, tr, nil, "sess-1", Config{}, logging.NewNop().Logger)

	sum := u.DrainEvents(context.Background())

	assert.False(t, sum.Complete)
	assert.Zero(t, sum.Uploaded)
	for _, p := range paths {
		assert.FileExists(t, p, "rejected batch must stay queued")
	}

	// Next run retries from the same persisted state and succeeds.
	sum = u.DrainEvents(context.Background())
	assert.True(t, sum.Complete)
	assert.Equal(t, 2, sum.Uploaded)
}

func TestDrainEventsBatching(t *testing.T) {
	st := newTestStore(t)
	for i := 0; i < 5; i++ {
		writeEventAt(t, st, int64(1000+i), fmt.Sprintf("e%d", i))
	}

	tr := &fakeTransport{}
	u := New(st, tr, nil, "sess-1", Config{MaxBatchSize: 2}, logging.NewNop().Logger)

	sum := u.DrainEvents(context.Background())

	assert.True(t, sum.Complete)
	assert.Equal(t, 5, sum.Uploaded)
	require.Len(t, tr.eventBatches, 3)
	assert.Len(t, tr.eventBatches[0].Events, 2)
	assert.Len(t, tr.eventBatches[1].Events, 2)
	assert.Len(t, tr.eventBatches[2].Events, 1)
}

func TestDrainStopsAfterFailedBatch(t *testing.T) {
	st := newTestStore(t)
	for i := 0; i < 4; i++ {
		writeEventAt(t, st, int64(1000+i), fmt.Sprintf("e%d", i))
	}

	// First submission fails; the second batch must not be attempted so
	// the collector keeps observing records in order.
	tr := &fakeTransport{failures: 1}
	u := New(st, tr, nil, "sess-1", Config{MaxBatchSize: 2}, logging.NewNop().Logger)

	sum := u.DrainEvents(context.Background())

	assert.False(t, sum.Complete)
	assert.Zero(t, sum.Uploaded)
	assert.Empty(t, tr.eventBatches)
	remaining, err := st.ListEventFiles()
	require.NoError(t, err)
	assert.Len(t, remaining, 4)
}

func TestDrainSkipsCorruptFiles(t *testing.T) {
	st := newTestStore(t)
	writeEventAt(t, st, 1000, "good")
	require.NoError(t, os.MkdirAll(st.EventsDir(), 0o750))
	corrupt := filepath.Join(st.EventsDir(), "500-corrupt.event")
	require.NoError(t, os.WriteFile(corrupt, []byte("not json"), 0o600))

	tr := &fakeTransport{}
	u := New(st, tr, nil, "sess-1", Config{}, logging.NewNop().Logger)

	sum := u.DrainEvents(context.Background())

	assert.True(t, sum.Complete)
	assert.Equal(t, 1, sum.Uploaded)
	assert.Equal(t, 1, sum.Skipped)
	assert.Zero(t, sum.Pruned)
	assert.FileExists(t, corrupt, "without PruneCorrupt the file stays for inspection")
}

func TestDrainPrunesCorruptFiles(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, os.MkdirAll(st.EventsDir(), 0o750))
	corrupt := filepath.Join(st.EventsDir(), "500-corrupt.event")
	require.NoError(t, os.WriteFile(corrupt, []byte("not json"), 0o600))

	tr := &fakeTransport{}
	u := New(st, tr, nil, "sess-1", Config{PruneCorrupt: true}, logging.NewNop().Logger)

	sum := u.DrainEvents(context.Background())

	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 1, sum.Pruned)
	assert.NoFileExists(t, corrupt)
}

func TestDrainCrashes(t *testing.T) {
	st := newTestStore(t)
	cr := &record.CrashReport{
		SessionID:  "sess-1",
		Timestamp:  1700000000000,
		Thread:     "main",
		Stacktrace: "panic: boom",
		Fatal:      true,
	}
	require.NotEmpty(t, st.WriteCrashSync(cr))

	tr := &fakeTransport{}
	env := func() record.Environment { return record.Environment{OS: "linux", Arch: "arm64"} }
	u := New(st, tr, env, "sess-1", Config{}, logging.NewNop().Logger)

	sum := u.DrainCrashes(context.Background())

	assert.True(t, sum.Complete)
	assert.Equal(t, 1, sum.Uploaded)
	require.Len(t, tr.crashBatches, 1)
	batch := tr.crashBatches[0]
	assert.Equal(t, "sess-1", batch.SessionID)
	assert.Equal(t, "linux", batch.Environment.OS)
	require.Len(t, batch.Crashes, 1)
	assert.True(t, batch.Crashes[0].IsFatal)
	assert.Equal(t, "main", batch.Crashes[0].Thread)

	remaining, err := st.ListCrashFiles()
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestDrainEmptySpool(t *testing.T) {
	st := newTestStore(t)
	tr := &fakeTransport{}
	u := New(st, tr, nil, "sess-1", Config{}, logging.NewNop().Logger)

	sum := u.DrainEvents(context.Background())

	assert.True(t, sum.Complete)
	assert.Zero(t, sum.Uploaded)
	assert.Empty(t, tr.eventBatches, "no batch is submitted for an empty spool")
}

func TestOverlappingDrainIsRejected(t *testing.T) {
	st := newTestStore(t)
	writeEventAt(t, st, 1000, "a")

	tr := &fakeTransport{block: make(chan struct{})}
	u := New(st, tr, nil, "sess-1", Config{}, logging.NewNop().Logger)

	started := make(chan struct{})
	done := make(chan Summary, 1)
	go func() {
		close(started)
		done <- u.DrainEvents(context.Background())
	}()
	<-started

	// Wait for the first pass to be blocked inside the transport.
	require.Eventually(t, func() bool {
		if u.eventsMu.TryLock() {
			u.eventsMu.Unlock()
			return false
		}
		return true
	}, time.Second, 5*time.Millisecond)

	second := u.DrainEvents(context.Background())
	assert.False(t, second.Complete, "overlapping pass must not run")
	assert.Zero(t, second.Uploaded)

	close(tr.block)
	first := <-done
	assert.True(t, first.Complete)
	assert.Equal(t, 1, first.Uploaded)
}
