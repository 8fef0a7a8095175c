package watch_test

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarantool/go-typedkv/internal/telemetry"
	"github.com/tarantool/go-typedkv/key"
	"github.com/tarantool/go-typedkv/watch"
)

func newWatch(t *testing.T) *watch.Watch {
	t.Helper()

	w, err := watch.New(watch.WithLogger(zerolog.New(zerolog.NewTestWriter(t))))
	require.NoError(t, err)

	return w
}

func TestNew_InvalidCapacity(t *testing.T) {
	t.Parallel()

	w, err := watch.New(watch.WithChannelCapacity(0))
	require.ErrorIs(t, err, watch.ErrInvalidCapacity)
	assert.Nil(t, w)
}

func TestWatch_Primary(t *testing.T) {
	t.Parallel()

	w := newWatch(t)

	recv, id, err := w.Get().Primary(users(), uint64(1))
	require.NoError(t, err)
	assert.Equal(t, id, recv.ID())

	w.Ingest(1, []watch.ChangeRecord{insert(usersTable, snapshot(1, "test"))})
	w.Ingest(2, []watch.ChangeRecord{update(usersTable, snapshot(1, "test"), snapshot(1, "other"))})
	w.Ingest(3, []watch.ChangeRecord{remove(usersTable, snapshot(1, "other"))})

	for i, op := range []watch.Op{watch.OpInsert, watch.OpUpdate, watch.OpDelete} {
		ev, ok := receive(recv)
		require.True(t, ok)
		assert.Equal(t, op, ev.Op)
		assert.Equal(t, int64(i+1), ev.Revision)
		assert.Equal(t, usersTable, ev.Table)
	}

	require.NoError(t, w.Unwatch(id))

	w.Ingest(4, []watch.ChangeRecord{insert(usersTable, snapshot(1, "test"))})

	_, ok := <-recv.C
	assert.False(t, ok, "no event must be delivered after unwatch")
	require.ErrorIs(t, w.Unwatch(id), watch.ErrNotFound)
}

func TestWatch_Secondary(t *testing.T) {
	t.Parallel()

	w := newWatch(t)

	recv, _, err := w.Get().Secondary(users(), "name", "test")
	require.NoError(t, err)

	w.Ingest(1, []watch.ChangeRecord{insert(usersTable, snapshot(1, "other"))})
	assert.True(t, drained(recv), "insert of another name must not be delivered")

	w.Ingest(2, []watch.ChangeRecord{update(usersTable, snapshot(1, "other"), snapshot(1, "test"))})

	ev, ok := receive(recv)
	require.True(t, ok)
	assert.Equal(t, watch.OpUpdate, ev.Op)

	w.Ingest(3, []watch.ChangeRecord{update(usersTable, snapshot(1, "test"), snapshot(1, "moved"))})

	ev, ok = receive(recv)
	require.True(t, ok)
	assert.Equal(t, watch.OpUpdate, ev.Op)

	oldName, found := ev.Old.UnwrapOr(watch.Snapshot{}).SecondaryKey(nameIndex)
	require.True(t, found)
	assert.Equal(t, key.Key("test"), oldName)
}

func TestWatch_RegistrationErrors(t *testing.T) {
	t.Parallel()

	w := newWatch(t)

	_, _, err := w.Get().Primary(nil, uint64(1))
	require.ErrorIs(t, err, watch.ErrNilTable)

	_, _, err = w.Get().Secondary(users(), "missing", "test")
	require.ErrorIs(t, err, watch.ErrUnknownKey)

	_, _, err = w.Get().Secondary(nil, "name", "test")
	require.ErrorIs(t, err, watch.ErrNilTable)

	_, _, err = w.Get().Primary(orders(), struct{}{})
	require.ErrorIs(t, err, key.ErrUnsupportedType)

	var encErr *key.EncodingError
	require.ErrorAs(t, err, &encErr)

	_, _, err = w.Get().Primary(users(), 1)
	require.ErrorIs(t, err, key.ErrTypeMismatch)
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, "int", encErr.Type)

	_, _, err = w.Get().Secondary(users(), "name", []byte("test"))
	require.ErrorIs(t, err, key.ErrTypeMismatch)

	_, _, err = w.Get().Secondary(users(), "name", nil)
	require.ErrorIs(t, err, key.ErrNilKey)

	assert.Equal(t, 0, w.Registry().Len(), "failed registrations must leave the registry empty")
}

func TestWatch_EventsAreCloned(t *testing.T) {
	t.Parallel()

	w := newWatch(t)

	recv1, _, err := w.Get().Primary(users(), uint64(1))
	require.NoError(t, err)
	recv2, _, err := w.Get().Primary(users(), uint64(1))
	require.NoError(t, err)

	w.Ingest(1, []watch.ChangeRecord{insert(usersTable, snapshot(1, "test"))})

	ev1, ok := receive(recv1)
	require.True(t, ok)
	ev2, ok := receive(recv2)
	require.True(t, ok)

	ev1.New.UnwrapOr(watch.Snapshot{}).Value[0] = 'X'

	assert.Equal(t, []byte("test"), ev2.New.UnwrapOr(watch.Snapshot{}).Value)
}

func TestWatch_FullChannelDropsEvents(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	metrics, err := telemetry.New(registry, "test")
	require.NoError(t, err)

	w, err := watch.New(watch.WithChannelCapacity(1), watch.WithMetrics(metrics))
	require.NoError(t, err)

	slow, _, err := w.Get().Primary(users(), uint64(1))
	require.NoError(t, err)
	fast, _, err := w.Get().Primary(users(), uint64(1))
	require.NoError(t, err)

	for rev := range int64(3) {
		w.Ingest(rev+1, []watch.ChangeRecord{insert(usersTable, snapshot(1, "test"))})

		ev, ok := receive(fast)
		require.True(t, ok)
		assert.Equal(t, rev+1, ev.Revision)
	}

	ev, ok := receive(slow)
	require.True(t, ok)
	assert.Equal(t, int64(1), ev.Revision, "slow watcher keeps the first event")
	assert.True(t, drained(slow))

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.EventsDropped.(prometheus.Collector)), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(metrics.EventsDelivered.(prometheus.Collector)), 0)
	assert.Equal(t, 2, w.Registry().Len())
}

func TestWatch_ClosedReceiverIsPurged(t *testing.T) {
	t.Parallel()

	w := newWatch(t)

	recv, id, err := w.Get().Primary(users(), uint64(1))
	require.NoError(t, err)
	_, otherID, err := w.Get().Primary(orders(), uint64(1))
	require.NoError(t, err)

	recv.Close()

	w.Ingest(1, []watch.ChangeRecord{insert(ordersTable, snapshot(5, "test"))})
	_, found := w.Registry().Lookup(id)
	assert.True(t, found, "commit on another table must not purge")

	w.Ingest(2, []watch.ChangeRecord{insert(usersTable, snapshot(5, "test"))})
	_, found = w.Registry().Lookup(id)
	assert.False(t, found, "commit on the watched table must purge")

	_, found = w.Registry().Lookup(otherID)
	assert.True(t, found)
	require.ErrorIs(t, w.Unwatch(id), watch.ErrNotFound)
}

// consume registers a watcher and hands only its channel to a goroutine that
// counts the events until the channel is closed.
func consume(t *testing.T, w *watch.Watch) (watch.WatcherID, *atomic.Int64, <-chan struct{}) {
	t.Helper()

	recv, id, err := w.Get().Primary(users(), uint64(1))
	require.NoError(t, err)

	var (
		received atomic.Int64
		done     = make(chan struct{})
	)

	go func(events <-chan watch.Event) {
		defer close(done)

		for range events {
			received.Add(1)
		}
	}(recv.C)

	return id, &received, done
}

func TestWatch_ChannelOnlyConsumerSurvivesGC(t *testing.T) {
	t.Parallel()

	const commits = 5

	w := newWatch(t)
	id, received, done := consume(t, w)

	for rev := range int64(commits) {
		runtime.GC()
		w.Ingest(rev+1, []watch.ChangeRecord{insert(usersTable, snapshot(1, "test"))})
	}

	require.Eventually(t, func() bool {
		return received.Load() == commits
	}, time.Second, 5*time.Millisecond)

	_, found := w.Registry().Lookup(id)
	assert.True(t, found, "only Close or Unwatch releases a watcher")

	select {
	case <-done:
		t.Fatal("consumer loop ended without unwatch")
	default:
	}

	require.NoError(t, w.Unwatch(id))
	<-done
}

func TestWatch_ConcurrentOrdering(t *testing.T) {
	t.Parallel()

	const (
		watchers = 8
		commits  = 50
	)

	w, err := watch.New(watch.WithChannelCapacity(commits))
	require.NoError(t, err)

	receivers := make([]*watch.Receiver, 0, watchers)

	for range watchers {
		recv, _, err := w.Get().Primary(users(), uint64(1))
		require.NoError(t, err)

		receivers = append(receivers, recv)
	}

	var (
		mu  sync.Mutex
		rev int64
		wg  sync.WaitGroup
	)

	for range commits {
		wg.Add(1)

		go func() {
			defer wg.Done()

			mu.Lock()
			defer mu.Unlock()

			rev++
			w.Ingest(rev, []watch.ChangeRecord{update(usersTable, snapshot(1, "a"), snapshot(1, "b"))})
		}()
	}

	// Registrations and removals race with ingestion.
	for range watchers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			recv, id, err := w.Get().Primary(users(), uint64(1))
			assert.NoError(t, err)
			assert.NoError(t, w.Unwatch(id))

			for range recv.C {
			}
		}()
	}

	wg.Wait()

	for _, recv := range receivers {
		last := int64(0)

		for range commits {
			ev, ok := receive(recv)
			require.True(t, ok)
			require.Greater(t, ev.Revision, last, "events must follow commit order")

			last = ev.Revision
		}
	}
}
