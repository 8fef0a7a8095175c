package watch

import (
	"iter"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"github.com/tarantool/go-typedkv/internal/telemetry"
	"github.com/tarantool/go-typedkv/key"
	"github.com/tarantool/go-typedkv/schema"
)

// WatcherID identifies a watcher. Ids are allocated in increasing order and are
// never reused within a process.
type WatcherID uint64

type sendResult int

const (
	sendDelivered sendResult = iota
	sendFull
	sendClosed
)

// Entry is one registered watcher. It is owned by the Registry and never mutated
// after registration, except for its delivery state.
type Entry struct {
	id       WatcherID
	table    schema.TableID
	selector Selector
	target   key.Key

	// mu orders sends against close, so a send never hits a closed channel.
	mu      sync.RWMutex
	ch      chan Event
	closed  bool
	dropped atomic.Bool
}

// ID returns the watcher id.
func (e *Entry) ID() WatcherID { return e.id }

// Table returns the watched table.
func (e *Entry) Table() schema.TableID { return e.table }

// Selector returns the watched key definition.
func (e *Entry) Selector() Selector { return e.selector }

// Target returns the watched key bytes. The slice must not be modified.
func (e *Entry) Target() key.Key { return e.target }

// Dropped reports whether the receiver of the entry was released.
func (e *Entry) Dropped() bool { return e.dropped.Load() }

func (e *Entry) send(ev Event) sendResult {
	if e.dropped.Load() {
		return sendClosed
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return sendClosed
	}

	select {
	case e.ch <- ev:
		return sendDelivered
	default:
		return sendFull
	}
}

func (e *Entry) close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}

// Receiver is the client side of a watcher.
//
// Events arrive on C. The channel is closed once the watcher is removed.
// The watcher stays registered until Close or Watch.Unwatch is called, whether or
// not the Receiver itself is still referenced. Consumers that only keep C keep
// receiving; a watcher that is abandoned without Close leaks its registry entry.
type Receiver struct {
	// C delivers the events of the watcher.
	C <-chan Event

	entry *Entry
}

// ID returns the watcher id.
func (r *Receiver) ID() WatcherID {
	return r.entry.id
}

// Close releases the watcher. The registry entry is purged by the next committed
// transaction touching the watched table; use Watch.Unwatch for an immediate removal.
func (r *Receiver) Close() {
	r.entry.dropped.Store(true)
}

// Registry is the concurrent set of active watchers, indexed by id and by table.
type Registry struct {
	nextID   atomic.Uint64
	byID     *xsync.MapOf[WatcherID, *Entry]
	byTable  *xsync.MapOf[schema.TableID, *xsync.MapOf[WatcherID, *Entry]]
	capacity int
	logger   zerolog.Logger
	metrics  *telemetry.Metrics
}

func newRegistry(opts watchOptions) *Registry {
	return &Registry{
		nextID:   atomic.Uint64{},
		byID:     xsync.NewMapOf[WatcherID, *Entry](),
		byTable:  xsync.NewMapOf[schema.TableID, *xsync.MapOf[WatcherID, *Entry]](),
		capacity: opts.channelCapacity,
		logger:   opts.logger,
		metrics:  opts.metrics,
	}
}

// Register creates a watcher on target bytes of the selected key of table.
// The returned id is present in the registry when Register returns.
func (r *Registry) Register(table schema.TableID, selector Selector, target key.Key) (*Receiver, WatcherID) {
	ch := make(chan Event, r.capacity)
	entry := &Entry{
		id:       WatcherID(r.nextID.Add(1)),
		table:    table,
		selector: selector,
		target:   target,
		mu:       sync.RWMutex{},
		ch:       ch,
		closed:   false,
		dropped:  atomic.Bool{},
	}

	r.byTable.Compute(table, func(
		entries *xsync.MapOf[WatcherID, *Entry], loaded bool,
	) (*xsync.MapOf[WatcherID, *Entry], bool) {
		if !loaded {
			entries = xsync.NewMapOf[WatcherID, *Entry]()
		}

		entries.Store(entry.id, entry)

		return entries, false
	})
	r.byID.Store(entry.id, entry)

	r.metrics.WatchersRegistered.Inc()
	r.metrics.WatchersActive.Inc()
	r.logger.Debug().
		Uint64("watcher_id", uint64(entry.id)).
		Stringer("table", table).
		Stringer("selector", selector).
		Msg("watcher registered")

	return &Receiver{C: ch, entry: entry}, entry.id
}

// Unwatch removes the watcher id and closes its channel.
// It returns a *NotFoundError if the watcher does not exist.
func (r *Registry) Unwatch(id WatcherID) error {
	if !r.remove(id, telemetry.RemovedUnwatch) {
		return errNotFound(id)
	}

	return nil
}

// RemoveDead removes a watcher whose receiver was closed. It is a no-op for
// an unknown id.
func (r *Registry) RemoveDead(id WatcherID) {
	r.remove(id, telemetry.RemovedDead)
}

func (r *Registry) remove(id WatcherID, reason string) bool {
	entry, ok := r.byID.LoadAndDelete(id)
	if !ok {
		return false
	}

	r.byTable.Compute(entry.table, func(
		entries *xsync.MapOf[WatcherID, *Entry], loaded bool,
	) (*xsync.MapOf[WatcherID, *Entry], bool) {
		if !loaded {
			return entries, true
		}

		entries.Delete(id)

		return entries, entries.Size() == 0
	})

	entry.close()

	r.metrics.WatchersRemoved.With(reason).Inc()
	r.metrics.WatchersActive.Dec()
	r.logger.Debug().
		Uint64("watcher_id", uint64(id)).
		Str("reason", reason).
		Msg("watcher removed")

	return true
}

// Lookup returns the entry of watcher id.
func (r *Registry) Lookup(id WatcherID) (*Entry, bool) {
	return r.byID.Load(id)
}

// EntriesFor lazily yields the entries registered for table. Entries added or
// removed during the iteration may or may not be observed.
func (r *Registry) EntriesFor(table schema.TableID) iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		entries, ok := r.byTable.Load(table)
		if !ok {
			return
		}

		entries.Range(func(_ WatcherID, entry *Entry) bool {
			return yield(entry)
		})
	}
}

// Len returns the number of registered watchers.
func (r *Registry) Len() int {
	return r.byID.Size()
}
