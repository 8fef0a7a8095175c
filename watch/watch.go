package watch

import (
	"fmt"

	"github.com/tarantool/go-typedkv/internal/options"
	"github.com/tarantool/go-typedkv/key"
	"github.com/tarantool/go-typedkv/schema"
)

// Watch is the entry point of the watch engine.
type Watch struct {
	registry   *Registry
	matcher    *Matcher
	dispatcher *Dispatcher
}

// New creates a watch engine.
func New(wOpts ...options.Callback[watchOptions]) (*Watch, error) {
	opts, err := options.ApplyValidated(defaultOptions(), wOpts)
	if err != nil {
		return nil, err
	}

	registry := newRegistry(opts)

	return &Watch{
		registry:   registry,
		matcher:    NewMatcher(registry),
		dispatcher: NewDispatcher(registry),
	}, nil
}

// Getter registers watchers.
type Getter struct {
	watch *Watch
}

// Get returns the registration handle of the engine.
func (w *Watch) Get() Getter {
	return Getter{watch: w}
}

// Primary watches records of table whose primary key equals k.
// k must have the type of the primary key once that type is known to table.
func (g Getter) Primary(table schema.Table, k any) (*Receiver, WatcherID, error) {
	if table == nil {
		return nil, 0, ErrNilTable
	}

	target, err := key.EncodeAs(k, table.KeyType(schema.PrimaryIndex))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to watch %s: %w", table.Name(), err)
	}

	recv, id := g.watch.registry.Register(table.ID(), Primary(), target)

	return recv, id, nil
}

// Secondary watches records of table whose secondary key keyName equals k.
func (g Getter) Secondary(table schema.Table, keyName string, k any) (*Receiver, WatcherID, error) {
	if table == nil {
		return nil, 0, ErrNilTable
	}

	index, ok := table.Index(keyName)
	if !ok {
		return nil, 0, fmt.Errorf("%w %q of %s", ErrUnknownKey, keyName, table.Name())
	}

	target, err := key.EncodeAs(k, table.KeyType(index))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to watch %s.%s: %w", table.Name(), keyName, err)
	}

	recv, id := g.watch.registry.Register(table.ID(), Secondary(index), target)

	return recv, id, nil
}

// Unwatch removes the watcher id and closes its channel.
func (w *Watch) Unwatch(id WatcherID) error {
	return w.registry.Unwatch(id)
}

// Ingest notifies watchers of the records of one committed transaction.
// Calls must be made in commit order; Ingest never blocks on a slow consumer.
func (w *Watch) Ingest(revision int64, records []ChangeRecord) {
	if len(records) == 0 {
		return
	}

	w.registry.metrics.ChangeRecords.Add(float64(len(records)))

	matches, dead := w.matcher.MatchTransaction(revision, records)
	w.dispatcher.Purge(dead)
	w.dispatcher.Dispatch(matches)
}

// Registry returns the watcher registry of the engine.
func (w *Watch) Registry() *Registry {
	return w.registry
}
