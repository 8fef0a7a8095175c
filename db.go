package typedkv

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tarantool/go-typedkv/driver"
	"github.com/tarantool/go-typedkv/internal/options"
	"github.com/tarantool/go-typedkv/internal/telemetry"
	"github.com/tarantool/go-typedkv/key"
	"github.com/tarantool/go-typedkv/kv"
	"github.com/tarantool/go-typedkv/model"
	"github.com/tarantool/go-typedkv/namer"
	"github.com/tarantool/go-typedkv/schema"
	"github.com/tarantool/go-typedkv/watch"
)

// DB is a typed database over one storage driver.
//
// A DB only observes the commits made through it: watchers are not notified of
// writes made by other processes sharing the same backend.
type DB struct {
	driver  driver.Driver
	namer   *namer.DefaultNamer
	models  *model.Registry
	watch   *watch.Watch
	logger  zerolog.Logger
	metrics *telemetry.Metrics

	// commitMu orders commits so that the watch engine ingests them by revision.
	commitMu sync.Mutex

	closeOnce sync.Once
	closer    func() error
}

// New creates a database over drv.
func New(drv driver.Driver, dbOpts ...Option) (*DB, error) {
	if drv == nil {
		return nil, ErrNilDriver
	}

	opts, err := options.ApplyValidated(defaultOptions(), dbOpts)
	if err != nil {
		return nil, err
	}

	metrics := telemetry.Noop()
	if opts.registerer != nil {
		metrics, err = telemetry.New(opts.registerer, opts.namespace)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	engine, err := watch.New(
		watch.WithChannelCapacity(opts.channelCapacity),
		watch.WithLogger(opts.logger.With().Str("component", "watch").Logger()),
		watch.WithMetrics(metrics),
	)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return &DB{
		driver:    drv,
		namer:     namer.NewDefaultNamer(opts.prefix),
		models:    model.NewRegistry(),
		watch:     engine,
		logger:    opts.logger,
		metrics:   metrics,
		commitMu:  sync.Mutex{},
		closeOnce: sync.Once{},
		closer:    nil,
	}, nil
}

// Close releases the connections opened by Open. It is a no-op for databases
// created with New.
func (db *DB) Close() error {
	var err error

	db.closeOnce.Do(func() {
		if db.closer != nil {
			err = db.closer()
		}
	})

	return err
}

// Define registers the model of T. Table ids and record types must be unique.
func Define[T any](db *DB, m *model.Model[T]) error {
	if err := db.models.Register(m); err != nil {
		return fmt.Errorf("failed to define %s: %w", m.Name(), err)
	}

	db.logger.Debug().
		Str("table", m.Name()).
		Stringer("id", m.ID()).
		Strs("indexes", m.Indexes()).
		Msg("model defined")

	return nil
}

// Watch returns the watch engine of the database.
func (db *DB) Watch() *watch.Watch {
	return db.watch
}

// Unwatch removes a watcher and closes its channel. It returns watch.ErrNotFound
// for unknown or already removed watchers.
func (db *DB) Unwatch(id watch.WatcherID) error {
	return db.watch.Unwatch(id) //nolint:wrapcheck
}

// RW starts a read-write transaction. The transaction uses ctx for every storage
// call it makes.
func (db *DB) RW(ctx context.Context) *RwTx {
	return newRwTx(ctx, db)
}

// Get returns the record of T stored under primary key pk.
func Get[T any](ctx context.Context, db *DB, pk any) (T, error) {
	var zero T

	m, err := model.Lookup[T](db.models)
	if err != nil {
		return zero, err //nolint:wrapcheck
	}

	k, err := encodePrimary(m, pk)
	if err != nil {
		return zero, err
	}

	values, err := db.fetch(ctx, db.namer.RecordKey(m.ID(), k))
	if err != nil {
		return zero, err
	}

	if len(values) == 0 {
		return zero, errRecord(m, k, ErrNotFound)
	}

	return m.Decode(values[0].Value) //nolint:wrapcheck
}

// List returns every record of T ordered by primary key.
func List[T any](ctx context.Context, db *DB) ([]T, error) {
	m, err := model.Lookup[T](db.models)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	values, err := db.fetch(ctx, db.namer.TablePrefix(m.ID()))
	if err != nil {
		return nil, err
	}

	records := make([]T, 0, len(values))

	for _, value := range values {
		record, err := m.Decode(value.Value)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}

		records = append(records, record)
	}

	return records, nil
}

func (db *DB) fetch(ctx context.Context, storageKey []byte) ([]kv.KeyValue, error) {
	resp, err := db.driver.Execute(ctx, nil, []kv.Op{kv.Get(storageKey)})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", storageKey, err)
	}

	if len(resp.Results) == 0 {
		return nil, nil
	}

	return resp.Results[0].Values, nil
}

// definition resolves the model of a record value. Pointers to records are
// dereferenced.
func (db *DB) definition(value any) (model.Definition, any, error) {
	if value == nil {
		return nil, nil, fmt.Errorf("%w: nil record", ErrModelNotDefined)
	}

	if def, ok := db.models.ByType(reflect.TypeOf(value)); ok {
		return def, value, nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		if def, ok := db.models.ByType(rv.Type().Elem()); ok {
			return def, rv.Elem().Interface(), nil
		}
	}

	return nil, nil, fmt.Errorf("%w: %T", ErrModelNotDefined, value)
}

func encodePrimary(m model.Definition, pk any) (key.Key, error) {
	k, err := key.EncodeAs(pk, m.KeyType(schema.PrimaryIndex))
	if err != nil {
		return nil, fmt.Errorf("%w of %s: %w", model.ErrPrimaryKey, m.Name(), err)
	}

	if len(k) == 0 {
		return nil, errRecord(m, k, ErrEmptyKey)
	}

	return k, nil
}
