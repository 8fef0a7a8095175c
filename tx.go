package typedkv

import (
	"context"
	"errors"
	"fmt"

	"github.com/tarantool/go-option"

	"github.com/tarantool/go-typedkv/internal/telemetry"
	"github.com/tarantool/go-typedkv/key"
	"github.com/tarantool/go-typedkv/kv"
	"github.com/tarantool/go-typedkv/model"
	"github.com/tarantool/go-typedkv/namer"
	"github.com/tarantool/go-typedkv/watch"
)

var errUnknownWrite = errors.New("unknown write kind")

type writeKind uint8

const (
	writeInsert writeKind = iota + 1
	writeUpdate
	writeUpsert
	writeRemove
)

type stagedWrite struct {
	kind writeKind
	def  model.Definition
	// from is the primary key of the replaced record of an Update.
	from option.Generic[key.Key]
	// primary is the key the write applies to. Remove leaves value and keys empty.
	primary key.Key
	value   []byte
	keys    model.Keys
}

// RwTx is a read-write transaction. Writes are staged and validated against the
// stored records on Commit, then applied atomically. A RwTx must not be used from
// several goroutines at once.
type RwTx struct {
	db     *DB
	ctx    context.Context //nolint:containedctx // Context is stored for transaction execution
	writes []stagedWrite
	done   bool
}

func newRwTx(ctx context.Context, db *DB) *RwTx {
	return &RwTx{
		db:     db,
		ctx:    ctx,
		writes: nil,
		done:   false,
	}
}

// Insert stages a new record. Commit fails with ErrAlreadyExists when a record
// with the same primary key is stored.
func (tx *RwTx) Insert(value any) error {
	return tx.stage(writeInsert, value)
}

// Upsert stages a record that is inserted or replaces the stored one.
func (tx *RwTx) Upsert(value any) error {
	return tx.stage(writeUpsert, value)
}

// Remove stages the removal of the record with the primary key of value.
// Commit fails with ErrNotFound when no such record is stored.
func (tx *RwTx) Remove(value any) error {
	return tx.stage(writeRemove, value)
}

// Update stages the replacement of old by updated. Commit fails with ErrNotFound
// when old is not stored, and with ErrAlreadyExists when updated has another
// primary key that is already taken.
func (tx *RwTx) Update(old, updated any) error {
	if tx.done {
		return ErrTxDone
	}

	def, oldValue, err := tx.db.definition(old)
	if err != nil {
		return err
	}

	_, oldKeys, err := def.EncodeValue(oldValue)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if len(oldKeys.Primary) == 0 {
		return errRecord(def, oldKeys.Primary, ErrEmptyKey)
	}

	write, err := tx.encode(writeUpdate, updated)
	if err != nil {
		return err
	}

	if write.def != def {
		return fmt.Errorf("%w: update of %s with a %s record", model.ErrTypeMismatch, def.Name(), write.def.Name())
	}

	write.from = option.Some(oldKeys.Primary)
	tx.writes = append(tx.writes, write)

	return nil
}

// Abort discards the staged writes.
func (tx *RwTx) Abort() error {
	if tx.done {
		return ErrTxDone
	}

	tx.done = true
	tx.writes = nil

	return nil
}

func (tx *RwTx) stage(kind writeKind, value any) error {
	if tx.done {
		return ErrTxDone
	}

	write, err := tx.encode(kind, value)
	if err != nil {
		return err
	}

	tx.writes = append(tx.writes, write)

	return nil
}

func (tx *RwTx) encode(kind writeKind, value any) (stagedWrite, error) {
	def, record, err := tx.db.definition(value)
	if err != nil {
		return stagedWrite{}, err
	}

	raw, keys, err := def.EncodeValue(record)
	if err != nil {
		return stagedWrite{}, err //nolint:wrapcheck
	}

	if len(keys.Primary) == 0 {
		return stagedWrite{}, errRecord(def, keys.Primary, ErrEmptyKey)
	}

	write := stagedWrite{
		kind:    kind,
		def:     def,
		from:    option.None[key.Key](),
		primary: keys.Primary,
		value:   raw,
		keys:    keys,
	}

	if kind == writeRemove {
		write.value = nil
		write.keys = model.Keys{Primary: keys.Primary, Secondary: nil}
	}

	return write, nil
}

// Commit applies the staged writes atomically and notifies the watchers of the
// changed records. Nothing is written and no event is emitted when Commit fails,
// or when the writes cancel out, like an Insert followed by a Remove of the same key.
func (tx *RwTx) Commit() error {
	if tx.done {
		return ErrTxDone
	}

	tx.done = true

	writes := tx.writes
	tx.writes = nil

	if len(writes) == 0 {
		return nil
	}

	db := tx.db

	db.commitMu.Lock()
	defer db.commitMu.Unlock()

	state, err := tx.read(writes)
	if err != nil {
		db.metrics.Commits.With(telemetry.CommitError).Inc()
		return err
	}

	records, err := state.apply(writes)
	if err != nil {
		db.metrics.Commits.With(telemetry.CommitRejected).Inc()
		db.logger.Debug().Err(err).Msg("transaction rejected")
		return err
	}

	conds, ops := state.plan()

	resp, err := db.driver.Execute(tx.ctx, conds, ops)
	switch {
	case err != nil:
		db.metrics.Commits.With(telemetry.CommitError).Inc()
		db.logger.Warn().Err(err).Int("writes", len(writes)).Msg("commit failed")

		return fmt.Errorf("failed to commit: %w", err)
	case !resp.Succeeded:
		db.metrics.Commits.With(telemetry.CommitConflict).Inc()
		db.logger.Warn().Int64("revision", resp.Revision).Msg("commit conflict")

		return ErrConflict
	}

	db.metrics.Commits.With(telemetry.CommitSuccess).Inc()

	// Writes that cancel out leave storage and its revision untouched.
	if len(ops) == 0 {
		db.logger.Debug().Int("records", len(records)).Msg("transaction changed nothing")
		return nil
	}

	db.logger.Debug().
		Int64("revision", resp.Revision).
		Int("records", len(records)).
		Msg("transaction committed")

	db.watch.Ingest(resp.Revision, records)

	return nil
}

// slot is the state of one storage key during a commit.
type slot struct {
	storageKey []byte
	def        model.Definition
	primary    key.Key

	// Stored state as read before the commit.
	existed  bool
	revision int64

	exists bool
	value  []byte
	dirty  bool
}

type commitState struct {
	namer *namer.DefaultNamer
	slots map[string]*slot
	order []*slot
}

// read loads the stored state of every key touched by writes in one driver call.
func (tx *RwTx) read(writes []stagedWrite) (*commitState, error) {
	state := &commitState{
		namer: tx.db.namer,
		slots: make(map[string]*slot),
		order: nil,
	}

	touch := func(def model.Definition, primary key.Key) {
		storageKey := state.namer.RecordKey(def.ID(), primary)
		if _, ok := state.slots[string(storageKey)]; ok {
			return
		}

		s := &slot{
			storageKey: storageKey,
			def:        def,
			primary:    primary,
			existed:    false,
			revision:   0,
			exists:     false,
			value:      nil,
			dirty:      false,
		}
		state.slots[string(storageKey)] = s
		state.order = append(state.order, s)
	}

	for _, write := range writes {
		if write.from.IsSome() {
			touch(write.def, write.from.UnwrapOr(nil))
		}

		touch(write.def, write.primary)
	}

	ops := make([]kv.Op, 0, len(state.order))
	for _, s := range state.order {
		ops = append(ops, kv.Get(s.storageKey))
	}

	resp, err := tx.db.driver.Execute(tx.ctx, nil, ops)
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction keys: %w", err)
	}

	for i, s := range state.order {
		if i >= len(resp.Results) || len(resp.Results[i].Values) == 0 {
			continue
		}

		stored := resp.Results[i].Values[0]
		s.existed, s.exists = true, true
		s.revision = stored.ModRevision
		s.value = stored.Value
	}

	return state, nil
}

func (s *commitState) lookup(write stagedWrite, primary key.Key) *slot {
	return s.slots[string(s.namer.RecordKey(write.def.ID(), primary))]
}

func (sl *slot) put(value []byte) {
	sl.exists = true
	sl.value = value
	sl.dirty = true
}

func (sl *slot) clear() {
	sl.exists = false
	sl.value = nil
	sl.dirty = true
}

// snapshot returns the keyed state of the record currently held by the slot.
func (sl *slot) snapshot() (watch.Snapshot, error) {
	keys, err := sl.def.KeysOf(sl.value)
	if err != nil {
		return watch.Snapshot{}, errRecord(sl.def, sl.primary, err)
	}

	return watch.Snapshot{
		Primary:   keys.Primary,
		Secondary: keys.Secondary,
		Value:     sl.value,
	}, nil
}

func newSnapshot(write stagedWrite) watch.Snapshot {
	return watch.Snapshot{
		Primary:   write.keys.Primary,
		Secondary: write.keys.Secondary,
		Value:     write.value,
	}
}

// apply validates writes in order against the state and returns the change
// records of the transaction.
func (s *commitState) apply(writes []stagedWrite) ([]watch.ChangeRecord, error) {
	records := make([]watch.ChangeRecord, 0, len(writes))

	for _, write := range writes {
		target := s.lookup(write, write.primary)

		switch write.kind {
		case writeInsert:
			if target.exists {
				return nil, errRecord(write.def, write.primary, ErrAlreadyExists)
			}

			target.put(write.value)
			records = append(records, insertRecord(write))
		case writeUpsert:
			if !target.exists {
				target.put(write.value)
				records = append(records, insertRecord(write))

				continue
			}

			record, err := replace(target, target, write)
			if err != nil {
				return nil, err
			}

			records = append(records, record)
		case writeUpdate:
			source := s.lookup(write, write.from.UnwrapOr(write.primary))
			if !source.exists {
				return nil, errRecord(write.def, source.primary, ErrNotFound)
			}

			if source != target && target.exists {
				return nil, errRecord(write.def, write.primary, ErrAlreadyExists)
			}

			record, err := replace(source, target, write)
			if err != nil {
				return nil, err
			}

			records = append(records, record)
		case writeRemove:
			if !target.exists {
				return nil, errRecord(write.def, write.primary, ErrNotFound)
			}

			old, err := target.snapshot()
			if err != nil {
				return nil, err
			}

			target.clear()
			records = append(records, watch.ChangeRecord{
				Table: write.def.ID(),
				Op:    watch.OpDelete,
				Old:   option.Some(old),
				New:   option.None[watch.Snapshot](),
			})
		default:
			return nil, errUnknownWrite
		}
	}

	return records, nil
}

func insertRecord(write stagedWrite) watch.ChangeRecord {
	return watch.ChangeRecord{
		Table: write.def.ID(),
		Op:    watch.OpInsert,
		Old:   option.None[watch.Snapshot](),
		New:   option.Some(newSnapshot(write)),
	}
}

// replace moves the record of source to target with the value of write.
func replace(source, target *slot, write stagedWrite) (watch.ChangeRecord, error) {
	old, err := source.snapshot()
	if err != nil {
		return watch.ChangeRecord{}, err
	}

	if source != target {
		source.clear()
	}

	target.put(write.value)

	return watch.ChangeRecord{
		Table: write.def.ID(),
		Op:    watch.OpUpdate,
		Old:   option.Some(old),
		New:   option.Some(newSnapshot(write)),
	}, nil
}

// plan returns the conditions guarding every touched key against concurrent
// writers and the operations writing the final state.
func (s *commitState) plan() ([]kv.Cond, []kv.Op) {
	conds := make([]kv.Cond, 0, len(s.order))
	ops := make([]kv.Op, 0, len(s.order))

	for _, sl := range s.order {
		if sl.existed {
			conds = append(conds, kv.RevisionEqual(sl.storageKey, sl.revision))
		} else {
			conds = append(conds, kv.Absent(sl.storageKey))
		}

		switch {
		case !sl.dirty:
		case sl.exists:
			ops = append(ops, kv.Put(sl.storageKey, sl.value))
		case sl.existed:
			ops = append(ops, kv.Delete(sl.storageKey))
		}
	}

	return conds, ops
}
