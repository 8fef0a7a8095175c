// Package model associates a Go record type with its table identity, its primary
// key and its secondary key definitions.
package model

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/tarantool/go-typedkv/internal/options"
	"github.com/tarantool/go-typedkv/key"
	"github.com/tarantool/go-typedkv/marshaller"
	"github.com/tarantool/go-typedkv/schema"
)

var (
	// ErrInvalidModel is returned when a model definition is inconsistent.
	ErrInvalidModel = errors.New("invalid model")
	// ErrPrimaryKey is returned when the primary key of a record cannot be encoded.
	ErrPrimaryKey = errors.New("failed to encode primary key")
	// ErrSecondaryKey is returned when a secondary key of a record cannot be encoded.
	ErrSecondaryKey = errors.New("failed to encode secondary key")
	// ErrTypeMismatch is returned when a model is given a value of another type.
	ErrTypeMismatch = errors.New("value type does not match model")
)

// Keys holds the canonical key bytes of one record.
type Keys struct {
	Primary   key.Key
	Secondary map[schema.IndexID]key.Key
}

// Definition is the type-erased view of a model used by the storage engine.
type Definition interface {
	schema.Table
	// GoType returns the record type the model was defined for.
	GoType() reflect.Type
	// KeysOf decodes a stored record and returns its keys.
	KeysOf(raw []byte) (Keys, error)
	// EncodeValue is Encode for a value whose dynamic type is the record type.
	EncodeValue(value any) ([]byte, Keys, error)
}

type secondary[T any] struct {
	id      schema.IndexID
	name    string
	extract func(T) any
}

type modelOptions[T any] struct {
	secondaries []secondary[T]
	marshaller  marshaller.TypedMarshaller[T]
}

// WithSecondary declares a secondary key. The extractor may return nil (or a nil
// pointer) when the record has no value for this key. Secondary key ids are
// assigned in declaration order.
func WithSecondary[T any](name string, extract func(T) any) options.Callback[modelOptions[T]] {
	return func(opts *modelOptions[T]) {
		opts.secondaries = append(opts.secondaries, secondary[T]{
			id:      schema.IndexID(len(opts.secondaries) + 1),
			name:    name,
			extract: extract,
		})
	}
}

// WithMarshaller overrides the default msgpack record marshaller.
func WithMarshaller[T any](m marshaller.TypedMarshaller[T]) options.Callback[modelOptions[T]] {
	return func(opts *modelOptions[T]) {
		opts.marshaller = m
	}
}

// Model describes how records of type T are stored and keyed.
type Model[T any] struct {
	id          schema.TableID
	name        string
	primary     func(T) any
	secondaries []secondary[T]
	byName      map[string]schema.IndexID
	marshaller  marshaller.TypedMarshaller[T]
	// keyTypes holds the value type of every key whose type is known.
	keyTypes *xsync.MapOf[schema.IndexID, reflect.Type]
}

var _ Definition = (*Model[struct{}])(nil)

// New defines a model for T stored in table id.
func New[T any](
	id schema.TableID,
	name string,
	primary func(T) any,
	mOpts ...options.Callback[modelOptions[T]],
) (*Model[T], error) {
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: empty table name", ErrInvalidModel)
	case primary == nil:
		return nil, fmt.Errorf("%w: table %q has no primary key", ErrInvalidModel, name)
	}

	opts := options.Apply(modelOptions[T]{
		secondaries: nil,
		marshaller:  marshaller.NewTypedMsgpackMarshaller[T](),
	}, mOpts)

	byName := make(map[string]schema.IndexID, len(opts.secondaries))

	for _, sec := range opts.secondaries {
		switch {
		case sec.name == "":
			return nil, fmt.Errorf("%w: table %q has an unnamed secondary key", ErrInvalidModel, name)
		case sec.extract == nil:
			return nil, fmt.Errorf("%w: secondary key %q has no extractor", ErrInvalidModel, sec.name)
		}

		if _, dup := byName[sec.name]; dup {
			return nil, fmt.Errorf("%w: duplicate secondary key %q", ErrInvalidModel, sec.name)
		}

		byName[sec.name] = sec.id
	}

	m := &Model[T]{
		id:          id,
		name:        name,
		primary:     primary,
		secondaries: opts.secondaries,
		byName:      byName,
		marshaller:  opts.marshaller,
		keyTypes:    xsync.NewMapOf[schema.IndexID, reflect.Type](),
	}

	var zero T

	m.probe(schema.PrimaryIndex, func() any { return primary(zero) })

	for _, sec := range opts.secondaries {
		m.probe(sec.id, func() any { return sec.extract(zero) })
	}

	return m, nil
}

// probe learns the type of key index from the zero record. Extractors that panic
// or return nil for it are learned from the first encoded record instead.
func (m *Model[T]) probe(index schema.IndexID, extract func() any) {
	defer func() {
		_ = recover()
	}()

	m.learn(index, extract())
}

func (m *Model[T]) learn(index schema.IndexID, value any) {
	if t := key.TypeOf(value); t != nil {
		m.keyTypes.LoadOrStore(index, t)
	}
}

// MustNew is like New but panics on error.
func MustNew[T any](
	id schema.TableID,
	name string,
	primary func(T) any,
	mOpts ...options.Callback[modelOptions[T]],
) *Model[T] {
	m, err := New(id, name, primary, mOpts...)
	if err != nil {
		panic(err)
	}

	return m
}

// ID implements schema.Table.
func (m *Model[T]) ID() schema.TableID {
	return m.id
}

// Name implements schema.Table.
func (m *Model[T]) Name() string {
	return m.name
}

// Index implements schema.Table.
func (m *Model[T]) Index(name string) (schema.IndexID, bool) {
	id, ok := m.byName[name]
	return id, ok
}

// Indexes returns the secondary key names in declaration order.
func (m *Model[T]) Indexes() []string {
	names := make([]string, 0, len(m.secondaries))
	for _, sec := range m.secondaries {
		names = append(names, sec.name)
	}

	return names
}

// KeyType implements schema.Table.
func (m *Model[T]) KeyType(index schema.IndexID) reflect.Type {
	t, _ := m.keyTypes.Load(index)
	return t
}

// GoType implements Definition.
func (m *Model[T]) GoType() reflect.Type {
	return reflect.TypeFor[T]()
}

// PrimaryKey returns the canonical primary key of value.
func (m *Model[T]) PrimaryKey(value T) (key.Key, error) {
	raw := m.primary(value)

	pk, err := key.Encode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w of %s: %w", ErrPrimaryKey, m.name, err)
	}

	m.learn(schema.PrimaryIndex, raw)

	return pk, nil
}

// Keys returns all canonical keys of value.
func (m *Model[T]) Keys(value T) (Keys, error) {
	pk, err := m.PrimaryKey(value)
	if err != nil {
		return Keys{}, err
	}

	keys := Keys{
		Primary:   pk,
		Secondary: make(map[schema.IndexID]key.Key, len(m.secondaries)),
	}

	for _, sec := range m.secondaries {
		raw := sec.extract(value)
		if raw == nil {
			continue
		}

		sk, err := key.Encode(raw)
		if errors.Is(err, key.ErrNilKey) {
			continue
		} else if err != nil {
			return Keys{}, fmt.Errorf("%w %s.%s: %w", ErrSecondaryKey, m.name, sec.name, err)
		}

		keys.Secondary[sec.id] = sk
		m.learn(sec.id, raw)
	}

	return keys, nil
}

// Encode marshals value and computes its keys.
func (m *Model[T]) Encode(value T) ([]byte, Keys, error) {
	keys, err := m.Keys(value)
	if err != nil {
		return nil, Keys{}, err
	}

	raw, err := m.marshaller.Marshal(value)
	if err != nil {
		return nil, Keys{}, fmt.Errorf("failed to encode %s record: %w", m.name, err)
	}

	return raw, keys, nil
}

// EncodeValue implements Definition.
func (m *Model[T]) EncodeValue(value any) ([]byte, Keys, error) {
	typed, ok := value.(T)
	if !ok {
		return nil, Keys{}, fmt.Errorf("%w: %s stores %s, got %T", ErrTypeMismatch, m.name, m.GoType(), value)
	}

	return m.Encode(typed)
}

// Decode unmarshals a stored record.
func (m *Model[T]) Decode(raw []byte) (T, error) {
	value, err := m.marshaller.Unmarshal(raw)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to decode %s record: %w", m.name, err)
	}

	return value, nil
}

// KeysOf implements Definition.
func (m *Model[T]) KeysOf(raw []byte) (Keys, error) {
	value, err := m.Decode(raw)
	if err != nil {
		return Keys{}, err
	}

	return m.Keys(value)
}
