package model

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/tarantool/go-typedkv/schema"
)

var (
	// ErrAlreadyDefined is returned when a table id or a Go type is registered twice.
	ErrAlreadyDefined = errors.New("model already defined")
	// ErrNotDefined is returned when no model is registered for a type or table id.
	ErrNotDefined = errors.New("model not defined")
)

// Registry keeps the models known to one database.
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]Definition
	byID   map[schema.TableID]Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		mu:     sync.RWMutex{},
		byType: make(map[reflect.Type]Definition),
		byID:   make(map[schema.TableID]Definition),
	}
}

// Register adds def. Table ids and Go types must be unique.
func (r *Registry) Register(def Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if other, ok := r.byID[def.ID()]; ok {
		return fmt.Errorf("%w: table id %s is used by %q", ErrAlreadyDefined, def.ID(), other.Name())
	}

	if other, ok := r.byType[def.GoType()]; ok {
		return fmt.Errorf("%w: type %s is stored in %q", ErrAlreadyDefined, def.GoType(), other.Name())
	}

	r.byID[def.ID()] = def
	r.byType[def.GoType()] = def

	return nil
}

// ByID returns the model of a table.
func (r *Registry) ByID(id schema.TableID) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.byID[id]

	return def, ok
}

// ByType returns the model registered for a Go type.
func (r *Registry) ByType(typ reflect.Type) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.byType[typ]

	return def, ok
}

// Lookup returns the typed model registered for T.
func Lookup[T any](r *Registry) (*Model[T], error) {
	def, ok := r.ByType(reflect.TypeFor[T]())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotDefined, reflect.TypeFor[T]())
	}

	typed, ok := def.(*Model[T])
	if !ok {
		return nil, fmt.Errorf("%w: %s is registered with a foreign definition", ErrNotDefined, reflect.TypeFor[T]())
	}

	return typed, nil
}
