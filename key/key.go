// Package key turns typed input values into canonical key bytes.
//
// The encoding is order preserving for values of the same Go type and is used both
// when records are written and when a watch registers its target, so key equality is
// always decided on raw bytes.
package key

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"reflect"
)

// Key is a canonical, comparable key byte sequence.
type Key []byte

// Equal reports whether two keys are byte-for-byte identical.
func (k Key) Equal(other Key) bool {
	return bytes.Equal(k, other)
}

// String returns the hex representation of the key.
func (k Key) String() string {
	return hex.EncodeToString(k)
}

// Encoder is implemented by custom types that know their own canonical key form.
type Encoder interface {
	EncodeKey() ([]byte, error)
}

const signBit = 1 << 63

// Encode normalizes v into canonical key bytes.
//
// Unsigned integers are encoded big-endian with the width of their type, signed
// integers are encoded the same way with the sign bit flipped, floats use the
// IEEE-754 ordering transform. Strings and byte slices are used as is.
// Pointers are dereferenced. The width of the type is part of the key: uint64(1)
// and uint32(1) produce different keys.
func Encode(v any) (Key, error) {
	switch val := v.(type) {
	case nil:
		return nil, errEncoding(v, ErrNilKey)
	case Key:
		return bytes.Clone(val), nil
	case Encoder:
		raw, err := val.EncodeKey()
		if err != nil {
			return nil, errEncoding(v, err)
		}

		return raw, nil
	case []byte:
		return bytes.Clone(val), nil
	case string:
		return Key(val), nil
	case bool:
		if val {
			return Key{1}, nil
		}

		return Key{0}, nil
	case uint8:
		return Key{val}, nil
	case uint16:
		return binary.BigEndian.AppendUint16(nil, val), nil
	case uint32:
		return binary.BigEndian.AppendUint32(nil, val), nil
	case uint64:
		return binary.BigEndian.AppendUint64(nil, val), nil
	case uint:
		return binary.BigEndian.AppendUint64(nil, uint64(val)), nil
	case int8:
		return Key{uint8(val) ^ 0x80}, nil
	case int16:
		return binary.BigEndian.AppendUint16(nil, uint16(val)^0x8000), nil
	case int32:
		return binary.BigEndian.AppendUint32(nil, uint32(val)^0x80000000), nil
	case int64:
		return binary.BigEndian.AppendUint64(nil, uint64(val)^signBit), nil
	case int:
		return binary.BigEndian.AppendUint64(nil, uint64(val)^signBit), nil
	case float32:
		return binary.BigEndian.AppendUint32(nil, orderFloat32(val)), nil
	case float64:
		return binary.BigEndian.AppendUint64(nil, orderFloat64(val)), nil
	}

	return encodeReflect(v)
}

// TypeOf returns the type a key value is encoded as: the type of v with pointers
// dereferenced. It returns nil for nil.
func TypeOf(v any) reflect.Type {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t
}

// EncodeAs is Encode for a key whose values have type want. Values of another
// type are rejected with ErrTypeMismatch, since they would never be equal by
// bytes to a stored key. A nil want accepts any type.
func EncodeAs(v any, want reflect.Type) (Key, error) {
	if got := TypeOf(v); want != nil && got != nil && got != want {
		return nil, errEncoding(v, fmt.Errorf("%w: want %s", ErrTypeMismatch, want))
	}

	return Encode(v)
}

// MustEncode is like Encode but panics on error. Intended for constants in tests
// and examples.
func MustEncode(v any) Key {
	k, err := Encode(v)
	if err != nil {
		panic(err)
	}

	return k
}

func orderFloat32(f float32) uint32 {
	bits := math.Float32bits(f)
	if bits&(1<<31) != 0 {
		return ^bits
	}

	return bits | 1<<31
}

func orderFloat64(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&signBit != 0 {
		return ^bits
	}

	return bits | signBit
}

// encodeReflect handles pointers and named types whose underlying kind is supported.
func encodeReflect(v any) (Key, error) {
	rv := reflect.ValueOf(v)

	switch rv.Kind() { //nolint:exhaustive
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, errEncoding(v, ErrNilKey)
		}

		return Encode(rv.Elem().Interface())
	case reflect.String:
		return Key(rv.String()), nil
	case reflect.Bool:
		return Encode(rv.Bool())
	case reflect.Uint8:
		return Encode(uint8(rv.Uint()))
	case reflect.Uint16:
		return Encode(uint16(rv.Uint()))
	case reflect.Uint32:
		return Encode(uint32(rv.Uint()))
	case reflect.Uint64, reflect.Uint:
		return Encode(rv.Uint())
	case reflect.Int8:
		return Encode(int8(rv.Int()))
	case reflect.Int16:
		return Encode(int16(rv.Int()))
	case reflect.Int32:
		return Encode(int32(rv.Int()))
	case reflect.Int64, reflect.Int:
		return Encode(rv.Int())
	case reflect.Float32:
		return Encode(float32(rv.Float()))
	case reflect.Float64:
		return Encode(rv.Float())
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return Key(bytes.Clone(rv.Bytes())), nil
		}
	}

	return nil, errEncoding(v, ErrUnsupportedType)
}
