package marshaller

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

const msgpackFormat = "msgpack"

// TypedMsgpackMarshaller is the default record marshaller.
// Struct fields are encoded by their `msgpack` tags, or by field name.
type TypedMsgpackMarshaller[T any] struct{}

// NewTypedMsgpackMarshaller creates a new TypedMsgpackMarshaller for the specified type.
func NewTypedMsgpackMarshaller[T any]() TypedMsgpackMarshaller[T] {
	return TypedMsgpackMarshaller[T]{}
}

// Name implements TypedMarshaller.
func (m TypedMsgpackMarshaller[T]) Name() string {
	return msgpackFormat
}

// Marshal serializes the typed data to msgpack.
func (m TypedMsgpackMarshaller[T]) Marshal(data T) ([]byte, error) {
	var buf bytes.Buffer

	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)

	if err := enc.Encode(data); err != nil {
		return nil, errMarshal(msgpackFormat, err)
	}

	return buf.Bytes(), nil
}

// Unmarshal deserializes msgpack data into a typed object.
func (m TypedMsgpackMarshaller[T]) Unmarshal(data []byte) (T, error) {
	var out T

	if err := msgpack.Unmarshal(data, &out); err != nil {
		return zero[T](), errUnmarshal(msgpackFormat, err)
	}

	return out, nil
}
