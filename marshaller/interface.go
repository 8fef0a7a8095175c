// Package marshaller converts typed records to and from the bytes stored by the
// storage drivers.
package marshaller

// TypedMarshaller is a generic interface for typed marshalling operations.
type TypedMarshaller[T any] interface {
	// Name returns the format name, e.g. "msgpack".
	Name() string
	Marshal(data T) ([]byte, error)
	Unmarshal(data []byte) (T, error)
}

func zero[T any]() T {
	var out T
	return out
}
