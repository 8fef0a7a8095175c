// Package integrity protects stored records with digests and signatures.
//
// A Marshaller wraps the record marshaller of a model. The marshalled record is
// stored in an envelope together with one digest per configured hasher and one
// signature per configured signer. Decoding fails unless every configured
// hasher and verifier accepts the payload:
//
//	m := model.MustNew[Config](1, "config", Config.Name,
//		model.WithMarshaller(integrity.NewMarshaller(
//			marshaller.NewTypedYamlMarshaller[Config](),
//			integrity.WithHashers(hasher.NewSHA256Hasher()),
//			integrity.WithSignerVerifiers(crypto.NewRSAPSS(key)),
//		)),
//	)
package integrity

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tarantool/go-typedkv/crypto"
	"github.com/tarantool/go-typedkv/hasher"
	"github.com/tarantool/go-typedkv/internal/options"
	"github.com/tarantool/go-typedkv/marshaller"
)

type envelope struct {
	Payload    []byte            `msgpack:"payload"`
	Hashes     map[string][]byte `msgpack:"hashes,omitempty"`
	Signatures map[string][]byte `msgpack:"signatures,omitempty"`
}

type marshallerOptions struct {
	hashers   []hasher.Hasher
	signers   []crypto.Signer
	verifiers []crypto.Verifier
}

// WithHashers adds digests computed on Marshal and checked on Unmarshal.
func WithHashers(hashers ...hasher.Hasher) options.Callback[marshallerOptions] {
	return func(opts *marshallerOptions) {
		opts.hashers = append(opts.hashers, hashers...)
	}
}

// WithSigners adds signatures made on Marshal.
func WithSigners(signers ...crypto.Signer) options.Callback[marshallerOptions] {
	return func(opts *marshallerOptions) {
		opts.signers = append(opts.signers, signers...)
	}
}

// WithVerifiers adds signatures checked on Unmarshal.
func WithVerifiers(verifiers ...crypto.Verifier) options.Callback[marshallerOptions] {
	return func(opts *marshallerOptions) {
		opts.verifiers = append(opts.verifiers, verifiers...)
	}
}

// WithSignerVerifiers adds algorithms that both sign and verify.
func WithSignerVerifiers(svs ...crypto.SignerVerifier) options.Callback[marshallerOptions] {
	return func(opts *marshallerOptions) {
		for _, sv := range svs {
			opts.signers = append(opts.signers, sv)
			opts.verifiers = append(opts.verifiers, sv)
		}
	}
}

// Marshaller is a marshaller.TypedMarshaller that seals records.
type Marshaller[T any] struct {
	inner     marshaller.TypedMarshaller[T]
	hashers   []hasher.Hasher
	signers   []crypto.Signer
	verifiers []crypto.Verifier
}

var _ marshaller.TypedMarshaller[struct{}] = Marshaller[struct{}]{} //nolint:exhaustruct

// NewMarshaller wraps inner.
func NewMarshaller[T any](
	inner marshaller.TypedMarshaller[T],
	mOpts ...options.Callback[marshallerOptions],
) Marshaller[T] {
	opts := options.Apply(marshallerOptions{
		hashers:   nil,
		signers:   nil,
		verifiers: nil,
	}, mOpts)

	return Marshaller[T]{
		inner:     inner,
		hashers:   opts.hashers,
		signers:   opts.signers,
		verifiers: opts.verifiers,
	}
}

// Name implements marshaller.TypedMarshaller.
func (m Marshaller[T]) Name() string {
	return "integrity+" + m.inner.Name()
}

// Marshal implements marshaller.TypedMarshaller.
func (m Marshaller[T]) Marshal(data T) ([]byte, error) {
	payload, err := m.inner.Marshal(data)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	env := envelope{
		Payload:    payload,
		Hashes:     make(map[string][]byte, len(m.hashers)),
		Signatures: make(map[string][]byte, len(m.signers)),
	}

	for _, h := range m.hashers {
		digest, err := h.Hash(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to compute hash %q: %w", h.Name(), err)
		}

		env.Hashes[h.Name()] = digest
	}

	for _, s := range m.signers {
		signature, err := s.Sign(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to generate signature %q: %w", s.Name(), err)
		}

		env.Signatures[s.Name()] = signature
	}

	var buf bytes.Buffer

	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)

	if err := enc.Encode(env); err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}

	return buf.Bytes(), nil
}

// Unmarshal implements marshaller.TypedMarshaller. The record is decoded only
// after every configured check passed.
func (m Marshaller[T]) Unmarshal(data []byte) (T, error) {
	var (
		zero T
		env  envelope
	)

	if err := msgpack.Unmarshal(data, &env); err != nil {
		return zero, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}

	if env.Payload == nil {
		return zero, fmt.Errorf("%w: no payload", ErrMalformedEnvelope)
	}

	if err := m.validate(env); err != nil {
		return zero, err
	}

	return m.inner.Unmarshal(env.Payload) //nolint:wrapcheck
}

func (m Marshaller[T]) validate(env envelope) error {
	aggregated := &AggregatedError{parent: nil}

	for _, h := range m.hashers {
		stored, ok := env.Hashes[h.Name()]
		if !ok {
			aggregated.Append(ValidationError{Property: h.Name(), Err: ErrHashMissing})
			continue
		}

		digest, err := h.Hash(env.Payload)

		switch {
		case err != nil:
			aggregated.Append(ValidationError{Property: h.Name(), Err: err})
		case !bytes.Equal(digest, stored):
			aggregated.Append(errHashMismatch(h.Name(), stored, digest))
		}
	}

	for _, v := range m.verifiers {
		signature, ok := env.Signatures[v.Name()]
		if !ok {
			aggregated.Append(ValidationError{Property: v.Name(), Err: ErrSignatureMissing})
			continue
		}

		if err := v.Verify(env.Payload, signature); err != nil {
			aggregated.Append(ValidationError{
				Property: v.Name(),
				Err:      fmt.Errorf("%w: %w", ErrSignatureFailed, err),
			})
		}
	}

	return aggregated.Finalize()
}
