// Package crypto signs and verifies integrity protected records.
package crypto

// Signer signs record payloads.
type Signer interface {
	// Name identifies the algorithm in stored records.
	Name() string
	// Sign returns the signature of data.
	Sign(data []byte) ([]byte, error)
}

// Verifier checks record payload signatures.
type Verifier interface {
	// Name identifies the algorithm in stored records.
	Name() string
	// Verify checks that signature was made for data.
	Verify(data []byte, signature []byte) error
}

// SignerVerifier common interface.
type SignerVerifier interface {
	Signer
	Verifier
}
