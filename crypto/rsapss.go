package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/tarantool/go-typedkv/hasher"
)

// ErrNoPrivateKey is returned by Sign of a verify-only RSAPSS.
var ErrNoPrivateKey = errors.New("private key is not set")

// RSAPSS signs SHA-256 digests with RSASSA-PSS.
type RSAPSS struct {
	publicKey  *rsa.PublicKey
	privateKey *rsa.PrivateKey
	hasher     hasher.Hasher
}

var _ SignerVerifier = RSAPSS{} //nolint:exhaustruct

// NewRSAPSS returns a signer and verifier for the key pair of privKey.
func NewRSAPSS(privKey *rsa.PrivateKey) RSAPSS {
	return RSAPSS{
		publicKey:  &privKey.PublicKey,
		privateKey: privKey,
		hasher:     hasher.NewSHA256Hasher(),
	}
}

// NewRSAPSSVerifier returns an RSAPSS that only verifies signatures.
func NewRSAPSSVerifier(pubKey *rsa.PublicKey) RSAPSS {
	return RSAPSS{
		publicKey:  pubKey,
		privateKey: nil,
		hasher:     hasher.NewSHA256Hasher(),
	}
}

// Name implements SignerVerifier.
func (r RSAPSS) Name() string {
	return "RSASSA-PSS"
}

func (r RSAPSS) options() *rsa.PSSOptions {
	return &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
		Hash:       crypto.SHA256,
	}
}

// Sign implements Signer.
func (r RSAPSS) Sign(data []byte) ([]byte, error) {
	if r.privateKey == nil {
		return nil, ErrNoPrivateKey
	}

	digest, err := r.hasher.Hash(data)
	if err != nil {
		return nil, fmt.Errorf("failed to get hash: %w", err)
	}

	signature, err := rsa.SignPSS(rand.Reader, r.privateKey, crypto.SHA256, digest, r.options())
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	return signature, nil
}

// Verify implements Verifier.
func (r RSAPSS) Verify(data []byte, signature []byte) error {
	digest, err := r.hasher.Hash(data)
	if err != nil {
		return fmt.Errorf("failed to get hash: %w", err)
	}

	if err := rsa.VerifyPSS(r.publicKey, crypto.SHA256, digest, signature, r.options()); err != nil {
		return fmt.Errorf("failed to verify: %w", err)
	}

	return nil
}
