package crypto

import (
	"crypto/ed25519"
	"errors"
)

// These use errors.New (not oops.Errorf) so callers can match them with errors.Is().
var (
	ErrInvalidPublicKeySize = errors.New("failed to verify: invalid ed25519 public key size")
	ErrBadSignatureSize     = errors.New("failed to verify: bad ed25519 signature size")
	ErrInvalidSignature     = errors.New("failed to verify: invalid signature")
)

// Ed25519PublicKey is a raw 32 byte Ed25519 signing public key.
type Ed25519PublicKey []byte

// Ed25519Verifier checks pure Ed25519 signatures. The message is never
// pre-hashed.
type Ed25519Verifier struct {
	k []byte
}

func (k Ed25519PublicKey) NewVerifier() (*Ed25519Verifier, error) {
	if len(k) != ed25519.PublicKeySize {
		return nil, ErrInvalidPublicKeySize
	}
	return &Ed25519Verifier{k: k}, nil
}

func (k Ed25519PublicKey) Len() int {
	return len(k)
}

func (k Ed25519PublicKey) Bytes() []byte {
	return k
}

// Verify returns nil if sig is a valid signature of data.
func (v *Ed25519Verifier) Verify(data, sig []byte) error {
	if len(sig) != ed25519.SignatureSize {
		return ErrBadSignatureSize
	}
	if len(v.k) != ed25519.PublicKeySize {
		return ErrInvalidPublicKeySize
	}
	if !ed25519.Verify(v.k, data, sig) {
		return ErrInvalidSignature
	}
	return nil
}

// Verify reports whether signature is a valid Ed25519 signature of message
// under publicSigningKey. Keys or signatures of the wrong length, including
// empty ones, verify as false.
func Verify(publicSigningKey, signature, message []byte) bool {
	v, err := Ed25519PublicKey(publicSigningKey).NewVerifier()
	if err != nil {
		return false
	}
	return v.Verify(message, signature) == nil
}
