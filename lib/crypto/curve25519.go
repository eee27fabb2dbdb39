package crypto

import (
	"errors"

	"golang.org/x/crypto/curve25519"
)

const Curve25519KeySize = curve25519.ScalarSize

var ErrInvalidCurve25519Key = errors.New("invalid curve25519 private key")

// Curve25519PublicKey is a raw 32 byte X25519 public key.
type Curve25519PublicKey []byte

// Curve25519PrivateKey is a raw 32 byte X25519 scalar.
type Curve25519PrivateKey []byte

// Public derives the public key of k. Scalars of the wrong size and those
// that yield the all-zero point are rejected.
func (k Curve25519PrivateKey) Public() (Curve25519PublicKey, error) {
	if len(k) != Curve25519KeySize {
		return nil, ErrInvalidCurve25519Key
	}
	pub, err := curve25519.X25519(k, curve25519.Basepoint)
	if err != nil {
		return nil, errors.Join(ErrInvalidCurve25519Key, err)
	}
	return pub, nil
}

func (k Curve25519PublicKey) Len() int {
	return len(k)
}

func (k Curve25519PublicKey) Bytes() []byte {
	return k
}
