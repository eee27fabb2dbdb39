// Package identity holds the key pairs that announces are signed with.
//
// An identity is an X25519 encryption key and an Ed25519 signing key. Only
// the public halves travel on the wire; the 64-byte public key is the
// encryption key followed by the signing key.
package identity

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"

	"github.com/go-i2p/crypto/rand"
	"github.com/go-i2p/go-rns/lib/common/data"
	"github.com/go-i2p/go-rns/lib/crypto"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

const (
	halfKey = crypto.KeySize / 2
)

var (
	ErrInvalidPublicKey  = errors.New("invalid identity public key")
	ErrInvalidPrivateKey = errors.New("invalid identity private key")
	ErrNoPrivateKey      = errors.New("identity holds no private key")
)

// Identity is a public key pair with an optional private half.
type Identity struct {
	encPub  []byte
	sigPub  []byte
	encPrv  []byte
	sigPrv  ed25519.PrivateKey
	hash    data.Hash
	hexHash string
}

// FromPublicKey loads an identity from a 64-byte public key.
func FromPublicKey(pub []byte) (*Identity, error) {
	if len(pub) != crypto.KeySize {
		return nil, oops.Wrapf(ErrInvalidPublicKey, "need %d bytes, got %d", crypto.KeySize, len(pub))
	}
	id := &Identity{
		encPub: append([]byte(nil), pub[:halfKey]...),
		sigPub: append([]byte(nil), pub[halfKey:]...),
	}
	id.updateHash()
	return id, nil
}

// FromPrivateKey loads an identity from a 64-byte private key: the X25519
// scalar followed by the Ed25519 seed.
func FromPrivateKey(prv []byte) (*Identity, error) {
	if len(prv) != crypto.KeySize {
		return nil, oops.Wrapf(ErrInvalidPrivateKey, "need %d bytes, got %d", crypto.KeySize, len(prv))
	}
	encPrv := append([]byte(nil), prv[:halfKey]...)
	encPub, err := crypto.Curve25519PrivateKey(encPrv).Public()
	if err != nil {
		return nil, oops.Wrapf(ErrInvalidPrivateKey, "derive encryption key: %v", err)
	}
	sigPrv := ed25519.NewKeyFromSeed(prv[halfKey:])
	id := &Identity{
		encPub: encPub,
		sigPub: append([]byte(nil), sigPrv.Public().(ed25519.PublicKey)...),
		encPrv: encPrv,
		sigPrv: sigPrv,
	}
	id.updateHash()
	return id, nil
}

// Generate creates an identity from fresh random key material.
func Generate() (*Identity, error) {
	prv := make([]byte, crypto.KeySize)
	if _, err := rand.Read(prv); err != nil {
		return nil, oops.Errorf("failed to generate identity key material: %w", err)
	}
	id, err := FromPrivateKey(prv)
	if err != nil {
		return nil, err
	}
	log.WithField("identity", id.hexHash).Debug("Generated new identity")
	return id, nil
}

func (id *Identity) updateHash() {
	h, _ := data.HashFromBytes(crypto.TruncatedHash(id.PublicKey()))
	id.hash = h
	id.hexHash = hex.EncodeToString(h[:])
}

// PublicKey returns the 64-byte public key.
func (id *Identity) PublicKey() []byte {
	pub := make([]byte, 0, crypto.KeySize)
	pub = append(pub, id.encPub...)
	return append(pub, id.sigPub...)
}

// SigningPublicKey returns the 32-byte Ed25519 public key.
func (id *Identity) SigningPublicKey() []byte {
	return append([]byte(nil), id.sigPub...)
}

// EncryptionPublicKey returns the 32-byte X25519 public key.
func (id *Identity) EncryptionPublicKey() []byte {
	return append([]byte(nil), id.encPub...)
}

// PrivateKey returns the 64-byte private key, or nil for public-only identities.
func (id *Identity) PrivateKey() []byte {
	if !id.HasPrivateKey() {
		return nil
	}
	prv := make([]byte, 0, crypto.KeySize)
	prv = append(prv, id.encPrv...)
	return append(prv, id.sigPrv.Seed()...)
}

func (id *Identity) HasPrivateKey() bool {
	return id.sigPrv != nil
}

// Hash returns the truncated hash of the public key.
func (id *Identity) Hash() data.Hash {
	return id.hash
}

func (id *Identity) HexHash() string {
	return id.hexHash
}

// Validate reports whether signature is a valid signature of message by
// this identity.
func (id *Identity) Validate(signature, message []byte) bool {
	return crypto.Verify(id.sigPub, signature, message)
}

// Sign signs message with the identity's signing key.
func (id *Identity) Sign(message []byte) ([]byte, error) {
	if !id.HasPrivateKey() {
		return nil, oops.Wrapf(ErrNoPrivateKey, "cannot sign for %s", id.hexHash)
	}
	return ed25519.Sign(id.sigPrv, message), nil
}

func (id *Identity) String() string {
	return crypto.PrettyHex(id.hash[:])
}
