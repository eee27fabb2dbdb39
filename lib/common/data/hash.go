package data

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

/*
[Reticulum Truncated Hash]

Description
The first 16 bytes of a SHA-256 sum. Destination hashes, identity hashes
and transport ids on the wire all use this form. Must be compared using
constant-time operations where the value authenticates a peer.

Contents
16 bytes
*/

// HashLength is the length of a truncated hash in bytes.
const HashLength = 16

var ErrInvalidHashSize = errors.New("invalid hash size")

// Hash is a 16 byte truncated SHA-256 hash. It is comparable and may be
// used as a map key.
type Hash [HashLength]byte

// HashFromBytes copies b into a Hash. b must be exactly HashLength bytes.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashLength {
		return h, ErrInvalidHashSize
	}
	copy(h[:], b)
	return h, nil
}

// HashFromHex parses a hex rendered hash, as printed by String.
func HashFromHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	return HashFromBytes(b)
}

// Bytes returns a copy of the hash as a slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashLength)
	copy(b, h[:])
	return b
}

// Equal compares two hashes in constant time.
func (h Hash) Equal(other Hash) bool {
	return subtle.ConstantTimeCompare(h[:], other[:]) == 1
}

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	var zero Hash
	return h.Equal(zero)
}

// String renders the hash as lower-case hex.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}
