package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sizes of the hashes and key material carried on the wire, in bytes.
const (
	HashLength          = 32
	TruncatedHashLength = 16
	NameHashLength      = 10
	RandomHashLength    = 10
	KeySize             = 64 // encryption public key followed by signing public key
	RatchetSize         = 32
	SignatureLength     = 64
)

// FullHash returns the SHA-256 sum of data.
func FullHash(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// TruncatedHash returns the first TruncatedHashLength bytes of FullHash(data).
func TruncatedHash(data []byte) []byte {
	return FullHash(data)[:TruncatedHashLength]
}

// PrettyHex renders b as <lowercase hex>, the form used in every log line
// that names a hash.
func PrettyHex(b []byte) string {
	return "<" + hex.EncodeToString(b) + ">"
}
