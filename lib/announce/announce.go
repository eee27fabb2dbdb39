// Package announce parses and validates received announce packets.
package announce

import (
	"time"

	"github.com/go-i2p/go-rns/lib/common/data"
	"github.com/go-i2p/go-rns/lib/crypto"
	"github.com/go-i2p/go-rns/lib/identity"
	"github.com/go-i2p/go-rns/lib/packet"
	"github.com/samber/oops"
)

// MinPayloadSize is the shortest announce payload without a ratchet.
const MinPayloadSize = crypto.KeySize + crypto.NameHashLength + crypto.RandomHashLength + crypto.SignatureLength

// Announce is the parsed payload of an announce packet.
//
//	public key   64
//	name hash    10
//	random hash  10
//	ratchet      32, only when the context flag is set
//	signature    64
//	app data     remainder
type Announce struct {
	DestinationHash data.Hash
	PublicKey       []byte
	NameHash        []byte
	RandomHash      []byte
	Ratchet         []byte
	Signature       []byte
	AppData         []byte

	PacketHash []byte
	Context    byte

	// Identity is built from PublicKey; its hash is derived once at parse time.
	Identity *identity.Identity
}

// Parse splits the payload of pkt into announce fields. It does not check
// the packet type or verify anything.
func Parse(pkt *packet.Packet) (*Announce, error) {
	payload := pkt.Data
	need := MinPayloadSize
	if pkt.ContextFlag == packet.FlagSet {
		need += crypto.RatchetSize
	}
	if len(payload) < need {
		return nil, oops.Wrapf(ErrMalformedAnnounce, "need %d payload bytes, got %d", need, len(payload))
	}

	a := &Announce{
		DestinationHash: pkt.DestinationHash,
		PacketHash:      pkt.PacketHash,
		Context:         pkt.Context,
	}
	i := 0
	take := func(n int) []byte {
		b := payload[i : i+n]
		i += n
		return b
	}
	a.PublicKey = take(crypto.KeySize)
	a.NameHash = take(crypto.NameHashLength)
	a.RandomHash = take(crypto.RandomHashLength)
	if pkt.ContextFlag == packet.FlagSet {
		a.Ratchet = take(crypto.RatchetSize)
	}
	a.Signature = take(crypto.SignatureLength)
	a.AppData = payload[i:]

	id, err := identity.FromPublicKey(a.PublicKey)
	if err != nil {
		return nil, oops.Wrapf(ErrMalformedAnnounce, "%v", err)
	}
	a.Identity = id
	return a, nil
}

// SignedData returns the bytes covered by the announce signature.
func (a *Announce) SignedData() []byte {
	n := data.HashLength + len(a.PublicKey) + len(a.NameHash) + len(a.RandomHash) + len(a.Ratchet) + len(a.AppData)
	signed := make([]byte, 0, n)
	signed = append(signed, a.DestinationHash[:]...)
	signed = append(signed, a.PublicKey...)
	signed = append(signed, a.NameHash...)
	signed = append(signed, a.RandomHash...)
	signed = append(signed, a.Ratchet...)
	return append(signed, a.AppData...)
}

// IsPathResponse reports whether the announce answers a path request.
func (a *Announce) IsPathResponse() bool {
	return a.Context == packet.PathResponse
}

// EmissionTime decodes the timestamp that reference nodes place in the last
// five bytes of the random hash. Nodes are free to put anything there, so
// the value is informational only.
func EmissionTime(randomHash []byte) time.Time {
	if len(randomHash) < 5 {
		return time.Time{}
	}
	var secs int64
	for _, b := range randomHash[len(randomHash)-5:] {
		secs = secs<<8 | int64(b)
	}
	return time.Unix(secs, 0).UTC()
}

func (a *Announce) String() string {
	return crypto.PrettyHex(a.DestinationHash[:])
}
