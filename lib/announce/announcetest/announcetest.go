// Package announcetest builds signed announce packets for tests.
package announcetest

import (
	"encoding/hex"
	"testing"

	"github.com/go-i2p/go-rns/lib/crypto"
	"github.com/go-i2p/go-rns/lib/destination"
	"github.com/go-i2p/go-rns/lib/identity"
	"github.com/go-i2p/go-rns/lib/packet"
	"github.com/stretchr/testify/require"
)

// NodeAnnounceHex is a nomadnetwork.node announce captured off a live TCP
// interface, with app data "g00n Cloud (Dallas)".
const NodeAnnounceHex = "0100234eed3d3775eb1e29cf5a3842961c2500b5d0a228394d29aacb127f5f9a791a6842f6b95c40a3af677adfa8f2dfa1fd728bfde75083edf2c1c2b004f6f7a60985e9aa858f62e688c91d80a7f6460fc26c213e6311bcec54ab4fdef00e34ed1100692683f7ce102e28266af7072b13debcb15ee35dc492a00b6d9a68ae36ba3416121c49b20a740d420d6c139a0594b73b140105620ea01ec61ce777aae180231a3a8692036730306e20436c6f7564202844616c6c617329"

const (
	NodeDestination = "234eed3d3775eb1e29cf5a3842961c25"
	NodeIdentity    = "e244d4f9843a6b4130b0fae976ca9866"
	NodePacketHash  = "cb7367940accf797cff2e3edb8a224dc220a32178223b4738e260890150d9bbd"
	NodeAppData     = "g00n Cloud (Dallas)"
)

// NodeAnnounce returns a fresh copy of the captured announce.
func NodeAnnounce(t testing.TB) []byte {
	t.Helper()
	raw, err := hex.DecodeString(NodeAnnounceHex)
	require.NoError(t, err)
	return raw
}

// Options tune Build.
type Options struct {
	AppData []byte
	Ratchet []byte // when set, the context flag is raised
	Context byte
	Hops    byte
}

// Build signs an announce for id under the dotted name and returns the raw
// HEADER_1 packet.
func Build(t testing.TB, id *identity.Identity, name string, opts Options) []byte {
	t.Helper()
	require.True(t, id.HasPrivateKey(), "announce identity needs a private key")

	destHash, err := destination.HashFromNameAndIdentity(name, id)
	require.NoError(t, err)
	appName, aspects := destination.AppAndAspectsFromName(name)
	nameHash, err := destination.NameHash(appName, aspects...)
	require.NoError(t, err)

	randomHash := make([]byte, crypto.RandomHashLength)
	for i := range randomHash {
		randomHash[i] = byte(i + 1)
	}

	signed := append([]byte(nil), destHash[:]...)
	signed = append(signed, id.PublicKey()...)
	signed = append(signed, nameHash...)
	signed = append(signed, randomHash...)
	signed = append(signed, opts.Ratchet...)
	signed = append(signed, opts.AppData...)
	sig, err := id.Sign(signed)
	require.NoError(t, err)

	flags := byte(packet.Announce)
	if len(opts.Ratchet) > 0 {
		require.Len(t, opts.Ratchet, crypto.RatchetSize)
		flags |= packet.FlagSet << 5
	}
	raw := []byte{flags, opts.Hops}
	raw = append(raw, destHash[:]...)
	raw = append(raw, opts.Context)
	raw = append(raw, id.PublicKey()...)
	raw = append(raw, nameHash...)
	raw = append(raw, randomHash...)
	raw = append(raw, opts.Ratchet...)
	raw = append(raw, sig...)
	return append(raw, opts.AppData...)
}

// NewIdentity generates an identity or fails the test.
func NewIdentity(t testing.TB) *identity.Identity {
	t.Helper()
	id, err := identity.Generate()
	require.NoError(t, err)
	return id
}
