package announce

import (
	"encoding/hex"
	"testing"

	"github.com/go-i2p/go-rns/lib/announce/announcetest"
	"github.com/go-i2p/go-rns/lib/netdb"
	"github.com/go-i2p/go-rns/lib/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateNodeAnnounce(t *testing.T) {
	known := netdb.NewKnownDestinations()
	v := NewValidator(known)

	a, err := v.Validate(unpack(t, announcetest.NodeAnnounce(t)))
	require.NoError(t, err)
	assert.Equal(t, announcetest.NodeDestination, a.DestinationHash.String())

	rec, ok := known.Recall(a.DestinationHash)
	require.True(t, ok)
	assert.Equal(t, announcetest.NodePacketHash, hex.EncodeToString(rec.PacketHash))
	assert.Equal(t, a.PublicKey, rec.PublicKey)
	assert.Equal(t, announcetest.NodeAppData, string(rec.AppData))
}

func TestValidateRelayedAnnounce(t *testing.T) {
	raw := announcetest.NodeAnnounce(t)
	relayed := append([]byte{0x41, 0x04}, make([]byte, 16)...)
	relayed = append(relayed, raw[2:]...)

	known := netdb.NewKnownDestinations()
	a, err := NewValidator(known).Validate(unpack(t, relayed))
	require.NoError(t, err)
	assert.Equal(t, announcetest.NodePacketHash, hex.EncodeToString(a.PacketHash))
}

func TestValidatePathResponse(t *testing.T) {
	raw := announcetest.NodeAnnounce(t)
	raw[18] = packet.PathResponse

	a, err := NewValidator(netdb.NewKnownDestinations()).Validate(unpack(t, raw))
	require.NoError(t, err)
	assert.True(t, a.IsPathResponse())
}

func TestValidateIsIdempotent(t *testing.T) {
	known := netdb.NewKnownDestinations()
	v := NewValidator(known)

	_, err := v.Validate(unpack(t, announcetest.NodeAnnounce(t)))
	require.NoError(t, err)
	once := known.Snapshot()

	_, err = v.Validate(unpack(t, announcetest.NodeAnnounce(t)))
	require.NoError(t, err)
	assert.Equal(t, once, known.Snapshot())
}

func TestValidateGeneratedAnnounces(t *testing.T) {
	id := announcetest.NewIdentity(t)
	ratchet := make([]byte, 32)
	cases := []struct {
		name string
		opts announcetest.Options
	}{
		{"no app data", announcetest.Options{}},
		{"app data", announcetest.Options{AppData: []byte("hello")}},
		{"ratchet", announcetest.Options{AppData: []byte("r"), Ratchet: ratchet}},
		{"hops", announcetest.Options{Hops: 9}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			known := netdb.NewKnownDestinations()
			a, err := NewValidator(known).Validate(unpack(t, announcetest.Build(t, id, "app.x", tc.opts)))
			require.NoError(t, err)
			assert.Equal(t, id.Hash(), a.Identity.Hash())
			appData, ok := known.RecallAppData(a.DestinationHash)
			require.True(t, ok)
			assert.Equal(t, len(tc.opts.AppData), len(appData))
		})
	}
}

func TestValidateRejectsTamperedSignature(t *testing.T) {
	raw := announcetest.NodeAnnounce(t)
	sigStart := packet.HeaderMinSize + 84
	for i := sigStart; i < sigStart+64; i++ {
		for bit := 0; bit < 8; bit++ {
			tampered := append([]byte(nil), raw...)
			tampered[i] ^= 1 << bit

			known := netdb.NewKnownDestinations()
			_, err := NewValidator(known).Validate(unpack(t, tampered))
			require.ErrorIs(t, err, ErrInvalidSignature, "byte %d bit %d", i, bit)
			require.Equal(t, 0, known.Len())
		}
	}
}

func TestValidateRejectsTamperedDestination(t *testing.T) {
	raw := announcetest.NodeAnnounce(t)
	for i := 2; i < 18; i++ {
		for bit := 0; bit < 8; bit++ {
			tampered := append([]byte(nil), raw...)
			tampered[i] ^= 1 << bit

			known := netdb.NewKnownDestinations()
			_, err := NewValidator(known).Validate(unpack(t, tampered))
			require.ErrorIs(t, err, ErrInvalidSignature, "byte %d bit %d", i, bit)
			require.Equal(t, 0, known.Len())
		}
	}
}

func TestValidateRejectsDestinationMismatch(t *testing.T) {
	// A correctly signed announce whose header hash belongs to another name.
	id := announcetest.NewIdentity(t)
	raw := announcetest.Build(t, id, "app.x", announcetest.Options{})
	pkt := unpack(t, raw)

	a, err := Parse(pkt)
	require.NoError(t, err)
	other := announcetest.Build(t, id, "app.y", announcetest.Options{})
	copy(raw[packet.HeaderMinSize+64:packet.HeaderMinSize+74], other[packet.HeaderMinSize+64:packet.HeaderMinSize+74])
	a.NameHash = raw[packet.HeaderMinSize+64 : packet.HeaderMinSize+74]
	sig, err := id.Sign(a.SignedData())
	require.NoError(t, err)
	copy(raw[packet.HeaderMinSize+84:], sig)

	known := netdb.NewKnownDestinations()
	_, err = NewValidator(known).Validate(unpack(t, raw))
	assert.ErrorIs(t, err, ErrDestinationMismatch)
	assert.Equal(t, 0, known.Len())
}

func TestValidateRejectsOtherPackets(t *testing.T) {
	v := NewValidator(netdb.NewKnownDestinations())

	raw := announcetest.NodeAnnounce(t)
	raw[0] |= 0x80
	_, err := v.Validate(unpack(t, raw))
	assert.ErrorIs(t, err, ErrIFACFlagged)

	raw = announcetest.NodeAnnounce(t)
	raw[0] = packet.Data
	_, err = v.Validate(unpack(t, raw))
	assert.ErrorIs(t, err, ErrNotAnnounce)

	_, err = v.Validate(unpack(t, announcetest.NodeAnnounce(t)[:60]))
	assert.ErrorIs(t, err, ErrMalformedAnnounce)
}

func TestVerifySignatureDoesNotWrite(t *testing.T) {
	known := netdb.NewKnownDestinations()
	a, err := NewValidator(known).VerifySignature(unpack(t, announcetest.NodeAnnounce(t)))
	require.NoError(t, err)
	assert.NotNil(t, a)
	assert.Equal(t, 0, known.Len())
}
