package packet

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A nomadnetwork.node announce captured off a live TCP interface.
const nodeAnnounceHex = "0100234eed3d3775eb1e29cf5a3842961c2500b5d0a228394d29aacb127f5f9a791a6842f6b95c40a3af677adfa8f2dfa1fd728bfde75083edf2c1c2b004f6f7a60985e9aa858f62e688c91d80a7f6460fc26c213e6311bcec54ab4fdef00e34ed1100692683f7ce102e28266af7072b13debcb15ee35dc492a00b6d9a68ae36ba3416121c49b20a740d420d6c139a0594b73b140105620ea01ec61ce777aae180231a3a8692036730306e20436c6f7564202844616c6c617329"

const nodeAnnouncePacketHash = "cb7367940accf797cff2e3edb8a224dc220a32178223b4738e260890150d9bbd"

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestUnpackAnnounce(t *testing.T) {
	raw := mustHex(t, nodeAnnounceHex)

	p, err := Unpack(raw)
	require.NoError(t, err)

	assert.False(t, p.IFAC)
	assert.Equal(t, Header1, p.HeaderType)
	assert.Equal(t, FlagUnset, p.ContextFlag)
	assert.Equal(t, 0, p.TransportType)
	assert.Equal(t, DestinationSingle, p.DestinationType)
	assert.Equal(t, Announce, p.PacketType)
	assert.Equal(t, 0, p.Hops)
	assert.Nil(t, p.TransportID)
	assert.Equal(t, "234eed3d3775eb1e29cf5a3842961c25", p.DestinationHash.String())
	assert.Equal(t, byte(ContextNone), p.Context)
	assert.Len(t, p.Data, len(raw)-HeaderMinSize)
	assert.Equal(t, nodeAnnouncePacketHash, hex.EncodeToString(p.PacketHash))
	assert.False(t, p.IsPathResponse())
}

func TestHashIgnoresHopsAndTransportID(t *testing.T) {
	raw := mustHex(t, nodeAnnounceHex)

	relayed := []byte{0x41, 0x03}
	for i := 0; i < DstLen; i++ {
		relayed = append(relayed, byte(i))
	}
	relayed = append(relayed, raw[2:]...)

	p, err := Unpack(relayed)
	require.NoError(t, err)

	assert.Equal(t, Header2, p.HeaderType)
	assert.Equal(t, 3, p.Hops)
	require.NotNil(t, p.TransportID)
	assert.Equal(t, "000102030405060708090a0b0c0d0e0f", p.TransportID.String())
	assert.Equal(t, "234eed3d3775eb1e29cf5a3842961c25", p.DestinationHash.String())
	assert.Equal(t, nodeAnnouncePacketHash, hex.EncodeToString(p.PacketHash))
}

func TestHashCoversContext(t *testing.T) {
	raw := mustHex(t, nodeAnnounceHex)
	raw[18] = PathResponse

	p, err := Unpack(raw)
	require.NoError(t, err)

	assert.True(t, p.IsPathResponse())
	assert.Equal(t, "ba06615f078bcb5e353003f71681e83c2093d082fbc2ddff4a676d9ede0b20be", hex.EncodeToString(p.PacketHash))
}

func TestUnpackIFACFlag(t *testing.T) {
	raw := mustHex(t, nodeAnnounceHex)
	raw[0] |= 0x80
	require.True(t, IsIFAC(raw))

	p, err := Unpack(raw)
	require.NoError(t, err)
	assert.True(t, p.IFAC)
	// The IFAC bit sits above the hashed nibble.
	assert.Equal(t, nodeAnnouncePacketHash, hex.EncodeToString(p.PacketHash))
}

func TestUnpackFlagBits(t *testing.T) {
	cases := []struct {
		name  string
		flags byte
		want  Packet
	}{
		{"data plain", 0x08, Packet{DestinationType: DestinationPlain, PacketType: Data}},
		{"link proof", 0x0F, Packet{DestinationType: DestinationLink, PacketType: Proof}},
		{"group linkrequest", 0x06, Packet{DestinationType: DestinationGroup, PacketType: LinkRequest}},
		{"context flag", 0x21, Packet{ContextFlag: FlagSet, PacketType: Announce}},
		{"transport type", 0x11, Packet{TransportType: 1, PacketType: Announce}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := make([]byte, HeaderMinSize)
			raw[0] = tc.flags
			p, err := Unpack(raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want.ContextFlag, p.ContextFlag)
			assert.Equal(t, tc.want.TransportType, p.TransportType)
			assert.Equal(t, tc.want.DestinationType, p.DestinationType)
			assert.Equal(t, tc.want.PacketType, p.PacketType)
			assert.Empty(t, p.Data)
		})
	}
}

func TestUnpackTruncated(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
	}{
		{"empty", nil},
		{"one byte", []byte{0x01}},
		{"short header 1", make([]byte, HeaderMinSize-1)},
		{"short transport id", append([]byte{0x41, 0x00}, make([]byte, 10)...)},
		{"short header 2", append([]byte{0x41, 0x00}, make([]byte, HeaderMaxSize-3)...)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Unpack(tc.raw)
			assert.ErrorIs(t, err, ErrMalformedPacket)
		})
	}
}

func TestPacketString(t *testing.T) {
	p, err := Unpack(mustHex(t, nodeAnnounceHex))
	require.NoError(t, err)
	s := p.String()
	assert.Contains(t, s, "ANNOUNCE")
	assert.Contains(t, s, "<234eed3d3775eb1e29cf5a3842961c25>")
}
