// Package packet decodes the Reticulum wire packet header.
//
//	+--------+------+------------------+------------------+---------+---------+
//	| flags  | hops | transport id     | destination hash | context | payload |
//	| 1 byte | 1    | 16, HEADER_2 only| 16               | 1       | rest    |
//	+--------+------+------------------+------------------+---------+---------+
//
// flags:
//
//	bit 7    IFAC flag
//	bit 6    header type (0 = HEADER_1, 1 = HEADER_2)
//	bit 5    context flag
//	bit 4    transport type
//	bits 3-2 destination type
//	bits 1-0 packet type
package packet

import (
	"errors"
	"fmt"

	"github.com/go-i2p/go-rns/lib/common/data"
	"github.com/go-i2p/go-rns/lib/crypto"
	"github.com/samber/oops"
)

const (
	DstLen        = data.HashLength
	HeaderMinSize = 2 + 1 + DstLen*1
	HeaderMaxSize = 2 + 1 + DstLen*2
)

// Header types
const (
	Header1 = 0 // destination hash only
	Header2 = 1 // transport id and destination hash
)

// Context flag values
const (
	FlagUnset = 0
	FlagSet   = 1
)

// Packet types
const (
	Data        = 0
	Announce    = 1
	LinkRequest = 2
	Proof       = 3
)

// Destination types
const (
	DestinationSingle = 0
	DestinationGroup  = 1
	DestinationPlain  = 2
	DestinationLink   = 3
)

// Packet context values used by this package.
const (
	ContextNone  = 0x00
	PathResponse = 0x0B
)

const ifacFlag = 0x80

// ErrMalformedPacket is returned when a frame is too short for its header.
var ErrMalformedPacket = errors.New("malformed packet")

// Packet is a received packet. Raw is kept as received; every other field
// is derived from it by Unpack.
type Packet struct {
	Raw []byte

	Flags           byte
	IFAC            bool
	HeaderType      int
	ContextFlag     int
	TransportType   int
	DestinationType int
	PacketType      int
	Hops            int

	TransportID     *data.Hash
	DestinationHash data.Hash
	Context         byte
	Data            []byte

	PacketHash []byte
}

// IsIFAC reports whether raw carries the interface access code flag.
func IsIFAC(raw []byte) bool {
	return len(raw) > 0 && raw[0]&ifacFlag == ifacFlag
}

// Unpack parses raw into a Packet. IFAC flagged packets are parsed like any
// other and reported through Packet.IFAC; dropping them is up to the caller.
func Unpack(raw []byte) (*Packet, error) {
	if len(raw) < 2 {
		return nil, oops.Wrapf(ErrMalformedPacket, "need 2 header bytes, got %d", len(raw))
	}
	p := &Packet{Raw: raw}
	p.Flags = raw[0]
	p.Hops = int(raw[1])
	p.IFAC = p.Flags&ifacFlag == ifacFlag
	p.HeaderType = int(p.Flags>>6) & 1
	p.ContextFlag = int(p.Flags>>5) & 1
	p.TransportType = int(p.Flags>>4) & 1
	p.DestinationType = int(p.Flags>>2) & 3
	p.PacketType = int(p.Flags) & 3

	i := 2
	if p.HeaderType == Header2 {
		if len(raw) < i+DstLen {
			return nil, oops.Wrapf(ErrMalformedPacket, "truncated transport id: %d bytes", len(raw))
		}
		tid, _ := data.HashFromBytes(raw[i : i+DstLen])
		p.TransportID = &tid
		i += DstLen
	}
	if len(raw) < i+DstLen+1 {
		return nil, oops.Wrapf(ErrMalformedPacket, "truncated destination header: %d bytes", len(raw))
	}
	p.DestinationHash, _ = data.HashFromBytes(raw[i : i+DstLen])
	i += DstLen
	p.Context = raw[i]
	i++
	p.Data = raw[i:]

	p.PacketHash = p.Hash()
	return p, nil
}

// HashablePart returns the bytes covered by the packet hash: the low nibble
// of the flags byte, then everything from the destination hash onwards.
// Hop count and transport id are excluded so that a packet keeps its hash
// while it is being relayed.
func (p *Packet) HashablePart() []byte {
	offset := 2
	if p.HeaderType == Header2 {
		offset += DstLen
	}
	part := make([]byte, 0, 1+len(p.Raw)-offset)
	part = append(part, p.Raw[0]&0x0F)
	return append(part, p.Raw[offset:]...)
}

// Hash returns the full SHA-256 packet hash.
func (p *Packet) Hash() []byte {
	return crypto.FullHash(p.HashablePart())
}

// IsPathResponse reports whether the packet answers a path request.
func (p *Packet) IsPathResponse() bool {
	return p.Context == PathResponse
}

// TypeName returns a readable name for the packet type.
func (p *Packet) TypeName() string {
	switch p.PacketType {
	case Data:
		return "DATA"
	case Announce:
		return "ANNOUNCE"
	case LinkRequest:
		return "LINKREQUEST"
	default:
		return "PROOF"
	}
}

func (p *Packet) String() string {
	return fmt.Sprintf("%s to %s hops=%d header=%d ctxflag=%d transport=%d dsttype=%d context=0x%02x len=%d",
		p.TypeName(), crypto.PrettyHex(p.DestinationHash[:]), p.Hops, p.HeaderType+1,
		p.ContextFlag, p.TransportType, p.DestinationType, p.Context, len(p.Raw))
}
