package announce

import (
	"github.com/go-i2p/go-rns/lib/crypto"
	"github.com/go-i2p/go-rns/lib/destination"
	"github.com/go-i2p/go-rns/lib/netdb"
	"github.com/go-i2p/go-rns/lib/packet"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// Validator checks received announces and records the accepted ones in a
// KnownDestinations table.
type Validator struct {
	known *netdb.KnownDestinations
}

func NewValidator(known *netdb.KnownDestinations) *Validator {
	return &Validator{known: known}
}

// VerifySignature parses pkt and checks its signature without touching the
// known destinations.
func (v *Validator) VerifySignature(pkt *packet.Packet) (*Announce, error) {
	if pkt.IFAC {
		return nil, ErrIFACFlagged
	}
	if pkt.PacketType != packet.Announce {
		return nil, oops.Wrapf(ErrNotAnnounce, "packet type %s", pkt.TypeName())
	}
	a, err := Parse(pkt)
	if err != nil {
		log.WithError(err).WithField("destination", crypto.PrettyHex(pkt.DestinationHash[:])).Debug("Dropping malformed announce")
		return nil, err
	}
	if !a.Identity.Validate(a.Signature, a.SignedData()) {
		log.WithField("destination", a.String()).Warn("Received invalid announce: invalid signature")
		return nil, oops.Wrapf(ErrInvalidSignature, "announce for %s", a)
	}
	return a, nil
}

// Validate runs the full check and, on success, upserts the known
// destination record. Nothing is written on failure.
func (v *Validator) Validate(pkt *packet.Packet) (*Announce, error) {
	a, err := v.VerifySignature(pkt)
	if err != nil {
		return nil, err
	}

	expected := destination.HashFromNameHash(a.NameHash, a.Identity)
	if !expected.Equal(a.DestinationHash) {
		log.WithFields(logger.Fields{
			"destination": a.String(),
			"expected":    crypto.PrettyHex(expected[:]),
		}).Warn("Received invalid announce: destination mismatch")
		return nil, oops.Wrapf(ErrDestinationMismatch, "announce for %s", a)
	}

	if err := v.known.Remember(a.DestinationHash, a.PacketHash, a.PublicKey, a.AppData); err != nil {
		return nil, err
	}

	log.WithFields(logger.Fields{
		"destination":   a.String(),
		"identity":      a.Identity.String(),
		"path_response": a.IsPathResponse(),
		"hops":          pkt.Hops,
	}).Debug("Validated announce")
	return a, nil
}
