package transport

import "sync/atomic"

// Stats is a point in time copy of the transport counters.
type Stats struct {
	PacketsReceived     uint64 `json:"packets_received"`
	IFACDropped         uint64 `json:"ifac_dropped"`
	MalformedPackets    uint64 `json:"malformed_packets"`
	OtherPackets        uint64 `json:"other_packets"`
	AnnouncesAccepted   uint64 `json:"announces_accepted"`
	MalformedAnnounces  uint64 `json:"malformed_announces"`
	InvalidSignatures   uint64 `json:"invalid_signatures"`
	DestinationMismatch uint64 `json:"destination_mismatches"`
	HandlerCalls        uint64 `json:"handler_calls"`
	HandlerFailures     uint64 `json:"handler_failures"`
}

// AnnouncesRejected sums every announce rejection reason.
func (s Stats) AnnouncesRejected() uint64 {
	return s.MalformedAnnounces + s.InvalidSignatures + s.DestinationMismatch
}

type counters struct {
	packetsReceived     atomic.Uint64
	ifacDropped         atomic.Uint64
	malformedPackets    atomic.Uint64
	otherPackets        atomic.Uint64
	announcesAccepted   atomic.Uint64
	malformedAnnounces  atomic.Uint64
	invalidSignatures   atomic.Uint64
	destinationMismatch atomic.Uint64
	handlerCalls        atomic.Uint64
	handlerFailures     atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		PacketsReceived:     c.packetsReceived.Load(),
		IFACDropped:         c.ifacDropped.Load(),
		MalformedPackets:    c.malformedPackets.Load(),
		OtherPackets:        c.otherPackets.Load(),
		AnnouncesAccepted:   c.announcesAccepted.Load(),
		MalformedAnnounces:  c.malformedAnnounces.Load(),
		InvalidSignatures:   c.invalidSignatures.Load(),
		DestinationMismatch: c.destinationMismatch.Load(),
		HandlerCalls:        c.handlerCalls.Load(),
		HandlerFailures:     c.handlerFailures.Load(),
	}
}
