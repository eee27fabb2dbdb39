package transport

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/go-i2p/go-rns/lib/announce"
	"github.com/go-i2p/go-rns/lib/common/data"
	"github.com/go-i2p/go-rns/lib/crypto"
	"github.com/go-i2p/go-rns/lib/destination"
	"github.com/go-i2p/go-rns/lib/identity"
	"github.com/go-i2p/go-rns/lib/interfaces"
	"github.com/go-i2p/go-rns/lib/netdb"
	"github.com/go-i2p/go-rns/lib/packet"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

var (
	_ interfaces.Owner  = (*Transport)(nil)
	_ interfaces.Feeder = (*Transport)(nil)
)

// Config wires a Transport. KnownDestinations and Handlers are created
// when nil.
type Config struct {
	Identity          *identity.Identity
	KnownDestinations *netdb.KnownDestinations
	Handlers          *HandlerRegistry
}

// Transport receives frames from its interfaces, validates announces and
// dispatches them.
type Transport struct {
	identity  *identity.Identity
	known     *netdb.KnownDestinations
	handlers  *HandlerRegistry
	validator *announce.Validator

	ifMu   sync.RWMutex
	ifaces map[string]*interfaces.Interface

	stats counters
}

func New(cfg Config) (*Transport, error) {
	if cfg.Identity == nil {
		return nil, ErrNoIdentity
	}
	known := cfg.KnownDestinations
	if known == nil {
		known = netdb.NewKnownDestinations()
	}
	handlers := cfg.Handlers
	if handlers == nil {
		handlers = NewHandlerRegistry()
	}
	log.WithFields(logger.Fields{
		"at":       "New",
		"identity": cfg.Identity.String(),
		"known":    known.Len(),
	}).Debug("Creating transport")
	return &Transport{
		identity:  cfg.Identity,
		known:     known,
		handlers:  handlers,
		validator: announce.NewValidator(known),
		ifaces:    make(map[string]*interfaces.Interface),
	}, nil
}

func (t *Transport) Identity() *identity.Identity                { return t.identity }
func (t *Transport) KnownDestinations() *netdb.KnownDestinations { return t.known }
func (t *Transport) Handlers() *HandlerRegistry                  { return t.handlers }

// RegisterAnnounceHandler adds h to the handler registry.
func (t *Transport) RegisterAnnounceHandler(h AnnounceHandler) bool {
	return t.handlers.Register(h)
}

// Attach returns the interface for id, creating it on first use.
func (t *Transport) Attach(id string, parent *interfaces.Interface) *interfaces.Interface {
	t.ifMu.RLock()
	iface, ok := t.ifaces[id]
	t.ifMu.RUnlock()
	if ok {
		return iface
	}

	t.ifMu.Lock()
	defer t.ifMu.Unlock()
	if iface, ok := t.ifaces[id]; ok {
		return iface
	}
	iface = interfaces.New(id, t, parent)
	t.ifaces[id] = iface
	log.WithField("interface", id).Debug("Attached interface")
	return iface
}

// Detach forgets the interface for id. Buffered partial frames are lost.
func (t *Transport) Detach(id string) {
	t.ifMu.Lock()
	_, ok := t.ifaces[id]
	delete(t.ifaces, id)
	t.ifMu.Unlock()
	if ok {
		log.WithField("interface", id).Debug("Detached interface")
	}
}

// Interfaces returns the attached interfaces ordered by name.
func (t *Transport) Interfaces() []*interfaces.Interface {
	t.ifMu.RLock()
	out := make([]*interfaces.Interface, 0, len(t.ifaces))
	for _, iface := range t.ifaces {
		out = append(out, iface)
	}
	t.ifMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// FeedBytes feeds a chunk of connection id's byte stream.
func (t *Transport) FeedBytes(id string, data []byte) {
	t.Attach(id, nil).Receive(data)
}

// Inbound processes one decoded frame received on from.
func (t *Transport) Inbound(raw []byte, from *interfaces.Interface) {
	t.stats.packetsReceived.Add(1)
	if packet.IsIFAC(raw) {
		t.stats.ifacDropped.Add(1)
		return
	}

	pkt, err := packet.Unpack(raw)
	if err != nil {
		t.stats.malformedPackets.Add(1)
		log.WithError(err).WithField("interface", from.String()).Debug("Dropping malformed packet")
		return
	}
	if pkt.PacketType != packet.Announce {
		t.stats.otherPackets.Add(1)
		return
	}

	a, err := t.validator.Validate(pkt)
	if err != nil {
		t.countRejection(err)
		log.WithFields(logger.Fields{
			"interface":   from.String(),
			"destination": crypto.PrettyHex(pkt.DestinationHash[:]),
			"reason":      err.Error(),
		}).Debug("Dropped announce")
		return
	}
	t.stats.announcesAccepted.Add(1)
	t.Dispatch(a)
}

func (t *Transport) countRejection(err error) {
	switch {
	case errors.Is(err, announce.ErrInvalidSignature):
		t.stats.invalidSignatures.Add(1)
	case errors.Is(err, announce.ErrDestinationMismatch):
		t.stats.destinationMismatch.Add(1)
	default:
		t.stats.malformedAnnounces.Add(1)
	}
}

// Dispatch delivers a validated announce to every matching handler. It
// returns the number of handlers that were invoked.
func (t *Transport) Dispatch(a *announce.Announce) int {
	invoked := 0
	for _, h := range t.handlers.Handlers() {
		if a.IsPathResponse() && !h.ReceivePathResponses() {
			continue
		}
		expected, err := destination.HashFromNameAndIdentity(h.AspectFilter(), a.Identity)
		if err != nil {
			log.WithError(err).WithField("aspect_filter", h.AspectFilter()).Warn("Announce handler has an invalid aspect filter")
			continue
		}
		if !expected.Equal(a.DestinationHash) {
			continue
		}
		invoked++
		t.stats.handlerCalls.Add(1)
		if err := t.invoke(h, a); err != nil {
			t.stats.handlerFailures.Add(1)
			log.WithError(err).WithFields(logger.Fields{
				"aspect_filter": h.AspectFilter(),
				"destination":   a.String(),
			}).Error("Error while processing external announce callback")
		}
	}
	return invoked
}

func (t *Transport) invoke(h AnnounceHandler, a *announce.Announce) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("stack", string(debug.Stack())).Debug("Recovered announce handler panic")
			err = oops.Errorf("announce handler panicked: %s", fmt.Sprint(r))
		}
	}()
	appData := append([]byte(nil), a.AppData...)
	packetHash := append([]byte(nil), a.PacketHash...)
	return h.ReceivedAnnounce(a.DestinationHash, a.Identity, appData, packetHash, a.IsPathResponse())
}

// RecallIdentity returns the identity last announced for destHash.
func (t *Transport) RecallIdentity(destHash data.Hash) (*identity.Identity, bool) {
	rec, ok := t.known.Recall(destHash)
	if !ok {
		return nil, false
	}
	id, err := identity.FromPublicKey(rec.PublicKey)
	if err != nil {
		return nil, false
	}
	return id, true
}

// RecallAppData returns the application data last announced for destHash.
func (t *Transport) RecallAppData(destHash data.Hash) ([]byte, bool) {
	return t.known.RecallAppData(destHash)
}

// Stats returns a copy of the transport counters.
func (t *Transport) Stats() Stats {
	return t.stats.snapshot()
}
