package control

import (
	"encoding/hex"
	"time"
	"unicode/utf8"

	"github.com/go-i2p/go-rns/lib/common/data"
	"github.com/go-i2p/go-rns/lib/identity"
	"github.com/go-i2p/go-rns/lib/interfaces"
	"github.com/go-i2p/go-rns/lib/netdb"
	"github.com/go-i2p/go-rns/lib/transport"
)

// NodeProvider is the view of the node the server reads from.
// *transport.Transport satisfies it.
type NodeProvider interface {
	Identity() *identity.Identity
	Stats() transport.Stats
	Interfaces() []*interfaces.Interface
	KnownDestinations() *netdb.KnownDestinations
	Handlers() *transport.HandlerRegistry
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Identity          string            `json:"identity"`
	Uptime            string            `json:"uptime"`
	KnownDestinations int               `json:"known_destinations"`
	AnnouncesRejected uint64            `json:"announces_rejected"`
	Stats             transport.Stats   `json:"stats"`
	Interfaces        []InterfaceStatus `json:"interfaces"`
}

type InterfaceStatus struct {
	Name    string    `json:"name"`
	Parent  string    `json:"parent,omitempty"`
	RXBytes uint64    `json:"rx_bytes"`
	Frames  uint64    `json:"frames"`
	Dropped uint64    `json:"dropped"`
	Panics  uint64    `json:"panics"`
	Created time.Time `json:"created"`
}

// DestinationInfo describes one known destination. Byte fields are hex.
type DestinationInfo struct {
	Hash       string `json:"hash"`
	Identity   string `json:"identity,omitempty"`
	PublicKey  string `json:"public_key"`
	PacketHash string `json:"packet_hash"`
	AppData    string `json:"app_data"`
	// AppDataText is set when the application data is valid UTF-8.
	AppDataText string `json:"app_data_text,omitempty"`
}

type HandlerInfo struct {
	AspectFilter  string `json:"aspect_filter"`
	PathResponses bool   `json:"path_responses"`
	Enabled       bool   `json:"enabled"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func newInterfaceStatus(i *interfaces.Interface) InterfaceStatus {
	st := InterfaceStatus{
		Name:    i.Name(),
		RXBytes: i.RXBytes(),
		Frames:  i.Frames(),
		Dropped: i.Dropped(),
		Panics:  i.Panics(),
		Created: i.Created(),
	}
	if p := i.Parent(); p != nil {
		st.Parent = p.Name()
	}
	return st
}

func newDestinationInfo(h data.Hash, rec netdb.Record) DestinationInfo {
	info := DestinationInfo{
		Hash:       h.String(),
		PublicKey:  hex.EncodeToString(rec.PublicKey),
		PacketHash: hex.EncodeToString(rec.PacketHash),
		AppData:    hex.EncodeToString(rec.AppData),
	}
	if id, err := identity.FromPublicKey(rec.PublicKey); err == nil {
		info.Identity = id.HexHash()
	}
	if len(rec.AppData) > 0 && utf8.Valid(rec.AppData) {
		info.AppDataText = string(rec.AppData)
	}
	return info
}

// enabler is implemented by handlers that can be switched off at runtime.
type enabler interface {
	Enabled() bool
}

func newHandlerInfo(h transport.AnnounceHandler) HandlerInfo {
	info := HandlerInfo{
		AspectFilter:  h.AspectFilter(),
		PathResponses: h.ReceivePathResponses(),
		Enabled:       true,
	}
	if e, ok := h.(enabler); ok {
		info.Enabled = e.Enabled()
	}
	return info
}
