package transport

import (
	"reflect"
	"sync"

	"github.com/go-i2p/go-rns/lib/common/data"
	"github.com/go-i2p/go-rns/lib/identity"
)

// AnnounceHandler receives validated announces for one aspect filter.
type AnnounceHandler interface {
	// AspectFilter is the dotted destination name, for example
	// "nomadnetwork.node". It must match exactly.
	AspectFilter() string
	// ReceivePathResponses opts in to announces that answer path requests.
	ReceivePathResponses() bool
	ReceivedAnnounce(destinationHash data.Hash, announced *identity.Identity, appData, packetHash []byte, isPathResponse bool) error
}

// HandlerFunc is the callback shape of AnnounceHandler.ReceivedAnnounce.
type HandlerFunc func(destinationHash data.Hash, announced *identity.Identity, appData, packetHash []byte, isPathResponse bool) error

type funcHandler struct {
	filter        string
	pathResponses bool
	fn            HandlerFunc
}

// NewAnnounceHandler wraps fn as an AnnounceHandler.
func NewAnnounceHandler(filter string, pathResponses bool, fn HandlerFunc) AnnounceHandler {
	return &funcHandler{filter: filter, pathResponses: pathResponses, fn: fn}
}

func (h *funcHandler) AspectFilter() string       { return h.filter }
func (h *funcHandler) ReceivePathResponses() bool { return h.pathResponses }

func (h *funcHandler) ReceivedAnnounce(destinationHash data.Hash, announced *identity.Identity, appData, packetHash []byte, isPathResponse bool) error {
	return h.fn(destinationHash, announced, appData, packetHash, isPathResponse)
}

// HandlerRegistry is the set of registered handlers.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers []AnnounceHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{}
}

// Register adds h. It returns false if h is nil, not comparable, or
// already registered.
func (r *HandlerRegistry) Register(h AnnounceHandler) bool {
	if h == nil {
		return false
	}
	if !reflect.TypeOf(h).Comparable() {
		log.WithField("type", reflect.TypeOf(h).String()).Warn("Refusing announce handler of non-comparable type")
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.handlers {
		if existing == h {
			return false
		}
	}
	r.handlers = append(r.handlers, h)
	log.WithField("aspect_filter", h.AspectFilter()).Debug("Registered announce handler")
	return true
}

// Handlers returns a snapshot of the registered handlers.
func (r *HandlerRegistry) Handlers() []AnnounceHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]AnnounceHandler(nil), r.handlers...)
}

func (r *HandlerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}
