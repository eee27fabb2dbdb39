package interfaces

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-i2p/go-rns/lib/hdlc"
	"github.com/go-i2p/go-rns/lib/packet"
	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// Owner receives every frame an interface decodes.
type Owner interface {
	Inbound(raw []byte, from *Interface)
}

// Feeder is the transport side of a byte stream: interfaces are attached by
// connection id, fed raw bytes, and detached when the stream ends.
type Feeder interface {
	Attach(id string, parent *Interface) *Interface
	FeedBytes(id string, data []byte)
	Detach(id string)
}

// Interface is the receive side of one connection.
type Interface struct {
	name    string
	owner   Owner
	parent  *Interface
	created time.Time

	mu     sync.Mutex
	framer *hdlc.Framer

	rxBytes atomic.Uint64
	frames  atomic.Uint64
	panics  atomic.Uint64
}

// New creates an interface that delivers frames to owner. When parent is
// not nil, received byte counts also accrue to the parent.
func New(name string, owner Owner, parent *Interface) *Interface {
	i := &Interface{
		name:    name,
		owner:   owner,
		parent:  parent,
		created: time.Now(),
	}
	i.framer = hdlc.NewFramer(packet.HeaderMinSize, i.processIncoming)
	return i
}

// Receive feeds a chunk of the byte stream. Empty chunks are ignored.
func (i *Interface) Receive(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.framer.Feed(chunk)
}

func (i *Interface) processIncoming(frame []byte) {
	n := uint64(len(frame))
	i.rxBytes.Add(n)
	if i.parent != nil {
		i.parent.rxBytes.Add(n)
	}
	i.frames.Add(1)

	defer func() {
		if r := recover(); r != nil {
			i.panics.Add(1)
			log.WithFields(logger.Fields{
				"at":        "(Interface) processIncoming",
				"interface": i.name,
				"panic":     fmt.Sprint(r),
				"stack":     string(debug.Stack()),
			}).Error("An error occurred while processing an incoming frame")
		}
	}()
	if i.owner != nil {
		i.owner.Inbound(frame, i)
	}
}

func (i *Interface) Name() string {
	return i.name
}

func (i *Interface) Parent() *Interface {
	return i.parent
}

// RXBytes is the number of decoded frame bytes received, including those
// of child interfaces.
func (i *Interface) RXBytes() uint64 {
	return i.rxBytes.Load()
}

// Frames is the number of frames handed to the owner.
func (i *Interface) Frames() uint64 {
	return i.frames.Load()
}

// Panics is the number of frames whose processing panicked.
func (i *Interface) Panics() uint64 {
	return i.panics.Load()
}

// Dropped is the number of candidate frames the framer discarded.
func (i *Interface) Dropped() uint64 {
	return i.framer.Dropped()
}

func (i *Interface) Created() time.Time {
	return i.created
}

func (i *Interface) String() string {
	if i == nil {
		return "<none>"
	}
	return i.name
}
