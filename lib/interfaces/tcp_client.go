package interfaces

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-i2p/logger"
	"golang.org/x/time/rate"
)

const (
	DefaultReconnectInterval = 5 * time.Second
	readBufferSize           = 4096
	dialTimeout              = 10 * time.Second
)

// TCPClientInterface dials a Reticulum TCP server interface and feeds
// everything it reads to the transport. Lost connections are redialled,
// at most once per reconnect interval. Each connection is fed through its
// own child interface named <name>/<n>, so a frame cut off by a dropped
// connection never joins bytes from the next one.
type TCPClientInterface struct {
	name    string
	target  string
	feeder  Feeder
	limiter *rate.Limiter

	mu     sync.Mutex
	conn   net.Conn
	online atomic.Bool
	dials  atomic.Uint64
}

func NewTCPClientInterface(name, target string, reconnect time.Duration, feeder Feeder) *TCPClientInterface {
	if reconnect <= 0 {
		reconnect = DefaultReconnectInterval
	}
	return &TCPClientInterface{
		name:    name,
		target:  target,
		feeder:  feeder,
		limiter: rate.NewLimiter(rate.Every(reconnect), 1),
	}
}

func (c *TCPClientInterface) Name() string   { return c.name }
func (c *TCPClientInterface) Target() string { return c.target }
func (c *TCPClientInterface) Online() bool   { return c.online.Load() }

// Connections returns the number of connections made so far.
func (c *TCPClientInterface) Connections() uint64 { return c.dials.Load() }

// Run connects and reads until ctx is cancelled.
func (c *TCPClientInterface) Run(ctx context.Context) error {
	parent := c.feeder.Attach(c.name, nil)
	defer c.feeder.Detach(c.name)

	stop := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
	})
	defer stop()

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			// The next attempt would fall after the deadline.
			<-ctx.Done()
			return ctx.Err()
		}
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithFields(logger.Fields{
				"at":        "(TCPClientInterface) Run",
				"interface": c.name,
				"target":    c.target,
			}).WithError(err).Warn("Could not connect, will retry")
			continue
		}
		id := c.name + "/" + strconv.FormatUint(c.dials.Add(1), 10)
		c.readLoop(conn, c.feeder.Attach(id, parent))
		c.feeder.Detach(id)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithFields(logger.Fields{
			"at":        "(TCPClientInterface) Run",
			"interface": c.name,
			"target":    c.target,
		}).Warn("Connection lost, reconnecting")
	}
}

func (c *TCPClientInterface) dial(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.target)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	// Cancellation may have raced with the dial.
	if ctx.Err() != nil {
		conn.Close()
		return nil, ctx.Err()
	}
	log.WithFields(logger.Fields{
		"interface": c.name,
		"target":    c.target,
	}).Info("Connected")
	return conn, nil
}

func (c *TCPClientInterface) readLoop(conn net.Conn, iface *Interface) {
	c.online.Store(true)
	defer func() {
		c.online.Store(false)
		conn.Close()
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
	}()

	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			iface.Receive(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.WithField("interface", c.name).WithError(err).Debug("Read ended")
			}
			return
		}
	}
}
