package interfaces

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// Directions of a tapped stream, used as the last component of the
// connection id.
const (
	TapOutbound = "out" // local client to remote node
	TapInbound  = "in"  // remote node to local client
)

// TCPTapInterface relays a local client's connection to a remote node and
// feeds both directions to the transport. Relayed bytes are forwarded
// unchanged; the tap never injects its own.
type TCPTapInterface struct {
	name   string
	listen string
	target string
	feeder Feeder

	mu       sync.Mutex
	listener net.Listener
	sessions map[net.Conn]net.Conn
	closed   bool
	wg       sync.WaitGroup
}

func NewTCPTapInterface(name, listen, target string, feeder Feeder) *TCPTapInterface {
	return &TCPTapInterface{
		name:     name,
		listen:   listen,
		target:   target,
		feeder:   feeder,
		sessions: make(map[net.Conn]net.Conn),
	}
}

func (t *TCPTapInterface) Name() string { return t.name }

func (t *TCPTapInterface) Listen() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", t.listen)
	if err != nil {
		return oops.Errorf("interface %s failed to listen on %s: %w", t.name, t.listen, err)
	}
	t.listener = ln
	log.WithFields(logger.Fields{
		"interface": t.name,
		"address":   ln.Addr().String(),
		"target":    t.target,
	}).Info("Tap listening")
	return nil
}

func (t *TCPTapInterface) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

// Run accepts local clients until ctx is cancelled or Close is called.
func (t *TCPTapInterface) Run(ctx context.Context) error {
	if err := t.Listen(); err != nil {
		return err
	}
	parent := t.feeder.Attach(t.name, nil)
	defer t.feeder.Detach(t.name)

	stop := context.AfterFunc(ctx, func() { t.Close() })
	defer stop()

	t.mu.Lock()
	ln := t.listener
	t.mu.Unlock()
	for {
		client, err := ln.Accept()
		if err != nil {
			t.wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return oops.Errorf("interface %s accept failed: %w", t.name, err)
		}
		log.WithFields(logger.Fields{
			"interface": t.name,
			"client":    client.RemoteAddr().String(),
		}).Debug("Accepted tap client")

		d := net.Dialer{Timeout: dialTimeout}
		remote, err := d.DialContext(ctx, "tcp", t.target)
		if err != nil {
			log.WithField("interface", t.name).WithError(err).Warn("Could not reach tap target")
			client.Close()
			continue
		}
		if !t.track(client, remote) {
			client.Close()
			remote.Close()
			continue
		}
		t.wg.Add(1)
		go t.relay(client, remote, parent)
	}
}

func (t *TCPTapInterface) track(client, remote net.Conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.sessions[client] = remote
	return true
}

func (t *TCPTapInterface) relay(client, remote net.Conn, parent *Interface) {
	defer t.wg.Done()
	base := t.name + "/" + client.RemoteAddr().String() + "/"
	outID, inID := base+TapOutbound, base+TapInbound
	out := t.feeder.Attach(outID, parent)
	in := t.feeder.Attach(inID, parent)

	var pipes sync.WaitGroup
	pipes.Add(2)
	go func() {
		defer pipes.Done()
		t.pipe(client, remote, out)
	}()
	go func() {
		defer pipes.Done()
		t.pipe(remote, client, in)
	}()
	pipes.Wait()

	t.mu.Lock()
	delete(t.sessions, client)
	t.mu.Unlock()
	t.feeder.Detach(outID)
	t.feeder.Detach(inID)
	log.WithField("interface", base).Debug("Tap session closed")
}

// pipe copies src to dst, feeding every chunk to iface before it is
// written. Either side closing ends both directions.
func (t *TCPTapInterface) pipe(src, dst net.Conn, iface *Interface) {
	defer src.Close()
	defer dst.Close()
	buf := make([]byte, readBufferSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			iface.Receive(buf[:n])
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.WithField("interface", iface.Name()).WithError(err).Debug("Tap read ended")
			}
			return
		}
	}
}

// Sessions returns the number of relayed client connections.
func (t *TCPTapInterface) Sessions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

func (t *TCPTapInterface) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	var err error
	if t.listener != nil {
		err = t.listener.Close()
	}
	for c, r := range t.sessions {
		c.Close()
		r.Close()
	}
	return err
}
