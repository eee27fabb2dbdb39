package interfaces

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// TCPServerInterface accepts Reticulum peers. Every accepted connection is
// fed through its own child interface named <name>/<remote addr>, whose
// byte counts roll up to the server interface.
type TCPServerInterface struct {
	name   string
	listen string
	feeder Feeder

	mu       sync.Mutex
	listener net.Listener
	conns    map[string]net.Conn
	closed   bool
	wg       sync.WaitGroup
}

func NewTCPServerInterface(name, listen string, feeder Feeder) *TCPServerInterface {
	return &TCPServerInterface{
		name:   name,
		listen: listen,
		feeder: feeder,
		conns:  make(map[string]net.Conn),
	}
}

func (s *TCPServerInterface) Name() string { return s.name }

// Listen binds the listening socket. Run calls it when needed.
func (s *TCPServerInterface) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return oops.Errorf("interface %s failed to listen on %s: %w", s.name, s.listen, err)
	}
	s.listener = ln
	log.WithFields(logger.Fields{
		"interface": s.name,
		"address":   ln.Addr().String(),
	}).Info("Listening")
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *TCPServerInterface) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run accepts connections until ctx is cancelled or Close is called.
func (s *TCPServerInterface) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	parent := s.feeder.Attach(s.name, nil)
	defer s.feeder.Detach(s.name)

	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			// Drop the clients, or Wait blocks until each peer hangs up.
			s.Close()
			s.wg.Wait()
			return oops.Errorf("interface %s accept failed: %w", s.name, err)
		}
		id := s.name + "/" + conn.RemoteAddr().String()
		if !s.track(id, conn) {
			conn.Close()
			continue
		}
		child := s.feeder.Attach(id, parent)
		s.wg.Add(1)
		go s.serve(id, conn, child)
	}
}

func (s *TCPServerInterface) track(id string, conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[id] = conn
	return true
}

func (s *TCPServerInterface) serve(id string, conn net.Conn, child *Interface) {
	defer s.wg.Done()
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, id)
		s.mu.Unlock()
		s.feeder.Detach(id)
		log.WithField("interface", id).Debug("Client disconnected")
	}()
	log.WithField("interface", id).Debug("Client connected")

	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			child.Receive(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

// Clients returns the number of connected peers.
func (s *TCPServerInterface) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close stops accepting and drops every connection.
func (s *TCPServerInterface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for _, c := range s.conns {
		c.Close()
	}
	return err
}
