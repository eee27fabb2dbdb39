package control

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-i2p/go-rns/lib/common/data"
	"github.com/go-i2p/go-rns/lib/config"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// ErrNoProvider is returned by NewServer without a node to report on.
var ErrNoProvider = errors.New("control server needs a node provider")

// Server is the HTTP control server.
type Server struct {
	config     *config.ControlConfig
	node       NodeProvider
	router     *gin.Engine
	httpServer *http.Server
	started    time.Time

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer builds the server and its routes. Nothing listens until Start.
func NewServer(cfg *config.ControlConfig, node NodeProvider) (*Server, error) {
	if cfg == nil {
		return nil, oops.Errorf("control server needs a configuration")
	}
	if node == nil {
		return nil, ErrNoProvider
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{
		config:  cfg,
		node:    node,
		router:  router,
		started: time.Now(),
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/status", s.handleStatus)
	s.router.GET("/destinations", s.handleDestinations)
	s.router.GET("/destinations/:hash", s.handleDestination)
	s.router.GET("/handlers", s.handleHandlers)
}

// Handler exposes the routes, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the configured address and serves in the background. It is
// a no-op when the server is disabled.
func (s *Server) Start() error {
	if !s.config.Enabled {
		log.Info("Control server is disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return oops.Errorf("control server failed to listen on %s: %w", s.config.Address, err)
	}
	s.listener = ln

	log.WithFields(logger.Fields{
		"at":      "(Server).Start",
		"address": ln.Addr().String(),
	}).Info("Starting control server")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithFields(logger.Fields{
				"at":     "(Server).Start",
				"reason": err.Error(),
			}).Error("Control server error")
		}
	}()
	return nil
}

// Addr returns the bound address, or nil when not listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the server down, waiting for open requests until ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	running := s.listener != nil
	s.mu.Unlock()
	if !running {
		return nil
	}

	err := s.httpServer.Shutdown(ctx)
	s.wg.Wait()
	if err != nil {
		log.WithFields(logger.Fields{
			"at":     "(Server).Stop",
			"reason": err.Error(),
		}).Error("Error during control server shutdown")
		return err
	}
	log.WithField("at", "(Server).Stop").Info("Control server stopped")
	return nil
}

func (s *Server) handleStatus(c *gin.Context) {
	stats := s.node.Stats()
	ifaces := s.node.Interfaces()
	status := StatusResponse{
		Identity:          s.node.Identity().HexHash(),
		Uptime:            time.Since(s.started).Round(time.Second).String(),
		KnownDestinations: s.node.KnownDestinations().Len(),
		AnnouncesRejected: stats.AnnouncesRejected(),
		Stats:             stats,
		Interfaces:        make([]InterfaceStatus, 0, len(ifaces)),
	}
	for _, i := range ifaces {
		status.Interfaces = append(status.Interfaces, newInterfaceStatus(i))
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleDestinations(c *gin.Context) {
	known := s.node.KnownDestinations()
	snapshot := known.Snapshot()
	out := make([]DestinationInfo, 0, len(snapshot))
	for _, h := range known.Hashes() {
		rec, ok := snapshot[h]
		if !ok {
			// Remembered after the snapshot was taken.
			continue
		}
		out = append(out, newDestinationInfo(h, rec))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleDestination(c *gin.Context) {
	h, err := data.HashFromHex(c.Param("hash"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid destination hash"})
		return
	}
	rec, ok := s.node.KnownDestinations().Recall(h)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown destination"})
		return
	}
	c.JSON(http.StatusOK, newDestinationInfo(h, rec))
}

func (s *Server) handleHandlers(c *gin.Context) {
	handlers := s.node.Handlers().Handlers()
	out := make([]HandlerInfo, 0, len(handlers))
	for _, h := range handlers {
		out = append(out, newHandlerInfo(h))
	}
	c.JSON(http.StatusOK, out)
}

// requestLogger logs every request at debug level.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logger.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("control request")
	}
}
