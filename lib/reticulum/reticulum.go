package reticulum

import (
	"context"
	"errors"
	"sync"

	"github.com/go-i2p/go-rns/lib/config"
	"github.com/go-i2p/go-rns/lib/interfaces"
	"github.com/go-i2p/go-rns/lib/keys"
	"github.com/go-i2p/go-rns/lib/netdb"
	"github.com/go-i2p/go-rns/lib/transport"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// ErrAlreadyRunning is returned by Start on a running node.
var ErrAlreadyRunning = errors.New("reticulum is already running")

// runner is the common shape of the TCP interfaces.
type runner interface {
	Name() string
	Run(ctx context.Context) error
}

// listener is implemented by interfaces that bind a local socket.
type listener interface {
	Listen() error
	Close() error
}

// Reticulum is a running node.
type Reticulum struct {
	cfg         *config.ReticulumConfig
	keystore    keys.KeyStore
	transport   *transport.Transport
	storagePath string
	runners     []runner

	watchMu sync.Mutex
	watched map[string]*watchedAspect
	onWatch AnnounceFunc

	runMux  sync.Mutex
	running bool
	cancel  context.CancelFunc
	stopped chan struct{}
	wg      sync.WaitGroup
}

// New creates a node from cfg. The transport identity is loaded from, or
// generated into, the configured identity directory and the known
// destinations table is read from the storage path.
func New(cfg *config.ReticulumConfig) (*Reticulum, error) {
	if cfg == nil {
		cfg = config.DefaultReticulumConfig()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	log.WithField("working_dir", cfg.WorkingDir).Debug("Creating reticulum node")

	r := &Reticulum{
		cfg:     cfg,
		watched: make(map[string]*watchedAspect),
	}
	if err := r.initializeKeystore(); err != nil {
		return nil, err
	}
	known, err := r.loadKnownDestinations()
	if err != nil {
		return nil, err
	}

	r.transport, err = transport.New(transport.Config{
		Identity:          r.keystore.Identity(),
		KnownDestinations: known,
	})
	if err != nil {
		return nil, err
	}
	r.buildInterfaces()

	log.WithFields(logger.Fields{
		"identity":     r.keystore.Identity().HexHash(),
		"known":        known.Len(),
		"interfaces":   len(r.runners),
		"storage_path": r.storagePath,
	}).Info("Reticulum node created")
	return r, nil
}

func (r *Reticulum) initializeKeystore() error {
	dir, err := r.cfg.IdentityDir()
	if err != nil {
		return oops.Wrapf(err, "identity directory")
	}
	if err := config.CreateSecureDirectory(dir); err != nil {
		return err
	}
	ks, err := keys.NewIdentityKeystore(dir, r.cfg.Identity.Name)
	if err != nil {
		log.WithError(err).Error("Failed to load transport identity")
		return err
	}
	r.keystore = ks
	log.WithField("key_id", ks.KeyID()).Debug("Transport identity loaded")
	return nil
}

func (r *Reticulum) loadKnownDestinations() (*netdb.KnownDestinations, error) {
	path, err := r.cfg.StoragePath()
	if err != nil {
		return nil, oops.Wrapf(err, "storage path")
	}
	r.storagePath = path
	known := netdb.NewKnownDestinations()
	if err := known.Load(path); err != nil {
		log.WithError(err).WithField("path", path).Error("Failed to load known destinations")
		return nil, err
	}
	return known, nil
}

func (r *Reticulum) buildInterfaces() {
	ifaces := r.cfg.Interfaces
	for _, c := range ifaces.TCPClients {
		r.runners = append(r.runners, interfaces.NewTCPClientInterface(c.Name, c.Target, ifaces.ReconnectInterval, r.transport))
	}
	for _, s := range ifaces.TCPServers {
		r.runners = append(r.runners, interfaces.NewTCPServerInterface(s.Name, s.Listen, r.transport))
	}
	for _, tap := range ifaces.TCPTaps {
		r.runners = append(r.runners, interfaces.NewTCPTapInterface(tap.Name, tap.Listen, tap.Target, r.transport))
	}
}

// Start binds every listening interface and runs all interfaces until ctx
// is cancelled or Stop is called. Sockets are bound before anything runs,
// so a bind failure leaves the node stopped. Interfaces do not restart
// once stopped.
func (r *Reticulum) Start(ctx context.Context) error {
	r.runMux.Lock()
	defer r.runMux.Unlock()
	if r.running {
		log.WithFields(logger.Fields{
			"at":     "(Reticulum) Start",
			"reason": "node is already running",
		}).Error("Error starting reticulum")
		return ErrAlreadyRunning
	}

	if err := r.listenAll(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.stopped = make(chan struct{})
	r.running = true
	for _, iface := range r.runners {
		r.wg.Add(1)
		go r.run(runCtx, iface)
	}
	go func(stopped chan struct{}) {
		<-runCtx.Done()
		r.wg.Wait()
		r.runMux.Lock()
		r.running = false
		r.runMux.Unlock()
		close(stopped)
		log.Debug("Reticulum has stopped")
	}(r.stopped)

	log.WithField("interfaces", len(r.runners)).Info("Reticulum started")
	return nil
}

func (r *Reticulum) listenAll() error {
	var bound []listener
	for _, iface := range r.runners {
		l, ok := iface.(listener)
		if !ok {
			continue
		}
		if err := l.Listen(); err != nil {
			for _, b := range bound {
				b.Close()
			}
			return err
		}
		bound = append(bound, l)
	}
	return nil
}

func (r *Reticulum) run(ctx context.Context, iface runner) {
	defer r.wg.Done()
	if err := iface.Run(ctx); err != nil {
		log.WithError(err).WithField("interface", iface.Name()).Error("Interface stopped")
	}
}

// Stop cancels every interface. Wait blocks until they have returned.
func (r *Reticulum) Stop() {
	r.runMux.Lock()
	defer r.runMux.Unlock()
	if r.cancel == nil {
		log.Debug("Reticulum already stopped")
		return
	}
	log.Debug("Stopping reticulum")
	r.cancel()
}

// Wait blocks until the node started by the last Start has fully stopped.
// It returns at once when the node was never started.
func (r *Reticulum) Wait() {
	r.runMux.Lock()
	stopped := r.stopped
	r.runMux.Unlock()
	if stopped == nil {
		return
	}
	<-stopped
}

// Running reports whether the interfaces are running.
func (r *Reticulum) Running() bool {
	r.runMux.Lock()
	defer r.runMux.Unlock()
	return r.running
}

// Persist writes the known destinations table to the storage path.
func (r *Reticulum) Persist() error {
	known := r.transport.KnownDestinations()
	if err := known.Save(r.storagePath); err != nil {
		log.WithError(err).WithField("path", r.storagePath).Error("Failed to persist known destinations")
		return err
	}
	log.WithFields(logger.Fields{
		"path":  r.storagePath,
		"count": known.Len(),
	}).Debug("Persisted known destinations")
	return nil
}

// Close stops the node, waits for it and persists the known destinations.
func (r *Reticulum) Close() error {
	r.Stop()
	r.Wait()
	return r.Persist()
}

// Transport returns the node's transport.
func (r *Reticulum) Transport() *transport.Transport {
	return r.transport
}

// Config returns the configuration the node was built from.
func (r *Reticulum) Config() *config.ReticulumConfig {
	return r.cfg
}

// StoragePath is the resolved location of the known destinations table.
func (r *Reticulum) StoragePath() string {
	return r.storagePath
}

// RegisterAnnounceHandler adds h to the transport's handler registry.
func (r *Reticulum) RegisterAnnounceHandler(h transport.AnnounceHandler) bool {
	return r.transport.RegisterAnnounceHandler(h)
}

// FeedBytes passes raw bytes received on connection id to the transport.
func (r *Reticulum) FeedBytes(id string, data []byte) {
	r.transport.FeedBytes(id, data)
}
