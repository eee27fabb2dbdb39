// Package signals dispatches process signals to registered handlers.
//
// SIGHUP runs the reload handlers. SIGINT and SIGTERM run the pre-shutdown
// handlers, bounded by the graceful timeout, and then the interrupt
// handlers. Every handler is protected against panics.
package signals

import (
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// sigChan is buffered to avoid missing signals delivered while no receiver is ready.
var sigChan = make(chan os.Signal, 1)

// Handler is a function called when a signal is received.
type Handler func()

// HandlerID identifies a registration so it can be removed again.
type HandlerID int

type stage int

const (
	stageReload stage = iota
	stagePreShutdown
	stageInterrupt
)

func (s stage) String() string {
	switch s {
	case stageReload:
		return "reload"
	case stagePreShutdown:
		return "pre-shutdown"
	default:
		return "interrupt"
	}
}

type registeredHandler struct {
	id HandlerID
	fn Handler
}

// defaultGracefulTimeout bounds the pre-shutdown stage.
const defaultGracefulTimeout = 30 * time.Second

var (
	mu              sync.RWMutex
	handlers        = map[stage][]registeredHandler{}
	nextID          HandlerID
	gracefulTimeout = defaultGracefulTimeout
	stopOnce        sync.Once
)

func register(s stage, f Handler) HandlerID {
	if f == nil {
		return -1
	}
	mu.Lock()
	defer mu.Unlock()
	id := nextID
	nextID++
	handlers[s] = append(handlers[s], registeredHandler{id: id, fn: f})
	return id
}

func deregister(s stage, id HandlerID) {
	mu.Lock()
	defer mu.Unlock()
	list := handlers[s]
	for i, h := range list {
		if h.id == id {
			handlers[s] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

func snapshot(s stage) []registeredHandler {
	mu.RLock()
	defer mu.RUnlock()
	return append([]registeredHandler(nil), handlers[s]...)
}

// run calls every handler of stage s in registration order.
func run(s stage) {
	for _, h := range snapshot(s) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(logger.Fields{
						"at":    "signals.run",
						"stage": s.String(),
						"panic": r,
					}).Error("signal handler panicked")
				}
			}()
			h.fn()
		}()
	}
}

// RegisterReloadHandler registers a handler called on SIGHUP.
// Nil handlers are ignored and return -1.
func RegisterReloadHandler(f Handler) HandlerID { return register(stageReload, f) }

// DeregisterReloadHandler removes a reload handler by ID.
func DeregisterReloadHandler(id HandlerID) { deregister(stageReload, id) }

// RegisterInterruptHandler registers a handler called on SIGINT or SIGTERM,
// after the pre-shutdown handlers. Nil handlers are ignored and return -1.
func RegisterInterruptHandler(f Handler) HandlerID { return register(stageInterrupt, f) }

// DeregisterInterruptHandler removes an interrupt handler by ID.
func DeregisterInterruptHandler(id HandlerID) { deregister(stageInterrupt, id) }

// RegisterPreShutdownHandler registers a handler that runs before the
// interrupt handlers, such as flushing the known destinations table while
// the interfaces are still up. Nil handlers are ignored and return -1.
func RegisterPreShutdownHandler(f Handler) HandlerID { return register(stagePreShutdown, f) }

// DeregisterPreShutdownHandler removes a pre-shutdown handler by ID.
func DeregisterPreShutdownHandler(id HandlerID) { deregister(stagePreShutdown, id) }

// SetGracefulTimeout bounds the pre-shutdown stage. Zero or negative
// restores the 30 second default.
func SetGracefulTimeout(timeout time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	if timeout <= 0 {
		timeout = defaultGracefulTimeout
	}
	gracefulTimeout = timeout
}

func handleReload() {
	run(stageReload)
}

// handlePreShutdown reports whether every pre-shutdown handler finished
// within the graceful timeout.
func handlePreShutdown() bool {
	mu.RLock()
	timeout := gracefulTimeout
	empty := len(handlers[stagePreShutdown]) == 0
	mu.RUnlock()
	if empty {
		return true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		run(stagePreShutdown)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		log.WithField("timeout", timeout).Warn("pre-shutdown handlers timed out")
		return false
	}
}

func handleInterrupted() {
	handlePreShutdown()
	run(stageInterrupt)
}

// StopHandle makes Handle return. Safe to call more than once.
func StopHandle() {
	stopOnce.Do(func() {
		signal.Stop(sigChan)
		close(sigChan)
	})
}
