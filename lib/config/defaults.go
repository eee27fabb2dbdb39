package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-i2p/go-rns/lib/common/data"
	"github.com/go-i2p/logger"
)

// ConfigDefaults contains all default configuration values for go-rns.
type ConfigDefaults struct {
	Reticulum  ReticulumDefaults
	Identity   IdentityDefaults
	Storage    StorageDefaults
	Announce   AnnounceDefaults
	Interfaces InterfacesDefaults
	Control    ControlDefaults
}

// ReticulumDefaults contains default directories
type ReticulumDefaults struct {
	// Default: $HOME/.go-rns/base
	BaseDir string
	// Default: $HOME/.go-rns/config
	WorkingDir string
}

type IdentityDefaults struct {
	// Default: keys (inside WorkingDir)
	Path string
	// Default: transport_identity
	Name string
}

type StorageDefaults struct {
	// Default: storage/known_destinations (inside WorkingDir)
	Path string
}

type AnnounceDefaults struct {
	// Default: none, the node validates and stores announces without watching any aspect
	Handlers []string
	// Default: false
	PathResponses bool
}

type InterfacesDefaults struct {
	// ReconnectInterval paces TCP client reconnect attempts
	// Default: 5 seconds
	ReconnectInterval time.Duration
}

type ControlDefaults struct {
	// Default: false
	Enabled bool
	// Default: 127.0.0.1:7651
	Address string
}

// MinReconnectInterval is the shortest accepted reconnect interval.
const MinReconnectInterval = 100 * time.Millisecond

// Defaults returns a ConfigDefaults instance with all default values set.
// This is the single source of truth for all configuration defaults.
func Defaults() ConfigDefaults {
	return ConfigDefaults{
		Reticulum: ReticulumDefaults{
			BaseDir:    defaultBase(),
			WorkingDir: defaultWorking(),
		},
		Identity: IdentityDefaults{
			Path: "keys",
			Name: "transport_identity",
		},
		Storage: StorageDefaults{
			Path: "storage/known_destinations",
		},
		Announce: AnnounceDefaults{
			Handlers: []string{},
		},
		Interfaces: InterfacesDefaults{
			ReconnectInterval: 5 * time.Second,
		},
		Control: ControlDefaults{
			Enabled: false,
			Address: "127.0.0.1:7651",
		},
	}
}

// Validate checks a loaded configuration and reports every problem found.
func Validate(cfg *ReticulumConfig) error {
	log.WithFields(logger.Fields{
		"at":     "Validate",
		"reason": "verification_requested",
	}).Debug("validating configuration")

	var errs []error
	errs = append(errs, validateAnnounce(cfg.Announce)...)
	errs = append(errs, validateInterfaces(cfg.Interfaces)...)
	errs = append(errs, validateControl(cfg.Control)...)
	if cfg.Identity.Name == "" || strings.ContainsRune(cfg.Identity.Name, '/') {
		errs = append(errs, newValidationError(fmt.Sprintf("identity.name %q must be a plain file name", cfg.Identity.Name)))
	}
	if len(errs) > 0 {
		err := data.WrapErrors(errs)
		log.WithError(err).Error("Configuration validation failed")
		return err
	}
	return nil
}

func validateAnnounce(announce *AnnounceConfig) []error {
	var errs []error
	for _, filter := range announce.Handlers {
		for _, part := range strings.Split(filter, ".") {
			if part == "" {
				errs = append(errs, newValidationError(fmt.Sprintf("announce.handlers entry %q has an empty name component", filter)))
				break
			}
		}
	}
	return errs
}

func validateInterfaces(ifaces *InterfacesConfig) []error {
	var errs []error
	if ifaces.ReconnectInterval < MinReconnectInterval {
		errs = append(errs, newValidationError(fmt.Sprintf("interfaces.reconnect_interval must be at least %s", MinReconnectInterval)))
	}
	names := make(map[string]bool)
	checkName := func(kind, name string) {
		switch {
		case name == "":
			errs = append(errs, newValidationError(fmt.Sprintf("interfaces.%s entry without a name", kind)))
		case names[name]:
			errs = append(errs, newValidationError(fmt.Sprintf("interface name %q is used twice", name)))
		}
		names[name] = true
	}
	checkAddr := func(name, key, addr string) {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			errs = append(errs, newValidationError(fmt.Sprintf("interface %q: %s %q is not host:port", name, key, addr)))
		}
	}
	for _, c := range ifaces.TCPClients {
		checkName("tcp_client", c.Name)
		checkAddr(c.Name, "target", c.Target)
	}
	for _, s := range ifaces.TCPServers {
		checkName("tcp_server", s.Name)
		checkAddr(s.Name, "listen", s.Listen)
	}
	for _, tap := range ifaces.TCPTaps {
		checkName("tcp_tap", tap.Name)
		checkAddr(tap.Name, "listen", tap.Listen)
		checkAddr(tap.Name, "target", tap.Target)
	}
	return errs
}

func validateControl(control *ControlConfig) []error {
	if !control.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(control.Address); err != nil {
		return []error{newValidationError(fmt.Sprintf("control.address %q is not host:port", control.Address))}
	}
	return nil
}

// validationError is returned when configuration validation fails
type validationError struct {
	message string
}

func newValidationError(message string) error {
	return &validationError{message: message}
}

func (e *validationError) Error() string {
	return "configuration validation failed: " + e.message
}
