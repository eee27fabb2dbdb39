package config

import (
	"path/filepath"
	"time"
)

// ReticulumConfig is the complete node configuration.
type ReticulumConfig struct {
	// the path to the base config directory where per-system defaults are stored
	BaseDir string
	// the path to the working config directory where files are changed
	WorkingDir string
	Identity   *IdentityConfig
	Storage    *StorageConfig
	Announce   *AnnounceConfig
	Interfaces *InterfacesConfig
	Control    *ControlConfig
}

// IdentityConfig locates the transport identity key file.
type IdentityConfig struct {
	// Path is the directory holding the key, relative to WorkingDir unless absolute
	Path string
	// Name is the key file name
	Name string
}

// StorageConfig locates the known destinations table.
type StorageConfig struct {
	// Path of the known destinations file, relative to WorkingDir unless absolute
	Path string
}

// AnnounceConfig lists the aspect filters the node watches.
type AnnounceConfig struct {
	Handlers      []string
	PathResponses bool
}

type TCPClientConfig struct {
	Name   string `mapstructure:"name" yaml:"name"`
	Target string `mapstructure:"target" yaml:"target"`
}

type TCPServerConfig struct {
	Name   string `mapstructure:"name" yaml:"name"`
	Listen string `mapstructure:"listen" yaml:"listen"`
}

type TCPTapConfig struct {
	Name   string `mapstructure:"name" yaml:"name"`
	Listen string `mapstructure:"listen" yaml:"listen"`
	Target string `mapstructure:"target" yaml:"target"`
}

type InterfacesConfig struct {
	TCPClients        []TCPClientConfig
	TCPServers        []TCPServerConfig
	TCPTaps           []TCPTapConfig
	ReconnectInterval time.Duration
}

// ControlConfig configures the read-only HTTP status API.
type ControlConfig struct {
	Enabled bool
	Address string
}

// IdentityDir returns the absolute directory of the identity key.
func (c *ReticulumConfig) IdentityDir() (string, error) {
	return ResolvePath(c.WorkingDir, c.Identity.Path)
}

// StoragePath returns the absolute path of the known destinations table.
func (c *ReticulumConfig) StoragePath() (string, error) {
	return ResolvePath(c.WorkingDir, c.Storage.Path)
}

// DefaultReticulumConfig returns the configuration used when no file
// overrides anything.
func DefaultReticulumConfig() *ReticulumConfig {
	d := Defaults()
	return &ReticulumConfig{
		BaseDir:    d.Reticulum.BaseDir,
		WorkingDir: d.Reticulum.WorkingDir,
		Identity: &IdentityConfig{
			Path: d.Identity.Path,
			Name: d.Identity.Name,
		},
		Storage: &StorageConfig{
			Path: d.Storage.Path,
		},
		Announce: &AnnounceConfig{
			Handlers:      append([]string(nil), d.Announce.Handlers...),
			PathResponses: d.Announce.PathResponses,
		},
		Interfaces: &InterfacesConfig{
			ReconnectInterval: d.Interfaces.ReconnectInterval,
		},
		Control: &ControlConfig{
			Enabled: d.Control.Enabled,
			Address: d.Control.Address,
		},
	}
}

func defaultBase() string {
	return filepath.Join(BuildRNSDirPath(), "base")
}

func defaultWorking() string {
	return filepath.Join(BuildRNSDirPath(), "config")
}
