package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/go-i2p/go-rns/lib/util"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"github.com/spf13/viper"
)

var (
	CfgFile string
	log     = logger.GetGoI2PLogger()
)

const GORNS_BASE_DIR = ".go-rns"

// InitConfig points viper at the configuration file, loads the defaults and
// reads the file, creating it from the defaults when the default location
// is still empty.
func InitConfig() error {
	if CfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(CfgFile)
	} else {
		// Set up viper to use the default config path $HOME/.go-rns/
		viper.AddConfigPath(BuildRNSDirPath())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	return handleConfigFile()
}

func setDefaults() {
	d := Defaults()

	viper.SetDefault("base_dir", d.Reticulum.BaseDir)
	viper.SetDefault("working_dir", d.Reticulum.WorkingDir)

	viper.SetDefault("identity.path", d.Identity.Path)
	viper.SetDefault("identity.name", d.Identity.Name)

	viper.SetDefault("storage.path", d.Storage.Path)

	viper.SetDefault("announce.handlers", d.Announce.Handlers)
	viper.SetDefault("announce.path_responses", d.Announce.PathResponses)

	viper.SetDefault("interfaces.reconnect_interval", d.Interfaces.ReconnectInterval)
	viper.SetDefault("interfaces.tcp_client", []TCPClientConfig{})
	viper.SetDefault("interfaces.tcp_server", []TCPServerConfig{})
	viper.SetDefault("interfaces.tcp_tap", []TCPTapConfig{})

	viper.SetDefault("control.enabled", d.Control.Enabled)
	viper.SetDefault("control.address", d.Control.Address)
}

// NewReticulumConfigFromViper creates a new ReticulumConfig from current viper settings
func NewReticulumConfigFromViper() *ReticulumConfig {
	var clients []TCPClientConfig
	if err := viper.UnmarshalKey("interfaces.tcp_client", &clients); err != nil {
		log.Warnf("Error parsing tcp_client interfaces: %s", err)
		clients = nil
	}
	var servers []TCPServerConfig
	if err := viper.UnmarshalKey("interfaces.tcp_server", &servers); err != nil {
		log.Warnf("Error parsing tcp_server interfaces: %s", err)
		servers = nil
	}
	var taps []TCPTapConfig
	if err := viper.UnmarshalKey("interfaces.tcp_tap", &taps); err != nil {
		log.Warnf("Error parsing tcp_tap interfaces: %s", err)
		taps = nil
	}

	return &ReticulumConfig{
		BaseDir:    viper.GetString("base_dir"),
		WorkingDir: viper.GetString("working_dir"),
		Identity: &IdentityConfig{
			Path: viper.GetString("identity.path"),
			Name: viper.GetString("identity.name"),
		},
		Storage: &StorageConfig{
			Path: viper.GetString("storage.path"),
		},
		Announce: &AnnounceConfig{
			Handlers:      viper.GetStringSlice("announce.handlers"),
			PathResponses: viper.GetBool("announce.path_responses"),
		},
		Interfaces: &InterfacesConfig{
			TCPClients:        clients,
			TCPServers:        servers,
			TCPTaps:           taps,
			ReconnectInterval: viper.GetDuration("interfaces.reconnect_interval"),
		},
		Control: &ControlConfig{
			Enabled: viper.GetBool("control.enabled"),
			Address: viper.GetString("control.address"),
		},
	}
}

func createDefaultConfig(defaultConfigDir string) error {
	defaultConfigFile := filepath.Join(defaultConfigDir, "config.yaml")
	// Ensure directory exists
	if err := os.MkdirAll(defaultConfigDir, StandardDirPermissions); err != nil {
		return oops.Errorf("could not create config directory: %w", err)
	}

	if err := viper.SafeWriteConfigAs(defaultConfigFile); err != nil {
		return oops.Errorf("could not write default config file: %w", err)
	}

	log.Debugf("Created default configuration at: %s", defaultConfigFile)
	return nil
}

func handleConfigFile() error {
	err := viper.ReadInConfig()
	if err == nil {
		log.Debugf("Using config file: %s", viper.ConfigFileUsed())
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	switch {
	case CfgFile != "" && errors.Is(err, os.ErrNotExist):
		return oops.Errorf("config file %s is not found: %w", CfgFile, err)
	case CfgFile == "" && errors.As(err, &notFound):
		return createDefaultConfig(BuildRNSDirPath())
	default:
		return oops.Errorf("error reading config file: %w", err)
	}
}

// BuildRNSDirPath returns $HOME/.go-rns.
func BuildRNSDirPath() string {
	return filepath.Join(util.UserHome(), GORNS_BASE_DIR)
}
