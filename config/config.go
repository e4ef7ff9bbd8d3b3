package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/zaplabs/zapnet/transport"
)

// DefaultKeyfile is the default name of the file containing the node's
// static private key.
const DefaultKeyfile = "identity.key"

// Default configuration values.
const (
	DefaultLogLevel       = "info"
	DefaultBindAddr       = "127.0.0.1:9128"
	DefaultChain          = "testnet"
	DefaultNetwork        = "public"
	DefaultConnectTimeout = 10 * time.Second
)

// Config contains all the configuration properties of a zapnet node.
type Config struct {
	// DataDir is the top-level directory containing the node's identity
	// key and peer records.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// BindAddr is the local address:port where this node accepts inbound
	// connections.
	BindAddr string `mapstructure:"listen"`

	// Chain names the chain this node participates in ("mainnet" or
	// "testnet"). Peers on a different chain are rejected during the
	// handshake.
	Chain string `mapstructure:"chain"`

	// Network names the overlay network this node belongs to
	// ("validator", "public" or "vfn").
	Network string `mapstructure:"network"`

	// Moniker is the friendly name of this node, used only in logs.
	Moniker string `mapstructure:"moniker"`

	// ConnectTimeout bounds dialing and the handshake of an outbound
	// connection.
	ConnectTimeout time.Duration `mapstructure:"timeout"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	return &Config{
		DataDir:        DefaultDataDir(),
		LogLevel:       DefaultLogLevel,
		BindAddr:       DefaultBindAddr,
		Chain:          DefaultChain,
		Network:        DefaultNetwork,
		ConnectTimeout: DefaultConnectTimeout,
	}
}

// Keyfile returns the full path of the file containing the private key.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// ChainID resolves the configured chain name.
func (c *Config) ChainID() (transport.ChainID, error) {
	switch c.Chain {
	case "mainnet":
		return transport.ChainMainnet, nil
	case "testnet":
		return transport.ChainTestnet, nil
	default:
		return 0, fmt.Errorf("unknown chain %q", c.Chain)
	}
}

// NetworkID resolves the configured network name.
func (c *Config) NetworkID() (transport.NetworkID, error) {
	switch c.Network {
	case "validator":
		return transport.NetworkValidator, nil
	case "public":
		return transport.NetworkPublic, nil
	case "vfn":
		return transport.NetworkVfn, nil
	default:
		return 0, fmt.Errorf("unknown network %q", c.Network)
	}
}

// Logger returns the node's logger, built lazily from LogLevel.
func (c *Config) Logger() *logrus.Logger {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
	}
	return c.logger
}

// DefaultDataDir returns the default top-level directory for node data,
// attempting to respect the conventions of the underlying OS.
func DefaultDataDir() string {
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Zapnet")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Zapnet")
		}
		return filepath.Join(home, ".zapnet")
	}
	// No stable location to guess; the caller has to set one.
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}
