package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaplabs/zapnet/transport"
)

func TestNewDefaultConfig(t *testing.T) {
	conf := NewDefaultConfig()

	assert.Equal(t, DefaultLogLevel, conf.LogLevel)
	assert.Equal(t, DefaultBindAddr, conf.BindAddr)
	assert.Equal(t, DefaultChain, conf.Chain)
	assert.Equal(t, DefaultNetwork, conf.Network)
	assert.Equal(t, 10*time.Second, conf.ConnectTimeout)
}

func TestKeyfile(t *testing.T) {
	conf := NewDefaultConfig()
	conf.DataDir = filepath.Join("some", "dir")
	assert.Equal(t, filepath.Join("some", "dir", "identity.key"), conf.Keyfile())
}

func TestChainID(t *testing.T) {
	conf := NewDefaultConfig()

	conf.Chain = "mainnet"
	chain, err := conf.ChainID()
	require.NoError(t, err)
	assert.Equal(t, transport.ChainMainnet, chain)

	conf.Chain = "testnet"
	chain, err = conf.ChainID()
	require.NoError(t, err)
	assert.Equal(t, transport.ChainTestnet, chain)

	conf.Chain = "devnet"
	_, err = conf.ChainID()
	assert.Error(t, err)
}

func TestNetworkID(t *testing.T) {
	conf := NewDefaultConfig()

	for name, want := range map[string]transport.NetworkID{
		"validator": transport.NetworkValidator,
		"public":    transport.NetworkPublic,
		"vfn":       transport.NetworkVfn,
	} {
		conf.Network = name
		network, err := conf.NetworkID()
		require.NoError(t, err)
		assert.Equal(t, want, network)
	}

	conf.Network = "lan-party"
	_, err := conf.NetworkID()
	assert.Error(t, err)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, LogLevel("debug"))
	assert.Equal(t, logrus.ErrorLevel, LogLevel("error"))
	assert.Equal(t, logrus.InfoLevel, LogLevel("not a level"))
}

func TestLoggerIsCached(t *testing.T) {
	conf := NewDefaultConfig()
	conf.LogLevel = "warn"

	logger := conf.Logger()
	require.NotNil(t, logger)
	assert.Equal(t, logrus.WarnLevel, logger.Level)
	assert.Same(t, logger, conf.Logger())
}
