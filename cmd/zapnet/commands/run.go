package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zaplabs/zapnet"
	"github.com/zaplabs/zapnet/transport"
)

// NewRunCmd returns the command that starts a zapnet node.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runNode,
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("moniker", _config.Moniker, "Optional name")
	cmd.Flags().StringP("listen", "l", _config.BindAddr, "Listen IP:Port for inbound connections")
	cmd.Flags().String("chain", _config.Chain, "Chain to participate in: mainnet or testnet")
	cmd.Flags().String("network", _config.Network, "Overlay network: validator, public or vfn")
	cmd.Flags().DurationP("timeout", "t", _config.ConnectTimeout, "Dial and handshake timeout")
}

func runNode(cmd *cobra.Command, args []string) error {
	logger := _config.Logger()

	// The node echoes every frame back to its sender, which is what the
	// ping command expects on the other end.
	node, err := zapnet.NewNode(_config, func(conn *transport.SecureConn, payload []byte) {
		logger.WithFields(logrus.Fields{
			"remote_addr": conn.RemoteAddr(),
			"bytes":       len(payload),
		}).Debug("message received")
		if err := conn.WriteMessage(context.Background(), payload); err != nil {
			logger.WithField("error", err).Debug("echo failed")
		}
	})
	if err != nil {
		return err
	}
	if err := node.Listen(); err != nil {
		return err
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signals
	logger.WithField("signal", sig).Info("shutting down")

	return node.Close()
}

// loadConfig merges CLI flags with an optional zapnet.{toml,json,yaml}
// config file in the data directory. Flags win.
func loadConfig(cmd *cobra.Command, args []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	viper.SetConfigName("zapnet")
	viper.AddConfigPath(_config.DataDir)

	if err := viper.ReadInConfig(); err == nil {
		_config.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Logger().Debugf("No config file found in: %s", _config.DataDir)
	} else {
		return err
	}

	return viper.Unmarshal(_config)
}
