package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zaplabs/zapnet/crypto"
	"github.com/zaplabs/zapnet/transport"
)

var pingKeyHex string

// NewPingCmd produces the command that checks connectivity to a remote
// node by completing a full authenticated handshake against it.
func NewPingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ping <address>",
		Short: "Handshake with a remote node and report its capabilities",
		Args:  cobra.ExactArgs(1),
		RunE:  ping,
	}
	cmd.Flags().StringVar(&pingKeyHex, "key", "", "Remote node's public key (hex)")
	cmd.MarkFlagRequired("key")
	cmd.Flags().String("chain", _config.Chain, "Chain to participate in: mainnet or testnet")
	cmd.Flags().String("network", _config.Network, "Overlay network: validator, public or vfn")
	return cmd
}

func ping(cmd *cobra.Command, args []string) error {
	addr := args[0]
	_config.Chain, _ = cmd.Flags().GetString("chain")
	_config.Network, _ = cmd.Flags().GetString("network")

	remotePub, err := crypto.DecodeKey([]byte(pingKeyHex), crypto.FormatHex)
	if err != nil {
		return fmt.Errorf("parsing remote key: %w", err)
	}
	chainID, err := _config.ChainID()
	if err != nil {
		return err
	}
	networkID, err := _config.NetworkID()
	if err != nil {
		return err
	}

	// An ephemeral identity is enough: ping only proves the remote node
	// is alive, speaks our chain and network, and owns the claimed key.
	keys, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}
	handshake := transport.NewHandshakeMsg(chainID, networkID, transport.HealthCheckerRpc)
	tr := transport.NewTransport(keys, handshake, _config.Logger())

	ctx, cancel := context.WithTimeout(context.Background(), _config.ConnectTimeout)
	defer cancel()

	start := time.Now()
	conn, err := tr.Dial(ctx, addr, remotePub)
	if err != nil {
		return fmt.Errorf("ping %s: %w", addr, err)
	}
	defer conn.Close()
	handshakeDone := time.Now()

	// Running nodes echo every frame; a returned ping proves the session
	// works in both directions.
	if err := conn.WriteMessage(ctx, []byte("ping")); err != nil {
		return fmt.Errorf("sending ping: %w", err)
	}
	echo, err := conn.ReadMessage(ctx)
	if err != nil {
		return fmt.Errorf("awaiting echo: %w", err)
	}

	fmt.Printf("Handshake with %s completed in %s\n", addr, handshakeDone.Sub(start).Round(time.Millisecond))
	fmt.Printf("Echo (%q) received in %s\n", echo, time.Since(handshakeDone).Round(time.Millisecond))
	fmt.Printf("Version: %d\n", conn.Version())
	fmt.Printf("Protocols: %s\n", conn.Protocols())
	return nil
}
