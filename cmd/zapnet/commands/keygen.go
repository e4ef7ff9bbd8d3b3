package commands

import (
	"fmt"
	"os"
	"path"

	"github.com/spf13/cobra"

	"github.com/zaplabs/zapnet/crypto"
)

var keyFile string

// NewKeygenCmd produces the command that creates a node identity.
func NewKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create a new node identity",
		RunE:  keygen,
	}
	cmd.Flags().StringVar(&keyFile, "key", _config.Keyfile(), "File where the private key will be written")
	return cmd
}

func keygen(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(keyFile); err == nil {
		return fmt.Errorf("a key already lives under: %s", keyFile)
	}

	if err := os.MkdirAll(path.Dir(keyFile), 0700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}

	keys, err := crypto.LoadOrGenerateIdentity(keyFile)
	if err != nil {
		return fmt.Errorf("generating identity: %w", err)
	}

	pubHex, err := crypto.EncodeKey(keys.Public, crypto.FormatHex)
	if err != nil {
		return err
	}

	fmt.Printf("Your private key has been saved to: %s\n", keyFile)
	fmt.Printf("Public key: %s\n", pubHex)
	return nil
}
