package main

import (
	"os"

	"github.com/zaplabs/zapnet/cmd/zapnet/commands"
)

func main() {
	rootCmd := commands.RootCmd

	rootCmd.AddCommand(
		commands.NewKeygenCmd(),
		commands.NewRunCmd(),
		commands.NewPingCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
