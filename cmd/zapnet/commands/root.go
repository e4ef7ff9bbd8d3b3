package commands

import (
	"github.com/spf13/cobra"

	"github.com/zaplabs/zapnet/config"
)

var _config = config.NewDefaultConfig()

// RootCmd is the root command for zapnet.
var RootCmd = &cobra.Command{
	Use:              "zapnet",
	Short:            "zapnet secure p2p node",
	TraverseChildren: true,
}
