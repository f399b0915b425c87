package cli

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "uniswap-v2-indexer",
	Short:        "Index Uniswap V2 style exchanges across EVM chains",
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Optional YAML/TOML/JSON config file, flags and UNIV2_* env vars take precedence")
	flags.String("chain-config", "", "YAML file overriding or adding chain definitions")
}
