package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List the supported chains and their configuration",
	Args:  cobra.NoArgs,
	RunE:  runChains,
}

func init() {
	rootCmd.AddCommand(chainsCmd)
}

func runChains(cmd *cobra.Command, _ []string) error {
	config, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	registry, err := loadRegistry(config)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, chainID := range registry.SupportedChainIDs() {
		cfg := registry.MustGet(chainID)
		fmt.Fprintf(out, "%-8d %s\n", cfg.ChainID, cfg.Name)
		fmt.Fprintf(out, "  factory:           %s\n", cfg.FactoryAddress)
		fmt.Fprintf(out, "  reference token:   %s\n", cfg.ReferenceToken)
		fmt.Fprintf(out, "  stable pairs:      %d\n", len(cfg.StableTokenPairs))
		fmt.Fprintf(out, "  whitelist:         %d tokens\n", len(cfg.Whitelist))
		fmt.Fprintf(out, "  min usd new pair:  %s\n", cfg.MinimumUSDThresholdNewPairs)
		fmt.Fprintf(out, "  min eth liquidity: %s\n", cfg.MinimumLiquidityThresholdETH)
	}
	return nil
}
