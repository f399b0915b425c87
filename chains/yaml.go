package chains

import (
	"bytes"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	Chains []*yamlChain `yaml:"chains"`
}

type yamlChain struct {
	ChainID                      uint64            `yaml:"chainId"`
	Name                         string            `yaml:"name"`
	FactoryAddress               string            `yaml:"factory"`
	ReferenceToken               string            `yaml:"referenceToken"`
	StableTokenPairs             []string          `yaml:"stableTokenPairs"`
	Whitelist                    []string          `yaml:"whitelist"`
	Stablecoins                  []string          `yaml:"stablecoins"`
	MinimumUSDThresholdNewPairs  string            `yaml:"minimumUsdThresholdNewPairs"`
	MinimumLiquidityThresholdETH string            `yaml:"minimumLiquidityThresholdEth"`
	StaticTokenDefinitions       []TokenDefinition `yaml:"staticTokenDefinitions"`
	SkipTotalSupply              []string          `yaml:"skipTotalSupply"`
}

func DecodeYamlConfigsFromFile(yamlFilePath string) ([]*Config, error) {
	content, err := os.ReadFile(yamlFilePath)
	if err != nil {
		return nil, fmt.Errorf("reading chain config file %q: %w", yamlFilePath, err)
	}

	configs, err := DecodeYamlConfigs(content)
	if err != nil {
		return nil, fmt.Errorf("decoding chain config file %q: %w", yamlFilePath, err)
	}
	return configs, nil
}

func DecodeYamlConfigs(content []byte) ([]*Config, error) {
	var file yamlFile
	if err := yaml.NewDecoder(bytes.NewReader(content)).Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}

	out := make([]*Config, 0, len(file.Chains))
	for _, c := range file.Chains {
		usd, err := parseThreshold(c.MinimumUSDThresholdNewPairs)
		if err != nil {
			return nil, fmt.Errorf("chain %d: minimumUsdThresholdNewPairs: %w", c.ChainID, err)
		}
		eth, err := parseThreshold(c.MinimumLiquidityThresholdETH)
		if err != nil {
			return nil, fmt.Errorf("chain %d: minimumLiquidityThresholdEth: %w", c.ChainID, err)
		}

		out = append(out, &Config{
			ChainID:                      c.ChainID,
			Name:                         c.Name,
			FactoryAddress:               c.FactoryAddress,
			ReferenceToken:               c.ReferenceToken,
			StableTokenPairs:             c.StableTokenPairs,
			Whitelist:                    c.Whitelist,
			Stablecoins:                  c.Stablecoins,
			MinimumUSDThresholdNewPairs:  usd,
			MinimumLiquidityThresholdETH: eth,
			StaticTokenDefinitions:       definitions(c.StaticTokenDefinitions...),
			SkipTotalSupply:              c.SkipTotalSupply,
		})
	}
	return out, nil
}

// LoadFile decodes the file and installs every chain it declares, replacing
// built-in entries with the same id.
func (r *Registry) LoadFile(yamlFilePath string) error {
	configs, err := DecodeYamlConfigsFromFile(yamlFilePath)
	if err != nil {
		return err
	}
	for _, cfg := range configs {
		if err := r.Set(cfg); err != nil {
			return fmt.Errorf("installing chain config from %q: %w", yamlFilePath, err)
		}
	}
	return nil
}

func parseThreshold(in string) (decimal.Decimal, error) {
	if in == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(in)
}
