package chains

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Builtin(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []uint64{1, 56, 137, 8453, 10143}, r.SupportedChainIDs())

	cfg, found := r.Get(10143)
	require.True(t, found)
	assert.Equal(t, "0x733e88f248b742db6c14c0b1713af5ad7fdd59d0", cfg.FactoryAddress)
	assert.Equal(t, "0xb5a30b0fdc5ea94a52fdc42e3e9760cb8449fb37", cfg.ReferenceToken)
	assert.Equal(t, "0xb5a30b0fdc5ea94a52fdc42e3e9760cb8449fb37", cfg.Whitelist[0])
	assert.True(t, cfg.IsStablecoin("0xF817257FED379853CDE0FA4F97AB987181B1E5EA"))
	assert.True(t, cfg.IsWhitelisted("0x760afe86e5de5fa0ee542fc7b7b713e1c5425701"))
	assert.False(t, cfg.IsWhitelisted("0x0000000000000000000000000000000000000001"))
	assert.True(t, decimal.RequireFromString("1000").Equal(cfg.MinimumUSDThresholdNewPairs))
	assert.True(t, decimal.RequireFromString("0.1").Equal(cfg.MinimumLiquidityThresholdETH))
	assert.Equal(t, "10143-0x733e88f248b742db6c14c0b1713af5ad7fdd59d0", cfg.FactoryID())

	_, found = r.Get(999)
	assert.False(t, found)
	assert.Panics(t, func() { r.MustGet(999) })
}

func TestRegistry_StaticDefinitions(t *testing.T) {
	cfg, found := Get(1)
	require.True(t, found)

	def, found := cfg.StaticDefinition("0xE0B7927C4AF23765CB51314A0E0521A9645F0E2A")
	require.True(t, found)
	assert.Equal(t, "DGD", def.Symbol)
	assert.Equal(t, int64(9), def.Decimals)

	assert.True(t, cfg.SkipsTotalSupply("0x0000000000bf2686748e1c0255036e7617e7e8a5"))
	assert.False(t, cfg.SkipsTotalSupply("0x6b175474e89094c44da98b954eedeac495271d0f"))
}

func TestRegistry_StaticDefinitionsKeyedByAddress(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Set(&Config{
		ChainID:        5,
		FactoryAddress: "0xabc",
		ReferenceToken: "0xdef",
		StaticTokenDefinitions: map[string]TokenDefinition{
			"0xAAAA": {Symbol: "AAA", Decimals: 6},
			"0xbbbb": {Address: "0xBBBB", Symbol: "BBB", Decimals: 8},
		},
	}))

	cfg := r.MustGet(5)
	def, found := cfg.StaticDefinition("0xaaaa")
	require.True(t, found)
	assert.Equal(t, "AAA", def.Symbol)
	assert.Equal(t, "0xaaaa", def.Address)

	def, found = cfg.StaticDefinition("0xBBBB")
	require.True(t, found)
	assert.Equal(t, int64(8), def.Decimals)
}

func TestRegistry_Set(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Set(&Config{ChainID: 5}))
	assert.Error(t, r.Set(&Config{FactoryAddress: "0x1", ReferenceToken: "0x2"}))

	require.NoError(t, r.Set(&Config{ChainID: 5, FactoryAddress: "0xABC", ReferenceToken: "0xDEF"}))
	cfg := r.MustGet(5)
	assert.Equal(t, "0xabc", cfg.FactoryAddress)
	assert.Equal(t, "0xdef", cfg.ReferenceToken)
}

func TestDecodeYamlConfigs(t *testing.T) {
	content := `
chains:
  - chainId: 31337
    name: devnet
    factory: "0xAAAA000000000000000000000000000000000001"
    referenceToken: "0xBBBB000000000000000000000000000000000002"
    whitelist:
      - "0xBBBB000000000000000000000000000000000002"
    stablecoins:
      - "0xCCCC000000000000000000000000000000000003"
    minimumUsdThresholdNewPairs: "250.5"
    minimumLiquidityThresholdEth: "0.01"
    staticTokenDefinitions:
      - address: "0xDDDD000000000000000000000000000000000004"
        symbol: DEV
        name: Dev Token
        decimals: 6
`
	dir := t.TempDir()
	path := filepath.Join(dir, "chains.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r := NewRegistry()
	require.NoError(t, r.LoadFile(path))

	cfg := r.MustGet(31337)
	assert.Equal(t, "devnet", cfg.Name)
	assert.Equal(t, "0xaaaa000000000000000000000000000000000001", cfg.FactoryAddress)
	assert.True(t, cfg.IsStablecoin("0xcccc000000000000000000000000000000000003"))
	assert.True(t, decimal.RequireFromString("250.5").Equal(cfg.MinimumUSDThresholdNewPairs))

	def, found := cfg.StaticDefinition("0xdddd000000000000000000000000000000000004")
	require.True(t, found)
	assert.Equal(t, int64(6), def.Decimals)
}

func TestDecodeYamlConfigs_BadThreshold(t *testing.T) {
	_, err := DecodeYamlConfigs([]byte(`
chains:
  - chainId: 1
    factory: "0x1"
    referenceToken: "0x2"
    minimumUsdThresholdNewPairs: "lots"
`))
	assert.Error(t, err)
}
