package chains

import (
	"github.com/shopspring/decimal"
)

func builtin() []*Config {
	return []*Config{
		{
			ChainID:        1,
			Name:           "ethereum",
			FactoryAddress: "0x5c69bee701ef814a2b6a3edd4b1652cb9cc5aa6f",
			ReferenceToken: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", // WETH
			StableTokenPairs: []string{
				"0xa478c2975ab1ea89e8196811f51a7b7ade33eb11", // DAI/WETH
				"0xb4e16d0168e52d35cacd2c6185b44281ec28c9dc", // USDC/WETH
				"0x0d4a11d5eeaac28ec3f61d100daf4d40471f1852", // WETH/USDT
			},
			Whitelist: []string{
				"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", // WETH
				"0x6b175474e89094c44da98b954eedeac495271d0f", // DAI
				"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", // USDC
				"0xdac17f958d2ee523a2206206994597c13d831ec7", // USDT
				"0x0000000000085d4780b73119b644ae5ecd22b376", // TUSD
				"0x2260fac5e5542a773aa44fbcfedf7c193bc2c599", // WBTC
			},
			Stablecoins: []string{
				"0x6b175474e89094c44da98b954eedeac495271d0f", // DAI
				"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", // USDC
				"0xdac17f958d2ee523a2206206994597c13d831ec7", // USDT
			},
			MinimumUSDThresholdNewPairs:  decimal.RequireFromString("50000"),
			MinimumLiquidityThresholdETH: decimal.RequireFromString("2"),
			StaticTokenDefinitions: definitions(
				TokenDefinition{Address: "0xe0b7927c4af23765cb51314a0e0521a9645f0e2a", Symbol: "DGD", Name: "DGD", Decimals: 9},
				TokenDefinition{Address: "0x7fc66500c84a76ad7e9c93437bfc5ac33e2ddae9", Symbol: "AAVE", Name: "Aave Token", Decimals: 18},
				TokenDefinition{Address: "0xeb9951021698b42e4399f9cbb6267aa35f82d59d", Symbol: "LIF", Name: "Lif", Decimals: 18},
				TokenDefinition{Address: "0xbdeb4b83251fb146687fa19d1c660f99411eefe3", Symbol: "SVD", Name: "savedroid", Decimals: 18},
				TokenDefinition{Address: "0xbb9bc244d798123fde783fcc1c72d3bb8c189413", Symbol: "TheDAO", Name: "TheDAO", Decimals: 16},
				TokenDefinition{Address: "0x38c6a68304cdefb9bec48bbfaaba5c5b47818bb2", Symbol: "HPB", Name: "HPBCoin", Decimals: 18},
			),
			SkipTotalSupply: []string{
				"0x0000000000bf2686748e1c0255036e7617e7e8a5",
			},
		},
		{
			ChainID:        56,
			Name:           "bsc",
			FactoryAddress: "0x8909Dc15e40173Ff4699343b6eB8132c65e18eC6",
			ReferenceToken: "0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c", // WBNB
			StableTokenPairs: []string{
				"0x8a1ed8e124fdfbd534bf48baf732e26db9cc0cf4", // USDT/WBNB
			},
			Whitelist: []string{
				"0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c", // WBNB
				"0x55d398326f99059ff775485246999027b3197955", // USDT
			},
			Stablecoins: []string{
				"0x55d398326f99059ff775485246999027b3197955", // USDT
				"0x8ac76a51cc950d9822d68b83fe1ad97b32cd580d", // USDC
			},
			MinimumUSDThresholdNewPairs:  decimal.RequireFromString("10000"),
			MinimumLiquidityThresholdETH: decimal.RequireFromString("1"),
		},
		{
			ChainID:        137,
			Name:           "matic",
			FactoryAddress: "0x9e5A52f57b3038F1B8EeE45F28b3C1967e22799C",
			ReferenceToken: "0x0d500b1d8e8ef31e21c99d1db9a6444d3adf1270", // WMATIC
			StableTokenPairs: []string{
				"0x1f0c5400a3c7e357cc7c9a3d2f7fe6ddf629d868", // WMATIC/USDC
			},
			Whitelist: []string{
				"0x0d500b1d8e8ef31e21c99d1db9a6444d3adf1270", // WMATIC
				"0x3c499c542cef5e3811e1192ce70d8cc03d5c3359", // USDC
			},
			Stablecoins: []string{
				"0x3c499c542cef5e3811e1192ce70d8cc03d5c3359", // USDC
			},
			MinimumUSDThresholdNewPairs:  decimal.RequireFromString("10000"),
			MinimumLiquidityThresholdETH: decimal.RequireFromString("1"),
		},
		{
			ChainID:        8453,
			Name:           "base",
			FactoryAddress: "0x8909Dc15e40173Ff4699343b6eB8132c65e18eC6",
			ReferenceToken: "0x4200000000000000000000000000000000000006", // WETH
			Whitelist: []string{
				"0x4200000000000000000000000000000000000006", // WETH
			},
			MinimumUSDThresholdNewPairs:  decimal.RequireFromString("10000"),
			MinimumLiquidityThresholdETH: decimal.RequireFromString("1"),
		},
		{
			ChainID:        10143,
			Name:           "monad-testnet",
			FactoryAddress: "0x733e88f248b742db6c14c0b1713af5ad7fdd59d0",
			ReferenceToken: "0xB5a30b0FDc5EA94A52fDc42e3E9760Cb8449Fb37", // WETH
			StableTokenPairs: []string{
				"0xfe9241e7b94bf0f5f0d8de0851c9421a38b54916", // USDC/WETH
				"0x132Cb626Be0dD6EB3b53FbeB392838c7A7b93621",
			},
			Whitelist: []string{
				"0xB5a30b0FDc5EA94A52fDc42e3E9760Cb8449Fb37", // WETH
				"0x760AfE86e5de5fa0Ee542fc7B7B713e1c5425701", // WMON
				"0xf817257fed379853cDe0fa4F97AB987181B1E5Ea", // USDC
				"0x88b8E2161DEDC77EF4ab7585569D2415a1C1055D", // USDT
			},
			Stablecoins: []string{
				"0xf817257fed379853cDe0fa4F97AB987181B1E5Ea", // USDC
				"0x88b8E2161DEDC77EF4ab7585569D2415a1C1055D", // USDT
			},
			// testnet liquidity is thin
			MinimumUSDThresholdNewPairs:  decimal.RequireFromString("1000"),
			MinimumLiquidityThresholdETH: decimal.RequireFromString("0.1"),
		},
	}
}

func definitions(defs ...TokenDefinition) map[string]TokenDefinition {
	out := make(map[string]TokenDefinition, len(defs))
	for _, def := range defs {
		out[def.Address] = def
	}
	return out
}
