package exchange

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/streamingfast/uniswap-v2-indexer/chains"
	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"go.uber.org/zap"
)

// GetEthPriceInUSD averages the reference token price over the chain's stable
// pairs, weighted by the reference token reserve of each pair.
func (s *Subgraph) GetEthPriceInUSD(ctx context.Context, chainID uint64) (decimal.Decimal, error) {
	cfg, found := s.chainConfig(chainID)
	if !found || len(cfg.StableTokenPairs) == 0 {
		return entity.ZeroBD, nil
	}

	referenceID := entityID(chainID, cfg.ReferenceToken)

	var reserves, prices []decimal.Decimal
	totalLiquidityETH := entity.ZeroBD
	for _, address := range cfg.StableTokenPairs {
		pair := NewPair(entityID(chainID, address))
		if err := s.Load(ctx, pair); err != nil {
			return entity.ZeroBD, fmt.Errorf("loading stable pair %s: %w", pair.ID, err)
		}
		if !pair.Exists() {
			continue
		}

		if pair.Token1 == referenceID {
			reserves = append(reserves, pair.Reserve1)
			prices = append(prices, pair.Token0Price)
		} else {
			reserves = append(reserves, pair.Reserve0)
			prices = append(prices, pair.Token1Price)
		}
		totalLiquidityETH = totalLiquidityETH.Add(reserves[len(reserves)-1])
	}

	price := entity.ZeroBD
	for i := range reserves {
		price = price.Add(prices[i].Mul(entity.SafeDiv(reserves[i], totalLiquidityETH)))
	}
	return price, nil
}

// FindEthPerToken derives the token price in reference token units. The
// whitelist is walked in configured order and the first pair holding enough
// liquidity wins, even if a later one is deeper.
func (s *Subgraph) FindEthPerToken(ctx context.Context, token *Token) (decimal.Decimal, error) {
	chainID, address := splitID(token.ID)
	cfg, found := s.chainConfig(chainID)
	if !found {
		return entity.ZeroBD, nil
	}

	if address == cfg.ReferenceToken {
		return entity.OneBD, nil
	}

	if cfg.IsStablecoin(address) {
		bundle := NewBundle(bundleID(chainID))
		if err := s.Load(ctx, bundle); err != nil {
			return entity.ZeroBD, fmt.Errorf("loading bundle: %w", err)
		}
		return entity.SafeDiv(entity.OneBD, bundle.EthPrice), nil
	}

	for _, other := range cfg.Whitelist {
		lookup := NewPairTokenLookup(entityID(chainID, address, other))
		if err := s.Load(ctx, lookup); err != nil {
			return entity.ZeroBD, fmt.Errorf("loading pair lookup %s: %w", lookup.ID, err)
		}
		if !lookup.Exists() {
			continue
		}

		pair := NewPair(lookup.Pair)
		if err := s.Load(ctx, pair); err != nil {
			return entity.ZeroBD, fmt.Errorf("loading pair %s: %w", lookup.Pair, err)
		}
		if !pair.Exists() || !pair.ReserveETH.GreaterThan(cfg.MinimumLiquidityThresholdETH) {
			continue
		}

		var counterpartID string
		var price decimal.Decimal
		switch token.ID {
		case pair.Token0:
			counterpartID, price = pair.Token1, pair.Token1Price
		case pair.Token1:
			counterpartID, price = pair.Token0, pair.Token0Price
		default:
			continue
		}

		counterpart := NewToken(counterpartID)
		if err := s.Load(ctx, counterpart); err != nil {
			return entity.ZeroBD, fmt.Errorf("loading token %s: %w", counterpartID, err)
		}
		if !counterpart.Exists() {
			continue
		}

		s.Log.Debug("derived price from whitelist pair",
			zap.String("token", token.ID),
			zap.String("pair", pair.ID),
			zap.Stringer("price", price),
		)
		return price.Mul(counterpart.DerivedETH), nil
	}

	return entity.ZeroBD, nil
}

// getTrackedVolumeUSD values a swap on both sides. Pairs with fewer than five
// liquidity providers must already hold the chain's minimum USD reserve,
// otherwise the volume is not tracked.
func getTrackedVolumeUSD(cfg *chains.Config, bundle *Bundle, tokenAmount0 decimal.Decimal, token0 *Token, tokenAmount1 decimal.Decimal, token1 *Token, pair *Pair) decimal.Decimal {
	if bundle.EthPrice.IsZero() || token0.DerivedETH.IsZero() || token1.DerivedETH.IsZero() {
		return entity.ZeroBD
	}

	price0 := token0.DerivedETH.Mul(bundle.EthPrice)
	price1 := token1.DerivedETH.Mul(bundle.EthPrice)

	if pair.LiquidityProviderCount < 5 {
		reserveUSD := pair.Reserve0.Mul(price0).Add(pair.Reserve1.Mul(price1))
		if reserveUSD.LessThan(cfg.MinimumUSDThresholdNewPairs) {
			return entity.ZeroBD
		}
	}

	sum := tokenAmount0.Mul(price0).Add(tokenAmount1.Mul(price1))
	return entity.SafeDiv(sum, entity.TwoBD)
}

func getTrackedLiquidityUSD(bundle *Bundle, tokenAmount0 decimal.Decimal, token0 *Token, tokenAmount1 decimal.Decimal, token1 *Token) decimal.Decimal {
	price0 := token0.DerivedETH.Mul(bundle.EthPrice)
	price1 := token1.DerivedETH.Mul(bundle.EthPrice)

	return tokenAmount0.Mul(price0).Add(tokenAmount1.Mul(price1))
}

// getTokenTrackedLiquidityUSD is the USD value of one side of a pair plus its
// companion side.
func getTokenTrackedLiquidityUSD(bundle *Bundle, tokenForPricing *Token, tokenForPricingAmount, companionTokenAmount decimal.Decimal, companionToken *Token) decimal.Decimal {
	return getTrackedLiquidityUSD(bundle, tokenForPricingAmount, tokenForPricing, companionTokenAmount, companionToken)
}
