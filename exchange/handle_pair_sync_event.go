package exchange

import (
	"context"
	"fmt"

	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"go.uber.org/zap"
)

// HandlePairSyncEvent is the only writer of reserves and spot prices.
func (s *Subgraph) HandlePairSyncEvent(ctx context.Context, ev *PairSyncEvent) error {
	pc, ok, err := s.loadPairContext(ctx, &ev.LogEvent)
	if err != nil || !ok {
		return err
	}
	token0, token1, pair, factory, bundle := pc.token0, pc.token1, pc.pair, pc.factory, pc.bundle

	s.Log.Debug("handler sync pre dump",
		zap.Uint64("block_num", ev.BlockNumber),
		zap.String("pair", pair.ID),
		zap.Stringer("reserve0", pair.Reserve0),
		zap.Stringer("reserve1", pair.Reserve1),
		zap.Stringer("tracked_reserve_eth", pair.TrackedReserveETH),
	)

	// reset factory liquidity by subtracting only tracked liquidity
	factory.TotalLiquidityETH = factory.TotalLiquidityETH.Sub(pair.TrackedReserveETH)

	// reset token total liquidity amounts
	token0.TotalLiquidity = token0.TotalLiquidity.Sub(pair.Reserve0)
	token1.TotalLiquidity = token1.TotalLiquidity.Sub(pair.Reserve1)

	pair.Reserve0 = entity.ConvertTokenToDecimal(ev.Reserve0, token0.Decimals)
	pair.Reserve1 = entity.ConvertTokenToDecimal(ev.Reserve1, token1.Decimals)
	pair.Token0Price = entity.SafeDiv(pair.Reserve0, pair.Reserve1)
	pair.Token1Price = entity.SafeDiv(pair.Reserve1, pair.Reserve0)

	// the stable pair being synced must price the bundle with its new reserves
	if err := s.Save(ctx, pair); err != nil {
		return fmt.Errorf("saving pair: %w", err)
	}

	ethPrice, err := s.GetEthPriceInUSD(ctx, ev.ChainID)
	if err != nil {
		return fmt.Errorf("computing eth price: %w", err)
	}
	prevEthPrice := bundle.EthPrice
	bundle.EthPrice = ethPrice
	if err := s.Save(ctx, bundle); err != nil {
		return fmt.Errorf("saving bundle: %w", err)
	}
	s.Log.Debug("updated bundle price",
		zap.Stringer("eth_price", ethPrice),
		zap.Stringer("prev_eth_price", prevEthPrice),
		zap.Uint64("block_num", ev.BlockNumber),
	)

	derived0, err := s.FindEthPerToken(ctx, token0)
	if err != nil {
		return fmt.Errorf("deriving price of token0 %s: %w", token0.ID, err)
	}
	derived1, err := s.FindEthPerToken(ctx, token1)
	if err != nil {
		return fmt.Errorf("deriving price of token1 %s: %w", token1.ID, err)
	}
	token0.DerivedETH = derived0
	token1.DerivedETH = derived1

	// get tracked liquidity, will be 0 if neither is priced
	trackedLiquidityETH := entity.ZeroBD
	if ethPrice.IsPositive() {
		trackedLiquidityETH = entity.SafeDiv(
			getTrackedLiquidityUSD(bundle, pair.Reserve0, token0, pair.Reserve1, token1),
			ethPrice,
		)
	}

	// use derived amounts within pair
	pair.TrackedReserveETH = trackedLiquidityETH
	pair.ReserveETH = pair.Reserve0.Mul(token0.DerivedETH).Add(pair.Reserve1.Mul(token1.DerivedETH))
	pair.ReserveUSD = pair.ReserveETH.Mul(ethPrice)

	// use tracked amounts globally
	factory.TotalLiquidityETH = factory.TotalLiquidityETH.Add(trackedLiquidityETH)
	factory.TotalLiquidityUSD = factory.TotalLiquidityETH.Mul(ethPrice)

	// now correctly set liquidity amounts for each token
	token0.TotalLiquidity = token0.TotalLiquidity.Add(pair.Reserve0)
	token1.TotalLiquidity = token1.TotalLiquidity.Add(pair.Reserve1)

	s.Log.Debug("new token prices",
		zap.Stringer("token0", token0.DerivedETH),
		zap.Stringer("token1", token1.DerivedETH),
		zap.Stringer("tracked_liquidity_eth", trackedLiquidityETH),
	)

	if err := s.Save(ctx, pair); err != nil {
		return fmt.Errorf("saving pair: %w", err)
	}
	if err := s.Save(ctx, factory); err != nil {
		return fmt.Errorf("saving factory: %w", err)
	}
	if err := s.Save(ctx, token0); err != nil {
		return fmt.Errorf("saving token0: %w", err)
	}
	if err := s.Save(ctx, token1); err != nil {
		return fmt.Errorf("saving token1: %w", err)
	}
	return nil
}
