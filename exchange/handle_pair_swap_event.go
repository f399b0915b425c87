package exchange

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"go.uber.org/zap"
)

// poolFee is the share of swap volume paid to liquidity providers.
var poolFee = decimal.RequireFromString("0.003")

func (s *Subgraph) HandlePairSwapEvent(ctx context.Context, ev *PairSwapEvent) error {
	s.Log.Debug("handling swap event",
		zap.Uint64("block_num", ev.BlockNumber),
		zap.String("trx_hash", ev.TransactionHash.Pretty()),
		zap.String("pair", pretty(ev.Address)),
	)

	pc, ok, err := s.loadPairContext(ctx, &ev.LogEvent)
	if err != nil || !ok {
		return err
	}
	token0, token1, pair, factory, bundle := pc.token0, pc.token1, pc.pair, pc.factory, pc.bundle

	amount0In := entity.ConvertTokenToDecimal(ev.Amount0In, token0.Decimals)
	amount1In := entity.ConvertTokenToDecimal(ev.Amount1In, token1.Decimals)
	amount0Out := entity.ConvertTokenToDecimal(ev.Amount0Out, token0.Decimals)
	amount1Out := entity.ConvertTokenToDecimal(ev.Amount1Out, token1.Decimals)

	// totals for volume updates
	amount0Total := amount0Out.Add(amount0In)
	amount1Total := amount1Out.Add(amount1In)

	// ETH/USD prices
	derivedAmountETH := entity.SafeDiv(
		token1.DerivedETH.Mul(amount1Total).Add(token0.DerivedETH.Mul(amount0Total)),
		entity.TwoBD,
	)
	derivedAmountUSD := derivedAmountETH.Mul(bundle.EthPrice)

	// only accounts for volume through white listed tokens
	trackedAmountUSD := getTrackedVolumeUSD(pc.cfg, bundle, amount0Total, token0, amount1Total, token1, pair)
	trackedAmountETH := entity.SafeDiv(trackedAmountUSD, bundle.EthPrice)

	s.Log.Debug("swap amounts",
		zap.Stringer("amount0_total", amount0Total),
		zap.Stringer("amount1_total", amount1Total),
		zap.Stringer("tracked_usd", trackedAmountUSD),
		zap.Stringer("derived_usd", derivedAmountUSD),
	)

	// update token0 global volume and token liquidity stats
	token0.TradeVolume = token0.TradeVolume.Add(amount0Total)
	token0.TradeVolumeUSD = token0.TradeVolumeUSD.Add(trackedAmountUSD)
	token0.UntrackedVolumeUSD = token0.UntrackedVolumeUSD.Add(derivedAmountUSD)
	token0.TxCount++

	// update token1 global volume and token liquidity stats
	token1.TradeVolume = token1.TradeVolume.Add(amount1Total)
	token1.TradeVolumeUSD = token1.TradeVolumeUSD.Add(trackedAmountUSD)
	token1.UntrackedVolumeUSD = token1.UntrackedVolumeUSD.Add(derivedAmountUSD)
	token1.TxCount++

	// update pair volume data, use tracked amount if we have it as its probably more accurate
	pair.VolumeUSD = pair.VolumeUSD.Add(trackedAmountUSD)
	pair.VolumeToken0 = pair.VolumeToken0.Add(amount0Total)
	pair.VolumeToken1 = pair.VolumeToken1.Add(amount1Total)
	pair.UntrackedVolumeUSD = pair.UntrackedVolumeUSD.Add(derivedAmountUSD)
	pair.TxCount++

	// update global values, only used tracked amounts for volume
	factory.TotalVolumeUSD = factory.TotalVolumeUSD.Add(trackedAmountUSD)
	factory.TotalVolumeETH = factory.TotalVolumeETH.Add(trackedAmountETH)
	factory.UntrackedVolumeUSD = factory.UntrackedVolumeUSD.Add(derivedAmountUSD)
	factory.TxCount++

	if err := s.Save(ctx, pair); err != nil {
		return fmt.Errorf("saving pair: %w", err)
	}
	if err := s.Save(ctx, token0); err != nil {
		return fmt.Errorf("saving token0: %w", err)
	}
	if err := s.Save(ctx, token1); err != nil {
		return fmt.Errorf("saving token1: %w", err)
	}
	if err := s.Save(ctx, factory); err != nil {
		return fmt.Errorf("saving factory: %w", err)
	}

	trx, err := s.getOrCreateTransaction(ctx, &ev.LogEvent)
	if err != nil {
		return err
	}

	swap := NewSwap(eventID(&ev.LogEvent, ev.LogIndex))
	swap.Transaction = trx.ID
	swap.Pair = pair.ID
	swap.Timestamp = trx.Timestamp
	swap.Sender = pretty(ev.Sender)
	swap.From = swap.Sender
	if len(ev.TransactionFrom) != 0 {
		swap.From = pretty(ev.TransactionFrom)
	}
	swap.Amount0In = amount0In
	swap.Amount1In = amount1In
	swap.Amount0Out = amount0Out
	swap.Amount1Out = amount1Out
	swap.To = pretty(ev.To)
	swap.LogIndex = ev.LogIndex
	// use the tracked amount if we have it
	swap.AmountUSD = derivedAmountUSD
	if !trackedAmountUSD.IsZero() {
		swap.AmountUSD = trackedAmountUSD
	}
	if err := s.Save(ctx, swap); err != nil {
		return fmt.Errorf("saving swap: %w", err)
	}

	b, err := s.updateBuckets(ctx, pc, &ev.LogEvent)
	if err != nil {
		return err
	}

	// swap specific updating
	b.uniswapDay.DailyVolumeUSD = b.uniswapDay.DailyVolumeUSD.Add(trackedAmountUSD)
	b.uniswapDay.DailyVolumeETH = b.uniswapDay.DailyVolumeETH.Add(trackedAmountETH)
	b.uniswapDay.DailyVolumeUntracked = b.uniswapDay.DailyVolumeUntracked.Add(derivedAmountUSD)
	if err := s.Save(ctx, b.uniswapDay); err != nil {
		return fmt.Errorf("saving uniswap_day_data: %w", err)
	}

	b.pairDay.DailyVolumeToken0 = b.pairDay.DailyVolumeToken0.Add(amount0Total)
	b.pairDay.DailyVolumeToken1 = b.pairDay.DailyVolumeToken1.Add(amount1Total)
	b.pairDay.DailyVolumeUSD = b.pairDay.DailyVolumeUSD.Add(trackedAmountUSD)
	if err := s.Save(ctx, b.pairDay); err != nil {
		return fmt.Errorf("saving pair_day_data: %w", err)
	}

	b.pairHour.HourlyVolumeToken0 = b.pairHour.HourlyVolumeToken0.Add(amount0Total)
	b.pairHour.HourlyVolumeToken1 = b.pairHour.HourlyVolumeToken1.Add(amount1Total)
	b.pairHour.HourlyVolumeUSD = b.pairHour.HourlyVolumeUSD.Add(trackedAmountUSD)
	if err := s.Save(ctx, b.pairHour); err != nil {
		return fmt.Errorf("saving pair_hour_data: %w", err)
	}

	for _, side := range []struct {
		token  *Token
		day    *TokenDayData
		hour   *TokenHourData
		amount decimal.Decimal
	}{
		{token0, b.token0Day, b.token0Hour, amount0Total},
		{token1, b.token1Day, b.token1Hour, amount1Total},
	} {
		side.day.DailyVolumeToken = side.day.DailyVolumeToken.Add(side.amount)
		side.day.DailyVolumeETH = side.day.DailyVolumeETH.Add(side.amount.Mul(side.token.DerivedETH))
		side.day.DailyVolumeUSD = side.day.DailyVolumeUSD.Add(side.amount.Mul(side.token.DerivedETH).Mul(bundle.EthPrice))
		if err := s.Save(ctx, side.day); err != nil {
			return fmt.Errorf("saving token_day_data: %w", err)
		}

		side.hour.Volume = side.hour.Volume.Add(side.amount)
		side.hour.VolumeUSD = side.hour.VolumeUSD.Add(trackedAmountUSD)
		side.hour.UntrackedVolumeUSD = side.hour.UntrackedVolumeUSD.Add(derivedAmountUSD)
		side.hour.FeesUSD = side.hour.FeesUSD.Add(trackedAmountUSD.Mul(poolFee))
		if err := s.Save(ctx, side.hour); err != nil {
			return fmt.Errorf("saving token_hour_data: %w", err)
		}
	}

	return nil
}
