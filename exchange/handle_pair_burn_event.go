package exchange

import (
	"context"
	"fmt"

	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"go.uber.org/zap"
)

func (s *Subgraph) HandlePairBurnEvent(ctx context.Context, ev *PairBurnEvent) error {
	trx := NewTransaction(transactionID(&ev.LogEvent))
	if err := s.Load(ctx, trx); err != nil {
		return fmt.Errorf("loading transaction %s: %w", trx.ID, err)
	}

	// safety check
	if !trx.Exists() {
		s.Log.Warn("burn without transaction, dropping",
			zap.String("trx_hash", ev.TransactionHash.Pretty()),
			zap.Uint64("log_index", ev.LogIndex),
		)
		return nil
	}

	pairID := entityID(ev.ChainID, pretty(ev.Address))
	burns, err := s.pairBurns(ctx, trx.ID, pairID)
	if err != nil {
		return err
	}

	var burn *Burn
	for i := len(burns) - 1; i >= 0; i-- {
		if !burns[i].Completed() {
			burn = burns[i]
			break
		}
	}
	if burn == nil {
		s.Log.Warn("burn event without a pending burn, dropping",
			zap.String("pair", pairID),
			zap.String("trx_hash", ev.TransactionHash.Pretty()),
			zap.Uint64("log_index", ev.LogIndex),
		)
		return nil
	}

	pc, ok, err := s.loadPairContext(ctx, &ev.LogEvent)
	if err != nil || !ok {
		return err
	}
	token0, token1, pair, factory, bundle := pc.token0, pc.token1, pc.pair, pc.factory, pc.bundle

	token0Amount := entity.ConvertTokenToDecimal(ev.Amount0, token0.Decimals)
	token1Amount := entity.ConvertTokenToDecimal(ev.Amount1, token1.Decimals)

	amountTotalUSD := token1.DerivedETH.Mul(token1Amount).
		Add(token0.DerivedETH.Mul(token0Amount)).
		Mul(bundle.EthPrice)

	token0.TxCount++
	token1.TxCount++
	pair.TxCount++
	factory.TxCount++

	sender := pretty(ev.Sender)
	to := pretty(ev.To)
	burn.Sender = &sender
	burn.To = &to
	burn.Amount0 = &token0Amount
	burn.Amount1 = &token1Amount
	burn.LogIndex = ev.LogIndex
	burn.AmountUSD = &amountTotalUSD

	s.Log.Debug("completed burn",
		zap.String("burn", burn.ID),
		zap.Stringer("amount0", token0Amount),
		zap.Stringer("amount1", token1Amount),
		zap.Stringer("amount_usd", amountTotalUSD),
	)

	if err := s.Save(ctx, token0); err != nil {
		return fmt.Errorf("saving token0: %w", err)
	}
	if err := s.Save(ctx, token1); err != nil {
		return fmt.Errorf("saving token1: %w", err)
	}
	if err := s.Save(ctx, pair); err != nil {
		return fmt.Errorf("saving pair: %w", err)
	}
	if err := s.Save(ctx, factory); err != nil {
		return fmt.Errorf("saving factory: %w", err)
	}
	if err := s.Save(ctx, burn); err != nil {
		return fmt.Errorf("saving burn: %w", err)
	}

	if _, err := s.updateBuckets(ctx, pc, &ev.LogEvent); err != nil {
		return err
	}
	return nil
}
