package exchange

import (
	"context"
	"fmt"

	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"go.uber.org/zap"
)

func (s *Subgraph) HandlePairMintEvent(ctx context.Context, ev *PairMintEvent) error {
	trx := NewTransaction(transactionID(&ev.LogEvent))
	if err := s.Load(ctx, trx); err != nil {
		return fmt.Errorf("loading transaction %s: %w", trx.ID, err)
	}

	// safety check
	if !trx.Exists() {
		s.Log.Warn("mint without transaction, dropping",
			zap.String("trx_hash", ev.TransactionHash.Pretty()),
			zap.Uint64("log_index", ev.LogIndex),
		)
		return nil
	}

	pairID := entityID(ev.ChainID, pretty(ev.Address))
	mints, err := s.pairMints(ctx, trx.ID, pairID)
	if err != nil {
		return err
	}

	var mint *Mint
	for i := len(mints) - 1; i >= 0; i-- {
		if !mints[i].Completed() {
			mint = mints[i]
			break
		}
	}
	if mint == nil {
		s.Log.Warn("mint event without a pending mint, dropping",
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

	// get new amounts of USD and ETH for tracking
	amountTotalUSD := token1.DerivedETH.Mul(token1Amount).
		Add(token0.DerivedETH.Mul(token0Amount)).
		Mul(bundle.EthPrice)

	token0.TxCount++
	token1.TxCount++
	pair.TxCount++
	factory.TxCount++

	sender := pretty(ev.Sender)
	mint.Sender = &sender
	mint.Amount0 = &token0Amount
	mint.Amount1 = &token1Amount
	mint.LogIndex = ev.LogIndex
	mint.AmountUSD = &amountTotalUSD

	s.Log.Debug("completed mint",
		zap.String("mint", mint.ID),
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
	if err := s.Save(ctx, mint); err != nil {
		return fmt.Errorf("saving mint: %w", err)
	}

	if _, err := s.updateBuckets(ctx, pc, &ev.LogEvent); err != nil {
		return err
	}
	return nil
}
