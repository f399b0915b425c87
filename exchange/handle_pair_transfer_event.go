package exchange

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"go.uber.org/zap"
)

// minimumLiquidity is the amount locked to the zero address by a pair's first
// mint.
var minimumLiquidity = big.NewInt(1000)

func (s *Subgraph) HandlePairTransferEvent(ctx context.Context, ev *PairTransferEvent) error {
	s.Log.Debug("handling transfer event",
		zap.Uint64("block_num", ev.BlockNumber),
		zap.String("trx_hash", ev.TransactionHash.Pretty()),
		zap.String("from", pretty(ev.From)),
		zap.String("to", pretty(ev.To)),
		zap.Stringer("value", ev.Value),
	)

	from, to := pretty(ev.From), pretty(ev.To)

	// Initial liquidity.
	if to == ZeroAddress && ev.Value != nil && ev.Value.Cmp(minimumLiquidity) == 0 {
		return nil
	}

	cfg, found := s.chainConfig(ev.ChainID)
	if !found {
		return nil
	}

	factory := NewUniswapFactory(cfg.FactoryID())
	if err := s.Load(ctx, factory); err != nil {
		return fmt.Errorf("loading factory: %w", err)
	}
	if !factory.Exists() {
		s.Log.Debug("factory not found, skipping transfer", zap.String("factory", factory.ID))
		return nil
	}

	pair := NewPair(entityID(ev.ChainID, pretty(ev.Address)))
	if err := s.Load(ctx, pair); err != nil {
		return fmt.Errorf("loading pair id %s: %w", pair.ID, err)
	}
	if !pair.Exists() {
		s.Log.Debug("pair not found, skipping transfer", zap.String("pair", pair.ID))
		return nil
	}
	pairAddress := addressOf(pair.ID)

	for _, address := range []string{from, to} {
		if err := s.createUser(ctx, ev.ChainID, address); err != nil {
			return err
		}
	}

	// liquidity token amount being transferred
	value := entity.ConvertTokenToDecimal(ev.Value, entity.BI18)

	trx, err := s.getOrCreateTransaction(ctx, &ev.LogEvent)
	if err != nil {
		return err
	}

	if err := s.updateLiquidityPositions(ctx, pair, from, to, value); err != nil {
		return err
	}

	// mints
	if from == ZeroAddress {
		pair.TotalSupply = pair.TotalSupply.Add(value)

		mints, err := s.pairMints(ctx, trx.ID, pair.ID)
		if err != nil {
			return err
		}

		// create new mint if no mints so far or if last one is done already
		if len(mints) == 0 || mints[len(mints)-1].Completed() {
			mint := NewMint(eventID(&ev.LogEvent, ev.LogIndex))
			mint.Transaction = trx.ID
			mint.Pair = pair.ID
			mint.To = to
			mint.Liquidity = value
			mint.Timestamp = trx.Timestamp
			mint.LogIndex = ev.LogIndex
			if err := s.Save(ctx, mint); err != nil {
				return fmt.Errorf("saving new mint: %w", err)
			}
		}
	}

	// case where direct send first on native withdrawals
	if to == pairAddress {
		sender := from
		burnTo := to
		burn := NewBurn(eventID(&ev.LogEvent, ev.LogIndex))
		burn.Transaction = trx.ID
		burn.Pair = pair.ID
		burn.Liquidity = value
		burn.Timestamp = trx.Timestamp
		burn.To = &burnTo
		burn.Sender = &sender
		burn.LogIndex = ev.LogIndex
		burn.NeedsComplete = true
		if err := s.Save(ctx, burn); err != nil {
			return fmt.Errorf("saving burn: %w", err)
		}
	}

	// burn
	if to == ZeroAddress && from == pairAddress {
		pair.TotalSupply = pair.TotalSupply.Sub(value)

		burns, err := s.pairBurns(ctx, trx.ID, pair.ID)
		if err != nil {
			return err
		}

		var burn *Burn
		if len(burns) > 0 && burns[len(burns)-1].NeedsComplete {
			burn = burns[len(burns)-1]
			burn.NeedsComplete = false
		} else {
			burn = NewBurn(eventID(&ev.LogEvent, ev.LogIndex))
			burn.Transaction = trx.ID
			burn.Pair = pair.ID
			burn.Liquidity = value
			burn.Timestamp = trx.Timestamp
			burn.LogIndex = ev.LogIndex
		}

		mints, err := s.pairMints(ctx, trx.ID, pair.ID)
		if err != nil {
			return err
		}

		// the protocol fee is minted right before the burn, fold it in
		if len(mints) != 0 && !mints[len(mints)-1].Completed() {
			mint := mints[len(mints)-1]
			feeTo := mint.To
			feeLiquidity := mint.Liquidity
			burn.FeeTo = &feeTo
			burn.FeeLiquidity = &feeLiquidity

			// remove the logical mint
			if err := s.Remove(ctx, mint); err != nil {
				return fmt.Errorf("removing fee mint %s: %w", mint.ID, err)
			}
		}

		if err := s.Save(ctx, burn); err != nil {
			return fmt.Errorf("saving burn: %w", err)
		}
	}

	if err := s.Save(ctx, pair); err != nil {
		return fmt.Errorf("saving pair %s: %w", pair.ID, err)
	}
	return nil
}

func (s *Subgraph) createUser(ctx context.Context, chainID uint64, address string) error {
	user := NewUser(entityID(chainID, address))
	if err := s.Load(ctx, user); err != nil {
		return fmt.Errorf("loading user %s: %w", user.ID, err)
	}
	if user.Exists() {
		return nil
	}
	if err := s.Save(ctx, user); err != nil {
		return fmt.Errorf("saving user %s: %w", user.ID, err)
	}
	return nil
}

func (s *Subgraph) getOrCreateTransaction(ctx context.Context, log *LogEvent) (*Transaction, error) {
	trx := NewTransaction(transactionID(log))
	if err := s.Load(ctx, trx); err != nil {
		return nil, fmt.Errorf("loading transaction %s: %w", trx.ID, err)
	}
	if trx.Exists() {
		return trx, nil
	}

	trx.BlockNumber = log.BlockNumber
	trx.Timestamp = log.BlockTimestamp
	if err := s.Save(ctx, trx); err != nil {
		return nil, fmt.Errorf("saving transaction: %w", err)
	}
	return trx, nil
}

// updateLiquidityPositions moves value between the LP balances of from and to.
// The zero address and the pair itself hold no position.
func (s *Subgraph) updateLiquidityPositions(ctx context.Context, pair *Pair, from, to string, value decimal.Decimal) error {
	pairAddress := addressOf(pair.ID)
	chainID, _ := splitID(pair.ID)

	for _, move := range []struct {
		user  string
		delta decimal.Decimal
	}{
		{from, value.Neg()},
		{to, value},
	} {
		if move.user == ZeroAddress || move.user == pairAddress {
			continue
		}

		position := NewLiquidityPosition(entityID(chainID, pairAddress, move.user))
		if err := s.Load(ctx, position); err != nil {
			return fmt.Errorf("loading liquidity position %s: %w", position.ID, err)
		}
		if !position.Exists() {
			position.Pair = pair.ID
			position.User = entityID(chainID, move.user)
			pair.LiquidityProviderCount++
		}

		position.LiquidityTokenBalance = position.LiquidityTokenBalance.Add(move.delta)
		if err := s.Save(ctx, position); err != nil {
			return fmt.Errorf("saving liquidity position %s: %w", position.ID, err)
		}
	}
	return nil
}

func (s *Subgraph) pairMints(ctx context.Context, transaction, pairID string) ([]*Mint, error) {
	mints, err := loadWhere(ctx, s, "transaction", transaction, NewMint)
	if err != nil {
		return nil, fmt.Errorf("loading mints of %s: %w", transaction, err)
	}

	out := mints[:0]
	for _, mint := range mints {
		if mint.Pair == pairID {
			out = append(out, mint)
		}
	}
	return out, nil
}

func (s *Subgraph) pairBurns(ctx context.Context, transaction, pairID string) ([]*Burn, error) {
	burns, err := loadWhere(ctx, s, "transaction", transaction, NewBurn)
	if err != nil {
		return nil, fmt.Errorf("loading burns of %s: %w", transaction, err)
	}

	out := burns[:0]
	for _, burn := range burns {
		if burn.Pair == pairID {
			out = append(out, burn)
		}
	}
	return out, nil
}
