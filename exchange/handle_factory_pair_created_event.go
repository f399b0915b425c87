package exchange

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/streamingfast/uniswap-v2-indexer/tokens"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func (s *Subgraph) HandleFactoryPairCreatedEvent(ctx context.Context, ev *FactoryPairCreatedEvent) error {
	cfg, found := s.chainConfig(ev.ChainID)
	if !found {
		s.Log.Debug("skipping pair created on unsupported chain", zap.Uint64("chain_id", ev.ChainID))
		return nil
	}

	s.Log.Debug("handling pair created event",
		zap.Uint64("block_num", ev.BlockNumber),
		zap.String("trx_hash", ev.TransactionHash.Pretty()),
		zap.String("pair", pretty(ev.Pair)),
	)

	pair := NewPair(entityID(ev.ChainID, pretty(ev.Pair)))
	if err := s.Load(ctx, pair); err != nil {
		return fmt.Errorf("loading pair %s: %w", pair.ID, err)
	}
	if pair.Exists() {
		s.Log.Debug("pair already exists, skipping", zap.String("pair", pair.ID))
		return nil
	}

	factory := NewUniswapFactory(cfg.FactoryID())
	if err := s.Load(ctx, factory); err != nil {
		return fmt.Errorf("loading factory: %w", err)
	}

	bundle := NewBundle(bundleID(ev.ChainID))
	if err := s.Load(ctx, bundle); err != nil {
		return fmt.Errorf("loading bundle: %w", err)
	}

	token0 := NewToken(entityID(ev.ChainID, pretty(ev.Token0)))
	if err := s.Load(ctx, token0); err != nil {
		return fmt.Errorf("loading token0 %s: %w", token0.ID, err)
	}
	token1 := NewToken(entityID(ev.ChainID, pretty(ev.Token1)))
	if err := s.Load(ctx, token1); err != nil {
		return fmt.Errorf("loading token1 %s: %w", token1.ID, err)
	}

	// metadata is fetched before anything is staged
	if err := s.resolveTokens(ctx, ev.ChainID, token0, token1); err != nil {
		if errors.Is(err, tokens.ErrDecimalsUnknown) {
			s.Log.Warn("skipping pair, token decimals unknown",
				zap.String("pair", pair.ID),
				zap.Error(err),
			)
			return nil
		}
		return err
	}

	if !bundle.Exists() {
		if err := s.Save(ctx, bundle); err != nil {
			return fmt.Errorf("saving bundle: %w", err)
		}
	}

	for _, token := range []*Token{token0, token1} {
		if token.Exists() {
			continue
		}
		if err := s.Save(ctx, token); err != nil {
			return fmt.Errorf("saving token %s: %w", token.ID, err)
		}
	}

	pair.Token0 = token0.ID
	pair.Token1 = token1.ID
	pair.CreatedAtTimestamp = ev.BlockTimestamp
	pair.CreatedAtBlockNumber = ev.BlockNumber
	if err := s.Save(ctx, pair); err != nil {
		return fmt.Errorf("saving pair: %w", err)
	}

	factory.PairCount++
	if err := s.Save(ctx, factory); err != nil {
		return fmt.Errorf("saving factory: %w", err)
	}

	address0, address1 := pretty(ev.Token0), pretty(ev.Token1)
	for _, id := range []string{entityID(ev.ChainID, address0, address1), entityID(ev.ChainID, address1, address0)} {
		lookup := NewPairTokenLookup(id)
		lookup.Pair = pair.ID
		if err := s.Save(ctx, lookup); err != nil {
			return fmt.Errorf("saving pair lookup %s: %w", id, err)
		}
	}

	s.created = append(s.created, ev)
	return nil
}

// resolveTokens fills metadata of the tokens not yet in the store, both
// lookups run at the same time.
func (s *Subgraph) resolveTokens(ctx context.Context, chainID uint64, toResolve ...*Token) error {
	if s.tokens == nil {
		return fmt.Errorf("no token resolver configured")
	}

	group, gctx := errgroup.WithContext(ctx)
	for _, token := range toResolve {
		if token.Exists() {
			continue
		}

		token := token
		group.Go(func() error {
			metadata, err := s.tokens.Resolve(gctx, chainID, addressOf(token.ID))
			if err != nil {
				return fmt.Errorf("resolving token %s: %w", token.ID, err)
			}

			token.Symbol = metadata.Symbol
			token.Name = metadata.Name
			token.Decimals = metadata.Decimals
			token.TotalSupply = metadata.TotalSupply
			if token.TotalSupply == nil {
				token.TotalSupply = new(big.Int)
			}
			return nil
		})
	}
	return group.Wait()
}
