package exchange

import (
	"context"
	"fmt"

	"github.com/streamingfast/uniswap-v2-indexer/chains"
	"go.uber.org/zap"
)

// pairContext is what every pair event handler needs loaded before it can
// stage anything.
type pairContext struct {
	cfg     *chains.Config
	pair    *Pair
	token0  *Token
	token1  *Token
	factory *UniswapFactory
	bundle  *Bundle
}

// loadPairContext returns false when a prerequisite entity does not exist,
// the event is then skipped.
func (s *Subgraph) loadPairContext(ctx context.Context, log *LogEvent) (*pairContext, bool, error) {
	cfg, found := s.chainConfig(log.ChainID)
	if !found {
		s.Log.Debug("skipping event on unsupported chain", zap.Uint64("chain_id", log.ChainID))
		return nil, false, nil
	}

	pc := &pairContext{
		cfg:     cfg,
		pair:    NewPair(entityID(log.ChainID, pretty(log.Address))),
		factory: NewUniswapFactory(cfg.FactoryID()),
		bundle:  NewBundle(bundleID(log.ChainID)),
	}

	if err := s.Load(ctx, pc.pair); err != nil {
		return nil, false, fmt.Errorf("loading pair %s: %w", pc.pair.ID, err)
	}
	if !pc.pair.Exists() {
		return s.missing("pair", pc.pair.ID, log)
	}

	if err := s.Load(ctx, pc.factory); err != nil {
		return nil, false, fmt.Errorf("loading factory: %w", err)
	}
	if !pc.factory.Exists() {
		return s.missing("factory", pc.factory.ID, log)
	}

	pc.token0 = NewToken(pc.pair.Token0)
	if err := s.Load(ctx, pc.token0); err != nil {
		return nil, false, fmt.Errorf("loading token0 %s of pair %s: %w", pc.pair.Token0, pc.pair.ID, err)
	}
	if !pc.token0.Exists() {
		return s.missing("token0", pc.token0.ID, log)
	}

	pc.token1 = NewToken(pc.pair.Token1)
	if err := s.Load(ctx, pc.token1); err != nil {
		return nil, false, fmt.Errorf("loading token1 %s of pair %s: %w", pc.pair.Token1, pc.pair.ID, err)
	}
	if !pc.token1.Exists() {
		return s.missing("token1", pc.token1.ID, log)
	}

	if err := s.Load(ctx, pc.bundle); err != nil {
		return nil, false, fmt.Errorf("loading bundle: %w", err)
	}
	if !pc.bundle.Exists() {
		return s.missing("bundle", pc.bundle.ID, log)
	}

	return pc, true, nil
}

func (s *Subgraph) missing(what, id string, log *LogEvent) (*pairContext, bool, error) {
	s.Log.Debug("prerequisite entity not found, skipping event",
		zap.String("missing", what),
		zap.String("id", id),
		zap.Uint64("block_num", log.BlockNumber),
		zap.String("trx_hash", log.TransactionHash.Pretty()),
	)
	return nil, false, nil
}

// updateBuckets refreshes every day and hour bucket a mint, burn or swap
// touches. Tokens are saved as a side effect of the hour buckets.
func (s *Subgraph) updateBuckets(ctx context.Context, pc *pairContext, log *LogEvent) (*buckets, error) {
	var err error
	b := &buckets{}

	if b.pairDay, err = s.UpdatePairDayData(ctx, pc.pair, log); err != nil {
		return nil, err
	}
	if b.pairHour, err = s.UpdatePairHourData(ctx, pc.pair, log); err != nil {
		return nil, err
	}
	if b.uniswapDay, err = s.UpdateUniswapDayData(ctx, log); err != nil {
		return nil, err
	}
	if b.token0Day, err = s.UpdateTokenDayData(ctx, pc.token0, pc.bundle, log); err != nil {
		return nil, err
	}
	if b.token1Day, err = s.UpdateTokenDayData(ctx, pc.token1, pc.bundle, log); err != nil {
		return nil, err
	}
	if b.token0Hour, err = s.UpdateTokenHourData(ctx, pc.token0, pc.bundle, log); err != nil {
		return nil, err
	}
	if b.token1Hour, err = s.UpdateTokenHourData(ctx, pc.token1, pc.bundle, log); err != nil {
		return nil, err
	}
	return b, nil
}

type buckets struct {
	pairDay    *PairDayData
	pairHour   *PairHourData
	uniswapDay *UniswapDayData
	token0Day  *TokenDayData
	token1Day  *TokenDayData
	token0Hour *TokenHourData
	token1Hour *TokenHourData
}
