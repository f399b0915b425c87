package exchange

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/streamingfast/uniswap-v2-indexer/chains"
	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"github.com/streamingfast/uniswap-v2-indexer/metrics"
	"github.com/streamingfast/uniswap-v2-indexer/state"
	"github.com/streamingfast/uniswap-v2-indexer/store"
	"github.com/streamingfast/uniswap-v2-indexer/tokens"
	"go.uber.org/zap"
)

// TokenResolver fetches ERC-20 metadata for tokens seen for the first time.
type TokenResolver interface {
	Resolve(ctx context.Context, chainID uint64, address string) (*tokens.Metadata, error)
}

// Registrar starts delivery of a newly created pair's events.
type Registrar interface {
	RegisterContract(ctx context.Context, chainID uint64, address string) error
}

// Subgraph applies pair and factory events to the entity store. Calls to
// HandleEvent are serialized.
type Subgraph struct {
	Log *zap.Logger

	store     store.Store
	chains    *chains.Registry
	tokens    TokenResolver
	registrar Registrar

	lock  sync.Mutex
	state *state.Builder
	// pairs created by the running handler, registered after commit
	created []*FactoryPairCreatedEvent
}

type Option func(*Subgraph)

func WithChains(r *chains.Registry) Option {
	return func(s *Subgraph) { s.chains = r }
}

func WithTokenResolver(r TokenResolver) Option {
	return func(s *Subgraph) { s.tokens = r }
}

func WithRegistrar(r Registrar) Option {
	return func(s *Subgraph) { s.registrar = r }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Subgraph) { s.Log = logger }
}

func New(st store.Store, opts ...Option) *Subgraph {
	s := &Subgraph{
		Log:    zlog,
		store:  st,
		chains: chains.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleEvent runs the handler of ev against a fresh change set and commits
// it when the handler succeeds. On error nothing is written.
func (s *Subgraph) HandleEvent(ctx context.Context, ev Event) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	log := ev.Log()
	start := time.Now()
	chainLabel := strconv.FormatUint(log.ChainID, 10)

	s.state = state.New(ev.EventName(), s.store)
	s.created = nil
	defer func() {
		s.state = nil
		s.created = nil
	}()

	err := s.dispatch(ctx, ev)
	if err == nil {
		if zlog.Core().Enabled(zap.DebugLevel) {
			s.state.Print()
		}
		err = s.state.Commit(ctx)
	}
	metrics.HandlerDuration.WithLabelValues(chainLabel, ev.EventName()).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.EventsHandled.WithLabelValues(chainLabel, ev.EventName(), "error").Inc()
		s.Log.Error("event handler failed, nothing committed",
			zap.String("event", ev.EventName()),
			zap.Uint64("chain_id", log.ChainID),
			zap.String("address", pretty(log.Address)),
			zap.Uint64("block_num", log.BlockNumber),
			zap.String("trx_hash", log.TransactionHash.Pretty()),
			zap.Uint64("log_index", log.LogIndex),
			zap.Error(err),
		)
		return fmt.Errorf("handling %s event at block %d: %w", ev.EventName(), log.BlockNumber, err)
	}
	metrics.EventsHandled.WithLabelValues(chainLabel, ev.EventName(), "ok").Inc()

	for _, created := range s.created {
		s.register(ctx, created)
	}
	return nil
}

func (s *Subgraph) dispatch(ctx context.Context, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.Log.Debug("handler panic", zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("panic in %s handler: %v", ev.EventName(), r)
		}
	}()

	switch e := ev.(type) {
	case *FactoryPairCreatedEvent:
		return s.HandleFactoryPairCreatedEvent(ctx, e)
	case *PairTransferEvent:
		return s.HandlePairTransferEvent(ctx, e)
	case *PairMintEvent:
		return s.HandlePairMintEvent(ctx, e)
	case *PairBurnEvent:
		return s.HandlePairBurnEvent(ctx, e)
	case *PairSwapEvent:
		return s.HandlePairSwapEvent(ctx, e)
	case *PairSyncEvent:
		return s.HandlePairSyncEvent(ctx, e)
	default:
		return fmt.Errorf("unsupported event type %T", ev)
	}
}

func (s *Subgraph) register(ctx context.Context, ev *FactoryPairCreatedEvent) {
	if s.registrar == nil {
		return
	}

	pairAddress := pretty(ev.Pair)
	if err := s.registrar.RegisterContract(ctx, ev.ChainID, pairAddress); err != nil {
		metrics.Registrations.WithLabelValues(strconv.FormatUint(ev.ChainID, 10), "error").Inc()
		s.Log.Warn("pair registration failed, pair is stored but its events may be missed",
			zap.Uint64("chain_id", ev.ChainID),
			zap.String("pair", pairAddress),
			zap.Error(err),
		)
		return
	}
	metrics.Registrations.WithLabelValues(strconv.FormatUint(ev.ChainID, 10), "ok").Inc()
}

func (s *Subgraph) chainConfig(chainID uint64) (*chains.Config, bool) {
	return s.chains.Get(chainID)
}

// Load fills ent from the change set or the store. A missing entity is not an
// error, check ent.Exists().
func (s *Subgraph) Load(ctx context.Context, ent entity.Interface) error {
	typ := entity.TypeName(ent)
	rec, found, err := s.state.Get(ctx, typ, ent.GetID())
	if err != nil {
		return err
	}
	if !found {
		ent.SetExists(false)
		return nil
	}

	if err := sonic.Unmarshal(rec.Data, ent); err != nil {
		return fmt.Errorf("decoding %s %s: %w", typ, ent.GetID(), err)
	}
	ent.SetExists(true)
	return nil
}

func (s *Subgraph) Save(ctx context.Context, ent entity.Interface) error {
	typ := entity.TypeName(ent)
	data, err := sonic.Marshal(ent)
	if err != nil {
		return fmt.Errorf("encoding %s %s: %w", typ, ent.GetID(), err)
	}

	rec := &store.Record{Type: typ, ID: ent.GetID(), Data: data}
	if indexed, ok := ent.(entity.Indexed); ok {
		rec.Index = indexed.Indexes()
	}
	if err := s.state.Set(ctx, rec); err != nil {
		return err
	}
	ent.SetExists(true)
	return nil
}

func (s *Subgraph) Remove(ctx context.Context, ent entity.Interface) error {
	if err := s.state.Del(ctx, entity.TypeName(ent), ent.GetID()); err != nil {
		return err
	}
	ent.SetExists(false)
	return nil
}

// loadWhere returns every T whose index field equals value, oldest first.
func loadWhere[T entity.Interface](ctx context.Context, s *Subgraph, field, value string, newFunc func(id string) T) ([]T, error) {
	typ := entity.TypeName(newFunc(""))
	recs, err := s.state.GetWhere(ctx, typ, field, value)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		ent := newFunc(rec.ID)
		if err := sonic.Unmarshal(rec.Data, ent); err != nil {
			return nil, fmt.Errorf("decoding %s %s: %w", typ, rec.ID, err)
		}
		ent.SetExists(true)
		out = append(out, ent)
	}
	return out, nil
}
