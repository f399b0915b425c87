package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/streamingfast/uniswap-v2-indexer/codec"
	"github.com/streamingfast/uniswap-v2-indexer/exchange"
	"github.com/streamingfast/uniswap-v2-indexer/metrics"
	"github.com/streamingfast/uniswap-v2-indexer/subscription"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Handler is what the pipeline feeds decoded events to, one per chain.
type Handler interface {
	HandleEvent(ctx context.Context, ev exchange.Event) error
}

// Source pushes envelopes into emit until it runs out or emit fails.
type Source func(ctx context.Context, emit func(*codec.Envelope) error) error

// ChainStats counts what happened to one chain's logs.
type ChainStats struct {
	Logs       uint64
	Decoded    uint64
	Ignored    uint64
	Malformed  uint64
	Failed     uint64
	OutOfOrder uint64
}

// Pipeline routes envelopes to one goroutine per chain. Within a chain,
// events are handled in arrival order.
type Pipeline struct {
	decoder    *codec.Decoder
	newHandler func(chainID uint64) Handler

	subscriptionHub *subscription.Hub
	bufferSize      int

	lock  sync.Mutex
	stats map[uint64]*ChainStats
}

type Option func(*Pipeline)

// WithSubscriptionHub logs every pair the hub announces on the given chains.
func WithSubscriptionHub(hub *subscription.Hub) Option {
	return func(p *Pipeline) { p.subscriptionHub = hub }
}

func WithBufferSize(size int) Option {
	return func(p *Pipeline) { p.bufferSize = size }
}

func New(decoder *codec.Decoder, newHandler func(chainID uint64) Handler, opts ...Option) *Pipeline {
	p := &Pipeline{
		decoder:    decoder,
		newHandler: newHandler,
		bufferSize: 1000,
		stats:      map[uint64]*ChainStats{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run drains src and returns once every chain has processed its backlog.
// Handler errors are logged and counted, they do not stop the run.
func (p *Pipeline) Run(ctx context.Context, src Source) error {
	group, ctx := errgroup.WithContext(ctx)

	if p.subscriptionHub != nil {
		watchCtx, cancelWatch := context.WithCancel(ctx)
		defer cancelWatch()
		p.watchRegistrations(watchCtx)
	}

	channels := map[uint64]chan *codec.Envelope{}
	emit := func(envelope *codec.Envelope) error {
		ch, found := channels[envelope.ChainID]
		if !found {
			ch = make(chan *codec.Envelope, p.bufferSize)
			channels[envelope.ChainID] = ch

			chainID := envelope.ChainID
			handler := p.newHandler(chainID)
			group.Go(func() error {
				return p.consume(ctx, chainID, handler, ch)
			})
		}

		select {
		case ch <- envelope:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	group.Go(func() error {
		defer func() {
			for _, ch := range channels {
				close(ch)
			}
		}()

		if err := src(ctx, emit); err != nil {
			return fmt.Errorf("reading source: %w", err)
		}
		return nil
	})

	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (p *Pipeline) consume(ctx context.Context, chainID uint64, handler Handler, ch <-chan *codec.Envelope) error {
	stats := p.chainStats(chainID)
	chainLabel := strconv.FormatUint(chainID, 10)
	logger := zlog.With(zap.Uint64("chain_id", chainID))

	var lastBlock, lastIndex uint64
	seen := false

	for envelope := range ch {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.count(func() { stats.Logs++ })

		ev, err := p.decoder.Decode(chainID, envelope.BlockTimestamp, envelope.Log, envelope.TransactionFrom)
		if err != nil {
			p.count(func() { stats.Malformed++ })
			logger.Warn("dropping malformed log",
				zap.Uint64("block_num", envelope.Log.BlockNumber),
				zap.Stringer("trx_hash", envelope.Log.TxHash),
				zap.Uint("log_index", envelope.Log.Index),
				zap.Error(err),
			)
			continue
		}
		if ev == nil {
			p.count(func() { stats.Ignored++ })
			continue
		}
		p.count(func() { stats.Decoded++ })

		log := ev.Log()
		if seen && (log.BlockNumber < lastBlock || (log.BlockNumber == lastBlock && log.LogIndex <= lastIndex)) {
			p.count(func() { stats.OutOfOrder++ })
			metrics.EventsOutOfOrder.WithLabelValues(chainLabel).Inc()
			logger.Warn("event arrived out of order",
				zap.String("event", ev.EventName()),
				zap.Uint64("block_num", log.BlockNumber),
				zap.Uint64("log_index", log.LogIndex),
				zap.Uint64("last_block_num", lastBlock),
				zap.Uint64("last_log_index", lastIndex),
			)
		}
		seen = true
		lastBlock, lastIndex = log.BlockNumber, log.LogIndex

		if err := handler.HandleEvent(ctx, ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.count(func() { stats.Failed++ })
		}
	}
	return nil
}

func (p *Pipeline) chainStats(chainID uint64) *ChainStats {
	p.lock.Lock()
	defer p.lock.Unlock()

	stats, found := p.stats[chainID]
	if !found {
		stats = &ChainStats{}
		p.stats[chainID] = stats
	}
	return stats
}

func (p *Pipeline) count(fn func()) {
	p.lock.Lock()
	defer p.lock.Unlock()
	fn()
}

// Stats returns a copy of the per-chain counters.
func (p *Pipeline) Stats() map[uint64]ChainStats {
	p.lock.Lock()
	defer p.lock.Unlock()

	out := make(map[uint64]ChainStats, len(p.stats))
	for chainID, stats := range p.stats {
		out[chainID] = *stats
	}
	return out
}

// FileSource replays JSON-lines files in the given order.
func FileSource(paths ...string) Source {
	return func(ctx context.Context, emit func(*codec.Envelope) error) error {
		for _, path := range paths {
			if err := replayFile(ctx, path, emit); err != nil {
				return err
			}
		}
		return nil
	}
}

func replayFile(ctx context.Context, path string, emit func(*codec.Envelope) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	zlog.Info("replaying log file", zap.String("path", path))
	err = codec.ReadLogs(f, func(envelope *codec.Envelope) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return emit(envelope)
	})
	if err != nil {
		return fmt.Errorf("replaying %s: %w", path, err)
	}
	return nil
}

// SliceSource emits the given envelopes, mostly useful in tests.
func SliceSource(envelopes ...*codec.Envelope) Source {
	return func(ctx context.Context, emit func(*codec.Envelope) error) error {
		for _, envelope := range envelopes {
			if err := emit(envelope); err != nil {
				return err
			}
		}
		return nil
	}
}
