package tokens

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/patrickmn/go-cache"
	"github.com/sourcegraph/conc/pool"
	"github.com/streamingfast/eth-go"
	"github.com/streamingfast/uniswap-v2-indexer/chains"
	"github.com/streamingfast/uniswap-v2-indexer/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrDecimalsUnknown is returned in strict mode when decimals() cannot be read.
var ErrDecimalsUnknown = errors.New("token decimals unknown")

const (
	UnknownSymbol   = "UNKNOWN"
	UnknownName     = "Unknown Token"
	DefaultDecimals = int64(18)
)

type Metadata struct {
	Symbol      string   `json:"symbol"`
	Name        string   `json:"name"`
	Decimals    int64    `json:"decimals"`
	TotalSupply *big.Int `json:"totalSupply"`
}

func (m *Metadata) clone() *Metadata {
	out := *m
	out.TotalSupply = new(big.Int)
	if m.TotalSupply != nil {
		out.TotalSupply.Set(m.TotalSupply)
	}
	return &out
}

var (
	symbolMethod      = eth.MustNewMethodDef("symbol() (string)")
	nameMethod        = eth.MustNewMethodDef("name() (string)")
	decimalsMethod    = eth.MustNewMethodDef("decimals() (uint256)")
	totalSupplyMethod = eth.MustNewMethodDef("totalSupply() (uint256)")
)

// bytes32Null is what some proxies answer for an unset bytes32 field.
var bytes32Null = append(make([]byte, 31), 0x01)

// Resolver reads ERC-20 metadata once per token and caches it.
type Resolver struct {
	chains  *chains.Registry
	callers map[uint64]Caller
	remote  RemoteCache
	local   *cache.Cache
	limiter *rate.Limiter

	strictDecimals bool
	callTimeout    time.Duration
	retries        int
	backoff        time.Duration
	fallbackTTL    time.Duration
}

type Option func(*Resolver)

func WithCaller(chainID uint64, caller Caller) Option {
	return func(r *Resolver) { r.callers[chainID] = caller }
}

func WithRemoteCache(remote RemoteCache) Option {
	return func(r *Resolver) { r.remote = remote }
}

// WithStrictDecimals makes an unreadable decimals() fail the lookup instead
// of defaulting to 18.
func WithStrictDecimals() Option {
	return func(r *Resolver) { r.strictDecimals = true }
}

func WithCallTimeout(timeout time.Duration) Option {
	return func(r *Resolver) { r.callTimeout = timeout }
}

func WithRetries(retries int, backoff time.Duration) Option {
	return func(r *Resolver) {
		r.retries = retries
		r.backoff = backoff
	}
}

// WithFallbackTTL bounds how long a result with defaulted fields is served
// from the local cache. ttl <= 0 keeps such results out of the cache.
func WithFallbackTTL(ttl time.Duration) Option {
	return func(r *Resolver) { r.fallbackTTL = ttl }
}

// WithRateLimit bounds contract calls across all chains, rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(r *Resolver) {
		if rps <= 0 {
			r.limiter = nil
			return
		}
		r.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func NewResolver(registry *chains.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		chains:      registry,
		callers:     map[uint64]Caller{},
		local:       cache.New(cache.NoExpiration, 0),
		callTimeout: 20 * time.Second,
		retries:     3,
		backoff:     500 * time.Millisecond,
		fallbackTTL: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func cacheKey(chainID uint64, address string) string {
	return fmt.Sprintf("%d-%s", chainID, address)
}

// Resolve never fails on a misbehaving token, missing fields get their
// defaults. The only error is ErrDecimalsUnknown in strict mode, or ctx
// being done.
func (r *Resolver) Resolve(ctx context.Context, chainID uint64, address string) (*Metadata, error) {
	address = strings.ToLower(address)
	key := cacheKey(chainID, address)

	if cached, found := r.local.Get(key); found {
		metrics.MetadataLookups.WithLabelValues("cache").Inc()
		return cached.(*Metadata).clone(), nil
	}

	if r.remote != nil {
		data, found, err := r.remote.Get(ctx, key)
		if err != nil {
			zlog.Warn("remote metadata cache read failed", zap.String("key", key), zap.Error(err))
		}
		if found {
			metadata := &Metadata{}
			if err := sonic.Unmarshal(data, metadata); err == nil {
				metrics.MetadataLookups.WithLabelValues("redis").Inc()
				r.local.Set(key, metadata, cache.NoExpiration)
				return metadata.clone(), nil
			}
			zlog.Warn("invalid remote metadata cache entry", zap.String("key", key))
		}
	}

	metadata, complete, err := r.fetch(ctx, chainID, address)
	if err != nil {
		return nil, err
	}

	source := "rpc"
	if !complete {
		source = "fallback"
	}
	metrics.MetadataLookups.WithLabelValues(source).Inc()

	if !complete {
		if r.fallbackTTL > 0 {
			r.local.Set(key, metadata, r.fallbackTTL)
		}
		return metadata.clone(), nil
	}

	r.local.Set(key, metadata, cache.NoExpiration)
	if r.remote != nil {
		if data, err := sonic.Marshal(metadata); err == nil {
			if err := r.remote.Set(ctx, key, data); err != nil {
				zlog.Warn("remote metadata cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return metadata.clone(), nil
}

// fetch reads the four fields at the same time. complete is false when any
// field fell back to its default.
func (r *Resolver) fetch(ctx context.Context, chainID uint64, address string) (*Metadata, bool, error) {
	cfg, _ := r.chains.Get(chainID)
	caller := r.callers[chainID]

	var static *chains.TokenDefinition
	if cfg != nil {
		if def, found := cfg.StaticDefinition(address); found {
			static = &def
		}
	}
	skipSupply := cfg != nil && cfg.SkipsTotalSupply(address)

	var to eth.Address
	if caller != nil {
		var err error
		if to, err = eth.NewAddress(address); err != nil {
			return nil, false, fmt.Errorf("invalid token address %q: %w", address, err)
		}
	}

	metadata := &Metadata{TotalSupply: new(big.Int)}
	var symbolOK, nameOK, decimalsOK, supplyOK bool

	p := pool.New().WithMaxGoroutines(4)
	if static != nil {
		metadata.Symbol, metadata.Name, metadata.Decimals = static.Symbol, static.Name, static.Decimals
		symbolOK, nameOK, decimalsOK = true, true, true
	} else if caller != nil {
		p.Go(func() { metadata.Symbol, symbolOK = r.fetchString(ctx, caller, to, symbolMethod) })
		p.Go(func() { metadata.Name, nameOK = r.fetchString(ctx, caller, to, nameMethod) })
		p.Go(func() { metadata.Decimals, decimalsOK = r.fetchDecimals(ctx, caller, to) })
	}

	if skipSupply {
		supplyOK = true
	} else if caller != nil {
		p.Go(func() { metadata.TotalSupply, supplyOK = r.fetchTotalSupply(ctx, caller, to) })
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	if !symbolOK {
		metadata.Symbol = UnknownSymbol
	}
	if !nameOK {
		metadata.Name = UnknownName
	}
	if !decimalsOK {
		if r.strictDecimals {
			return nil, false, fmt.Errorf("token %s on chain %d: %w", address, chainID, ErrDecimalsUnknown)
		}
		metadata.Decimals = DefaultDecimals
	}
	if !supplyOK || metadata.TotalSupply == nil {
		metadata.TotalSupply = new(big.Int)
	}

	complete := symbolOK && nameOK && decimalsOK && supplyOK
	if !complete {
		zlog.Debug("token metadata fell back to defaults",
			zap.Uint64("chain_id", chainID),
			zap.String("token", address),
			zap.Bool("symbol", symbolOK),
			zap.Bool("name", nameOK),
			zap.Bool("decimals", decimalsOK),
			zap.Bool("total_supply", supplyOK),
		)
	}
	return metadata, complete, nil
}

// fetchString decodes the string ABI. Older tokens return a single bytes32
// word for the same selector, it is read as a right padded string.
func (r *Resolver) fetchString(ctx context.Context, caller Caller, to eth.Address, method *eth.MethodDef) (string, bool) {
	out, err := r.call(ctx, caller, to, method)
	if err != nil {
		return "", false
	}

	if len(out) == 32 {
		if bytes.Equal(out, bytes32Null) {
			return "", false
		}
		value := string(bytes.TrimRight(out, "\x00"))
		return value, value != ""
	}

	// a dynamic string is at least an offset and a length word
	if len(out) < 64 {
		return "", false
	}
	decoded, err := method.DecodeOutput(out)
	if err != nil || len(decoded) != 1 {
		return "", false
	}
	value, ok := decoded[0].(string)
	return value, ok && value != ""
}

func (r *Resolver) fetchDecimals(ctx context.Context, caller Caller, to eth.Address) (int64, bool) {
	value, ok := r.fetchUint(ctx, caller, to, decimalsMethod)
	if !ok || !value.IsInt64() || value.Int64() > 255 {
		return 0, false
	}
	return value.Int64(), true
}

func (r *Resolver) fetchTotalSupply(ctx context.Context, caller Caller, to eth.Address) (*big.Int, bool) {
	return r.fetchUint(ctx, caller, to, totalSupplyMethod)
}

func (r *Resolver) fetchUint(ctx context.Context, caller Caller, to eth.Address, method *eth.MethodDef) (*big.Int, bool) {
	out, err := r.call(ctx, caller, to, method)
	if err != nil {
		return nil, false
	}
	decoded, err := method.DecodeOutput(out)
	if err != nil || len(decoded) != 1 {
		return nil, false
	}
	value, ok := decoded[0].(*big.Int)
	return value, ok
}

// call runs one contract call with a per attempt timeout, retrying transient
// failures with a linear backoff.
func (r *Resolver) call(ctx context.Context, caller Caller, to eth.Address, method *eth.MethodDef) ([]byte, error) {
	data := method.MethodID()

	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			metrics.MetadataRetries.WithLabelValues(method.Name).Inc()
			select {
			case <-time.After(time.Duration(attempt) * r.backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
		out, err := caller.CallContract(attemptCtx, to, data)
		cancel()
		if err == nil {
			if len(out) == 0 {
				return nil, fmt.Errorf("%s: empty result", method.Signature())
			}
			return out, nil
		}

		lastErr = err
		decision := Classify(err)
		if !decision.IsTransient() || ctx.Err() != nil {
			break
		}
		zlog.Debug("retrying token call",
			zap.String("token", to.Pretty()),
			zap.String("method", method.Name),
			zap.Int("attempt", attempt+1),
			zap.String("reason", decision.Reason),
		)
	}
	return nil, fmt.Errorf("%s on %s: %w", method.Signature(), to.Pretty(), lastErr)
}
