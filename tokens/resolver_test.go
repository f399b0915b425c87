package tokens

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/streamingfast/eth-go"
	"github.com/streamingfast/uniswap-v2-indexer/chains"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tokenAddr  = "0x1000000000000000000000000000000000000001"
	staticAddr = "0x2000000000000000000000000000000000000002"
)

type response func(attempt int) ([]byte, error)

type fakeCaller struct {
	lock      sync.Mutex
	responses map[string]response
	calls     map[string]int
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{responses: map[string]response{}, calls: map[string]int{}}
}

func (c *fakeCaller) on(method *eth.MethodDef, resp response) *fakeCaller {
	c.responses[string(method.MethodID())] = resp
	return c
}

func (c *fakeCaller) count(method *eth.MethodDef) int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.calls[string(method.MethodID())]
}

func (c *fakeCaller) total() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}

func (c *fakeCaller) CallContract(_ context.Context, _ eth.Address, data []byte) ([]byte, error) {
	c.lock.Lock()
	attempt := c.calls[string(data)]
	c.calls[string(data)]++
	resp := c.responses[string(data)]
	c.lock.Unlock()

	if resp == nil {
		return nil, errors.New("execution reverted")
	}
	return resp(attempt)
}

func returns(out []byte) response {
	return func(int) ([]byte, error) { return out, nil }
}

func fails(err error) response {
	return func(int) ([]byte, error) { return nil, err }
}

func word(value *big.Int) []byte {
	out := make([]byte, 32)
	value.FillBytes(out)
	return out
}

func abiString(value string) []byte {
	out := append(word(big.NewInt(32)), word(big.NewInt(int64(len(value))))...)
	padded := make([]byte, (len(value)+31)/32*32)
	copy(padded, value)
	return append(out, padded...)
}

func bytes32(value string) []byte {
	out := make([]byte, 32)
	copy(out, value)
	return out
}

func standardToken() *fakeCaller {
	return newFakeCaller().
		on(symbolMethod, returns(abiString("USDC"))).
		on(nameMethod, returns(abiString("USD Coin"))).
		on(decimalsMethod, returns(word(big.NewInt(6)))).
		on(totalSupplyMethod, returns(word(big.NewInt(123456789))))
}

type memoryRemote struct {
	lock    sync.Mutex
	entries map[string][]byte
}

func (m *memoryRemote) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	data, found := m.entries[key]
	return data, found, nil
}

func (m *memoryRemote) Set(_ context.Context, key string, value []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.entries[key] = value
	return nil
}

func testRegistry(t *testing.T) *chains.Registry {
	t.Helper()

	registry := chains.NewRegistry()
	require.NoError(t, registry.Set(&chains.Config{
		ChainID:                      1,
		FactoryAddress:               "0xf00000000000000000000000000000000000000f",
		ReferenceToken:               tokenAddr,
		MinimumUSDThresholdNewPairs:  decimal.NewFromInt(400),
		MinimumLiquidityThresholdETH: decimal.NewFromInt(2),
		StaticTokenDefinitions: map[string]chains.TokenDefinition{
			staticAddr: {Address: staticAddr, Symbol: "DGD", Name: "DGD", Decimals: 9},
		},
		SkipTotalSupply: []string{staticAddr},
	}))
	return registry
}

func newTestResolver(t *testing.T, caller Caller, opts ...Option) *Resolver {
	t.Helper()
	base := []Option{WithCaller(1, caller), WithRetries(3, time.Millisecond), WithCallTimeout(time.Second)}
	return NewResolver(testRegistry(t), append(base, opts...)...)
}

func TestResolver_StandardToken(t *testing.T) {
	caller := standardToken()
	remote := &memoryRemote{entries: map[string][]byte{}}
	resolver := newTestResolver(t, caller, WithRemoteCache(remote))

	metadata, err := resolver.Resolve(context.Background(), 1, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, "USDC", metadata.Symbol)
	assert.Equal(t, "USD Coin", metadata.Name)
	assert.Equal(t, int64(6), metadata.Decimals)
	assert.Equal(t, 0, big.NewInt(123456789).Cmp(metadata.TotalSupply))
	assert.Equal(t, 4, caller.total())
	assert.Contains(t, remote.entries, "1-"+tokenAddr)

	// served from the local cache
	again, err := resolver.Resolve(context.Background(), 1, "0x1000000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, metadata, again)
	assert.Equal(t, 4, caller.total())

	// callers get their own copy
	again.TotalSupply.SetInt64(0)
	third, err := resolver.Resolve(context.Background(), 1, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, 0, big.NewInt(123456789).Cmp(third.TotalSupply))
}

func TestResolver_Bytes32Fallback(t *testing.T) {
	caller := standardToken().
		on(symbolMethod, returns(bytes32("MKR"))).
		on(nameMethod, returns(bytes32("Maker")))

	metadata, err := newTestResolver(t, caller).Resolve(context.Background(), 1, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, "MKR", metadata.Symbol)
	assert.Equal(t, "Maker", metadata.Name)
}

func TestResolver_Bytes32NullIsUnknown(t *testing.T) {
	caller := standardToken().on(symbolMethod, returns(bytes32Null))

	metadata, err := newTestResolver(t, caller).Resolve(context.Background(), 1, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, UnknownSymbol, metadata.Symbol)
	assert.Equal(t, "USD Coin", metadata.Name)
}

func TestResolver_Defaults(t *testing.T) {
	caller := newFakeCaller()
	remote := &memoryRemote{entries: map[string][]byte{}}

	metadata, err := newTestResolver(t, caller, WithRemoteCache(remote)).Resolve(context.Background(), 1, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, UnknownSymbol, metadata.Symbol)
	assert.Equal(t, UnknownName, metadata.Name)
	assert.Equal(t, DefaultDecimals, metadata.Decimals)
	assert.Equal(t, 0, metadata.TotalSupply.Sign())

	// reverts are not retried
	assert.Equal(t, 1, caller.count(decimalsMethod))
	assert.Empty(t, remote.entries, "fallback results stay out of the shared cache")
}

func TestResolver_StrictDecimals(t *testing.T) {
	caller := standardToken().on(decimalsMethod, fails(errors.New("execution reverted")))

	_, err := newTestResolver(t, caller, WithStrictDecimals()).Resolve(context.Background(), 1, tokenAddr)
	assert.ErrorIs(t, err, ErrDecimalsUnknown)
}

func TestResolver_RetriesTransientFailures(t *testing.T) {
	caller := standardToken().on(decimalsMethod, func(attempt int) ([]byte, error) {
		if attempt < 2 {
			return nil, context.DeadlineExceeded
		}
		return word(big.NewInt(8)), nil
	})

	metadata, err := newTestResolver(t, caller).Resolve(context.Background(), 1, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(8), metadata.Decimals)
	assert.Equal(t, 3, caller.count(decimalsMethod))
}

func TestResolver_ExhaustedRetriesFallBack(t *testing.T) {
	caller := standardToken().on(decimalsMethod, fails(context.DeadlineExceeded))

	metadata, err := newTestResolver(t, caller).Resolve(context.Background(), 1, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, DefaultDecimals, metadata.Decimals)
	assert.Equal(t, 4, caller.count(decimalsMethod))
}

func outageThenDecimals(failures int) *fakeCaller {
	return standardToken().on(decimalsMethod, func(attempt int) ([]byte, error) {
		if attempt < failures {
			return nil, context.DeadlineExceeded
		}
		return word(big.NewInt(8)), nil
	})
}

func TestResolver_FallbackCachedForTTL(t *testing.T) {
	caller := outageThenDecimals(4)
	resolver := newTestResolver(t, caller)

	metadata, err := resolver.Resolve(context.Background(), 1, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, DefaultDecimals, metadata.Decimals)

	metadata, err = resolver.Resolve(context.Background(), 1, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, DefaultDecimals, metadata.Decimals)
	assert.Equal(t, 4, caller.count(decimalsMethod))
}

func TestResolver_FallbackExpires(t *testing.T) {
	caller := outageThenDecimals(4)
	resolver := newTestResolver(t, caller, WithFallbackTTL(time.Millisecond))

	metadata, err := resolver.Resolve(context.Background(), 1, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, DefaultDecimals, metadata.Decimals)

	time.Sleep(20 * time.Millisecond)

	metadata, err = resolver.Resolve(context.Background(), 1, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(8), metadata.Decimals)
	assert.Equal(t, 5, caller.count(decimalsMethod))

	// complete results are kept
	_, err = resolver.Resolve(context.Background(), 1, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, 5, caller.count(decimalsMethod))
}

func TestResolver_FallbackNotCached(t *testing.T) {
	caller := outageThenDecimals(4)
	resolver := newTestResolver(t, caller, WithFallbackTTL(0))

	_, err := resolver.Resolve(context.Background(), 1, tokenAddr)
	require.NoError(t, err)

	metadata, err := resolver.Resolve(context.Background(), 1, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(8), metadata.Decimals)
}

func TestResolver_StaticDefinitionAndSkipSupply(t *testing.T) {
	caller := standardToken()

	metadata, err := newTestResolver(t, caller).Resolve(context.Background(), 1, staticAddr)
	require.NoError(t, err)
	assert.Equal(t, "DGD", metadata.Symbol)
	assert.Equal(t, int64(9), metadata.Decimals)
	assert.Equal(t, 0, metadata.TotalSupply.Sign())
	assert.Equal(t, 0, caller.total())
}

func TestResolver_RemoteCacheHit(t *testing.T) {
	caller := standardToken()
	remote := &memoryRemote{entries: map[string][]byte{
		"1-" + tokenAddr: []byte(`{"symbol":"CACHED","name":"Cached","decimals":4,"totalSupply":10}`),
	}}

	metadata, err := newTestResolver(t, caller, WithRemoteCache(remote)).Resolve(context.Background(), 1, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, "CACHED", metadata.Symbol)
	assert.Equal(t, int64(4), metadata.Decimals)
	assert.Equal(t, 0, caller.total())
}

func TestResolver_NoCallerForChain(t *testing.T) {
	resolver := NewResolver(testRegistry(t))

	metadata, err := resolver.Resolve(context.Background(), 1, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, UnknownSymbol, metadata.Symbol)
	assert.Equal(t, DefaultDecimals, metadata.Decimals)
}

func TestResolver_RateLimited(t *testing.T) {
	caller := standardToken()
	resolver := newTestResolver(t, caller, WithRateLimit(1000, 1))

	_, err := resolver.Resolve(context.Background(), 1, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, 4, caller.total())
}
