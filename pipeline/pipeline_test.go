package pipeline

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/streamingfast/uniswap-v2-indexer/chains"
	"github.com/streamingfast/uniswap-v2-indexer/codec"
	"github.com/streamingfast/uniswap-v2-indexer/exchange"
	"github.com/streamingfast/uniswap-v2-indexer/store"
	"github.com/streamingfast/uniswap-v2-indexer/subscription"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mainnetFactory = common.HexToAddress("0x5c69bee701ef814a2b6a3edd4b1652cb9cc5aa6f")
	pairAddress    = common.HexToAddress("0x3000000000000000000000000000000000000003")
	tokenA         = common.HexToAddress("0x1000000000000000000000000000000000000001")
	tokenB         = common.HexToAddress("0x2000000000000000000000000000000000000002")
	user           = common.HexToAddress("0x9000000000000000000000000000000000000009")
)

type recordingHandler struct {
	lock   sync.Mutex
	events []exchange.Event
	failOn map[uint64]bool
}

func (h *recordingHandler) HandleEvent(_ context.Context, ev exchange.Event) error {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.events = append(h.events, ev)
	if h.failOn[ev.Log().BlockNumber] {
		return errors.New("handler failed")
	}
	return nil
}

func (h *recordingHandler) blocks() []uint64 {
	h.lock.Lock()
	defer h.lock.Unlock()

	var out []uint64
	for _, ev := range h.events {
		out = append(out, ev.Log().BlockNumber)
	}
	return out
}

func word(v int64) []byte {
	return common.LeftPadBytes(big.NewInt(v).Bytes(), 32)
}

func transfer(chainID, block uint64, index uint) *codec.Envelope {
	return &codec.Envelope{
		ChainID:        chainID,
		BlockTimestamp: 1_700_000_000 + block,
		Log: &types.Log{
			Address:     pairAddress,
			Topics:      []common.Hash{codec.TransferTopic, common.BytesToHash(user.Bytes()), common.BytesToHash(pairAddress.Bytes())},
			Data:        word(1000),
			BlockNumber: block,
			TxHash:      common.BigToHash(big.NewInt(int64(block))),
			Index:       index,
		},
	}
}

func pairCreated(block uint64) *codec.Envelope {
	data := append(common.LeftPadBytes(pairAddress.Bytes(), 32), word(1)...)
	return &codec.Envelope{
		ChainID:        1,
		BlockTimestamp: 1_700_000_000 + block,
		Log: &types.Log{
			Address:     mainnetFactory,
			Topics:      []common.Hash{codec.PairCreatedTopic, common.BytesToHash(tokenA.Bytes()), common.BytesToHash(tokenB.Bytes())},
			Data:        data,
			BlockNumber: block,
			TxHash:      common.BigToHash(big.NewInt(int64(block))),
		},
	}
}

type handlers struct {
	lock   sync.Mutex
	byID   map[uint64]*recordingHandler
	failOn map[uint64]bool
}

func (h *handlers) new(chainID uint64) Handler {
	h.lock.Lock()
	defer h.lock.Unlock()

	if h.byID == nil {
		h.byID = map[uint64]*recordingHandler{}
	}
	handler := &recordingHandler{failOn: h.failOn}
	h.byID[chainID] = handler
	return handler
}

func TestPipeline_RoutesPerChainInOrder(t *testing.T) {
	hs := &handlers{}
	p := New(codec.NewDecoder(chains.NewRegistry()), hs.new, WithBufferSize(1))

	src := SliceSource(
		transfer(1, 10, 0),
		transfer(56, 5, 0),
		transfer(1, 10, 1),
		transfer(56, 6, 0),
		transfer(1, 11, 0),
	)
	require.NoError(t, p.Run(context.Background(), src))

	require.Len(t, hs.byID, 2)
	assert.Equal(t, []uint64{10, 10, 11}, hs.byID[1].blocks())
	assert.Equal(t, []uint64{5, 6}, hs.byID[56].blocks())

	stats := p.Stats()
	assert.Equal(t, ChainStats{Logs: 3, Decoded: 3}, stats[1])
	assert.Equal(t, ChainStats{Logs: 2, Decoded: 2}, stats[56])
}

func TestPipeline_OutOfOrderIsHandled(t *testing.T) {
	hs := &handlers{}
	p := New(codec.NewDecoder(chains.NewRegistry()), hs.new)

	require.NoError(t, p.Run(context.Background(), SliceSource(
		transfer(1, 10, 3),
		transfer(1, 10, 2),
		transfer(1, 9, 0),
		transfer(1, 12, 0),
	)))

	assert.Equal(t, []uint64{10, 10, 9, 12}, hs.byID[1].blocks())
	assert.Equal(t, uint64(2), p.Stats()[1].OutOfOrder)
}

func TestPipeline_ContinuesAfterFailures(t *testing.T) {
	hs := &handlers{failOn: map[uint64]bool{10: true}}
	p := New(codec.NewDecoder(chains.NewRegistry()), hs.new)

	malformed := transfer(1, 11, 0)
	malformed.Log.Data = nil
	malformed.Log.Topics = []common.Hash{codec.SwapTopic}

	unknown := transfer(1, 12, 0)
	unknown.Log.Topics = []common.Hash{common.HexToHash("0x01")}

	require.NoError(t, p.Run(context.Background(), SliceSource(
		transfer(1, 10, 0),
		malformed,
		unknown,
		transfer(1, 13, 0),
	)))

	assert.Equal(t, []uint64{10, 13}, hs.byID[1].blocks())
	assert.Equal(t, ChainStats{Logs: 4, Decoded: 2, Ignored: 1, Malformed: 1, Failed: 1}, p.Stats()[1])
}

func TestPipeline_SourceError(t *testing.T) {
	hs := &handlers{}
	p := New(codec.NewDecoder(chains.NewRegistry()), hs.new)

	err := p.Run(context.Background(), func(ctx context.Context, emit func(*codec.Envelope) error) error {
		if err := emit(transfer(1, 10, 0)); err != nil {
			return err
		}
		return errors.New("connection reset")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs.jsonl")

	var content []byte
	for _, envelope := range []*codec.Envelope{transfer(1, 10, 0), transfer(1, 11, 0)} {
		line, err := sonic.Marshal(envelope)
		require.NoError(t, err)
		content = append(content, line...)
		content = append(content, '\n')
	}
	require.NoError(t, os.WriteFile(path, content, 0o644))

	hs := &handlers{}
	p := New(codec.NewDecoder(chains.NewRegistry()), hs.new)
	require.NoError(t, p.Run(context.Background(), FileSource(path)))
	assert.Equal(t, []uint64{10, 11}, hs.byID[1].blocks())

	err := New(codec.NewDecoder(chains.NewRegistry()), hs.new).Run(context.Background(), FileSource(filepath.Join(dir, "missing.jsonl")))
	assert.Error(t, err)
}

func TestPipeline_SubgraphRegistersPairs(t *testing.T) {
	registry := chains.NewRegistry()
	hub := subscription.NewHub()
	require.NoError(t, SetupSubscriptionHub(hub, registry.SupportedChainIDs()))

	watcher := subscription.NewSubscriber()
	require.NoError(t, hub.Subscribe(watcher, subscription.Topic(1)))

	st := store.NewMemory()
	subgraph := exchange.New(st,
		exchange.WithChains(registry),
		exchange.WithTokenResolver(&exchange.StaticTokenResolver{}),
		exchange.WithRegistrar(hub),
	)

	p := New(codec.NewDecoder(registry), func(uint64) Handler { return subgraph }, WithSubscriptionHub(hub))
	require.NoError(t, p.Run(context.Background(), SliceSource(pairCreated(100))))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	registration, err := watcher.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), registration.ChainID)
	assert.Equal(t, "0x3000000000000000000000000000000000000003", registration.Address)

	pair, err := st.Get(context.Background(), "Pair", "1-0x3000000000000000000000000000000000000003")
	require.NoError(t, err)
	assert.NotNil(t, pair)
}
