package exchange

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/streamingfast/eth-go"
	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"github.com/streamingfast/uniswap-v2-indexer/state"
	"github.com/streamingfast/uniswap-v2-indexer/store"
	"github.com/streamingfast/uniswap-v2-indexer/tokens"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// StaticTokenResolver serves metadata from a fixed table. Unknown addresses
// resolve to Err when it is set, to 18 decimals defaults otherwise.
type StaticTokenResolver struct {
	Tokens map[string]*tokens.Metadata
	Err    error

	lock  sync.Mutex
	calls []string
}

func (r *StaticTokenResolver) Resolve(_ context.Context, _ uint64, address string) (*tokens.Metadata, error) {
	r.lock.Lock()
	r.calls = append(r.calls, address)
	r.lock.Unlock()

	if metadata, found := r.Tokens[strings.ToLower(address)]; found {
		return metadata, nil
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return &tokens.Metadata{Symbol: "UNKNOWN", Name: "Unknown Token", Decimals: 18, TotalSupply: new(big.Int)}, nil
}

func (r *StaticTokenResolver) Calls() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.calls...)
}

// RecordingRegistrar keeps every registered pair address.
type RecordingRegistrar struct {
	Err        error
	OnRegister func(chainID uint64, address string)

	lock       sync.Mutex
	registered []string
}

func (r *RecordingRegistrar) RegisterContract(_ context.Context, chainID uint64, address string) error {
	if r.OnRegister != nil {
		r.OnRegister(chainID, address)
	}
	if r.Err != nil {
		return r.Err
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	r.registered = append(r.registered, address)
	return nil
}

func (r *RecordingRegistrar) Registered() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.registered...)
}

func TestEvents(t *testing.T, s *Subgraph, events []Event) {
	t.Helper()

	for _, event := range events {
		require.NoError(t, s.HandleEvent(context.Background(), event))
	}
}

// SnapshotStore copies every record of st, for before/after comparisons.
func SnapshotStore(t *testing.T, st *store.Memory) map[string]map[string]*store.Record {
	t.Helper()
	return st.Snapshot()
}

// SeedEntities writes ents straight to the store.
func SeedEntities(t *testing.T, s *Subgraph, ents ...entity.Interface) {
	t.Helper()

	RunInState(t, s, func(ctx context.Context) error {
		for _, ent := range ents {
			if err := s.Save(ctx, ent); err != nil {
				return err
			}
		}
		return nil
	})
}

// RunInState runs fn against a fresh change set and commits it.
func RunInState(t *testing.T, s *Subgraph, fn func(ctx context.Context) error) {
	t.Helper()

	s.lock.Lock()
	defer s.lock.Unlock()

	ctx := context.Background()
	s.state = state.New("test", s.store)
	defer func() { s.state = nil }()

	require.NoError(t, fn(ctx))
	require.NoError(t, s.state.Commit(ctx))
}

type fixtureEvent struct {
	Event     string `yaml:"event"`
	ChainID   uint64 `yaml:"chainId"`
	Address   string `yaml:"address"`
	Block     uint64 `yaml:"block"`
	Timestamp uint64 `yaml:"timestamp"`
	Tx        string `yaml:"tx"`
	TxFrom    string `yaml:"txFrom"`
	LogIndex  uint64 `yaml:"logIndex"`

	Token0 string `yaml:"token0"`
	Token1 string `yaml:"token1"`
	Pair   string `yaml:"pair"`

	Sender string `yaml:"sender"`
	From   string `yaml:"from"`
	To     string `yaml:"to"`

	Value      string `yaml:"value"`
	Amount0    string `yaml:"amount0"`
	Amount1    string `yaml:"amount1"`
	Amount0In  string `yaml:"amount0In"`
	Amount1In  string `yaml:"amount1In"`
	Amount0Out string `yaml:"amount0Out"`
	Amount1Out string `yaml:"amount1Out"`
	Reserve0   string `yaml:"reserve0"`
	Reserve1   string `yaml:"reserve1"`
}

// LoadEventsFixture reads a YAML list of events, amounts are raw base 10
// integers.
func LoadEventsFixture(t *testing.T, path string) []Event {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var fixtures []fixtureEvent
	require.NoError(t, yaml.Unmarshal(content, &fixtures))

	events := make([]Event, len(fixtures))
	for i, f := range fixtures {
		events[i], err = f.toEvent()
		require.NoError(t, err, "fixture event #%d", i)
	}
	return events
}

func (f *fixtureEvent) toEvent() (Event, error) {
	log := LogEvent{
		ChainID:         f.ChainID,
		Address:         mustAddress(f.Address),
		BlockNumber:     f.Block,
		BlockTimestamp:  f.Timestamp,
		TransactionHash: eth.Hash(common.FromHex(f.Tx)),
		TransactionFrom: mustAddress(f.TxFrom),
		LogIndex:        f.LogIndex,
	}

	switch f.Event {
	case "PairCreated":
		return &FactoryPairCreatedEvent{LogEvent: log, Token0: mustAddress(f.Token0), Token1: mustAddress(f.Token1), Pair: mustAddress(f.Pair)}, nil
	case "Transfer":
		return &PairTransferEvent{LogEvent: log, From: mustAddress(f.From), To: mustAddress(f.To), Value: bigInt(f.Value)}, nil
	case "Mint":
		return &PairMintEvent{LogEvent: log, Sender: mustAddress(f.Sender), Amount0: bigInt(f.Amount0), Amount1: bigInt(f.Amount1)}, nil
	case "Burn":
		return &PairBurnEvent{LogEvent: log, Sender: mustAddress(f.Sender), Amount0: bigInt(f.Amount0), Amount1: bigInt(f.Amount1), To: mustAddress(f.To)}, nil
	case "Swap":
		return &PairSwapEvent{
			LogEvent:   log,
			Sender:     mustAddress(f.Sender),
			Amount0In:  bigInt(f.Amount0In),
			Amount1In:  bigInt(f.Amount1In),
			Amount0Out: bigInt(f.Amount0Out),
			Amount1Out: bigInt(f.Amount1Out),
			To:         mustAddress(f.To),
		}, nil
	case "Sync":
		return &PairSyncEvent{LogEvent: log, Reserve0: bigInt(f.Reserve0), Reserve1: bigInt(f.Reserve1)}, nil
	default:
		return nil, fmt.Errorf("unknown fixture event %q", f.Event)
	}
}

func mustAddress(in string) eth.Address {
	if in == "" {
		return nil
	}
	return eth.MustNewAddress(in)
}

func bigInt(in string) *big.Int {
	if in == "" {
		return new(big.Int)
	}
	out, ok := new(big.Int).SetString(in, 10)
	if !ok {
		panic(fmt.Errorf("invalid integer %q", in))
	}
	return out
}
