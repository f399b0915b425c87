package exchange

import (
	"math/big"

	"github.com/streamingfast/eth-go"
)

// Event is one decoded pair or factory log. The set of implementations is
// closed, HandleEvent switches over all of them.
type Event interface {
	Log() *LogEvent
	EventName() string

	event()
}

// LogEvent is the part every event shares, where the log came from.
type LogEvent struct {
	ChainID         uint64
	Address         eth.Address
	BlockNumber     uint64
	BlockTimestamp  uint64
	TransactionHash eth.Hash
	// TransactionFrom is the transaction sender when the transport knows it.
	TransactionFrom eth.Address
	LogIndex        uint64
}

func (l *LogEvent) Log() *LogEvent { return l }
func (*LogEvent) event()           {}

type FactoryPairCreatedEvent struct {
	LogEvent
	Token0 eth.Address
	Token1 eth.Address
	Pair   eth.Address
	// PairIndex is the factory's allPairs length after creation.
	PairIndex *big.Int
}

func (*FactoryPairCreatedEvent) EventName() string { return "PairCreated" }

type PairTransferEvent struct {
	LogEvent
	From  eth.Address
	To    eth.Address
	Value *big.Int
}

func (*PairTransferEvent) EventName() string { return "Transfer" }

type PairMintEvent struct {
	LogEvent
	Sender  eth.Address
	Amount0 *big.Int
	Amount1 *big.Int
}

func (*PairMintEvent) EventName() string { return "Mint" }

type PairBurnEvent struct {
	LogEvent
	Sender  eth.Address
	Amount0 *big.Int
	Amount1 *big.Int
	To      eth.Address
}

func (*PairBurnEvent) EventName() string { return "Burn" }

type PairSwapEvent struct {
	LogEvent
	Sender     eth.Address
	Amount0In  *big.Int
	Amount1In  *big.Int
	Amount0Out *big.Int
	Amount1Out *big.Int
	To         eth.Address
}

func (*PairSwapEvent) EventName() string { return "Swap" }

type PairSyncEvent struct {
	LogEvent
	Reserve0 *big.Int
	Reserve1 *big.Int
}

func (*PairSyncEvent) EventName() string { return "Sync" }
