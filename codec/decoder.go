package codec

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/streamingfast/eth-go"
	"github.com/streamingfast/uniswap-v2-indexer/chains"
	"github.com/streamingfast/uniswap-v2-indexer/exchange"
)

var (
	PairCreatedTopic = common.HexToHash("0x0d3648bd0f6ba80134a33ba9275ac585d9d315f0ad8355cddefde31afa28d0e9")
	TransferTopic    = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
	MintTopic        = common.HexToHash("0x4c209b5fc8ad50758f13e2e1088ba56a560dff690a1c6fef26394f4c03821c4f")
	BurnTopic        = common.HexToHash("0xdccd412f0b1252819cb1fd330b93224ca42612892bb3f4f789976e6d81936496")
	SwapTopic        = common.HexToHash("0xd78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822")
	SyncTopic        = common.HexToHash("0x1c411e9a96e071241c2f21f7726b17ae89e3cab4c78be50e062b03a9fffbbad1")
)

// Topics is every topic0 the decoder knows, for building log filters.
func Topics() []common.Hash {
	return []common.Hash{PairCreatedTopic, TransferTopic, MintTopic, BurnTopic, SwapTopic, SyncTopic}
}

// Decoder turns raw EVM logs into exchange events.
type Decoder struct {
	chains *chains.Registry
}

func NewDecoder(registry *chains.Registry) *Decoder {
	return &Decoder{chains: registry}
}

// Decode returns nil without error for logs that are not indexed: unknown
// topics, removed logs, and PairCreated emitted by anything but the chain's
// factory. txFrom may be nil.
func (d *Decoder) Decode(chainID uint64, blockTimestamp uint64, log *types.Log, txFrom *common.Address) (exchange.Event, error) {
	if log == nil || log.Removed || len(log.Topics) == 0 {
		return nil, nil
	}

	base := exchange.LogEvent{
		ChainID:         chainID,
		Address:         eth.Address(log.Address.Bytes()),
		BlockNumber:     log.BlockNumber,
		BlockTimestamp:  blockTimestamp,
		TransactionHash: eth.Hash(log.TxHash.Bytes()),
		LogIndex:        uint64(log.Index),
	}
	if txFrom != nil {
		base.TransactionFrom = eth.Address(txFrom.Bytes())
	}

	switch log.Topics[0] {
	case PairCreatedTopic:
		cfg, found := d.chains.Get(chainID)
		if !found || !strings.EqualFold(log.Address.Hex(), cfg.FactoryAddress) {
			return nil, nil
		}
		if err := expect(log, 3, 2); err != nil {
			return nil, err
		}
		return &exchange.FactoryPairCreatedEvent{
			LogEvent:  base,
			Token0:    topicAddress(log, 1),
			Token1:    topicAddress(log, 2),
			Pair:      eth.Address(common.BytesToAddress(log.Data[0:32]).Bytes()),
			PairIndex: dataWord(log, 1),
		}, nil

	case TransferTopic:
		// ERC-721 transfers index the token id and carry no data
		if len(log.Topics) != 3 || len(log.Data) != 32 {
			return nil, nil
		}
		return &exchange.PairTransferEvent{
			LogEvent: base,
			From:     topicAddress(log, 1),
			To:       topicAddress(log, 2),
			Value:    dataWord(log, 0),
		}, nil

	case MintTopic:
		if err := expect(log, 2, 2); err != nil {
			return nil, err
		}
		return &exchange.PairMintEvent{
			LogEvent: base,
			Sender:   topicAddress(log, 1),
			Amount0:  dataWord(log, 0),
			Amount1:  dataWord(log, 1),
		}, nil

	case BurnTopic:
		if err := expect(log, 3, 2); err != nil {
			return nil, err
		}
		return &exchange.PairBurnEvent{
			LogEvent: base,
			Sender:   topicAddress(log, 1),
			Amount0:  dataWord(log, 0),
			Amount1:  dataWord(log, 1),
			To:       topicAddress(log, 2),
		}, nil

	case SwapTopic:
		if err := expect(log, 3, 4); err != nil {
			return nil, err
		}
		return &exchange.PairSwapEvent{
			LogEvent:   base,
			Sender:     topicAddress(log, 1),
			Amount0In:  dataWord(log, 0),
			Amount1In:  dataWord(log, 1),
			Amount0Out: dataWord(log, 2),
			Amount1Out: dataWord(log, 3),
			To:         topicAddress(log, 2),
		}, nil

	case SyncTopic:
		if err := expect(log, 1, 2); err != nil {
			return nil, err
		}
		return &exchange.PairSyncEvent{
			LogEvent: base,
			Reserve0: dataWord(log, 0),
			Reserve1: dataWord(log, 1),
		}, nil
	}

	return nil, nil
}

func expect(log *types.Log, topics, words int) error {
	if len(log.Topics) != topics || len(log.Data) < words*32 {
		return fmt.Errorf("malformed log %s at index %d in trx %s: %d topics and %d data bytes, expected %d and %d",
			log.Topics[0].Hex(), log.Index, log.TxHash.Hex(), len(log.Topics), len(log.Data), topics, words*32)
	}
	return nil
}

func topicAddress(log *types.Log, i int) eth.Address {
	return eth.Address(common.BytesToAddress(log.Topics[i].Bytes()).Bytes())
}

func dataWord(log *types.Log, i int) *big.Int {
	return new(big.Int).SetBytes(log.Data[i*32 : (i+1)*32])
}
