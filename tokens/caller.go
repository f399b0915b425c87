package tokens

import (
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/streamingfast/eth-go"
)

// Caller executes a read only contract call at the latest block.
type Caller interface {
	CallContract(ctx context.Context, to eth.Address, data []byte) ([]byte, error)
}

type RPCCaller struct {
	client *ethclient.Client
}

func NewRPCCaller(client *ethclient.Client) *RPCCaller {
	return &RPCCaller{client: client}
}

// DialRPCCaller connects to an EVM JSON-RPC endpoint.
func DialRPCCaller(ctx context.Context, endpoint string) (*RPCCaller, error) {
	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return NewRPCCaller(client), nil
}

func (c *RPCCaller) CallContract(ctx context.Context, to eth.Address, data []byte) ([]byte, error) {
	addr := common.BytesToAddress(to)
	return c.client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
}

func (c *RPCCaller) Close() {
	c.client.Close()
}
