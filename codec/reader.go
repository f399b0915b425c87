package codec

import (
	"bufio"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Envelope is one line of a replay file.
type Envelope struct {
	ChainID         uint64          `json:"chainId"`
	BlockTimestamp  uint64          `json:"blockTimestamp"`
	TransactionFrom *common.Address `json:"transactionFrom,omitempty"`
	Log             *types.Log      `json:"log"`
}

const maxLineSize = 4 * 1024 * 1024

// ReadLogs calls fn for every JSON line of r, in order. Blank lines are
// skipped.
func ReadLogs(r io.Reader, fn func(*Envelope) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		content := scanner.Bytes()
		if len(content) == 0 {
			continue
		}

		envelope := &Envelope{}
		if err := sonic.Unmarshal(content, envelope); err != nil {
			return fmt.Errorf("decoding line %d: %w", line, err)
		}
		if envelope.Log == nil {
			return fmt.Errorf("line %d: missing log", line)
		}
		if err := fn(envelope); err != nil {
			return err
		}
	}
	return scanner.Err()
}
