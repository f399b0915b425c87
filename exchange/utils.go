package exchange

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/streamingfast/eth-go"
)

const ZeroAddress = "0x0000000000000000000000000000000000000000"

// entityID builds the chain scoped id "{chainId}-{part}-{part}...".
func entityID(chainID uint64, parts ...string) string {
	return fmt.Sprintf("%d-%s", chainID, strings.Join(parts, "-"))
}

func bundleID(chainID uint64) string {
	return entityID(chainID, "1")
}

func transactionID(log *LogEvent) string {
	return entityID(log.ChainID, log.TransactionHash.Pretty())
}

// eventID is "{chainId}-{txHash}-{logIndex}".
func eventID(log *LogEvent, logIndex uint64) string {
	return entityID(log.ChainID, log.TransactionHash.Pretty(), fmt.Sprintf("%d", logIndex))
}

// addressOf strips the chain prefix of an address keyed entity id.
func addressOf(id string) string {
	if idx := strings.IndexByte(id, '-'); idx >= 0 {
		return id[idx+1:]
	}
	return id
}

func pretty(addr eth.Address) string {
	if len(addr) == 0 {
		return ZeroAddress
	}
	return addr.Pretty()
}

func dayID(timestamp uint64) int64 {
	return int64(timestamp / 86400)
}

func hourID(timestamp uint64) int64 {
	return int64(timestamp / 3600)
}

// splitID splits an address keyed entity id into its chain and address.
func splitID(id string) (uint64, string) {
	idx := strings.IndexByte(id, '-')
	if idx < 0 {
		return 0, id
	}
	chainID, err := strconv.ParseUint(id[:idx], 10, 64)
	if err != nil {
		return 0, id[idx+1:]
	}
	return chainID, id[idx+1:]
}
