package subscription

import (
	"github.com/streamingfast/logging"
)

var zlog, _ = logging.PackageLogger("subscription", "github.com/streamingfast/uniswap-v2-indexer/subscription")
