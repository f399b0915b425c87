package tokens

import (
	"github.com/streamingfast/logging"
)

var zlog, _ = logging.PackageLogger("tokens", "github.com/streamingfast/uniswap-v2-indexer/tokens")
