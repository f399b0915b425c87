package pipeline

import (
	"github.com/streamingfast/logging"
)

var zlog, _ = logging.PackageLogger("pipeline", "github.com/streamingfast/uniswap-v2-indexer/pipeline")
