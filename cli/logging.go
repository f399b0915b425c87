package cli

import (
	"github.com/streamingfast/logging"
	"go.uber.org/zap"
)

var zlog *zap.Logger

func init() {
	zlog, _ = logging.ApplicationLogger("univ2", "github.com/streamingfast/uniswap-v2-indexer/cli",
		logging.WithSwitcherServerAutoStart(),
	)
}
