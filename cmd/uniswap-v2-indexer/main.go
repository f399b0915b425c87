package main

import (
	"github.com/streamingfast/uniswap-v2-indexer/cli"
)

func main() {
	cli.Main()
}
