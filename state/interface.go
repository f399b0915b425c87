package state

import (
	"context"

	"github.com/streamingfast/uniswap-v2-indexer/store"
)

type Reader interface {
	Get(ctx context.Context, typ, id string) (*store.Record, bool, error)
	GetWhere(ctx context.Context, typ, field, value string) ([]*store.Record, error)
}

type Writer interface {
	Set(ctx context.Context, rec *store.Record) error
	Del(ctx context.Context, typ, id string) error
}

type ReadWriter interface {
	Reader
	Writer
}
