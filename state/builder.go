// Package state stages the writes of one handler invocation on top of a
// store.Store. Reads see staged writes, nothing reaches the store until
// Commit.
package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/streamingfast/uniswap-v2-indexer/store"
	"go.uber.org/zap"
)

type Builder struct {
	Name string

	store store.Store

	// Deltas are every staged change, in the order they were made.
	Deltas []StateDelta
	// KV is the latest staged value per key.
	KV          map[string]*Value
	lastOrdinal uint64
}

type Value struct {
	Record  *store.Record
	Deleted bool
	// Created is set when the key did not exist in the store when first staged.
	Created bool
	ordinal uint64
}

type StateDelta struct {
	Op       string // "c"reate, "u"pdate, "d"elete, same as https://nightlies.apache.org/flink/flink-docs-master/docs/connectors/table/formats/debezium/#how-to-use-debezium-format
	Ordinal  uint64 // a sorting key to order deltas
	Key      string
	KeyType  string
	OldValue []byte
	NewValue []byte
}

var _ ReadWriter = (*Builder)(nil)

func New(name string, s store.Store) *Builder {
	return &Builder{
		Name:  name,
		store: s,
		KV:    make(map[string]*Value),
	}
}

func (b *Builder) Print() {
	if len(b.Deltas) == 0 {
		return
	}
	zlog.Debug("state deltas", zap.String("name", b.Name), zap.Int("count", len(b.Deltas)))
	for _, delta := range b.Deltas {
		b.PrintDelta(&delta)
	}
}

func (b *Builder) PrintDelta(delta *StateDelta) {
	zlog.Debug("state delta",
		zap.String("op", strings.ToUpper(delta.Op)),
		zap.Uint64("ordinal", delta.Ordinal),
		zap.String("type", delta.KeyType),
		zap.String("key", delta.Key),
		zap.ByteString("old", delta.OldValue),
		zap.ByteString("new", delta.NewValue),
	)
}

// Get returns the staged record for typ/id, falling back to the store.
func (b *Builder) Get(ctx context.Context, typ, id string) (*store.Record, bool, error) {
	if val, found := b.KV[key(typ, id)]; found {
		if val.Deleted {
			return nil, false, nil
		}
		return val.Record, true, nil
	}

	rec, err := b.store.Get(ctx, typ, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s %s: %w", typ, id, err)
	}
	return rec, true, nil
}

// GetWhere merges the store's matches with staged writes. Store matches come
// first in store order, records created in this builder follow in creation
// order.
func (b *Builder) GetWhere(ctx context.Context, typ, field, value string) ([]*store.Record, error) {
	persisted, err := b.store.GetWhere(ctx, typ, field, value)
	if err != nil {
		return nil, fmt.Errorf("querying %s where %s=%s: %w", typ, field, value, err)
	}

	out := make([]*store.Record, 0, len(persisted))
	for _, rec := range persisted {
		val, staged := b.KV[key(typ, rec.ID)]
		if !staged {
			out = append(out, rec)
			continue
		}
		if val.Deleted || val.Record.Index[field] != value {
			continue
		}
		out = append(out, val.Record)
	}

	var created []*Value
	for _, val := range b.KV {
		if val.Created && !val.Deleted && val.Record.Type == typ && val.Record.Index[field] == value {
			created = append(created, val)
		}
	}
	sort.Slice(created, func(i, j int) bool { return created[i].ordinal < created[j].ordinal })
	for _, val := range created {
		out = append(out, val.Record)
	}
	return out, nil
}

func (b *Builder) Set(ctx context.Context, rec *store.Record) error {
	k := key(rec.Type, rec.ID)
	prev, found, err := b.Get(ctx, rec.Type, rec.ID)
	if err != nil {
		return err
	}

	ord := b.nextOrdinal()
	delta := StateDelta{Ordinal: ord, Key: k, KeyType: rec.Type, NewValue: rec.Data}
	if found {
		delta.Op = "u"
		delta.OldValue = prev.Data
	} else {
		delta.Op = "c"
	}

	val, staged := b.KV[k]
	if !staged {
		val = &Value{Created: !found, ordinal: ord}
		b.KV[k] = val
	} else if val.Deleted {
		// deleted then recreated within the same builder, it moves to the back
		val.ordinal = ord
	}
	val.Record = rec
	val.Deleted = false

	b.Deltas = append(b.Deltas, delta)
	return nil
}

// Del stages a delete, it is a no-op when the key does not exist.
func (b *Builder) Del(ctx context.Context, typ, id string) error {
	prev, found, err := b.Get(ctx, typ, id)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	k := key(typ, id)
	ord := b.nextOrdinal()
	val, staged := b.KV[k]
	if !staged {
		val = &Value{ordinal: ord}
		b.KV[k] = val
	}
	val.Record = &store.Record{Type: typ, ID: id}
	val.Deleted = true

	b.Deltas = append(b.Deltas, StateDelta{
		Op:       "d",
		Ordinal:  ord,
		Key:      k,
		KeyType:  typ,
		OldValue: prev.Data,
	})
	return nil
}

// Mutations collapses the staged deltas to one mutation per key, in the
// order keys were first touched.
func (b *Builder) Mutations() []store.Mutation {
	seen := make(map[string]bool, len(b.KV))
	out := make([]store.Mutation, 0, len(b.KV))
	for _, delta := range b.Deltas {
		if seen[delta.Key] {
			continue
		}
		seen[delta.Key] = true

		val := b.KV[delta.Key]
		if val.Deleted && val.Created {
			// never reached the store
			continue
		}
		out = append(out, store.Mutation{Delete: val.Deleted, Record: val.Record})
	}
	return out
}

// Commit writes every staged mutation to the store and resets the builder.
func (b *Builder) Commit(ctx context.Context) error {
	mutations := b.Mutations()
	if len(mutations) == 0 {
		b.Flush()
		return nil
	}

	if err := store.Apply(ctx, b.store, mutations); err != nil {
		return fmt.Errorf("committing %d mutations for %s: %w", len(mutations), b.Name, err)
	}
	b.Flush()
	return nil
}

// Flush drops everything staged.
func (b *Builder) Flush() {
	b.Deltas = nil
	b.KV = make(map[string]*Value)
	b.lastOrdinal = 0
}

func (b *Builder) nextOrdinal() uint64 {
	b.lastOrdinal++
	return b.lastOrdinal
}

func key(typ, id string) string {
	return typ + ":" + id
}
