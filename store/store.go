// Package store persists indexer entities as opaque records keyed by
// entity type and id, with equality lookups on declared index fields.
package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("record not found")

// Record is one serialized entity. Index holds the field values GetWhere can
// match on, they are fixed when the record is first written.
type Record struct {
	Type  string
	ID    string
	Data  []byte
	Index map[string]string
}

func (r *Record) clone() *Record {
	out := &Record{Type: r.Type, ID: r.ID}
	if r.Data != nil {
		out.Data = append([]byte(nil), r.Data...)
	}
	if len(r.Index) > 0 {
		out.Index = make(map[string]string, len(r.Index))
		for k, v := range r.Index {
			out.Index[k] = v
		}
	}
	return out
}

type Store interface {
	// Get returns ErrNotFound when the record does not exist.
	Get(ctx context.Context, typ, id string) (*Record, error)
	Set(ctx context.Context, rec *Record) error
	// GetWhere returns the records of typ whose index field equals value,
	// ordered by first insertion.
	GetWhere(ctx context.Context, typ, field, value string) ([]*Record, error)
	// Delete of an absent record is not an error.
	Delete(ctx context.Context, typ, id string) error
}

// Mutation is one staged write. A delete only needs Record.Type and Record.ID.
type Mutation struct {
	Delete bool
	Record *Record
}

// Batcher is implemented by backends able to apply a set of mutations
// all-or-nothing.
type Batcher interface {
	Apply(ctx context.Context, mutations []Mutation) error
}

// Apply writes mutations through b when it is a Batcher, otherwise one by one.
func Apply(ctx context.Context, s Store, mutations []Mutation) error {
	if b, ok := s.(Batcher); ok {
		return b.Apply(ctx, mutations)
	}

	for _, m := range mutations {
		var err error
		if m.Delete {
			err = s.Delete(ctx, m.Record.Type, m.Record.ID)
		} else {
			err = s.Set(ctx, m.Record)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
