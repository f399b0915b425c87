package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"
)

// Key layout, 0x00 separated:
//
//	e <type> <id>                   -> envelope
//	i <type> <field> <value> <seq>  -> id
//	m seq                           -> last sequence, big-endian
const sep = "\x00"

var seqKey = []byte("m" + sep + "seq")

type envelope struct {
	Seq   uint64            `json:"seq"`
	Index map[string]string `json:"index,omitempty"`
	Data  []byte            `json:"data"`
}

// LevelDB is an embedded store. Every write, including a single Set, goes
// through one leveldb batch.
type LevelDB struct {
	db *leveldb.DB

	lock sync.Mutex
	seq  uint64
}

func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("opening leveldb %q: %w", path, err)
	}
	return newLevelDB(db)
}

// NewLevelDBOnStorage opens a store on an arbitrary leveldb storage, tests use
// storage.NewMemStorage().
func NewLevelDBOnStorage(stor storage.Storage) (*LevelDB, error) {
	db, err := leveldb.Open(stor, nil)
	if err != nil {
		return nil, fmt.Errorf("opening leveldb: %w", err)
	}
	return newLevelDB(db)
}

func newLevelDB(db *leveldb.DB) (*LevelDB, error) {
	s := &LevelDB{db: db}

	raw, err := db.Get(seqKey, nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("reading sequence: %w", err)
	default:
		s.seq = binary.BigEndian.Uint64(raw)
	}

	zlog.Info("leveldb store opened", zap.Uint64("seq", s.seq))
	return s, nil
}

func (s *LevelDB) Close() error {
	return s.db.Close()
}

func (s *LevelDB) Get(_ context.Context, typ, id string) (*Record, error) {
	env, err := s.load(typ, id)
	if err != nil {
		return nil, err
	}
	if env == nil {
		return nil, ErrNotFound
	}
	return &Record{Type: typ, ID: id, Data: env.Data, Index: env.Index}, nil
}

func (s *LevelDB) Set(ctx context.Context, rec *Record) error {
	return s.Apply(ctx, []Mutation{{Record: rec}})
}

func (s *LevelDB) Delete(ctx context.Context, typ, id string) error {
	return s.Apply(ctx, []Mutation{{Delete: true, Record: &Record{Type: typ, ID: id}}})
}

func (s *LevelDB) GetWhere(_ context.Context, typ, field, value string) ([]*Record, error) {
	prefix := []byte("i" + sep + typ + sep + field + sep + value + sep)

	it := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()

	var out []*Record
	for it.Next() {
		id := string(it.Value())
		env, err := s.load(typ, id)
		if err != nil {
			return nil, err
		}
		if env == nil {
			continue
		}
		out = append(out, &Record{Type: typ, ID: id, Data: env.Data, Index: env.Index})
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("iterating %s index %s=%s: %w", typ, field, value, err)
	}
	return out, nil
}

func (s *LevelDB) Apply(_ context.Context, mutations []Mutation) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	batch := new(leveldb.Batch)
	seq := s.seq

	// staged envelopes so a batch touching the same id twice stays coherent
	pending := map[string]*envelope{}
	current := func(typ, id string) (*envelope, error) {
		if env, found := pending[string(entityKey(typ, id))]; found {
			return env, nil
		}
		return s.load(typ, id)
	}

	for _, mut := range mutations {
		rec := mut.Record
		key := entityKey(rec.Type, rec.ID)

		prev, err := current(rec.Type, rec.ID)
		if err != nil {
			return err
		}

		if mut.Delete {
			if prev == nil {
				continue
			}
			for field, value := range prev.Index {
				batch.Delete(indexKey(rec.Type, field, value, prev.Seq))
			}
			batch.Delete(key)
			pending[string(key)] = nil
			continue
		}

		env := &envelope{Index: rec.Index, Data: rec.Data}
		if prev != nil {
			env.Seq = prev.Seq
			for field, value := range prev.Index {
				if rec.Index[field] != value {
					batch.Delete(indexKey(rec.Type, field, value, prev.Seq))
				}
			}
		} else {
			seq++
			env.Seq = seq
		}
		for field, value := range rec.Index {
			batch.Put(indexKey(rec.Type, field, value, env.Seq), []byte(rec.ID))
		}

		data, err := sonic.Marshal(env)
		if err != nil {
			return fmt.Errorf("marshalling %s %s: %w", rec.Type, rec.ID, err)
		}
		batch.Put(key, data)
		pending[string(key)] = env
	}

	if seq != s.seq {
		raw := make([]byte, 8)
		binary.BigEndian.PutUint64(raw, seq)
		batch.Put(seqKey, raw)
	}

	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("writing batch of %d mutations: %w", len(mutations), err)
	}
	s.seq = seq
	return nil
}

func (s *LevelDB) load(typ, id string) (*envelope, error) {
	raw, err := s.db.Get(entityKey(typ, id), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s %s: %w", typ, id, err)
	}

	env := &envelope{}
	if err := sonic.Unmarshal(raw, env); err != nil {
		return nil, fmt.Errorf("unmarshalling %s %s: %w", typ, id, err)
	}
	return env, nil
}

func entityKey(typ, id string) []byte {
	return []byte("e" + sep + typ + sep + id)
}

func indexKey(typ, field, value string, seq uint64) []byte {
	key := []byte("i" + sep + typ + sep + field + sep + value + sep)
	return binary.BigEndian.AppendUint64(key, seq)
}
