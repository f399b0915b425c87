package store

import (
	"context"
	"sync"
)

type memoryEntry struct {
	record *Record
	seq    uint64
}

// Memory is a map backed store, safe for concurrent use.
type Memory struct {
	lock    sync.RWMutex
	seq     uint64
	records map[string]map[string]*memoryEntry
	// type -> field -> value -> ids in insertion order
	index map[string]map[string]map[string][]string
}

func NewMemory() *Memory {
	return &Memory{
		records: map[string]map[string]*memoryEntry{},
		index:   map[string]map[string]map[string][]string{},
	}
}

func (m *Memory) Get(_ context.Context, typ, id string) (*Record, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	entry, found := m.records[typ][id]
	if !found {
		return nil, ErrNotFound
	}
	return entry.record.clone(), nil
}

func (m *Memory) Set(_ context.Context, rec *Record) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.set(rec)
	return nil
}

func (m *Memory) GetWhere(_ context.Context, typ, field, value string) ([]*Record, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	ids := m.index[typ][field][value]
	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		if entry, found := m.records[typ][id]; found {
			out = append(out, entry.record.clone())
		}
	}
	return out, nil
}

func (m *Memory) Delete(_ context.Context, typ, id string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.delete(typ, id)
	return nil
}

// Apply holds the write lock for the whole batch so readers never observe a
// partial commit.
func (m *Memory) Apply(_ context.Context, mutations []Mutation) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, mut := range mutations {
		if mut.Delete {
			m.delete(mut.Record.Type, mut.Record.ID)
			continue
		}
		m.set(mut.Record)
	}
	return nil
}

// Len returns the number of records of typ.
func (m *Memory) Len(typ string) int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.records[typ])
}

// Snapshot copies every record, keyed by type then id.
func (m *Memory) Snapshot() map[string]map[string]*Record {
	m.lock.RLock()
	defer m.lock.RUnlock()

	out := make(map[string]map[string]*Record, len(m.records))
	for typ, entries := range m.records {
		if len(entries) == 0 {
			continue
		}
		records := make(map[string]*Record, len(entries))
		for id, entry := range entries {
			records[id] = entry.record.clone()
		}
		out[typ] = records
	}
	return out
}

func (m *Memory) set(rec *Record) {
	rec = rec.clone()

	byID := m.records[rec.Type]
	if byID == nil {
		byID = map[string]*memoryEntry{}
		m.records[rec.Type] = byID
	}

	if prev, found := byID[rec.ID]; found {
		for field, value := range prev.record.Index {
			if rec.Index[field] != value {
				m.unindex(rec.Type, field, value, rec.ID)
			}
		}
		for field, value := range rec.Index {
			if prev.record.Index[field] != value {
				m.addIndex(rec.Type, field, value, rec.ID)
			}
		}
		prev.record = rec
		return
	}

	m.seq++
	byID[rec.ID] = &memoryEntry{record: rec, seq: m.seq}
	for field, value := range rec.Index {
		m.addIndex(rec.Type, field, value, rec.ID)
	}
}

func (m *Memory) delete(typ, id string) {
	entry, found := m.records[typ][id]
	if !found {
		return
	}
	for field, value := range entry.record.Index {
		m.unindex(typ, field, value, id)
	}
	delete(m.records[typ], id)
}

func (m *Memory) addIndex(typ, field, value, id string) {
	fields := m.index[typ]
	if fields == nil {
		fields = map[string]map[string][]string{}
		m.index[typ] = fields
	}
	values := fields[field]
	if values == nil {
		values = map[string][]string{}
		fields[field] = values
	}
	values[value] = append(values[value], id)
}

func (m *Memory) unindex(typ, field, value, id string) {
	values := m.index[typ][field]
	ids := values[value]
	for i, candidate := range ids {
		if candidate == id {
			ids = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(values, value)
		return
	}
	values[value] = ids
}
