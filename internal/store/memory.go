package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

type exprKey struct {
	host, key, expression string
}

// MemoryStore keeps records in memory with concurrent access protection.
type MemoryStore struct {
	mu     sync.RWMutex
	items  map[int64]Record
	byExpr map[exprKey]int64
	nextID int64
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:  make(map[int64]Record),
		byExpr: make(map[exprKey]int64),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Save(_ context.Context, rec Record) (int64, error) {
	k := exprKey{rec.Host, rec.Key, rec.Expression}

	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byExpr[k]; ok {
		r := m.items[id]
		r.Source = rec.Source
		m.items[id] = r
		return id, nil
	}
	m.nextID++
	rec.ID = m.nextID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.now()
	}
	m.items[rec.ID] = rec
	m.byExpr[k] = rec.ID
	return rec.ID, nil
}

func (m *MemoryStore) Get(_ context.Context, id int64) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.items[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (m *MemoryStore) List(_ context.Context, limit int) ([]Record, error) {
	m.mu.RLock()
	out := make([]Record, 0, len(m.items))
	for _, v := range m.items {
		out = append(out, v)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		return out[:limit], nil
	}
	return out, nil
}
