package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/JonMunkholm/royalty/internal/catalog"
)

type record struct {
	kind   catalog.Kind
	tenant string
	key    string
	doc    []byte
}

// Memory is an in-process Store. Entities are stored encoded so callers never
// share pointers with the store, matching the copy semantics of a real backend.
type Memory struct {
	mu      sync.RWMutex
	records map[string]record
	order   []string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]record)}
}

func (m *Memory) FindByID(_ context.Context, k catalog.Kind, id string) (catalog.Entity, error) {
	m.mu.RLock()
	rec, ok := m.records[id]
	m.mu.RUnlock()

	if !ok || rec.kind != k {
		return nil, fmt.Errorf("%s %s: %w", k, id, ErrNotFound)
	}
	return catalog.Decode(k, rec.doc)
}

func (m *Memory) FindOne(_ context.Context, k catalog.Kind, tenant, key string) (catalog.Entity, error) {
	if key == "" {
		return nil, fmt.Errorf("%s %q: %w", k, key, ErrNotFound)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.order {
		rec := m.records[id]
		if rec.kind == k && rec.tenant == tenant && rec.key == key {
			return catalog.Decode(k, rec.doc)
		}
	}
	return nil, fmt.Errorf("%s %q: %w", k, key, ErrNotFound)
}

func (m *Memory) Save(_ context.Context, e catalog.Entity) error {
	doc, err := catalog.Encode(e)
	if err != nil {
		return err
	}
	id := e.EntityID()
	if id == "" {
		return fmt.Errorf("save %s: empty id", e.Kind())
	}

	rec := record{kind: e.Kind(), tenant: e.TenantID(), key: e.BusinessKey(), doc: doc}

	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.key != "" {
		for otherID, other := range m.records {
			if otherID != id && other.kind == rec.kind && other.tenant == rec.tenant && other.key == rec.key {
				return fmt.Errorf("save %s %q: %w", rec.kind, rec.key, ErrDuplicateKey)
			}
		}
	}

	if existing, ok := m.records[id]; ok {
		if existing.tenant != rec.tenant || existing.kind != rec.kind {
			return fmt.Errorf("save %s %s: %w", rec.kind, id, ErrTenantChanged)
		}
	} else {
		m.order = append(m.order, id)
	}
	m.records[id] = rec
	return nil
}

func (m *Memory) List(_ context.Context, k catalog.Kind, tenant string) ([]catalog.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []catalog.Entity
	for _, id := range m.order {
		rec := m.records[id]
		if rec.kind != k || rec.tenant != tenant {
			continue
		}
		e, err := catalog.Decode(k, rec.doc)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Len returns the number of stored entities of kind k across all tenants.
func (m *Memory) Len(k catalog.Kind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, rec := range m.records {
		if rec.kind == k {
			n++
		}
	}
	return n
}
