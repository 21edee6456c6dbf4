package memory

import (
	"brokerfront/internal/types"
	"context"
	"sort"
	"sync"
)

// DurableStore is an in-process ports.DurableCache. It keeps the durable tier's semantics (one store under
// types.DurableStoreKey, entries by tenant key) without persistence, for development and tests.
type DurableStore struct {
	mu      sync.RWMutex
	entries map[string]types.CacheEntry
	// Sets counts successful writes.
	Sets int
}

func NewDurableStore() *DurableStore {
	return &DurableStore{entries: make(map[string]types.CacheEntry)}
}

func (s *DurableStore) Get(ctx context.Context, tenantKey string) (types.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return types.CacheEntry{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[tenantKey]
	if !ok {
		return types.CacheEntry{}, types.ErrNotFound
	}
	e.Config = e.Config.Clone()
	return e, nil
}

func (s *DurableStore) Set(ctx context.Context, entry types.CacheEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entry.Config = entry.Config.Clone()
	s.mu.Lock()
	s.entries[entry.BrokerKey] = entry
	s.Sets++
	s.mu.Unlock()
	return nil
}

func (s *DurableStore) Clear(ctx context.Context, tenantKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.entries, tenantKey)
	s.mu.Unlock()
	return nil
}

func (s *DurableStore) Load(ctx context.Context) ([]types.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.CacheEntry, 0, len(s.entries))
	for _, e := range s.entries {
		e.Config = e.Config.Clone()
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BrokerKey < out[j].BrokerKey })
	return out, nil
}

// ClearAll purges every entry. Used in tests only.
func (s *DurableStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]types.CacheEntry)
	s.mu.Unlock()
	return nil
}
