package cache

import (
	"brokerfront/internal/types"
	"sync"
)

// SyncTier is the in-process synchronous tier. Reads and writes never block on I/O, so it can be consulted
// before anything else in a bootstrap pass. Entries never expire; they are overwritten or cleared.
type SyncTier struct {
	mu   sync.RWMutex
	data map[string]types.SyncEntry
}

func NewSyncTier() *SyncTier {
	return &SyncTier{data: make(map[string]types.SyncEntry)}
}

// Get returns the mirrored entry and true if present.
func (t *SyncTier) Get(tenantKey string) (types.SyncEntry, bool) {
	t.mu.RLock()
	e, ok := t.data[types.SyncKey(tenantKey)]
	t.mu.RUnlock()
	if !ok {
		return types.SyncEntry{}, false
	}
	e.Config = e.Config.Clone()
	return e, true
}

func (t *SyncTier) Set(tenantKey string, e types.SyncEntry) {
	e.Config = e.Config.Clone()
	t.mu.Lock()
	t.data[types.SyncKey(tenantKey)] = e
	t.mu.Unlock()
}

func (t *SyncTier) Clear(tenantKey string) {
	t.mu.Lock()
	delete(t.data, types.SyncKey(tenantKey))
	t.mu.Unlock()
}

// Len is the number of mirrored tenants.
func (t *SyncTier) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.data)
}
