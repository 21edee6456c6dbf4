package ports

import (
	"brokerfront/internal/types"
	"context"
)

// DurableCache is the durable tier: larger, slower storage that survives restarts. All entries live under the
// fixed store key types.DurableStoreKey and are addressed by tenant key within it.
type DurableCache interface {
	// Get returns the entry for a tenant key.
	// MUST return types.ErrNotFound if the tenant key does not exist.
	Get(ctx context.Context, tenantKey string) (types.CacheEntry, error)

	// Set creates or overwrites the entry for entry.BrokerKey.
	Set(ctx context.Context, entry types.CacheEntry) error

	// Clear removes the tenant key. Clearing a missing key MUST NOT return an error.
	Clear(ctx context.Context, tenantKey string) error

	// Load returns every persisted entry. It is used to hydrate the in-memory snapshot on startup.
	Load(ctx context.Context) ([]types.CacheEntry, error)
}
