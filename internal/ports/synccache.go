package ports

import "brokerfront/internal/types"

// SyncCache is the synchronous tier: small, same-process, readable before any I/O has happened.
// Implementations MUST NOT block on I/O; every method returns immediately.
type SyncCache interface {
	// Get returns the mirrored entry for the tenant key, and false if there is none.
	Get(tenantKey string) (types.SyncEntry, bool)

	Set(tenantKey string, entry types.SyncEntry)

	// Clear removes the tenant key. Clearing a missing key is a no-op.
	Clear(tenantKey string)
}
