package types

import "time"

const (
	// DurableStoreKey is the fixed key of the durable tier's full persisted config store.
	DurableStoreKey = "broker-config-storage"
	// syncKeyPrefix is prepended to the tenant key to derive the synchronous mirror key.
	syncKeyPrefix = "broker_config_"
)

// CacheEntry is the persisted durable tier record for a tenant. It is overwritten on every successful fetch or
// deployment for the same key and never expires; staleness is tolerated until the next successful fetch.
type CacheEntry struct {
	BrokerKey string       `json:"brokerKey" dynamodbav:"broker_key"`
	Config    BrokerConfig `json:"config" dynamodbav:"config"`
	// LastUpdated is in epoch milliseconds.
	LastUpdated int64 `json:"lastUpdated" dynamodbav:"last_updated"`
}

// SyncEntry is the subset of CacheEntry mirrored into the synchronous tier.
type SyncEntry struct {
	TenantKey string       `json:"tenantKey"`
	Config    BrokerConfig `json:"config"`
}

func NewCacheEntry(key string, cfg BrokerConfig, at time.Time) CacheEntry {
	return CacheEntry{BrokerKey: key, Config: cfg, LastUpdated: at.UnixMilli()}
}

// Mirror returns the synchronous tier projection of the entry.
func (e CacheEntry) Mirror() SyncEntry {
	return SyncEntry{TenantKey: e.BrokerKey, Config: e.Config}
}

// SyncKey derives the per-tenant key of the synchronous mirror.
func SyncKey(tenantKey string) string {
	return syncKeyPrefix + tenantKey
}
