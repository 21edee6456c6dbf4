package cache

import (
	"brokerfront/internal/metrics"
	"brokerfront/internal/ports"
	"brokerfront/internal/types"
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

const (
	TierSync    = "sync"
	TierDurable = "durable"
)

// TieredCache composes the synchronous tier and the durable tier.
//
// Writes go to the durable tier and are mirrored into the synchronous tier. Reads before hydration return the
// synchronous tier's value as a non-authoritative hint; once Hydrate has loaded the durable tier into memory,
// reads are served from that snapshot and are authoritative.
type TieredCache struct {
	sync    ports.SyncCache
	durable ports.DurableCache
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.RWMutex
	snapshot map[string]types.CacheEntry
	// cleared holds keys cleared while hydration is pending.
	cleared  map[string]struct{}

	hydrateMu sync.Mutex
	hydrated  atomic.Bool
	done      chan struct{}
}

type Option func(*TieredCache)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *TieredCache) { c.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(c *TieredCache) { c.now = now }
}

func NewTieredCache(s ports.SyncCache, d ports.DurableCache, opts ...Option) *TieredCache {
	c := &TieredCache{
		sync:     s,
		durable:  d,
		now:      time.Now,
		snapshot: make(map[string]types.CacheEntry),
		cleared:  make(map[string]struct{}),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Set writes the config for tenantKey to the durable tier and mirrors it into the synchronous tier.
// The durable write always happens, since other writers share that tier. When the config equals the last one
// written here, the entry keeps its LastUpdated, so repeated writes of the same pair leave both tiers unchanged.
// The mirror is written even if the durable write fails; the returned error reports the durable failure.
func (c *TieredCache) Set(ctx context.Context, tenantKey string, cfg types.BrokerConfig) error {
	entry := types.NewCacheEntry(tenantKey, cfg.Clone(), c.now())
	if prev, ok := c.snapshotEntry(tenantKey); ok && sameConfig(prev.Config, entry.Config) {
		entry.LastUpdated = prev.LastUpdated
	}

	err := c.durable.Set(ctx, entry)
	c.metrics.CacheWrite(TierDurable, err)
	if err == nil {
		c.mu.Lock()
		c.snapshot[tenantKey] = entry
		delete(c.cleared, tenantKey)
		c.mu.Unlock()
	}

	c.sync.Set(tenantKey, entry.Mirror())
	c.metrics.CacheWrite(TierSync, nil)

	if err != nil {
		log.WithError(err).WithField("tenant", tenantKey).Error("Durable cache write failed")
		return types.Err(types.ErrCacheAccess, err, "durable write %s", tenantKey)
	}
	return nil
}

// Hint is the pre-hydration read: the synchronous tier only, possibly stale.
func (c *TieredCache) Hint(tenantKey string) (*types.BrokerConfig, bool) {
	e, ok := c.sync.Get(tenantKey)
	c.metrics.CacheRead(TierSync, ok)
	if !ok {
		return nil, false
	}
	cfg := e.Config
	return &cfg, true
}

// Get returns the best known config without blocking. authoritative is false until hydration has completed, in
// which case the value, if any, comes from the synchronous tier.
func (c *TieredCache) Get(tenantKey string) (cfg *types.BrokerConfig, authoritative bool, ok bool) {
	if !c.Hydrated() {
		cfg, ok = c.Hint(tenantKey)
		return cfg, false, ok
	}
	e, ok := c.snapshotEntry(tenantKey)
	c.metrics.CacheRead(TierDurable, ok)
	if !ok {
		return nil, true, false
	}
	v := e.Config.Clone()
	return &v, true, true
}

// Entry reads the durable tier directly, bypassing the snapshot.
func (c *TieredCache) Entry(ctx context.Context, tenantKey string) (types.CacheEntry, error) {
	e, err := c.durable.Get(ctx, tenantKey)
	c.metrics.CacheRead(TierDurable, err == nil)
	return e, err
}

// Clear removes the tenant from the durable tier, then from the snapshot and the synchronous tier. Both removals
// are idempotent; the local tiers are cleared even when the durable clear fails so the caller can retry.
// A clear before hydration completes is remembered, so a Hydrate whose Load already saw the entry does not
// restore it.
func (c *TieredCache) Clear(ctx context.Context, tenantKey string) error {
	err := c.durable.Clear(ctx, tenantKey)
	c.mu.Lock()
	delete(c.snapshot, tenantKey)
	if !c.hydrated.Load() {
		c.cleared[tenantKey] = struct{}{}
	}
	c.mu.Unlock()
	c.sync.Clear(tenantKey)
	if err != nil {
		return types.Err(types.ErrCacheAccess, err, "durable clear %s", tenantKey)
	}
	return nil
}

// Hydrate loads every durable entry into memory and marks the cache authoritative. Entries written since startup
// are kept if they are newer than the persisted ones. A failed hydration can be retried; a successful one is not
// repeated.
func (c *TieredCache) Hydrate(ctx context.Context) error {
	c.hydrateMu.Lock()
	defer c.hydrateMu.Unlock()
	if c.hydrated.Load() {
		return nil
	}
	start := time.Now()
	entries, err := c.durable.Load(ctx)
	if err != nil {
		log.WithError(err).Error("Durable cache hydration failed")
		return types.Err(types.ErrCacheAccess, err, "hydrate")
	}
	c.mu.Lock()
	for _, e := range entries {
		if _, ok := c.cleared[e.BrokerKey]; ok {
			continue
		}
		if cur, ok := c.snapshot[e.BrokerKey]; ok && cur.LastUpdated >= e.LastUpdated {
			continue
		}
		c.snapshot[e.BrokerKey] = e
	}
	n := len(c.snapshot)
	c.hydrated.Store(true)
	c.cleared = nil
	c.mu.Unlock()

	close(c.done)
	c.metrics.SetHydrated(true)
	log.WithFields(log.Fields{
		"entries":  n,
		"duration": time.Since(start).String(),
	}).Info("Durable cache hydrated")
	return nil
}

// Hydrated reports whether the durable tier's values are authoritative.
func (c *TieredCache) Hydrated() bool {
	return c.hydrated.Load()
}

// WaitHydrated blocks until hydration has completed or ctx is done.
func (c *TieredCache) WaitHydrated(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Keys returns the tenant keys of the hydrated snapshot.
func (c *TieredCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.snapshot))
	for k := range c.snapshot {
		keys = append(keys, k)
	}
	return keys
}

func (c *TieredCache) snapshotEntry(tenantKey string) (types.CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.snapshot[tenantKey]
	return e, ok
}

// sameConfig compares the serialized forms, which is stable across the durable backends' decoders.
func sameConfig(a, b types.BrokerConfig) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if err := errors.Join(errA, errB); err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
