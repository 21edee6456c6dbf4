package cache

import (
	"brokerfront/internal/backends/memory"
	"brokerfront/internal/metrics"
	"brokerfront/internal/types"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

type failingDurable struct {
	*memory.DurableStore
	setErr, loadErr, clearErr error
}

func (f *failingDurable) Set(ctx context.Context, e types.CacheEntry) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.DurableStore.Set(ctx, e)
}

func (f *failingDurable) Load(ctx context.Context) ([]types.CacheEntry, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.DurableStore.Load(ctx)
}

func (f *failingDurable) Clear(ctx context.Context, key string) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	return f.DurableStore.Clear(ctx, key)
}

// loadHookDurable runs afterLoad once Load has read the store, before the entries are returned.
type loadHookDurable struct {
	*memory.DurableStore
	afterLoad func()
}

func (d *loadHookDurable) Load(ctx context.Context) ([]types.CacheEntry, error) {
	entries, err := d.DurableStore.Load(ctx)
	if d.afterLoad != nil {
		d.afterLoad()
	}
	return entries, err
}

type TieredCacheTestSuite struct {
	suite.Suite
	ctx     context.Context
	durable *memory.DurableStore
	syncT   *SyncTier
	cache   *TieredCache
	clock   time.Time
}

func TestTieredCacheTestSuite(t *testing.T) {
	suite.Run(t, new(TieredCacheTestSuite))
}

func (s *TieredCacheTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.durable = memory.NewDurableStore()
	s.syncT = NewSyncTier()
	s.clock = time.UnixMilli(1_760_000_000_000)
	s.cache = NewTieredCache(s.syncT, s.durable, WithClock(func() time.Time { return s.clock }))
}

func sampleConfig(key string) types.BrokerConfig {
	return types.BrokerConfig{
		BrokerID:   "id-" + key,
		BrokerName: "Broker " + key,
		Subdomain:  key,
		Services:   []types.Service{types.ServiceForex, types.ServiceStocks},
		Theme: types.Theme{
			Colors:     types.ThemeColors{Primary: "#111111", Background: "#fafafa"},
			Components: types.ThemeComponents{BorderRadius: "sm", CardStyle: "flat"},
		},
		Pages:     map[string]bool{"reports": true, "kyc": false},
		Status:    types.StatusActive,
		CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *TieredCacheTestSuite) TestRoundTrip() {
	cfg := sampleConfig("egoras")
	s.Require().NoError(s.cache.Set(s.ctx, "egoras", cfg))

	hint, ok := s.cache.Hint("egoras")
	s.Require().True(ok)
	s.Equal(cfg, *hint)

	got, authoritative, ok := s.cache.Get("egoras")
	s.True(ok)
	s.False(authoritative)
	s.Equal(cfg, *got)

	s.Require().NoError(s.cache.Hydrate(s.ctx))
	got, authoritative, ok = s.cache.Get("egoras")
	s.True(ok)
	s.True(authoritative)
	s.Equal(cfg, *got)

	entry, err := s.cache.Entry(s.ctx, "egoras")
	s.NoError(err)
	s.Equal(cfg, entry.Config)
	s.Equal(s.clock.UnixMilli(), entry.LastUpdated)
}

func (s *TieredCacheTestSuite) TestHydrationFromAnotherSession() {
	cfg := sampleConfig("acme")
	s.Require().NoError(s.cache.Set(s.ctx, "acme", cfg))

	// a new process shares only the durable tier
	next := NewTieredCache(NewSyncTier(), s.durable)
	_, _, ok := next.Get("acme")
	s.False(ok)
	s.False(next.Hydrated())

	s.Require().NoError(next.Hydrate(s.ctx))
	s.True(next.Hydrated())
	got, authoritative, ok := next.Get("acme")
	s.True(ok)
	s.True(authoritative)
	s.Equal(cfg, *got)
	s.Equal([]string{"acme"}, next.Keys())
}

func (s *TieredCacheTestSuite) TestHydratedValueSupersedesHint() {
	stale := sampleConfig("acme")
	stale.BrokerName = "Stale"
	s.syncT.Set("acme", types.SyncEntry{TenantKey: "acme", Config: stale})

	fresh := sampleConfig("acme")
	s.Require().NoError(s.durable.Set(s.ctx, types.NewCacheEntry("acme", fresh, s.clock)))

	got, authoritative, _ := s.cache.Get("acme")
	s.False(authoritative)
	s.Equal("Stale", got.BrokerName)

	s.Require().NoError(s.cache.Hydrate(s.ctx))
	got, authoritative, _ = s.cache.Get("acme")
	s.True(authoritative)
	s.Equal(fresh.BrokerName, got.BrokerName)
}

func (s *TieredCacheTestSuite) TestHydrateKeepsNewerWrites() {
	old := sampleConfig("acme")
	old.BrokerName = "Old"
	s.Require().NoError(s.durable.Set(s.ctx, types.NewCacheEntry("acme", old, s.clock.Add(-time.Hour))))

	newer := sampleConfig("acme")
	s.durable.Sets = 0
	s.Require().NoError(s.cache.Set(s.ctx, "acme", newer))
	s.Require().NoError(s.cache.Hydrate(s.ctx))

	got, _, _ := s.cache.Get("acme")
	s.Equal(newer.BrokerName, got.BrokerName)
}

func (s *TieredCacheTestSuite) TestIdempotentWrites() {
	cfg := sampleConfig("egoras")
	s.Require().NoError(s.cache.Set(s.ctx, "egoras", cfg))
	first, err := s.cache.Entry(s.ctx, "egoras")
	s.Require().NoError(err)

	s.clock = s.clock.Add(time.Minute)
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.cache.Set(s.ctx, "egoras", cfg))
	}
	again, err := s.cache.Entry(s.ctx, "egoras")
	s.Require().NoError(err)
	s.Equal(first, again)
	s.Equal(4, s.durable.Sets)

	hint, ok := s.cache.Hint("egoras")
	s.True(ok)
	s.Equal(cfg, *hint)
	s.Equal(1, s.syncT.Len())
}

func (s *TieredCacheTestSuite) TestWriteReachesDurableAfterClearElsewhere() {
	cfg := sampleConfig("egoras")
	other := NewTieredCache(NewSyncTier(), s.durable)

	s.Require().NoError(s.cache.Set(s.ctx, "egoras", cfg))
	s.Require().NoError(other.Clear(s.ctx, "egoras"))
	_, err := s.durable.Get(s.ctx, "egoras")
	s.Require().ErrorIs(err, types.ErrNotFound)

	s.Require().NoError(s.cache.Set(s.ctx, "egoras", cfg))
	e, err := s.durable.Get(s.ctx, "egoras")
	s.Require().NoError(err)
	s.Equal(cfg, e.Config)
	s.Equal(2, s.durable.Sets)

	s.Require().NoError(other.Hydrate(s.ctx))
	got, authoritative, ok := other.Get("egoras")
	s.True(ok)
	s.True(authoritative)
	s.Equal(cfg, *got)
}

func (s *TieredCacheTestSuite) TestClearDuringHydrateIsNotRestored() {
	cfg := sampleConfig("egoras")
	s.Require().NoError(s.durable.Set(s.ctx, types.NewCacheEntry("egoras", cfg, s.clock)))
	s.Require().NoError(s.durable.Set(s.ctx, types.NewCacheEntry("acme", sampleConfig("acme"), s.clock)))

	hooked := &loadHookDurable{DurableStore: s.durable}
	c := NewTieredCache(NewSyncTier(), hooked)
	hooked.afterLoad = func() {
		s.Require().NoError(c.Clear(s.ctx, "egoras"))
	}
	s.Require().NoError(c.Hydrate(s.ctx))

	_, _, ok := c.Get("egoras")
	s.False(ok)
	_, _, ok = c.Get("acme")
	s.True(ok)

	s.Require().NoError(c.Set(s.ctx, "egoras", cfg))
	e, err := s.durable.Get(s.ctx, "egoras")
	s.Require().NoError(err)
	s.Equal(cfg, e.Config)
	got, _, ok := c.Get("egoras")
	s.True(ok)
	s.Equal(cfg, *got)
}

func (s *TieredCacheTestSuite) TestChangedConfigOverwrites() {
	cfg := sampleConfig("egoras")
	s.Require().NoError(s.cache.Set(s.ctx, "egoras", cfg))
	s.clock = s.clock.Add(time.Minute)
	cfg.BrokerName = "Renamed"
	s.Require().NoError(s.cache.Set(s.ctx, "egoras", cfg))

	e, err := s.cache.Entry(s.ctx, "egoras")
	s.Require().NoError(err)
	s.Equal("Renamed", e.Config.BrokerName)
	s.Equal(s.clock.UnixMilli(), e.LastUpdated)
	s.Equal(2, s.durable.Sets)
}

func (s *TieredCacheTestSuite) TestCallerMutationDoesNotLeak() {
	cfg := sampleConfig("egoras")
	s.Require().NoError(s.cache.Set(s.ctx, "egoras", cfg))
	cfg.Pages["kyc"] = true
	cfg.Services[0] = types.ServiceCrypto

	hint, _ := s.cache.Hint("egoras")
	s.False(hint.Pages["kyc"])
	s.Equal(types.ServiceForex, hint.Services[0])
}

func (s *TieredCacheTestSuite) TestClearRemovesBothTiers() {
	s.Require().NoError(s.cache.Set(s.ctx, "egoras", sampleConfig("egoras")))
	s.Require().NoError(s.cache.Hydrate(s.ctx))

	s.Require().NoError(s.cache.Clear(s.ctx, "egoras"))
	_, ok := s.cache.Hint("egoras")
	s.False(ok)
	_, _, ok = s.cache.Get("egoras")
	s.False(ok)
	_, err := s.cache.Entry(s.ctx, "egoras")
	s.ErrorIs(err, types.ErrNotFound)

	// idempotent
	s.NoError(s.cache.Clear(s.ctx, "egoras"))
}

func (s *TieredCacheTestSuite) TestDurableWriteFailureStillMirrors() {
	boom := errors.New("boom")
	c := NewTieredCache(s.syncT, &failingDurable{DurableStore: s.durable, setErr: boom})
	err := c.Set(s.ctx, "egoras", sampleConfig("egoras"))
	s.ErrorIs(err, types.ErrCacheAccess)
	s.ErrorIs(err, boom)

	_, ok := c.Hint("egoras")
	s.True(ok)
	_, err = s.durable.Get(s.ctx, "egoras")
	s.ErrorIs(err, types.ErrNotFound)
}

func (s *TieredCacheTestSuite) TestDurableClearFailureStillClearsLocal() {
	fd := &failingDurable{DurableStore: s.durable, clearErr: errors.New("down")}
	c := NewTieredCache(s.syncT, fd)
	s.Require().NoError(c.Set(s.ctx, "egoras", sampleConfig("egoras")))
	err := c.Clear(s.ctx, "egoras")
	s.ErrorIs(err, types.ErrCacheAccess)
	_, ok := c.Hint("egoras")
	s.False(ok)
}

func (s *TieredCacheTestSuite) TestHydrationFailureCanBeRetried() {
	fd := &failingDurable{DurableStore: s.durable, loadErr: errors.New("down")}
	c := NewTieredCache(s.syncT, fd)
	s.Error(c.Hydrate(s.ctx))
	s.False(c.Hydrated())

	fd.loadErr = nil
	s.NoError(c.Hydrate(s.ctx))
	s.True(c.Hydrated())
	s.NoError(c.Hydrate(s.ctx))
}

func (s *TieredCacheTestSuite) TestWaitHydrated() {
	ctx, cancel := context.WithTimeout(s.ctx, 20*time.Millisecond)
	defer cancel()
	s.ErrorIs(s.cache.WaitHydrated(ctx), context.DeadlineExceeded)

	go func() {
		_ = s.cache.Hydrate(context.Background())
	}()
	s.NoError(s.cache.WaitHydrated(s.ctx))
	s.True(s.cache.Hydrated())
}

func (s *TieredCacheTestSuite) TestMetrics() {
	m := metrics.New(prometheus.NewRegistry())
	c := NewTieredCache(s.syncT, s.durable, WithMetrics(m))
	_, _ = c.Hint("nobody")
	s.Require().NoError(c.Set(s.ctx, "egoras", sampleConfig("egoras")))
	_, _ = c.Hint("egoras")
	s.Require().NoError(c.Hydrate(s.ctx))

	s.Equal(1.0, testutil.ToFloat64(m.CacheReads.WithLabelValues(TierSync, "miss")))
	s.Equal(1.0, testutil.ToFloat64(m.CacheReads.WithLabelValues(TierSync, "hit")))
	s.Equal(1.0, testutil.ToFloat64(m.CacheWrites.WithLabelValues(TierDurable, "ok")))
	s.Equal(1.0, testutil.ToFloat64(m.Hydrated))
}
