package cmds

import (
	"brokerfront/internal/bootstrap"
	"brokerfront/internal/cache"
	"brokerfront/internal/config"
	"brokerfront/internal/fetcher"
	"brokerfront/internal/metrics"
	"brokerfront/internal/ports"
	"brokerfront/internal/pub"
	"brokerfront/internal/resolver"
	"brokerfront/internal/shell"
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App is the wired service: every command builds one from the settings and a durable tier.
type App struct {
	Settings     config.Settings
	Registry     *prometheus.Registry
	Metrics      *metrics.Metrics
	Cache        *cache.TieredCache
	Fetcher      *fetcher.Fetcher
	Orchestrator *bootstrap.Orchestrator
	Announcer    *pub.Announcer
}

// NewApp wires the components. publisher may be nil, in which case one is built from the settings when a deploy
// topic is configured.
func NewApp(ctx context.Context, s config.Settings, durable ports.DurableCache, publisher ports.Publisher) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	if publisher == nil && s.DeployTopicARN != "" {
		cli, err := pub.SNSClient(ctx, s.SNSEndpoint)
		if err != nil {
			return nil, err
		}
		publisher = pub.NewSNS(cli)
	}

	var resolverOpts []resolver.Option
	if s.PlatformDomains != nil {
		resolverOpts = append(resolverOpts, resolver.WithPlatformDomains(s.PlatformDomains...))
	}
	if s.Reserved != nil {
		resolverOpts = append(resolverOpts, resolver.WithReserved(s.Reserved...))
	}
	resolverOpts = append(resolverOpts,
		resolver.WithOverrideParam(s.OverrideParam),
		resolver.WithPreviewPrefix(s.PreviewPrefix),
	)

	f := fetcher.New(s.LookupBaseURL,
		fetcher.WithTimeout(s.FetchTimeout),
		fetcher.WithBreaker(s.BreakerFailures, s.BreakerCooldown),
		fetcher.WithMetrics(m),
	)
	c := cache.NewTieredCache(cache.NewSyncTier(), durable, cache.WithMetrics(m))
	o := bootstrap.New(resolver.New(resolverOpts...), f,
		bootstrap.WithCache(c),
		bootstrap.WithBaseDocument(shell.DefaultDocument()),
		bootstrap.WithMetrics(m),
		bootstrap.WithFallbackToCache(s.FallbackToCache),
	)
	return &App{
		Settings:     s,
		Registry:     reg,
		Metrics:      m,
		Cache:        c,
		Fetcher:      f,
		Orchestrator: o,
		Announcer:    pub.NewAnnouncer(publisher, s.DeployTopicARN),
	}, nil
}
