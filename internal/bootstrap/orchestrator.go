package bootstrap

import (
	"brokerfront/internal/cache"
	"brokerfront/internal/metrics"
	"brokerfront/internal/ports"
	"brokerfront/internal/resolver"
	"brokerfront/internal/theme"
	"brokerfront/internal/types"
	"context"
	"errors"
	"fmt"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	CriticalMessage = "The application could not be started."
)

// Orchestrator runs bootstrap passes: resolve, fetch, apply the theme, write the cache, publish.
// It is safe for concurrent use; every pass works on its own copy of the base document.
type Orchestrator struct {
	resolver *resolver.Resolver
	source   ports.ConfigSource
	cache    *cache.TieredCache
	base     *theme.Document
	metrics  *metrics.Metrics
	fallback bool
}

type Option func(*Orchestrator)

// WithCache enables the write path and the synchronous hint read.
func WithCache(c *cache.TieredCache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithBaseDocument sets the document every pass starts from.
func WithBaseDocument(d *theme.Document) Option {
	return func(o *Orchestrator) {
		if d != nil {
			o.base = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithFallbackToCache lets a transport failure reach TenantReady from a cached hint.
func WithFallbackToCache(enabled bool) Option {
	return func(o *Orchestrator) { o.fallback = enabled }
}

func New(r *resolver.Resolver, source ports.ConfigSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		resolver: r,
		source:   source,
		base:     theme.NewDocument(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run performs one bootstrap pass for the request host and URL. It always returns a result and the document to
// render; a panic anywhere in the pass is turned into OutcomeCriticalFailure with the untouched base document.
func (o *Orchestrator) Run(ctx context.Context, host string, u *url.URL) (res *Result, doc *theme.Document) {
	start := time.Now()
	pass := uuid.NewString()
	logger := log.WithFields(log.Fields{"pass": pass, "host": host})

	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", fmt.Sprint(r)).Errorf("Bootstrap pass failed\n%s", debug.Stack())
			res = &Result{err: CriticalMessage, outcome: OutcomeCriticalFailure, pass: pass}
			doc = o.base.Clone()
		}
		res.duration = time.Since(start)
		o.metrics.ObserveBootstrap(string(res.outcome), start)
		logger.WithFields(log.Fields{
			"outcome":  res.outcome,
			"tenant":   res.tenant,
			"duration": res.duration.String(),
		}).Info("Bootstrap pass finished")
	}()

	doc = o.base.Clone()
	res = o.run(ctx, logger, pass, host, u, doc)
	return res, doc
}

func (o *Orchestrator) run(ctx context.Context, logger *log.Entry, pass, host string, u *url.URL, doc *theme.Document) *Result {
	var path string
	var query url.Values
	if u != nil {
		path = u.Path
		query = u.Query()
	}
	tr, rule := o.resolver.ResolveRule(host, path, query)
	logger = logger.WithField("rule", rule)
	if !tr.IsBroker() {
		return &Result{outcome: OutcomePlatform, basePath: tr.PathPrefix, pass: pass}
	}

	key := tr.Subdomain
	res := &Result{tenant: key, mode: true, basePath: tr.PathPrefix, pass: pass}

	var hint *types.BrokerConfig
	if o.cache != nil {
		hint, _ = o.cache.Hint(key)
	}
	logger = logger.WithField("tenant", key)
	logger.WithField("hint", hint != nil).Debug("Tenant resolved")

	cfg, err := o.source.Lookup(ctx, key)
	if cfg == nil && o.fallback && errors.Is(err, types.ErrTransport) && hint != nil && hint.Usable() {
		logger.WithError(err).Warn("Serving cached broker config")
		cfg, res.fromCache = hint, true
	}
	if cfg != nil && !cfg.Usable() {
		cfg, err = nil, types.Err(types.ErrInactive, nil, "status %q", cfg.Status)
	}
	if cfg == nil {
		res.outcome = OutcomeTenantNotFound
		res.err = FailureMessage(key, err)
		return res
	}

	theme.Apply(doc, cfg)
	if o.cache != nil && !res.fromCache {
		if err := o.cache.Set(ctx, key, *cfg); err != nil {
			logger.WithError(err).Warn("Broker config not cached")
		}
	}
	c := cfg.Clone()
	res.config = &c
	res.outcome = OutcomeTenantReady
	return res
}

// FailureMessage is the user-facing message for a failed lookup. It always names the tenant key and never carries
// transport or validation detail.
func FailureMessage(tenantKey string, err error) string {
	if err == nil || errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrInactive) {
		return fmt.Sprintf("Broker %q was not found.", tenantKey)
	}
	return fmt.Sprintf("Broker %q could not be loaded. Please try again later.", tenantKey)
}
