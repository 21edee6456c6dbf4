package fetcher

import (
	"brokerfront/internal/metrics"
	"brokerfront/internal/types"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const (
	// LookupPath is appended to the base URL, followed by the escaped tenant key.
	LookupPath = "/broker/public/platform/subdomain/"

	DefaultBreakerFailures = 5
	DefaultBreakerCooldown = 30 * time.Second

	maxBodyBytes = 1 << 20
)

// Fetcher retrieves a tenant's BrokerConfig from the backend lookup endpoint. One request per call, no retries.
type Fetcher struct {
	baseURL  string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	timeout  time.Duration
	required []string
	metrics  *metrics.Metrics
}

type Option func(*Fetcher)

func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithTimeout bounds each lookup. Zero, the default, leaves the request bounded only by the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

func WithRequiredFields(expressions ...string) Option {
	return func(f *Fetcher) { f.required = expressions }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

// WithBreaker trips the breaker after the given number of consecutive transport failures. While open, lookups fail
// fast with types.ErrTransport. failures <= 0 disables the breaker.
func WithBreaker(failures int, cooldown time.Duration) Option {
	return func(f *Fetcher) { f.breaker = newBreaker(failures, cooldown) }
}

func New(baseURL string, opts ...Option) *Fetcher {
	f := &Fetcher{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{},
		breaker:  newBreaker(DefaultBreakerFailures, DefaultBreakerCooldown),
		required: DefaultRequiredFields,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func newBreaker(failures int, cooldown time.Duration) *gobreaker.CircuitBreaker {
	if failures <= 0 {
		return nil
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "broker-config-lookup",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		// Only transport failures count against the backend; a missing or inactive broker is a valid answer.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, types.ErrTransport)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(log.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
}

// Fetch returns the validated config, or nil on any failure. The failure is logged by Lookup.
func (f *Fetcher) Fetch(ctx context.Context, tenantKey string) *types.BrokerConfig {
	cfg, _ := f.Lookup(ctx, tenantKey)
	return cfg
}

// Lookup performs the request and validates the response all-or-nothing. A nil config always comes with one of
// types.ErrNotFound, types.ErrInactive, types.ErrTransport or types.ErrValidation.
func (f *Fetcher) Lookup(ctx context.Context, tenantKey string) (*types.BrokerConfig, error) {
	start := time.Now()
	cfg, err := f.lookup(ctx, tenantKey)
	f.metrics.ObserveFetch(ResultLabel(err), start)
	logLookup(tenantKey, err)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f *Fetcher) lookup(ctx context.Context, tenantKey string) (*types.BrokerConfig, error) {
	if tenantKey == "" {
		return nil, types.Err(types.ErrValidation, nil, "empty tenant key")
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	body, err := f.get(ctx, tenantKey)
	if err != nil {
		return nil, err
	}
	return decode(body, f.required)
}

// get runs the request through the breaker, if any.
func (f *Fetcher) get(ctx context.Context, tenantKey string) ([]byte, error) {
	if f.breaker == nil {
		return f.do(ctx, tenantKey)
	}
	v, err := f.breaker.Execute(func() (interface{}, error) {
		return f.do(ctx, tenantKey)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, types.Err(types.ErrTransport, err, "lookup endpoint unavailable")
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (f *Fetcher) do(ctx context.Context, tenantKey string) ([]byte, error) {
	endpoint := f.baseURL + LookupPath + url.PathEscape(tenantKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, types.Err(types.ErrTransport, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, types.Err(types.ErrTransport, err, "")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusNotFound {
		return nil, types.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, types.Err(types.ErrTransport, nil, "unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, types.Err(types.ErrTransport, err, "read body")
	}
	return body, nil
}

type lookupResponse struct {
	Config *types.BrokerConfig `json:"config"`
}

// decode validates the raw body and returns the config. Shape first (JSON, identity fields), then lifecycle.
func decode(body []byte, required []string) (*types.BrokerConfig, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, types.Err(types.ErrValidation, err, "malformed json")
	}
	missing, err := missingFields(required, raw)
	if err != nil {
		return nil, types.Err(types.ErrValidation, err, "")
	}
	if len(missing) > 0 {
		return nil, types.Err(types.ErrValidation, nil, "missing fields: %s", strings.Join(missing, ", "))
	}
	var resp lookupResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, types.Err(types.ErrValidation, err, "decode config")
	}
	if resp.Config == nil {
		return nil, types.Err(types.ErrValidation, nil, "missing config")
	}
	if resp.Config.Status != types.StatusActive {
		return nil, types.Err(types.ErrInactive, nil, "status %q", resp.Config.Status)
	}
	if err := resp.Config.Validate(); err != nil {
		return nil, types.Err(types.ErrValidation, err, "")
	}
	return resp.Config, nil
}

// ResultLabel maps a lookup error to a short result name.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, types.ErrNotFound):
		return "not_found"
	case errors.Is(err, types.ErrInactive):
		return "inactive"
	case errors.Is(err, types.ErrValidation):
		return "validation"
	case errors.Is(err, types.ErrTransport):
		return "transport"
	default:
		return "error"
	}
}

func logLookup(tenantKey string, err error) {
	entry := log.WithField("tenant", tenantKey)
	switch {
	case err == nil:
		entry.Debug("Broker config fetched")
	case errors.Is(err, types.ErrNotFound):
		entry.Info("Broker not found")
	case errors.Is(err, types.ErrInactive):
		entry.WithError(err).Warn("Broker config is not active")
	default:
		entry.WithError(err).Error(fmt.Sprintf("Broker config lookup failed (%s)", ResultLabel(err)))
	}
}
