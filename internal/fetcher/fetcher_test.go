package fetcher

import (
	"brokerfront/internal/metrics"
	"brokerfront/internal/types"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

const activeBody = `{
  "config": {
    "brokerId": "b-001",
    "brokerName": "Egoras Markets",
    "subdomain": "egoras",
    "services": ["forex", "crypto"],
    "theme": {
      "colors": {"primary": "#0f62fe", "accent": "#f1c21b", "background": "#ffffff", "foreground": "#161616"},
      "typography": {"fontFamily": "Inter Tight"},
      "components": {"borderRadius": "lg", "cardStyle": "elevated"}
    },
    "pages": {"analytics": false},
    "branding": {"faviconUrl": "https://cdn.example.com/egoras.ico"},
    "status": "active",
    "createdAt": "2026-01-02T03:04:05Z",
    "updatedAt": "2026-02-03T04:05:06Z"
  }
}`

type FetcherTestSuite struct {
	suite.Suite
	srv      *httptest.Server
	handler  http.HandlerFunc
	requests atomic.Int32
	lastPath atomic.Value
}

func TestFetcherTestSuite(t *testing.T) {
	suite.Run(t, new(FetcherTestSuite))
}

func (s *FetcherTestSuite) SetupTest() {
	s.requests.Store(0)
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(activeBody))
	}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		s.lastPath.Store(r.URL.Path)
		s.handler(w, r)
	}))
}

func (s *FetcherTestSuite) TearDownTest() {
	s.srv.Close()
}

func (s *FetcherTestSuite) respond(status int, body string) {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (s *FetcherTestSuite) TestActiveConfig() {
	f := New(s.srv.URL + "/")
	cfg, err := f.Lookup(context.Background(), "egoras")
	s.Require().NoError(err)
	s.Require().NotNil(cfg)
	s.Equal("/broker/public/platform/subdomain/egoras", s.lastPath.Load())
	s.Equal("egoras", cfg.Subdomain)
	s.Equal("Egoras Markets", cfg.BrokerName)
	s.Equal([]types.Service{types.ServiceForex, types.ServiceCrypto}, cfg.Services)
	s.Equal("lg", cfg.Theme.Components.BorderRadius)
	s.False(cfg.PageEnabled("analytics"))
	s.True(cfg.PageEnabled("reports"))
	s.Equal(2026, cfg.CreatedAt.Year())
	s.Equal(int32(1), s.requests.Load())
}

func (s *FetcherTestSuite) TestNotFound() {
	s.respond(http.StatusNotFound, `{"message":"no such broker"}`)
	cfg, err := New(s.srv.URL).Lookup(context.Background(), "nobody")
	s.Nil(cfg)
	s.ErrorIs(err, types.ErrNotFound)
}

func (s *FetcherTestSuite) TestServerError() {
	s.respond(http.StatusBadGateway, `upstream`)
	cfg, err := New(s.srv.URL).Lookup(context.Background(), "egoras")
	s.Nil(cfg)
	s.ErrorIs(err, types.ErrTransport)
	s.Equal("transport", ResultLabel(err))
}

func (s *FetcherTestSuite) TestMalformedJSON() {
	s.respond(http.StatusOK, `{"config": {`)
	cfg, err := New(s.srv.URL).Lookup(context.Background(), "egoras")
	s.Nil(cfg)
	s.ErrorIs(err, types.ErrValidation)
}

func (s *FetcherTestSuite) TestMissingIdentityFields() {
	bodies := []string{
		`{}`,
		`{"config": null}`,
		`{"config": {"brokerName": "X", "subdomain": "x", "status": "active"}}`,
		`{"config": {"brokerId": "1", "subdomain": "x", "status": "active"}}`,
		`{"config": {"brokerId": "1", "brokerName": "X", "subdomain": "", "status": "active"}}`,
		`{"config": {"brokerId": 42, "brokerName": "X", "subdomain": "x", "status": "active"}}`,
	}
	for _, b := range bodies {
		s.respond(http.StatusOK, b)
		cfg, err := New(s.srv.URL).Lookup(context.Background(), "x")
		s.Nil(cfg, b)
		s.ErrorIs(err, types.ErrValidation, b)
	}
}

func (s *FetcherTestSuite) TestInactive() {
	for _, status := range []string{"draft", "suspended", ""} {
		s.respond(http.StatusOK, fmt.Sprintf(
			`{"config": {"brokerId": "1", "brokerName": "X", "subdomain": "x", "status": %q}}`, status))
		cfg, err := New(s.srv.URL).Lookup(context.Background(), "x")
		s.Nil(cfg, status)
		s.ErrorIs(err, types.ErrInactive, status)
	}
}

func (s *FetcherTestSuite) TestEmptyKeyMakesNoRequest() {
	cfg := New(s.srv.URL).Fetch(context.Background(), "")
	s.Nil(cfg)
	s.Equal(int32(0), s.requests.Load())
}

func (s *FetcherTestSuite) TestUnreachable() {
	f := New("http://127.0.0.1:1", WithBreaker(0, 0))
	cfg, err := f.Lookup(context.Background(), "egoras")
	s.Nil(cfg)
	s.ErrorIs(err, types.ErrTransport)
}

func (s *FetcherTestSuite) TestTimeout() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}
	f := New(s.srv.URL, WithTimeout(50*time.Millisecond), WithBreaker(0, 0))
	cfg, err := f.Lookup(context.Background(), "egoras")
	s.Nil(cfg)
	s.ErrorIs(err, types.ErrTransport)
}

func (s *FetcherTestSuite) TestBreakerOpensOnTransportFailures() {
	s.respond(http.StatusInternalServerError, "boom")
	f := New(s.srv.URL, WithBreaker(2, time.Minute))
	for i := 0; i < 2; i++ {
		_, err := f.Lookup(context.Background(), "egoras")
		s.ErrorIs(err, types.ErrTransport)
	}
	// open: no request reaches the server
	_, err := f.Lookup(context.Background(), "egoras")
	s.ErrorIs(err, types.ErrTransport)
	s.Equal(int32(2), s.requests.Load())
}

func (s *FetcherTestSuite) TestBreakerIgnoresNotFound() {
	s.respond(http.StatusNotFound, "")
	f := New(s.srv.URL, WithBreaker(1, time.Minute))
	for i := 0; i < 3; i++ {
		_, err := f.Lookup(context.Background(), "nobody")
		s.ErrorIs(err, types.ErrNotFound)
	}
	s.Equal(int32(3), s.requests.Load())
}

func (s *FetcherTestSuite) TestMetrics() {
	m := metrics.New(prometheus.NewRegistry())
	f := New(s.srv.URL, WithMetrics(m))
	_, _ = f.Lookup(context.Background(), "egoras")
	s.respond(http.StatusNotFound, "")
	_, _ = f.Lookup(context.Background(), "nobody")
	s.Equal(1.0, testutil.ToFloat64(m.FetchResults.WithLabelValues("ok")))
	s.Equal(1.0, testutil.ToFloat64(m.FetchResults.WithLabelValues("not_found")))
}
