package api

import (
	"brokerfront/internal/bootstrap"
	"brokerfront/internal/cache"
	"brokerfront/internal/pub"
	"brokerfront/internal/shell"
	"brokerfront/internal/types"
	"bytes"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	maxConfigBytes = 1 << 20
)

type Handler struct {
	Orchestrator *bootstrap.Orchestrator
	Cache        *cache.TieredCache
	Shell        *shell.Renderer
	Announcer    *pub.Announcer
	Gatherer     prometheus.Gatherer
}

func NewHandler(o *bootstrap.Orchestrator, c *cache.TieredCache, r *shell.Renderer, a *pub.Announcer, g prometheus.Gatherer) *Handler {
	return &Handler{
		Orchestrator: o,
		Cache:        c,
		Shell:        r,
		Announcer:    a,
		Gatherer:     g,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if h.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("GET /bootstrap", h.handleBootstrap)
	mux.HandleFunc("POST /deploy", h.handleDeploy)
	mux.HandleFunc("GET /cache/{tenant}", h.handleCacheGet)
	mux.HandleFunc("DELETE /cache/{tenant}", h.handleCacheClear)
	mux.HandleFunc("GET /", h.handleShell)
	return gzhttp.GzipHandler(mux)
}

// handleShell runs a bootstrap pass and renders the themed shell, or the failure page on a critical failure.
func (h *Handler) handleShell(w http.ResponseWriter, r *http.Request) {
	res, doc := h.Orchestrator.Run(r.Context(), requestHost(r), r.URL)

	var buf bytes.Buffer
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if !res.Mountable() {
		if err := h.Shell.Failure(&buf, ""); err != nil {
			http.Error(w, "failed to render page", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(buf.Bytes())
		return
	}
	if err := h.Shell.Shell(&buf, doc, res, true); err != nil {
		log.WithError(err).WithField("pass", res.PassID()).Error("Failed to render shell")
		buf.Reset()
		if err := h.Shell.Failure(&buf, ""); err != nil {
			http.Error(w, "failed to render page", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(buf.Bytes())
		return
	}
	w.WriteHeader(statusFor(res.Outcome()))
	_, _ = w.Write(buf.Bytes())
}

// handleBootstrap runs a bootstrap pass and returns the published result without the shell.
func (h *Handler) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	res, _ := h.Orchestrator.Run(r.Context(), requestHost(r), r.URL)
	w.Header().Set("Cache-Control", "no-store")
	if err := writeJSON(w, statusFor(res.Outcome()), res); err != nil {
		log.WithError(err).Error("Failed to write bootstrap result")
	}
}

// handleDeploy is the deployment write path: the posted config is validated, written to both cache tiers and
// announced on the deploy topic.
func (h *Handler) handleDeploy(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxConfigBytes))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	defer func() {
		_ = r.Body.Close()
	}()
	if len(body) == 0 {
		http.Error(w, "empty body", http.StatusBadRequest)
		return
	}
	var cfg types.BrokerConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	cfg.Subdomain = strings.ToLower(strings.TrimSpace(cfg.Subdomain))
	if err := cfg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	ctx := r.Context()
	logger := log.WithFields(log.Fields{"tenant": cfg.Subdomain, "client": clientIP(r)})
	if err := h.Cache.Set(ctx, cfg.Subdomain, cfg); err != nil {
		http.Error(w, "failed to store config", http.StatusBadGateway)
		return
	}
	if err := h.Announcer.Deployed(ctx, cfg); err != nil {
		logger.WithError(err).Warn("Deploy stored but not announced")
	}
	logger.Info("Broker config deployed")
	if err := writeJSON(w, http.StatusAccepted, map[string]any{"status": "deployed", "tenant": cfg.Subdomain}); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}

// handleCacheGet is the post-mount read: the best known config and whether hydration has made it authoritative.
func (h *Handler) handleCacheGet(w http.ResponseWriter, r *http.Request) {
	tenant := strings.ToLower(r.PathValue("tenant"))
	cfg, authoritative, ok := h.Cache.Get(tenant)
	resp := map[string]any{"tenant": tenant, "authoritative": authoritative}
	code := http.StatusNotFound
	if ok {
		resp["config"] = cfg
		code = http.StatusOK
	}
	if err := writeJSON(w, code, resp); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}

// handleCacheClear removes a tenant from both tiers, as on logout or tenant switch.
func (h *Handler) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	tenant := strings.ToLower(r.PathValue("tenant"))
	ctx := r.Context()
	if err := h.Cache.Clear(ctx, tenant); err != nil {
		http.Error(w, "failed to clear cache", http.StatusBadGateway)
		return
	}
	if err := h.Announcer.Cleared(ctx, tenant); err != nil {
		log.WithError(err).WithField("tenant", tenant).Warn("Clear not announced")
	}
	if err := writeJSON(w, http.StatusOK, map[string]any{"status": "cleared", "tenant": tenant}); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}

func statusFor(o bootstrap.Outcome) int {
	switch o {
	case bootstrap.OutcomeTenantNotFound:
		return http.StatusNotFound
	case bootstrap.OutcomeCriticalFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

// requestHost returns the host the client asked for, preferring X-Forwarded-Host set by the edge proxy.
func requestHost(r *http.Request) string {
	if xfh := r.Header.Get("X-Forwarded-Host"); xfh != "" {
		return strings.TrimSpace(strings.Split(xfh, ",")[0])
	}
	return r.Host
}

// clientIP extracts the real client IP from X-Forwarded-For or RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// If SplitHostPort fails, return the RemoteAddr as-is
		return r.RemoteAddr
	}
	return host
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}
