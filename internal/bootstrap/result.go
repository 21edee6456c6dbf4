package bootstrap

import (
	"brokerfront/internal/types"
	"time"

	json "github.com/goccy/go-json"
)

// Outcome is the terminal state of a bootstrap pass.
type Outcome string

const (
	OutcomePlatform        Outcome = "platform"
	OutcomeTenantNotFound  Outcome = "tenant_not_found"
	OutcomeTenantReady     Outcome = "tenant_ready"
	OutcomeCriticalFailure Outcome = "critical_failure"
)

// Result is the state published by one bootstrap pass. It is built once by the Orchestrator and has only read
// accessors; the config is copied on the way out.
type Result struct {
	config    *types.BrokerConfig
	tenant    string
	mode      bool
	err       string
	basePath  string
	outcome   Outcome
	pass      string
	fromCache bool
	duration  time.Duration
}

// Config is the tenant's config, nil unless the outcome is OutcomeTenantReady.
func (r *Result) Config() *types.BrokerConfig {
	if r.config == nil {
		return nil
	}
	c := r.config.Clone()
	return &c
}

// Mode reports tenant mode: true when a tenant key was resolved.
func (r *Result) Mode() bool { return r.mode }

// ErrorMessage is the user-facing message of the pass, empty when there is none.
func (r *Result) ErrorMessage() string { return r.err }

// BasePath is the router base path, non-empty only for preview paths.
func (r *Result) BasePath() string { return r.basePath }

// TenantKey is the resolved tenant key, empty in platform mode.
func (r *Result) TenantKey() string { return r.tenant }

func (r *Result) Outcome() Outcome { return r.outcome }

func (r *Result) PassID() string { return r.pass }

// FromCache is true when the config came from the synchronous tier instead of the lookup endpoint.
func (r *Result) FromCache() bool { return r.fromCache }

func (r *Result) Duration() time.Duration { return r.duration }

// Mountable is the mount signal: the application may be mounted for every outcome but a critical failure.
func (r *Result) Mountable() bool { return r.outcome != OutcomeCriticalFailure }

type resultJSON struct {
	Config    *types.BrokerConfig `json:"config"`
	Tenant    string              `json:"tenant,omitempty"`
	Mode      bool                `json:"mode"`
	Error     *string             `json:"error"`
	BasePath  string              `json:"basePath"`
	Outcome   Outcome             `json:"outcome"`
	Pass      string              `json:"pass"`
	FromCache bool                `json:"fromCache,omitempty"`
}

func (r *Result) MarshalJSON() ([]byte, error) {
	v := resultJSON{
		Config:    r.config,
		Tenant:    r.tenant,
		Mode:      r.mode,
		BasePath:  r.basePath,
		Outcome:   r.outcome,
		Pass:      r.pass,
		FromCache: r.fromCache,
	}
	if r.err != "" {
		msg := r.err
		v.Error = &msg
	}
	return json.Marshal(v)
}
