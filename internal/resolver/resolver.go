package resolver

import (
	"net"
	"net/url"
	"strings"
)

// Kind tells whether a request is served as the platform itself or as a broker tenant.
type Kind string

const (
	KindPlatform Kind = "platform"
	KindBroker   Kind = "broker"
)

// TenantResolution is the result of resolving a request URL. It is produced fresh on every call and never persisted.
// An empty Subdomain means no tenant.
type TenantResolution struct {
	Kind       Kind   `json:"kind"`
	Subdomain  string `json:"subdomain,omitempty"`
	PathPrefix string `json:"pathPrefix"`
}

func (r TenantResolution) IsBroker() bool { return r.Kind == KindBroker }

// Rule names which resolution rule decided the outcome. It is informational only (logs, metrics).
type Rule string

const (
	RuleOverride       Rule = "override"
	RulePreviewPath    Rule = "preview_path"
	RulePlatformDomain Rule = "platform_domain"
	RuleTooFewLabels   Rule = "too_few_labels"
	RuleReserved       Rule = "reserved"
	RuleSubdomain      Rule = "subdomain"
	RuleEmptyHost      Rule = "empty_host"
)

// MatchRule is one of the three platform domain match rules. All three are applied to every configured platform
// domain. Containment also matches preview hosting wildcards
// (e.g. "my-branch-abc.vercel.app").
type MatchRule string

const (
	MatchEqual    MatchRule = "equal"
	MatchSuffix   MatchRule = "suffix"
	MatchContains MatchRule = "contains"
)

const (
	DefaultOverrideParam = "broker"
	DefaultPreviewPrefix = "/preview"
	MinTenantLabels      = 3
)

var (
	DefaultPlatformDomains = []string{"localhost", "127.0.0.1", "vercel.app", "netlify.app"}
	DefaultReserved        = []string{"www", "api", "admin", "app"}
)

// Resolver maps a host and query to a TenantResolution. It holds configuration only; Resolve has no side effects.
type Resolver struct {
	platformDomains []string
	reserved        map[string]struct{}
	overrideParam   string
	previewPrefix   string
}

type Option func(*Resolver)

// WithPlatformDomains replaces the platform domain list.
func WithPlatformDomains(domains ...string) Option {
	return func(r *Resolver) {
		r.platformDomains = normalizeAll(domains)
	}
}

// WithReserved replaces the reserved subdomain list.
func WithReserved(labels ...string) Option {
	return func(r *Resolver) {
		r.reserved = toSet(normalizeAll(labels))
	}
}

// WithOverrideParam sets the query parameter that forces a tenant key.
func WithOverrideParam(name string) Option {
	return func(r *Resolver) {
		r.overrideParam = name
	}
}

// WithPreviewPrefix sets the path prefix used to simulate subdomains. An empty prefix disables the simulation.
func WithPreviewPrefix(prefix string) Option {
	return func(r *Resolver) {
		r.previewPrefix = strings.TrimRight(prefix, "/")
	}
}

func New(opts ...Option) *Resolver {
	r := &Resolver{
		platformDomains: normalizeAll(DefaultPlatformDomains),
		reserved:        toSet(DefaultReserved),
		overrideParam:   DefaultOverrideParam,
		previewPrefix:   DefaultPreviewPrefix,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the resolution for a URL. Host may carry a port.
func (r *Resolver) Resolve(host string, query url.Values) TenantResolution {
	res, _ := r.ResolveRule(host, "", query)
	return res
}

// ResolveURL resolves a full request URL, including the preview path simulation.
func (r *Resolver) ResolveURL(host string, u *url.URL) TenantResolution {
	var path string
	var query url.Values
	if u != nil {
		path = u.Path
		query = u.Query()
	}
	res, _ := r.ResolveRule(host, path, query)
	return res
}

// ResolveRule is Resolve plus the rule that decided the outcome.
// Precedence: override parameter, platform domain (with the preview path on platform hosts), label count,
// reserved label.
func (r *Resolver) ResolveRule(host, path string, query url.Values) (TenantResolution, Rule) {
	if r.overrideParam != "" {
		if key := normalizeKey(query.Get(r.overrideParam)); key != "" {
			return broker(key, ""), RuleOverride
		}
	}

	h := normalizeHost(host)
	if h == "" {
		return platform(), RuleEmptyHost
	}
	if _, ok := r.MatchPlatform(h); ok {
		// Preview paths only simulate subdomains on platform hosts.
		if key, prefix, ok := r.previewKey(path); ok {
			return broker(key, prefix), RulePreviewPath
		}
		return platform(), RulePlatformDomain
	}

	labels := strings.Split(h, ".")
	if len(labels) < MinTenantLabels {
		return platform(), RuleTooFewLabels
	}
	first := labels[0]
	if _, ok := r.reserved[first]; ok || first == "" {
		return platform(), RuleReserved
	}
	return broker(first, ""), RuleSubdomain
}

// MatchPlatform checks the host against the platform domains and returns the first rule that matched.
// Containment implies the other two rules; the narrower rule is reported when it applies.
func (r *Resolver) MatchPlatform(host string) (MatchRule, bool) {
	h := normalizeHost(host)
	for _, d := range r.platformDomains {
		switch {
		case h == d:
			return MatchEqual, true
		case strings.HasSuffix(h, d):
			return MatchSuffix, true
		case strings.Contains(h, d):
			return MatchContains, true
		}
	}
	return "", false
}

func (r *Resolver) previewKey(path string) (key, prefix string, ok bool) {
	if r.previewPrefix == "" || path == "" {
		return "", "", false
	}
	rest, found := strings.CutPrefix(path, r.previewPrefix+"/")
	if !found {
		return "", "", false
	}
	seg, _, _ := strings.Cut(rest, "/")
	key = normalizeKey(seg)
	if key == "" {
		return "", "", false
	}
	return key, r.previewPrefix + "/" + seg, true
}

func platform() TenantResolution {
	return TenantResolution{Kind: KindPlatform}
}

func broker(key, prefix string) TenantResolution {
	return TenantResolution{Kind: KindBroker, Subdomain: key, PathPrefix: prefix}
}

// normalizeHost lower-cases the host and strips the port and a trailing dot.
func normalizeHost(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	if hp, _, err := net.SplitHostPort(h); err == nil {
		h = hp
	}
	h = strings.Trim(h, "[]")
	return strings.TrimSuffix(h, ".")
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

func normalizeAll(vs []string) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		if v = normalizeKey(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func toSet(vs []string) map[string]struct{} {
	m := make(map[string]struct{}, len(vs))
	for _, v := range vs {
		m[v] = struct{}{}
	}
	return m
}
