package types

import (
	"fmt"
	"time"
)

// BrokerConfig is the authoritative description of a tenant. It is owned by the backend and fetched from the
// public lookup endpoint; the front end only ever holds a read-mostly replica of it (durable tier, sync mirror).
// BrokerID, BrokerName and Subdomain identify the tenant.
// Services is the enabled feature set, Pages holds the per-route flags.
// Only configs with Status == StatusActive and a non-empty Subdomain are usable by the bootstrap pipeline.
type BrokerConfig struct {
	BrokerID   string          `json:"brokerId" yaml:"brokerId" dynamodbav:"broker_id"`
	BrokerName string          `json:"brokerName" yaml:"brokerName" dynamodbav:"broker_name"`
	Subdomain  string          `json:"subdomain" yaml:"subdomain" dynamodbav:"subdomain"`
	Services   []Service       `json:"services" yaml:"services" dynamodbav:"services"`
	Theme      Theme           `json:"theme" yaml:"theme" dynamodbav:"theme"`
	Pages      map[string]bool `json:"pages,omitempty" yaml:"pages" dynamodbav:"pages"`
	Branding   Branding        `json:"branding" yaml:"branding" dynamodbav:"branding"`
	Status     Status          `json:"status" yaml:"status" dynamodbav:"status"`
	CreatedAt  time.Time       `json:"createdAt" yaml:"createdAt" dynamodbav:"created_at"`
	UpdatedAt  time.Time       `json:"updatedAt" yaml:"updatedAt" dynamodbav:"updated_at"`
}

type Status string

const (
	StatusDraft  Status = "draft"
	StatusActive Status = "active"
)

// Service is one enabled product line of a broker.
type Service string

const (
	ServiceForex       Service = "forex"
	ServiceCrypto      Service = "crypto"
	ServiceStocks      Service = "stocks"
	ServiceCommodities Service = "commodities"
	ServiceIndices     Service = "indices"
	ServiceCopyTrading Service = "copy_trading"
)

// Theme is the visual configuration applied to the document before the application mounts.
type Theme struct {
	Colors     ThemeColors     `json:"colors" yaml:"colors" dynamodbav:"colors"`
	Typography ThemeTypography `json:"typography" yaml:"typography" dynamodbav:"typography"`
	Layout     ThemeLayout     `json:"layout" yaml:"layout" dynamodbav:"layout"`
	Components ThemeComponents `json:"components" yaml:"components" dynamodbav:"components"`
}

// ThemeColors holds CSS color values. Empty fields are skipped by the theme applier.
type ThemeColors struct {
	Primary    string `json:"primary" yaml:"primary" dynamodbav:"primary"`
	Accent     string `json:"accent" yaml:"accent" dynamodbav:"accent"`
	Background string `json:"background" yaml:"background" dynamodbav:"background"`
	Foreground string `json:"foreground" yaml:"foreground" dynamodbav:"foreground"`
	// Card overrides the card color, which otherwise follows Background.
	Card string `json:"card,omitempty" yaml:"card" dynamodbav:"card"`
}

type ThemeTypography struct {
	FontFamily  string `json:"fontFamily" yaml:"fontFamily" dynamodbav:"font_family"`
	HeadingFont string `json:"headingFont,omitempty" yaml:"headingFont" dynamodbav:"heading_font"`
}

// ThemeLayout selects layout variants. The values are opaque to the bootstrap pipeline and are
// exposed to the application as data attributes.
type ThemeLayout struct {
	Sidebar string `json:"sidebar,omitempty" yaml:"sidebar" dynamodbav:"sidebar"`
	Header  string `json:"header,omitempty" yaml:"header" dynamodbav:"header"`
}

type ThemeComponents struct {
	// BorderRadius is one of none, sm, md, lg, full.
	BorderRadius string `json:"borderRadius" yaml:"borderRadius" dynamodbav:"border_radius"`
	CardStyle    string `json:"cardStyle" yaml:"cardStyle" dynamodbav:"card_style"`
}

type Branding struct {
	LogoURL    string `json:"logoUrl,omitempty" yaml:"logoUrl" dynamodbav:"logo_url"`
	FaviconURL string `json:"faviconUrl,omitempty" yaml:"faviconUrl" dynamodbav:"favicon_url"`
}

const (
	SubdomainMaxLength = 63
)

// Validate checks the identity fields. It does not check the lifecycle status, see Usable.
func (c BrokerConfig) Validate() error {
	if c.BrokerID == "" {
		return fmt.Errorf("brokerId is required")
	}
	if c.BrokerName == "" {
		return fmt.Errorf("brokerName is required")
	}
	if c.Subdomain == "" {
		return fmt.Errorf("subdomain is required")
	}
	if len(c.Subdomain) > SubdomainMaxLength {
		return fmt.Errorf("subdomain must be at most %d characters", SubdomainMaxLength)
	}
	switch c.Status {
	case StatusDraft, StatusActive:
	default:
		return fmt.Errorf("status must be %q or %q", StatusDraft, StatusActive)
	}
	return nil
}

// Usable reports whether the config may reach the pre-mount theme applier.
func (c BrokerConfig) Usable() bool {
	return c.Status == StatusActive && c.Subdomain != ""
}

// PageEnabled reports whether the route flag is set. Routes without a flag are enabled.
func (c BrokerConfig) PageEnabled(page string) bool {
	enabled, ok := c.Pages[page]
	return !ok || enabled
}

// Clone returns a deep copy; the cache tiers never share slices or maps with callers.
func (c BrokerConfig) Clone() BrokerConfig {
	out := c
	if c.Services != nil {
		out.Services = append([]Service(nil), c.Services...)
	}
	if c.Pages != nil {
		out.Pages = make(map[string]bool, len(c.Pages))
		for k, v := range c.Pages {
			out.Pages[k] = v
		}
	}
	return out
}
