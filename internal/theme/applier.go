package theme

import (
	"brokerfront/internal/types"
	"fmt"
	"net/url"
	"strings"
)

const (
	PropPrimary           = "--primary"
	PropAccent            = "--accent"
	PropBackground        = "--background"
	PropForeground        = "--foreground"
	PropCard              = "--card"
	PropCardForeground    = "--card-foreground"
	PropPopover           = "--popover"
	PropPopoverForeground = "--popover-foreground"
	PropRing              = "--ring"
	PropRadius            = "--radius"
	PropFontSans          = "--font-sans"
	PropFontHeading       = "--font-heading"

	DataCardStyle     = "data-card-style"
	DataLayoutSidebar = "data-layout-sidebar"
	DataLayoutHeader  = "data-layout-header"

	DefaultRadiusKey = "md"

	// FontCSSURL is the stylesheet URL template for web fonts; %s is the normalized family.
	FontCSSURL = "https://fonts.googleapis.com/css2?family=%s:wght@400;500;600;700&display=swap"
)

var radii = map[string]string{
	"none": "0",
	"sm":   "0.25rem",
	"md":   "0.5rem",
	"lg":   "0.75rem",
	"full": "9999px",
}

// Radius maps a border radius key to its CSS value. Unknown or empty keys map to the md value.
func Radius(key string) string {
	if v, ok := radii[strings.ToLower(strings.TrimSpace(key))]; ok {
		return v
	}
	return radii[DefaultRadiusKey]
}

// Apply writes the config's theme and branding into doc. Every step is idempotent and missing optional fields
// are skipped, so applying the same config any number of times yields the same document.
func Apply(doc *Document, cfg *types.BrokerConfig) {
	if doc == nil || cfg == nil {
		return
	}
	applyColors(doc, cfg.Theme.Colors)
	doc.SetProperty(PropRadius, Radius(cfg.Theme.Components.BorderRadius))
	applyData(doc, cfg.Theme)
	applyFonts(doc, cfg.Theme.Typography)
	if cfg.BrokerName != "" {
		doc.Title = cfg.BrokerName
	}
	applyFavicon(doc, cfg.Branding.FaviconURL)
	applyOGTitle(doc, cfg.BrokerName)
}

func applyColors(doc *Document, c types.ThemeColors) {
	set := func(name, value string) {
		if value != "" {
			doc.SetProperty(name, value)
		}
	}
	set(PropPrimary, c.Primary)
	set(PropAccent, c.Accent)
	set(PropBackground, c.Background)
	set(PropForeground, c.Foreground)

	card := c.Card
	if card == "" {
		card = c.Background
	}
	set(PropCard, card)
	set(PropCardForeground, c.Foreground)
	set(PropPopover, c.Background)
	set(PropPopoverForeground, c.Foreground)
	set(PropRing, c.Primary)
}

func applyData(doc *Document, t types.Theme) {
	if t.Components.CardStyle != "" {
		doc.SetData(DataCardStyle, t.Components.CardStyle)
	}
	if t.Layout.Sidebar != "" {
		doc.SetData(DataLayoutSidebar, t.Layout.Sidebar)
	}
	if t.Layout.Header != "" {
		doc.SetData(DataLayoutHeader, t.Layout.Header)
	}
}

func applyFonts(doc *Document, t types.ThemeTypography) {
	if family := strings.TrimSpace(t.FontFamily); family != "" {
		doc.SetProperty(PropFontSans, fontStack(family))
		LoadFont(doc, family)
	}
	if family := strings.TrimSpace(t.HeadingFont); family != "" {
		doc.SetProperty(PropFontHeading, fontStack(family))
		LoadFont(doc, family)
	}
}

func fontStack(family string) string {
	return fmt.Sprintf("'%s', sans-serif", strings.ReplaceAll(family, "'", ""))
}

// NormalizeFamily turns a family name into its stylesheet URL form, e.g. "Inter Tight" -> "Inter+Tight".
func NormalizeFamily(family string) string {
	return strings.Join(strings.Fields(family), "+")
}

// LoadFont adds a stylesheet link for the family unless a link already references it.
func LoadFont(doc *Document, family string) {
	norm := NormalizeFamily(family)
	if norm == "" {
		return
	}
	needle := "family=" + strings.ToLower(url.PathEscape(norm))
	plain := "family=" + strings.ToLower(norm)
	existing := doc.Find(func(e *Element) bool {
		if e.Tag != "link" {
			return false
		}
		href := strings.ToLower(e.Attr("href"))
		return strings.Contains(href, plain) || strings.Contains(href, needle)
	})
	if existing != nil {
		return
	}
	doc.Append(&Element{Tag: "link", Attrs: map[string]string{
		"rel":       "stylesheet",
		"href":      fmt.Sprintf(FontCSSURL, norm),
		"data-font": family,
	}})
}

func isIconLink(e *Element) bool {
	if e.Tag != "link" {
		return false
	}
	for _, rel := range strings.Fields(strings.ToLower(e.Attr("rel"))) {
		if rel == "icon" {
			return true
		}
	}
	return false
}

func applyFavicon(doc *Document, href string) {
	if href == "" {
		return
	}
	link := doc.Find(isIconLink)
	if link == nil {
		link = &Element{Tag: "link", Attrs: map[string]string{"rel": "icon"}}
		doc.Append(link)
	}
	link.SetAttr("href", href)
}

// applyOGTitle only updates an existing og:title meta; it never creates one.
func applyOGTitle(doc *Document, title string) {
	if title == "" {
		return
	}
	meta := doc.Find(func(e *Element) bool {
		return e.Tag == "meta" && e.Attr("property") == "og:title"
	})
	if meta != nil {
		meta.SetAttr("content", title)
	}
}
