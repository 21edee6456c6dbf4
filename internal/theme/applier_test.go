package theme

import (
	"brokerfront/internal/types"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ApplierTestSuite struct {
	suite.Suite
	cfg *types.BrokerConfig
}

func TestApplierTestSuite(t *testing.T) {
	suite.Run(t, new(ApplierTestSuite))
}

func (s *ApplierTestSuite) SetupTest() {
	s.cfg = &types.BrokerConfig{
		BrokerID:   "b-1",
		BrokerName: "Egoras Markets",
		Subdomain:  "egoras",
		Theme: types.Theme{
			Colors: types.ThemeColors{
				Primary:    "#0f62fe",
				Accent:     "#f1c21b",
				Background: "#ffffff",
				Foreground: "#161616",
			},
			Typography: types.ThemeTypography{FontFamily: "Inter Tight"},
			Layout:     types.ThemeLayout{Sidebar: "compact"},
			Components: types.ThemeComponents{BorderRadius: "lg", CardStyle: "elevated"},
		},
		Branding: types.Branding{FaviconURL: "https://cdn.example.com/egoras.ico"},
		Status:   types.StatusActive,
	}
}

func baseDocument() *Document {
	d := NewDocument()
	d.Title = "Kaucus"
	d.Append(&Element{Tag: "meta", Attrs: map[string]string{"property": "og:title", "content": "Kaucus"}})
	return d
}

func (s *ApplierTestSuite) TestRadiusLookup() {
	cases := map[string]string{
		"none":  "0",
		"sm":    "0.25rem",
		"md":    "0.5rem",
		"lg":    "0.75rem",
		"full":  "9999px",
		"":      "0.5rem",
		"huge":  "0.5rem",
		" LG ":  "0.75rem",
		"round": "0.5rem",
	}
	for in, want := range cases {
		s.Equal(want, Radius(in), in)
	}
}

func (s *ApplierTestSuite) TestColorsAndDerived() {
	d := baseDocument()
	Apply(d, s.cfg)
	s.Equal("#0f62fe", d.Property(PropPrimary))
	s.Equal("#f1c21b", d.Property(PropAccent))
	s.Equal("#ffffff", d.Property(PropBackground))
	s.Equal("#161616", d.Property(PropForeground))
	s.Equal("#ffffff", d.Property(PropCard))
	s.Equal("#161616", d.Property(PropCardForeground))
	s.Equal("#ffffff", d.Property(PropPopover))
	s.Equal("#161616", d.Property(PropPopoverForeground))
	s.Equal("#0f62fe", d.Property(PropRing))
	s.Equal("0.75rem", d.Property(PropRadius))
	s.Equal("elevated", d.Data[DataCardStyle])
	s.Equal("compact", d.Data[DataLayoutSidebar])
	s.NotContains(d.Data, DataLayoutHeader)
}

func (s *ApplierTestSuite) TestCardOverride() {
	s.cfg.Theme.Colors.Card = "#f4f4f4"
	d := NewDocument()
	Apply(d, s.cfg)
	s.Equal("#f4f4f4", d.Property(PropCard))
	s.Equal("#ffffff", d.Property(PropPopover))
}

func (s *ApplierTestSuite) TestTitleFaviconOG() {
	d := baseDocument()
	Apply(d, s.cfg)
	s.Equal("Egoras Markets", d.Title)

	icon := d.Find(isIconLink)
	s.Require().NotNil(icon)
	s.Equal("https://cdn.example.com/egoras.ico", icon.Attr("href"))

	og := d.Find(func(e *Element) bool { return e.Attr("property") == "og:title" })
	s.Equal("Egoras Markets", og.Attr("content"))
}

func (s *ApplierTestSuite) TestExistingFaviconIsUpdated() {
	d := NewDocument()
	d.Append(&Element{Tag: "link", Attrs: map[string]string{"rel": "shortcut icon", "href": "/favicon.ico"}})
	Apply(d, s.cfg)
	icons := 0
	for _, e := range d.Head {
		if isIconLink(e) {
			icons++
			s.Equal("https://cdn.example.com/egoras.ico", e.Attr("href"))
		}
	}
	s.Equal(1, icons)
}

func (s *ApplierTestSuite) TestOGTitleNotCreated() {
	d := NewDocument()
	Apply(d, s.cfg)
	s.Nil(d.Find(func(e *Element) bool { return e.Tag == "meta" }))
}

func (s *ApplierTestSuite) TestFontLoadedOnce() {
	d := NewDocument()
	Apply(d, s.cfg)
	Apply(d, s.cfg)
	links := 0
	for _, e := range d.Head {
		if e.Attr("rel") == "stylesheet" {
			links++
			s.Contains(e.Attr("href"), "family=Inter+Tight")
		}
	}
	s.Equal(1, links)
	s.Equal("'Inter Tight', sans-serif", d.Property(PropFontSans))
}

func (s *ApplierTestSuite) TestFontAlreadyReferenced() {
	d := NewDocument()
	d.Append(&Element{Tag: "link", Attrs: map[string]string{
		"rel":  "stylesheet",
		"href": "https://fonts.googleapis.com/css2?family=inter+tight&display=swap",
	}})
	LoadFont(d, "  Inter   Tight ")
	s.Len(d.Head, 1)

	LoadFont(d, "Roboto")
	s.Len(d.Head, 2)
	LoadFont(d, "")
	s.Len(d.Head, 2)
}

func (s *ApplierTestSuite) TestIdempotent() {
	once := baseDocument()
	Apply(once, s.cfg)

	twice := baseDocument()
	Apply(twice, s.cfg)
	Apply(twice, s.cfg)

	s.Equal(once, twice)
	s.Equal(once.StyleText(), twice.StyleText())
}

func (s *ApplierTestSuite) TestMissingOptionalFieldsSkipped() {
	cfg := &types.BrokerConfig{BrokerID: "b", BrokerName: "Bare", Subdomain: "bare", Status: types.StatusActive}
	d := baseDocument()
	s.NotPanics(func() { Apply(d, cfg) })
	s.Equal("Bare", d.Title)
	s.Equal("0.5rem", d.Property(PropRadius))
	s.Empty(d.Property(PropPrimary))
	s.Empty(d.Property(PropCard))
	s.Nil(d.Find(isIconLink))
	s.Empty(d.Data)
}

func (s *ApplierTestSuite) TestNilInputs() {
	s.NotPanics(func() { Apply(nil, s.cfg) })
	s.NotPanics(func() { Apply(NewDocument(), nil) })
	s.NotPanics(func() { Apply(&Document{Head: []*Element{nil}}, s.cfg) })
}

func (s *ApplierTestSuite) TestStyleTextDropsUnsafeValues() {
	d := NewDocument()
	d.SetProperty("--primary", "#000")
	d.SetProperty("--accent", "red;}</style><script>")
	s.Equal("--primary:#000;", d.StyleText())
}

func (s *ApplierTestSuite) TestCloneIsDeep() {
	d := baseDocument()
	c := d.Clone()
	Apply(c, s.cfg)
	s.Equal("Kaucus", d.Title)
	s.Empty(d.Style)
	s.Equal("Kaucus", d.Head[0].Attr("content"))
}
