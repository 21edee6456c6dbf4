package theme

import (
	"sort"
	"strings"
)

// Element is a head element (link or meta) of the application shell.
type Element struct {
	Tag   string
	Attrs map[string]string
}

func (e *Element) Attr(name string) string {
	if e == nil {
		return ""
	}
	return e.Attrs[name]
}

func (e *Element) SetAttr(name, value string) {
	if e.Attrs == nil {
		e.Attrs = make(map[string]string)
	}
	e.Attrs[name] = value
}

// Document is the document-level presentation state that the theme applier mutates: custom style properties and
// data attributes of the root element, head elements and the title. One Document is built per bootstrap pass.
type Document struct {
	Title string
	// Style holds custom properties ("--primary") of the root element.
	Style map[string]string
	// Data holds data attributes ("data-card-style") of the root element.
	Data map[string]string
	Head []*Element
}

func NewDocument() *Document {
	return &Document{
		Style: make(map[string]string),
		Data:  make(map[string]string),
	}
}

// Clone returns a deep copy, used to start each pass from the same base shell.
func (d *Document) Clone() *Document {
	out := NewDocument()
	out.Title = d.Title
	for k, v := range d.Style {
		out.Style[k] = v
	}
	for k, v := range d.Data {
		out.Data[k] = v
	}
	for _, e := range d.Head {
		if e == nil {
			continue
		}
		c := &Element{Tag: e.Tag}
		for k, v := range e.Attrs {
			c.SetAttr(k, v)
		}
		out.Head = append(out.Head, c)
	}
	return out
}

func (d *Document) SetProperty(name, value string) {
	if d.Style == nil {
		d.Style = make(map[string]string)
	}
	d.Style[name] = value
}

func (d *Document) Property(name string) string {
	return d.Style[name]
}

func (d *Document) SetData(name, value string) {
	if d.Data == nil {
		d.Data = make(map[string]string)
	}
	d.Data[name] = value
}

// Find returns the first head element accepted by match, or nil.
func (d *Document) Find(match func(*Element) bool) *Element {
	for _, e := range d.Head {
		if e != nil && match(e) {
			return e
		}
	}
	return nil
}

func (d *Document) Append(e *Element) {
	d.Head = append(d.Head, e)
}

// StyleText renders the custom properties as a declaration list, sorted by name.
// Values containing characters that could escape the declaration are dropped.
func (d *Document) StyleText() string {
	names := make([]string, 0, len(d.Style))
	for k := range d.Style {
		names = append(names, k)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, k := range names {
		v := d.Style[k]
		if !safeCSS(k) || !safeCSS(v) {
			continue
		}
		b.WriteString(k)
		b.WriteString(":")
		b.WriteString(v)
		b.WriteString(";")
	}
	return b.String()
}

func safeCSS(s string) bool {
	return s != "" && !strings.ContainsAny(s, ";{}<>\\\n\r")
}
