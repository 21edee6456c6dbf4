package shell

import (
	"brokerfront/internal/theme"
	"embed"
	"fmt"
	"html"
	"html/template"
	"io"
	"regexp"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

//go:embed templates/*.tmpl
var templates embed.FS

const (
	DefaultTitle   = "Kaucus"
	DefaultFavicon = "/favicon.ico"
	DefaultMessage = "The application could not be started. Please try again in a moment."
)

var (
	attrName = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
	dataName = regexp.MustCompile(`^data-[a-z0-9-]+$`)
)

// Renderer writes the application shell and the minimal failure page.
type Renderer struct {
	shell     *template.Template
	failure   *template.Template
	appScript string
}

// NewRenderer parses the shell template at shellPath, or the embedded default when shellPath is empty.
// appScript is the module that mounts the UI tree; it is only emitted into shells of mountable outcomes.
func NewRenderer(shellPath, appScript string) (*Renderer, error) {
	var (
		shell *template.Template
		err   error
	)
	if shellPath != "" {
		shell, err = template.ParseFiles(shellPath)
	} else {
		shell, err = template.ParseFS(templates, "templates/shell.html.tmpl")
	}
	if err != nil {
		return nil, fmt.Errorf("parse shell template: %w", err)
	}
	failure, err := template.ParseFS(templates, "templates/failure.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse failure template: %w", err)
	}
	return &Renderer{shell: shell, failure: failure, appScript: appScript}, nil
}

// DefaultDocument is the platform document every bootstrap pass starts from.
func DefaultDocument() *theme.Document {
	d := theme.NewDocument()
	d.Title = DefaultTitle
	d.Append(&theme.Element{Tag: "link", Attrs: map[string]string{"rel": "icon", "href": DefaultFavicon}})
	d.Append(&theme.Element{Tag: "meta", Attrs: map[string]string{"property": "og:title", "content": DefaultTitle}})
	return d
}

type shellData struct {
	Title     string
	RootAttrs template.HTMLAttr
	Head      []template.HTML
	Style     template.CSS
	Bootstrap template.JS
	AppScript string
}

// Shell renders doc with the bootstrap state embedded as a JSON data island. When mount is false the application
// script is left out.
func (r *Renderer) Shell(w io.Writer, doc *theme.Document, state any, mount bool) error {
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal bootstrap state: %w", err)
	}
	data := shellData{
		Title:     doc.Title,
		RootAttrs: rootAttrs(doc.Data),
		Head:      headElements(doc.Head),
		Style:     template.CSS(doc.StyleText()),
		Bootstrap: template.JS(b),
	}
	if mount {
		data.AppScript = r.appScript
	}
	return r.shell.Execute(w, data)
}

// Failure renders the minimal failure page. The message must not carry internal detail.
func (r *Renderer) Failure(w io.Writer, message string) error {
	if message == "" {
		message = DefaultMessage
	}
	return r.failure.Execute(w, struct{ Message string }{Message: message})
}

func rootAttrs(data map[string]string) template.HTMLAttr {
	names := make([]string, 0, len(data))
	for k := range data {
		if dataName.MatchString(k) {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	var b strings.Builder
	for _, k := range names {
		fmt.Fprintf(&b, ` %s="%s"`, k, html.EscapeString(data[k]))
	}
	return template.HTMLAttr(b.String())
}

// headElements serializes link and meta elements. Other tags, invalid attribute names and script URLs are dropped.
func headElements(elems []*theme.Element) []template.HTML {
	out := make([]template.HTML, 0, len(elems))
	for _, e := range elems {
		if e == nil || (e.Tag != "link" && e.Tag != "meta") {
			continue
		}
		names := make([]string, 0, len(e.Attrs))
		for k := range e.Attrs {
			if attrName.MatchString(k) {
				names = append(names, k)
			}
		}
		sort.Strings(names)
		var b strings.Builder
		b.WriteString("<")
		b.WriteString(e.Tag)
		for _, k := range names {
			v := e.Attrs[k]
			if (k == "href" || k == "src") && !safeURL(v) {
				continue
			}
			fmt.Fprintf(&b, ` %s="%s"`, k, html.EscapeString(v))
		}
		b.WriteString(">")
		out = append(out, template.HTML(b.String()))
	}
	return out
}

func safeURL(u string) bool {
	l := strings.ToLower(strings.TrimSpace(u))
	if i := strings.Index(l, ":"); i >= 0 && !strings.ContainsAny(l[:i], "/?#") {
		scheme := l[:i]
		return scheme == "http" || scheme == "https"
	}
	return true
}
