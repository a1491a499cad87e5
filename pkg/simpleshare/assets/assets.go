// Package assets holds the static files and HTML templates compiled into
// the binary.
package assets

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"mime"
	"path"
	"strings"

	"github.com/tendant/simple-share/pkg/simpleshare"
)

var (
	//go:embed static
	staticFiles embed.FS

	//go:embed templates/*.html
	templateFiles embed.FS
)

// Asset is one embedded static file.
type Asset struct {
	Name        string
	ContentType string
	Data        []byte
}

// Lookup returns the static asset at name, e.g. "css/main.css". Leading
// slashes are ignored. Names that are not part of the bundle report false.
func Lookup(name string) (*Asset, bool) {
	name = strings.TrimLeft(name, "/")
	if name == "" || !fs.ValidPath(name) {
		return nil, false
	}
	data, err := staticFiles.ReadFile("static/" + name)
	if err != nil {
		return nil, false
	}
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &Asset{Name: name, ContentType: contentType, Data: data}, true
}

// Names lists every embedded static asset.
func Names() []string {
	var names []string
	fs.WalkDir(staticFiles, "static", func(p string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			names = append(names, strings.TrimPrefix(p, "static/"))
		}
		return nil
	})
	return names
}

// Page carries the fields shared by every rendered page.
type Page struct {
	Title    string
	Username string
}

// IndexPage is the login form.
type IndexPage struct {
	Page
	Error string
}

// ManagePage lists uploaded items.
type ManagePage struct {
	Page
	Items []simpleshare.Item
}

// TextPage renders a paste.
type TextPage struct {
	Page
	ID          string
	DisplayName string
	Text        string
	PublicURL   string
}

// Renderer executes the embedded templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	t, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

// Render executes the named template into w. Output is buffered so a
// failing template never produces a partial page.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
