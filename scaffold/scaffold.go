// Package scaffold provides embedded starter documents for the quill CLI.
// Each content kind has a template holding its kind-specific front matter
// and a body outline; title, date and tags are filled in by the writer.
package scaffold

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"github.com/eringen/quill/content"
	"github.com/eringen/quill/frontmatter"
)

// Templates contains one <dir>.mdx.tmpl file per content kind.
// Files use Go text/template syntax.
//
//go:embed all:templates
var Templates embed.FS

// Data holds the variables passed to every template.
type Data struct {
	Title string
	Now   time.Time
}

var funcs = template.FuncMap{
	// json renders a value as a JSON literal, which is also valid YAML.
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
	"date": func(t time.Time) string { return t.Format("2006-01-02") },
	"days": func(t time.Time, n int) time.Time { return t.AddDate(0, 0, n) },
}

// Render executes the template for kind and splits the result into its
// front-matter fields and body.
func Render(kind content.Kind, data Data) (frontmatter.Document, error) {
	if !kind.Valid() {
		return frontmatter.Document{}, fmt.Errorf("scaffold: %w: %q", content.ErrUnknownKind, kind)
	}
	if data.Now.IsZero() {
		data.Now = time.Now()
	}
	name := "templates/" + kind.Dir() + ".mdx.tmpl"
	src, err := Templates.ReadFile(name)
	if err != nil {
		return frontmatter.Document{}, fmt.Errorf("read %s: %w", name, err)
	}
	tmpl, err := template.New(kind.Dir()).Funcs(funcs).Parse(string(src))
	if err != nil {
		return frontmatter.Document{}, fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return frontmatter.Document{}, fmt.Errorf("execute template %s: %w", name, err)
	}
	doc := frontmatter.Parse(buf.Bytes())
	if doc.Err != nil {
		return frontmatter.Document{}, fmt.Errorf("template %s: %w", name, doc.Err)
	}
	return doc, nil
}
