// Package markdown renders document bodies to HTML with goldmark and wraps
// the result as a templ component.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Renderer converts Markdown to HTML. It is safe for concurrent use.
type Renderer struct {
	engine goldmark.Markdown
}

type options struct {
	unsafe    bool
	hardWraps bool
}

type Option func(*options)

// WithUnsafe passes raw HTML (and MDX component tags) through unchanged.
// Only use it for trusted content.
func WithUnsafe() Option { return func(o *options) { o.unsafe = true } }

func WithHardWraps() Option { return func(o *options) { o.hardWraps = true } }

// New builds a Renderer with GitHub-flavoured Markdown, autolinks, task
// lists and heading IDs enabled.
func New(opts ...Option) *Renderer {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	var rendererOptions []renderer.Option
	if o.unsafe {
		rendererOptions = append(rendererOptions, gmhtml.WithUnsafe())
	}
	if o.hardWraps {
		rendererOptions = append(rendererOptions, gmhtml.WithHardWraps())
	}
	engine := goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.TaskList),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(linkTransformer{}, 500)),
		),
		goldmark.WithRendererOptions(rendererOptions...),
	)
	return &Renderer{engine: engine}
}

// Render writes the HTML for md to w.
func (r *Renderer) Render(w io.Writer, md string) error {
	if err := r.engine.Convert([]byte(StripMDX(md)), w); err != nil {
		return fmt.Errorf("markdown render: %w", err)
	}
	return nil
}

// HTML returns the HTML for md.
func (r *Renderer) HTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, md); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Component returns a templ.Component that renders md.
func (r *Renderer) Component(md string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return r.Render(w, md)
	})
}

var defaultRenderer = New()

// Markdown returns a templ.Component that renders md with the default
// (safe) renderer.
func Markdown(md string) templ.Component {
	return defaultRenderer.Component(md)
}

// StripMDX drops top-level MDX import and export statements, which have no
// meaning outside an MDX toolchain. Lines inside fenced code are kept.
func StripMDX(md string) string {
	if !strings.Contains(md, "import ") && !strings.Contains(md, "export ") {
		return md
	}
	lines := strings.Split(md, "\n")
	out := lines[:0]
	inFence := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		}
		if !inFence && line == trimmed && (strings.HasPrefix(line, "import ") || strings.HasPrefix(line, "export ")) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// linkTransformer drops unsafe link targets, opens external links in a new
// tab and lazy-loads every image after the first.
type linkTransformer struct{}

func (linkTransformer) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	images := 0
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link:
			dest := SafeURL(string(node.Destination))
			node.Destination = []byte(dest)
			if isExternal(dest) {
				node.SetAttributeString("target", []byte("_blank"))
				node.SetAttributeString("rel", []byte("noopener noreferrer"))
			}
		case *ast.Image:
			images++
			loading := "lazy"
			if images == 1 {
				loading = "eager"
			}
			node.SetAttributeString("loading", []byte(loading))
			node.SetAttributeString("decoding", []byte("async"))
		}
		return ast.WalkContinue, nil
	})
}

func isExternal(dest string) bool {
	return strings.HasPrefix(dest, "http://") || strings.HasPrefix(dest, "https://")
}

// SafeURL returns raw when it is relative, a fragment, or uses an http,
// https, mailto or tel scheme, and "" otherwise.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return val
	}
	parsed, err := url.Parse(val)
	if err != nil {
		return ""
	}
	if parsed.Scheme == "" {
		if strings.Contains(val, ":") {
			return ""
		}
		return val
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return val
	default:
		return ""
	}
}
