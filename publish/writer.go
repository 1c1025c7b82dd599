// Package publish serializes content records into front-matter documents and
// persists them to local disk or through the GitHub contents API.
package publish

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/eringen/quill/content"
	"github.com/eringen/quill/frontmatter"
)

// Persistence modes reported in SaveResult.
const (
	ModeLocal  = "local-fs"
	ModeGitHub = "github-commit"
)

// PutRequest is a single whole-file write. Path is relative to the content
// root and always uses forward slashes.
type PutRequest struct {
	Path    string
	Content []byte
	Message string
}

// Store persists documents. Put returns the location actually written.
type Store interface {
	Put(ctx context.Context, req PutRequest) (string, error)
	Mode() string
}

// SaveRequest describes a document to write. Kind may be empty, in which
// case it is derived from Category.
type SaveRequest struct {
	Kind             content.Kind
	Category         string
	Slug             string
	Title            string
	Body             string
	Date             string
	Tags             []string
	Summary          string
	Published        *bool
	DefaultPublished bool
	Extra            map[string]any
}

func notBlank(msg string) validation.Rule {
	return validation.By(func(value any) error {
		if s, _ := value.(string); strings.TrimSpace(s) == "" {
			return validation.NewError("validation_is_blank", msg)
		}
		return nil
	})
}

// Validate reports missing required fields.
func (r SaveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, notBlank("title is required")),
		validation.Field(&r.Body, notBlank("content is required")),
		validation.Field(&r.Kind, validation.By(func(value any) error {
			if k, _ := value.(content.Kind); k != "" && !k.Valid() {
				return validation.NewError("validation_unknown_kind", "unknown content kind")
			}
			return nil
		})),
	)
}

// SaveResult reports where a document went.
type SaveResult struct {
	Slug      string       `json:"slug"`
	Filename  string       `json:"filename"`
	Path      string       `json:"path"`
	Kind      content.Kind `json:"kind"`
	Published bool         `json:"published"`
	Mode      string       `json:"mode"`
}

// Writer turns SaveRequests into documents on a Store.
type Writer struct {
	store  Store
	now    func() time.Time
	logger echo.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) {
		if now != nil {
			w.now = now
		}
	}
}

func WithLogger(l echo.Logger) WriterOption {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWriter creates a Writer backed by store.
func NewWriter(store Store, opts ...WriterOption) *Writer {
	w := &Writer{
		store:  store,
		now:    time.Now,
		logger: log.New("publish"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Mode returns the persistence mode of the underlying store.
func (w *Writer) Mode() string { return w.store.Mode() }

// Save validates req, renders the document and writes it in one Put.
func (w *Writer) Save(ctx context.Context, req SaveRequest) (SaveResult, error) {
	if err := req.Validate(); err != nil {
		return SaveResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	slug := content.DeriveSlug(req.Slug)
	if slug == "" {
		slug = content.SlugOrFallback(req.Title)
	}
	kind := req.Kind
	if kind == "" {
		kind = content.KindForCategory(req.Category)
	}
	published := req.DefaultPublished
	if req.Published != nil {
		published = *req.Published
	}

	doc, err := w.render(req, published)
	if err != nil {
		return SaveResult{}, err
	}

	filename := slug + ".mdx"
	action := "draft"
	if published {
		action = "publish"
	}
	location, err := w.store.Put(ctx, PutRequest{
		Path:    kind.Dir() + "/" + filename,
		Content: doc,
		Message: fmt.Sprintf("chore(%s): %s", action, filename),
	})
	if err != nil {
		return SaveResult{}, err
	}
	w.logger.Infof("publish: wrote %s via %s", location, w.store.Mode())

	return SaveResult{
		Slug:      slug,
		Filename:  filename,
		Path:      location,
		Kind:      kind,
		Published: published,
		Mode:      w.store.Mode(),
	}, nil
}

// render prepends a front-matter block unless the body already has one.
func (w *Writer) render(req SaveRequest, published bool) ([]byte, error) {
	if frontmatter.HasBlock(req.Body) {
		body := req.Body
		if !strings.HasSuffix(body, "\n") {
			body += "\n"
		}
		return []byte(body), nil
	}

	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = content.Today(w.now())
	}
	tags := make([]string, 0, len(req.Tags))
	for _, t := range req.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	var fields frontmatter.Fields
	fields.Add("title", strings.TrimSpace(req.Title))
	fields.Add("date", date)
	if c := strings.TrimSpace(req.Category); c != "" {
		fields.Add("category", c)
	}
	fields.Add("tags", tags)
	if s := strings.TrimSpace(req.Summary); s != "" {
		fields.Add("summary", s)
	}
	fields.Add("published", published)

	keys := make([]string, 0, len(req.Extra))
	for k := range req.Extra {
		switch k {
		case "title", "date", "category", "tags", "summary", "published":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := req.Extra[k]
		if k == "completion_percentage" {
			v = clampPercent(v)
		}
		fields.Add(k, v)
	}

	return frontmatter.Compose(fields, req.Body)
}

func clampPercent(v any) any {
	switch n := v.(type) {
	case int:
		return content.ClampPercent(n)
	case int64:
		return content.ClampPercent(int(n))
	case float64:
		return content.ClampPercent(int(n))
	}
	return v
}
