package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/eringen/quill/frontmatter"
)

// ErrNotFound is returned when no document exists for a slug.
var ErrNotFound = errors.New("content not found")

// extensions lists document extensions in lookup order.
var extensions = []string{".md", ".mdx"}

// Repository reads content documents from a directory per kind under root.
// It holds no cache: every call reflects the files on disk.
type Repository struct {
	root   string
	logger echo.Logger
	now    func() time.Time
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithLogger sets the logger used to report skipped documents.
func WithLogger(l echo.Logger) RepositoryOption {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides the time source used for default dates.
func WithClock(now func() time.Time) RepositoryOption {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRepository creates a Repository rooted at root.
func NewRepository(root string, opts ...RepositoryOption) *Repository {
	r := &Repository{
		root:   root,
		logger: log.New("content"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root returns the content root directory.
func (r *Repository) Root() string { return r.root }

// Now returns the repository clock's current time.
func (r *Repository) Now() time.Time { return r.now() }

// Dir returns the directory holding documents of kind.
func (r *Repository) Dir(kind Kind) string {
	return filepath.Join(r.root, kind.Dir())
}

// ListAll returns the published documents of kind, newest first. A missing
// kind directory is created and yields an empty list. Documents that cannot
// be read are logged and skipped.
func (r *Repository) ListAll(ctx context.Context, kind Kind) ([]Record, error) {
	records, err := r.ListAllIncludingDrafts(ctx, kind)
	if err != nil {
		return nil, err
	}
	published := records[:0]
	for _, rec := range records {
		if rec.Published {
			published = append(published, rec)
		}
	}
	return published, nil
}

// ListAllIncludingDrafts is ListAll without the published filter.
func (r *Repository) ListAllIncludingDrafts(ctx context.Context, kind Kind) ([]Record, error) {
	files, err := r.files(kind)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(files))
	records := make([]Record, 0, len(files))
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slug := slugFromFile(name)
		if seen[slug] {
			continue
		}
		rec, err := r.load(kind, slug, name)
		if err != nil {
			r.logger.Warnf("content: skipping %s/%s: %v", kind.Dir(), name, err)
			continue
		}
		seen[slug] = true
		records = append(records, rec)
	}
	SortByDate(records)
	return records, nil
}

// GetBySlug loads a single document by slug, trying each extension in
// turn. Unpublished documents are returned too.
func (r *Repository) GetBySlug(ctx context.Context, kind Kind, slug string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if !kind.Valid() {
		return Record{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	slug = strings.TrimSpace(slug)
	if slug == "" || strings.ContainsAny(slug, `/\`) || strings.Contains(slug, "..") {
		return Record{}, ErrNotFound
	}
	for _, ext := range extensions {
		rec, err := r.load(kind, strings.ToLower(slug), slug+ext)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return Record{}, err
		}
	}

	// Hand-named files may differ in case from the slug they are served under.
	files, err := r.files(kind)
	if err != nil {
		return Record{}, err
	}
	for _, name := range files {
		if strings.EqualFold(slugFromFile(name), slug) {
			return r.load(kind, slugFromFile(name), name)
		}
	}
	return Record{}, ErrNotFound
}

// files lists document file names for kind, sorted by name.
func (r *Repository) files(kind Kind) ([]string, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	dir := r.Dir(kind)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			r.logger.Warnf("content: create %s: %v", dir, mkErr)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !isDocument(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (r *Repository) load(kind Kind, slug, name string) (Record, error) {
	path := filepath.Join(r.Dir(kind), name)
	src, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	doc := frontmatter.Parse(src)
	if doc.Err != nil {
		r.logger.Warnf("content: %s/%s: %v", kind.Dir(), name, doc.Err)
	}
	rec := Map(kind, slug, doc.Fields, doc.Body, r.now())
	rec.Path = filepath.ToSlash(filepath.Join(kind.Dir(), name))
	return rec, nil
}

func isDocument(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func slugFromFile(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
}

// SortByDate orders records newest first by SortTime. Records without a
// readable date sort last; ties keep their existing order.
func SortByDate(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		ti, okI := records[i].SortTime()
		tj, okJ := records[j].SortTime()
		switch {
		case okI && okJ:
			return ti.After(tj)
		case okI:
			return true
		default:
			return false
		}
	})
}
