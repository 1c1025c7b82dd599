// Package drafts keeps in-editor drafts in a SQLite document table, apart
// from the published content tree.
package drafts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound     = errors.New("draft not found")
	ErrInvalidInput = errors.New("invalid draft")
)

// DefaultListLimit caps ListPublished when the caller passes no limit.
const DefaultListLimit = 50

// Draft is one editor document.
type Draft struct {
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Body      string    `json:"body,omitempty"`
	Author    string    `json:"author,omitempty"`
	Draft     bool      `json:"draft"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store wraps a SQLite database holding drafts.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

const dsnPragmas = "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)" +
	"&_pragma=synchronous(normal)&_pragma=cache_size(-8000)"

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// Pragmas go in the DSN so every pooled connection gets them. The busy
	// timeout makes a second writer wait instead of failing with SQLITE_BUSY.
	db, err := sql.Open("sqlite", path+dsnPragmas)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS drafts (
    slug TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    summary TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '[]',
    body TEXT NOT NULL DEFAULT '',
    author TEXT NOT NULL DEFAULT '',
    draft INTEGER NOT NULL DEFAULT 1,
    published INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS drafts_published_updated ON drafts (published, updated_at DESC);
CREATE INDEX IF NOT EXISTS drafts_author ON drafts (author);
`)
	return err
}

const columns = `slug, title, summary, tags, body, author, draft, published, created_at, updated_at`

// Upsert writes d with merge semantics: empty fields and nil tags keep what
// is stored. The document is always left as an unpublished draft, and the
// creation time of an existing document is preserved.
func (s *Store) Upsert(ctx context.Context, d Draft) (Draft, error) {
	d.Slug = strings.TrimSpace(d.Slug)
	if d.Slug == "" {
		return Draft{}, fmt.Errorf("%w: missing slug", ErrInvalidInput)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Draft{}, err
	}
	defer tx.Rollback()

	now := s.now().UTC()
	merged, err := scanDraft(tx.QueryRowContext(ctx, `SELECT `+columns+` FROM drafts WHERE slug = ?`, d.Slug))
	switch {
	case errors.Is(err, ErrNotFound):
		merged = Draft{Slug: d.Slug, CreatedAt: now}
	case err != nil:
		return Draft{}, err
	}
	merge(&merged, d)
	merged.Draft = true
	merged.Published = false
	merged.UpdatedAt = now

	tags, err := json.Marshal(nonNil(merged.Tags))
	if err != nil {
		return Draft{}, err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO drafts (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, 1, 0, ?, ?)
ON CONFLICT(slug) DO UPDATE SET
    title = excluded.title,
    summary = excluded.summary,
    tags = excluded.tags,
    body = excluded.body,
    author = excluded.author,
    draft = 1,
    published = 0,
    updated_at = excluded.updated_at`,
		merged.Slug, merged.Title, merged.Summary, string(tags), merged.Body, merged.Author,
		merged.CreatedAt.UnixNano(), merged.UpdatedAt.UnixNano())
	if err != nil {
		return Draft{}, err
	}
	if err := tx.Commit(); err != nil {
		return Draft{}, err
	}
	return merged, nil
}

func merge(dst *Draft, src Draft) {
	if src.Title != "" {
		dst.Title = src.Title
	}
	if src.Summary != "" {
		dst.Summary = src.Summary
	}
	if src.Body != "" {
		dst.Body = src.Body
	}
	if src.Author != "" {
		dst.Author = src.Author
	}
	if src.Tags != nil {
		dst.Tags = src.Tags
	}
}

// Publish marks a stored draft as published.
func (s *Store) Publish(ctx context.Context, slug string) error {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return fmt.Errorf("%w: missing slug", ErrInvalidInput)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE drafts SET draft = 0, published = 1, updated_at = ? WHERE slug = ?`,
		s.now().UTC().UnixNano(), slug)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns a draft by slug regardless of its published state.
func (s *Store) Get(ctx context.Context, slug string) (Draft, error) {
	return scanDraft(s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM drafts WHERE slug = ?`, slug))
}

// ListPublished returns published documents, most recently updated first.
// A limit of zero or less means DefaultListLimit.
func (s *Store) ListPublished(ctx context.Context, limit int) ([]Draft, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return s.list(ctx, `SELECT `+columns+` FROM drafts WHERE published = 1 ORDER BY updated_at DESC, slug LIMIT ?`, limit)
}

// ListByAuthor returns every document written by author, most recently
// updated first.
func (s *Store) ListByAuthor(ctx context.Context, author string) ([]Draft, error) {
	return s.list(ctx, `SELECT `+columns+` FROM drafts WHERE author = ? ORDER BY updated_at DESC, slug`, author)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Draft, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(row scanner) (Draft, error) {
	var (
		d                Draft
		tags             string
		draft, published int
		created, updated int64
	)
	err := row.Scan(&d.Slug, &d.Title, &d.Summary, &tags, &d.Body, &d.Author, &draft, &published, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Draft{}, ErrNotFound
	}
	if err != nil {
		return Draft{}, err
	}
	if err := json.Unmarshal([]byte(tags), &d.Tags); err != nil {
		return Draft{}, fmt.Errorf("draft %s: tags: %w", d.Slug, err)
	}
	d.Draft = draft == 1
	d.Published = published == 1
	d.CreatedAt = time.Unix(0, created).UTC()
	d.UpdatedAt = time.Unix(0, updated).UTC()
	return d, nil
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
