package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/eringen/quill/content"
)

// topLimit caps every ranked list in Stats.
const topLimit = 10

// Store keeps views in SQLite.
type Store struct {
	db     *sql.DB
	hasher Hasher
}

// NewStore opens (or creates) the analytics database at path and loads the
// installation salt, generating it on first use.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=synchronous(normal)")
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	salt, err := s.salt(context.Background())
	if err != nil {
		db.Close()
		return nil, err
	}
	s.hasher = Hasher{salt: salt}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Hasher returns the hasher bound to this installation's salt.
func (s *Store) Hasher() Hasher { return s.hasher }

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS views (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    kind TEXT NOT NULL,
    slug TEXT NOT NULL,
    visitor_id TEXT NOT NULL,
    referrer TEXT NOT NULL DEFAULT '',
    browser TEXT NOT NULL DEFAULT '',
    device TEXT NOT NULL DEFAULT '',
    bot TEXT NOT NULL DEFAULT '',
    at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS views_at ON views (at);
CREATE INDEX IF NOT EXISTS views_record ON views (kind, slug);

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`)
	return err
}

func (s *Store) salt(ctx context.Context) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = 'hash_salt'`).Scan(&v)
	if err == nil && v != "" {
		return v, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("read hash salt: %w", err)
	}
	if v, err = newSalt(); err != nil {
		return "", err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES ('hash_salt', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, v); err != nil {
		return "", fmt.Errorf("store hash salt: %w", err)
	}
	return v, nil
}

// Record stores one view.
func (s *Store) Record(ctx context.Context, v View) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO views (kind, slug, visitor_id, referrer, browser, device, bot, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(v.Kind), v.Slug, v.VisitorID, v.Referrer, v.Browser, v.Device, v.Bot, v.At.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("record view: %w", err)
	}
	return nil
}

// Prune deletes views recorded before cutoff and reports how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM views WHERE at < ?`, cutoff.UTC().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune views: %w", err)
	}
	return res.RowsAffected()
}

// StartPruning deletes views older than retention every interval until the
// returned stop function is called.
func (s *Store) StartPruning(retention, interval time.Duration, logger echo.Logger) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := s.Prune(context.Background(), time.Now().Add(-retention))
				if err != nil {
					logger.Errorf("analytics: %v", err)
				} else if n > 0 {
					logger.Infof("analytics: pruned %d views", n)
				}
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// Stats aggregates views in [from, to). Bot views are counted separately and
// excluded from every other figure.
func (s *Store) Stats(ctx context.Context, period string, from, to time.Time) (Stats, error) {
	st := Stats{
		Period:     period,
		From:       content.Today(from),
		To:         content.Today(to.Add(-time.Nanosecond)),
		TopRecords: []RecordStat{},
		Referrers:  []DimensionStat{},
		Browsers:   []DimensionStat{},
		Devices:    []DimensionStat{},
		Bots:       []DimensionStat{},
		Daily:      []DailyViews{},
	}
	lo, hi := from.UTC().UnixNano(), to.UTC().UnixNano()

	// Each query fills a distinct field, so no locking is needed.
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT COUNT(*), COUNT(DISTINCT visitor_id) FROM views WHERE bot = '' AND at >= ? AND at < ?`,
			lo, hi).Scan(&st.TotalViews, &st.UniqueVisitors)
	})
	g.Go(func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM views WHERE bot != '' AND at >= ? AND at < ?`, lo, hi).Scan(&st.BotViews)
	})
	g.Go(func() error {
		rows, err := s.db.QueryContext(ctx,
			`SELECT kind, slug, COUNT(*) AS n FROM views
			 WHERE bot = '' AND at >= ? AND at < ?
			 GROUP BY kind, slug ORDER BY n DESC, kind, slug LIMIT ?`, lo, hi, topLimit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r RecordStat
			var kind string
			if err := rows.Scan(&kind, &r.Slug, &r.Views); err != nil {
				return err
			}
			r.Kind = content.Kind(kind)
			st.TopRecords = append(st.TopRecords, r)
		}
		return rows.Err()
	})
	g.Go(func() error { return s.dimension(ctx, "referrer", "bot = ''", lo, hi, &st.Referrers) })
	g.Go(func() error { return s.dimension(ctx, "browser", "bot = ''", lo, hi, &st.Browsers) })
	g.Go(func() error { return s.dimension(ctx, "device", "bot = ''", lo, hi, &st.Devices) })
	g.Go(func() error { return s.dimension(ctx, "bot", "bot != ''", lo, hi, &st.Bots) })
	g.Go(func() error {
		rows, err := s.db.QueryContext(ctx,
			`SELECT date(at / 1000000000, 'unixepoch') AS day, COUNT(*) FROM views
			 WHERE bot = '' AND at >= ? AND at < ?
			 GROUP BY day ORDER BY day`, lo, hi)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var d DailyViews
			if err := rows.Scan(&d.Date, &d.Views); err != nil {
				return err
			}
			st.Daily = append(st.Daily, d)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return Stats{}, fmt.Errorf("analytics stats: %w", err)
	}
	return st, nil
}

// dimension counts views grouped by column. column and where are constants
// supplied by Stats, never user input.
func (s *Store) dimension(ctx context.Context, column, where string, lo, hi int64, out *[]DimensionStat) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+column+`, COUNT(*) AS n FROM views
		 WHERE `+where+` AND at >= ? AND at < ?
		 GROUP BY `+column+` ORDER BY n DESC, `+column+` LIMIT ?`, lo, hi, topLimit)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var d DimensionStat
		if err := rows.Scan(&d.Name, &d.Count); err != nil {
			return err
		}
		*out = append(*out, d)
	}
	return rows.Err()
}
