package herald

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested build does not exist.
var ErrNotFound = sql.ErrNoRows

// BuildRecord is a finished build as kept in the history.
type BuildRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	State      State
	Skipped    bool
	FailedType string
	Error      string
	Pages      int
}

// Duration is how long the build ran.
func (b BuildRecord) Duration() time.Duration {
	return b.FinishedAt.Sub(b.StartedAt)
}

// RecordFromReport converts a build report into a history record.
func RecordFromReport(r *Report) BuildRecord {
	rec := BuildRecord{
		ID:         r.ID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		State:      r.State,
		Skipped:    r.Skipped,
		FailedType: r.FailedType,
		Pages:      len(r.Plan),
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	return rec
}

// PageDiff lists how the pages of one build differ from another.
type PageDiff struct {
	Added   []string
	Removed []string
	Changed []string // same path, different template or context
}

// Empty reports whether the builds produced the same pages.
func (d PageDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Store wraps a SQLite database holding the build history.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the console read while a build is being saved.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
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
CREATE TABLE IF NOT EXISTS builds (
    id TEXT PRIMARY KEY,
    started_at INTEGER NOT NULL,
    finished_at INTEGER NOT NULL,
    state TEXT NOT NULL,
    skipped INTEGER NOT NULL DEFAULT 0,
    failed_type TEXT NOT NULL DEFAULT '',
    error TEXT NOT NULL DEFAULT '',
    pages INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS builds_started_at ON builds (started_at DESC);
CREATE TABLE IF NOT EXISTS build_pages (
    build_id TEXT NOT NULL,
    path TEXT NOT NULL,
    template TEXT NOT NULL,
    content_id TEXT NOT NULL,
    previous_id TEXT,
    next_id TEXT,
    PRIMARY KEY (build_id, path)
);
`)
	return err
}

// SaveBuild stores a build and the pages it planned.
func (s *Store) SaveBuild(ctx context.Context, rec BuildRecord, plan Plan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO builds (id, started_at, finished_at, state, skipped, failed_type, error, pages) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.StartedAt.UnixMilli(), rec.FinishedAt.UnixMilli(), rec.State.String(), boolInt(rec.Skipped), rec.FailedType, rec.Error, rec.Pages); err != nil {
		return fmt.Errorf("herald: save build %s: %w", rec.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM build_pages WHERE build_id = ?`, rec.ID); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO build_pages (build_id, path, template, content_id, previous_id, next_id) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range plan {
		if _, err := stmt.ExecContext(ctx, rec.ID, e.Path, e.Template, e.Context.ID, nullString(e.Context.PreviousPostID), nullString(e.Context.NextPostID)); err != nil {
			return fmt.Errorf("herald: save page %s: %w", e.Path, err)
		}
	}
	return tx.Commit()
}

const buildColumns = `id, started_at, finished_at, state, skipped, failed_type, error, pages`

// ListBuilds returns up to limit builds, newest first.
func (s *Store) ListBuilds(ctx context.Context, limit int) ([]BuildRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+buildColumns+` FROM builds ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var builds []BuildRecord
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		builds = append(builds, b)
	}
	return builds, rows.Err()
}

// GetBuild returns one build by id.
func (s *Store) GetBuild(ctx context.Context, id string) (BuildRecord, error) {
	return scanBuild(s.db.QueryRowContext(ctx, `SELECT `+buildColumns+` FROM builds WHERE id = ?`, id))
}

// PreviousBuild returns the latest complete build that started before id.
// Failed and skipped builds are passed over since their plans are partial
// or empty.
func (s *Store) PreviousBuild(ctx context.Context, id string) (BuildRecord, error) {
	return scanBuild(s.db.QueryRowContext(ctx, `SELECT `+buildColumns+` FROM builds
WHERE started_at < (SELECT started_at FROM builds WHERE id = ?)
  AND state = ? AND skipped = 0
ORDER BY started_at DESC LIMIT 1`, id, StateDone.String()))
}

// ListBuildPages returns the pages a build planned, ordered by path.
func (s *Store) ListBuildPages(ctx context.Context, id string) (Plan, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, template, content_id, previous_id, next_id FROM build_pages WHERE build_id = ? ORDER BY path`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plan Plan
	for rows.Next() {
		var e PlanEntry
		var prev, next sql.NullString
		if err := rows.Scan(&e.Path, &e.Template, &e.Context.ID, &prev, &next); err != nil {
			return nil, err
		}
		e.Context.PreviousPostID = prev.String
		e.Context.NextPostID = next.String
		plan = append(plan, e)
	}
	return plan, rows.Err()
}

// DiffPages compares the pages of build to those of base.
func (s *Store) DiffPages(ctx context.Context, base, build string) (PageDiff, error) {
	from, err := s.ListBuildPages(ctx, base)
	if err != nil {
		return PageDiff{}, err
	}
	to, err := s.ListBuildPages(ctx, build)
	if err != nil {
		return PageDiff{}, err
	}
	return diffPlans(from, to), nil
}

// Prune deletes all but the newest keep builds and their pages.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM builds WHERE id NOT IN (SELECT id FROM builds ORDER BY started_at DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM build_pages WHERE build_id NOT IN (SELECT id FROM builds)`); err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

func diffPlans(from, to Plan) PageDiff {
	old := make(map[string]PlanEntry, len(from))
	for _, e := range from {
		old[e.Path] = e
	}
	var d PageDiff
	for _, e := range to {
		prev, ok := old[e.Path]
		switch {
		case !ok:
			d.Added = append(d.Added, e.Path)
		case prev != e:
			d.Changed = append(d.Changed, e.Path)
		}
		delete(old, e.Path)
	}
	for p := range old {
		d.Removed = append(d.Removed, p)
	}
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.Changed)
	return d
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBuild(r rowScanner) (BuildRecord, error) {
	var b BuildRecord
	var started, finished int64
	var state string
	var skipped int
	if err := r.Scan(&b.ID, &started, &finished, &state, &skipped, &b.FailedType, &b.Error, &b.Pages); err != nil {
		return BuildRecord{}, err
	}
	b.StartedAt = time.UnixMilli(started).UTC()
	b.FinishedAt = time.UnixMilli(finished).UTC()
	b.State = ParseState(state)
	b.Skipped = skipped == 1
	return b, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
