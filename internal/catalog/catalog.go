// Package catalog persists one row per submission in SQLite.
//
// The catalog backs admission counting, the CLI jobs listing, and retention
// pruning. It deliberately does not serve live status polls: the per-job
// status record in the jobstore remains the single source of truth for
// progress, and only the daemon writes catalog rows (insert at submission,
// terminal mirror from the reaper or cancellation).
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"subburn/internal/jobstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id            TEXT PRIMARY KEY,
    source_kind   TEXT NOT NULL,
    source        TEXT,
    target_lang   TEXT NOT NULL,
    font_size     INTEGER NOT NULL,
    status        TEXT NOT NULL,
    error_message TEXT,
    created_at    TEXT NOT NULL,
    updated_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
`

// SourceKind distinguishes uploaded files from URL/embed submissions.
type SourceKind string

const (
	SourceUpload SourceKind = "upload"
	SourceURL    SourceKind = "url"
)

// Entry is one catalog row.
type Entry struct {
	ID           string
	SourceKind   SourceKind
	Source       string
	TargetLang   string
	FontSize     int
	Status       jobstore.Status
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store manages catalog persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database under dataDir.
func Open(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "catalog.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Insert records a new submission with status queued.
func (s *Store) Insert(ctx context.Context, entry Entry) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            id, source_kind, source, target_lang, font_size, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		string(entry.SourceKind),
		nullableString(entry.Source),
		entry.TargetLang,
		entry.FontSize,
		jobstore.StatusQueued,
		timestamp,
		timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// MarkTerminal mirrors a terminal outcome onto the catalog row.
func (s *Store) MarkTerminal(ctx context.Context, id string, status jobstore.Status, message string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("status %q is not terminal", status)
	}
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status,
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark terminal: %w", err)
	}
	return nil
}

// Get fetches one entry by id, or nil when absent.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM jobs WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return entry, nil
}

// List returns entries ordered by creation time, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM jobs ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CountActive returns the number of rows not yet in a terminal state.
func (s *Store) CountActive(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM jobs WHERE status NOT IN (?, ?, ?)`,
		jobstore.StatusDone,
		jobstore.StatusFailed,
		jobstore.StatusCancelled,
	)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count active jobs: %w", err)
	}
	return count, nil
}

// ListActive returns the non-terminal entries ordered by creation time.
func (s *Store) ListActive(ctx context.Context) ([]*Entry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+entryColumns+` FROM jobs WHERE status NOT IN (?, ?, ?) ORDER BY created_at`,
		jobstore.StatusDone,
		jobstore.StatusFailed,
		jobstore.StatusCancelled,
	)
	if err != nil {
		return nil, fmt.Errorf("list active jobs: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// PruneOlderThan deletes terminal rows created before the cutoff and returns
// their ids so the caller can remove the matching job directories.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	cutoffText := cutoff.UTC().Format(time.RFC3339Nano)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id FROM jobs WHERE created_at < ? AND status IN (?, ?, ?)`,
		cutoffText,
		jobstore.StatusDone,
		jobstore.StatusFailed,
		jobstore.StatusCancelled,
	)
	if err != nil {
		return nil, fmt.Errorf("select prunable jobs: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if _, err := s.db.ExecContext(
		ctx,
		`DELETE FROM jobs WHERE created_at < ? AND status IN (?, ?, ?)`,
		cutoffText,
		jobstore.StatusDone,
		jobstore.StatusFailed,
		jobstore.StatusCancelled,
	); err != nil {
		return nil, fmt.Errorf("prune jobs: %w", err)
	}
	return ids, nil
}

const entryColumns = "id, source_kind, source, target_lang, font_size, status, error_message, created_at, updated_at"

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		id           string
		sourceKind   string
		source       sql.NullString
		targetLang   string
		fontSize     int
		statusStr    string
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(&id, &sourceKind, &source, &targetLang, &fontSize, &statusStr, &errorMessage, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:           id,
		SourceKind:   SourceKind(sourceKind),
		Source:       source.String,
		TargetLang:   targetLang,
		FontSize:     fontSize,
		Status:       jobstore.Status(statusStr),
		ErrorMessage: errorMessage.String,
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		entry.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		entry.UpdatedAt = updated
	}
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
