package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"shelf/internal/toolrunner"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS invocations (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    class       TEXT NOT NULL,
    binary      TEXT NOT NULL,
    args        TEXT NOT NULL,
    cache_key   TEXT NOT NULL DEFAULT '',
    state       TEXT NOT NULL,
    exit_code   INTEGER NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    started_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_invocations_started_at ON invocations(started_at);
CREATE INDEX IF NOT EXISTS idx_invocations_class ON invocations(class);
`

// Entry is one journaled invocation.
type Entry struct {
	ID        int64
	Class     string
	Binary    string
	Args      string
	CacheKey  string
	State     string
	ExitCode  int
	Duration  time.Duration
	StartedAt time.Time
}

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
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

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
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

// Record implements toolrunner.Recorder.
func (s *Store) Record(ctx context.Context, rec toolrunner.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invocations (class, binary, args, cache_key, state, exit_code, duration_ms, started_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rec.Class),
		rec.Binary,
		strings.Join(rec.Args, " "),
		rec.CacheKey,
		string(rec.State),
		rec.ExitCode,
		rec.Duration.Milliseconds(),
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert invocation: %w", err)
	}
	return nil
}

// Recent returns up to limit invocations, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, class, binary, args, cache_key, state, exit_code, duration_ms, started_at
         FROM invocations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query invocations: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var durationMS int64
		var startedAt string
		if err := rows.Scan(&entry.ID, &entry.Class, &entry.Binary, &entry.Args, &entry.CacheKey,
			&entry.State, &entry.ExitCode, &durationMS, &startedAt); err != nil {
			return nil, fmt.Errorf("scan invocation: %w", err)
		}
		entry.Duration = time.Duration(durationMS) * time.Millisecond
		if parsed, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			entry.StartedAt = parsed
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invocations: %w", err)
	}
	return entries, nil
}

// CountByState aggregates journal entries by terminal state.
func (s *Store) CountByState(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(1) FROM invocations GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("count invocations: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var state string
		var count int64
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[state] = count
	}
	return counts, rows.Err()
}
