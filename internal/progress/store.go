// Package progress tracks which transcript files have already been
// processed, and the outcome of each attempt.
//
// The store is the single source of truth for dedup across runs: losing
// a write means duplicate summarization calls and duplicate observations
// downstream, so storage failures are surfaced, never swallowed. Each
// path has at most one row; reprocessing replaces the row atomically.
package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// ErrStorage indicates a storage-layer failure (disk full, lock
// contention, corruption). Fatal for the current run.
var ErrStorage = errors.New("progress storage error")

// Terminal statuses for a processed transcript.
const (
	StatusSuccess = "success"
	StatusEmpty   = "empty"
)

// errorStatusMaxLen bounds persisted error detail to keep the store
// compact; full detail goes to the log.
const errorStatusMaxLen = 100

// ErrorStatus builds the terminal status for a failed attempt,
// truncating the message.
func ErrorStatus(msg string) string {
	if len(msg) > errorStatusMaxLen {
		msg = msg[:errorStatusMaxLen]
	}
	return "error:" + msg
}

// Record is one processed-transcript row. Path is the unique key.
type Record struct {
	Path         string
	Filename     string
	MeetingDate  string
	ClientEntity string
	Status       string
	ProcessedAt  time.Time
}

// RunStats is one append-only sync_runs audit row.
type RunStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Discovered  int
	Succeeded   int
	Failed      int
}

// Store is a SQLite-backed progress store. It is owned by a single
// orchestrator per run; concurrent orchestrators against the same store
// are undefined.
type Store struct {
	db     *sql.DB
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// Open opens (creating if needed) the progress database at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrStorage, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %v", ErrStorage, err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS processed_transcripts (
			id            INTEGER PRIMARY KEY,
			path          TEXT UNIQUE NOT NULL,
			filename      TEXT,
			meeting_date  TEXT,
			client_entity TEXT,
			status        TEXT,
			processed_at  TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sync_runs (
			id           INTEGER PRIMARY KEY,
			started_at   TIMESTAMP,
			completed_at TIMESTAMP,
			discovered   INTEGER DEFAULT 0,
			succeeded    INTEGER DEFAULT 0,
			failed       INTEGER DEFAULT 0
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("%w: create tables: %v", ErrStorage, err)
		}
	}
	return nil
}

// IsProcessed reports whether a record exists for path, regardless of
// its status.
func (s *Store) IsProcessed(ctx context.Context, path string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM processed_transcripts WHERE path = ?`, path).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: query path: %v", ErrStorage, err)
	}
	return true, nil
}

// MarkProcessed upserts the record for rec.Path. The write is durable
// before the call returns; readers never observe a partial row. A zero
// ProcessedAt is stamped with the current time.
func (s *Store) MarkProcessed(ctx context.Context, rec Record) error {
	processedAt := rec.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processed_transcripts
			(path, filename, meeting_date, client_entity, status, processed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			filename      = excluded.filename,
			meeting_date  = excluded.meeting_date,
			client_entity = excluded.client_entity,
			status        = excluded.status,
			processed_at  = excluded.processed_at
	`, rec.Path, rec.Filename, rec.MeetingDate, rec.ClientEntity, rec.Status, processedAt)
	if err != nil {
		return fmt.Errorf("%w: mark processed %s: %v", ErrStorage, rec.Path, err)
	}

	s.logger.Debug("marked processed",
		zap.String("path", rec.Path),
		zap.String("status", rec.Status),
	)
	return nil
}

// Get returns the record for path, or nil when none exists.
func (s *Store) Get(ctx context.Context, path string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT path, filename, meeting_date, client_entity, status, processed_at
		FROM processed_transcripts WHERE path = ?
	`, path)

	var rec Record
	if err := row.Scan(&rec.Path, &rec.Filename, &rec.MeetingDate,
		&rec.ClientEntity, &rec.Status, &rec.ProcessedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get %s: %v", ErrStorage, path, err)
	}
	return &rec, nil
}

// Unprocessed returns the candidates that have no record yet,
// preserving input order.
func (s *Store) Unprocessed(ctx context.Context, candidates []string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM processed_transcripts`)
	if err != nil {
		return nil, fmt.Errorf("%w: query processed paths: %v", ErrStorage, err)
	}
	defer rows.Close()

	known := make(map[string]struct{})
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("%w: scan path: %v", ErrStorage, err)
		}
		known[path] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate paths: %v", ErrStorage, err)
	}

	unprocessed := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := known[c]; !ok {
			unprocessed = append(unprocessed, c)
		}
	}
	return unprocessed, nil
}

// RecordRun appends one sync_runs audit row.
func (s *Store) RecordRun(ctx context.Context, stats RunStats) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (started_at, completed_at, discovered, succeeded, failed)
		VALUES (?, ?, ?, ?, ?)
	`, stats.StartedAt, stats.CompletedAt, stats.Discovered, stats.Succeeded, stats.Failed)
	if err != nil {
		return fmt.Errorf("%w: record run: %v", ErrStorage, err)
	}
	return nil
}

// RecentRuns returns the most recent sync runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunStats, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT started_at, completed_at, discovered, succeeded, failed
		FROM sync_runs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query runs: %v", ErrStorage, err)
	}
	defer rows.Close()

	var runs []RunStats
	for rows.Next() {
		var r RunStats
		if err := rows.Scan(&r.StartedAt, &r.CompletedAt, &r.Discovered, &r.Succeeded, &r.Failed); err != nil {
			return nil, fmt.Errorf("%w: scan run: %v", ErrStorage, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// StatusCounts returns processed-transcript counts grouped by status,
// with error statuses collapsed under "error".
func (s *Store) StatusCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT CASE WHEN status LIKE 'error:%' THEN 'error' ELSE status END, COUNT(*)
		FROM processed_transcripts GROUP BY 1
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: query status counts: %v", ErrStorage, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("%w: scan count: %v", ErrStorage, err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// Close releases the underlying database. Safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
