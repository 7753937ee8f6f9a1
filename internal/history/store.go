package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists runs in SQLite.
type Store struct {
	db  *sql.DB
	cfg Config
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source TEXT NOT NULL,
    bytes INTEGER NOT NULL,
    chunk_size INTEGER NOT NULL DEFAULT 0,
    events INTEGER NOT NULL DEFAULT 0,
    elements INTEGER NOT NULL DEFAULT 0,
    counts TEXT,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

// Open opens (creating if needed) the run database at cfg.Path.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("history: no database path configured")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	store := &Store{db: db, cfg: cfg}

	if err := store.cleanup(); err != nil {
		// Log but don't fail
		fmt.Fprintf(os.Stderr, "warning: history cleanup failed: %v\n", err)
	}

	return store, nil
}

// cleanup trims retained runs down to MaxRuns, oldest first.
func (s *Store) cleanup() error {
	if s.cfg.MaxRuns <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(context.Background(), `
		DELETE FROM runs WHERE id IN (
			SELECT id FROM runs
			ORDER BY created_at DESC, id DESC
			LIMIT -1 OFFSET ?
		)`, s.cfg.MaxRuns)
	if err != nil {
		return fmt.Errorf("enforce max runs: %w", err)
	}
	return nil
}

// Record inserts a run and fills in its ID and CreatedAt.
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	counts, err := countsJSON(run.Counts)
	if err != nil {
		return fmt.Errorf("serialize counts: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (source, bytes, chunk_size, events, elements, counts, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Source, run.Bytes, run.ChunkSize, run.Events, run.Elements,
		counts, run.Duration.Milliseconds(), run.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	id, _ := result.LastInsertId()
	run.ID = id
	return nil
}

// Get retrieves one run by ID. A missing run returns (nil, nil).
func (s *Store) Get(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source, bytes, chunk_size, events, elements, counts, duration_ms, created_at
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, bytes, chunk_size, events, elements, counts, duration_ms, created_at
		FROM runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var results []Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		results = append(results, *run)
	}
	return results, rows.Err()
}

// Clear deletes all recorded runs.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM runs"); err != nil {
		return fmt.Errorf("clear runs: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanRun(scan func(dest ...any) error) (*Run, error) {
	var run Run
	var counts sql.NullString
	var durationMs int64
	err := scan(&run.ID, &run.Source, &run.Bytes, &run.ChunkSize,
		&run.Events, &run.Elements, &counts, &durationMs, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	run.Duration = time.Duration(durationMs) * time.Millisecond
	if counts.Valid && counts.String != "" {
		if err := json.Unmarshal([]byte(counts.String), &run.Counts); err != nil {
			return nil, fmt.Errorf("deserialize counts: %w", err)
		}
	}
	return &run, nil
}

// countsJSON converts an empty count map to NULL for storage.
func countsJSON(counts map[string]int) (sql.NullString, error) {
	if len(counts) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(counts)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
