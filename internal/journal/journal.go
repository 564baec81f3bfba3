// Package journal keeps an append-only log of playback events in SQLite.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tessro/startify/internal/tail"
)

// DefaultLimit is used by Recent when limit is not positive.
const DefaultLimit = 20

// Store is a SQLite-backed event journal. It implements tail.Sink.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the journal location under the user data directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config dir: %w", err)
	}
	return filepath.Join(dir, "startify", "journal.db"), nil
}

// Open opens or creates the journal at path. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		payload BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append stores e. Appending an event whose ID is already present is a no-op.
func (s *Store) Append(ctx context.Context, e tail.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO events (id, event_type, timestamp, payload) VALUES (?, ?, ?, ?)",
		e.ID, string(e.Type), e.Timestamp.UnixMilli(), payload,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Write implements tail.Sink.
func (s *Store) Write(ctx context.Context, e tail.Event) error {
	return s.Append(ctx, e)
}

// Query filters Recent.
type Query struct {
	Limit int
	Types []tail.EventType
	Since time.Time
}

// Recent returns the newest events matching q, newest first.
func (s *Store) Recent(ctx context.Context, q Query) ([]tail.Event, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}

	query := "SELECT payload FROM events WHERE timestamp >= ?"
	args := []any{q.Since.UnixMilli()}
	if q.Since.IsZero() {
		args[0] = int64(0)
	}
	if len(q.Types) > 0 {
		query += " AND event_type IN (?" + strings.Repeat(",?", len(q.Types)-1) + ")"
		for _, t := range q.Types {
			args = append(args, string(t))
		}
	}
	query += " ORDER BY seq DESC LIMIT ?"
	args = append(args, q.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []tail.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var e tail.Event
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return events, nil
}

// Count returns the number of stored events.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Prune deletes events older than before and returns how many were removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE timestamp < ?", before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ tail.Sink = (*Store)(nil)
