package journal

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteJournal persists transitions to SQLite.
// It is suitable for single-process production use.
type SQLiteJournal struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteJournal creates a SQLite-backed journal.
// The path should be a file path (e.g., "./registry.db") or ":memory:" for testing.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection keeps :memory: databases coherent and avoids
	// SQLITE_BUSY under concurrent appends.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transitions (
			registry TEXT NOT NULL,
			key TEXT NOT NULL,
			event TEXT NOT NULL,
			identity TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			timestamp TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_transitions_registry
		ON transitions(registry)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteJournal{db: db}, nil
}

// Append implements Journal.
func (j *SQLiteJournal) Append(rec Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrJournalClosed
	}

	// Sequence is max + 1 within the registry.
	_, err := j.db.Exec(`
		INSERT INTO transitions (registry, key, event, identity, sequence, timestamp)
		VALUES (
			?, ?, ?, ?,
			COALESCE((SELECT MAX(sequence) FROM transitions WHERE registry = ?), 0) + 1,
			?
		)
	`, rec.Registry, rec.Key, rec.Event, rec.Identity, rec.Registry,
		rec.Timestamp.UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("append transition: %w", err)
	}
	return nil
}

// List implements Journal.
func (j *SQLiteJournal) List(registry string) ([]Record, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return nil, ErrJournalClosed
	}

	rows, err := j.db.Query(`
		SELECT key, event, identity, sequence, timestamp
		FROM transitions
		WHERE registry = ?
		ORDER BY sequence
	`, registry)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	recs := []Record{}
	for rows.Next() {
		rec := Record{Registry: registry}
		var timestamp string
		if err := rows.Scan(&rec.Key, &rec.Event, &rec.Identity, &rec.Sequence, &timestamp); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}

	return recs, nil
}

// Close implements Journal.
func (j *SQLiteJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}

	j.closed = true
	return j.db.Close()
}
