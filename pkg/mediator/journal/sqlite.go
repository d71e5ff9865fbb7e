package journal

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore appends journal entries to a SQLite database.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite journal.
// The path should be a file path (e.g., "./mediator.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS journal_entries (
			sequence INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			ref TEXT NOT NULL,
			timestamp TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create entries table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS journal_names (
			sequence INTEGER NOT NULL REFERENCES journal_entries(sequence),
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			PRIMARY KEY (sequence, position)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create names table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_journal_names_name
		ON journal_names(name)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Append implements Store.
func (s *SQLiteStore) Append(entry Entry) error {
	if entry.Kind == "" {
		return ErrInvalidEntry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.Exec(`
		INSERT INTO journal_entries (id, kind, name, ref, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, entry.ID, string(entry.Kind), entry.Name, entry.Ref, entry.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append entry: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read sequence: %w", err)
	}

	for i, name := range entry.Names {
		if _, err := tx.Exec(`
			INSERT INTO journal_names (sequence, position, name)
			VALUES (?, ?, ?)
		`, seq, i, name); err != nil {
			return fmt.Errorf("append entry name: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List() ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	return s.query(`
		SELECT sequence, id, kind, name, ref, timestamp
		FROM journal_entries
		ORDER BY sequence
	`)
}

// ListByName implements Store.
func (s *SQLiteStore) ListByName(name string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	return s.query(`
		SELECT e.sequence, e.id, e.kind, e.name, e.ref, e.timestamp
		FROM journal_entries e
		WHERE e.name = ?
		   OR EXISTS (SELECT 1 FROM journal_names n WHERE n.sequence = e.sequence AND n.name = ?)
		ORDER BY e.sequence
	`, name, name)
}

// query loads entries and their names. Callers hold s.mu.
func (s *SQLiteStore) query(q string, args ...any) ([]Entry, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var kind, timestamp string
		if err := rows.Scan(&e.Sequence, &e.ID, &kind, &e.Name, &e.Ref, &timestamp); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Kind = Kind(kind)
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	rows.Close()

	for i := range entries {
		names, err := s.names(entries[i].Sequence)
		if err != nil {
			return nil, err
		}
		entries[i].Names = names
	}
	return entries, nil
}

func (s *SQLiteStore) names(seq int64) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT name FROM journal_names
		WHERE sequence = ?
		ORDER BY position
	`, seq)
	if err != nil {
		return nil, fmt.Errorf("list entry names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan entry name: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entry names: %w", err)
	}
	return names, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
