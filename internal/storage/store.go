// Package storage is a small embedded, transactional key-value layer with
// named collections, schema versioning and upgrade-on-open semantics, backed
// by SQLite. It retains farm records across sessions without a backend.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotInitialized is returned by writes and deletes when the store failed
// to open. Reads degrade to empty results instead.
var ErrNotInitialized = errors.New("store not initialized")

// ErrUnknownCollection is returned for collections absent from the schema.
var ErrUnknownCollection = errors.New("unknown collection")

// Store is a versioned collection store. It opens lazily on first use; the
// open/upgrade sequence runs at most once per process, concurrent first
// callers share it, and a failed open is permanent for the process.
type Store struct {
	dataDir string
	schema  Schema

	openOnce sync.Once
	db       *sql.DB
	openErr  error
}

// New declares a store over dataDir with the given schema. Nothing is opened
// until the first operation. Pass ":memory:" as dataDir for tests.
func New(dataDir string, schema Schema) *Store {
	return &Store{dataDir: dataDir, schema: schema}
}

// ready runs the open/upgrade sequence exactly once and reports its outcome.
func (s *Store) ready() error {
	s.openOnce.Do(func() {
		s.db, s.openErr = s.open()
	})
	return s.openErr
}

func (s *Store) open() (*sql.DB, error) {
	var dsn string
	if s.dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(s.dataDir, "fieldhand.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	if err := upgrade(db, s.schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("upgrading schema: %w", err)
	}
	return db, nil
}

// upgrade brings the database to the declared schema version, creating any
// collection the persisted version predates. Existing collections are left
// untouched; the declared version must never decrease.
func upgrade(db *sql.DB, schema Schema) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var persisted sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&persisted); err != nil {
		return fmt.Errorf("reading persisted version: %w", err)
	}
	from := int(persisted.Int64)

	if schema.Version < from {
		return fmt.Errorf("declared schema version %d is below persisted version %d", schema.Version, from)
	}
	if schema.Version == from {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning upgrade transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range schema.Collections {
		if c.Since <= from {
			continue
		}
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
			%q TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`, c.Name, c.PrimaryKey)
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("creating collection %s: %w", c.Name, err)
		}
	}

	for v := from + 1; v <= schema.Version; v++ {
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", v); err != nil {
			return fmt.Errorf("recording version %d: %w", v, err)
		}
	}
	return tx.Commit()
}

// AppliedVersions returns the persisted schema versions in ascending order.
// An unopened or failed store yields an empty list.
func (s *Store) AppliedVersions(ctx context.Context) ([]int, error) {
	if err := s.ready(); err != nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// Put upserts record under key in collection, last write wins, as a
// single-collection transaction. The record is stored as JSON.
func (s *Store) Put(ctx context.Context, collection, key string, record any) error {
	if err := s.ready(); err != nil {
		return fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}
	c, ok := s.schema.collection(collection)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	stmt := fmt.Sprintf(`INSERT INTO %q (%q, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(%q) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		collection, c.PrimaryKey, c.PrimaryKey)
	_, err = s.db.ExecContext(ctx, stmt, key, string(payload), time.Now().UTC().Format(time.RFC3339))
	return err
}

// GetAll returns the raw JSON payload of every record in collection. No
// ordering is guaranteed; callers apply their own sort. Reads against a
// failed store return an empty result.
func (s *Store) GetAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	if err := s.ready(); err != nil {
		return nil, nil
	}
	if _, ok := s.schema.collection(collection); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT payload FROM %q", collection))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		out = append(out, json.RawMessage(payload))
	}
	return out, rows.Err()
}

// Delete removes the record with the given primary key; absent keys are a no-op.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	if err := s.ready(); err != nil {
		return fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}
	c, ok := s.schema.collection(collection)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	_, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %q WHERE %q = ?", collection, c.PrimaryKey), key)
	return err
}

// Close closes the underlying database if it was ever opened.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
