package labels

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteStore persists the durable label state to a single SQLite table
// as JSON blobs, snapshotting the full state on every save.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) a SQLite-backed label store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "tally.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("labels: create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("labels: open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS label_state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("labels: create state table: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Load reads the persisted label state. A fresh database yields an empty
// state, not an error.
func (s *SQLiteStore) Load() (Durable, error) {
	d := Durable{
		Labels:    make(map[string]string),
		NextIndex: make(map[string]int),
	}
	rows, err := s.db.Query(`SELECT bucket, payload FROM label_state`)
	if err != nil {
		return d, fmt.Errorf("labels: select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return d, fmt.Errorf("labels: scan: %w", err)
		}
		switch bucket {
		case "labels":
			if err := json.Unmarshal(payload, &d.Labels); err != nil {
				return d, fmt.Errorf("labels: decode labels: %w", err)
			}
		case "next_index":
			if err := json.Unmarshal(payload, &d.NextIndex); err != nil {
				return d, fmt.Errorf("labels: decode counters: %w", err)
			}
		}
	}
	return d, rows.Err()
}

// Save snapshots the full durable state in one transaction.
func (s *SQLiteStore) Save(d Durable) (retErr error) {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	buckets := map[string]any{
		"labels":     d.Labels,
		"next_index": d.NextIndex,
	}
	for bucket, v := range buckets {
		payload, err := json.Marshal(v)
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err := tx.Exec(
			`INSERT INTO label_state(bucket,payload) VALUES(?,?)
			 ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`,
			bucket, payload); err != nil {
			retErr = fmt.Errorf("labels: upsert %s: %w", bucket, err)
			return retErr
		}
	}
	return tx.Commit()
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the configured database path.
func (s *SQLiteStore) Path() string { return s.path }
