package database

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// sqliteStore keeps the collection blob in a single-row kv table.
type sqliteStore struct {
	db *sql.DB
}

func newSQLiteStore(path string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time is plenty for a per-profile journal
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) LoadBlob() ([]byte, error) {
	var value string
	err := s.db.QueryRow("SELECT v FROM kv WHERE k = ?", BlobKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load blob: %w", err)
	}
	return []byte(value), nil
}

func (s *sqliteStore) SaveBlob(data []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (k, v) VALUES (?, ?)
		ON CONFLICT(k) DO UPDATE SET v = excluded.v
	`, BlobKey, string(data))
	if err != nil {
		return fmt.Errorf("failed to save blob: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
