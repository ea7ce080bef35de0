package kv

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteConfig struct {
	OnDisk    bool
	Directory string
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(cfg ...SQLiteConfig) (*SQLiteStore, error) {
	onDisk := false
	directory := ""
	if len(cfg) > 0 {
		onDisk = cfg[0].OnDisk
		directory = cfg[0].Directory
	}

	sourceName := ":memory:"
	if onDisk {
		sourceName = directory + "/transit.db"
	}

	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every pooled connection gets its own :memory: database, so
	// the in-memory store must stay on a single connection or
	// queries land on an empty one.
	if !onDisk {
		db.SetMaxOpenConns(1)
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS kv (
    key TEXT NOT NULL,
    value BLOB NOT NULL,
    metadata BLOB,
    expires_at TIMESTAMP,
PRIMARY KEY (key)
);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating kv table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, _, err := s.GetWithMetadata(ctx, key)
	return value, err
}

func (s *SQLiteStore) GetWithMetadata(ctx context.Context, key string) ([]byte, json.RawMessage, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT value, metadata, expires_at FROM kv WHERE key = ?`,
		key,
	)

	var value, metadata []byte
	var expiresAt sql.NullTime
	err := row.Scan(&value, &metadata, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading key '%s': %w", key, err)
	}

	// Expired rows are treated as absent. They get overwritten by
	// the next Put.
	if expiresAt.Valid && !expiresAt.Time.After(time.Now()) {
		return nil, nil, ErrNotFound
	}

	return value, metadata, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte, opts PutOptions) error {
	var expiresAt interface{}
	if opts.TTL > 0 {
		expiresAt = time.Now().Add(opts.TTL)
	}

	var metadata interface{}
	if len(opts.Metadata) > 0 {
		metadata = []byte(opts.Metadata)
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO kv (key, value, metadata, expires_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (key) DO UPDATE SET
    value = excluded.value,
    metadata = excluded.metadata,
    expires_at = excluded.expires_at`,
		key, value, metadata, expiresAt)
	if err != nil {
		return fmt.Errorf("writing key '%s': %w", key, err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
