package kv

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connStr string, clearDB bool) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging db: %w", err)
	}

	if clearDB {
		_, err = db.Exec(`DROP TABLE IF EXISTS kv;`)
		if err != nil {
			return nil, fmt.Errorf("clearing db: %w", err)
		}
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS kv (
    key TEXT NOT NULL,
    value BYTEA NOT NULL,
    metadata BYTEA,
    expires_at TIMESTAMPTZ,
PRIMARY KEY (key)
);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating kv table: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, _, err := s.GetWithMetadata(ctx, key)
	return value, err
}

func (s *PostgresStore) GetWithMetadata(ctx context.Context, key string) ([]byte, json.RawMessage, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT value, metadata, expires_at FROM kv WHERE key = $1`,
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

	if expiresAt.Valid && !expiresAt.Time.After(time.Now()) {
		return nil, nil, ErrNotFound
	}

	return value, metadata, nil
}

func (s *PostgresStore) Put(ctx context.Context, key string, value []byte, opts PutOptions) error {
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
VALUES ($1, $2, $3, $4)
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

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
