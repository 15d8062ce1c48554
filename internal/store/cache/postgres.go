package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/danrygg/wovenflow/internal/fingerprint"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, key fingerprint.Fingerprint) (*Entry, bool, error) {
	var entry Entry
	entry.Key = key
	err := s.pool.QueryRow(ctx, `SELECT inputs, output, timestamp FROM cache WHERE key = $1`, string(key)).
		Scan(&entry.Input, &entry.Output, &entry.Timestamp)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get: %w", err)
	}
	return &entry, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cache (key, inputs, output, timestamp) VALUES ($1, $2, $3, $4) ON CONFLICT (key) DO NOTHING`,
		string(entry.Key), entry.Input, entry.Output, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("cache: put: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
