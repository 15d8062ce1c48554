package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/danrygg/wovenflow/internal/fingerprint"
)

type SQLiteStore struct {
	db *sqlx.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache (
	key TEXT PRIMARY KEY,
	inputs TEXT NOT NULL,
	output TEXT NOT NULL,
	timestamp DATETIME NOT NULL
);
`

func OpenSQLiteStore(dbURL string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite", dbURL)
	if err != nil {
		return nil, fmt.Errorf("cache: open sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("cache: migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key fingerprint.Fingerprint) (*Entry, bool, error) {
	var row struct {
		Key       string       `db:"key"`
		Inputs    string       `db:"inputs"`
		Output    string       `db:"output"`
		Timestamp sql.NullTime `db:"timestamp"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT key, inputs, output, timestamp FROM cache WHERE key = ?`, string(key))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var entry Entry
	entry.Key = key
	entry.Timestamp = row.Timestamp.Time
	if err := json.Unmarshal([]byte(row.Inputs), &entry.Input); err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal([]byte(row.Output), &entry.Output); err != nil {
		return nil, false, err
	}
	return &entry, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, entry Entry) error {
	inputs, err := json.Marshal(entry.Input)
	if err != nil {
		return err
	}
	output, err := json.Marshal(entry.Output)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO cache (key, inputs, output, timestamp) VALUES (?, ?, ?, ?)`,
		string(entry.Key), string(inputs), string(output), entry.Timestamp)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
