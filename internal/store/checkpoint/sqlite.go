package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sqlx.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	instance_id TEXT PRIMARY KEY,
	current_task TEXT NOT NULL,
	data TEXT NOT NULL,
	timestamp DATETIME NOT NULL
);
`

func OpenSQLiteStore(dbURL string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite", dbURL)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("checkpoint: migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, cp Checkpoint) error {
	data, err := json.Marshal(cp.ContextSnapshot)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (instance_id, current_task, data, timestamp) VALUES (?, ?, ?, ?)
		 ON CONFLICT(instance_id) DO UPDATE SET current_task = excluded.current_task, data = excluded.data, timestamp = excluded.timestamp`,
		cp.InstanceID, cp.CurrentTaskRef, string(data), cp.Timestamp)
	return err
}

func (s *SQLiteStore) Load(ctx context.Context, instanceID string) (*Checkpoint, error) {
	var row struct {
		InstanceID  string       `db:"instance_id"`
		CurrentTask string       `db:"current_task"`
		Data        string       `db:"data"`
		Timestamp   sql.NullTime `db:"timestamp"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT instance_id, current_task, data, timestamp FROM checkpoints WHERE instance_id = ?`, instanceID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snapshot interface{}
	if err := json.Unmarshal([]byte(row.Data), &snapshot); err != nil {
		return nil, err
	}
	return &Checkpoint{
		InstanceID:      row.InstanceID,
		CurrentTaskRef:  row.CurrentTask,
		ContextSnapshot: snapshot,
		Timestamp:       row.Timestamp.Time,
	}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
