package events

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore backs the Event Store with an embedded, CGO-free SQLite
// database, selected by `--persistence-provider sqlite`.
type SQLiteStore struct {
	db *sqlx.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	instance_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	event_data TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	sequence_number INTEGER NOT NULL,
	UNIQUE(instance_id, sequence_number)
);
CREATE INDEX IF NOT EXISTS idx_events_instance_seq ON events(instance_id, sequence_number);
`

// OpenSQLiteStore opens (creating if necessary) a SQLite-backed Event Store
// at dbURL, e.g. "file:wovenflow.db?cache=shared".
func OpenSQLiteStore(dbURL string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite", dbURL)
	if err != nil {
		return nil, fmt.Errorf("events: open sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("events: migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, event Event) (Event, error) {
	var result Event
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var maxSeq sql.NullInt64
		if err := tx.GetContext(ctx, &maxSeq, `SELECT MAX(sequence_number) FROM events WHERE instance_id = ?`, event.InstanceID); err != nil {
			return err
		}
		next := int64(1)
		if maxSeq.Valid {
			next = maxSeq.Int64 + 1
		}
		event.Sequence = next
		_, err := tx.ExecContext(ctx,
			`INSERT INTO events (instance_id, event_type, event_data, timestamp, sequence_number) VALUES (?, ?, ?, ?, ?)`,
			event.InstanceID, string(event.Type), string(event.Data), event.Timestamp, event.Sequence)
		if err != nil {
			return err
		}
		result = event
		return nil
	})
	return result, err
}

func (s *SQLiteStore) Load(ctx context.Context, instanceID string, fromSeq int64) ([]Event, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT instance_id, event_type, event_data, timestamp, sequence_number FROM events
		 WHERE instance_id = ? AND sequence_number >= ? ORDER BY sequence_number ASC`,
		instanceID, fromSeq)
	if err != nil {
		return nil, fmt.Errorf("events: load: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var row struct {
			InstanceID string       `db:"instance_id"`
			EventType  string       `db:"event_type"`
			EventData  string       `db:"event_data"`
			Timestamp  sql.NullTime `db:"timestamp"`
			Sequence   int64        `db:"sequence_number"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		out = append(out, Event{
			InstanceID: row.InstanceID,
			Type:       Type(row.EventType),
			Data:       []byte(row.EventData),
			Timestamp:  row.Timestamp.Time,
			Sequence:   row.Sequence,
		})
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
