package events

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore backs the Event Store with Postgres, selected by
// `--persistence-provider postgres`. Schema is applied once via
// internal/store/migrations before any Store is constructed.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) (Event, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("events: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var next int64
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence_number), 0) + 1 FROM events WHERE instance_id = $1`,
		event.InstanceID).Scan(&next)
	if err != nil {
		return Event{}, fmt.Errorf("events: next sequence: %w", err)
	}
	event.Sequence = next
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO events (instance_id, event_type, event_data, timestamp, sequence_number) VALUES ($1, $2, $3, $4, $5)`,
		event.InstanceID, string(event.Type), event.Data, event.Timestamp, event.Sequence)
	if err != nil {
		return Event{}, fmt.Errorf("events: insert: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Event{}, fmt.Errorf("events: commit: %w", err)
	}
	return event, nil
}

func (s *PostgresStore) Load(ctx context.Context, instanceID string, fromSeq int64) ([]Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT instance_id, event_type, event_data, timestamp, sequence_number FROM events
		 WHERE instance_id = $1 AND sequence_number >= $2 ORDER BY sequence_number ASC`,
		instanceID, fromSeq)
	if err != nil {
		return nil, fmt.Errorf("events: load: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var typ string
		if err := rows.Scan(&e.InstanceID, &typ, &e.Data, &e.Timestamp, &e.Sequence); err != nil {
			return nil, err
		}
		e.Type = Type(typ)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
