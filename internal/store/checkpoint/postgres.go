package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Save(ctx context.Context, cp Checkpoint) error {
	if cp.Timestamp.IsZero() {
		cp.Timestamp = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO checkpoints (instance_id, current_task, data, timestamp) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (instance_id) DO UPDATE SET current_task = EXCLUDED.current_task, data = EXCLUDED.data, timestamp = EXCLUDED.timestamp`,
		cp.InstanceID, cp.CurrentTaskRef, cp.ContextSnapshot, cp.Timestamp)
	if err != nil {
		return fmt.Errorf("checkpoint: save: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, instanceID string) (*Checkpoint, error) {
	var cp Checkpoint
	err := s.pool.QueryRow(ctx,
		`SELECT instance_id, current_task, data, timestamp FROM checkpoints WHERE instance_id = $1`, instanceID).
		Scan(&cp.InstanceID, &cp.CurrentTaskRef, &cp.ContextSnapshot, &cp.Timestamp)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: load: %w", err)
	}
	return &cp, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
