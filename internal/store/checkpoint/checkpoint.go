// Package checkpoint implements the Checkpoint Store (spec.md §4.6): the
// latest materialized {current_task_reference, context_snapshot, timestamp}
// per instance, written opportunistically after every task completion.
package checkpoint

import (
	"context"
	"time"
)

// Checkpoint is the latest replayable snapshot of one instance.
type Checkpoint struct {
	InstanceID      string      `db:"instance_id" json:"instance_id"`
	CurrentTaskRef  string      `db:"current_task" json:"current_task"`
	ContextSnapshot interface{} `db:"-" json:"context_snapshot"`
	Timestamp       time.Time   `db:"timestamp" json:"timestamp"`
}

// Store is the Checkpoint Store contract.
type Store interface {
	Save(ctx context.Context, cp Checkpoint) error
	Load(ctx context.Context, instanceID string) (*Checkpoint, error)
	Close() error
}
