// Package instance models a running Workflow Instance and its Task Execution
// Records (spec.md §3), generalized from the teacher's flat
// types.WorkflowResult/types.TaskResult into history-aware records that carry
// attempt number and replay origin.
package instance

import (
	"time"

	"github.com/google/uuid"
	"github.com/danrygg/wovenflow/internal/model"
)

// Status is the Workflow Instance's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusWaiting   Status = "waiting"
	StatusSuspended Status = "suspended"
	StatusFaulted   Status = "faulted"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether s ends the instance's lifetime.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFaulted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Instance is a single running execution of a Workflow Document.
type Instance struct {
	ID               string
	Namespace        string
	Name             string
	Version          string
	Input            interface{}
	Context          interface{}
	CurrentTaskRef   string
	NextSequence     int64
	Status           Status
	Output           interface{}
	Problem          *model.ProblemDetails
	StartedAt        time.Time
	EndedAt          *time.Time
	History          []TaskExecutionRecord
}

// Record appends a Task Execution Record to the instance's history.
func (i *Instance) Record(rec TaskExecutionRecord) {
	i.History = append(i.History, rec)
}

// New creates a fresh, pending Instance with a new random id.
func New(namespace, name, version string, input interface{}) *Instance {
	return &Instance{
		ID:           uuid.NewString(),
		Namespace:    namespace,
		Name:         name,
		Version:      version,
		Input:        input,
		Status:       StatusPending,
		NextSequence: 1,
		StartedAt:    time.Now().UTC(),
	}
}

// NextSeq returns and consumes the next event sequence number for this
// instance.
func (i *Instance) NextSeq() int64 {
	seq := i.NextSequence
	i.NextSequence++
	return seq
}

// Outcome is the terminal result of a task invocation.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFaulted   Outcome = "faulted"
	OutcomeCancelled Outcome = "cancelled"
)

// TaskExecutionRecord captures one task invocation, including retries and
// loop iterations.
type TaskExecutionRecord struct {
	InstanceID     string
	TaskReference  string
	Attempt        int
	StartedAt      time.Time
	CompletedAt    *time.Time
	InputSnapshot  interface{}
	Output         interface{}
	Outcome        Outcome
	Problem        *model.ProblemDetails
	FromCache      bool
	FromReplay     bool
}

// Descriptor returns the $task environment value the Expression Engine
// exposes while this task is executing.
func (r *TaskExecutionRecord) Descriptor(definition interface{}) map[string]interface{} {
	return map[string]interface{}{
		"name":       r.TaskReference,
		"reference":  r.TaskReference,
		"definition": definition,
	}
}
