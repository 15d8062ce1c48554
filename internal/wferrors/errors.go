// Package wferrors defines the engine's tagged error family, matching the
// shape of the teacher's pkg/types/errors.go: every error type except
// CancellationError carries an optional Cause and supports errors.Unwrap;
// CancellationError carries only the instance id. model.ProblemDetails
// is the RFC 7807 payload threaded through these errors so dispatcher and
// scheduler code never has to re-derive an error kind from a Go type switch
// alone.
package wferrors

import (
	"fmt"

	"github.com/danrygg/wovenflow/internal/model"
)

// WorkflowError is returned when an entire workflow instance cannot proceed:
// it always carries the ProblemDetails that will be emitted as WorkflowFailed.
type WorkflowError struct {
	InstanceID string
	Problem    *model.ProblemDetails
	Cause      error
}

func NewWorkflowError(instanceID string, problem *model.ProblemDetails, cause error) *WorkflowError {
	return &WorkflowError{InstanceID: instanceID, Problem: problem, Cause: cause}
}

func (e *WorkflowError) Error() string {
	if e.Problem != nil {
		return fmt.Sprintf("workflow %s: %s", e.InstanceID, e.Problem.Error())
	}
	return fmt.Sprintf("workflow %s failed", e.InstanceID)
}

func (e *WorkflowError) Unwrap() error { return e.Cause }

// TaskError is returned for a single task invocation failure, before it has
// been offered to an enclosing Try.
type TaskError struct {
	TaskReference string
	Problem       *model.ProblemDetails
	Cause         error
}

func NewTaskError(reference string, problem *model.ProblemDetails, cause error) *TaskError {
	return &TaskError{TaskReference: reference, Problem: problem, Cause: cause}
}

func (e *TaskError) Error() string {
	if e.Problem != nil {
		return fmt.Sprintf("task %s: %s", e.TaskReference, e.Problem.Error())
	}
	return fmt.Sprintf("task %s failed", e.TaskReference)
}

func (e *TaskError) Unwrap() error { return e.Cause }

// ValidationError is produced by the Graph Validator or by schema checks at
// task input/output boundaries.
type ValidationError struct {
	Path    string
	Message string
	Cause   error
}

func NewValidationError(path, message string, cause error) *ValidationError {
	return &ValidationError{Path: path, Message: message, Cause: cause}
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("validation error at %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

func (e *ValidationError) Problem() *model.ProblemDetails {
	return model.NewProblemDetails(model.ErrorValidation, 400, "Validation Error", e.Message, e.Path)
}

// ParseError is produced by the YAML/JSON loader (an external collaborator)
// and surfaced through the registry/CLI boundary.
type ParseError struct {
	Source string
	Cause  error
}

func NewParseError(source string, cause error) *ParseError {
	return &ParseError{Source: source, Cause: cause}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Source, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// DependencyError is produced by the Graph Validator when a `then` target,
// switch branch, or `use` reference does not resolve.
type DependencyError struct {
	TaskReference string
	Target        string
	Cause         error
}

func NewDependencyError(taskReference, target string, cause error) *DependencyError {
	return &DependencyError{TaskReference: taskReference, Target: target, Cause: cause}
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("task %s references unresolved target %q", e.TaskReference, e.Target)
}

func (e *DependencyError) Unwrap() error { return e.Cause }

// RetryableError marks an underlying error as eligible for the Scheduler's
// retry policy handling; it is used by dispatcher executors to distinguish
// transient communication failures from permanent ones.
type RetryableError struct {
	Cause error
}

func NewRetryableError(cause error) *RetryableError {
	return &RetryableError{Cause: cause}
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Cause)
}

func (e *RetryableError) Unwrap() error { return e.Cause }

// IsRetryable reports whether err (or something it wraps) is a RetryableError.
func IsRetryable(err error) bool {
	for err != nil {
		if _, ok := err.(*RetryableError); ok {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// CancellationError marks that the instance (or a suspension point within
// it) was cancelled.
type CancellationError struct {
	InstanceID string
}

func NewCancellationError(instanceID string) *CancellationError {
	return &CancellationError{InstanceID: instanceID}
}

func (e *CancellationError) Error() string {
	return fmt.Sprintf("instance %s cancelled", e.InstanceID)
}

func (e *CancellationError) Problem() *model.ProblemDetails {
	return model.NewProblemDetails(model.ErrorCancellation, 499, "Cancelled", "", "/instance/"+e.InstanceID)
}
