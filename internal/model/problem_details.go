package model

import "fmt"

// ProblemDetails follows RFC 7807: it is both a task outcome on failure and
// the payload carried by a Raise task. Kind mirrors spec.md §7's taxonomy and
// is carried alongside (not instead of) the RFC fields so filters can match
// on it without parsing the `type` URI.
type ProblemDetails struct {
	Type     string    `yaml:"type" json:"type"`
	Status   int       `yaml:"status" json:"status"`
	Title    string    `yaml:"title" json:"title"`
	Detail   string    `yaml:"detail,omitempty" json:"detail,omitempty"`
	Instance string    `yaml:"instance,omitempty" json:"instance,omitempty"`
	Kind     ErrorKind `yaml:"-" json:"-"`
}

// ErrorKind is the taxonomy from spec.md §7, used by Try/catch `with.type`
// matching and by the scheduler when deciding whether an error is retryable.
type ErrorKind string

const (
	ErrorValidation     ErrorKind = "validation"
	ErrorCommunication  ErrorKind = "communication"
	ErrorTimeout        ErrorKind = "timeout"
	ErrorAuthentication ErrorKind = "authentication"
	ErrorAuthorization  ErrorKind = "authorization"
	ErrorRuntime        ErrorKind = "runtime"
	ErrorUserRaised     ErrorKind = "user-raised"
	ErrorCancellation   ErrorKind = "cancellation"
)

const problemTypeBase = "https://serverlessworkflow.io/spec/1.0.0/errors"

// NewProblemDetails builds a ProblemDetails for a well-known error kind,
// deriving its `type` URI suffix the way the DSL's reference errors do.
func NewProblemDetails(kind ErrorKind, status int, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:     fmt.Sprintf("%s/%s", problemTypeBase, kind),
		Status:   status,
		Title:    title,
		Detail:   detail,
		Instance: instance,
		Kind:     kind,
	}
}

func (p *ProblemDetails) Error() string {
	if p == nil {
		return ""
	}
	if p.Detail != "" {
		return fmt.Sprintf("%s: %s", p.Title, p.Detail)
	}
	return p.Title
}
