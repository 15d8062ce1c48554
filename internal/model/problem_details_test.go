package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewProblemDetails_DerivesTypeURIFromKind(t *testing.T) {
	p := NewProblemDetails(ErrorTimeout, 504, "Timeout", "call exceeded its deadline", "/do/1")
	assert.Equal(t, "https://serverlessworkflow.io/spec/1.0.0/errors/timeout", p.Type)
	assert.Equal(t, ErrorTimeout, p.Kind)
	assert.Equal(t, 504, p.Status)
	assert.Equal(t, "/do/1", p.Instance)
}

func TestProblemDetails_Error_IncludesDetailWhenPresent(t *testing.T) {
	p := NewProblemDetails(ErrorRuntime, 500, "Runtime Error", "nil pointer", "")
	assert.Equal(t, "Runtime Error: nil pointer", p.Error())
}

func TestProblemDetails_Error_TitleOnlyWhenNoDetail(t *testing.T) {
	p := NewProblemDetails(ErrorValidation, 400, "Validation Error", "", "")
	assert.Equal(t, "Validation Error", p.Error())
}

func TestProblemDetails_Error_NilReceiverIsEmptyString(t *testing.T) {
	var p *ProblemDetails
	assert.Equal(t, "", p.Error())
}
