package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallTask_CallSubKind_RecognizesWellKnownTransports(t *testing.T) {
	for _, transport := range []string{"http", "openapi", "grpc", "asyncapi"} {
		c := &CallTask{Call: transport}
		assert.Equal(t, transport, c.CallSubKind())
	}
}

func TestCallTask_CallSubKind_AnythingElseIsAFunctionReference(t *testing.T) {
	c := &CallTask{Call: "sendWelcomeEmail"}
	assert.Equal(t, "function", c.CallSubKind())
}

func TestCallTask_Kind(t *testing.T) {
	assert.Equal(t, "call", (&CallTask{}).Kind())
}
