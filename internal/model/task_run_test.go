package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunSpec_SubKind_ReportsWhicheverTargetIsSet(t *testing.T) {
	assert.Equal(t, "container", RunSpec{Container: &ContainerRunSpec{Image: "alpine"}}.SubKind())
	assert.Equal(t, "script", RunSpec{Script: &ScriptRunSpec{Language: "python"}}.SubKind())
	assert.Equal(t, "shell", RunSpec{Shell: &ShellRunSpec{Command: "echo hi"}}.SubKind())
	assert.Equal(t, "workflow", RunSpec{Workflow: &WorkflowRunSpec{Name: "nested"}}.SubKind())
}

func TestRunSpec_SubKind_EmptyWhenNoTargetSet(t *testing.T) {
	assert.Equal(t, "", RunSpec{}.SubKind())
}

func TestRunTask_Kind(t *testing.T) {
	assert.Equal(t, "run", (&RunTask{}).Kind())
}
