// shell.go adapts the teacher's internal/tasks/command/command.go almost
// directly: argument splitting, environment, and exit-code capture,
// retargeted from a CommandConfig task to a model.ShellRunSpec. Without an
// explicit `args` list the command string is split on whitespace, with no
// shell quoting; no working directory is set. Script-string arguments are pre-rendered by the
// scheduler (expression resolution happens before dispatch), so this
// executor only has to turn resolved strings into an *exec.Cmd.
package dispatcher

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/danrygg/wovenflow/internal/model"
)

// ShellExecutor runs Run: shell tasks as a local subprocess.
type ShellExecutor struct{}

func NewShellExecutor() *ShellExecutor { return &ShellExecutor{} }

func (e *ShellExecutor) Run(ctx context.Context, spec *model.RunSpec, dctx DispatchContext) (interface{}, error) {
	if spec.Shell == nil {
		return nil, fmt.Errorf("shell: run spec missing shell block")
	}
	s := spec.Shell

	var args []string
	if raw, ok := s.Arguments["args"]; ok {
		if list, ok := raw.([]interface{}); ok {
			for _, v := range list {
				args = append(args, fmt.Sprintf("%v", v))
			}
		}
	}

	var cmd *exec.Cmd
	if len(args) > 0 {
		cmd = exec.CommandContext(ctx, s.Command, args...)
	} else {
		parts := strings.Fields(s.Command)
		if len(parts) == 0 {
			return nil, fmt.Errorf("shell: empty command")
		}
		cmd = exec.CommandContext(ctx, parts[0], parts[1:]...)
	}

	cmd.Env = os.Environ()
	for k, v := range s.Environment {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	exitCode := 0
	if runErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("shell: command timed out: %w", runErr)
		}
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
				exitCode = status.ExitStatus()
			} else {
				exitCode = 1
			}
		} else {
			return nil, fmt.Errorf("shell: failed to execute %q: %w", s.Command, runErr)
		}
	}

	if dctx.Logger != nil {
		dctx.Logger.Debug("shell run completed").Str("command", s.Command).Int("exitCode", exitCode).Send()
	}

	return map[string]interface{}{
		"stdout":   stdout.String(),
		"stderr":   stderr.String(),
		"exitCode": exitCode,
	}, nil
}
