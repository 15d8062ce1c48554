// container.go runs Run: container tasks via the Docker Engine API, the
// teacher pack's only container-orchestration dependency
// (github.com/docker/docker client). Grounded on the shell executor's
// lifecycle shape (start, wait, capture, map exit code) but driven through
// the Docker client instead of os/exec.
package dispatcher

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/danrygg/wovenflow/internal/model"
)

// ContainerExecutor runs Run: container tasks against a Docker daemon.
type ContainerExecutor struct {
	cli *client.Client
}

// NewContainerExecutor dials the Docker daemon using the ambient environment
// (DOCKER_HOST, etc.), matching client.FromEnv in every Docker SDK example in
// the pack.
func NewContainerExecutor() (*ContainerExecutor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("dispatcher: docker client: %w", err)
	}
	return &ContainerExecutor{cli: cli}, nil
}

func (e *ContainerExecutor) Run(ctx context.Context, spec *model.RunSpec, dctx DispatchContext) (interface{}, error) {
	if spec.Container == nil {
		return nil, fmt.Errorf("container: run spec missing container block")
	}
	c := spec.Container

	var cmd []string
	if c.Command != "" {
		cmd = []string{"/bin/sh", "-c", c.Command}
	}

	var env []string
	for k, v := range c.Environment {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	created, err := e.cli.ContainerCreate(ctx, &container.Config{
		Image: c.Image,
		Cmd:   cmd,
		Env:   env,
		Tty:   false,
	}, nil, nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("container: create: %w", err)
	}
	defer func() {
		_ = e.cli.ContainerRemove(context.Background(), created.ID, container.RemoveOptions{Force: true})
	}()

	if err := e.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("container: start: %w", err)
	}

	statusCh, errCh := e.cli.ContainerWait(ctx, created.ID, container.WaitConditionNotRunning)
	var exitCode int64
	select {
	case err := <-errCh:
		if err != nil {
			return nil, fmt.Errorf("container: wait: %w", err)
		}
	case status := <-statusCh:
		exitCode = status.StatusCode
	}

	logs, err := e.cli.ContainerLogs(ctx, created.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return nil, fmt.Errorf("container: logs: %w", err)
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, io.LimitReader(logs, 1<<20)); err != nil && err != io.EOF {
		return nil, fmt.Errorf("container: demux logs: %w", err)
	}

	if dctx.Logger != nil {
		dctx.Logger.Debug("container run completed").Str("image", c.Image).Int64("exitCode", exitCode).Send()
	}

	return map[string]interface{}{
		"stdout":   stdout.String(),
		"stderr":   stderr.String(),
		"exitCode": exitCode,
	}, nil
}
