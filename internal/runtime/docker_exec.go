package runtime

import (
	"bytes"
	"context"
	"io"
	"time"

	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/pkg/stdcopy"

	"sandboxcore/internal/apierr"
)

// Exec implements Adapter.Exec over ContainerExecCreate/Attach/Start,
// streaming combined stdout/stderr until the process exits or timeout
// elapses. On timeout the caller is responsible for destroying the
// sandbox (spec.md §4.A).
func (d *DockerAdapter) Exec(ctx context.Context, sb *Sandbox, command []string, timeout time.Duration, cwd string, stdin []byte) (*ExecResult, error) {
	execCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	execCfg := dockertypes.ExecConfig{
		Cmd:          command,
		WorkingDir:   cwd,
		AttachStdout: true,
		AttachStderr: true,
		AttachStdin:  len(stdin) > 0,
		Tty:          false,
	}

	created, err := d.cli.ContainerExecCreate(execCtx, sb.ID, execCfg)
	if err != nil {
		return nil, apierr.NewInternalError(err)
	}

	attach, err := d.cli.ContainerExecAttach(execCtx, created.ID, dockertypes.ExecStartCheck{Tty: false})
	if err != nil {
		return nil, apierr.NewInternalError(err)
	}
	defer attach.Close()

	if len(stdin) > 0 {
		if _, err := attach.Conn.Write(stdin); err != nil {
			return nil, apierr.NewInternalError(err)
		}
		if cw, ok := interface{}(attach.Conn).(interface{ CloseWrite() error }); ok {
			_ = cw.CloseWrite()
		}
	}

	var stdout, stderr bytes.Buffer
	copyDone := make(chan error, 1)
	go func() {
		_, copyErr := stdcopy.StdCopy(&stdout, &stderr, attach.Reader)
		copyDone <- copyErr
	}()

	select {
	case <-execCtx.Done():
		return &ExecResult{ExitCode: -1, Stdout: stdout.Bytes(), Stderr: stderr.Bytes()},
			apierr.NewTimeout("exec")
	case copyErr := <-copyDone:
		if copyErr != nil && copyErr != io.EOF {
			return &ExecResult{ExitCode: -1, Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, apierr.NewInternalError(copyErr)
		}
	}

	inspect, err := d.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return &ExecResult{ExitCode: -1, Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, apierr.NewInternalError(err)
	}

	return &ExecResult{
		ExitCode: inspect.ExitCode,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}, nil
}
