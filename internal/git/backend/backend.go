// Package backend runs the git executable on behalf of a repository.
//
// A Runner is resolved once (binary lookup, log stream, executor) and shared
// by every repository built on top of it. Each invocation builds its argument
// vector from optional entries, routes stdout/stderr to one of a few
// destinations and turns a non-zero exit status into a *CommandError.
package backend

import (
	"context"
	"errors"
	"io"
	"os/exec"
)

// Process describes a single child process to start.
type Process struct {
	Path   string
	Args   []string
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// Executor starts a process and waits for it to exit.
//
// The returned exit code is only meaningful when err is nil; err is reserved
// for failures to run the process at all.
type Executor interface {
	Execute(ctx context.Context, p Process) (exitCode int, err error)
}

// ExecExecutor runs processes with os/exec.
type ExecExecutor struct{}

func (ExecExecutor) Execute(ctx context.Context, p Process) (int, error) {
	cmd := exec.CommandContext(ctx, p.Path, p.Args...)
	cmd.Dir = p.Dir
	cmd.Stdout = p.Stdout
	cmd.Stderr = p.Stderr
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// -1 when the child was killed by a signal.
			return exitErr.ExitCode(), nil
		}
		return -1, err
	}
	return 0, nil
}
