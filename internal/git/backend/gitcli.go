package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

// ErrGitNotFound is returned by NewRunner when the git executable cannot be
// located.
var ErrGitNotFound = errors.New("cannot find git")

// Config configures a Runner. Every field is optional.
type Config struct {
	// Binary is the git executable, either a path or a name looked up in
	// PATH. Defaults to "git".
	Binary string
	// LogStream receives output of commands run with LogStream(). Defaults to
	// os.Stdout.
	LogStream io.Writer
	Executor  Executor
	LookPath  func(file string) (string, error)
	Logger    *slog.Logger
}

// Runner invokes git. The binary path is resolved once by NewRunner and never
// re-resolved; a Runner is safe for concurrent use.
type Runner struct {
	binary    string
	logStream io.Writer
	exec      Executor
	logger    *slog.Logger

	versionOnce sync.Once
	version     versionInfo
}

func NewRunner(cfg Config) (*Runner, error) {
	lookPath := cfg.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	name := cfg.Binary
	if name == "" {
		name = "git"
	}
	path, err := lookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%w (%s): %v", ErrGitNotFound, name, err)
	}
	r := &Runner{
		binary:    filepath.ToSlash(path),
		logStream: cfg.LogStream,
		exec:      cfg.Executor,
		logger:    cfg.Logger,
	}
	if r.logStream == nil {
		r.logStream = os.Stdout
	}
	if r.exec == nil {
		r.exec = ExecExecutor{}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r, nil
}

// Binary returns the resolved git executable.
func (r *Runner) Binary() string {
	return r.binary
}

// Run executes c with dir as the working directory.
//
// A non-zero exit status returns a *CommandError together with the Result.
func (r *Runner) Run(ctx context.Context, dir string, c Cmd) (*Result, error) {
	args := BuildArgs(c.Args)
	res := &Result{Args: append([]string{r.binary}, args...)}
	image := CommandLine(res.Args)

	var stdout, stderr bytes.Buffer
	p := Process{
		Path:   r.binary,
		Args:   args,
		Dir:    dir,
		Stdout: r.destination(c.Stdout, &stdout),
		Stderr: r.destination(c.Stderr, &stderr),
	}
	r.logger.Debug("git command",
		slog.String("cmd", image),
		slog.String("dir", dir),
		slog.String("stdout", c.Stdout.String()),
	)
	code, err := r.exec.Execute(ctx, p)
	res.ExitCode = code
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	if err != nil {
		return res, fmt.Errorf("%s: %w", image, err)
	}
	if code != 0 {
		return res, &CommandError{Command: image, ExitCode: code, Result: res}
	}
	return res, nil
}

func (r *Runner) destination(o Output, buf *bytes.Buffer) io.Writer {
	switch o.kind {
	case outputDiscard:
		return nil
	case outputCapture:
		return buf
	case outputWriter:
		return o.w
	default:
		return r.logStream
	}
}
