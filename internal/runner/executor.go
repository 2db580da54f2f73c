package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"k8s-agent/internal/command"

	"github.com/rs/zerolog/log"
)

// ErrorPrefix starts the text of every ExecutionError.
const ErrorPrefix = "Error executing command: "

var ErrEmptyCommand = errors.New("empty command")

// Shell hands a whole command line to an interpreter, e.g. /bin/sh -c.
// Pipes, redirects, ; and $() in the line are interpreted, so the caller
// must only pass lines it is willing to have the shell expand.
type Shell struct {
	Path string
	Flag string
}

var DefaultShell = Shell{Path: "/bin/sh", Flag: "-c"}

func (s Shell) command(ctx context.Context, line string) *exec.Cmd {
	flag := s.Flag
	if flag == "" {
		flag = "-c"
	}
	return exec.CommandContext(ctx, s.Path, flag, line)
}

type Options struct {
	Shell Shell
	// Timeout bounds a single execution. Zero means wait for the process
	// however long it takes.
	Timeout time.Duration
}

// Result of one execution
type Result struct {
	Command    string
	Stdout     string
	Stderr     string
	ExitCode   int
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
}

// ExecutionError reports a command that exited non-zero, could not be
// started, or was killed by the timeout. Stderr is kept verbatim.
type ExecutionError struct {
	Command  string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *ExecutionError) Error() string { return ErrorPrefix + e.Stderr }

func (e *ExecutionError) Unwrap() error { return e.Err }

// Executor runs validated commands as child processes. It keeps no state
// between calls and is safe for concurrent use.
type Executor struct {
	shell   Shell
	timeout time.Duration
}

func New(opts Options) *Executor {
	shell := opts.Shell
	if shell.Path == "" {
		shell = DefaultShell
	}
	return &Executor{shell: shell, timeout: opts.Timeout}
}

func (e *Executor) Shell() Shell { return e.shell }

func (e *Executor) Timeout() time.Duration { return e.timeout }

// Execute runs cmd through the shell and waits for it to exit. Cancelling
// ctx does not stop a started process; only the configured timeout does.
func (e *Executor) Execute(ctx context.Context, cmd command.Command) (Result, error) {
	line := cmd.String()
	if line == "" {
		return Result{}, ErrEmptyCommand
	}

	runCtx := context.WithoutCancel(ctx)
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, e.timeout)
		defer cancel()
	}

	c := e.shell.command(runCtx, line)
	ownProcessGroup(c)
	if e.timeout > 0 {
		c.WaitDelay = time.Second
	}

	stdout, stderr := &strings.Builder{}, &strings.Builder{}
	c.Stdout = stdout
	c.Stderr = stderr

	start := time.Now()
	res := Result{Command: line, StartedAt: start}

	err := c.Run()
	if errors.Is(err, exec.ErrWaitDelay) {
		// exited 0 but a background child kept the pipes open
		err = nil
	}

	res.FinishedAt = time.Now()
	res.Duration = res.FinishedAt.Sub(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	if err == nil {
		logFinished(res)
		return res, nil
	}

	execErr := &ExecutionError{
		Command:  line,
		Stderr:   res.Stderr,
		ExitCode: -1,
		Err:      err,
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		execErr.Err = fmt.Errorf("timed out after %s: %w", e.timeout, context.DeadlineExceeded)
		execErr.Stderr = res.Stderr + fmt.Sprintf("command timed out after %s", e.timeout)
	case errors.As(err, &exitErr):
		execErr.ExitCode = exitErr.ExitCode()
	default:
		execErr.Err = fmt.Errorf("start: %w", err)
		execErr.Stderr = err.Error()
	}
	res.ExitCode = execErr.ExitCode

	logFinished(res)
	return res, execErr
}

func logFinished(res Result) {
	log.Debug().
		Str("command", res.Command).
		Int("exit_code", res.ExitCode).
		Dur("duration", res.Duration).
		Int("stdout_bytes", len(res.Stdout)).
		Int("stderr_bytes", len(res.Stderr)).
		Msg("command finished")
}
