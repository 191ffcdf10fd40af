package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/atepart/rns-release/internal/logger"
)

// Command describes a single external tool invocation.
type Command struct {
	// Name is the executable to run.
	Name string
	// Args are passed verbatim.
	Args []string
	// Dir is the working directory. Empty means the current one.
	Dir string
	// Env is appended to the inherited environment.
	Env []string
}

// String renders the command line for logs and errors.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner executes external commands.
type Runner interface {
	// Run executes the command streaming its output to the configured writers.
	Run(ctx context.Context, cmd Command) error
	// Output executes the command and returns its standard output.
	Output(ctx context.Context, cmd Command) ([]byte, error)
}

// CommandError reports a failed external command.
type CommandError struct {
	// Command is the failed command line.
	Command string
	// ExitCode is the tool's exit status, or -1 if it did not start or was killed.
	ExitCode int
	// Stderr holds captured standard error, when available.
	Stderr string
	// Err is the underlying error.
	Err error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
	if e.ExitCode < 0 {
		msg = fmt.Sprintf("%s: %v", e.Command, e.Err)
	}

	if e.Stderr != "" {
		msg += ": " + strings.TrimSpace(e.Stderr)
	}

	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Stdout receives the output of Run. Defaults to os.Stderr so that
	// tool chatter never mixes with a command's own stdout.
	Stdout io.Writer
	// Stderr receives the error output of Run. Defaults to os.Stderr.
	Stderr io.Writer
}

// NewExecRunner returns a runner streaming tool output to stderr.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		Stdout: os.Stderr,
		Stderr: os.Stderr,
	}
}

// Run executes cmd and waits for it to finish.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	logger.DebugKV(ctx, "Running command", "command", cmd.String(), "dir", cmd.Dir)

	c := r.command(ctx, cmd)
	c.Stdout = orStderr(r.Stdout)
	c.Stderr = orStderr(r.Stderr)

	if err := c.Run(); err != nil {
		return newCommandError(cmd, err, "")
	}

	return nil
}

// Output executes cmd and returns its standard output.
func (r *ExecRunner) Output(ctx context.Context, cmd Command) ([]byte, error) {
	logger.DebugKV(ctx, "Running command", "command", cmd.String(), "dir", cmd.Dir)

	var stderr bytes.Buffer

	c := r.command(ctx, cmd)
	c.Stderr = &stderr

	out, err := c.Output()
	if err != nil {
		return out, newCommandError(cmd, err, stderr.String())
	}

	return out, nil
}

func (r *ExecRunner) command(ctx context.Context, cmd Command) *exec.Cmd {
	//nolint:gosec // The release tools exist to run these commands.
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir

	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	return c
}

func orStderr(w io.Writer) io.Writer {
	if w == nil {
		return os.Stderr
	}

	return w
}

func newCommandError(cmd Command, err error, stderr string) *CommandError {
	exitCode := -1

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}

	return &CommandError{
		Command:  cmd.String(),
		ExitCode: exitCode,
		Stderr:   stderr,
		Err:      err,
	}
}

// LookPath reports whether name resolves to an executable on PATH.
func LookPath(name string) bool {
	_, err := exec.LookPath(name)

	return err == nil
}
