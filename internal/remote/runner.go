package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Result is the normalized outcome of one command execution.
type Result struct {
	// Stdout is the captured standard output.
	Stdout []byte
	// Stderr is the captured standard error.
	Stderr []byte
	// ExitCode is the command exit status. Zero means success.
	ExitCode int
}

// Ok reports whether the command exited successfully.
func (r *Result) Ok() bool {
	return r.ExitCode == 0
}

// Runner executes shell commands on a target host.
// An error is returned only for transport or session failures; a command
// that ran and exited non-zero is reported through Result.ExitCode so that
// callers can treat probes (test -d, SELECT 1) as data rather than failure.
type Runner interface {
	Run(ctx context.Context, command string) (*Result, error)
	RunStreaming(ctx context.Context, command string, stdout, stderr io.Writer) error
}

// errCommandFailed is the sentinel wrapped by RunChecked failures.
var errCommandFailed = errors.New("command failed")

// RunChecked executes a command and converts a non-zero exit into an error
// carrying the command text, exit code and trimmed stderr.
func RunChecked(ctx context.Context, runner Runner, command string) (*Result, error) {
	result, err := runner.Run(ctx, command)
	if err != nil {
		return nil, fmt.Errorf("run %q: %w", command, err)
	}

	if !result.Ok() {
		return result, fmt.Errorf(
			"%w: cmd=%q exit=%d stderr=%q",
			errCommandFailed,
			command,
			result.ExitCode,
			strings.TrimSpace(string(result.Stderr)),
		)
	}

	return result, nil
}

// Command renders a command name and arguments into a single shell line,
// quoting every word so arbitrary values survive the remote shell.
func Command(name string, args ...string) string {
	if len(args) == 0 {
		return shellEscape(name)
	}

	var builder strings.Builder

	builder.WriteString(shellEscape(name))

	for _, arg := range args {
		builder.WriteByte(' ')
		builder.WriteString(shellEscape(arg))
	}

	return builder.String()
}

// shellEscape single-quotes a value for POSIX shells.
func shellEscape(value string) string {
	if value == "" {
		return "''"
	}

	if !strings.ContainsAny(value, " \t\n\"'\\$&|;<>()*?[]{}~#`!") {
		return value
	}

	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

// ExecRunner executes commands on the local host through /bin/sh.
// It backs tests and local dry runs with the same contract as SSHRunner.
type ExecRunner struct{}

// Run executes the command locally and captures its output.
func (ExecRunner) Run(ctx context.Context, command string) (*Result, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	if err != nil {
		return nil, fmt.Errorf("exec: %w", err)
	}

	return result, nil
}

// RunStreaming executes the command locally, wiring output to the provided writers.
func (ExecRunner) RunStreaming(ctx context.Context, command string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)

	if stdout != nil {
		cmd.Stdout = stdout
	}

	if stderr != nil {
		cmd.Stderr = stderr
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("exec: %w", err)
	}

	return nil
}
