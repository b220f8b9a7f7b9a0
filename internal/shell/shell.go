// Package shell runs user-requested commands from the chat loop.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"handoff/internal/logging"
)

// DefaultTimeout bounds a single command run.
const DefaultTimeout = 30 * time.Second

// Result holds the outcome of one command execution.
type Result struct {
	Command    string
	Output     string
	ExitCode   int
	DurationMs int64
}

// Runner executes shell commands with a timeout.
type Runner struct {
	timeout time.Duration
	workDir string
}

// NewRunner creates a runner executing in workDir.
func NewRunner(workDir string, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{timeout: timeout, workDir: workDir}
}

// Run executes command through the shell and returns combined output. A
// non-zero exit is reported in the Result, not as an error; errors are
// reserved for failures to run the command at all.
func (r *Runner) Run(ctx context.Context, command string) (Result, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{}, fmt.Errorf("empty command")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = r.workDir

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	res := Result{
		Command:    command,
		Output:     buf.String(),
		DurationMs: time.Since(start).Milliseconds(),
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
			logging.Shell("command exited %d: %s", res.ExitCode, command)
			return res, nil
		}
		return res, fmt.Errorf("failed to run command: %w", err)
	}

	logging.Shell("command ok (%dms): %s", res.DurationMs, command)
	return res, nil
}
