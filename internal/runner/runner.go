// Package runner executes a single child process with file-backed
// standard streams and a hard timeout.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a child process when the Runner has none set.
const DefaultTimeout = 10 * time.Second

// Runner executes commands one at a time.
type Runner struct {
	Dir     string        // working directory for children; empty means the current one
	Timeout time.Duration // per-process limit
}

// Command describes one child process.
type Command struct {
	Argv   []string
	Stdin  string // file fed to standard input; empty means no input
	Stdout string // file receiving standard output (created or truncated); empty discards it
}

// Run starts the command and waits for it to exit. Standard error is
// always discarded. A child still running when the timeout expires is
// killed and reported with TimedOut set. An error is returned only when
// the process could not be started at all.
func (r *Runner) Run(ctx context.Context, c Command) (*Result, error) {
	if len(c.Argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Dir = r.Dir
	cmd.Stderr = nil // os/exec connects a nil stream to the null device
	cmd.WaitDelay = time.Second

	if c.Stdin != "" {
		in, err := os.Open(c.Stdin)
		if err != nil {
			return nil, fmt.Errorf("opening stdin for %s: %w", c.Argv[0], err)
		}
		defer in.Close()
		cmd.Stdin = in
	}

	var out io.WriteCloser
	if c.Stdout != "" {
		f, err := os.Create(c.Stdout)
		if err != nil {
			return nil, fmt.Errorf("creating stdout for %s: %w", c.Argv[0], err)
		}
		out = f
		cmd.Stdout = f
	}

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if out != nil {
		if err := out.Close(); err != nil && runErr == nil {
			return nil, fmt.Errorf("flushing stdout of %s: %w", c.Argv[0], err)
		}
	}

	res := &Result{Duration: elapsed}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		// Binary not found, not executable, or another start failure.
		return nil, fmt.Errorf("executing %s: %w", c.Argv[0], runErr)
	}
	return res, nil
}
