// Package agentexec runs allowlisted host commands on behalf of tool
// handlers. Policy evaluation happens in the caller; this package only
// handles process lifecycle, output capture and timeouts.
package agentexec

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"
)

// Result captures the outcome of one command execution.
type Result struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// maxCaptureBytes bounds stdout/stderr capture so a chatty command cannot
// blow up the model context.
const maxCaptureBytes = 256 * 1024

// DefaultTimeout applies when the caller's context carries no deadline.
const DefaultTimeout = 30 * time.Second

// Runner executes commands directly on the local host.
type Runner struct {
	// Timeout applies per command when the context has no earlier deadline.
	Timeout time.Duration
}

// NewRunner returns a Runner with the default timeout.
func NewRunner() *Runner {
	return &Runner{Timeout: DefaultTimeout}
}

// Run executes command with args, never via a shell, and returns captured
// output. A non-zero exit is not an error; callers read ExitCode. The error
// return is reserved for failures to run at all (missing binary, timeout).
func (r *Runner) Run(ctx context.Context, command string, args []string) (Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdout, remaining: maxCaptureBytes}
	cmd.Stderr = &limitedWriter{w: &stderr, remaining: maxCaptureBytes}

	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		if ctx.Err() != nil {
			log.Warn().Str("command", command).Dur("after", res.Duration).Msg("Command timed out")
			return res, ctx.Err()
		}
		return res, err
	}
	return res, nil
}

// limitedWriter discards bytes past its budget but keeps counting the write
// as successful so the child process never sees a broken pipe.
type limitedWriter struct {
	w         *bytes.Buffer
	remaining int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if l.remaining > 0 {
		keep := p
		if len(keep) > l.remaining {
			keep = keep[:l.remaining]
		}
		l.w.Write(keep)
		l.remaining -= len(keep)
	}
	return n, nil
}
