/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package review

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/fulmenhq/pyreview/pkg/logger"
)

// Exit codes synthesized by the runner when the process never produced its own
const (
	ExitLaunchFailure = -1
	ExitSignaled      = -1
	ExitTimedOut      = 124
	ExitCanceled      = 130
)

// Command describes one external analyzer invocation
type Command struct {
	Name    string        // binary name or path
	Args    []string      // argv after the binary
	Dir     string        // working directory; empty inherits the caller's
	Stdin   []byte        // optional input piped to the process
	Timeout time.Duration // 0 means only the caller's context bounds the run
}

// CommandResult is the captured outcome of a Command. A non-zero ExitCode is data, not an
// error: analyzers use it to signal findings.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Failure  FailureKind // FailureLaunch, FailureTool (killed by a signal), FailureTimeout, FailureCanceled or FailureNone
	Duration time.Duration
}

// Launched reports whether the process actually started and exited on its own
func (r CommandResult) Launched() bool {
	return r.Failure == FailureNone
}

// CommandRunner executes external commands. Implementations must never panic or return
// errors; every failure is folded into the CommandResult.
type CommandRunner interface {
	Run(ctx context.Context, c Command) CommandResult
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// NewExecRunner returns a CommandRunner backed by real subprocesses
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements CommandRunner
func (ExecRunner) Run(ctx context.Context, c Command) CommandResult {
	start := time.Now()
	rctx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(rctx, c.Name, c.Args...) // #nosec G204 -- argv comes from fixed adapter contracts
	cmd.Dir = c.Dir
	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("running analyzer", logger.String("bin", c.Name), logger.String("dir", c.Dir))
	err := cmd.Run()
	res := CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	// Deadline and cancellation take precedence: the process may have been killed with a
	// signal, which would otherwise look like an ordinary exit.
	if ctxErr := rctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			res.ExitCode = ExitTimedOut
			res.Failure = FailureTimeout
			res.Stderr = appendLine(res.Stderr, fmt.Sprintf("%s timed out after %s", c.Name, res.Duration.Round(time.Millisecond)))
		} else {
			res.ExitCode = ExitCanceled
			res.Failure = FailureCanceled
			res.Stderr = appendLine(res.Stderr, fmt.Sprintf("%s canceled: %v", c.Name, ctxErr))
		}
		return res
	}

	if err == nil {
		return res
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode < 0 {
			// os/exec reports -1 for a process terminated by a signal (OOM kill, SIGKILL)
			res.ExitCode = ExitSignaled
			res.Failure = FailureTool
			res.Stderr = appendLine(res.Stderr, fmt.Sprintf("%s terminated by signal: %v", c.Name, exitErr))
		}
		return res
	}

	res.ExitCode = ExitLaunchFailure
	res.Failure = FailureLaunch
	res.Stderr = appendLine(res.Stderr, fmt.Sprintf("failed to launch %s: %v", c.Name, err))
	return res
}

func appendLine(existing, line string) string {
	if existing == "" {
		return line
	}
	if existing[len(existing)-1] != '\n' {
		existing += "\n"
	}
	return existing + line
}
