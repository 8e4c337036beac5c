/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package review

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fulmenhq/pyreview/pkg/logger"
)

var wouldReformatPattern = regexp.MustCompile(`would reformat\s+(.*)`)

// FormatChecker runs black in check-only mode
type FormatChecker struct {
	runner CommandRunner
	tool   ToolConfig
}

// NewFormatChecker creates a formatting-check adapter
func NewFormatChecker(runner CommandRunner, tool ToolConfig) *FormatChecker {
	return &FormatChecker{runner: runner, tool: tool}
}

// Check returns the reasons target needs reformatting; an empty list means compliant.
// Tool failures are reported as issue strings, never as errors.
func (f *FormatChecker) Check(ctx context.Context, target string) ([]string, ToolRun) {
	run := ToolRun{Check: CheckFormatting, Tool: f.tool.Bin, Status: "success"}
	res := f.runner.Run(ctx, Command{
		Name:    f.tool.Bin,
		Args:    []string{"--check", "--quiet", filepath.Base(target)},
		Dir:     filepath.Dir(target),
		Timeout: f.tool.Timeout,
	})
	run.ExitCode = res.ExitCode
	run.Duration = res.Duration

	issues := classifyBlackOutcome(res)
	switch {
	case res.Failure != FailureNone:
		run.fail(res.Failure, res.Stderr)
	case res.ExitCode > 1:
		run.fail(FailureTool, res.Stderr)
	}
	logger.Debug("formatting check finished", logger.Int("exit_code", res.ExitCode), logger.Int("issues", len(issues)))
	return issues, run
}

// classifyBlackOutcome maps black's exit code contract {0, 1, >1} to issue strings
func classifyBlackOutcome(res CommandResult) []string {
	stderr := strings.TrimSpace(res.Stderr)
	switch {
	case res.ExitCode == 0 && res.Failure == FailureNone:
		return []string{}
	case res.ExitCode == 1:
		if stderr == "" {
			return []string{"File requires reformatting by Black (no specific details from stderr)."}
		}
		if wouldReformatPattern.MatchString(stderr) {
			return []string{"File requires reformatting by Black."}
		}
		return []string{stderr}
	default:
		return []string{fmt.Sprintf("Black encountered an error: %s", stderr)}
	}
}

// ToolError reports an analyzer that could not complete a direct (non-review) invocation
type ToolError struct {
	Tool     string
	Kind     FailureKind
	ExitCode int
	Detail   string
}

func (e *ToolError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s failed (%s, exit %d)", e.Tool, e.Kind, e.ExitCode)
	}
	return fmt.Sprintf("%s failed (%s, exit %d): %s", e.Tool, e.Kind, e.ExitCode, e.Detail)
}

// Format pipes source through `black --quiet -` and returns the reformatted code
func (f *FormatChecker) Format(ctx context.Context, source string) (string, error) {
	res := f.runner.Run(ctx, Command{
		Name:    f.tool.Bin,
		Args:    []string{"--quiet", "-"},
		Stdin:   []byte(source),
		Timeout: f.tool.Timeout,
	})
	if res.Failure != FailureNone {
		return "", &ToolError{Tool: f.tool.Bin, Kind: res.Failure, ExitCode: res.ExitCode, Detail: strings.TrimSpace(res.Stderr)}
	}
	if res.ExitCode != 0 {
		return "", &ToolError{Tool: f.tool.Bin, Kind: FailureTool, ExitCode: res.ExitCode, Detail: strings.TrimSpace(res.Stderr)}
	}
	logger.Debug("formatted source", logger.Int("bytes_in", len(source)), logger.Int("bytes_out", len(res.Stdout)))
	return res.Stdout, nil
}
