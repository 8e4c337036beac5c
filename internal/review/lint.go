/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/fulmenhq/pyreview/pkg/logger"
)

// Symbols for issues the lint adapter synthesizes itself
const (
	SymbolCommandError   = "command-error"
	SymbolCommandTimeout = "command-timeout"
	SymbolJSONParseError = "json-parse-error"
	SymbolPylintStderr   = "pylint-stderr"
	SymbolNativeScore    = "native-pylint-score"
)

var nativeRatingPattern = regexp.MustCompile(`Your code has been rated at ([-0-9.]+)/10`)

type pylintMessage struct {
	Type    string `json:"type"`
	Symbol  string `json:"symbol"`
	Message string `json:"message"`
	Line    *int   `json:"line"`
}

// LintResult is the outcome of one lint adapter invocation. Score is never ScoreError.
type LintResult struct {
	Score        ScoreValue
	NativeRating ScoreValue // empty when pylint did not report one
	Issues       []Issue
	Run          ToolRun
}

// Linter runs pylint and normalizes its findings
type Linter struct {
	runner  CommandRunner
	tool    ToolConfig
	rules   LintRules
	weights ScoreWeights
}

// NewLinter creates a lint adapter
func NewLinter(runner CommandRunner, tool ToolConfig, rules LintRules, weights ScoreWeights) *Linter {
	return &Linter{runner: runner, tool: tool, rules: rules, weights: weights}
}

// Args builds the pylint argv for file. jsonOutput selects the structured-output run.
func (l *Linter) Args(file string, jsonOutput bool) []string {
	args := make([]string, 0, 8)
	if jsonOutput {
		args = append(args, "--output-format=json")
	}
	args = append(args, "--fail-under=0")
	if len(l.rules.Disable) > 0 {
		args = append(args, "--disable="+strings.Join(l.rules.Disable, ","))
	}
	if l.rules.IgnoreImports {
		args = append(args, "--ignore-imports=y")
	}
	if len(l.rules.Enable) > 0 {
		args = append(args, "--enable="+strings.Join(l.rules.Enable, ","))
	}
	if l.rules.MaxLineLength > 0 {
		args = append(args, "--max-line-length="+strconv.Itoa(l.rules.MaxLineLength))
	}
	return append(args, file)
}

// Run lints target. pylint executes from the target's directory with an __init__.py
// present so that module-level diagnostics behave as they would inside a package.
func (l *Linter) Run(ctx context.Context, target string) LintResult {
	dir, file := filepath.Dir(target), filepath.Base(target)
	run := ToolRun{Check: CheckLint, Tool: l.tool.Bin, Status: "success"}

	release, err := acquirePackageMarker(dir)
	if err != nil {
		logger.Warn("linting without package marker", logger.Err(err))
	}
	defer release()

	structured := l.runner.Run(ctx, Command{Name: l.tool.Bin, Args: l.Args(file, true), Dir: dir, Timeout: l.tool.Timeout})
	run.ExitCode = structured.ExitCode
	run.Duration = structured.Duration

	switch structured.Failure {
	case FailureLaunch, FailureTool:
		run.fail(structured.Failure, structured.Stderr)
		return l.terminal(run, fatalIssue(SymbolCommandError, structured.Stderr))
	case FailureTimeout, FailureCanceled:
		run.fail(structured.Failure, structured.Stderr)
		return l.terminal(run, fatalIssue(SymbolCommandTimeout, structured.Stderr))
	}

	stdout := strings.TrimSpace(structured.Stdout)
	stderr := strings.TrimSpace(structured.Stderr)
	var issues []Issue
	switch {
	case stdout != "":
		parsed, perr := ParsePylintJSON(stdout)
		if perr != nil {
			run.fail(FailureParse, perr.Error())
			msg := fmt.Sprintf("Could not parse Pylint JSON output: %v\nOutput was:\n%s", perr, stdout)
			return l.terminal(run, fatalIssue(SymbolJSONParseError, msg))
		}
		issues = parsed
		if strings.Contains(stderr, "Fatal") {
			// Kept as run metadata; the structured issues already describe the file.
			run.Detail = stderr
		}
	case stderr != "":
		run.fail(FailureTool, stderr)
		return l.terminal(run, fatalIssue(SymbolPylintStderr, stderr))
	default:
		issues = []Issue{}
	}

	textRun := l.runner.Run(ctx, Command{Name: l.tool.Bin, Args: l.Args(file, false), Dir: dir, Timeout: l.tool.Timeout})
	run.Duration += textRun.Duration
	if !textRun.Launched() {
		logger.Debug("pylint rating run failed; using fallback score", logger.String("failure", string(textRun.Failure)))
	}

	result := LintResult{Run: run}
	native, found := ExtractNativeRating(textRun.Stdout + textRun.Stderr)
	calculated := FallbackScore(issues, l.weights)
	switch {
	case found:
		result.Score = native
		result.NativeRating = native
	case len(issues) == 0 && textRun.Launched() && textRun.ExitCode == 0:
		result.Score = ScorePerfect
	default:
		result.Score = calculated
	}

	if found {
		issues = append(issues, Issue{
			Category:        CategoryInfo,
			Symbol:          SymbolNativeScore,
			Message:         fmt.Sprintf("Native pylint score: %s/10 (Calculated: %s/10)", native, calculated),
			NativeScore:     native,
			CalculatedScore: calculated,
		})
	}
	result.Issues = issues
	return result
}

// terminal builds a result whose score is forced to 0.00 without fallback computation
func (l *Linter) terminal(run ToolRun, iss Issue) LintResult {
	return LintResult{Score: ScoreZero, Issues: []Issue{iss}, Run: run}
}

func fatalIssue(symbol, message string) Issue {
	return Issue{Category: CategoryFatal, Symbol: symbol, Message: strings.TrimSpace(message)}
}

// ParsePylintJSON decodes pylint's JSON array output. Any banner text before the array is
// skipped; anything but whitespace after it is an error.
func ParsePylintJSON(out string) ([]Issue, error) {
	start := strings.Index(out, "[")
	if start == -1 {
		return nil, fmt.Errorf("no JSON array found in pylint output")
	}
	var msgs []pylintMessage
	dec := json.NewDecoder(strings.NewReader(out[start:]))
	if err := dec.Decode(&msgs); err != nil {
		return nil, err
	}
	if rest := strings.TrimSpace(out[start+int(dec.InputOffset()):]); rest != "" {
		return nil, fmt.Errorf("unexpected text after JSON array: %q", runewidth.Truncate(rest, 40, "…"))
	}

	issues := make([]Issue, 0, len(msgs))
	for _, m := range msgs {
		msgType := m.Type
		if strings.TrimSpace(msgType) == "" {
			msgType = "?"
		}
		iss := Issue{
			Category: CategoryFromType(msgType),
			Symbol:   m.Symbol,
			Message:  m.Message,
		}
		if iss.Symbol == "" {
			iss.Symbol = "unknown"
		}
		if iss.Message == "" {
			iss.Message = "No message"
		}
		if m.Line != nil {
			iss.Line = *m.Line
		}
		issues = append(issues, iss)
	}
	return issues, nil
}

// ExtractNativeRating finds pylint's "Your code has been rated at X/10" summary
func ExtractNativeRating(out string) (ScoreValue, bool) {
	m := nativeRatingPattern.FindStringSubmatch(out)
	if m == nil {
		return "", false
	}
	score, err := ParseScore(m[1])
	if err != nil {
		return "", false
	}
	return score, true
}
