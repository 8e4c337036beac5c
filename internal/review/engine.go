/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package review

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fulmenhq/pyreview/pkg/logger"
)

// Engine orchestrates one review run per file
type Engine struct {
	runner CommandRunner
	config Config
}

// Option customizes an Engine
type Option func(*Engine)

// WithRunner replaces the subprocess runner (used by tests and dry runs)
func WithRunner(r CommandRunner) Option {
	return func(e *Engine) { e.runner = r }
}

// NewEngine creates a review engine for the given configuration
func NewEngine(config Config, opts ...Option) *Engine {
	e := &Engine{runner: NewExecRunner(), config: config}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunAllChecks reviews filePath with every analyzer concurrently and assembles the report.
// Individual analyzer failures are reported inside the Report; only an inaccessible target
// returns an error.
func (e *Engine) RunAllChecks(ctx context.Context, filePath string) (*Report, error) {
	start := time.Now()

	target, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTargetInaccessible, err)
	}
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTargetInaccessible, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrTargetInaccessible, target)
	}

	logger.Info("Running checks", logger.String("file", target))

	var (
		formatting []string
		formatRun  ToolRun
		lint       LintResult
		secrets    []string
		secretRun  ToolRun
		heuristics []Issue
		heurRun    ToolRun
	)

	// Adapters absorb their own failures, so the group never carries an error; it is used
	// purely to fan out and join.
	var g errgroup.Group
	g.Go(func() error {
		formatting, formatRun = NewFormatChecker(e.runner, e.config.Black).Check(ctx, target)
		return nil
	})
	g.Go(func() error {
		lint = NewLinter(e.runner, e.config.Pylint, e.config.Lint, e.config.Weights).Run(ctx, target)
		return nil
	})
	g.Go(func() error {
		secrets, secretRun = NewSecretScanner(e.runner, e.config.DetectSecrets, e.config.SecretPlugins).Scan(ctx, target)
		return nil
	})
	g.Go(func() error {
		hstart := time.Now()
		var ok bool
		heuristics, ok = ScanHeuristics(target)
		heurRun = ToolRun{Check: CheckHeuristics, Tool: "builtin", Status: "success", Duration: time.Since(hstart)}
		if !ok {
			heurRun.fail(FailureRead, "could not read target for heuristic scan")
		}
		return nil
	})
	_ = g.Wait()

	lintIssues := make([]Issue, 0, len(lint.Issues)+len(heuristics))
	lintIssues = append(lintIssues, lint.Issues...)
	lintIssues = append(lintIssues, heuristics...)

	score := lint.Score
	if _, ok := score.Float(); !ok {
		// Linter always yields a numeric score; keep the report numeric if that ever changes.
		score = FallbackScore(lintIssues, e.config.Weights)
	}

	report := &Report{
		RunID:            uuid.NewString(),
		Filename:         filepath.Base(target),
		Source:           filePath,
		GeneratedAt:      start.UTC(),
		LintScore:        score,
		FormattingIssues: nonNil(formatting),
		LintIssues:       lintIssues,
		SecretIssues:     nonNil(secrets),
		Checks:           []ToolRun{formatRun, lint.Run, secretRun, heurRun},
		ExecutionTime:    time.Since(start),
	}

	logger.Info("Checks completed",
		logger.String("file", target),
		logger.String("score", string(report.LintScore)),
		logger.Int("issues", report.IssueCount()),
		logger.Duration("elapsed", report.ExecutionTime))
	return report, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
