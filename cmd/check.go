/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/fulmenhq/pyreview/internal/intake"
	"github.com/fulmenhq/pyreview/internal/review"
	"github.com/fulmenhq/pyreview/pkg/buildinfo"
	"github.com/fulmenhq/pyreview/pkg/config"
	"github.com/fulmenhq/pyreview/pkg/exitcode"
	"github.com/fulmenhq/pyreview/pkg/logger"
	"github.com/fulmenhq/pyreview/pkg/safeio"
)

// newRunner builds the subprocess runner for review engines; tests swap it for a fake
var newRunner = func() review.CommandRunner { return review.NewExecRunner() }

type checkOptions struct {
	format        string
	output        string
	timeout       time.Duration
	failUnder     float64
	failOnSecrets bool
	noIgnore      bool
	changed       bool
	concurrency   int
	maxIssues     int
}

func newCheckCommand() *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check [<file|dir|glob|->...]",
		Short: "Review Python files and notebooks",
		Long: `Run the formatting check, lint, secret scan and security heuristics over each target
and print one report per file.

Targets may be files (.py or .ipynb), directories (walked recursively, honoring .gitignore and
.pyreviewignore), doublestar globs such as 'src/**/*.py', or '-' for standard input.
With --changed the targets are the modified, staged and untracked files of the current git
work tree instead.

Exit codes: 0 success, 10 a file scored below --fail-under, 11 secrets found with
--fail-on-secrets.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.changed {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, opts)
		},
	}

	formats := make([]string, 0, len(review.OutputFormats))
	for _, f := range review.OutputFormats {
		formats = append(formats, string(f))
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Report format ("+strings.Join(formats, "|")+"); default from config")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Per-analyzer timeout (e.g. 90s); default from config")
	cmd.Flags().Float64Var(&opts.failUnder, "fail-under", 0, "Exit non-zero when any file's lint score is below this value")
	cmd.Flags().BoolVar(&opts.failOnSecrets, "fail-on-secrets", false, "Exit non-zero when secrets or security findings are reported")
	cmd.Flags().BoolVar(&opts.noIgnore, "no-ignore", false, "Do not apply .gitignore/.pyreviewignore when expanding directories and globs")
	cmd.Flags().BoolVar(&opts.changed, "changed", false, "Review files changed in the git work tree (staged, unstaged, untracked)")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "j", 0, "Files reviewed in parallel; default from config")
	cmd.Flags().IntVar(&opts.maxIssues, "max-issues", -1, "Limit lint issues listed per file in concise output (0 = unlimited)")
	return cmd
}

// checkResult is a finished review plus the gate it must pass
type checkResult struct {
	report    *review.Report
	failUnder float64
}

func runCheck(cmd *cobra.Command, args []string, opts *checkOptions) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyCheckFlags(cmd.Flags(), cfg, opts)

	format, err := review.ParseOutputFormat(cfg.Output.Format)
	if err != nil {
		return withExitCode(exitcode.ConfigError, err)
	}

	var targets []target
	if opts.changed {
		targets, err = changedTargets(".", !opts.noIgnore)
		if len(targets) == 0 && err == nil {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No changed Python files to review")
			return nil
		}
	} else {
		targets, err = expandTargets(args, !opts.noIgnore)
	}
	if err != nil {
		return err
	}
	logger.Info("Reviewing files", logger.Int("count", len(targets)), logger.Int("concurrency", cfg.Review.Concurrency))

	results, err := reviewTargets(cmd.Context(), cmd.InOrStdin(), cfg, targets)
	if err != nil {
		return err
	}

	reports := make([]*review.Report, len(results))
	for i, r := range results {
		reports[i] = r.report
	}
	if err := writeReports(cmd, cfg, format, reports); err != nil {
		return err
	}

	if cmd.Flags().Changed("fail-under") {
		for i := range results {
			results[i].failUnder = opts.failUnder
		}
	}
	return evaluateGates(results, opts.failOnSecrets)
}

// applyCheckFlags lets explicit flags win over file and environment configuration
func applyCheckFlags(flags *pflag.FlagSet, cfg *config.Config, opts *checkOptions) {
	if opts.format != "" {
		cfg.Output.Format = opts.format
	}
	if opts.concurrency > 0 {
		cfg.Review.Concurrency = opts.concurrency
	}
	if flags.Changed("max-issues") && opts.maxIssues >= 0 {
		cfg.Output.MaxIssues = opts.maxIssues
	}
	if opts.timeout > 0 {
		cfg.Review.Timeout = opts.timeout
		cfg.Tools.Black.Timeout = opts.timeout
		cfg.Tools.Pylint.Timeout = opts.timeout
		cfg.Tools.DetectSecrets.Timeout = opts.timeout
	}
}

// reviewTargets stages every target into one workspace and reviews them with bounded
// parallelism. Reports come back in target order.
func reviewTargets(ctx context.Context, stdin io.Reader, cfg *config.Config, targets []target) ([]checkResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ws, err := intake.NewWorkspace(cfg.Review.WorkspaceDir)
	if err != nil {
		return nil, err
	}
	defer func() { _ = ws.Close() }()

	base := baseReviewConfig(cfg)
	runner := newRunner()
	results := make([]checkResult, len(targets))

	// stdin is read up front; it cannot be shared across goroutines
	var stdinData []byte
	for _, t := range targets {
		if t.Path == "" {
			if stdinData, err = safeio.ReadLimited(stdin, safeio.MaxInputBytes); err != nil {
				return nil, fmt.Errorf("reading stdin: %w", err)
			}
			break
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Review.Concurrency)
	for i, t := range targets {
		g.Go(func() error {
			content := stdinData
			if t.Path != "" {
				var err error
				if content, err = safeio.ReadFileLimited(t.Path, safeio.MaxInputBytes); err != nil {
					return fmt.Errorf("%w: %s: %v", review.ErrTargetInaccessible, t.Display, err)
				}
			}

			staged, err := ws.Stage(t.name(), content)
			if err != nil {
				return fmt.Errorf("%s: %w", t.Display, err)
			}

			lint, pyproject, err := cfg.LintFor(t.dir())
			if err != nil {
				return withExitCode(exitcode.ConfigError, err)
			}
			if pyproject != "" {
				logger.Debug("using pyproject overrides", logger.String("file", t.Display), logger.String("pyproject", pyproject))
			}

			engine := review.NewEngine(withLint(base, lint), review.WithRunner(runner))
			report, err := engine.RunAllChecks(gctx, staged.Path)
			if err != nil {
				return err
			}
			report.Filename = staged.DisplayName
			report.Source = t.Display
			results[i] = checkResult{report: report, failUnder: lint.FailUnder}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func writeReports(cmd *cobra.Command, cfg *config.Config, format review.OutputFormat, reports []*review.Report) error {
	f := review.NewFormatter(format)
	f.SetMaxIssues(cfg.Output.MaxIssues)
	f.SetVersion(buildinfo.Version())

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		return f.WriteReports(cmd.OutOrStdout(), reports)
	}

	rendered, err := f.FormatReports(reports)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(rendered, "\n") {
		rendered += "\n"
	}
	if err := safeio.WriteFilePreservePerms(output, []byte(rendered)); err != nil {
		return withExitCode(exitcode.FileSystemError, fmt.Errorf("writing report: %w", err))
	}
	logger.Info("Report written", logger.String("file", output), logger.String("format", string(format)))
	return nil
}

// evaluateGates applies --fail-under and --fail-on-secrets. The score gate wins when both
// trip.
func evaluateGates(results []checkResult, failOnSecrets bool) error {
	var below, withSecrets []string
	for _, r := range results {
		name := r.report.Source
		if name == "" {
			name = r.report.Filename
		}
		if r.failUnder > 0 {
			score, ok := r.report.LintScore.Float()
			if !ok || score < r.failUnder {
				below = append(below, fmt.Sprintf("%s (%s < %.2f)", name, r.report.LintScore, r.failUnder))
			}
		}
		if failOnSecrets && hasSecurityFindings(r.report) {
			withSecrets = append(withSecrets, name)
		}
	}

	if len(below) > 0 {
		return withExitCode(exitcode.ScoreBelowThreshold, fmt.Errorf("lint score below threshold: %s", strings.Join(below, ", ")))
	}
	if len(withSecrets) > 0 {
		return withExitCode(exitcode.FindingsPresent, fmt.Errorf("security findings in: %s", strings.Join(withSecrets, ", ")))
	}
	return nil
}

// hasSecurityFindings ignores secret_issues entries produced by a failed scanner run
func hasSecurityFindings(r *review.Report) bool {
	if len(r.SecretIssues) > 0 {
		for _, run := range r.Checks {
			if run.Check == review.CheckSecrets && run.Status == "success" {
				return true
			}
		}
	}
	return r.CountByCategory()[review.CategorySecurity] > 0
}
