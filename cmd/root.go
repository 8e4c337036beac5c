/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fulmenhq/pyreview/internal/intake"
	"github.com/fulmenhq/pyreview/internal/review"
	"github.com/fulmenhq/pyreview/pkg/buildinfo"
	"github.com/fulmenhq/pyreview/pkg/config"
	"github.com/fulmenhq/pyreview/pkg/exitcode"
	"github.com/fulmenhq/pyreview/pkg/logger"
)

// newRootCommand creates a fresh root command instance.
// This factory pattern allows tests to create isolated command trees without shared state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pyreview",
		Short: "Automated Python code review",
		Long: `pyreview reviews Python source files and notebooks by running black, pylint and
detect-secrets, adding its own security heuristics, and merging the results into a single
scored report.

Examples:
   pyreview check app.py                 # Review one file
   pyreview check 'src/**/*.py' -f sarif # Review a tree, SARIF output for CI
   cat snippet.py | pyreview check -     # Review code from stdin
   pyreview format app.py --write        # Reformat in place with black
   pyreview convert analysis.ipynb       # Print a notebook as a Python script
   pyreview doctor                       # Check analyzers and configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initializeLogger(cmd)
		},
	}

	cmd.PersistentFlags().String("log-level", "warn", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().String("config", "", "Path to a pyreview.yaml config file")

	cmd.Version = buildinfo.Version()
	cmd.SetVersionTemplate("pyreview {{.Version}}\n")

	return cmd
}

// registerSubcommands adds all subcommands to the root command.
// This is called from init() for production and can be called explicitly in tests.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(newCheckCommand())
	cmd.AddCommand(newFormatCommand())
	cmd.AddCommand(newConvertCommand())
	cmd.AddCommand(newDoctorCommand())
	cmd.AddCommand(newVersionCommand())
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

func init() {
	registerSubcommands(rootCmd)
}

// Execute runs the root command and exits with the code mapped from its error.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Error("Command execution failed", logger.Err(err))
		os.Exit(exitCodeFor(err))
	}
}

// exitError carries a specific process exit code
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// exitCodeFor maps a command error onto the pkg/exitcode table
func exitCodeFor(err error) int {
	var ee *exitError
	var toolErr *review.ToolError
	switch {
	case err == nil:
		return exitcode.Success
	case errors.As(err, &ee):
		return ee.code
	case errors.Is(err, context.Canceled):
		return exitcode.Interrupted
	case errors.Is(err, config.ErrInvalidConfig):
		return exitcode.ConfigError
	case errors.Is(err, intake.ErrUnsupportedInput):
		return exitcode.UnsupportedFormat
	case errors.Is(err, review.ErrTargetInaccessible), errors.Is(err, os.ErrNotExist):
		return exitcode.FileSystemError
	case errors.As(err, &toolErr):
		switch toolErr.Kind {
		case review.FailureLaunch:
			return exitcode.ToolNotFound
		case review.FailureTimeout:
			return exitcode.TimeoutError
		case review.FailureCanceled:
			return exitcode.Interrupted
		default:
			return exitcode.ValidationError
		}
	default:
		return exitcode.GeneralError
	}
}

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) error {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	level, ok := logger.ParseLevel(logLevelStr)
	if !ok {
		return withExitCode(exitcode.ConfigError, fmt.Errorf("invalid --log-level %q", logLevelStr))
	}
	if noColor {
		color.NoColor = true
	}

	cfg := logger.Config{
		Level:     level,
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "pyreview",
	}
	if err := logger.Initialize(cfg); err != nil {
		return withExitCode(exitcode.ConfigError, err)
	}
	logger.SetOutput(cmd.ErrOrStderr())
	return nil
}

// loadConfig reads the --config file, or discovers pyreview.yaml when none is given
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfigFrom(path)
	if err != nil {
		return nil, err
	}
	if cfg.SourceFile != "" {
		logger.Debug("loaded config", logger.String("file", cfg.SourceFile))
	}
	return cfg, nil
}
