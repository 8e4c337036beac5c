/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/pyreview/internal/intake"
	"github.com/fulmenhq/pyreview/internal/review"
	"github.com/fulmenhq/pyreview/pkg/exitcode"
	"github.com/fulmenhq/pyreview/pkg/logger"
	"github.com/fulmenhq/pyreview/pkg/safeio"
)

func newFormatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "format <file|->...",
		Short: "Reformat Python source with black",
		Long: `Pipe each file's normalized source through 'black --quiet -'.

Without flags the formatted code of a single target is printed. --write rewrites files in place
(preserving their permissions); --check only lists files black would change and exits 11 when
any would.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runFormat,
	}
	cmd.Flags().BoolP("write", "w", false, "Write formatted source back to the files")
	cmd.Flags().Bool("check", false, "List files that would be reformatted without changing them")
	return cmd
}

func runFormat(cmd *cobra.Command, args []string) error {
	write, _ := cmd.Flags().GetBool("write")
	check, _ := cmd.Flags().GetBool("check")
	if write && check {
		return withExitCode(exitcode.ConfigError, errors.New("--write and --check are mutually exclusive"))
	}
	if !write && !check && len(args) > 1 {
		return withExitCode(exitcode.ConfigError, errors.New("printing formatted source supports a single target; use --write or --check"))
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	black := reviewTool(analyzers(cfg)[0])
	formatter := review.NewFormatChecker(newRunner(), black)

	var changed []string
	for _, arg := range args {
		name, content, err := readFormatTarget(cmd, arg)
		if err != nil {
			return err
		}
		if write && (arg == stdinArg || strings.EqualFold(filepath.Ext(arg), ".ipynb")) {
			return withExitCode(exitcode.UnsupportedFormat, fmt.Errorf("%s: --write only supports .py files", name))
		}

		source, err := intake.ToPython(name, content)
		if err != nil {
			return err
		}
		formatted, err := formatter.Format(cmd.Context(), source)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		differs := formatted != string(content)
		switch {
		case check:
			if formatted != source {
				changed = append(changed, name)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "would reformat %s\n", name)
			}
		case write:
			if !differs {
				logger.Debug("already formatted", logger.String("file", name))
				continue
			}
			if err := safeio.WriteFilePreservePerms(arg, []byte(formatted)); err != nil {
				return withExitCode(exitcode.FileSystemError, fmt.Errorf("writing %s: %w", name, err))
			}
			changed = append(changed, name)
			logger.Info("Reformatted", logger.String("file", name))
		default:
			_, _ = fmt.Fprint(cmd.OutOrStdout(), formatted)
		}
	}

	if check && len(changed) > 0 {
		return withExitCode(exitcode.FindingsPresent, fmt.Errorf("%d file(s) would be reformatted", len(changed)))
	}
	if write {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d file(s) reformatted, %d unchanged\n", len(changed), len(args)-len(changed))
	}
	return nil
}

// readFormatTarget reads a file argument, or stdin for "-"
func readFormatTarget(cmd *cobra.Command, arg string) (string, []byte, error) {
	if arg == stdinArg {
		data, err := safeio.ReadLimited(cmd.InOrStdin(), safeio.MaxInputBytes)
		if err != nil {
			return "", nil, fmt.Errorf("reading stdin: %w", err)
		}
		return intake.StdinName, data, nil
	}
	data, err := safeio.ReadFileLimited(arg, safeio.MaxInputBytes)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", review.ErrTargetInaccessible, err)
	}
	return arg, data, nil
}
