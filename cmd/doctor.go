/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fulmenhq/pyreview/pkg/config"
	"github.com/fulmenhq/pyreview/pkg/exitcode"
	"github.com/fulmenhq/pyreview/pkg/logger"
	"github.com/fulmenhq/pyreview/pkg/tools"
)

const probeTimeout = 15 * time.Second

func newDoctorCommand() *cobra.Command {
	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnostics for analyzers and configuration",
		Long:  "Verify that black, pylint and detect-secrets resolve and run, and that configuration is valid.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgErr := runDoctorConfig(cmd, nil)
			toolsErr := runDoctorTools(cmd, nil)
			if cfgErr != nil {
				return cfgErr
			}
			return toolsErr
		},
	}

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "Resolve each analyzer and report its version",
		Long: `Resolve each analyzer the way 'check' does:
  1. PYREVIEW_TOOL_<NAME> environment override (e.g. PYREVIEW_TOOL_DETECT_SECRETS)
  2. tools.<name>.bin from config when it is a path
  3. the active virtualenv ($VIRTUAL_ENV/bin)
  4. PATH

Missing analyzers can be installed with: pip install black pylint detect-secrets`,
		RunE: runDoctorTools,
	}
	toolsCmd.Flags().Bool("json-output", false, "Print results as JSON")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Validate the configuration file",
		RunE:  runDoctorConfig,
	}

	doctorCmd.AddCommand(toolsCmd, configCmd)
	return doctorCmd
}

// toolStatus is the doctor's view of one analyzer
type toolStatus struct {
	Tool    string `json:"tool"`
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Source  string `json:"source,omitempty"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

func checkAnalyzers(ctx context.Context, cfg *config.Config) []toolStatus {
	if ctx == nil {
		ctx = context.Background()
	}
	var out []toolStatus
	for _, a := range analyzers(cfg) {
		st := toolStatus{Tool: a.name}
		res, err := resolveAnalyzer(a)
		if err != nil {
			st.Error = err.Error()
			out = append(out, st)
			continue
		}
		st.Found, st.Path, st.Source = true, res.Path, res.Source
		version, err := tools.ProbeVersion(ctx, res.Path, probeTimeout)
		if err != nil {
			logger.Warn("version probe failed", logger.String("tool", a.name), logger.Err(err))
			st.Error = err.Error()
		}
		st.Version = version
		out = append(out, st)
	}
	return out
}

func runDoctorTools(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		// tool checks still make sense on defaults
		logger.Warn("config invalid; checking tools with defaults", logger.Err(err))
		d := config.Defaults()
		cfg = &d
	}
	statuses := checkAnalyzers(cmd.Context(), cfg)

	asJSON, _ := cmd.Flags().GetBool("json-output")
	if asJSON {
		data, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	} else {
		printToolStatuses(cmd.OutOrStdout(), statuses)
	}

	missing := 0
	for _, st := range statuses {
		if !st.Found {
			missing++
		}
	}
	if missing > 0 {
		return withExitCode(exitcode.ToolNotFound, fmt.Errorf("%d analyzer(s) not found", missing))
	}
	return nil
}

func printToolStatuses(w io.Writer, statuses []toolStatus) {
	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()
	for _, st := range statuses {
		if !st.Found {
			_, _ = fmt.Fprintf(w, "%s %-15s %s\n", bad("✗"), st.Tool, st.Error)
			continue
		}
		version := st.Version
		if version == "" {
			version = "version unknown"
		}
		_, _ = fmt.Fprintf(w, "%s %-15s %s  %s (%s)\n", ok("✓"), st.Tool, version, st.Path, st.Source)
	}
}

func runDoctorConfig(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig(cmd)
	if err != nil {
		_, _ = fmt.Fprintf(out, "✗ configuration invalid\n%v\n", err)
		return err
	}
	if cfg.SourceFile == "" {
		_, _ = fmt.Fprintln(out, "✓ no pyreview.yaml found; using built-in defaults")
	} else {
		_, _ = fmt.Fprintf(out, "✓ %s is valid (schema v%s)\n", cfg.SourceFile, config.CurrentSchemaVersion)
	}

	if wd, err := os.Getwd(); err == nil {
		if path, ok := config.FindPyproject(wd); ok {
			if _, _, err := cfg.LintFor(wd); err != nil {
				_, _ = fmt.Fprintf(out, "✗ %s: %v\n", path, err)
				return withExitCode(exitcode.ConfigError, err)
			}
			_, _ = fmt.Fprintf(out, "✓ %s [tool.pyreview] overrides apply here\n", path)
		}
	}
	return nil
}
