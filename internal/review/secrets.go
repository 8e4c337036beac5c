/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fulmenhq/pyreview/pkg/logger"
)

type detectSecretsFinding struct {
	Type       string `json:"type"`
	LineNumber int    `json:"line_number"`
}

type detectSecretsReport struct {
	Results map[string][]detectSecretsFinding `json:"results"`
}

// SecretScanner runs detect-secrets against a single file
type SecretScanner struct {
	runner  CommandRunner
	tool    ToolConfig
	plugins []string
}

// NewSecretScanner creates a secret-scan adapter. plugins are extra detect-secrets plugin
// files passed through --custom-plugins.
func NewSecretScanner(runner CommandRunner, tool ToolConfig, plugins []string) *SecretScanner {
	return &SecretScanner{runner: runner, tool: tool, plugins: plugins}
}

// Args builds the detect-secrets argv for the bare file name
func (s *SecretScanner) Args(file string) []string {
	args := []string{"scan", "--all-files"}
	for _, p := range s.plugins {
		if strings.TrimSpace(p) != "" {
			args = append(args, "--custom-plugins", p)
		}
	}
	return append(args, file)
}

// Scan returns one human-readable line per potential secret. detect-secrets exits non-zero
// when it finds secrets, so the exit code alone is not treated as an error.
func (s *SecretScanner) Scan(ctx context.Context, target string) ([]string, ToolRun) {
	dir, file := filepath.Dir(target), filepath.Base(target)
	run := ToolRun{Check: CheckSecrets, Tool: s.tool.Bin, Status: "success"}

	res := s.runner.Run(ctx, Command{Name: s.tool.Bin, Args: s.Args(file), Dir: dir, Timeout: s.tool.Timeout})
	run.ExitCode = res.ExitCode
	run.Duration = res.Duration

	switch res.Failure {
	case FailureLaunch, FailureTool:
		run.fail(res.Failure, res.Stderr)
		return []string{fmt.Sprintf("Detect-secrets command failed: %s", strings.TrimSpace(res.Stderr))}, run
	case FailureTimeout, FailureCanceled:
		run.fail(res.Failure, res.Stderr)
		return []string{fmt.Sprintf("Detect-secrets error: %s", strings.TrimSpace(res.Stderr))}, run
	}

	if stderr := strings.TrimSpace(res.Stderr); stderr != "" && strings.Contains(strings.ToLower(stderr), "error") {
		run.fail(FailureTool, stderr)
		return []string{fmt.Sprintf("Detect-secrets error: %s", stderr)}, run
	}

	if strings.TrimSpace(res.Stdout) == "" {
		return []string{}, run
	}

	findings, err := ParseDetectSecrets([]byte(res.Stdout), file)
	if err != nil {
		run.fail(FailureParse, err.Error())
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			logger.Debug("detect-secrets output was not JSON", logger.Err(err))
			return []string{fmt.Sprintf("Detect-secrets non-JSON output/error: %s", strings.TrimSpace(res.Stdout))}, run
		}
		logger.Debug("detect-secrets JSON had an unexpected shape", logger.Err(err))
		return []string{fmt.Sprintf("Error parsing detect-secrets output: %v", err)}, run
	}
	return findings, run
}

// ParseDetectSecrets converts detect-secrets JSON into finding lines for file. Results for
// other files in the payload are ignored.
func ParseDetectSecrets(data []byte, file string) ([]string, error) {
	var report detectSecretsReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	found := report.Results[file]
	out := make([]string, 0, len(found))
	for _, f := range found {
		out = append(out, fmt.Sprintf("Line %d: Potential '%s' secret detected.", f.LineNumber, f.Type))
	}
	return out, nil
}
