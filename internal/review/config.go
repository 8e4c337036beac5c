/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package review

import (
	"time"
)

// ToolConfig identifies an analyzer binary and its per-invocation timeout
type ToolConfig struct {
	Bin     string        `json:"bin"`
	Timeout time.Duration `json:"timeout"`
}

// LintRules is the pylint rule configuration shared by the JSON and text runs
type LintRules struct {
	Disable       []string `json:"disable"`
	Enable        []string `json:"enable"`
	MaxLineLength int      `json:"max_line_length"`
	IgnoreImports bool     `json:"ignore_imports"`
}

// Config controls one review run
type Config struct {
	Black         ToolConfig   `json:"black"`
	Pylint        ToolConfig   `json:"pylint"`
	DetectSecrets ToolConfig   `json:"detect_secrets"`
	Lint          LintRules    `json:"lint"`
	Weights       ScoreWeights `json:"weights"`
	// Extra detect-secrets plugin files passed via --custom-plugins
	SecretPlugins []string `json:"secret_plugins,omitempty"`
}

// DefaultLintRules mirrors the rule selection the review has always used: noisy import
// diagnostics are off, high-signal rules are explicitly on.
func DefaultLintRules() LintRules {
	return LintRules{
		Disable: []string{
			"import-error", "relative-beyond-top-level", "no-name-in-module",
			"wrong-import-position", "wrong-import-order", "ungrouped-imports",
			"import-self", "cyclic-import", "wildcard-import", "consider-using-from-import",
			"reimported", "unused-import",
		},
		Enable: []string{
			"missing-function-docstring", "missing-class-docstring", "empty-docstring",
			"undefined-variable", "unused-variable", "unused-argument",
			"redefined-outer-name", "redefined-builtin", "invalid-name",
			"line-too-long", "too-many-arguments", "too-many-branches", "too-many-locals",
			"too-many-nested-blocks", "too-many-statements", "too-many-instance-attributes",
			"broad-exception-caught", "bare-except", "broad-exception-raised",
			"exec-used", "eval-used", "using-constant-test",
			"consider-using-with", "consider-using-f-string", "use-list-literal", "use-dict-literal",
		},
		MaxLineLength: 100,
		IgnoreImports: true,
	}
}

// DefaultConfig returns the stock configuration with tools resolved from PATH
func DefaultConfig() Config {
	timeout := 2 * time.Minute
	return Config{
		Black:         ToolConfig{Bin: "black", Timeout: timeout},
		Pylint:        ToolConfig{Bin: "pylint", Timeout: timeout},
		DetectSecrets: ToolConfig{Bin: "detect-secrets", Timeout: timeout},
		Lint:          DefaultLintRules(),
		Weights:       DefaultScoreWeights(),
	}
}
