package cmd

import (
	"github.com/fulmenhq/pyreview/internal/review"
	"github.com/fulmenhq/pyreview/pkg/config"
	"github.com/fulmenhq/pyreview/pkg/logger"
	"github.com/fulmenhq/pyreview/pkg/tools"
)

// analyzer pairs a tool name with its config entry
type analyzer struct {
	name string
	conf config.ToolConfig
}

func analyzers(cfg *config.Config) []analyzer {
	return []analyzer{
		{"black", cfg.Tools.Black},
		{"pylint", cfg.Tools.Pylint},
		{"detect-secrets", cfg.Tools.DetectSecrets},
	}
}

func resolveAnalyzer(a analyzer) (tools.Resolution, error) {
	return tools.ResolveBinary(a.name, tools.ResolveOptions{
		EnvOverride: tools.EnvVarName(a.name),
		Configured:  a.conf.Bin,
		AllowPath:   true,
	})
}

// reviewTool resolves one analyzer. An unresolvable binary keeps its configured name so the
// review records a launch failure for that check instead of aborting the run.
func reviewTool(a analyzer) review.ToolConfig {
	tc := review.ToolConfig{Bin: a.conf.Bin, Timeout: a.conf.Timeout}
	if tc.Bin == "" {
		tc.Bin = a.name
	}
	res, err := resolveAnalyzer(a)
	if err != nil {
		logger.Warn("analyzer not found; its check will report an error", logger.String("tool", a.name), logger.Err(err))
		return tc
	}
	tc.Bin = res.Path
	return tc
}

// baseReviewConfig builds the file-independent part of a review configuration
func baseReviewConfig(cfg *config.Config) review.Config {
	rc := review.DefaultConfig()
	all := analyzers(cfg)
	rc.Black = reviewTool(all[0])
	rc.Pylint = reviewTool(all[1])
	rc.DetectSecrets = reviewTool(all[2])

	w := cfg.Scoring.Weights
	rc.Weights = review.ScoreWeights{
		Error:       w.Error,
		Fatal:       w.Fatal,
		Warning:     w.Warning,
		Convention:  w.Convention,
		Refactor:    w.Refactor,
		Security:    w.Security,
		Info:        w.Info,
		PerIssueCap: cfg.Scoring.PerIssueCap,
		MaxPenalty:  cfg.Scoring.MaxPenalty,
	}
	rc.SecretPlugins = cfg.Secrets.CustomPlugins
	return rc
}

// withLint applies per-target lint settings. Nil rule lists keep the built-in selection.
func withLint(base review.Config, lint config.LintConfig) review.Config {
	rules := review.DefaultLintRules()
	if lint.Disable != nil {
		rules.Disable = lint.Disable
	}
	if lint.Enable != nil {
		rules.Enable = lint.Enable
	}
	if lint.MaxLineLength > 0 {
		rules.MaxLineLength = lint.MaxLineLength
	}
	base.Lint = rules
	return base
}
