package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for pyreview
type Config struct {
	Tools   ToolsConfig   `mapstructure:"tools"`
	Review  ReviewConfig  `mapstructure:"review"`
	Lint    LintConfig    `mapstructure:"lint"`
	Secrets SecretsConfig `mapstructure:"secrets"`
	Scoring ScoringConfig `mapstructure:"scoring"`
	Output  OutputConfig  `mapstructure:"output"`

	// SourceFile is the config file that was read, empty when running on defaults
	SourceFile string `mapstructure:"-"`
}

// ToolConfig locates one analyzer binary
type ToolConfig struct {
	Bin     string        `mapstructure:"bin"`
	Timeout time.Duration `mapstructure:"timeout"` // 0 inherits review.timeout
}

// ToolsConfig holds per-analyzer settings
type ToolsConfig struct {
	Black         ToolConfig `mapstructure:"black"`
	Pylint        ToolConfig `mapstructure:"pylint"`
	DetectSecrets ToolConfig `mapstructure:"detect_secrets"`
}

// ReviewConfig holds run-wide settings
type ReviewConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	Concurrency  int           `mapstructure:"concurrency"`
	WorkspaceDir string        `mapstructure:"workspace_dir"`
}

// LintConfig holds pylint rule selection. Nil Disable/Enable lists mean the built-in
// selection.
type LintConfig struct {
	MaxLineLength int      `mapstructure:"max_line_length"`
	Disable       []string `mapstructure:"disable"`
	Enable        []string `mapstructure:"enable"`
	FailUnder     float64  `mapstructure:"fail_under"`
}

// SecretsConfig holds detect-secrets settings
type SecretsConfig struct {
	CustomPlugins []string `mapstructure:"custom_plugins"`
}

// ScoringConfig holds the fallback score formula's constants
type ScoringConfig struct {
	Weights     WeightsConfig `mapstructure:"weights"`
	PerIssueCap float64       `mapstructure:"per_issue_cap"`
	MaxPenalty  float64       `mapstructure:"max_penalty"`
}

// WeightsConfig is the penalty per issue category
type WeightsConfig struct {
	Error      float64 `mapstructure:"error"`
	Fatal      float64 `mapstructure:"fatal"`
	Warning    float64 `mapstructure:"warning"`
	Convention float64 `mapstructure:"convention"`
	Refactor   float64 `mapstructure:"refactor"`
	Security   float64 `mapstructure:"security"`
	Info       float64 `mapstructure:"info"`
}

// OutputConfig holds report rendering defaults
type OutputConfig struct {
	Format    string `mapstructure:"format"`
	MaxIssues int    `mapstructure:"max_issues"`
}

// ErrInvalidConfig wraps every config file parse or validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

var defaultConfig = Config{
	Tools: ToolsConfig{
		Black:         ToolConfig{Bin: "black"},
		Pylint:        ToolConfig{Bin: "pylint"},
		DetectSecrets: ToolConfig{Bin: "detect-secrets"},
	},
	Review: ReviewConfig{
		Timeout:     2 * time.Minute,
		Concurrency: 4,
	},
	Lint: LintConfig{
		MaxLineLength: 100,
	},
	Scoring: ScoringConfig{
		Weights: WeightsConfig{
			Error:      2.0,
			Fatal:      2.0,
			Warning:    0.5,
			Convention: 0.25,
			Refactor:   0.2,
			Security:   2.5,
			Info:       0,
		},
		PerIssueCap: 0.5,
		MaxPenalty:  10.0,
	},
	Output: OutputConfig{
		Format: "concise",
	},
}

// Defaults returns a copy of the built-in configuration
func Defaults() Config {
	c := defaultConfig
	return c
}

func setDefaults(v *viper.Viper) {
	d := defaultConfig
	v.SetDefault("tools.black.bin", d.Tools.Black.Bin)
	v.SetDefault("tools.black.timeout", d.Tools.Black.Timeout)
	v.SetDefault("tools.pylint.bin", d.Tools.Pylint.Bin)
	v.SetDefault("tools.pylint.timeout", d.Tools.Pylint.Timeout)
	v.SetDefault("tools.detect_secrets.bin", d.Tools.DetectSecrets.Bin)
	v.SetDefault("tools.detect_secrets.timeout", d.Tools.DetectSecrets.Timeout)

	v.SetDefault("review.timeout", d.Review.Timeout)
	v.SetDefault("review.concurrency", d.Review.Concurrency)
	v.SetDefault("review.workspace_dir", d.Review.WorkspaceDir)

	v.SetDefault("lint.max_line_length", d.Lint.MaxLineLength)
	v.SetDefault("lint.fail_under", d.Lint.FailUnder)

	v.SetDefault("scoring.weights.error", d.Scoring.Weights.Error)
	v.SetDefault("scoring.weights.fatal", d.Scoring.Weights.Fatal)
	v.SetDefault("scoring.weights.warning", d.Scoring.Weights.Warning)
	v.SetDefault("scoring.weights.convention", d.Scoring.Weights.Convention)
	v.SetDefault("scoring.weights.refactor", d.Scoring.Weights.Refactor)
	v.SetDefault("scoring.weights.security", d.Scoring.Weights.Security)
	v.SetDefault("scoring.weights.info", d.Scoring.Weights.Info)
	v.SetDefault("scoring.per_issue_cap", d.Scoring.PerIssueCap)
	v.SetDefault("scoring.max_penalty", d.Scoring.MaxPenalty)

	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.max_issues", d.Output.MaxIssues)
}

// LoadConfig loads configuration from pyreview.yaml in ., $HOME or the pyreview home
// config dir, overlaid with PYREVIEW_* environment variables
func LoadConfig() (*Config, error) {
	return LoadConfigFrom("")
}

// LoadConfigFrom is LoadConfig with an explicit config file. An explicit file must exist;
// discovered files are optional. Any file that is read is validated against the schema.
func LoadConfigFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pyreview")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		if home, err := GetPyreviewHome(); err == nil {
			v.AddConfigPath(filepath.Join(home, "config"))
		}
	}

	v.SetEnvPrefix("PYREVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: reading config: %v", ErrInvalidConfig, err)
		}
	}

	if used := v.ConfigFileUsed(); used != "" {
		if err := ValidateConfigFile(used); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("%w: error unmarshaling config: %v", ErrInvalidConfig, err)
	}
	config.SourceFile = v.ConfigFileUsed()
	config.normalize()
	return &config, nil
}

func (c *Config) normalize() {
	if c.Review.Concurrency < 1 {
		c.Review.Concurrency = 1
	}
	if c.Review.Timeout < 0 {
		c.Review.Timeout = 0
	}
	for _, t := range []*ToolConfig{&c.Tools.Black, &c.Tools.Pylint, &c.Tools.DetectSecrets} {
		if t.Timeout <= 0 {
			t.Timeout = c.Review.Timeout
		}
	}
}

// GetPyreviewHome returns the pyreview home directory
func GetPyreviewHome() (string, error) {
	if home := os.Getenv("PYREVIEW_HOME"); home != "" {
		return home, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %v", err)
	}

	return filepath.Join(homeDir, ".pyreview"), nil
}
