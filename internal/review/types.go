/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package review

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Category is the normalized classification of a review finding
type Category string

const (
	CategoryError      Category = "Error"
	CategoryWarning    Category = "Warning"
	CategoryConvention Category = "Convention"
	CategoryRefactor   Category = "Refactor"
	CategorySecurity   Category = "Security"
	CategoryInfo       Category = "Info"
	CategoryFatal      Category = "Fatal"
)

// Categories lists every category an Issue may carry, in severity order
var Categories = []Category{
	CategoryFatal,
	CategoryError,
	CategorySecurity,
	CategoryWarning,
	CategoryRefactor,
	CategoryConvention,
	CategoryInfo,
}

// CategoryFromType maps a pylint message type ("convention", "error", ...) to a Category
// using the upper-cased first letter. Unrecognized types fall back to Info so that no
// undeclared category can leak into a report.
func CategoryFromType(msgType string) Category {
	t := strings.TrimSpace(msgType)
	if t == "" {
		return CategoryInfo
	}
	switch strings.ToUpper(t[:1]) {
	case "E":
		return CategoryError
	case "W":
		return CategoryWarning
	case "C":
		return CategoryConvention
	case "R":
		return CategoryRefactor
	case "S":
		return CategorySecurity
	case "F":
		return CategoryFatal
	default:
		return CategoryInfo
	}
}

// Valid reports whether c is one of the declared categories
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Issue is a single normalized finding. Issues are values; adapters build them once and
// nothing downstream mutates them.
type Issue struct {
	Category        Category   `json:"category" yaml:"category"`
	Symbol          string     `json:"symbol" yaml:"symbol"`
	Message         string     `json:"message" yaml:"message"`
	Line            int        `json:"line" yaml:"line"`
	NativeScore     ScoreValue `json:"native_score,omitempty" yaml:"native_score,omitempty"`
	CalculatedScore ScoreValue `json:"calculated_score,omitempty" yaml:"calculated_score,omitempty"`
}

// ScoreValue is a lint score rendered with two fractional digits in [0.00, 10.00], or
// ScoreError before fallback resolution.
type ScoreValue string

const (
	ScoreError   ScoreValue = "Error"
	ScorePerfect ScoreValue = "10.00"
	ScoreZero    ScoreValue = "0.00"
)

// NewScore clamps v into [0, 10] and formats it with two decimals
func NewScore(v float64) ScoreValue {
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	if v > 10 {
		v = 10
	}
	return ScoreValue(strconv.FormatFloat(v, 'f', 2, 64))
}

// ParseScore parses a rating such as "7.50" or "-3.2" into a clamped ScoreValue
func ParseScore(raw string) (ScoreValue, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return ScoreError, fmt.Errorf("invalid score %q: %w", raw, err)
	}
	return NewScore(f), nil
}

// Float returns the numeric value of the score; ok is false for ScoreError or garbage
func (s ScoreValue) Float() (float64, bool) {
	if s == ScoreError || s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FailureKind classifies why an adapter could not produce a clean result
type FailureKind string

const (
	FailureNone     FailureKind = ""
	FailureLaunch   FailureKind = "launch"
	FailureTool     FailureKind = "tool"
	FailureParse    FailureKind = "parse"
	FailureRead     FailureKind = "read"
	FailureTimeout  FailureKind = "timeout"
	FailureCanceled FailureKind = "canceled"
)

// Check names used in ToolRun and report output
const (
	CheckFormatting = "formatting"
	CheckLint       = "lint"
	CheckSecrets    = "secrets"
	CheckHeuristics = "heuristics"
)

// ToolRun records how one adapter's invocation went
type ToolRun struct {
	Check    string        `json:"check" yaml:"check"`
	Tool     string        `json:"tool" yaml:"tool"`
	Status   string        `json:"status" yaml:"status"` // "success", "error"
	ExitCode int           `json:"exit_code" yaml:"exit_code"`
	Failure  FailureKind   `json:"failure,omitempty" yaml:"failure,omitempty"`
	Detail   string        `json:"detail,omitempty" yaml:"detail,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

func (r *ToolRun) fail(kind FailureKind, detail string) {
	r.Status = "error"
	r.Failure = kind
	r.Detail = strings.TrimSpace(detail)
}

// Report is the aggregate result of one review run over one file
type Report struct {
	RunID            string        `json:"run_id" yaml:"run_id"`
	Filename         string        `json:"filename" yaml:"filename"`
	Source           string        `json:"source,omitempty" yaml:"source,omitempty"` // path as supplied by the caller
	GeneratedAt      time.Time     `json:"generated_at" yaml:"generated_at"`
	ExecutionTime    time.Duration `json:"execution_time" yaml:"execution_time"`
	LintScore        ScoreValue    `json:"lint_score" yaml:"lint_score"`
	FormattingIssues []string      `json:"formatting_issues" yaml:"formatting_issues"`
	LintIssues       []Issue       `json:"lint_issues" yaml:"lint_issues"`
	SecretIssues     []string      `json:"secret_issues" yaml:"secret_issues"`
	Checks           []ToolRun     `json:"checks" yaml:"checks"`
}

// IssueCount returns the total number of findings across all checks, excluding the
// informational score-provenance entry
func (r *Report) IssueCount() int {
	n := len(r.FormattingIssues) + len(r.SecretIssues)
	for _, iss := range r.LintIssues {
		if iss.Category == CategoryInfo && iss.Symbol == SymbolNativeScore {
			continue
		}
		n++
	}
	return n
}

// CountByCategory tallies lint issues per category
func (r *Report) CountByCategory() map[Category]int {
	counts := make(map[Category]int, len(Categories))
	for _, iss := range r.LintIssues {
		counts[iss.Category]++
	}
	return counts
}

// ErrTargetInaccessible is returned when the file under review cannot be accessed at all
var ErrTargetInaccessible = errors.New("review target is not accessible")
