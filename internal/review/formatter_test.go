package review

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleReport() *Report {
	return &Report{
		RunID:            "4b6f0a36-54f4-4d45-9a0e-0b8f6c4c8e21",
		Filename:         "app.py",
		Source:           "src/app.py",
		GeneratedAt:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		ExecutionTime:    1500 * time.Millisecond,
		LintScore:        "7.50",
		FormattingIssues: []string{"File requires reformatting by Black."},
		LintIssues: []Issue{
			{Category: CategoryConvention, Symbol: "missing-module-docstring", Message: "Missing module docstring", Line: 1},
			{Category: CategorySecurity, Symbol: SymbolInsecureHash, Message: "MD5 is a cryptographically insecure hash function."},
			{Category: CategoryInfo, Symbol: SymbolNativeScore, Message: "Native pylint score: 7.50/10 (Calculated: 9.25/10)", NativeScore: "7.50", CalculatedScore: "9.25"},
		},
		SecretIssues: []string{"Line 3: Potential 'Secret Keyword' secret detected."},
		Checks: []ToolRun{
			{Check: CheckFormatting, Tool: "black", Status: "success", ExitCode: 1},
			{Check: CheckLint, Tool: "pylint", Status: "success", ExitCode: 16},
			{Check: CheckSecrets, Tool: "detect-secrets", Status: "success", ExitCode: 1},
			{Check: CheckHeuristics, Tool: "builtin", Status: "success"},
		},
	}
}

func cleanReport() *Report {
	return &Report{
		RunID:            "c1",
		Filename:         "ok.py",
		LintScore:        ScorePerfect,
		FormattingIssues: []string{},
		LintIssues:       []Issue{},
		SecretIssues:     []string{},
		Checks:           []ToolRun{{Check: CheckFormatting, Tool: "black", Status: "success"}},
	}
}

func TestParseOutputFormat(t *testing.T) {
	f, err := ParseOutputFormat(" SARIF ")
	require.NoError(t, err)
	assert.Equal(t, FormatSARIF, f)

	_, err = ParseOutputFormat("pdf")
	assert.Error(t, err)
}

func TestFormatJSON_SingleObjectBatchArray(t *testing.T) {
	out, err := NewFormatter(FormatJSON).FormatReports([]*Report{sampleReport()})
	require.NoError(t, err)
	var single map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &single))
	assert.Equal(t, "app.py", single["filename"])
	assert.Equal(t, "7.50", single["lint_score"])
	for _, key := range []string{"formatting_issues", "lint_issues", "secret_issues", "execution_time", "run_id"} {
		assert.Contains(t, single, key)
	}

	out, err = NewFormatter(FormatJSON).FormatReports([]*Report{sampleReport(), cleanReport()})
	require.NoError(t, err)
	var batch []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &batch))
	assert.Len(t, batch, 2)
}

func TestFormatYAML(t *testing.T) {
	out, err := NewFormatter(FormatYAML).FormatReports([]*Report{sampleReport()})
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "7.50", doc["lint_score"])
	assert.Len(t, doc["lint_issues"], 3)
}

func TestFormatConcise(t *testing.T) {
	color.NoColor = true
	out, err := NewFormatter(FormatConcise).FormatReports([]*Report{sampleReport()})
	require.NoError(t, err)

	assert.Contains(t, out, "src/app.py score=7.50/10")
	assert.Contains(t, out, "L1 Convention [missing-module-docstring]")
	assert.Contains(t, out, "L- Security [insecure-hash-algorithm]")
	assert.NotContains(t, out, SymbolNativeScore)
	assert.Contains(t, out, "4 issue(s) across 1 file(s)")

	clean, err := NewFormatter(FormatConcise).FormatReports([]*Report{cleanReport()})
	require.NoError(t, err)
	assert.Contains(t, clean, "No issues found")
}

func TestFormatConcise_MaxIssues(t *testing.T) {
	color.NoColor = true
	f := NewFormatter(FormatConcise)
	f.SetMaxIssues(1)
	out, err := f.FormatReports([]*Report{sampleReport()})
	require.NoError(t, err)
	assert.Contains(t, out, "(+1 more lint issues)")
}

func TestFormatMarkdown(t *testing.T) {
	out, err := NewFormatter(FormatMarkdown).FormatReports([]*Report{sampleReport()})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "# Python Code Review Report"))
	assert.Contains(t, out, "## src/app.py")
	assert.Contains(t, out, "**Lint Score:** 7.50/10")
	assert.Contains(t, out, "| Formatting | black | success | 1 |")
	assert.Contains(t, out, "| 1 | Convention | missing-module-docstring | Missing module docstring |")
	assert.Contains(t, out, "- Line 3: Potential 'Secret Keyword' secret detected.")
}

func TestFormatHTML(t *testing.T) {
	out, err := NewFormatter(FormatHTML).FormatReports([]*Report{sampleReport(), cleanReport()})
	require.NoError(t, err)

	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, "src/app.py")
	assert.Contains(t, out, "7.50/10")
	assert.Contains(t, out, "score-fair")
	assert.Contains(t, out, "missing-module-docstring")
	assert.Contains(t, out, "No potential secrets detected.")
	assert.Contains(t, out, "4 findings")
	assert.Contains(t, out, "0 findings")
}

func TestFormatSARIF(t *testing.T) {
	f := NewFormatter(FormatSARIF)
	f.SetVersion("1.2.3")
	out, err := f.FormatReports([]*Report{sampleReport()})
	require.NoError(t, err)

	var log struct {
		Version string `json:"version"`
		Runs    []struct {
			Tool struct {
				Driver struct {
					Name    string `json:"name"`
					Version string `json:"version"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID    string `json:"ruleId"`
				Level     string `json:"level"`
				Locations []struct {
					PhysicalLocation struct {
						Region *struct {
							StartLine int `json:"startLine"`
						} `json:"region"`
					} `json:"physicalLocation"`
				} `json:"locations"`
			} `json:"results"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &log))
	assert.Equal(t, "2.1.0", log.Version)
	require.Len(t, log.Runs, 1)
	assert.Equal(t, "pyreview", log.Runs[0].Tool.Driver.Name)
	assert.Equal(t, "1.2.3", log.Runs[0].Tool.Driver.Version)

	results := log.Runs[0].Results
	require.Len(t, results, 4)
	byRule := map[string]int{}
	for i, r := range results {
		byRule[r.RuleID] = i
	}
	conv := results[byRule["pylint/missing-module-docstring"]]
	require.NotNil(t, conv.Locations[0].PhysicalLocation.Region)
	assert.Equal(t, 1, conv.Locations[0].PhysicalLocation.Region.StartLine)

	sec := results[byRule["security/"+SymbolInsecureHash]]
	assert.Equal(t, "error", sec.Level)
	assert.Nil(t, sec.Locations[0].PhysicalLocation.Region)

	secret := results[byRule["detect-secrets/potential-secret"]]
	require.NotNil(t, secret.Locations[0].PhysicalLocation.Region)
	assert.Equal(t, 3, secret.Locations[0].PhysicalLocation.Region.StartLine)
}

func TestFormatSARIF_FailedChecksBecomeNotifications(t *testing.T) {
	r := sampleReport()
	r.FormattingIssues = []string{"Black encountered an error: cannot parse"}
	r.SecretIssues = []string{"Detect-secrets command failed: failed to launch detect-secrets"}
	r.LintIssues = []Issue{
		{Category: CategoryFatal, Symbol: SymbolCommandError, Message: "pylint terminated by signal: signal: killed"},
		{Category: CategorySecurity, Symbol: SymbolInsecureHash, Message: "MD5 is a cryptographically insecure hash function."},
	}
	r.Checks = []ToolRun{
		{Check: CheckFormatting, Tool: "black", Status: "error", Failure: FailureTool, ExitCode: 123},
		{Check: CheckLint, Tool: "pylint", Status: "error", Failure: FailureTool, ExitCode: ExitSignaled},
		{Check: CheckSecrets, Tool: "detect-secrets", Status: "error", Failure: FailureLaunch, ExitCode: ExitLaunchFailure},
		{Check: CheckHeuristics, Tool: "builtin", Status: "success"},
	}

	out, err := NewFormatter(FormatSARIF).FormatReports([]*Report{r})
	require.NoError(t, err)

	var log struct {
		Runs []struct {
			Results []struct {
				RuleID string `json:"ruleId"`
			} `json:"results"`
			Invocations []struct {
				ExecutionSuccessful bool `json:"executionSuccessful"`
				Notifications       []struct {
					Level   string `json:"level"`
					Message struct {
						Text string `json:"text"`
					} `json:"message"`
				} `json:"toolExecutionNotifications"`
			} `json:"invocations"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &log))
	require.Len(t, log.Runs, 1)

	results := log.Runs[0].Results
	require.Len(t, results, 1)
	assert.Equal(t, "security/"+SymbolInsecureHash, results[0].RuleID)

	require.Len(t, log.Runs[0].Invocations, 1)
	inv := log.Runs[0].Invocations[0]
	assert.False(t, inv.ExecutionSuccessful)
	require.Len(t, inv.Notifications, 3)
	assert.Equal(t, "error", inv.Notifications[0].Level)
	assert.Equal(t, "formatting (black) failed: Black encountered an error: cannot parse", inv.Notifications[0].Message.Text)
	assert.Contains(t, inv.Notifications[1].Message.Text, "terminated by signal")
	assert.Contains(t, inv.Notifications[2].Message.Text, "Detect-secrets command failed")
	assert.NotContains(t, out, "detect-secrets/potential-secret")
}

func TestFormatJUnit(t *testing.T) {
	out, err := NewFormatter(FormatJUnit).FormatReports([]*Report{sampleReport(), cleanReport()})
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(out))
	root := doc.SelectElement("testsuites")
	require.NotNil(t, root)
	suites := root.SelectElements("testsuite")
	require.Len(t, suites, 2)

	assert.Equal(t, "src/app.py", suites[0].SelectAttrValue("name", ""))
	assert.Equal(t, "4", suites[0].SelectAttrValue("tests", ""))
	assert.Equal(t, "4", suites[0].SelectAttrValue("failures", ""))
	assert.Equal(t, "0", suites[1].SelectAttrValue("failures", ""))
	assert.Equal(t, "5", root.SelectAttrValue("tests", ""))
}
