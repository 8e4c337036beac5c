package review

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"
)

const informationURI = "https://github.com/fulmenhq/pyreview"

// FormatSARIFReport renders reports as a SARIF 2.1.0 log with one run. Every finding
// becomes a result; formatting and secret lines use synthetic rule ids. Diagnostics from a
// check that failed are emitted as tool execution notifications instead of results.
func FormatSARIFReport(reports []*Report, version string) (string, error) {
	log, err := sarif.New(sarif.Version210)
	if err != nil {
		return "", fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI("pyreview", informationURI)
	if version != "" {
		run.Tool.Driver.Version = &version
	}
	seen := map[string]bool{}
	addRule := func(id, description string) {
		if seen[id] {
			return
		}
		seen[id] = true
		run.AddRule(id).WithDescription(description)
	}
	var notifications []*sarif.Notification

	for _, r := range reports {
		uri := displayName(r)
		failed := failedChecks(r)
		for _, tr := range r.Checks {
			if tr.Status == "error" {
				msg := strings.Join(checkDiagnostics(r, tr), "\n")
				notifications = append(notifications, sarifNotification(tr, msg, uri))
			}
		}

		if !failed[CheckFormatting] {
			for _, msg := range r.FormattingIssues {
				addRule("black/reformat", "File does not match black formatting")
				run.AddResult(sarifResult("black/reformat", msg, "warning", uri, 0))
			}
		}
		for _, iss := range r.LintIssues {
			if iss.Symbol == SymbolNativeScore || (failed[CheckLint] && isLintDiagnostic(iss)) {
				continue
			}
			id := ruleID(iss)
			addRule(id, string(iss.Category)+" finding "+iss.Symbol)
			run.AddResult(sarifResult(id, iss.Message, sarifLevel(iss.Category), uri, iss.Line))
		}
		if !failed[CheckSecrets] {
			for _, msg := range r.SecretIssues {
				addRule("detect-secrets/potential-secret", "Potential secret committed to source")
				run.AddResult(sarifResult("detect-secrets/potential-secret", msg, "error", uri, secretLine(msg)))
			}
		}
	}
	run.AddInvocations(sarif.NewInvocation().
		WithExecutionSuccess(len(notifications) == 0).
		WithToolExecutionNotifications(notifications))
	log.AddRun(run)

	var buf bytes.Buffer
	if err := log.PrettyWrite(&buf); err != nil {
		return "", fmt.Errorf("failed to write SARIF report: %w", err)
	}
	return buf.String(), nil
}

func failedChecks(r *Report) map[string]bool {
	failed := map[string]bool{}
	for _, tr := range r.Checks {
		if tr.Status == "error" {
			failed[tr.Check] = true
		}
	}
	return failed
}

// checkDiagnostics returns the report lines a failed check produced, or its run detail
func checkDiagnostics(r *Report, tr ToolRun) []string {
	var lines []string
	switch tr.Check {
	case CheckFormatting:
		lines = r.FormattingIssues
	case CheckSecrets:
		lines = r.SecretIssues
	case CheckLint:
		for _, iss := range r.LintIssues {
			if isLintDiagnostic(iss) {
				lines = append(lines, iss.Message)
			}
		}
	}
	if len(lines) == 0 && tr.Detail != "" {
		lines = []string{tr.Detail}
	}
	if len(lines) == 0 {
		lines = []string{fmt.Sprintf("%s check failed", tr.Check)}
	}
	return lines
}

// isLintDiagnostic reports whether iss was synthesized by the lint adapter to describe its
// own failure rather than a finding in the file
func isLintDiagnostic(iss Issue) bool {
	switch iss.Symbol {
	case SymbolCommandError, SymbolCommandTimeout, SymbolJSONParseError, SymbolPylintStderr:
		return iss.Category == CategoryFatal
	}
	return false
}

func sarifNotification(tr ToolRun, message, uri string) *sarif.Notification {
	physical := sarif.NewPhysicalLocation().
		WithArtifactLocation(sarif.NewArtifactLocation().WithUri(uri))
	return sarif.NewNotification().
		WithLevel("error").
		WithDescriptor(sarif.NewReportingDescriptorReference().WithId(tr.Check)).
		WithTextMessage(fmt.Sprintf("%s (%s) failed: %s", tr.Check, tr.Tool, message)).
		WithLocations([]*sarif.Location{sarif.NewLocation().WithPhysicalLocation(physical)})
}

func sarifResult(ruleID, message, level, uri string, line int) *sarif.Result {
	physical := sarif.NewPhysicalLocation().
		WithArtifactLocation(sarif.NewArtifactLocation().WithUri(uri))
	if line > 0 {
		physical = physical.WithRegion(sarif.NewRegion().WithStartLine(line))
	}
	return sarif.NewRuleResult(ruleID).
		WithMessage(sarif.NewTextMessage(message)).
		WithLevel(level).
		WithLocations([]*sarif.Location{sarif.NewLocation().WithPhysicalLocation(physical)})
}

func ruleID(iss Issue) string {
	switch iss.Category {
	case CategorySecurity:
		return "security/" + iss.Symbol
	default:
		return "pylint/" + iss.Symbol
	}
}

func sarifLevel(c Category) string {
	switch c {
	case CategoryFatal, CategoryError, CategorySecurity:
		return "error"
	case CategoryWarning:
		return "warning"
	case CategoryInfo:
		return "none"
	default:
		return "note"
	}
}

// secretLine recovers the line number from a "Line N: ..." secret finding
func secretLine(msg string) int {
	var n int
	if _, err := fmt.Sscanf(msg, "Line %d:", &n); err != nil {
		return 0
	}
	return n
}
