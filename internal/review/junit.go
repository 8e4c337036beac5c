package review

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// FormatJUnitReport renders reports as JUnit XML: one testsuite per file and one testcase
// per check, failing when the check produced findings or errored.
func FormatJUnitReport(reports []*Report) (string, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	suites := doc.CreateElement("testsuites")
	suites.CreateAttr("name", "pyreview")

	totalTests, totalFailures := 0, 0
	for _, r := range reports {
		suite := suites.CreateElement("testsuite")
		suite.CreateAttr("name", displayName(r))
		suite.CreateAttr("timestamp", r.GeneratedAt.Format("2006-01-02T15:04:05"))
		suite.CreateAttr("time", seconds(r.ExecutionTime.Seconds()))

		props := suite.CreateElement("properties")
		prop := props.CreateElement("property")
		prop.CreateAttr("name", "lint_score")
		prop.CreateAttr("value", string(r.LintScore))

		failures := 0
		for _, run := range r.Checks {
			tc := suite.CreateElement("testcase")
			tc.CreateAttr("classname", "pyreview."+run.Check)
			tc.CreateAttr("name", run.Check)
			tc.CreateAttr("time", seconds(run.Duration.Seconds()))

			findings := checkFindings(r, run.Check)
			switch {
			case run.Status == "error":
				el := tc.CreateElement("error")
				el.CreateAttr("type", string(run.Failure))
				el.CreateAttr("message", firstLine(run.Detail))
				el.SetText(strings.Join(findings, "\n"))
				failures++
			case len(findings) > 0:
				el := tc.CreateElement("failure")
				el.CreateAttr("message", fmt.Sprintf("%d finding(s)", len(findings)))
				el.SetText(strings.Join(findings, "\n"))
				failures++
			}
		}
		suite.CreateAttr("tests", strconv.Itoa(len(r.Checks)))
		suite.CreateAttr("failures", strconv.Itoa(failures))
		totalTests += len(r.Checks)
		totalFailures += failures
	}
	suites.CreateAttr("tests", strconv.Itoa(totalTests))
	suites.CreateAttr("failures", strconv.Itoa(totalFailures))

	doc.Indent(2)
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("failed to write JUnit report: %w", err)
	}
	return buf.String(), nil
}

// checkFindings lists the report lines attributable to one check
func checkFindings(r *Report, check string) []string {
	var out []string
	switch check {
	case CheckFormatting:
		out = append(out, r.FormattingIssues...)
	case CheckSecrets:
		out = append(out, r.SecretIssues...)
	case CheckLint, CheckHeuristics:
		for _, iss := range r.LintIssues {
			if iss.Symbol == SymbolNativeScore {
				continue
			}
			if (check == CheckHeuristics) != (iss.Category == CategorySecurity) {
				continue
			}
			out = append(out, fmt.Sprintf("%s %s [%s] %s", lineLabel(iss.Line), iss.Category, iss.Symbol, iss.Message))
		}
	}
	return out
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
