/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package review

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aymerick/raymond"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/fulmenhq/pyreview/internal/assets"
)

// OutputFormat represents the format for review output
type OutputFormat string

const (
	// Concise is a short, colorized summary ideal for terminals and hook logs
	FormatConcise  OutputFormat = "concise"
	FormatMarkdown OutputFormat = "markdown"
	FormatJSON     OutputFormat = "json"
	FormatYAML     OutputFormat = "yaml"
	FormatHTML     OutputFormat = "html"
	FormatSARIF    OutputFormat = "sarif"
	FormatJUnit    OutputFormat = "junit"
)

// OutputFormats lists every supported format in help-text order
var OutputFormats = []OutputFormat{FormatConcise, FormatMarkdown, FormatJSON, FormatYAML, FormatHTML, FormatSARIF, FormatJUnit}

// ParseOutputFormat validates a user-supplied format name
func ParseOutputFormat(s string) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range OutputFormats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// concise messages wider than this are truncated
const conciseMessageWidth = 96

// Formatter renders review reports
type Formatter struct {
	format    OutputFormat
	maxIssues int
	version   string
}

// NewFormatter creates a new report formatter
func NewFormatter(format OutputFormat) *Formatter {
	return &Formatter{format: format, version: "dev"}
}

// SetMaxIssues caps the lint issues listed per file in human-oriented formats; 0 means no cap.
// Machine formats always carry every issue.
func (f *Formatter) SetMaxIssues(n int) {
	if n < 0 {
		n = 0
	}
	f.maxIssues = n
}

// SetVersion sets the tool version stamped into html, sarif and junit output
func (f *Formatter) SetVersion(v string) {
	if strings.TrimSpace(v) != "" {
		f.version = v
	}
}

// FormatReports renders reports according to the configured format. JSON and YAML emit a
// single object for one report and a list otherwise.
func (f *Formatter) FormatReports(reports []*Report) (string, error) {
	switch f.format {
	case FormatConcise:
		return f.formatConcise(reports), nil
	case FormatMarkdown:
		return f.formatMarkdown(reports), nil
	case FormatJSON:
		return f.formatJSON(reports)
	case FormatYAML:
		return f.formatYAML(reports)
	case FormatHTML:
		return f.formatHTML(reports)
	case FormatSARIF:
		return FormatSARIFReport(reports, f.version)
	case FormatJUnit:
		return FormatJUnitReport(reports)
	default:
		return "", fmt.Errorf("unsupported format: %s", f.format)
	}
}

// WriteReports writes formatted reports to the given writer
func (f *Formatter) WriteReports(w io.Writer, reports []*Report) error {
	output, err := f.FormatReports(reports)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(output, "\n") {
		output += "\n"
	}
	_, err = io.WriteString(w, output)
	return err
}

func (f *Formatter) formatConcise(reports []*Report) string {
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	var sb strings.Builder
	total := 0
	for _, r := range reports {
		total += r.IssueCount()

		scoreStr := string(r.LintScore) + "/10"
		switch scoreBand(r.LintScore) {
		case "good":
			scoreStr = green(scoreStr)
		case "fair":
			scoreStr = yellow(scoreStr)
		default:
			scoreStr = red(scoreStr)
		}
		fmt.Fprintf(&sb, "%s score=%s | issues: %d | time: %s\n",
			bold(displayName(r)), scoreStr, r.IssueCount(), r.ExecutionTime.Round(time.Millisecond))

		for _, run := range r.Checks {
			if run.Status == "error" {
				fmt.Fprintf(&sb, "   %s %s (%s): %s\n", red("!"), run.Check, run.Failure,
					runewidth.Truncate(firstLine(run.Detail), conciseMessageWidth, "…"))
			}
		}
		for _, msg := range r.FormattingIssues {
			fmt.Fprintf(&sb, " - format: %s\n", runewidth.Truncate(firstLine(msg), conciseMessageWidth, "…"))
		}
		shown := 0
		for _, iss := range r.LintIssues {
			if iss.Symbol == SymbolNativeScore {
				continue
			}
			if f.maxIssues > 0 && shown >= f.maxIssues {
				fmt.Fprintf(&sb, "   (+%d more lint issues)\n", countLint(r)-shown)
				break
			}
			shown++
			fmt.Fprintf(&sb, " - %s %s [%s]: %s\n", lineLabel(iss.Line), categoryColor(iss.Category), iss.Symbol,
				runewidth.Truncate(firstLine(iss.Message), conciseMessageWidth, "…"))
		}
		for _, msg := range r.SecretIssues {
			fmt.Fprintf(&sb, " - %s %s\n", red("secret:"), msg)
		}
	}

	if total == 0 {
		sb.WriteString(green("✅ No issues found"))
	} else {
		fmt.Fprintf(&sb, "%s", yellow(fmt.Sprintf("⚠️ %d issue(s) across %d file(s)", total, len(reports))))
	}
	return sb.String()
}

func (f *Formatter) formatMarkdown(reports []*Report) string {
	title := cases.Title(language.English)
	var sb strings.Builder

	sb.WriteString("# Python Code Review Report\n\n")
	for _, r := range reports {
		fmt.Fprintf(&sb, "## %s\n\n", displayName(r))
		fmt.Fprintf(&sb, "**Generated:** %s\n", r.GeneratedAt.Format(time.RFC3339))
		fmt.Fprintf(&sb, "**Run:** %s\n", r.RunID)
		fmt.Fprintf(&sb, "**Execution Time:** %v\n", r.ExecutionTime.Round(time.Millisecond))
		fmt.Fprintf(&sb, "**Lint Score:** %s/10\n\n", r.LintScore)

		sb.WriteString("| Check | Tool | Status | Exit Code | Duration |\n")
		sb.WriteString("|-------|------|--------|-----------|----------|\n")
		for _, run := range r.Checks {
			fmt.Fprintf(&sb, "| %s | %s | %s | %d | %v |\n", title.String(run.Check), run.Tool, run.Status, run.ExitCode, run.Duration.Round(time.Millisecond))
		}
		sb.WriteString("\n")

		sb.WriteString("### Formatting\n\n")
		writeMarkdownList(&sb, r.FormattingIssues, "File is formatted.")

		sb.WriteString("### Lint\n\n")
		if len(r.LintIssues) == 0 {
			sb.WriteString("_No lint issues._\n\n")
		} else {
			counts := r.CountByCategory()
			parts := make([]string, 0, len(Categories))
			for _, c := range Categories {
				if counts[c] > 0 {
					parts = append(parts, fmt.Sprintf("%s: %d", c, counts[c]))
				}
			}
			fmt.Fprintf(&sb, "%s\n\n", strings.Join(parts, " · "))

			sb.WriteString("| Line | Category | Symbol | Message |\n")
			sb.WriteString("|------|----------|--------|---------|\n")
			maxToShow := len(r.LintIssues)
			if f.maxIssues > 0 && f.maxIssues < maxToShow {
				maxToShow = f.maxIssues
			}
			for _, iss := range r.LintIssues[:maxToShow] {
				line := ""
				if iss.Line > 0 {
					line = fmt.Sprintf("%d", iss.Line)
				}
				fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", line, iss.Category, iss.Symbol, markdownCell(iss.Message))
			}
			if maxToShow < len(r.LintIssues) {
				fmt.Fprintf(&sb, "\n_Showing %d of %d issues. Use --format json for full details._\n", maxToShow, len(r.LintIssues))
			}
			sb.WriteString("\n")
		}

		sb.WriteString("### Secrets\n\n")
		writeMarkdownList(&sb, r.SecretIssues, "No potential secrets detected.")
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func writeMarkdownList(sb *strings.Builder, items []string, empty string) {
	if len(items) == 0 {
		fmt.Fprintf(sb, "_%s_\n\n", empty)
		return
	}
	for _, it := range items {
		fmt.Fprintf(sb, "- %s\n", strings.ReplaceAll(strings.TrimSpace(it), "\n", " "))
	}
	sb.WriteString("\n")
}

func (f *Formatter) formatJSON(reports []*Report) (string, error) {
	var v interface{} = reports
	if len(reports) == 1 {
		v = reports[0]
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report to JSON: %w", err)
	}
	return string(data), nil
}

func (f *Formatter) formatYAML(reports []*Report) (string, error) {
	var v interface{} = reports
	if len(reports) == 1 {
		v = reports[0]
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to marshal report to YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type htmlIssue struct {
	Line     string `json:"line"`
	Category string `json:"category"`
	Symbol   string `json:"symbol"`
	Message  string `json:"message"`
}

type htmlReport struct {
	RunID            string      `json:"runId"`
	Filename         string      `json:"filename"`
	Score            string      `json:"score"`
	ScoreClass       string      `json:"scoreClass"`
	ExecutionTime    string      `json:"executionTime"`
	IssueCount       int         `json:"issueCount"`
	FormattingIssues []string    `json:"formattingIssues"`
	LintIssues       []htmlIssue `json:"lintIssues"`
	SecretIssues     []string    `json:"secretIssues"`
}

func (f *Formatter) formatHTML(reports []*Report) (string, error) {
	tpl, ok := assets.GetTemplate(assets.ReportHTMLTemplate)
	if !ok {
		return "", fmt.Errorf("embedded template %s not found", assets.ReportHTMLTemplate)
	}

	views := make([]map[string]interface{}, 0, len(reports))
	generated := time.Now().UTC()
	for _, r := range reports {
		view := htmlReport{
			RunID:            r.RunID,
			Filename:         displayName(r),
			Score:            string(r.LintScore),
			ScoreClass:       scoreBand(r.LintScore),
			ExecutionTime:    r.ExecutionTime.Round(time.Millisecond).String(),
			IssueCount:       r.IssueCount(),
			FormattingIssues: r.FormattingIssues,
			SecretIssues:     r.SecretIssues,
		}
		for _, iss := range r.LintIssues {
			line := ""
			if iss.Line > 0 {
				line = fmt.Sprintf("%d", iss.Line)
			}
			view.LintIssues = append(view.LintIssues, htmlIssue{Line: line, Category: string(iss.Category), Symbol: iss.Symbol, Message: iss.Message})
		}
		views = append(views, structToMap(view))
		if !r.GeneratedAt.IsZero() && r.GeneratedAt.Before(generated) {
			generated = r.GeneratedAt
		}
	}

	return renderHandlebars(string(tpl), map[string]interface{}{
		"generatedAt": generated.Format(time.RFC3339),
		"version":     f.version,
		"reports":     views,
	})
}

// structToMap converts a view struct through its JSON tags so templates see camelCase keys
func structToMap(v interface{}) map[string]interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{}
	}
	out := map[string]interface{}{}
	_ = json.Unmarshal(data, &out)
	return out
}

var registerHelpersOnce sync.Once

// renderHandlebars renders a Handlebars template string with helpers registered
func renderHandlebars(tpl string, data interface{}) (string, error) {
	registerHelpersOnce.Do(func() {
		raymond.RegisterHelper("plural", func(n interface{}) string {
			var v float64
			_, _ = fmt.Sscanf(fmt.Sprintf("%v", n), "%g", &v)
			if v == 1 {
				return ""
			}
			return "s"
		})
	})
	out, err := raymond.Render(tpl, data)
	if err != nil {
		return "", fmt.Errorf("error rendering template: %w", err)
	}
	return out, nil
}

func scoreBand(s ScoreValue) string {
	v, ok := s.Float()
	switch {
	case !ok:
		return "poor"
	case v >= 8:
		return "good"
	case v >= 5:
		return "fair"
	default:
		return "poor"
	}
}

func categoryColor(c Category) string {
	switch c {
	case CategoryFatal, CategoryError, CategorySecurity:
		return color.RedString("%s", c)
	case CategoryWarning:
		return color.YellowString("%s", c)
	default:
		return string(c)
	}
}

func displayName(r *Report) string {
	if strings.TrimSpace(r.Source) != "" {
		return r.Source
	}
	return r.Filename
}

func lineLabel(line int) string {
	if line <= 0 {
		return "L-"
	}
	return fmt.Sprintf("L%d", line)
}

func countLint(r *Report) int {
	n := 0
	for _, iss := range r.LintIssues {
		if iss.Symbol != SymbolNativeScore {
			n++
		}
	}
	return n
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func markdownCell(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}
