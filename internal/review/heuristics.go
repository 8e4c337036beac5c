package review

import (
	"os"
	"regexp"

	"github.com/fulmenhq/pyreview/pkg/logger"
)

// Symbols emitted by the heuristic scanner
const (
	SymbolInsecureHash            = "insecure-hash-algorithm"
	SymbolInsecureRandom          = "insecure-random"
	SymbolInsecureDeserialization = "insecure-deserialization"
	SymbolInsecureTempFile        = "insecure-temp-file"
	SymbolSubprocessShell         = "subprocess-shell-true"
	SymbolSQLInjection            = "sql-injection-risk"
)

type heuristicCheck struct {
	symbol  string
	message string
	// all patterns must match for the check to fire
	patterns []*regexp.Regexp
}

var heuristicChecks = []heuristicCheck{
	{
		symbol:   SymbolInsecureHash,
		message:  "MD5 is a cryptographically insecure hash function. Consider using SHA-256 or better.",
		patterns: []*regexp.Regexp{regexp.MustCompile(`import\s+hashlib.*?md5|hashlib\.md5|from\s+hashlib\s+import\s+md5`)},
	},
	{
		symbol:   SymbolInsecureHash,
		message:  "SHA1 is a cryptographically insecure hash function. Consider using SHA-256 or better.",
		patterns: []*regexp.Regexp{regexp.MustCompile(`import\s+hashlib.*?sha1|hashlib\.sha1|from\s+hashlib\s+import\s+sha1`)},
	},
	{
		symbol:  SymbolInsecureRandom,
		message: "Using standard 'random' module with security-sensitive data. Use 'secrets' module instead for cryptographic purposes.",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`import\s+random|from\s+random\s+import`),
			regexp.MustCompile(`(?i)password|token|secret|key`),
		},
	},
	{
		symbol:   SymbolInsecureDeserialization,
		message:  "Using 'pickle' module which can lead to arbitrary code execution if deserializing untrusted data.",
		patterns: []*regexp.Regexp{regexp.MustCompile(`import\s+pickle|from\s+pickle\s+import`)},
	},
	{
		symbol:   SymbolInsecureTempFile,
		message:  "Using 'tempfile.mktemp' which is vulnerable to race conditions. Use 'tempfile.mkstemp' instead.",
		patterns: []*regexp.Regexp{regexp.MustCompile(`tempfile\.mktemp`)},
	},
	{
		symbol:   SymbolSubprocessShell,
		message:  "Using 'shell=True' with subprocess functions is a security risk if combined with untrusted input.",
		patterns: []*regexp.Regexp{regexp.MustCompile(`subprocess\.(?:call|run|Popen).*?shell\s*=\s*True`)},
	},
	{
		symbol:   SymbolSQLInjection,
		message:  "Possible SQL injection risk. Use parameterized queries or an ORM instead of string formatting/concatenation.",
		patterns: []*regexp.Regexp{regexp.MustCompile(`cursor\.execute\s*\(.*?%|cursor\.execute\s*\(.*?\+|cursor\.execute\s*\(.*?\.format|cursor\.execute\s*\(.*?f"`)},
	},
}

// ScanHeuristics reads path once and applies every pattern check to its content. An
// unreadable file yields an empty list; ok reports whether the file could be read.
func ScanHeuristics(path string) (issues []Issue, ok bool) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is the staged review target
	if err != nil {
		logger.Warn("heuristic security scan skipped", logger.String("path", path), logger.Err(err))
		return []Issue{}, false
	}
	return ScanHeuristicContent(string(data)), true
}

// ScanHeuristicContent applies the heuristic battery to source text. Every finding is a
// whole-file Security issue with line 0.
func ScanHeuristicContent(content string) []Issue {
	issues := []Issue{}
	for _, check := range heuristicChecks {
		if check.matches(content) {
			issues = append(issues, Issue{
				Category: CategorySecurity,
				Symbol:   check.symbol,
				Message:  check.message,
			})
		}
	}
	return issues
}

func (c heuristicCheck) matches(content string) bool {
	for _, p := range c.patterns {
		if !p.MatchString(content) {
			return false
		}
	}
	return true
}
