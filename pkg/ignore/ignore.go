// Package ignore provides gitignore-based file filtering using go-git
package ignore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// IgnoreFileName is the repo-level ignore file for pyreview-specific exclusions
const IgnoreFileName = ".pyreviewignore"

// DefaultPatterns are directories no review target ever lives in
var DefaultPatterns = []string{
	".git", ".hg", ".svn",
	".venv", "venv", "env", ".env",
	"__pycache__", ".tox", ".nox", ".mypy_cache", ".pytest_cache", ".ruff_cache",
	"*.egg-info", "node_modules", ".ipynb_checkpoints",
}

// Matcher provides gitignore-based file filtering rooted at one directory
type Matcher struct {
	root    string
	matcher gitignore.Matcher
}

// NewMatcher creates a matcher with layered ignore files:
// 1. built-in Python tooling directories
// 2. .gitignore files and .git/info/exclude under root
// 3. root/.pyreviewignore (repo overrides)
// 4. $PYREVIEW_HOME/.pyreviewignore (user overrides)
func NewMatcher(root string) (*Matcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve ignore root: %w", err)
	}

	var allPatterns []gitignore.Pattern
	for _, pattern := range DefaultPatterns {
		allPatterns = append(allPatterns, gitignore.ParsePattern(pattern, nil))
	}

	if gitPatterns, err := gitignore.ReadPatterns(osfs.New(absRoot), nil); err == nil {
		allPatterns = append(allPatterns, gitPatterns...)
	}

	for _, path := range ignoreFiles(absRoot) {
		patterns, err := readIgnoreFile(path)
		if err != nil {
			continue
		}
		for _, pattern := range patterns {
			allPatterns = append(allPatterns, gitignore.ParsePattern(pattern, nil))
		}
	}

	return &Matcher{root: absRoot, matcher: gitignore.NewMatcher(allPatterns)}, nil
}

func ignoreFiles(root string) []string {
	files := []string{filepath.Join(root, IgnoreFileName)}
	home := os.Getenv("PYREVIEW_HOME")
	if home == "" {
		if userHome, err := os.UserHomeDir(); err == nil {
			home = filepath.Join(userHome, ".pyreview")
		}
	}
	if home != "" {
		files = append(files, filepath.Join(home, IgnoreFileName))
	}
	return files
}

// readIgnoreFile reads patterns from a gitignore-syntax text file
func readIgnoreFile(path string) ([]string, error) {
	cleaned := filepath.Clean(path)
	if filepath.Base(cleaned) != IgnoreFileName {
		return nil, fmt.Errorf("disallowed ignore file path: %s", cleaned)
	}
	content, err := os.ReadFile(cleaned) // #nosec G304 -- path cleaned and allowlisted
	if err != nil {
		return nil, err
	}

	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, nil
}

// IsIgnored checks if a file path should be ignored. Paths outside the root never are.
func (m *Matcher) IsIgnored(path string) bool {
	return m.match(path, false)
}

// IsIgnoredDir checks if a directory should be skipped during traversal
func (m *Matcher) IsIgnoredDir(path string) bool {
	return m.match(path, true)
}

func (m *Matcher) match(path string, isDir bool) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(m.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	parts := splitPath(filepath.ToSlash(rel))
	if len(parts) == 0 {
		return false
	}
	return m.matcher.Match(parts, isDir)
}

// splitPath converts a slash-separated path into components for go-git matching
func splitPath(path string) []string {
	if path == "" || path == "." {
		return []string{}
	}
	path = strings.TrimPrefix(path, "/")
	parts := strings.Split(path, "/")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return result
}
