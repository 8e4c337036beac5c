package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/pyreview/internal/review"
)

// scriptedRunner answers analyzer invocations by binary base name
type scriptedRunner struct {
	mu       sync.Mutex
	calls    []review.Command
	handlers map[string]func(review.Command) review.CommandResult
}

func (s *scriptedRunner) Run(_ context.Context, c review.Command) review.CommandResult {
	s.mu.Lock()
	s.calls = append(s.calls, c)
	s.mu.Unlock()
	if h, ok := s.handlers[filepath.Base(c.Name)]; ok {
		return h(c)
	}
	return review.CommandResult{}
}

func (s *scriptedRunner) count(tool string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if filepath.Base(c.Name) == tool {
			n++
		}
	}
	return n
}

// cleanAnalyzers returns handlers for a file every analyzer is happy with; rating is what
// pylint's text pass reports
func cleanAnalyzers(rating string) map[string]func(review.Command) review.CommandResult {
	return map[string]func(review.Command) review.CommandResult{
		"black": func(review.Command) review.CommandResult { return review.CommandResult{} },
		"pylint": func(c review.Command) review.CommandResult {
			for _, a := range c.Args {
				if a == "--output-format=json" {
					return review.CommandResult{Stdout: "[]"}
				}
			}
			return review.CommandResult{Stdout: "Your code has been rated at " + rating + "/10"}
		},
		"detect-secrets": func(review.Command) review.CommandResult {
			return review.CommandResult{Stdout: `{"results": {}}`}
		},
	}
}

// useRunner swaps the engine's runner for the duration of a test
func useRunner(t *testing.T, r review.CommandRunner) {
	t.Helper()
	orig := newRunner
	newRunner = func() review.CommandRunner { return r }
	t.Cleanup(func() { newRunner = orig })
}

// isolateEnv points config discovery at empty directories
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PYREVIEW_HOME", filepath.Join(home, ".pyreview"))
	for _, tool := range []string{"BLACK", "PYLINT", "DETECT_SECRETS"} {
		t.Setenv("PYREVIEW_TOOL_"+tool, "")
	}
	return home
}

// chdir switches the working directory for one test
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// execRoot runs a fresh command tree and captures its output
func execRoot(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCommand()
	registerSubcommands(root)

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--log-level", "error", "--no-color"}, args...))

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
