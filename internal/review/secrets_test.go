package review

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detectSecretsOutput = `{
  "version": "1.4.0",
  "results": {
    "app.py": [
      {"type": "Secret Keyword", "filename": "app.py", "hashed_secret": "abc", "is_verified": false, "line_number": 3},
      {"type": "AWS Access Key", "filename": "app.py", "hashed_secret": "def", "is_verified": false, "line_number": 9}
    ],
    "other.py": [
      {"type": "Secret Keyword", "filename": "other.py", "hashed_secret": "ghi", "is_verified": false, "line_number": 1}
    ]
  }
}`

func TestParseDetectSecrets_OnlyTargetFile(t *testing.T) {
	lines, err := ParseDetectSecrets([]byte(detectSecretsOutput), "app.py")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Line 3: Potential 'Secret Keyword' secret detected.",
		"Line 9: Potential 'AWS Access Key' secret detected.",
	}, lines)

	lines, err = ParseDetectSecrets([]byte(`{"results": {}}`), "app.py")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestSecretScanner_Outcomes(t *testing.T) {
	tests := []struct {
		name   string
		res    CommandResult
		want   []string
		status string
	}{
		{"findings with non-zero exit", CommandResult{Stdout: detectSecretsOutput, ExitCode: 1}, []string{
			"Line 3: Potential 'Secret Keyword' secret detected.",
			"Line 9: Potential 'AWS Access Key' secret detected.",
		}, "success"},
		{"empty stdout", CommandResult{}, []string{}, "success"},
		{"benign stderr", CommandResult{Stdout: `{"results": {}}`, Stderr: "warning: deprecated flag"}, []string{}, "success"},
		{"stderr error", CommandResult{Stderr: "ERROR: plugin not found"}, []string{"Detect-secrets error: ERROR: plugin not found"}, "error"},
		{"non json", CommandResult{Stdout: "garbage"}, []string{"Detect-secrets non-JSON output/error: garbage"}, "error"},
		{"launch failure", CommandResult{ExitCode: ExitLaunchFailure, Failure: FailureLaunch, Stderr: "failed to launch detect-secrets"}, []string{"Detect-secrets command failed: failed to launch detect-secrets"}, "error"},
		{"killed by signal", CommandResult{ExitCode: ExitSignaled, Failure: FailureTool, Stderr: "detect-secrets terminated by signal: signal: killed"}, []string{"Detect-secrets command failed: detect-secrets terminated by signal: signal: killed"}, "error"},
		{"truncated json", CommandResult{Stdout: `{"results": {`}, []string{`Detect-secrets non-JSON output/error: {"results": {`}, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{handler: func(Command) CommandResult { return tt.res }}
			got, run := NewSecretScanner(runner, testConfig().DetectSecrets, nil).Scan(context.Background(), "/work/app.py")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.status, run.Status)
		})
	}
}

func TestSecretScanner_ShapeErrorsAreParseErrors(t *testing.T) {
	for name, out := range map[string]string{
		"array results":      `{"results": ["app.py"]}`,
		"string line number": `{"results": {"app.py": [{"type": "Secret Keyword", "line_number": "3"}]}}`,
	} {
		t.Run(name, func(t *testing.T) {
			runner := &fakeRunner{handler: reply(out, "", 0)}
			got, run := NewSecretScanner(runner, testConfig().DetectSecrets, nil).Scan(context.Background(), "/work/app.py")

			require.Len(t, got, 1)
			assert.True(t, strings.HasPrefix(got[0], "Error parsing detect-secrets output: json: cannot unmarshal"), got[0])
			assert.Equal(t, FailureParse, run.Failure)
		})
	}
}

func TestSecretScanner_KilledBySignal(t *testing.T) {
	dir := t.TempDir()
	target := writePy(t, dir, "app.py", "password = 'x'\n")
	tool := testConfig().DetectSecrets
	tool.Bin = fakeTool(t, `kill -9 $$`)

	got, run := NewSecretScanner(NewExecRunner(), tool, nil).Scan(context.Background(), target)

	require.Len(t, got, 1)
	assert.True(t, strings.HasPrefix(got[0], "Detect-secrets command failed: "), got[0])
	assert.Contains(t, got[0], "terminated by signal")
	assert.Equal(t, "error", run.Status)
}

func TestSecretScanner_Args(t *testing.T) {
	s := NewSecretScanner(&fakeRunner{}, testConfig().DetectSecrets, []string{"plugins/a.py", " ", "plugins/b.py"})
	assert.Equal(t,
		[]string{"scan", "--all-files", "--custom-plugins", "plugins/a.py", "--custom-plugins", "plugins/b.py", "app.py"},
		s.Args("app.py"))

	runner := &fakeRunner{}
	_, _ = NewSecretScanner(runner, testConfig().DetectSecrets, nil).Scan(context.Background(), "/work/app.py")
	calls := runner.callsFor("detect-secrets")
	require.Len(t, calls, 1)
	assert.Equal(t, "scan --all-files app.py", joinArgs(calls[0]))
	assert.Equal(t, "/work", calls[0].Dir)
}
