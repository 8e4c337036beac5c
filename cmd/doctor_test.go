package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/pyreview/pkg/exitcode"
)

// fakeAnalyzer writes an executable script printing a version banner
func fakeAnalyzer(t *testing.T, dir, name, banner string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script analyzers need a POSIX shell")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho '"+banner+"'\n"), 0o700)) // #nosec G306 -- test script must be executable
	return path
}

func TestDoctorTools_AllFound(t *testing.T) {
	isolateEnv(t)
	bin := t.TempDir()
	t.Setenv("PYREVIEW_TOOL_BLACK", fakeAnalyzer(t, bin, "black", "black, 24.3.0 (compiled: yes)"))
	t.Setenv("PYREVIEW_TOOL_PYLINT", fakeAnalyzer(t, bin, "pylint", "pylint 3.1.0"))
	t.Setenv("PYREVIEW_TOOL_DETECT_SECRETS", fakeAnalyzer(t, bin, "detect-secrets", "1.4.0"))

	out, _, err := execRoot(t, "", "doctor", "tools", "--json-output")
	require.NoError(t, err)

	var statuses []toolStatus
	require.NoError(t, json.Unmarshal([]byte(out), &statuses))
	require.Len(t, statuses, 3)
	assert.Equal(t, "black", statuses[0].Tool)
	assert.Equal(t, "black, 24.3.0 (compiled: yes)", statuses[0].Version)
	assert.Equal(t, "env", statuses[0].Source)
	assert.Equal(t, "pylint 3.1.0", statuses[1].Version)
	assert.Equal(t, "1.4.0", statuses[2].Version)
}

func TestDoctorTools_Missing(t *testing.T) {
	isolateEnv(t)
	t.Setenv("PATH", t.TempDir())
	t.Setenv("VIRTUAL_ENV", "")

	out, _, err := execRoot(t, "", "doctor", "tools")
	require.Error(t, err)
	assert.Equal(t, exitcode.ToolNotFound, exitCodeFor(err))
	assert.Contains(t, out, "✗ black")
	assert.Contains(t, out, "detect-secrets")
}

func TestDoctorConfig(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	chdir(t, dir)

	out, _, err := execRoot(t, "", "doctor", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "using built-in defaults")

	good := writeFile(t, filepath.Join(dir, "good.yaml"), "lint:\n  max_line_length: 120\n")
	out, _, err = execRoot(t, "", "--config", good, "doctor", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	bad := writeFile(t, filepath.Join(dir, "bad.yaml"), "output:\n  format: pdf\n")
	out, _, err = execRoot(t, "", "--config", bad, "doctor", "config")
	require.Error(t, err)
	assert.Equal(t, exitcode.ConfigError, exitCodeFor(err))
	assert.Contains(t, out, "configuration invalid")
}

func TestDoctorConfig_Pyproject(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, filepath.Join(dir, "pyproject.toml"), "[tool.pyreview]\nmax-line-length = 88\n")

	out, _, err := execRoot(t, "", "doctor", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "[tool.pyreview] overrides apply here")
}
