package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestMatcher_Layers(t *testing.T) {
	root := t.TempDir()
	home := t.TempDir()
	t.Setenv("PYREVIEW_HOME", home)

	writeFile(t, filepath.Join(root, ".gitignore"), "# generated\n*.log\nbuild/\n")
	writeFile(t, filepath.Join(root, IgnoreFileName), "migrations/\n*_pb2.py\n")
	writeFile(t, filepath.Join(home, IgnoreFileName), "scratch_*.py\n")

	m, err := NewMatcher(root)
	require.NoError(t, err)

	tests := []struct {
		path    string
		isDir   bool
		ignored bool
	}{
		{"app/main.py", false, false},
		{"debug.log", false, true},
		{"build", true, true},
		{"app/migrations", true, true},
		{"proto/service_pb2.py", false, true},
		{"scratch_idea.py", false, true},
		{".venv", true, true},
		{"pkg/__pycache__", true, true},
		{"demo.egg-info", true, true},
		{"src/venv_tools.py", false, false},
	}
	for _, tt := range tests {
		full := filepath.Join(root, filepath.FromSlash(tt.path))
		var got bool
		if tt.isDir {
			got = m.IsIgnoredDir(full)
		} else {
			got = m.IsIgnored(full)
		}
		assert.Equal(t, tt.ignored, got, tt.path)
	}
}

func TestMatcher_OutsideRoot(t *testing.T) {
	t.Setenv("PYREVIEW_HOME", t.TempDir())
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), "*.py\n")
	m, err := NewMatcher(root)
	require.NoError(t, err)

	assert.True(t, m.IsIgnored(filepath.Join(root, "a.py")))
	assert.False(t, m.IsIgnored(filepath.Join(t.TempDir(), "a.py")))
	assert.False(t, m.IsIgnoredDir(root))
}

func TestReadIgnoreFile_Allowlist(t *testing.T) {
	_, err := readIgnoreFile("/etc/passwd")
	assert.Error(t, err)
}

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{}, splitPath("."))
	assert.Equal(t, []string{"a", "b"}, splitPath("/a//b/"))
}
