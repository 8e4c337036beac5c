package intake

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/fulmenhq/pyreview/pkg/logger"
)

// ErrUnsupportedInput is returned when an input is neither Python source nor a notebook
var ErrUnsupportedInput = errors.New("unsupported input type (expected .py or .ipynb)")

// StdinName is the display name used for source read from standard input
const StdinName = "pasted_code.py"

// Workspace is a per-run scratch directory. Staged files never share a directory, so
// concurrent lint runs cannot trip over each other's package markers.
type Workspace struct {
	Dir string

	closeOnce sync.Once
	closeErr  error
}

// NewWorkspace creates <base>/pyreview-<uuid>. An empty base uses the system temp dir.
func NewWorkspace(base string) (*Workspace, error) {
	if strings.TrimSpace(base) == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o750); err != nil {
		return nil, fmt.Errorf("create workspace base %s: %w", base, err)
	}
	dir := filepath.Join(base, "pyreview-"+uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	logger.Debug("workspace created", logger.String("dir", dir))
	return &Workspace{Dir: dir}, nil
}

// Close removes the workspace and everything staged in it. Safe to call more than once.
func (w *Workspace) Close() error {
	w.closeOnce.Do(func() {
		if err := os.RemoveAll(w.Dir); err != nil {
			w.closeErr = fmt.Errorf("remove workspace %s: %w", w.Dir, err)
			logger.Warn("failed to remove workspace", logger.String("dir", w.Dir), logger.Err(err))
			return
		}
		logger.Debug("workspace removed", logger.String("dir", w.Dir))
	})
	return w.closeErr
}

// Staged is a source file prepared for review
type Staged struct {
	Path        string // file handed to the review engine
	DisplayName string // name shown in reports
	Source      string // normalized Python source as written to Path
}

// Stage converts name/content into a normalized .py file inside its own subdirectory of
// the workspace. Notebooks are converted to a script first.
func (w *Workspace) Stage(name string, content []byte) (*Staged, error) {
	source, err := ToPython(name, content)
	if err != nil {
		return nil, err
	}

	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." {
		stem = strings.TrimSuffix(StdinName, ".py")
	}

	dir := filepath.Join(w.Dir, uuid.NewString()[:8])
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	path := filepath.Join(dir, stem+".py")
	if err := os.WriteFile(path, []byte(source), 0o600); err != nil {
		return nil, fmt.Errorf("stage %s: %w", base, err)
	}
	logger.Debug("staged input", logger.String("name", base), logger.String("path", path))
	return &Staged{Path: path, DisplayName: base, Source: source}, nil
}

// ToPython returns the normalized Python source for a .py or .ipynb input
func ToPython(name string, content []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".py":
		return NormalizeSource(string(content)), nil
	case ".ipynb":
		src, err := ExtractNotebook(content)
		if err != nil {
			return "", fmt.Errorf("error converting notebook %s: %w", filepath.Base(name), err)
		}
		return NormalizeSource(src), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedInput, filepath.Base(name))
	}
}

// NormalizeSource converts CRLF and lone CR line endings to LF
func NormalizeSource(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
