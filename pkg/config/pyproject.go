package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/fulmenhq/pyreview/pkg/logger"
)

// PyprojectFile is the Python project metadata file searched for lint overrides
const PyprojectFile = "pyproject.toml"

// pyprojectLint mirrors the [tool.pyreview] table. Keys follow pylint's own
// pyproject spelling.
type pyprojectLint struct {
	MaxLineLength *int     `toml:"max-line-length"`
	Disable       []string `toml:"disable"`
	Enable        []string `toml:"enable"`
	FailUnder     *float64 `toml:"fail-under"`
}

type pyprojectDoc struct {
	Tool struct {
		Pyreview *pyprojectLint `toml:"pyreview"`
	} `toml:"tool"`
}

// FindPyproject walks up from dir to the filesystem root (stopping at a .git boundary)
// and returns the first pyproject.toml found
func FindPyproject(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, PyprojectFile)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "", false
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// LintFor returns c.Lint overlaid with the [tool.pyreview] table of the nearest
// pyproject.toml above dir. source names the file applied, empty when none was.
func (c *Config) LintFor(dir string) (lint LintConfig, source string, err error) {
	lint = c.Lint
	path, ok := FindPyproject(dir)
	if !ok {
		return lint, "", nil
	}
	overrides, err := readPyproject(path)
	if err != nil {
		return lint, "", err
	}
	if overrides == nil {
		return lint, "", nil
	}

	if overrides.MaxLineLength != nil {
		lint.MaxLineLength = *overrides.MaxLineLength
	}
	if overrides.Disable != nil {
		lint.Disable = overrides.Disable
	}
	if overrides.Enable != nil {
		lint.Enable = overrides.Enable
	}
	if overrides.FailUnder != nil {
		lint.FailUnder = *overrides.FailUnder
	}
	logger.Debug("applied pyproject lint overrides", logger.String("file", path))
	return lint, path, nil
}

func readPyproject(path string) (*pyprojectLint, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- discovered pyproject.toml next to a review target
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	var doc pyprojectDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return doc.Tool.Pyreview, nil
}
