package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fulmenhq/pyreview/internal/gitctx"
	"github.com/fulmenhq/pyreview/internal/intake"
	"github.com/fulmenhq/pyreview/pkg/ignore"
	"github.com/fulmenhq/pyreview/pkg/logger"
	"github.com/fulmenhq/pyreview/pkg/safeio"
)

// stdinArg selects standard input as a review target
const stdinArg = "-"

// target is one input to review
type target struct {
	Display string // path as shown in reports
	Path    string // file to read; empty means stdin
}

func (t target) name() string {
	if t.Path == "" {
		return intake.StdinName
	}
	return t.Path
}

func (t target) dir() string {
	if t.Path == "" {
		return "."
	}
	return filepath.Dir(t.Path)
}

// reviewable reports whether a discovered file is a supported input
func reviewable(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py", ".ipynb":
		return true
	}
	return false
}

// expandTargets turns CLI arguments into a de-duplicated list of targets. Explicit files are
// always kept; directory walks and globs only pick up .py/.ipynb files the ignore rules allow.
func expandTargets(args []string, useIgnore bool) ([]target, error) {
	var (
		out      []target
		seen     = map[string]bool{}
		matchers = map[string]*ignore.Matcher{}
		stdin    bool
	)

	matcherFor := func(root string) *ignore.Matcher {
		if !useIgnore {
			return nil
		}
		if m, ok := matchers[root]; ok {
			return m
		}
		m, err := ignore.NewMatcher(root)
		if err != nil {
			logger.Warn("ignore rules unavailable", logger.String("root", root), logger.Err(err))
		}
		matchers[root] = m
		return m
	}

	add := func(path string) {
		key := path
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, target{Display: filepath.ToSlash(path), Path: path})
	}

	for _, arg := range args {
		if arg == stdinArg {
			if !stdin {
				out = append(out, target{Display: intake.StdinName})
				stdin = true
			}
			continue
		}

		clean, err := safeio.CleanUserPath(arg)
		if err != nil {
			// Paths above the working directory are legitimate CLI input
			clean = filepath.ToSlash(filepath.Clean(arg))
		}
		path := filepath.FromSlash(clean)

		info, statErr := os.Stat(path)
		switch {
		case statErr == nil && info.IsDir():
			files, err := walkDir(path, matcherFor(path))
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				add(f)
			}
		case statErr == nil:
			add(path)
		case hasGlobMeta(arg):
			matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
			}
			m := matcherFor(".")
			for _, f := range matches {
				if !reviewable(f) || (m != nil && m.IsIgnored(f)) {
					continue
				}
				add(f)
			}
		default:
			return nil, fmt.Errorf("%s: %w", arg, os.ErrNotExist)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no Python files or notebooks matched %s: %w", strings.Join(args, " "), os.ErrNotExist)
	}
	return out, nil
}

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

// walkDir lists reviewable files under root in lexical order
func walkDir(root string, m *ignore.Matcher) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && m != nil && m.IsIgnoredDir(path) {
				logger.Trace("skipping ignored directory", logger.String("dir", path))
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !reviewable(path) {
			return nil
		}
		if m != nil && m.IsIgnored(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// changedTargets lists the reviewable files git reports as changed in the work tree
// containing dir. Ignore rules still apply to untracked files.
func changedTargets(dir string, useIgnore bool) ([]target, error) {
	ctx, err := gitctx.Collect(dir)
	if err != nil {
		return nil, err
	}
	logger.Debug("collected git changes", logger.String("branch", ctx.Branch), logger.Int("files", len(ctx.ModifiedFiles)))

	var m *ignore.Matcher
	if useIgnore {
		if m, err = ignore.NewMatcher(ctx.Root); err != nil {
			logger.Warn("ignore rules unavailable", logger.String("root", ctx.Root), logger.Err(err))
			m = nil
		}
	}

	wd, _ := os.Getwd()
	var out []target
	for _, path := range ctx.Paths() {
		if !reviewable(path) || (m != nil && m.IsIgnored(path)) {
			continue
		}
		display := path
		if wd != "" {
			if rel, err := filepath.Rel(wd, path); err == nil {
				display = rel
			}
		}
		out = append(out, target{Display: filepath.ToSlash(display), Path: path})
	}
	return out, nil
}
