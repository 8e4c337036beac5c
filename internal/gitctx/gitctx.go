package gitctx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	git "github.com/go-git/go-git/v5"
)

// ErrNotRepository is returned when the target is not inside a git work tree
var ErrNotRepository = errors.New("not a git repository")

// ChangeContext captures a minimal view of the current git change-set
type ChangeContext struct {
	Root          string   `json:"root"`
	ModifiedFiles []string `json:"modified_files"` // slash paths relative to Root
	GitSHA        string   `json:"git_sha,omitempty"`
	Branch        string   `json:"branch,omitempty"`
}

// Collect gathers staged, unstaged and untracked files of the repository containing target.
// Deleted files are left out since there is nothing to review.
func Collect(target string) (*ChangeContext, error) {
	repo, err := git.PlainOpenWithOptions(target, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%s: %w", target, ErrNotRepository)
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", target, ErrNotRepository)
	}
	st, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("git status: %w", err)
	}

	ctx := &ChangeContext{Root: wt.Filesystem.Root()}
	// an unborn branch has no HEAD yet; everything is untracked
	if head, err := repo.Head(); err == nil {
		ctx.Branch = head.Name().Short()
		ctx.GitSHA = head.Hash().String()
	}

	for path, s := range st {
		if s.Staging == git.Deleted || s.Worktree == git.Deleted {
			continue
		}
		if s.Staging != git.Unmodified || s.Worktree != git.Unmodified {
			if _, err := os.Stat(filepath.Join(ctx.Root, filepath.FromSlash(path))); err != nil {
				continue
			}
			ctx.ModifiedFiles = append(ctx.ModifiedFiles, filepath.ToSlash(path))
		}
	}
	sort.Strings(ctx.ModifiedFiles)
	return ctx, nil
}

// Paths returns the modified files as paths joined onto the repository root
func (c *ChangeContext) Paths() []string {
	out := make([]string, 0, len(c.ModifiedFiles))
	for _, f := range c.ModifiedFiles {
		out = append(out, filepath.Join(c.Root, filepath.FromSlash(f)))
	}
	return out
}
