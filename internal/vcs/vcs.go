// Package vcs answers the two repository questions version resolution needs:
// the describe string and the current branch.
package vcs

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrNoDescribe is returned when there is no repository, no commit or no
// tag reachable from HEAD.
var ErrNoDescribe = errors.New("no describe information")

// DetachedHead is reported by CurrentBranch when HEAD is not on a branch.
const DetachedHead = "HEAD"

// hashAbbrev matches git's default abbreviation for small repositories.
const hashAbbrev = 7

// Repo wraps a go-git repository.
type Repo struct {
	repo *git.Repository
}

// Open opens the repository containing path, searching parent directories.
func Open(path string) (*Repo, error) {
	r, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w: %w", path, ErrNoDescribe, err)
	}
	return &Repo{repo: r}, nil
}

// FromRepository wraps an already opened repository.
func FromRepository(r *git.Repository) *Repo {
	return &Repo{repo: r}
}

// CurrentBranch returns the short name of the checked out branch, or
// DetachedHead.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return DetachedHead, nil
	}
	return head.Name().Short(), nil
}

// Info is the result of a combined describe and branch query.
type Info struct {
	Describe string
	Branch   string
}

// Query opens the repository at path and runs both queries.
func Query(ctx context.Context, path string) (Info, error) {
	r, err := Open(path)
	if err != nil {
		return Info{}, err
	}

	describe, err := r.Describe(ctx)
	if err != nil {
		return Info{}, err
	}
	branch, err := r.CurrentBranch(ctx)
	if err != nil {
		return Info{}, err
	}
	return Info{Describe: describe, Branch: branch}, nil
}

func abbrev(h plumbing.Hash) string {
	return h.String()[:hashAbbrev]
}
