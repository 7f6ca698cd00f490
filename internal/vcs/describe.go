package vcs

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
)

type tagCandidate struct {
	name      string
	annotated bool
}

// Describe mimics `git describe --tags`: it names HEAD after the tag with the
// fewest commits between it and HEAD. The result is "<tag>" when HEAD is
// tagged and "<tag>-<n>-g<hash>" otherwise.
func (r *Repo) Describe(ctx context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w: %w", ErrNoDescribe, err)
	}

	tags, err := r.tagsByCommit()
	if err != nil {
		return "", err
	}
	if len(tags) == 0 {
		return "", fmt.Errorf("repository has no tags: %w", ErrNoDescribe)
	}

	if c, ok := tags[head.Hash()]; ok {
		return c.name, nil
	}

	// A tag behind another reachable tag is always farther from HEAD, so only
	// the first tagged commits met on each path can win.
	frontier, err := r.taggedFrontier(ctx, head.Hash(), tags)
	if err != nil {
		return "", err
	}
	if len(frontier) == 0 {
		return "", fmt.Errorf("no tag reachable from HEAD: %w", ErrNoDescribe)
	}

	var (
		best      tagCandidate
		bestDepth = -1
	)
	for _, h := range frontier {
		c := tags[h]
		depth, err := r.countSince(ctx, head.Hash(), h)
		if err != nil {
			return "", err
		}
		if bestDepth < 0 || depth < bestDepth || (depth == bestDepth && c.name > best.name) {
			best, bestDepth = c, depth
		}
	}

	return fmt.Sprintf("%s-%d-g%s", best.name, bestDepth, abbrev(head.Hash())), nil
}

// tagsByCommit maps tagged commits to their preferred tag, annotated tags
// first, then the greatest name.
func (r *Repo) tagsByCommit() (map[plumbing.Hash]tagCandidate, error) {
	iter, err := r.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer iter.Close()

	out := make(map[plumbing.Hash]tagCandidate)
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		cand := tagCandidate{name: ref.Name().Short()}
		target := ref.Hash()

		tag, err := r.repo.TagObject(ref.Hash())
		switch {
		case err == nil:
			commit, cerr := tag.Commit()
			if cerr != nil {
				// Tags on trees or blobs cannot describe a commit.
				return nil
			}
			cand.annotated = true
			target = commit.Hash
		case !errors.Is(err, plumbing.ErrObjectNotFound):
			return fmt.Errorf("reading tag %s: %w", cand.name, err)
		}

		if prev, ok := out[target]; ok && !preferTag(cand, prev) {
			return nil
		}
		out[target] = cand
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func preferTag(a, b tagCandidate) bool {
	if a.annotated != b.annotated {
		return a.annotated
	}
	return a.name > b.name
}

// taggedFrontier walks back from head and returns the tagged commits reached
// first, without walking past them. The result is sorted by hash.
func (r *Repo) taggedFrontier(ctx context.Context, head plumbing.Hash, tags map[plumbing.Hash]tagCandidate) ([]plumbing.Hash, error) {
	var found []plumbing.Hash
	err := r.walk(ctx, head, nil, func(h plumbing.Hash) bool {
		if _, ok := tags[h]; ok {
			found = append(found, h)
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(found, func(i, j int) bool { return found[i].String() < found[j].String() })
	return found, nil
}

// countSince counts the commits reachable from head but not from tag, like
// `git rev-list --count tag..head`.
func (r *Repo) countSince(ctx context.Context, head, tag plumbing.Hash) (int, error) {
	covered := map[plumbing.Hash]struct{}{}
	err := r.walk(ctx, tag, nil, func(h plumbing.Hash) bool {
		covered[h] = struct{}{}
		return true
	})
	if err != nil {
		return 0, err
	}

	n := 0
	err = r.walk(ctx, head, covered, func(plumbing.Hash) bool {
		n++
		return true
	})
	return n, err
}

// walk visits every commit reachable from start breadth-first, once each,
// skipping commits in stop. visit returns false to leave a commit's parents
// unexplored.
func (r *Repo) walk(ctx context.Context, start plumbing.Hash, stop map[plumbing.Hash]struct{}, visit func(plumbing.Hash) bool) error {
	if _, ok := stop[start]; ok {
		return nil
	}
	seen := map[plumbing.Hash]struct{}{start: {}}
	queue := []plumbing.Hash{start}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		h := queue[0]
		queue = queue[1:]

		if !visit(h) {
			continue
		}
		commit, err := r.repo.CommitObject(h)
		if err != nil {
			return fmt.Errorf("reading commit %s: %w", abbrev(h), err)
		}
		for _, p := range commit.ParentHashes {
			if _, ok := seen[p]; ok {
				continue
			}
			if _, ok := stop[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			queue = append(queue, p)
		}
	}
	return nil
}
