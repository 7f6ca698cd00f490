package vcs

import (
	"context"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRepo is an in-memory repository with a deterministic commit clock.
type testRepo struct {
	repo  *git.Repository
	wt    *git.Worktree
	clock time.Time
}

func setupTestRepo(t *testing.T) *testRepo {
	t.Helper()

	repo, err := git.Init(memory.NewStorage(), memfs.New())
	require.NoError(t, err, "failed to initialize test repository")
	wt, err := repo.Worktree()
	require.NoError(t, err)

	return &testRepo{repo: repo, wt: wt, clock: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (tr *testRepo) signature() *object.Signature {
	tr.clock = tr.clock.Add(time.Minute)
	return &object.Signature{Name: "dev", Email: "dev@example.com", When: tr.clock}
}

func (tr *testRepo) commit(t *testing.T, msg string) plumbing.Hash {
	t.Helper()
	h, err := tr.wt.Commit(msg, &git.CommitOptions{Author: tr.signature(), AllowEmptyCommits: true})
	require.NoError(t, err, "failed to commit")
	return h
}

func (tr *testRepo) commitOn(t *testing.T, msg string, parents ...plumbing.Hash) plumbing.Hash {
	t.Helper()
	h, err := tr.wt.Commit(msg, &git.CommitOptions{Author: tr.signature(), AllowEmptyCommits: true, Parents: parents})
	require.NoError(t, err, "failed to commit")
	return h
}

func (tr *testRepo) lightweightTag(t *testing.T, name string, h plumbing.Hash) {
	t.Helper()
	_, err := tr.repo.CreateTag(name, h, nil)
	require.NoError(t, err)
}

func (tr *testRepo) annotatedTag(t *testing.T, name string, h plumbing.Hash) {
	t.Helper()
	_, err := tr.repo.CreateTag(name, h, &git.CreateTagOptions{Tagger: tr.signature(), Message: name})
	require.NoError(t, err)
}

func TestDescribe(t *testing.T) {
	ctx := context.Background()

	t.Run("tagged head returns bare tag", func(t *testing.T) {
		tr := setupTestRepo(t)
		h := tr.commit(t, "initial")
		tr.lightweightTag(t, "v1.2", h)

		got, err := FromRepository(tr.repo).Describe(ctx)
		require.NoError(t, err)
		assert.Equal(t, "v1.2", got)
	})

	t.Run("commits after tag are counted", func(t *testing.T) {
		tr := setupTestRepo(t)
		tr.annotatedTag(t, "v0.3", tr.commit(t, "initial"))
		tr.commit(t, "two")
		tr.commit(t, "three")
		head := tr.commit(t, "four")

		got, err := FromRepository(tr.repo).Describe(ctx)
		require.NoError(t, err)
		assert.Equal(t, "v0.3-3-g"+head.String()[:7], got)
	})

	t.Run("nearest tag wins", func(t *testing.T) {
		tr := setupTestRepo(t)
		tr.lightweightTag(t, "v1.0", tr.commit(t, "initial"))
		tr.commit(t, "two")
		tr.lightweightTag(t, "v1.1", tr.commit(t, "three"))
		head := tr.commit(t, "four")

		got, err := FromRepository(tr.repo).Describe(ctx)
		require.NoError(t, err)
		assert.Equal(t, "v1.1-1-g"+head.String()[:7], got)
	})

	t.Run("tag behind a nearer tag is not counted", func(t *testing.T) {
		tr := setupTestRepo(t)
		tr.lightweightTag(t, "v1.0", tr.commit(t, "initial"))
		for i := 0; i < 20; i++ {
			tr.commit(t, "filler")
		}
		tr.lightweightTag(t, "v1.5", tr.commit(t, "nearer"))
		tr.commit(t, "after")
		head := tr.commit(t, "head")

		got, err := FromRepository(tr.repo).Describe(ctx)
		require.NoError(t, err)
		assert.Equal(t, "v1.5-2-g"+head.String()[:7], got)
	})

	t.Run("merged side branch tag", func(t *testing.T) {
		tr := setupTestRepo(t)
		base := tr.commit(t, "base")
		tr.lightweightTag(t, "v1.0", base)
		side := tr.commitOn(t, "side", base)
		tr.lightweightTag(t, "v2.0", side)
		main1 := tr.commitOn(t, "main one", base)
		main2 := tr.commitOn(t, "main two", main1)
		merge := tr.commitOn(t, "merge", main2, side)

		got, err := FromRepository(tr.repo).Describe(ctx)
		require.NoError(t, err)
		assert.Equal(t, "v2.0-3-g"+merge.String()[:7], got)
	})

	t.Run("annotated tag preferred on same commit", func(t *testing.T) {
		tr := setupTestRepo(t)
		h := tr.commit(t, "initial")
		tr.lightweightTag(t, "v9.9", h)
		tr.annotatedTag(t, "v1.0", h)

		got, err := FromRepository(tr.repo).Describe(ctx)
		require.NoError(t, err)
		assert.Equal(t, "v1.0", got)
	})

	t.Run("no tags", func(t *testing.T) {
		tr := setupTestRepo(t)
		tr.commit(t, "initial")

		_, err := FromRepository(tr.repo).Describe(ctx)
		assert.ErrorIs(t, err, ErrNoDescribe)
	})

	t.Run("no commits", func(t *testing.T) {
		tr := setupTestRepo(t)

		_, err := FromRepository(tr.repo).Describe(ctx)
		assert.ErrorIs(t, err, ErrNoDescribe)
	})
}

func TestCurrentBranch(t *testing.T) {
	ctx := context.Background()
	tr := setupTestRepo(t)
	first := tr.commit(t, "initial")
	tr.commit(t, "second")

	branch, err := FromRepository(tr.repo).CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "master", branch)

	require.NoError(t, tr.wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName("feature/x"), Create: true}))
	branch, err = FromRepository(tr.repo).CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "feature/x", branch)

	require.NoError(t, tr.wt.Checkout(&git.CheckoutOptions{Hash: first}))
	branch, err = FromRepository(tr.repo).CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, DetachedHead, branch)
}

func TestOpen_NoRepository(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNoDescribe)

	_, err = Query(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrNoDescribe)
}
