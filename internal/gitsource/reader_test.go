package gitsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func commitFile(t *testing.T, wt *git.Worktree, dir, name, content, author string, when time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	_, err := wt.Add(name)
	require.NoError(t, err)
	_, err = wt.Commit("change "+name+"\n", &git.CommitOptions{
		Author: &object.Signature{Name: author, Email: author + "@example.com", When: when},
	})
	require.NoError(t, err)
}

func TestReader_Changes(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	base := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	commitFile(t, wt, dir, "README.md", "hello", "Alice Liddell", base)
	commitFile(t, wt, dir, "src/main.go", "package main", "Bob", base.Add(time.Hour))

	changes, err := NewReader(nil).Changes(context.Background(), "tools", dir)
	require.NoError(t, err)
	require.Len(t, changes, 2)

	require.Equal(t, "tools", changes[0].Repository)
	require.Equal(t, "Alice Liddell", changes[0].Author)
	require.Equal(t, "change README.md", changes[0].Message)
	require.Equal(t, []string{"/README.md"}, changes[0].ChangedPaths)
	require.Equal(t, []string{"/src/main.go"}, changes[1].ChangedPaths)
	require.Len(t, changes[1].Revision, 40)
	require.False(t, changes[1].IsDefaultRepository())
}

func TestReader_Errors(t *testing.T) {
	_, err := NewReader(nil).Changes(context.Background(), "tools", t.TempDir())
	require.Error(t, err)

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	commitFile(t, wt, dir, "a.txt", "a", "Carol", time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewReader(nil).Changes(ctx, "tools", dir)
	require.ErrorIs(t, err, context.Canceled)
}
