// Package gitsource читает ревизии внешних репозиториев из локальных git-клонов.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"github.com/AlekseyZapadovnikov/code-review/internal/models"
)

// Reader читает историю коммитов git-репозитория.
type Reader struct {
	Logger *slog.Logger
}

// NewReader возвращает новый Reader.
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{Logger: logger}
}

// Changes возвращает коммиты, достижимые из HEAD, от старых к новым.
// Автор берётся по имени, как его записывает внешний репозиторий.
func (r *Reader) Changes(ctx context.Context, repository, path string) ([]models.ChangeRecord, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD of %s: %w", path, err)
	}
	commits, err := repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("failed to read log of %s: %w", path, err)
	}
	defer commits.Close()

	var changes []models.ChangeRecord
	err = commits.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		paths, err := r.changedPaths(c)
		if err != nil {
			return err
		}
		changes = append(changes, models.ChangeRecord{
			Repository:   repository,
			Revision:     c.Hash.String(),
			Author:       c.Author.Name,
			Created:      c.Author.When,
			Message:      strings.TrimSpace(c.Message),
			ChangedPaths: paths,
		})
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, fmt.Errorf("failed to walk commits of %s: %w", path, err)
	}

	slices.Reverse(changes)
	r.Logger.Debug("git changes loaded", "repository", repository, "count", len(changes))
	return changes, nil
}

// changedPaths сравнивает дерево коммита с деревом первого родителя.
func (r *Reader) changedPaths(c *object.Commit) ([]string, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree for commit %s: %w", c.Hash, err)
	}
	parentTree := &object.Tree{}
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return nil, fmt.Errorf("failed to get parent of commit %s: %w", c.Hash, err)
		}
		if parentTree, err = parent.Tree(); err != nil {
			return nil, fmt.Errorf("failed to get tree for commit %s: %w", parent.Hash, err)
		}
	}

	diff, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return nil, fmt.Errorf("failed to diff commit %s: %w", c.Hash, err)
	}

	paths := make([]string, 0, len(diff))
	for _, ch := range diff {
		action, err := ch.Action()
		if err != nil {
			r.Logger.Error("failed to get action for change, skipping", "error", err)
			continue
		}
		name := ch.To.Name
		if action == merkletrie.Delete {
			name = ch.From.Name
		}
		paths = append(paths, "/"+name)
	}
	return paths, nil
}
