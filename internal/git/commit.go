package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DefaultRemote is used by Push when no remote is given.
const DefaultRemote = "origin"

// ErrEmptyCommitMessage indicates Commit was called with a blank message.
var ErrEmptyCommitMessage = errors.New("empty commit message")

// StageAll stages every change in the working tree, including deletions and
// untracked files.
func (r *Repo) StageAll(ctx context.Context) error {
	if _, err := r.run(ctx, "add", "-A"); err != nil {
		return fmt.Errorf("staging all changes: %w", err)
	}
	return nil
}

// Stage adds the given paths to the index.
func (r *Repo) Stage(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "--"}, paths...)
	if _, err := r.run(ctx, args...); err != nil {
		return fmt.Errorf("staging %d paths: %w", len(paths), err)
	}
	return nil
}

// Commit records the index with message and returns the new commit SHA.
// Hook rejections surface as *CommandError carrying git's output.
func (r *Repo) Commit(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyCommitMessage
	}

	if _, err := r.runInput(ctx, strings.NewReader(message), "commit", "-F", "-"); err != nil {
		return "", err
	}

	out, err := r.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolving new commit: %w", err)
	}
	sha := strings.TrimSpace(string(out))

	r.log.Debug("committed", zap.String("sha", sha))
	return sha, nil
}

// Push pushes the current branch to remote and sets it as upstream.
func (r *Repo) Push(ctx context.Context, remote string) error {
	if remote == "" {
		remote = DefaultRemote
	}

	branch, err := r.CurrentBranch(ctx)
	if err != nil {
		return fmt.Errorf("determining branch to push: %w", err)
	}

	if _, err := r.run(ctx, "push", "--set-upstream", remote, branch); err != nil {
		return err
	}

	r.log.Debug("pushed", zap.String("remote", remote), zap.String("branch", branch))
	return nil
}
