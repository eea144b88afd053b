package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Status returns the branch and the staged, unstaged and untracked paths.
func (r *Repo) Status(ctx context.Context) (*Status, error) {
	branch, err := r.CurrentBranch(ctx)
	if err != nil && !errors.Is(err, ErrDetachedHead) {
		return nil, err
	}

	out, err := r.run(ctx, "status", "--porcelain=v1", "-z", "--untracked-files=all")
	if err != nil {
		return nil, fmt.Errorf("getting status: %w", err)
	}

	st := parsePorcelain(string(out))
	st.Branch = branch

	r.log.Debug("status",
		zap.String("branch", st.Branch),
		zap.Int("staged", len(st.Staged)),
		zap.Int("unstaged", len(st.Unstaged)),
		zap.Int("untracked", len(st.Untracked)),
		zap.Int("conflicted", len(st.Conflicted)))

	return st, nil
}

// parsePorcelain parses `git status --porcelain=v1 -z`. Entries are
// "XY path" separated by NUL; renames and copies carry the source path as an
// extra NUL-terminated field.
func parsePorcelain(out string) *Status {
	st := &Status{Staged: []string{}, Unstaged: []string{}, Untracked: []string{}}

	fields := strings.Split(out, "\x00")
	for i := 0; i < len(fields); i++ {
		entry := fields[i]
		if len(entry) < 4 {
			continue
		}
		x, y, path := entry[0], entry[1], entry[3:]

		if x == 'R' || x == 'C' {
			i++ // skip the original path
		}

		switch {
		case x == '?' && y == '?':
			st.Untracked = append(st.Untracked, path)
		case x == '!' && y == '!':
			// ignored
		case isConflict(x, y):
			st.Conflicted = append(st.Conflicted, path)
		default:
			if x != ' ' {
				st.Staged = append(st.Staged, path)
			}
			if y != ' ' {
				st.Unstaged = append(st.Unstaged, path)
			}
		}
	}
	return st
}

// isConflict reports whether an XY pair denotes an unmerged path.
func isConflict(x, y byte) bool {
	if x == 'U' || y == 'U' {
		return true
	}
	return (x == 'A' && y == 'A') || (x == 'D' && y == 'D')
}
