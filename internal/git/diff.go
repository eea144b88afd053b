package git

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// diffHeader starts each file section of a unified git diff.
const diffHeader = "diff --git "

// Changes collects the ChangeSet for scope. It returns ErrNoChanges when the
// set is empty. Nothing in the repository is modified.
func (r *Repo) Changes(ctx context.Context, scope Scope) (*ChangeSet, error) {
	cs := &ChangeSet{Scope: scope}

	branch, err := r.CurrentBranch(ctx)
	if err != nil && !errors.Is(err, ErrDetachedHead) {
		return nil, err
	}
	cs.Branch = branch

	staged, err := r.trackedChanges(ctx, StatusStaged, "--cached")
	if err != nil {
		return nil, err
	}
	cs.Files = append(cs.Files, staged...)

	if scope == ScopeAll {
		unstaged, err := r.trackedChanges(ctx, StatusUnstaged)
		if err != nil {
			return nil, err
		}
		cs.Files = append(cs.Files, unstaged...)

		untracked, err := r.untrackedChanges(ctx)
		if err != nil {
			return nil, err
		}
		cs.Files = append(cs.Files, untracked...)
	}

	added, deleted := cs.Totals()
	r.log.Debug("collected changes",
		zap.String("scope", scope.String()),
		zap.Int("files", len(cs.Files)),
		zap.Int("added", added),
		zap.Int("deleted", deleted))

	if cs.Empty() {
		return nil, ErrNoChanges
	}
	return cs, nil
}

// trackedChanges diffs tracked files, either the index (--cached) or the
// working tree against the index.
func (r *Repo) trackedChanges(ctx context.Context, status ChangeStatus, extra ...string) ([]FileChange, error) {
	numArgs := append(append([]string{"diff"}, extra...), "--no-renames", "--no-color", "--numstat", "-z")
	numstat, err := r.run(ctx, numArgs...)
	if err != nil {
		return nil, fmt.Errorf("listing %s changes: %w", status, err)
	}

	files := parseNumstat(string(numstat), status)
	if len(files) == 0 {
		return nil, nil
	}

	patchArgs := append(append([]string{"diff"}, extra...), "--no-renames", "--no-color", "--no-ext-diff")
	patch, err := r.run(ctx, patchArgs...)
	if err != nil {
		return nil, fmt.Errorf("reading %s diff: %w", status, err)
	}

	attachDiffs(files, splitDiff(string(patch)))
	return files, nil
}

// untrackedChanges renders each untracked file as an addition.
func (r *Repo) untrackedChanges(ctx context.Context) ([]FileChange, error) {
	out, err := r.run(ctx, "ls-files", "--others", "--exclude-standard", "-z")
	if err != nil {
		return nil, fmt.Errorf("listing untracked files: %w", err)
	}

	var files []FileChange
	for _, path := range strings.Split(string(out), "\x00") {
		if path == "" {
			continue
		}
		patch, err := r.run(ctx, "diff", "--no-index", "--no-color", "--no-ext-diff", "--", "/dev/null", path)
		if err != nil {
			return nil, fmt.Errorf("diffing untracked %s: %w", path, err)
		}
		fc := FileChange{Path: path, Status: StatusUntracked, Diff: string(patch)}
		fc.Added, fc.Deleted, fc.Binary = countPatchLines(fc.Diff)
		files = append(files, fc)
	}
	return files, nil
}

// parseNumstat parses `git diff --numstat -z` output with renames disabled:
// records of "added\tdeleted\tpath" separated by NUL. Binary files report "-".
func parseNumstat(out string, status ChangeStatus) []FileChange {
	var files []FileChange
	for _, rec := range strings.Split(out, "\x00") {
		rec = strings.TrimPrefix(rec, "\n")
		if rec == "" {
			continue
		}
		parts := strings.SplitN(rec, "\t", 3)
		if len(parts) != 3 {
			continue
		}
		fc := FileChange{Path: parts[2], Status: status}
		if parts[0] == "-" && parts[1] == "-" {
			fc.Binary = true
		} else {
			fc.Added, _ = strconv.Atoi(parts[0])
			fc.Deleted, _ = strconv.Atoi(parts[1])
		}
		files = append(files, fc)
	}
	return files
}

// splitDiff splits a multi-file unified diff into per-file sections, each
// starting with its "diff --git" header.
func splitDiff(patch string) []string {
	if patch == "" {
		return nil
	}

	var sections []string
	start := -1
	pos := 0
	for pos < len(patch) {
		lineEnd := strings.IndexByte(patch[pos:], '\n')
		next := len(patch)
		if lineEnd >= 0 {
			next = pos + lineEnd + 1
		}
		if strings.HasPrefix(patch[pos:], diffHeader) {
			if start >= 0 {
				sections = append(sections, patch[start:pos])
			}
			start = pos
		}
		pos = next
	}
	if start >= 0 {
		sections = append(sections, patch[start:])
	}
	return sections
}

// attachDiffs pairs numstat entries with diff sections. Both are emitted in
// the same path order, so sections are matched by position; if the counts
// disagree each file falls back to a header lookup.
func attachDiffs(files []FileChange, sections []string) {
	if len(files) == len(sections) {
		for i := range files {
			files[i].Diff = sections[i]
		}
		return
	}
	for i := range files {
		suffix := " b/" + files[i].Path
		for _, s := range sections {
			header := s
			if nl := strings.IndexByte(s, '\n'); nl >= 0 {
				header = s[:nl]
			}
			if strings.HasSuffix(header, suffix) {
				files[i].Diff = s
				break
			}
		}
	}
}

// countPatchLines counts added and deleted lines in a single-file patch.
func countPatchLines(patch string) (added, deleted int, binary bool) {
	inHunk := false
	for _, line := range strings.Split(patch, "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			inHunk = true
		case !inHunk && strings.HasPrefix(line, "Binary files "):
			binary = true
		case inHunk && strings.HasPrefix(line, "+"):
			added++
		case inHunk && strings.HasPrefix(line, "-"):
			deleted++
		}
	}
	return added, deleted, binary
}
