package git

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultHistoryLimit is the number of commits History returns when n <= 0.
const DefaultHistoryLimit = 10

// Field and record separators for log output.
const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

// History returns the n most recent commits on HEAD, newest first.
// A branch with no commits yields an empty slice.
func (r *Repo) History(ctx context.Context, n int) ([]CommitInfo, error) {
	if n <= 0 {
		n = DefaultHistoryLimit
	}
	if !r.HasCommits(ctx) {
		return nil, nil
	}

	out, err := r.run(ctx, "log", "-n", strconv.Itoa(n), "--no-color",
		"--format=%H%x1f%an%x1f%aI%x1f%s%x1e")
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return parseLog(string(out)), nil
}

// parseLog parses records written with the format "%H\x1f%an\x1f%aI\x1f%s\x1e".
func parseLog(out string) []CommitInfo {
	var commits []CommitInfo
	for _, rec := range strings.Split(out, recordSep) {
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		parts := strings.SplitN(rec, fieldSep, 4)
		if len(parts) < 4 {
			continue
		}
		commits = append(commits, CommitInfo{
			SHA:      parts[0],
			ShortSHA: ShortSHA(parts[0]),
			Author:   parts[1],
			Date:     parts[2],
			Subject:  parts[3],
		})
	}
	return commits
}

// Branches lists local and remote-tracking branches.
func (r *Repo) Branches(ctx context.Context) (*BranchList, error) {
	list := &BranchList{}

	current, err := r.CurrentBranch(ctx)
	if err == nil {
		list.Current = current
	}

	local, err := r.run(ctx, "for-each-ref", "--format=%(refname:short)", "refs/heads")
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	list.Local = parseRefList(string(local), false)

	remote, err := r.run(ctx, "for-each-ref", "--format=%(refname:short)", "refs/remotes")
	if err != nil {
		return nil, fmt.Errorf("listing remote branches: %w", err)
	}
	list.Remote = parseRefList(string(remote), true)

	return list, nil
}

// parseRefList splits for-each-ref output into sorted names. For remotes the
// symbolic HEAD entries ("origin/HEAD", or "origin" on newer git) are dropped.
func parseRefList(out string, remote bool) []string {
	var refs []string
	for _, line := range strings.Split(out, "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		if remote && (strings.HasSuffix(name, "/HEAD") || !strings.Contains(name, "/")) {
			continue
		}
		refs = append(refs, name)
	}
	sort.Strings(refs)
	return refs
}
