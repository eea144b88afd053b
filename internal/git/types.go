// Package git inspects and updates a working tree by shelling out to git.
package git

import "strings"

// Scope selects which changes are collected.
type Scope int

const (
	// ScopeStaged collects only changes in the index.
	ScopeStaged Scope = iota
	// ScopeAll collects staged, unstaged and untracked changes.
	ScopeAll
)

func (s Scope) String() string {
	if s == ScopeAll {
		return "all"
	}
	return "staged"
}

// ChangeStatus tags where a file change lives.
type ChangeStatus string

const (
	StatusStaged    ChangeStatus = "staged"
	StatusUnstaged  ChangeStatus = "unstaged"
	StatusUntracked ChangeStatus = "untracked"
)

// FileChange is one file's contribution to a ChangeSet.
type FileChange struct {
	Path    string       `json:"path"`
	Status  ChangeStatus `json:"status"`
	Added   int          `json:"added"`
	Deleted int          `json:"deleted"`
	Binary  bool         `json:"binary,omitempty"`
	Diff    string       `json:"-"`
}

// ChangeSet is the ordered set of file changes considered for one commit.
type ChangeSet struct {
	Scope  Scope        `json:"-"`
	Branch string       `json:"branch,omitempty"`
	Files  []FileChange `json:"files"`
}

// Empty reports whether the set has no files.
func (c *ChangeSet) Empty() bool {
	return c == nil || len(c.Files) == 0
}

// Paths returns the distinct file paths in order of first appearance.
func (c *ChangeSet) Paths() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]bool, len(c.Files))
	paths := make([]string, 0, len(c.Files))
	for _, f := range c.Files {
		if !seen[f.Path] {
			seen[f.Path] = true
			paths = append(paths, f.Path)
		}
	}
	return paths
}

// DiffText concatenates every file's diff.
func (c *ChangeSet) DiffText() string {
	if c == nil {
		return ""
	}
	var sb strings.Builder
	for _, f := range c.Files {
		sb.WriteString(f.Diff)
		if f.Diff != "" && !strings.HasSuffix(f.Diff, "\n") {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Totals returns the summed added and deleted line counts.
func (c *ChangeSet) Totals() (added, deleted int) {
	if c == nil {
		return 0, 0
	}
	for _, f := range c.Files {
		added += f.Added
		deleted += f.Deleted
	}
	return added, deleted
}

// Status is a snapshot of the working tree.
type Status struct {
	Branch     string   `json:"branch"`
	Staged     []string `json:"staged"`
	Unstaged   []string `json:"unstaged"`
	Untracked  []string `json:"untracked"`
	Conflicted []string `json:"conflicted,omitempty"`
}

// Clean reports whether there is nothing to commit or stage.
func (s *Status) Clean() bool {
	return len(s.Staged) == 0 && len(s.Unstaged) == 0 && len(s.Untracked) == 0 && len(s.Conflicted) == 0
}

// CommitInfo represents information about a git commit.
type CommitInfo struct {
	SHA      string `json:"sha"`
	ShortSHA string `json:"short_sha"`
	Author   string `json:"author"`
	Date     string `json:"date"`
	Subject  string `json:"subject"`
}

// BranchList lists local and remote branches.
type BranchList struct {
	Current string   `json:"current"`
	Local   []string `json:"local"`
	Remote  []string `json:"remote"`
}
