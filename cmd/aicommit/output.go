package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matsen/aicommit/internal/apperr"
	"github.com/matsen/aicommit/internal/config"
	"github.com/matsen/aicommit/internal/git"
	"github.com/matsen/aicommit/internal/orchestrator"
)

// Styles for human-readable output. lipgloss drops colors when the output
// is not a terminal.
var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// output writes v as JSON in --json mode, otherwise the text from human.
func output(v interface{}, human func() string) error {
	if jsonOutput {
		return outputJSON(v)
	}
	outputHuman("%s", human())
	return nil
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string   `json:"error"`
	Kind  string   `json:"kind"`
	Hints []string `json:"hints,omitempty"`
}

func newErrorResponse(err error) ErrorResponse {
	kind := apperr.KindOf(err)
	msg := err.Error()
	if kind == apperr.KindInterrupted {
		msg = "interrupted"
	}
	return ErrorResponse{Error: msg, Kind: kind.String(), Hints: apperr.Hints(err)}
}

// reportError prints err in the selected output format.
func reportError(err error) {
	resp := newErrorResponse(err)
	if jsonOutput {
		outputJSON(resp)
		return
	}
	fmt.Fprint(os.Stderr, formatErrorHuman(resp))
}

func formatErrorHuman(resp ErrorResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", errorStyle.Render("error:"), resp.Error)
	for _, h := range resp.Hints {
		fmt.Fprintf(&sb, "%s %s\n", faintStyle.Render("hint:"), h)
	}
	return sb.String()
}

// formatResult describes the outcome of a commit or preview run.
func formatResult(res *orchestrator.Result) string {
	var sb strings.Builder
	switch res.State {
	case orchestrator.StateAborted:
		sb.WriteString(warnStyle.Render("Commit canceled.") + "\n")
	case orchestrator.StateDone:
		if !res.Committed() {
			sb.WriteString(res.Message().String() + "\n")
			break
		}
		fmt.Fprintf(&sb, "%s [%s %s] %s\n", successStyle.Render("✓"), res.Branch, git.ShortSHA(res.SHA), res.Title)
		if res.Pushed {
			fmt.Fprintf(&sb, "%s pushed to %s\n", successStyle.Render("✓"), res.Remote)
		}
	}
	return sb.String()
}

// formatChangeSummary is printed before generation unless --no-status is set.
func formatChangeSummary(res *orchestrator.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %d file(s) (%s)", headerStyle.Render("Generating message for"), len(res.Files), res.Scope)
	if res.Provider != "" {
		fmt.Fprintf(&sb, " with %s/%s", res.Provider, res.Model)
	}
	sb.WriteString("\n")
	for _, f := range res.Files {
		sb.WriteString("  " + f + "\n")
	}
	if len(res.SummarizedFiles) > 0 {
		sb.WriteString(faintStyle.Render(fmt.Sprintf("  diff truncated; summarized: %s", strings.Join(res.SummarizedFiles, ", "))) + "\n")
	}
	return sb.String()
}

func formatStatus(st *git.Status) string {
	var sb strings.Builder
	branch := st.Branch
	if branch == "" {
		branch = "(detached)"
	}
	fmt.Fprintf(&sb, "%s %s\n", headerStyle.Render("On branch"), branch)
	if st.Clean() {
		sb.WriteString("Nothing to commit, working tree clean.\n")
		return sb.String()
	}

	section := func(title string, style lipgloss.Style, paths []string) {
		if len(paths) == 0 {
			return
		}
		fmt.Fprintf(&sb, "\n%s (%d)\n", headerStyle.Render(title), len(paths))
		for _, p := range paths {
			sb.WriteString("  " + style.Render(p) + "\n")
		}
	}
	section("Conflicted", errorStyle, st.Conflicted)
	section("Staged", successStyle, st.Staged)
	section("Unstaged", warnStyle, st.Unstaged)
	section("Untracked", faintStyle, st.Untracked)
	return sb.String()
}

func formatHistory(commits []git.CommitInfo) string {
	if len(commits) == 0 {
		return "No commits yet.\n"
	}
	var sb strings.Builder
	for _, c := range commits {
		date := c.Date
		if len(date) > 10 {
			date = date[:10]
		}
		fmt.Fprintf(&sb, "%s %s %s %s\n", warnStyle.Render(c.ShortSHA), date, faintStyle.Render(c.Author), c.Subject)
	}
	return sb.String()
}

func formatBranches(b *git.BranchList) string {
	var sb strings.Builder
	for _, name := range b.Local {
		if name == b.Current {
			fmt.Fprintf(&sb, "* %s\n", successStyle.Render(name))
		} else {
			fmt.Fprintf(&sb, "  %s\n", name)
		}
	}
	for _, name := range b.Remote {
		fmt.Fprintf(&sb, "  %s\n", faintStyle.Render("remotes/"+name))
	}
	if sb.Len() == 0 {
		return "No branches yet.\n"
	}
	return sb.String()
}

func formatProviders(reports []providerReport) string {
	width := 0
	for _, r := range reports {
		width = max(width, len(r.Name))
	}

	var sb strings.Builder
	for _, r := range reports {
		mark := errorStyle.Render("✗")
		if r.Configured {
			mark = successStyle.Render("✓")
		}
		fmt.Fprintf(&sb, "%s %-*s", mark, width, r.Name)
		if r.Model != "" {
			fmt.Fprintf(&sb, "  %s", r.Model)
		}
		if r.Default {
			sb.WriteString(" " + headerStyle.Render("(default)"))
		}
		if len(r.Missing) > 0 {
			sb.WriteString("  " + faintStyle.Render("missing "+strings.Join(r.Missing, ", ")))
		}
		if r.Reachable != nil && !*r.Reachable {
			sb.WriteString("  " + warnStyle.Render("server not reachable"))
		}
		if r.ModelInstalled != nil && !*r.ModelInstalled {
			sb.WriteString("  " + warnStyle.Render("model not pulled"))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatEntries(entries []config.Entry, envFiles []string) string {
	width := 0
	for _, e := range entries {
		width = max(width, len(e.Key))
	}

	var sb strings.Builder
	for _, e := range entries {
		value := e.Value
		if value == "" {
			value = faintStyle.Render("(unset)")
		}
		fmt.Fprintf(&sb, "%-*s  %s\n", width, e.Key, value)
	}
	if len(envFiles) > 0 {
		fmt.Fprintf(&sb, "\n%s %s\n", faintStyle.Render("loaded from"), strings.Join(envFiles, ", "))
	}
	return sb.String()
}
