package prompt

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/matsen/aicommit/internal/git"
)

func fileChange(path string, status git.ChangeStatus, diff string) git.FileChange {
	added := strings.Count(diff, "\n+")
	return git.FileChange{Path: path, Status: status, Added: added, Diff: diff}
}

func simpleChanges() *git.ChangeSet {
	return &git.ChangeSet{
		Branch: "feature/greeting",
		Files: []git.FileChange{
			fileChange("hello.txt", git.StatusStaged, "diff --git a/hello.txt b/hello.txt\n@@ -0,0 +1 @@\n+hello\n"),
		},
	}
}

func TestBuild_EmbedsLanguageCode(t *testing.T) {
	codes := []string{"en", "es", "fr", "de", "it", "pt", "pt-BR", "ja", "zh", "ko", "ru", "nl", "eu", "xx"}
	b := NewBuilder()

	for _, code := range codes {
		t.Run(code, func(t *testing.T) {
			p, err := b.Build(Request{Language: code, Changes: simpleChanges()})
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if !strings.Contains(p.User, "in "+code) {
				t.Errorf("prompt does not embed %q:\n%s", code, p.User)
			}
			if p.Language != code {
				t.Errorf("Language = %q, want %q", p.Language, code)
			}
		})
	}
}

func TestBuild_DefaultsToEnglish(t *testing.T) {
	p, err := NewBuilder().Build(Request{Changes: simpleChanges()})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !strings.Contains(p.User, "in en (English)") {
		t.Errorf("default language missing:\n%s", p.User)
	}
}

func TestBuild_InvalidLanguage(t *testing.T) {
	for _, code := range []string{"Spanish", "EN", "e", "en_US"} {
		_, err := NewBuilder().Build(Request{Language: code, Changes: simpleChanges()})
		if !errors.Is(err, ErrInvalidLanguage) {
			t.Errorf("Build(%q) error = %v, want ErrInvalidLanguage", code, err)
		}
	}
}

func TestBuild_NoChanges(t *testing.T) {
	for _, cs := range []*git.ChangeSet{nil, {}} {
		_, err := NewBuilder().Build(Request{Changes: cs})
		if !errors.Is(err, git.ErrNoChanges) {
			t.Errorf("Build() error = %v, want git.ErrNoChanges", err)
		}
	}
}

func TestBuild_Deterministic(t *testing.T) {
	b := NewBuilder()
	req := Request{Language: "es", Context: "fixes #12", Changes: simpleChanges()}

	first, err := b.Build(req)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	second, err := b.Build(req)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Build() is not deterministic")
	}
}

func TestBuild_OptionalLines(t *testing.T) {
	b := NewBuilder()

	with, err := b.Build(Request{Context: "part of the auth rewrite", Changes: simpleChanges()})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !strings.Contains(with.User, "Author's note: part of the auth rewrite") {
		t.Errorf("context line missing:\n%s", with.User)
	}
	if !strings.Contains(with.User, "Branch: feature/greeting") {
		t.Errorf("branch line missing:\n%s", with.User)
	}

	cs := simpleChanges()
	cs.Branch = ""
	without, err := b.Build(Request{Changes: cs})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if strings.Contains(without.User, "Author's note") || strings.Contains(without.User, "Branch:") {
		t.Errorf("empty optional lines were kept:\n%s", without.User)
	}
	if strings.Contains(without.User, PlaceholderContext) || strings.Contains(without.User, PlaceholderBranch) {
		t.Errorf("placeholder left in output:\n%s", without.User)
	}

	override, err := b.Build(Request{Branch: "main", Changes: simpleChanges()})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !strings.Contains(override.User, "Branch: main") {
		t.Errorf("branch override ignored:\n%s", override.User)
	}
}

func TestBuild_FileListAndDiff(t *testing.T) {
	cs := &git.ChangeSet{Files: []git.FileChange{
		{Path: "main.go", Status: git.StatusStaged, Added: 3, Deleted: 1, Diff: "diff --git a/main.go b/main.go\n+x\n"},
		{Path: "logo.png", Status: git.StatusUntracked, Binary: true, Diff: "diff --git a/logo.png b/logo.png\nBinary files differ\n"},
	}}

	p, err := NewBuilder().Build(Request{Changes: cs})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for _, want := range []string{
		"- main.go (staged, +3/-1)",
		"- logo.png (untracked, binary)",
		"diff --git a/main.go b/main.go\n+x",
		`{"title": "...", "description": "..."}`,
	} {
		if !strings.Contains(p.User, want) {
			t.Errorf("prompt missing %q:\n%s", want, p.User)
		}
	}
	if p.Truncated || p.SummarizedFiles != nil {
		t.Errorf("small diff reported truncation: %+v", p)
	}
	if p.EstimatedTokens != EstimateTokens(p.System)+EstimateTokens(p.User) {
		t.Errorf("EstimatedTokens = %d", p.EstimatedTokens)
	}
}

func TestBuild_PlaceholdersInDiffAreLiteral(t *testing.T) {
	cs := &git.ChangeSet{Files: []git.FileChange{
		fileChange("tmpl.txt", git.StatusStaged, "diff --git a/tmpl.txt b/tmpl.txt\n+say {language} and {files}\n"),
	}}

	p, err := NewBuilder().Build(Request{Language: "fr", Changes: cs})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !strings.Contains(p.User, "+say {language} and {files}") {
		t.Errorf("diff content was substituted:\n%s", p.User)
	}
}

func TestBuild_LockfilesAlwaysSummarized(t *testing.T) {
	cs := &git.ChangeSet{Files: []git.FileChange{
		{Path: "go.sum", Status: git.StatusStaged, Added: 2, Deleted: 2, Diff: "diff --git a/go.sum b/go.sum\n+h1:abc\n"},
		fileChange("main.go", git.StatusStaged, "diff --git a/main.go b/main.go\n+x\n"),
		{Path: "web/package-lock.json", Status: git.StatusUnstaged, Added: 10, Diff: "diff --git a/web/package-lock.json b/web/package-lock.json\n+{}\n"},
	}}

	p, err := NewBuilder().Build(Request{Changes: cs})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !p.Truncated {
		t.Error("Truncated = false with lockfiles present")
	}
	if want := []string{"go.sum", "web/package-lock.json"}; !reflect.DeepEqual(p.SummarizedFiles, want) {
		t.Errorf("SummarizedFiles = %v, want %v", p.SummarizedFiles, want)
	}
	if strings.Contains(p.User, "+h1:abc") {
		t.Error("lockfile diff was inlined")
	}
	if !strings.Contains(p.User, "[2 files not shown in full]\n- go.sum (staged, +2/-2)") {
		t.Errorf("summary section missing:\n%s", p.User)
	}
}

func bigDiff(path string, lines int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "diff --git a/%s b/%s\n@@ -0,0 +1,%d @@\n", path, path, lines)
	for i := 0; i < lines; i++ {
		fmt.Fprintf(&sb, "+line %03d padding\n", i)
	}
	return sb.String()
}

func TestBuild_CutsFirstOverflowingFile(t *testing.T) {
	cs := &git.ChangeSet{Files: []git.FileChange{
		fileChange("a.txt", git.StatusStaged, "diff --git a/a.txt b/a.txt\n+a\n"),
		fileChange("b.txt", git.StatusStaged, bigDiff("b.txt", 100)),
		fileChange("c.txt", git.StatusStaged, "diff --git a/c.txt b/c.txt\n+c\n"),
	}}

	// 200 tokens is 800 bytes: a.txt fits, b.txt is cut, c.txt is listed.
	p, err := NewBuilder(WithMaxDiffTokens(200)).Build(Request{Changes: cs})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if !p.Truncated {
		t.Error("Truncated = false")
	}
	if !reflect.DeepEqual(p.SummarizedFiles, []string{"c.txt"}) {
		t.Errorf("SummarizedFiles = %v, want [c.txt]", p.SummarizedFiles)
	}
	if !strings.Contains(p.User, "+a\n") {
		t.Error("a.txt diff missing")
	}
	if !regexp.MustCompile(`\+line \d{3} padding\n\[\.\.\. \d+ more lines truncated\]`).MatchString(p.User) {
		t.Errorf("b.txt not cut at a line boundary with marker:\n%s", p.User)
	}
	if n := strings.Count(p.User, "+line "); n == 0 || n >= 100 {
		t.Errorf("kept %d of 100 lines", n)
	}
	if strings.Contains(p.User, "+c\n") {
		t.Error("c.txt diff inlined after overflow")
	}
}

func TestBuild_SummarizesWhenTooLittleBudgetLeft(t *testing.T) {
	cs := &git.ChangeSet{Files: []git.FileChange{
		fileChange("a.txt", git.StatusStaged, bigDiff("a.txt", 15)),
		fileChange("b.txt", git.StatusStaged, bigDiff("b.txt", 50)),
	}}

	// 100 tokens is 400 bytes; a.txt uses most of it.
	p, err := NewBuilder(WithMaxDiffTokens(100)).Build(Request{Changes: cs})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !reflect.DeepEqual(p.SummarizedFiles, []string{"b.txt"}) {
		t.Errorf("SummarizedFiles = %v, want [b.txt]", p.SummarizedFiles)
	}
	if strings.Contains(p.User, "more lines truncated") {
		t.Error("b.txt was cut instead of summarized")
	}
}

func TestCutAtLine(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		n           int
		want        string
		wantDropped int
	}{
		{"fits", "a\nb\n", 10, "a\nb\n", 0},
		{"mid line", "aaa\nbbb\nccc\n", 6, "aaa\n", 2},
		{"exact boundary", "aaa\nbbb\n", 4, "aaa\n", 1},
		{"no trailing newline", "aaa\nbbb", 5, "aaa\n", 1},
		{"nothing fits", "aaaa\n", 2, "", 1},
		{"negative", "a\n", -1, "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, dropped := cutAtLine(tt.in, tt.n)
			if got != tt.want || dropped != tt.wantDropped {
				t.Errorf("cutAtLine(%q, %d) = %q, %d; want %q, %d", tt.in, tt.n, got, dropped, tt.want, tt.wantDropped)
			}
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 4000), 1000},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.in); got != tt.want {
			t.Errorf("EstimateTokens(len %d) = %d, want %d", len(tt.in), got, tt.want)
		}
	}
}

func TestIsLockfile(t *testing.T) {
	tests := map[string]bool{
		"go.sum":                true,
		"frontend/yarn.lock":    true,
		"Cargo.lock":            true,
		"go.mod":                false,
		"docs/lockfile.md":      false,
		"pnpm-lock.yaml.backup": false,
	}
	for p, want := range tests {
		if got := IsLockfile(p); got != want {
			t.Errorf("IsLockfile(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestDescribeLanguage(t *testing.T) {
	if got := DescribeLanguage("es"); got != "es (Spanish)" {
		t.Errorf("DescribeLanguage(es) = %q", got)
	}
}
