package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matsen/aicommit/internal/git"
)

func writePrompts(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultTemplates_Valid(t *testing.T) {
	tmpl := DefaultTemplates()
	if err := tmpl.Validate(); err != nil {
		t.Errorf("default templates invalid: %v", err)
	}
	for _, ph := range []string{PlaceholderLanguage, PlaceholderDiff, PlaceholderContext, PlaceholderBranch, PlaceholderFiles} {
		if !strings.Contains(tmpl.Commit, ph) {
			t.Errorf("default commit prompt lacks %s", ph)
		}
	}
}

func TestLoadTemplates(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantSystem string
		wantCommit string
		wantErr    error
	}{
		{
			name:       "both keys",
			content:    "system_prompt: Be terse.\ncommit_prompt: |\n  Lang {language}\n  {diff_content}\n",
			wantSystem: "Be terse.",
			wantCommit: "Lang {language}\n{diff_content}\n",
		},
		{
			name:       "system only",
			content:    "system_prompt: Only system.\n",
			wantSystem: "Only system.",
			wantCommit: defaultCommitPrompt,
		},
		{
			name:       "empty file",
			content:    "",
			wantSystem: defaultSystemPrompt,
			wantCommit: defaultCommitPrompt,
		},
		{
			name:    "commit prompt without diff",
			content: "commit_prompt: Describe it in {language}.\n",
			wantErr: ErrInvalidTemplate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadTemplates(writePrompts(t, tt.content))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("LoadTemplates() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadTemplates() error = %v", err)
			}
			if got.System != tt.wantSystem {
				t.Errorf("System = %q, want %q", got.System, tt.wantSystem)
			}
			if got.Commit != tt.wantCommit {
				t.Errorf("Commit = %q, want %q", got.Commit, tt.wantCommit)
			}
		})
	}
}

func TestLoadTemplates_Errors(t *testing.T) {
	if _, err := LoadTemplates(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadTemplates(missing) expected error")
	}

	if _, err := LoadTemplates(writePrompts(t, "commit_promt: typo {diff_content}\n")); err == nil {
		t.Error("LoadTemplates() accepted an unknown key")
	}

	if _, err := LoadTemplates(writePrompts(t, "system_prompt: [unclosed\n")); err == nil {
		t.Error("LoadTemplates() accepted malformed YAML")
	}
}

func TestLoadTemplatesOrDefault(t *testing.T) {
	got, err := LoadTemplatesOrDefault("")
	if err != nil || got != DefaultTemplates() {
		t.Errorf("LoadTemplatesOrDefault(\"\") = %+v, %v", got, err)
	}

	got, err = LoadTemplatesOrDefault(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil || got != DefaultTemplates() {
		t.Errorf("LoadTemplatesOrDefault(absent) = %+v, %v", got, err)
	}
}

func TestDefaultPromptsPath(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	if got, want := DefaultPromptsPath(), filepath.Join(xdg, "aicommit", "prompts.yml"); got != want {
		t.Errorf("DefaultPromptsPath() = %q, want %q", got, want)
	}
}

func TestBuild_CustomTemplates(t *testing.T) {
	tmpl, err := LoadTemplates(writePrompts(t, strings.Join([]string{
		"system_prompt: Reply in {language}.",
		"commit_prompt: |",
		"  Files:",
		"  {files}",
		"  Context: {context}",
		"  {diff_content}",
	}, "\n")))
	if err != nil {
		t.Fatalf("LoadTemplates() error = %v", err)
	}

	cs := &git.ChangeSet{Files: []git.FileChange{
		{Path: "a.go", Status: git.StatusStaged, Added: 1, Diff: "diff --git a/a.go b/a.go\n+x\n"},
	}}
	p, err := NewBuilder(WithTemplates(tmpl)).Build(Request{Language: "de", Changes: cs})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if p.System != "Reply in de (German)." {
		t.Errorf("System = %q", p.System)
	}
	want := "Files:\n- a.go (staged, +1/-0)\ndiff --git a/a.go b/a.go\n+x"
	if !strings.HasPrefix(p.User, want) {
		t.Errorf("User = %q, want prefix %q", p.User, want)
	}
}
