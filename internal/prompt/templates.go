package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matsen/aicommit/internal/config"
)

// Template placeholders.
const (
	PlaceholderLanguage = "{language}"
	PlaceholderDiff     = "{diff_content}"
	PlaceholderContext  = "{context}"
	PlaceholderBranch   = "{branch}"
	PlaceholderFiles    = "{files}"
)

// PromptsFile is the per-user prompt file consulted when no path is configured.
const PromptsFile = "prompts.yml"

// ErrInvalidTemplate indicates a custom template cannot produce a usable prompt.
var ErrInvalidTemplate = errors.New("invalid prompt template")

// Templates holds the system and commit prompt text.
type Templates struct {
	System string `yaml:"system_prompt"`
	Commit string `yaml:"commit_prompt"`
}

const defaultSystemPrompt = `You are an experienced software engineer who writes clear, accurate git commit messages following the Conventional Commits specification. You describe what the change does, never how you were asked to describe it.`

const defaultCommitPrompt = `Write a commit message for the changes below.

Rules:
- Write the title and description in {language}. Keep the commit type and scope in English.
- The title follows Conventional Commits: type(scope): summary. Use one of feat, fix, docs, style, refactor, perf, test, build, ci, chore, revert.
- Keep the title under 72 characters, in the imperative mood, with no trailing period.
- The description explains what changed and why in a few short lines. Leave it empty for trivial changes.
- Base the message only on the diff. Do not invent changes.

Author's note: {context}
Branch: {branch}

Changed files:
{files}

Diff:
{diff_content}

Respond with only a JSON object: {"title": "...", "description": "..."}`

// DefaultTemplates returns the built-in templates.
func DefaultTemplates() Templates {
	return Templates{System: defaultSystemPrompt, Commit: defaultCommitPrompt}
}

// Validate checks that the commit template can carry the diff.
func (t Templates) Validate() error {
	if !strings.Contains(t.Commit, PlaceholderDiff) {
		return fmt.Errorf("%w: commit_prompt must contain %s", ErrInvalidTemplate, PlaceholderDiff)
	}
	return nil
}

// DefaultPromptsPath returns the per-user prompt file path.
func DefaultPromptsPath() string {
	dir := config.ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, PromptsFile)
}

// LoadTemplates reads custom templates from a YAML file with the keys
// system_prompt and commit_prompt. Keys that are absent or blank keep the
// built-in text.
func LoadTemplates(path string) (Templates, error) {
	f, err := os.Open(config.ExpandPath(path))
	if err != nil {
		return Templates{}, fmt.Errorf("opening prompt file: %w", err)
	}
	defer f.Close()

	return decodeTemplates(f, path)
}

// LoadTemplatesOrDefault is LoadTemplates for an optional file: an empty path
// or a missing file yields the built-in templates.
func LoadTemplatesOrDefault(path string) (Templates, error) {
	if path == "" {
		return DefaultTemplates(), nil
	}
	if _, err := os.Stat(config.ExpandPath(path)); errors.Is(err, os.ErrNotExist) {
		return DefaultTemplates(), nil
	}
	return LoadTemplates(path)
}

func decodeTemplates(r io.Reader, name string) (Templates, error) {
	var custom Templates
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&custom); err != nil && !errors.Is(err, io.EOF) {
		return Templates{}, fmt.Errorf("parsing prompt file %s: %w", name, err)
	}

	t := DefaultTemplates()
	if strings.TrimSpace(custom.System) != "" {
		t.System = custom.System
	}
	if strings.TrimSpace(custom.Commit) != "" {
		t.Commit = custom.Commit
	}

	if err := t.Validate(); err != nil {
		return Templates{}, fmt.Errorf("%s: %w", name, err)
	}
	return t, nil
}
