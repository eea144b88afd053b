// Package prompt assembles the instruction sent to a provider from a
// ChangeSet, keeping the diff inside a token budget.
package prompt

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/matsen/aicommit/internal/config"
	"github.com/matsen/aicommit/internal/git"
)

// ErrInvalidLanguage indicates a language code that is not ISO 639 shaped.
var ErrInvalidLanguage = errors.New("invalid language code")

const (
	// bytesPerToken is the estimate used to convert bytes to tokens.
	bytesPerToken = 4
	// minCutBytes is the least remaining budget worth spending on a partial file.
	minCutBytes = 256
	// markerReserve keeps room for the truncation marker inside the budget.
	markerReserve = 48
)

// lockfiles are summarized instead of inlined regardless of budget.
var lockfiles = map[string]bool{
	"go.sum":            true,
	"package-lock.json": true,
	"yarn.lock":         true,
	"pnpm-lock.yaml":    true,
	"Cargo.lock":        true,
	"poetry.lock":       true,
	"composer.lock":     true,
	"Gemfile.lock":      true,
}

// Request is everything a prompt is built from. Branch overrides the
// ChangeSet's branch when set.
type Request struct {
	Language string
	Context  string
	Branch   string
	Changes  *git.ChangeSet
}

// Prompt is the rendered instruction plus truncation metadata.
type Prompt struct {
	System          string   `json:"-"`
	User            string   `json:"-"`
	Language        string   `json:"language"`
	Truncated       bool     `json:"truncated"`
	SummarizedFiles []string `json:"summarized_files,omitempty"`
	EstimatedTokens int      `json:"estimated_tokens"`
}

// Builder renders prompts. It is safe for concurrent use.
type Builder struct {
	templates     Templates
	maxDiffTokens int
	log           *zap.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithTemplates replaces the built-in templates.
func WithTemplates(t Templates) Option {
	return func(b *Builder) {
		b.templates = t
	}
}

// WithMaxDiffTokens sets the diff budget in estimated tokens.
func WithMaxDiffTokens(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxDiffTokens = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// NewBuilder returns a Builder with the built-in templates and default budget.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		templates:     DefaultTemplates(),
		maxDiffTokens: config.DefaultMaxDiffTokens,
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build renders the prompt for req. The output depends only on req and the
// Builder's settings.
func (b *Builder) Build(req Request) (Prompt, error) {
	if req.Changes.Empty() {
		return Prompt{}, git.ErrNoChanges
	}

	lang := req.Language
	if lang == "" {
		lang = config.DefaultLang
	}
	if !config.ValidLanguage(lang) {
		return Prompt{}, fmt.Errorf("%w: %q", ErrInvalidLanguage, lang)
	}

	branch := req.Branch
	if branch == "" {
		branch = req.Changes.Branch
	}

	diff, summarized, truncated := b.fitDiff(req.Changes.Files)

	values := map[string]string{
		PlaceholderLanguage: DescribeLanguage(lang),
		PlaceholderDiff:     diff,
		PlaceholderContext:  strings.TrimSpace(req.Context),
		PlaceholderBranch:   branch,
		PlaceholderFiles:    fileList(req.Changes.Files),
	}

	p := Prompt{
		System:          render(b.templates.System, values),
		User:            render(b.templates.Commit, values),
		Language:        lang,
		Truncated:       truncated,
		SummarizedFiles: summarized,
	}
	p.EstimatedTokens = EstimateTokens(p.System) + EstimateTokens(p.User)

	b.log.Debug("built prompt",
		zap.String("language", lang),
		zap.Int("files", len(req.Changes.Files)),
		zap.Bool("truncated", truncated),
		zap.Strings("summarized", summarized),
		zap.Int("estimated_tokens", p.EstimatedTokens))

	return p, nil
}

// DescribeLanguage renders a code for the instruction: "es (Spanish)", or the
// bare code when it has no known name.
func DescribeLanguage(code string) string {
	if name := config.LanguageName(code); name != "" {
		return code + " (" + name + ")"
	}
	return code
}

// EstimateTokens approximates the token count of s as ceil(bytes/4).
func EstimateTokens(s string) int {
	return (len(s) + bytesPerToken - 1) / bytesPerToken
}

// IsLockfile reports whether p names a dependency lockfile.
func IsLockfile(p string) bool {
	return lockfiles[path.Base(p)]
}

// fitDiff inlines file diffs in order while they fit the budget. The first
// file that overflows is cut at a line boundary when enough budget remains;
// it and every later file, plus all lockfiles, are listed in a summary.
func (b *Builder) fitDiff(files []git.FileChange) (string, []string, bool) {
	budget := b.maxDiffTokens * bytesPerToken

	var (
		sb         strings.Builder
		summary    []git.FileChange
		used       int
		overflowed bool
		truncated  bool
	)

	for _, f := range files {
		if IsLockfile(f.Path) {
			summary = append(summary, f)
			truncated = true
			continue
		}
		if overflowed {
			summary = append(summary, f)
			continue
		}

		d := f.Diff
		if d != "" && !strings.HasSuffix(d, "\n") {
			d += "\n"
		}
		if used+len(d) <= budget {
			sb.WriteString(d)
			used += len(d)
			continue
		}

		overflowed = true
		truncated = true
		remaining := budget - used
		if remaining < minCutBytes {
			summary = append(summary, f)
			continue
		}

		kept, dropped := cutAtLine(d, remaining-markerReserve)
		sb.WriteString(kept)
		fmt.Fprintf(&sb, "[... %d more lines truncated]\n", dropped)
		used += len(kept)
	}

	names := make([]string, 0, len(summary))
	if len(summary) > 0 {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "[%d files not shown in full]\n", len(summary))
		for _, f := range summary {
			sb.WriteString("- " + describeFile(f) + "\n")
			names = append(names, f.Path)
		}
	}

	if len(names) == 0 {
		names = nil
	}
	return strings.TrimRight(sb.String(), "\n"), names, truncated
}

// cutAtLine returns the longest prefix of s that ends on a line boundary and
// fits in n bytes, plus the number of lines dropped.
func cutAtLine(s string, n int) (string, int) {
	if n >= len(s) {
		return s, 0
	}
	if n < 0 {
		n = 0
	}
	end := strings.LastIndexByte(s[:n], '\n') + 1
	rest := s[end:]
	dropped := strings.Count(rest, "\n")
	if rest != "" && !strings.HasSuffix(rest, "\n") {
		dropped++
	}
	return s[:end], dropped
}

// fileList renders one line per file change.
func fileList(files []git.FileChange) string {
	lines := make([]string, 0, len(files))
	for _, f := range files {
		lines = append(lines, "- "+describeFile(f))
	}
	return strings.Join(lines, "\n")
}

func describeFile(f git.FileChange) string {
	if f.Binary {
		return fmt.Sprintf("%s (%s, binary)", f.Path, f.Status)
	}
	return fmt.Sprintf("%s (%s, +%d/-%d)", f.Path, f.Status, f.Added, f.Deleted)
}

// render substitutes placeholders in one pass. Lines whose only purpose is an
// empty optional value ({context}, {branch}) are dropped.
func render(tmpl string, values map[string]string) string {
	lines := strings.Split(tmpl, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.Contains(line, PlaceholderContext) && values[PlaceholderContext] == "" {
			continue
		}
		if strings.Contains(line, PlaceholderBranch) && values[PlaceholderBranch] == "" {
			continue
		}
		kept = append(kept, line)
	}

	pairs := make([]string, 0, len(values)*2)
	for _, key := range []string{PlaceholderLanguage, PlaceholderDiff, PlaceholderContext, PlaceholderBranch, PlaceholderFiles} {
		pairs = append(pairs, key, values[key])
	}
	return strings.NewReplacer(pairs...).Replace(strings.Join(kept, "\n"))
}
