package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/aicommit/internal/apperr"
	"github.com/matsen/aicommit/internal/config"
	"github.com/matsen/aicommit/internal/git"
	"github.com/matsen/aicommit/internal/orchestrator"
	"github.com/matsen/aicommit/internal/prompt"
	"github.com/matsen/aicommit/internal/provider"
	"github.com/matsen/aicommit/internal/review"
)

// ollamaCheckTimeout bounds the reachability check before generating.
const ollamaCheckTimeout = 3 * time.Second

// Generation flags, shared by the root command and preview.
var (
	providerName string
	includeAll   bool
	language     string
	extraContext string
	branchName   string
)

// Commit-only flags.
var (
	autoConfirm bool
	pushAfter   bool
	pushRemote  string
	noStatus    bool
)

func addGenerationFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&providerName, "provider", "p", "", "AI provider: openai, google, azure, ollama (default: DEFAULT_AI_PROVIDER)")
	cmd.Flags().BoolVarP(&includeAll, "all", "a", false, "Include unstaged and untracked changes (stages everything before committing)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "Language code for the message, e.g. en, es, pt-BR (default: DEFAULT_LANG)")
	cmd.Flags().StringVarP(&extraContext, "context", "c", "", "Extra context for the AI, e.g. why the change was made")
	cmd.Flags().StringVar(&branchName, "branch", "", "Branch name to mention in the prompt (default: current branch)")
}

func runCommit(cmd *cobra.Command, args []string) error {
	res, err := runGeneration(cmd.Context(), false)
	if err != nil {
		return err
	}
	return output(res, func() string { return formatResult(res) })
}

// runGeneration wires the packages for one run. preview stops after the
// message is generated.
func runGeneration(ctx context.Context, preview bool) (*orchestrator.Result, error) {
	a, err := setup(ctx, true)
	if err != nil {
		return nil, err
	}

	p, err := newProvider(a)
	if err != nil {
		return nil, err
	}

	builder, err := newPromptBuilder(a)
	if err != nil {
		return nil, err
	}

	opts := orchestrator.Options{
		Scope:       git.ScopeStaged,
		Language:    language,
		Context:     extraContext,
		Branch:      branchName,
		AutoConfirm: autoConfirm,
		Preview:     preview,
		Push:        pushAfter,
		Remote:      pushRemote,
	}
	if includeAll {
		opts.Scope = git.ScopeAll
	}
	if opts.Language == "" {
		opts.Language = a.cfg.DefaultLang
	}

	orchOpts := []orchestrator.Option{
		orchestrator.WithLogger(a.log),
		orchestrator.WithProviderInfo(p.Name(), p.Model()),
	}
	if ollama, ok := p.(*provider.Ollama); ok {
		orchOpts = append(orchOpts, orchestrator.WithPreflight(func(ctx context.Context) error {
			return checkOllama(ctx, ollama)
		}))
	}
	if !jsonOutput && !noStatus {
		orchOpts = append(orchOpts, orchestrator.WithObserver(func(s orchestrator.State, res *orchestrator.Result) {
			if s == orchestrator.StatePrompting {
				fmt.Fprint(os.Stderr, formatChangeSummary(res))
			}
		}))
	}

	var reviewer orchestrator.Reviewer
	if !autoConfirm && !preview {
		reviewer = review.NewTerminal(os.Stdin, os.Stderr, review.WithLogger(a.log))
	}

	gen := provider.NewGenerator(p, provider.WithGeneratorLogger(a.log))
	o := orchestrator.New(a.repo, builder, gen, reviewer, orchOpts...)
	return o.Run(ctx, opts)
}

// newProvider creates the selected provider.
func newProvider(a *app) (provider.Provider, error) {
	name := providerName
	if name == "" {
		name = a.cfg.DefaultProvider
	}

	p, err := provider.New(name, a.cfg, provider.WithLogger(a.log))
	if err != nil {
		if errors.Is(err, provider.ErrUnknownProvider) {
			return nil, apperr.Config(err)
		}
		return nil, apperr.Config(err, orchestrator.ProviderHint(name))
	}
	return p, nil
}

// checkOllama checks that Ollama is running and the model is pulled. It runs
// after changes are collected, so an empty change set is reported first.
func checkOllama(ctx context.Context, p *provider.Ollama) error {
	checkCtx, cancel := context.WithTimeout(ctx, ollamaCheckTimeout)
	defer cancel()

	if !p.IsAvailable(checkCtx) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperr.Provider(
			&provider.ProviderError{Provider: p.Name(), Detail: "server not reachable", Err: provider.ErrNetwork},
			"start Ollama with 'ollama serve' or set "+config.KeyOllamaURL)
	}

	hasModel, err := p.HasModel(checkCtx)
	if err != nil {
		return apperr.Provider(err)
	}
	if !hasModel {
		return apperr.Config(
			&provider.ProviderError{Provider: p.Name(), Detail: fmt.Sprintf("model %q not found", p.Model()), Err: provider.ErrNotConfigured},
			fmt.Sprintf("run 'ollama pull %s' to download it", p.Model()))
	}
	return nil
}

// newPromptBuilder loads templates from --prompts, else CUSTOM_PROMPTS_PATH,
// else the per-user prompts file when it exists.
func newPromptBuilder(a *app) (*prompt.Builder, error) {
	var (
		tmpl prompt.Templates
		err  error
	)
	switch {
	case promptsPath != "":
		tmpl, err = prompt.LoadTemplates(config.ExpandPath(promptsPath))
	case a.cfg.CustomPromptsPath != "":
		tmpl, err = prompt.LoadTemplates(a.cfg.CustomPromptsPath)
	default:
		tmpl, err = prompt.LoadTemplatesOrDefault(prompt.DefaultPromptsPath())
	}
	if err != nil {
		return nil, apperr.Config(err, "prompt files are YAML with system_prompt and commit_prompt keys; commit_prompt must contain {diff_content}")
	}

	a.log.Debug("prompt builder ready", zap.Int("max_diff_tokens", a.cfg.MaxDiffTokens))
	return prompt.NewBuilder(
		prompt.WithTemplates(tmpl),
		prompt.WithMaxDiffTokens(a.cfg.MaxDiffTokens),
		prompt.WithLogger(a.log),
	), nil
}
