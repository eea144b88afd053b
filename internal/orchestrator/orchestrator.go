// Package orchestrator runs one commit: collect changes, build the prompt,
// generate a message, review it, commit and optionally push.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/matsen/aicommit/internal/apperr"
	"github.com/matsen/aicommit/internal/config"
	"github.com/matsen/aicommit/internal/git"
	"github.com/matsen/aicommit/internal/message"
	"github.com/matsen/aicommit/internal/prompt"
	"github.com/matsen/aicommit/internal/provider"
)

// State is a step of a run.
type State string

// States of a run. Aborted is reachable only from Reviewing.
const (
	StateCollecting State = "collecting"
	StatePrompting  State = "prompting"
	StateReviewing  State = "reviewing"
	StateCommitting State = "committing"
	StatePushing    State = "pushing"
	StateDone       State = "done"
	StateAborted    State = "aborted"
)

// Inspector reads and changes the repository.
type Inspector interface {
	Changes(ctx context.Context, scope git.Scope) (*git.ChangeSet, error)
	StageAll(ctx context.Context) error
	Commit(ctx context.Context, msg string) (string, error)
	Push(ctx context.Context, remote string) error
}

// PromptBuilder renders the prompt for a change set.
type PromptBuilder interface {
	Build(req prompt.Request) (prompt.Prompt, error)
}

// Generator turns a prompt into a commit message.
type Generator interface {
	GenerateMessage(ctx context.Context, p prompt.Prompt) (message.CommitMessage, error)
}

// Reviewer shows a message to the user. It returns the message to commit and
// whether the user accepted it.
type Reviewer interface {
	Review(ctx context.Context, msg message.CommitMessage) (message.CommitMessage, bool, error)
}

// Options controls one run.
type Options struct {
	Scope       git.Scope
	Language    string
	Context     string
	Branch      string
	AutoConfirm bool
	Preview     bool
	Push        bool
	Remote      string
}

// Result is the outcome of a run.
type Result struct {
	State           State    `json:"state"`
	States          []State  `json:"states"`
	Title           string   `json:"title,omitempty"`
	Body            string   `json:"body,omitempty"`
	SHA             string   `json:"sha,omitempty"`
	Pushed          bool     `json:"pushed"`
	Remote          string   `json:"remote,omitempty"`
	Provider        string   `json:"provider,omitempty"`
	Model           string   `json:"model,omitempty"`
	Scope           string   `json:"scope"`
	Branch          string   `json:"branch,omitempty"`
	Language        string   `json:"language,omitempty"`
	Files           []string `json:"files"`
	Truncated       bool     `json:"truncated"`
	SummarizedFiles []string `json:"summarized_files,omitempty"`
	Edited          bool     `json:"edited,omitempty"`
}

// Message returns the message carried by the result.
func (r *Result) Message() message.CommitMessage {
	return message.CommitMessage{Title: r.Title, Body: r.Body}
}

// Committed reports whether a commit was created.
func (r *Result) Committed() bool {
	return r.SHA != ""
}

// Orchestrator wires the steps of a run together.
type Orchestrator struct {
	inspector Inspector
	builder   PromptBuilder
	generator Generator
	reviewer  Reviewer
	provider  string
	model     string
	observe   func(State, *Result)
	preflight func(context.Context) error
	log       *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithObserver calls fn on every state transition with the result so far.
func WithObserver(fn func(State, *Result)) Option {
	return func(o *Orchestrator) {
		o.observe = fn
	}
}

// WithPreflight sets a check run once changes are collected and before the
// prompt is built, such as probing a local model server. Its error is
// returned unchanged.
func WithPreflight(fn func(context.Context) error) Option {
	return func(o *Orchestrator) {
		o.preflight = fn
	}
}

// WithProviderInfo records the provider and model in results.
func WithProviderInfo(name, model string) Option {
	return func(o *Orchestrator) {
		o.provider = name
		o.model = model
	}
}

// New creates an Orchestrator. reviewer may be nil when every run is
// auto-confirmed or a preview.
func New(inspector Inspector, builder PromptBuilder, generator Generator, reviewer Reviewer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		inspector: inspector,
		builder:   builder,
		generator: generator,
		reviewer:  reviewer,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one commit. The returned Result reflects how far the run got,
// including when an error is returned. A rejected message ends in
// StateAborted with a nil error.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{
		Scope:    opts.Scope.String(),
		Provider: o.provider,
		Model:    o.model,
		Files:    []string{},
	}

	o.enter(res, StateCollecting)
	cs, err := o.inspector.Changes(ctx, opts.Scope)
	if err != nil {
		return res, classifyRepository(err, opts.Scope)
	}
	res.Files = cs.Paths()
	res.Branch = cs.Branch
	if opts.Branch != "" {
		res.Branch = opts.Branch
	}

	if o.preflight != nil {
		if err := o.preflight(ctx); err != nil {
			return res, err
		}
	}

	o.enter(res, StatePrompting)
	p, err := o.builder.Build(prompt.Request{
		Language: opts.Language,
		Context:  opts.Context,
		Branch:   opts.Branch,
		Changes:  cs,
	})
	if err != nil {
		return res, classifyPrompt(err, opts.Scope)
	}
	res.Language = p.Language
	res.Truncated = p.Truncated
	res.SummarizedFiles = p.SummarizedFiles

	msg, err := o.generator.GenerateMessage(ctx, p)
	if err != nil {
		return res, classifyProvider(err, o.provider)
	}
	if normalized := message.EnsureConventional(msg); normalized.Title != msg.Title {
		o.log.Debug("normalized title", zap.String("from", msg.Title), zap.String("to", normalized.Title))
		msg = normalized
	}
	res.Title, res.Body = msg.Title, msg.Body

	if opts.Preview {
		o.enter(res, StateDone)
		return res, nil
	}

	if !opts.AutoConfirm {
		if o.reviewer == nil {
			return res, errors.New("no reviewer configured for an interactive run")
		}
		o.enter(res, StateReviewing)
		reviewed, ok, err := o.reviewer.Review(ctx, msg)
		if err != nil {
			return res, err
		}
		if !ok {
			o.enter(res, StateAborted)
			return res, nil
		}
		if reviewed != msg {
			res.Edited = true
			msg = reviewed
			res.Title, res.Body = msg.Title, msg.Body
		}
	}

	o.enter(res, StateCommitting)
	if opts.Scope == git.ScopeAll {
		if err := o.inspector.StageAll(ctx); err != nil {
			return res, apperr.Commit(fmt.Errorf("staging changes: %w", err))
		}
	}
	sha, err := o.inspector.Commit(ctx, msg.String())
	if err != nil {
		return res, apperr.Commit(err, "the commit was not created; fix the problem reported above and run again")
	}
	res.SHA = sha
	o.log.Debug("committed", zap.String("sha", sha))

	if opts.Push {
		o.enter(res, StatePushing)
		remote := opts.Remote
		if remote == "" {
			remote = git.DefaultRemote
		}
		res.Remote = remote
		if err := o.inspector.Push(ctx, remote); err != nil {
			return res, apperr.Commit(err, fmt.Sprintf("the commit %s was created locally; push it with: git push %s", git.ShortSHA(sha), remote))
		}
		res.Pushed = true
	}

	o.enter(res, StateDone)
	return res, nil
}

func (o *Orchestrator) enter(res *Result, s State) {
	from := res.State
	res.State = s
	res.States = append(res.States, s)
	o.log.Debug("state", zap.String("from", string(from)), zap.String("to", string(s)))
	if o.observe != nil {
		o.observe(s, res)
	}
}

func classifyRepository(err error, scope git.Scope) error {
	switch {
	case errors.Is(err, git.ErrNotGitRepo):
		return apperr.Repository(err, "run aicommit inside a git repository or pass --repo")
	case errors.Is(err, git.ErrNoChanges):
		if scope == git.ScopeStaged {
			return apperr.Repository(err, "stage files with git add (or aicommit stage), or use --all")
		}
		return apperr.Repository(err, "there is nothing to commit in the working tree")
	default:
		return apperr.Repository(err)
	}
}

func classifyPrompt(err error, scope git.Scope) error {
	switch {
	case errors.Is(err, git.ErrNoChanges):
		return classifyRepository(err, scope)
	case errors.Is(err, prompt.ErrInvalidLanguage):
		return apperr.Config(err, "use an ISO 639-1 code such as en, es or pt-BR")
	default:
		return apperr.Config(err)
	}
}

func classifyProvider(err error, name string) error {
	switch {
	case provider.IsAuthError(err):
		return apperr.Provider(err, "check the API key configured for "+name)
	case provider.IsRateLimited(err):
		return apperr.Provider(err, "wait a moment and retry, or choose another provider with --provider")
	case errors.Is(err, provider.ErrNetwork):
		return apperr.Provider(err, "check your network connection and the endpoint configured for "+name)
	case provider.IsConfigError(err):
		return apperr.Config(err, "run aicommit providers to see what is missing")
	default:
		return apperr.Provider(err)
	}
}

// ProviderHint tells the user how to configure the named provider.
func ProviderHint(name string) string {
	switch name {
	case config.ProviderOpenAI:
		return "set " + config.KeyOpenAIAPIKey + " in the environment or a .env file"
	case config.ProviderGoogle:
		return "set " + config.KeyGoogleAPIKey + " in the environment or a .env file"
	case config.ProviderAzure:
		return "set " + config.KeyAzureAPIKey + ", " + config.KeyAzureEndpoint + " and " + config.KeyAzureModel
	case config.ProviderOllama:
		return "set " + config.KeyOllamaModel + " and make sure ollama serve is running"
	default:
		return "run aicommit providers to list the supported providers"
	}
}
