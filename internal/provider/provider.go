// Package provider sends prompts to AI text-generation backends and turns
// their replies into commit messages.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/matsen/aicommit/internal/config"
	"github.com/matsen/aicommit/internal/message"
	"github.com/matsen/aicommit/internal/prompt"
)

const (
	// DefaultRateLimit paces outbound requests, including parse retries.
	DefaultRateLimit = 2.0

	// MaxAttempts bounds requests for one message when replies are unusable.
	MaxAttempts = 3

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 4 << 20

	userAgent = "aicommit"
)

// Provider generates raw text for a prompt.
type Provider interface {
	// Name returns the provider identifier ("openai", "ollama", ...).
	Name() string

	// Model returns the model or deployment the provider calls.
	Model() string

	// Generate sends the prompt and returns the model's text reply.
	Generate(ctx context.Context, p prompt.Prompt) (string, error)
}

// Option configures a provider.
type Option func(*options)

type options struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	log        *zap.Logger
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithBaseURL overrides the configured endpoint (for testing).
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithRateLimit sets the request rate and burst.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(o *options) {
		o.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// base holds what every HTTP provider shares.
type base struct {
	name     string
	model    string
	endpoint string
	cfg      config.ProviderConfig
	hc       *http.Client
	limiter  *rate.Limiter
	log      *zap.Logger
}

func newBase(cfg config.ProviderConfig, opts []Option) base {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultRequestTimeout
	}
	o := options{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	endpoint := cfg.Endpoint
	if o.baseURL != "" {
		endpoint = o.baseURL
	}

	return base{
		name:     cfg.Name,
		model:    cfg.Model,
		endpoint: endpoint,
		cfg:      cfg,
		hc:       o.httpClient,
		limiter:  o.limiter,
		log:      o.log.With(zap.String("provider", cfg.Name)),
	}
}

// Name returns the provider identifier.
func (b *base) Name() string { return b.name }

// Model returns the configured model.
func (b *base) Model() string { return b.model }

// postJSON sends in as JSON to url and decodes a successful response into out.
func (b *base) postJSON(ctx context.Context, url string, header http.Header, in, out any) error {
	if err := b.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", b.name, ctx.Err())
		}
		return &ProviderError{Provider: b.name, Detail: err.Error(), Err: ErrRateLimited}
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, vs := range header {
		req.Header[k] = vs
	}

	start := time.Now()
	resp, err := b.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", b.name, ctx.Err())
		}
		return &ProviderError{Provider: b.name, Detail: unwrapURLError(err).Error(), Err: ErrNetwork}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &ProviderError{Provider: b.name, StatusCode: resp.StatusCode, Detail: "reading body: " + err.Error(), Err: ErrNetwork}
	}

	b.log.Debug("request finished",
		zap.String("model", b.model),
		zap.Int("status", resp.StatusCode),
		zap.Int("request_bytes", len(body)),
		zap.Int("response_bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)))

	if err := checkStatus(b.name, resp.StatusCode, data); err != nil {
		return err
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &ProviderError{
			Provider:   b.name,
			StatusCode: resp.StatusCode,
			Detail:     "decoding response: " + err.Error(),
			Err:        ErrInvalidResponse,
		}
	}
	return nil
}

// invalid builds an ErrInvalidResponse for a decoded but unusable body.
func (b *base) invalid(detail string) error {
	return &ProviderError{Provider: b.name, Detail: detail, Err: ErrInvalidResponse}
}

// unwrapURLError drops the "Post <url>:" prefix net/http adds.
func unwrapURLError(err error) error {
	var ue interface{ Unwrap() error }
	if errors.As(err, &ue) {
		if inner := ue.Unwrap(); inner != nil {
			return inner
		}
	}
	return err
}

// Generator produces commit messages from a Provider, re-asking when the
// model's reply is empty or cannot be parsed. Transport, HTTP and
// authentication failures are returned immediately.
type Generator struct {
	provider Provider
	attempts int
	log      *zap.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithAttempts sets the maximum number of requests per message.
func WithAttempts(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.attempts = n
		}
	}
}

// WithGeneratorLogger sets the logger.
func WithGeneratorLogger(l *zap.Logger) GeneratorOption {
	return func(g *Generator) {
		if l != nil {
			g.log = l
		}
	}
}

// NewGenerator wraps p.
func NewGenerator(p Provider, opts ...GeneratorOption) *Generator {
	g := &Generator{provider: p, attempts: MaxAttempts, log: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateMessage asks the provider for a commit message and parses it.
func (g *Generator) GenerateMessage(ctx context.Context, p prompt.Prompt) (message.CommitMessage, error) {
	var lastErr error
	for attempt := 1; attempt <= g.attempts; attempt++ {
		raw, err := g.provider.Generate(ctx, p)
		if err != nil {
			return message.CommitMessage{}, err
		}

		msg, err := message.Parse(raw)
		if err == nil {
			g.log.Debug("generated message",
				zap.String("provider", g.provider.Name()),
				zap.Int("attempt", attempt),
				zap.String("title", msg.Title))
			return msg, nil
		}

		lastErr = err
		g.log.Debug("unusable reply",
			zap.String("provider", g.provider.Name()),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if ctx.Err() != nil {
			return message.CommitMessage{}, ctx.Err()
		}
	}

	return message.CommitMessage{}, &ProviderError{
		Provider: g.provider.Name(),
		Detail:   fmt.Sprintf("no usable commit message after %d attempts: %v", g.attempts, lastErr),
		Err:      ErrInvalidResponse,
	}
}
