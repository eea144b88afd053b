package provider

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/matsen/aicommit/internal/config"
	"github.com/matsen/aicommit/internal/message"
	"github.com/matsen/aicommit/internal/prompt"
)

// scripted replays replies in order and counts calls.
type scripted struct {
	replies []string
	errs    []error
	calls   int
}

func (s *scripted) Name() string  { return "scripted" }
func (s *scripted) Model() string { return "test" }

func (s *scripted) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "", nil
}

func TestGenerator_GenerateMessage(t *testing.T) {
	networkErr := &ProviderError{Provider: "scripted", Err: ErrNetwork}

	tests := []struct {
		name      string
		replies   []string
		errs      []error
		wantTitle string
		wantCalls int
		wantErr   error
	}{
		{
			name:      "first reply usable",
			replies:   []string{`{"title": "feat: add greeting", "description": "Says hello."}`},
			wantTitle: "feat: add greeting",
			wantCalls: 1,
		},
		{
			name:      "empty then usable",
			replies:   []string{"", "fix: handle nil map"},
			wantTitle: "fix: handle nil map",
			wantCalls: 2,
		},
		{
			name:      "unparseable twice then usable",
			replies:   []string{`{"title": "feat`, `{"title":`, "docs: explain flags"},
			wantTitle: "docs: explain flags",
			wantCalls: 3,
		},
		{
			name:      "never usable",
			replies:   []string{"", "   ", `{"title": "x"`},
			wantCalls: MaxAttempts,
			wantErr:   ErrInvalidResponse,
		},
		{
			name:      "transport error not retried",
			errs:      []error{networkErr},
			wantCalls: 1,
			wantErr:   ErrNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &scripted{replies: tt.replies, errs: tt.errs}
			msg, err := NewGenerator(p).GenerateMessage(context.Background(), testPrompt())

			if p.calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", p.calls, tt.wantCalls)
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("GenerateMessage() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GenerateMessage() error = %v", err)
			}
			if msg.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", msg.Title, tt.wantTitle)
			}
		})
	}
}

func TestGenerator_WithAttempts(t *testing.T) {
	p := &scripted{}
	_, err := NewGenerator(p, WithAttempts(1)).GenerateMessage(context.Background(), testPrompt())
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("error = %v, want ErrInvalidResponse", err)
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1", p.calls)
	}
	if !strings.Contains(err.Error(), message.ErrEmptyMessage.Error()) {
		t.Errorf("error %q does not name the last parse failure", err)
	}
}

func TestProviderError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ProviderError
		want string
	}{
		{
			name: "status and detail",
			err:  &ProviderError{Provider: "openai", StatusCode: 401, Detail: "bad key", Err: ErrAuth},
			want: "openai: authentication failed (HTTP 401): bad key",
		},
		{
			name: "detail only",
			err:  &ProviderError{Provider: "ollama", Detail: "connection refused", Err: ErrNetwork},
			want: "ollama: network error: connection refused",
		},
		{
			name: "bare",
			err:  &ProviderError{Provider: "google", Err: ErrInvalidResponse},
			want: "google: invalid response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPredicates(t *testing.T) {
	auth := &ProviderError{Provider: "openai", Err: ErrAuth}
	limited := &ProviderError{Provider: "openai", Err: ErrRateLimited}
	missing := &ProviderError{Provider: "azure", Err: ErrNotConfigured}

	if !IsAuthError(auth) || IsAuthError(limited) {
		t.Error("IsAuthError misclassified")
	}
	if !IsRateLimited(limited) || IsRateLimited(auth) {
		t.Error("IsRateLimited misclassified")
	}
	if !IsConfigError(missing) || IsConfigError(auth) {
		t.Error("IsConfigError misclassified")
	}
}

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"nested message", `{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`, "quota exceeded"},
		{"flat string", `{"error":"model not found"}`, "model not found"},
		{"plain text", "  Bad Gateway\n", "Bad Gateway"},
		{"empty", "", ""},
		{"long", strings.Repeat("x", maxDetailLength+50), strings.Repeat("x", maxDetailLength) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorDetail([]byte(tt.body)); got != tt.want {
				t.Errorf("errorDetail() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncateUTF8(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"ascii cut", "hello world", 5, "hello..."},
		{"multibyte boundary", "héllo", 2, "h..."},
		{"cjk", "日本語", 4, "日..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateUTF8(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("truncateUTF8(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestModelMatches(t *testing.T) {
	tests := []struct {
		installed string
		want      string
		match     bool
	}{
		{"llama3:latest", "llama3", true},
		{"llama3:latest", "llama3:latest", true},
		{"llama3.1:8b", "llama3", false},
		{"codellama:7b", "llama", false},
		{"mistral:7b", "mistral:latest", false},
	}

	for _, tt := range tests {
		if got := modelMatches(tt.installed, tt.want); got != tt.match {
			t.Errorf("modelMatches(%q, %q) = %v, want %v", tt.installed, tt.want, got, tt.match)
		}
	}
}

func loadConfig(t *testing.T, env map[string]string) config.Config {
	t.Helper()
	cfg, err := config.Load(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	return cfg
}

func TestNew(t *testing.T) {
	cfg := loadConfig(t, map[string]string{
		config.KeyOpenAIAPIKey:  "sk-openai",
		config.KeyGoogleAPIKey:  "g-key",
		config.KeyAzureAPIKey:   "az-key",
		config.KeyAzureEndpoint: "https://example.openai.azure.com",
		config.KeyAzureModel:    "deploy",
		config.KeyOllamaModel:   "llama3",
	})

	tests := []struct {
		name  string
		check func(Provider) bool
	}{
		{config.ProviderOpenAI, func(p Provider) bool { _, ok := p.(*OpenAI); return ok }},
		{config.ProviderGoogle, func(p Provider) bool { _, ok := p.(*Google); return ok }},
		{config.ProviderAzure, func(p Provider) bool { _, ok := p.(*Azure); return ok }},
		{config.ProviderOllama, func(p Provider) bool { _, ok := p.(*Ollama); return ok }},
		{"OpenAI", func(p Provider) bool { _, ok := p.(*OpenAI); return ok }},
		{"", func(p Provider) bool { _, ok := p.(*OpenAI); return ok }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.name, cfg)
			if err != nil {
				t.Fatalf("New(%q) error = %v", tt.name, err)
			}
			if !tt.check(p) {
				t.Errorf("New(%q) returned %T", tt.name, p)
			}
		})
	}
}

func TestNew_Errors(t *testing.T) {
	cfg := loadConfig(t, map[string]string{})

	tests := []struct {
		name     string
		provider string
		want     error
		wantText string
	}{
		{"unknown", "anthropic", ErrUnknownProvider, "available: openai, google, azure, ollama"},
		{"openai without key", "openai", ErrNotConfigured, config.KeyOpenAIAPIKey},
		{"azure without settings", "azure", ErrNotConfigured, config.KeyAzureEndpoint},
		{"ollama without model", "ollama", ErrNotConfigured, config.KeyOllamaModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.provider, cfg)
			if !errors.Is(err, tt.want) {
				t.Fatalf("New(%q) error = %v, want %v", tt.provider, err, tt.want)
			}
			if !strings.Contains(err.Error(), tt.wantText) {
				t.Errorf("error %q lacks %q", err, tt.wantText)
			}
		})
	}
}

func TestStatuses(t *testing.T) {
	cfg := loadConfig(t, map[string]string{
		config.KeyGoogleAPIKey:    "g-key",
		config.KeyDefaultProvider: "google",
		config.KeyOllamaModel:     "llama3",
		config.KeyAzureAPIKey:     "az-key",
		config.KeyAzureEndpoint:   "https://example.openai.azure.com",
	})

	statuses := Statuses(cfg)
	if len(statuses) != len(Available()) {
		t.Fatalf("Statuses() returned %d entries, want %d", len(statuses), len(Available()))
	}

	byName := map[string]Status{}
	for _, s := range statuses {
		byName[s.Name] = s
	}

	if s := byName["openai"]; s.Configured || s.Default || len(s.Missing) != 1 {
		t.Errorf("openai status = %+v", s)
	}
	if s := byName["google"]; !s.Configured || !s.Default || s.Model != config.DefaultGoogleModel {
		t.Errorf("google status = %+v", s)
	}
	if s := byName["azure"]; s.Configured || len(s.Missing) != 1 || s.Missing[0] != config.KeyAzureModel {
		t.Errorf("azure status = %+v", s)
	}
	if s := byName["ollama"]; !s.Configured || s.Endpoint != config.DefaultOllamaURL {
		t.Errorf("ollama status = %+v", s)
	}
}
