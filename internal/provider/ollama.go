package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/matsen/aicommit/internal/config"
	"github.com/matsen/aicommit/internal/prompt"
)

const (
	// apiPathTags is the Ollama API endpoint for listing models.
	apiPathTags = "/api/tags"

	// apiPathChat is the Ollama API endpoint for chat completions.
	apiPathChat = "/api/chat"
)

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

type ollamaTagsResponse struct {
	Models []ollamaModel `json:"models"`
}

type ollamaModel struct {
	Name string `json:"name"`
}

// Ollama calls a local Ollama server. No credentials are sent.
type Ollama struct {
	base
}

// NewOllama creates an Ollama provider.
func NewOllama(cfg config.ProviderConfig, opts ...Option) *Ollama {
	if cfg.Endpoint == "" {
		cfg.Endpoint = config.DefaultOllamaURL
	}
	return &Ollama{base: newBase(cfg, opts)}
}

func (o *Ollama) url(path string) string {
	return strings.TrimSuffix(o.endpoint, "/") + path
}

// Generate sends a non-streaming chat request.
func (o *Ollama) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	req := ollamaChatRequest{
		Model:  o.model,
		Stream: false,
		Options: ollamaOptions{
			NumPredict:  o.cfg.MaxTokens,
			Temperature: o.cfg.Temperature,
		},
	}
	if p.System != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: p.System})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: p.User})

	var resp ollamaChatResponse
	if err := o.postJSON(ctx, o.url(apiPathChat), nil, req, &resp); err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

// doGet performs a GET request to the specified path and returns the response.
// The caller is responsible for closing the response body.
func (o *Ollama) doGet(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.url(path), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := o.hc.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: o.name, Detail: unwrapURLError(err).Error(), Err: ErrNetwork}
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		return nil, checkStatus(o.name, resp.StatusCode, body)
	}

	return resp, nil
}

// IsAvailable checks if the Ollama server is reachable.
func (o *Ollama) IsAvailable(ctx context.Context) bool {
	resp, err := o.doGet(ctx, apiPathTags)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// Models lists the models installed on the server.
func (o *Ollama) Models(ctx context.Context) ([]string, error) {
	resp, err := o.doGet(ctx, apiPathTags)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, o.invalid("decoding tags: " + err.Error())
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// HasModel checks if the configured model is installed. A model without a
// tag matches any installed tag of it ("llama3" matches "llama3:latest").
func (o *Ollama) HasModel(ctx context.Context) (bool, error) {
	names, err := o.Models(ctx)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if modelMatches(name, o.model) {
			return true, nil
		}
	}
	return false, nil
}

func modelMatches(installed, want string) bool {
	if installed == want {
		return true
	}
	if strings.Contains(want, ":") {
		return false
	}
	return strings.HasPrefix(installed, want+":")
}
