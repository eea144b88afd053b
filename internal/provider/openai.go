package provider

import (
	"context"
	"net/http"
	"strings"

	"github.com/matsen/aicommit/internal/config"
	"github.com/matsen/aicommit/internal/prompt"
)

// chatMessage is one turn of an OpenAI-style chat.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the chat-completions body shared by OpenAI and Azure.
type chatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func newChatRequest(model string, cfg config.ProviderConfig, p prompt.Prompt) chatRequest {
	req := chatRequest{
		Model:       model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
	if p.System != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: p.System})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: p.User})
	return req
}

// firstChoice returns the text of the first choice.
func (b *base) firstChoice(resp chatResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", b.invalid("response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// OpenAI calls the OpenAI chat-completions API.
type OpenAI struct {
	base
}

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(cfg config.ProviderConfig, opts ...Option) *OpenAI {
	if cfg.Endpoint == "" {
		cfg.Endpoint = config.DefaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = config.DefaultOpenAIModel
	}
	return &OpenAI{base: newBase(cfg, opts)}
}

// Generate sends the prompt as a system and a user message.
func (o *OpenAI) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	var resp chatResponse
	url := strings.TrimSuffix(o.endpoint, "/") + "/chat/completions"
	if err := o.postJSON(ctx, url, header, newChatRequest(o.model, o.cfg, p), &resp); err != nil {
		return "", err
	}
	return o.firstChoice(resp)
}
