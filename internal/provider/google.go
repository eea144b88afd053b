package provider

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/matsen/aicommit/internal/config"
	"github.com/matsen/aicommit/internal/prompt"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Google calls the Gemini generateContent API.
type Google struct {
	base
}

// NewGoogle creates a Gemini provider.
func NewGoogle(cfg config.ProviderConfig, opts ...Option) *Google {
	if cfg.Endpoint == "" {
		cfg.Endpoint = config.DefaultGoogleBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = config.DefaultGoogleModel
	}
	return &Google{base: newBase(cfg, opts)}
}

// Generate sends the prompt and joins the text parts of the first candidate.
func (g *Google) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: p.User}}}},
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: g.cfg.MaxTokens,
			Temperature:     g.cfg.Temperature,
		},
	}
	if p.System != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: p.System}}}
	}

	header := http.Header{}
	header.Set("x-goog-api-key", g.cfg.APIKey)

	var resp geminiResponse
	endpoint := strings.TrimSuffix(g.endpoint, "/") + "/models/" + url.PathEscape(g.model) + ":generateContent"
	if err := g.postJSON(ctx, endpoint, header, req, &resp); err != nil {
		return "", err
	}

	if reason := resp.PromptFeedback.BlockReason; reason != "" {
		return "", g.invalid("prompt blocked: " + reason)
	}
	if len(resp.Candidates) == 0 {
		return "", g.invalid("response has no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
