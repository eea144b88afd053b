package provider

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/matsen/aicommit/internal/config"
	"github.com/matsen/aicommit/internal/prompt"
)

// Azure calls an Azure OpenAI deployment. The configured model is the
// deployment name.
type Azure struct {
	base
}

// NewAzure creates an Azure OpenAI provider.
func NewAzure(cfg config.ProviderConfig, opts ...Option) *Azure {
	if cfg.APIVersion == "" {
		cfg.APIVersion = config.DefaultAzureAPIVersion
	}
	return &Azure{base: newBase(cfg, opts)}
}

// deploymentURL returns {endpoint}/openai/deployments/{model}/chat/completions?api-version=...
func (a *Azure) deploymentURL() string {
	q := url.Values{}
	q.Set("api-version", a.cfg.APIVersion)
	return strings.TrimSuffix(a.endpoint, "/") +
		"/openai/deployments/" + url.PathEscape(a.model) +
		"/chat/completions?" + q.Encode()
}

// Generate sends the same chat body as OpenAI, authenticated with api-key.
func (a *Azure) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	header := http.Header{}
	header.Set("api-key", a.cfg.APIKey)

	var resp chatResponse
	if err := a.postJSON(ctx, a.deploymentURL(), header, newChatRequest(a.model, a.cfg, p), &resp); err != nil {
		return "", err
	}
	return a.firstChoice(resp)
}
