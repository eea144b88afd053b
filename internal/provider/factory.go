package provider

import (
	"fmt"
	"strings"

	"github.com/matsen/aicommit/internal/config"
)

// Available returns the supported provider names in display order.
func Available() []string {
	return append([]string(nil), config.Providers...)
}

// New creates the named provider from cfg. It fails with ErrUnknownProvider
// for names outside Available and with ErrNotConfigured when required
// settings are missing.
func New(name string, cfg config.Config, opts ...Option) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = cfg.DefaultProvider
	}
	if !config.IsProvider(name) {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownProvider, name, strings.Join(Available(), ", "))
	}

	pc, err := cfg.Provider(name)
	if err != nil {
		return nil, err
	}
	if !pc.IsConfigured() {
		return nil, &ProviderError{
			Provider: name,
			Detail:   "missing " + strings.Join(pc.MissingKeys(), ", "),
			Err:      ErrNotConfigured,
		}
	}

	switch name {
	case config.ProviderOpenAI:
		return NewOpenAI(pc, opts...), nil
	case config.ProviderGoogle:
		return NewGoogle(pc, opts...), nil
	case config.ProviderAzure:
		return NewAzure(pc, opts...), nil
	default:
		return NewOllama(pc, opts...), nil
	}
}

// Status describes one provider for listing.
type Status struct {
	Name       string   `json:"name"`
	Model      string   `json:"model,omitempty"`
	Endpoint   string   `json:"endpoint,omitempty"`
	Configured bool     `json:"configured"`
	Default    bool     `json:"default"`
	Missing    []string `json:"missing,omitempty"`
}

// Statuses reports the configuration state of every provider.
func Statuses(cfg config.Config) []Status {
	statuses := make([]Status, 0, len(config.Providers))
	for _, name := range config.Providers {
		pc, err := cfg.Provider(name)
		if err != nil {
			continue
		}
		statuses = append(statuses, Status{
			Name:       name,
			Model:      pc.Model,
			Endpoint:   pc.Endpoint,
			Configured: pc.IsConfigured(),
			Default:    name == cfg.DefaultProvider,
			Missing:    pc.MissingKeys(),
		})
	}
	return statuses
}
