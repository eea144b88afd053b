// Package config loads the process configuration from environment files and
// the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Provider identifiers accepted by DEFAULT_AI_PROVIDER and --provider.
const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
	ProviderAzure  = "azure"
	ProviderOllama = "ollama"
)

// Providers lists the supported providers in display order.
var Providers = []string{ProviderOpenAI, ProviderGoogle, ProviderAzure, ProviderOllama}

// Recognized environment keys.
const (
	KeyOpenAIAPIKey      = "OPENAI_API_KEY"
	KeyOpenAIModel       = "OPENAI_MODEL"
	KeyOpenAIBaseURL     = "OPENAI_BASE_URL"
	KeyGoogleAPIKey      = "GOOGLE_API_KEY"
	KeyGoogleModel       = "GOOGLE_MODEL"
	KeyGoogleBaseURL     = "GOOGLE_BASE_URL"
	KeyAzureAPIKey       = "AZURE_OPENAI_API_KEY"
	KeyAzureEndpoint     = "AZURE_OPENAI_ENDPOINT"
	KeyAzureModel        = "AZURE_OPENAI_MODEL"
	KeyAzureAPIVersion   = "AZURE_OPENAI_API_VERSION"
	KeyOllamaURL         = "OLLAMA_API_URL"
	KeyOllamaModel       = "OLLAMA_MODEL"
	KeyMaxTokens         = "MAX_TOKENS"
	KeyTemperature       = "TEMPERATURE"
	KeyDefaultLang       = "DEFAULT_LANG"
	KeyDefaultProvider   = "DEFAULT_AI_PROVIDER"
	KeyCustomPromptsPath = "CUSTOM_PROMPTS_PATH"
	KeyMaxDiffTokens     = "MAX_DIFF_TOKENS"
	KeyRequestTimeout    = "REQUEST_TIMEOUT"
)

// Defaults applied when a key is unset or empty.
const (
	DefaultProvider        = ProviderOpenAI
	DefaultLang            = "en"
	DefaultMaxTokens       = 200
	DefaultTemperature     = 0.3
	DefaultMaxDiffTokens   = 6000
	DefaultRequestTimeout  = 60 * time.Second
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultOpenAIBaseURL   = "https://api.openai.com/v1"
	DefaultGoogleModel     = "gemini-2.0-flash"
	DefaultGoogleBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	DefaultAzureAPIVersion = "2024-06-01"
	DefaultOllamaURL       = "http://localhost:11434"

	maxTemperature = 2.0
)

// ErrInvalidValue indicates a configuration key holds a value that cannot be used.
var ErrInvalidValue = errors.New("invalid configuration value")

// ErrUnknownProvider indicates a provider name outside Providers.
var ErrUnknownProvider = errors.New("unknown provider")

// LookupFunc reads one configuration key. It has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Config is the resolved configuration. It is built once by Load and passed
// by value; nothing mutates it afterwards.
type Config struct {
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	GoogleAPIKey  string
	GoogleModel   string
	GoogleBaseURL string

	AzureAPIKey     string
	AzureEndpoint   string
	AzureModel      string
	AzureAPIVersion string

	OllamaURL   string
	OllamaModel string

	DefaultProvider   string
	DefaultLang       string
	MaxTokens         int
	Temperature       float64
	MaxDiffTokens     int
	CustomPromptsPath string
	RequestTimeout    time.Duration
}

// ProviderConfig is the slice of Config one provider needs.
type ProviderConfig struct {
	Name        string
	APIKey      string
	Endpoint    string
	Model       string
	APIVersion  string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// IsConfigured reports whether the provider has the settings it cannot run without.
func (p ProviderConfig) IsConfigured() bool {
	switch p.Name {
	case ProviderOpenAI, ProviderGoogle:
		return p.APIKey != ""
	case ProviderAzure:
		return p.APIKey != "" && p.Endpoint != "" && p.Model != ""
	case ProviderOllama:
		return p.Model != ""
	default:
		return false
	}
}

// MissingKeys returns the environment keys that must be set before the
// provider is usable.
func (p ProviderConfig) MissingKeys() []string {
	var missing []string
	switch p.Name {
	case ProviderOpenAI:
		if p.APIKey == "" {
			missing = append(missing, KeyOpenAIAPIKey)
		}
	case ProviderGoogle:
		if p.APIKey == "" {
			missing = append(missing, KeyGoogleAPIKey)
		}
	case ProviderAzure:
		if p.APIKey == "" {
			missing = append(missing, KeyAzureAPIKey)
		}
		if p.Endpoint == "" {
			missing = append(missing, KeyAzureEndpoint)
		}
		if p.Model == "" {
			missing = append(missing, KeyAzureModel)
		}
	case ProviderOllama:
		if p.Model == "" {
			missing = append(missing, KeyOllamaModel)
		}
	}
	return missing
}

// FromEnv loads configuration from the process environment.
func FromEnv() (Config, error) {
	return Load(os.LookupEnv)
}

// Load builds a Config from lookup, applying defaults and validating values.
func Load(lookup LookupFunc) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := Config{
		OpenAIAPIKey:  get(KeyOpenAIAPIKey, ""),
		OpenAIModel:   get(KeyOpenAIModel, DefaultOpenAIModel),
		OpenAIBaseURL: strings.TrimRight(get(KeyOpenAIBaseURL, DefaultOpenAIBaseURL), "/"),

		GoogleAPIKey:  get(KeyGoogleAPIKey, ""),
		GoogleModel:   get(KeyGoogleModel, DefaultGoogleModel),
		GoogleBaseURL: strings.TrimRight(get(KeyGoogleBaseURL, DefaultGoogleBaseURL), "/"),

		AzureAPIKey:     get(KeyAzureAPIKey, ""),
		AzureEndpoint:   strings.TrimRight(get(KeyAzureEndpoint, ""), "/"),
		AzureModel:      get(KeyAzureModel, ""),
		AzureAPIVersion: get(KeyAzureAPIVersion, DefaultAzureAPIVersion),

		OllamaURL:   strings.TrimRight(get(KeyOllamaURL, DefaultOllamaURL), "/"),
		OllamaModel: get(KeyOllamaModel, ""),

		DefaultProvider:   strings.ToLower(get(KeyDefaultProvider, DefaultProvider)),
		DefaultLang:       get(KeyDefaultLang, DefaultLang),
		CustomPromptsPath: ExpandPath(get(KeyCustomPromptsPath, "")),
	}

	var err error
	if cfg.MaxTokens, err = positiveInt(KeyMaxTokens, get(KeyMaxTokens, "")); err != nil {
		return Config{}, err
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	if cfg.MaxDiffTokens, err = positiveInt(KeyMaxDiffTokens, get(KeyMaxDiffTokens, "")); err != nil {
		return Config{}, err
	}
	if cfg.MaxDiffTokens == 0 {
		cfg.MaxDiffTokens = DefaultMaxDiffTokens
	}

	cfg.Temperature = DefaultTemperature
	if raw := get(KeyTemperature, ""); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil || t < 0 || t > maxTemperature {
			return Config{}, fmt.Errorf("%w: %s=%q must be a number between 0 and %g", ErrInvalidValue, KeyTemperature, raw, maxTemperature)
		}
		cfg.Temperature = t
	}

	cfg.RequestTimeout = DefaultRequestTimeout
	if raw := get(KeyRequestTimeout, ""); raw != "" {
		d, err := parseTimeout(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s=%q must be a duration like 90s or a number of seconds", ErrInvalidValue, KeyRequestTimeout, raw)
		}
		cfg.RequestTimeout = d
	}

	if !IsProvider(cfg.DefaultProvider) {
		return Config{}, fmt.Errorf("%w: %s=%q (available: %s)", ErrUnknownProvider, KeyDefaultProvider, cfg.DefaultProvider, strings.Join(Providers, ", "))
	}

	if !ValidLanguage(cfg.DefaultLang) {
		return Config{}, fmt.Errorf("%w: %s=%q is not an ISO 639-1 language code", ErrInvalidValue, KeyDefaultLang, cfg.DefaultLang)
	}

	return cfg, nil
}

// Provider returns the configuration for the named provider.
func (c Config) Provider(name string) (ProviderConfig, error) {
	pc := ProviderConfig{
		Name:        strings.ToLower(name),
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Timeout:     c.RequestTimeout,
	}

	switch pc.Name {
	case ProviderOpenAI:
		pc.APIKey = c.OpenAIAPIKey
		pc.Endpoint = c.OpenAIBaseURL
		pc.Model = c.OpenAIModel
	case ProviderGoogle:
		pc.APIKey = c.GoogleAPIKey
		pc.Endpoint = c.GoogleBaseURL
		pc.Model = c.GoogleModel
	case ProviderAzure:
		pc.APIKey = c.AzureAPIKey
		pc.Endpoint = c.AzureEndpoint
		pc.Model = c.AzureModel
		pc.APIVersion = c.AzureAPIVersion
	case ProviderOllama:
		pc.Endpoint = c.OllamaURL
		pc.Model = c.OllamaModel
	default:
		return ProviderConfig{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownProvider, name, strings.Join(Providers, ", "))
	}

	return pc, nil
}

// IsProvider reports whether name is a supported provider.
func IsProvider(name string) bool {
	for _, p := range Providers {
		if p == name {
			return true
		}
	}
	return false
}

// Entry is one key/value pair for display.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Masked returns a copy of c with API keys hidden.
func (c Config) Masked() Config {
	c.OpenAIAPIKey = MaskSecret(c.OpenAIAPIKey)
	c.GoogleAPIKey = MaskSecret(c.GoogleAPIKey)
	c.AzureAPIKey = MaskSecret(c.AzureAPIKey)
	return c
}

// Entries returns the resolved configuration as key/value pairs with API keys masked.
func (c Config) Entries() []Entry {
	c = c.Masked()
	return []Entry{
		{KeyDefaultProvider, c.DefaultProvider},
		{KeyDefaultLang, c.DefaultLang},
		{KeyMaxTokens, strconv.Itoa(c.MaxTokens)},
		{KeyTemperature, strconv.FormatFloat(c.Temperature, 'g', -1, 64)},
		{KeyMaxDiffTokens, strconv.Itoa(c.MaxDiffTokens)},
		{KeyRequestTimeout, c.RequestTimeout.String()},
		{KeyCustomPromptsPath, c.CustomPromptsPath},
		{KeyOpenAIAPIKey, c.OpenAIAPIKey},
		{KeyOpenAIModel, c.OpenAIModel},
		{KeyOpenAIBaseURL, c.OpenAIBaseURL},
		{KeyGoogleAPIKey, c.GoogleAPIKey},
		{KeyGoogleModel, c.GoogleModel},
		{KeyGoogleBaseURL, c.GoogleBaseURL},
		{KeyAzureAPIKey, c.AzureAPIKey},
		{KeyAzureEndpoint, c.AzureEndpoint},
		{KeyAzureModel, c.AzureModel},
		{KeyAzureAPIVersion, c.AzureAPIVersion},
		{KeyOllamaURL, c.OllamaURL},
		{KeyOllamaModel, c.OllamaModel},
	}
}

// MaskSecret hides all but the last four characters of a secret.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}

// positiveInt parses raw as a positive integer. Empty input yields 0.
func positiveInt(key, raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s=%q must be a positive integer", ErrInvalidValue, key, raw)
	}
	return n, nil
}

// parseTimeout accepts Go durations ("90s", "2m") and bare seconds ("90").
func parseTimeout(raw string) (time.Duration, error) {
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("non-positive timeout")
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("non-positive timeout")
	}
	return d, nil
}
