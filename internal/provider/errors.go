package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Common errors returned by providers. ProviderError unwraps to one of these.
var (
	// ErrAuth indicates missing or rejected credentials (HTTP 401/403).
	ErrAuth = errors.New("authentication failed")

	// ErrRateLimited indicates the backend throttled the request (HTTP 429).
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrAPI indicates any other error status from the backend.
	ErrAPI = errors.New("API error")

	// ErrNetwork indicates the request never produced an HTTP response.
	ErrNetwork = errors.New("network error")

	// ErrInvalidResponse indicates a response body that could not be used.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrUnknownProvider indicates a provider name outside Available().
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrNotConfigured indicates required provider settings are missing.
	ErrNotConfigured = errors.New("provider not configured")
)

// maxDetailLength bounds the backend text carried in errors.
const maxDetailLength = 300

// ProviderError is a failure talking to one backend.
type ProviderError struct {
	Provider   string
	StatusCode int
	Detail     string
	Err        error
}

func (e *ProviderError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Provider)
	sb.WriteString(": ")
	sb.WriteString(e.Err.Error())
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (HTTP %d)", e.StatusCode)
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsAuthError returns true if the error indicates an authentication problem.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuth)
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsConfigError returns true if the error stems from provider selection or settings.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrUnknownProvider) || errors.Is(err, ErrNotConfigured)
}

// checkStatus maps an HTTP status to a ProviderError, or nil for 2xx/3xx.
func checkStatus(provider string, status int, body []byte) error {
	var sentinel error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		sentinel = ErrAuth
	case status == http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	case status >= 400:
		sentinel = ErrAPI
	default:
		return nil
	}
	return &ProviderError{
		Provider:   provider,
		StatusCode: status,
		Detail:     errorDetail(body),
		Err:        sentinel,
	}
}

// errorDetail pulls the human-readable message out of an error body.
// OpenAI, Azure and Gemini use {"error": {"message": ...}}; Ollama uses
// {"error": "..."}. Anything else is returned as truncated text.
func errorDetail(body []byte) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return truncateUTF8(nested.Error.Message, maxDetailLength)
	}

	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &flat) == nil && flat.Error != "" {
		return truncateUTF8(flat.Error, maxDetailLength)
	}

	return truncateUTF8(strings.TrimSpace(string(body)), maxDetailLength)
}

// truncateUTF8 truncates text at a UTF-8 boundary, adding "..." if cut.
func truncateUTF8(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}

	// Find the last valid UTF-8 character boundary before maxLen
	validLen := maxLen
	for validLen > 0 && !utf8.RuneStart(text[validLen]) {
		validLen--
	}

	if validLen == 0 {
		return ""
	}

	return text[:validLen] + "..."
}
