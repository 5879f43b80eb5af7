package tts

import (
	"errors"
	"fmt"
)

var (
	ErrNoAPIKey            = errors.New("tts: API key required")
	ErrNoVoice             = errors.New("tts: voice required")
	ErrEmptyText           = errors.New("tts: empty text")
	ErrUnsupportedFormat   = errors.New("tts: unsupported audio format")
	ErrProviderUnavailable = errors.New("tts: no providers available")
)

// APIError is a non-2xx response from a speech endpoint.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
	Provider   string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("tts %s: HTTP %d", e.Provider, e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// ProviderError tags err with the provider that returned it.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("tts %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError returns err tagged with provider, or nil.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}
