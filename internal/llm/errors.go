package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNotConfigured is returned by the placeholder provider used when no
// credentials are available for the configured provider.
var ErrNotConfigured = errors.New("llm provider is not configured")

// StatusError reports a non-2xx response from a completion API.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// statusFromOpenAI converts go-openai error types into a StatusError so the
// retry policy can classify them. Errors without a status are returned as is.
func statusFromOpenAI(provider string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &StatusError{Provider: provider, StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &StatusError{Provider: provider, StatusCode: reqErr.HTTPStatusCode, Body: http.StatusText(reqErr.HTTPStatusCode)}
	}
	return err
}

// unconfiguredProvider fails every request. It keeps the server bootable when
// credentials are missing.
type unconfiguredProvider struct {
	name   string
	reason string
}

// NewUnconfiguredProvider returns a Provider whose Complete always fails with
// ErrNotConfigured.
func NewUnconfiguredProvider(name, reason string) Provider {
	return &unconfiguredProvider{name: name, reason: reason}
}

func (p *unconfiguredProvider) Name() string { return p.name }

func (p *unconfiguredProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return nil, fmt.Errorf("%w: %s", ErrNotConfigured, p.reason)
}
