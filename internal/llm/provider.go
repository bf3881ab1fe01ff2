package llm

import "context"

// Provider is a chat completion backend that diagram requests are sent to.
// Implementations report non-2xx answers as *StatusError so the retry policy
// can classify them.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}
