package llm

import (
	"fmt"
	"os"
)

// endpoint describes how to reach an OpenAI-compatible chat completions API.
type endpoint struct {
	apiKeyEnv string
	baseURL   string // empty means the official OpenAI URL
	hostEnv   string // optional env var overriding baseURL
	keyless   bool
}

// endpoints lists every supported provider. All of them expose an
// OpenAI-compatible chat completions surface.
var endpoints = map[string]endpoint{
	"openai":     {apiKeyEnv: "OPENAI_API_KEY"},
	"openrouter": {apiKeyEnv: "OPENROUTER_API_KEY", baseURL: openRouterBaseURL},
	"anthropic":  {apiKeyEnv: "ANTHROPIC_API_KEY", baseURL: "https://api.anthropic.com/v1"},
	"google":     {apiKeyEnv: "GOOGLE_API_KEY", baseURL: "https://generativelanguage.googleapis.com/v1beta/openai"},
	"ollama":     {baseURL: "http://localhost:11434/v1", hostEnv: "OLLAMA_HOST", keyless: true},
}

// NewProvider creates a new LLM provider based on the given provider type and model.
// Supported provider types: "openai", "openrouter", "anthropic", "google", "ollama".
func NewProvider(providerType string, model string) (Provider, error) {
	ep, ok := endpoints[providerType]
	if !ok {
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}

	apiKey := ""
	if !ep.keyless {
		apiKey = os.Getenv(ep.apiKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("%s environment variable is not set", ep.apiKeyEnv)
		}
	}

	baseURL := ep.baseURL
	if ep.hostEnv != "" {
		if host := os.Getenv(ep.hostEnv); host != "" {
			baseURL = host + "/v1"
		}
	}

	if providerType == "openai" {
		return NewOpenAIProvider(apiKey, model), nil
	}
	return NewOpenAICompatibleProvider(providerType, apiKey, baseURL, model), nil
}

// APIKeyEnvVar returns the environment variable holding the API key for
// providerType, or "" when the provider needs none.
func APIKeyEnvVar(providerType string) string {
	return endpoints[providerType].apiKeyEnv
}
