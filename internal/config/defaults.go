package config

import "time"

// defaultModels maps each provider to the model used when none is configured.
var defaultModels = map[ProviderType]string{
	ProviderOpenAI:     "gpt-4o",
	ProviderOpenRouter: "openai/gpt-4o",
	ProviderAnthropic:  "claude-sonnet-4-5-20250929",
	ProviderGoogle:     "gemini-2.0-flash",
	ProviderOllama:     "llama3",
}

// DefaultSessionTTL is how long a sign-in stays valid.
const DefaultSessionTTL = 7 * 24 * time.Hour

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderOpenAI,
		Model:             defaultModels[ProviderOpenAI],
		Temperature:       0.3,
		MaxTokens:         1500,
		RequestsPerMinute: 30,
		Server: ServerConfig{
			Port: 3000,
		},
		Auth: AuthConfig{
			RedirectURL: "http://localhost:3000/auth/google/callback",
			SessionTTL:  DefaultSessionTTL,
		},
		Render: RenderConfig{
			Engine:   RenderKroki,
			KrokiURL: "https://kroki.io",
			MMDCPath: "mmdc",
		},
	}
}

// DefaultModel returns the default model for provider, falling back to the
// OpenAI default for unknown providers.
func DefaultModel(provider ProviderType) string {
	if m, ok := defaultModels[provider]; ok {
		return m
	}
	return defaultModels[ProviderOpenAI]
}
