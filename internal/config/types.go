package config

import "time"

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderGoogle     ProviderType = "google"
	ProviderOllama     ProviderType = "ollama"
)

// RenderEngine identifies the Mermaid rendering backend.
type RenderEngine string

const (
	RenderKroki RenderEngine = "kroki"
	RenderMMDC  RenderEngine = "mmdc"
)

// Config is the top-level diagramify configuration, corresponding to .diagramify.yml.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	Temperature       float64      `yaml:"temperature" koanf:"temperature"`
	MaxTokens         int          `yaml:"max_tokens" koanf:"max_tokens"`
	RequestsPerMinute int          `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	StyleKeywords     []string     `yaml:"style_keywords,omitempty" koanf:"style_keywords"`
	Server            ServerConfig `yaml:"server" koanf:"server"`
	Auth              AuthConfig   `yaml:"auth" koanf:"auth"`
	Render            RenderConfig `yaml:"render" koanf:"render"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	CookieSecure    bool `yaml:"cookie_secure" koanf:"cookie_secure"`
}

// AuthConfig holds identity provider settings. Client credentials normally
// come from GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET rather than the file.
type AuthConfig struct {
	GoogleClientID     string        `yaml:"google_client_id,omitempty" koanf:"google_client_id"`
	GoogleClientSecret string        `yaml:"google_client_secret,omitempty" koanf:"google_client_secret"`
	RedirectURL        string        `yaml:"redirect_url" koanf:"redirect_url"`
	SessionTTL         time.Duration `yaml:"session_ttl" koanf:"session_ttl"`
}

// RenderConfig selects and configures the rendering engine.
type RenderConfig struct {
	Engine   RenderEngine `yaml:"engine" koanf:"engine"`
	KrokiURL string       `yaml:"kroki_url" koanf:"kroki_url"`
	MMDCPath string       `yaml:"mmdc_path" koanf:"mmdc_path"`
}

// SignInEnabled reports whether Google sign-in credentials are present.
func (a AuthConfig) SignInEnabled() bool {
	return a.GoogleClientID != "" && a.GoogleClientSecret != ""
}
