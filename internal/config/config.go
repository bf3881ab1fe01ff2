package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides. A double underscore
// separates nesting levels: DIAGRAMIFY_SERVER__PORT -> server.port.
const EnvPrefix = "DIAGRAMIFY_"

// LoadDotEnv loads variables from the given .env files, ignoring files that
// do not exist. Variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (DIAGRAMIFY_*) and well-known credential
// variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	applyCredentialEnv(cfg)
	// The default model belongs to the default provider.
	if k.String("model") == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}

	return cfg, nil
}

// applyCredentialEnv fills identity provider credentials from their
// conventional variables when the file leaves them empty.
func applyCredentialEnv(cfg *Config) {
	if cfg.Auth.GoogleClientID == "" {
		cfg.Auth.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if cfg.Auth.GoogleClientSecret == "" {
		cfg.Auth.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
}

// Save writes the configuration to the given YAML file path. Client secrets
// are never written.
func (c *Config) Save(path string) error {
	out := *c
	out.Auth.GoogleClientSecret = ""
	data, err := yamlv3.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderOpenAI:     true,
	ProviderOpenRouter: true,
	ProviderAnthropic:  true,
	ProviderGoogle:     true,
	ProviderOllama:     true,
}

// validEngines is the set of recognized render engines.
var validEngines = map[RenderEngine]bool{
	RenderKroki: true,
	RenderMMDC:  true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of openai, openrouter, anthropic, google, ollama", c.Provider)
	}

	if c.Model == "" {
		return fmt.Errorf("model is required")
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}

	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative")
	}

	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must be non-negative")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}

	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl must be positive")
	}

	if !validEngines[c.Render.Engine] {
		return fmt.Errorf("invalid render.engine %q: must be one of kroki, mmdc", c.Render.Engine)
	}
	if c.Render.Engine == RenderKroki && c.Render.KrokiURL == "" {
		return fmt.Errorf("render.kroki_url is required for the kroki engine")
	}
	if c.Render.Engine == RenderMMDC && c.Render.MMDCPath == "" {
		return fmt.Errorf("render.mmdc_path is required for the mmdc engine")
	}

	return nil
}
