package cmd

import (
	"fmt"
	"log/slog"

	"github.com/diagramify/diagramify/internal/config"
	"github.com/diagramify/diagramify/internal/generate"
	"github.com/diagramify/diagramify/internal/llm"
	"github.com/diagramify/diagramify/internal/prompt"
	"github.com/diagramify/diagramify/internal/render"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `diagramify init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newProvider creates the rate limited, retrying LLM provider. A provider
// without credentials still starts; its requests fail with
// llm.ErrNotConfigured.
func newProvider(cfg *config.Config, logger *slog.Logger) llm.Provider {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		logger.Warn("LLM provider unavailable, diagram requests will fail", "provider", cfg.Provider, "error", err)
		provider = llm.NewUnconfiguredProvider(string(cfg.Provider), err.Error())
	}
	provider = llm.NewRateLimitedProvider(provider, cfg.RequestsPerMinute, logger)
	return llm.NewRetryProvider(provider, logger)
}

func newBuilder(cfg *config.Config) *prompt.Builder {
	return prompt.NewBuilder(prompt.NewStyleDetector(cfg.StyleKeywords))
}

func newGenerator(cfg *config.Config, logger *slog.Logger) *generate.Service {
	return generate.NewService(newProvider(cfg, logger), newBuilder(cfg), generate.Options{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}, logger)
}

func newEngine(cfg *config.Config) render.Engine {
	if cfg.Render.Engine == config.RenderMMDC {
		return render.NewCLIEngine(cfg.Render.MMDCPath)
	}
	return render.NewKrokiEngine(cfg.Render.KrokiURL, nil)
}
