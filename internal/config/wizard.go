package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"

	"github.com/diagramify/diagramify/internal/llm"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to diagramify! Let's configure the editor.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "openrouter", "anthropic", "google", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	// 2. Model.
	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: DefaultModel(cfg.Provider),
	}
	cfg.Model, err = modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	// 3. Render engine.
	enginePrompt := promptui.Select{
		Label: "Select diagram renderer",
		Items: []string{
			"kroki - hosted or self-hosted Kroki service",
			"mmdc  - local mermaid-cli binary",
		},
	}
	engineIdx, _, err := enginePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("renderer selection: %w", err)
	}
	cfg.Render.Engine = []RenderEngine{RenderKroki, RenderMMDC}[engineIdx]

	if cfg.Render.Engine == RenderKroki {
		urlPrompt := promptui.Prompt{Label: "Kroki URL", Default: cfg.Render.KrokiURL}
		if cfg.Render.KrokiURL, err = urlPrompt.Run(); err != nil {
			return nil, fmt.Errorf("kroki url: %w", err)
		}
	}

	// 4. Port.
	portPrompt := promptui.Prompt{
		Label:    "Server port",
		Default:  strconv.Itoa(cfg.Server.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)
	cfg.Auth.RedirectURL = fmt.Sprintf("http://localhost:%d/auth/google/callback", cfg.Server.Port)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if envVar := llm.APIKeyEnvVar(string(cfg.Provider)); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment (or .env) before generating diagrams.\n", envVar)
	}
	if os.Getenv("GOOGLE_CLIENT_ID") == "" {
		fmt.Println("Note: Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET to enable sign-in.")
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("port must be a number")
	}
	if n <= 0 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}
