package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CLIEngine renders by running the mermaid-cli (mmdc) binary.
type CLIEngine struct {
	path string
}

// NewCLIEngine creates an engine that runs the mmdc binary at path.
func NewCLIEngine(path string) *CLIEngine {
	if path == "" {
		path = "mmdc"
	}
	return &CLIEngine{path: path}
}

func (c *CLIEngine) Name() string { return "mmdc" }

func (c *CLIEngine) Render(ctx context.Context, id, markup string, format Format) ([]byte, error) {
	if format != FormatSVG && format != FormatPNG {
		return nil, fmt.Errorf("mmdc: unsupported format %q", format)
	}

	dir, err := os.MkdirTemp("", "diagramify-render-*")
	if err != nil {
		return nil, fmt.Errorf("mmdc: creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input.mmd")
	out := filepath.Join(dir, "output."+string(format))
	if err := os.WriteFile(in, []byte(markup), 0o600); err != nil {
		return nil, fmt.Errorf("mmdc: writing input: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.path, "-i", in, "-o", out, "-b", "white", "-q")
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("mmdc %s: %w: %s", id, err, strings.TrimSpace(string(output)))
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("mmdc: reading output: %w", err)
	}
	return data, nil
}
