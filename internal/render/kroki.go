package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 16 << 20

// KrokiEngine renders through a Kroki service.
type KrokiEngine struct {
	baseURL string
	client  *http.Client
}

// NewKrokiEngine creates an engine for the Kroki instance at baseURL. A nil
// client gets a 30 second timeout.
func NewKrokiEngine(baseURL string, client *http.Client) *KrokiEngine {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &KrokiEngine{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (k *KrokiEngine) Name() string { return "kroki" }

// Render posts markup to <base>/mermaid/<format>.
func (k *KrokiEngine) Render(ctx context.Context, id, markup string, format Format) ([]byte, error) {
	if format != FormatSVG && format != FormatPNG {
		return nil, fmt.Errorf("kroki: unsupported format %q", format)
	}

	url := k.baseURL + "/mermaid/" + string(format)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("kroki: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", format.ContentType())

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kroki: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("kroki: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kroki returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
