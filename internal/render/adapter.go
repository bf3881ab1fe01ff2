package render

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/diagramify/diagramify/internal/diagrams"
)

// DefaultMinInterval is the minimum time between two engine renders of one
// section.
const DefaultMinInterval = 500 * time.Millisecond

// Result is a rendered diagram.
type Result struct {
	SVG    string `json:"svg"`
	Markup string `json:"markup"`
	// Fallback is set when only the reduced diagram could be rendered.
	Fallback bool `json:"fallback"`
	// Stale is set when the gate refused a render and an earlier result
	// for different markup was returned.
	Stale bool `json:"stale"`
}

// Adapter renders the diagram of one section. It caches the last result,
// refuses renders closer than the minimum interval and never runs two
// renders at once.
type Adapter struct {
	engine      Engine
	id          string
	minInterval time.Duration
	now         func() time.Time
	logger      *slog.Logger

	mu        sync.Mutex
	rendering bool
	lastStart time.Time
	cached    *Result
}

// NewAdapter creates an adapter rendering through engine under render id id.
func NewAdapter(engine Engine, id string, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		engine:      engine,
		id:          id,
		minInterval: DefaultMinInterval,
		now:         time.Now,
		logger:      logger,
	}
}

// Render returns the post-processed SVG for markup. Identical markup is
// served from the cache. A render refused by the gate returns the cached
// result marked Stale, or ErrThrottled when nothing is cached. Failures of
// both the primary and the reduced render return *Error.
func (a *Adapter) Render(ctx context.Context, markup string) (Result, error) {
	if strings.TrimSpace(markup) == "" {
		return Result{}, ErrEmpty
	}

	a.mu.Lock()
	if a.cached != nil && a.cached.Markup == markup {
		res := *a.cached
		a.mu.Unlock()
		return res, nil
	}
	now := a.now()
	if a.rendering || (!a.lastStart.IsZero() && now.Sub(a.lastStart) < a.minInterval) {
		defer a.mu.Unlock()
		if a.cached != nil {
			res := *a.cached
			res.Stale = true
			return res, nil
		}
		return Result{}, ErrThrottled
	}
	a.rendering = true
	a.lastStart = now
	a.mu.Unlock()

	data, fallback, err := renderWithFallback(ctx, a.engine, a.id, markup, FormatSVG, a.logger)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.rendering = false
	if err != nil {
		return Result{}, err
	}

	res := Result{SVG: PostProcess(string(data)), Markup: markup, Fallback: fallback}
	a.cached = &res
	return res, nil
}

// Cached returns the last successful result, if any.
func (a *Adapter) Cached() (Result, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cached == nil {
		return Result{}, false
	}
	return *a.cached, true
}

// Export renders markup in format. SVG exports are post-processed; JPG and PDF
// exports carry title as a caption.
func (a *Adapter) Export(ctx context.Context, markup, title string, format Format) ([]byte, error) {
	return Export(ctx, a.engine, a.id, markup, title, format, a.logger)
}

// renderWithFallback renders markup, retrying once with the reduced diagram
// under id+"-basic" when the engine rejects it.
func renderWithFallback(ctx context.Context, engine Engine, id, markup string, format Format, logger *slog.Logger) ([]byte, bool, error) {
	data, err := engine.Render(ctx, id, diagrams.NormalizeForRender(markup), format)
	if err == nil {
		return data, false, nil
	}
	if ctx.Err() != nil {
		return nil, false, &Error{ID: id, Markup: markup, Err: ctx.Err()}
	}
	logger.Warn("render failed, retrying with reduced diagram", "id", id, "engine", engine.Name(), "error", err)

	basicID := id + "-basic"
	data, err = engine.Render(ctx, basicID, diagrams.NormalizeForRender(diagrams.Reduce(markup)), format)
	if err != nil {
		logger.Error("reduced render failed", "id", basicID, "error", err)
		return nil, false, &Error{ID: id, Markup: markup, Err: err}
	}
	return data, true, nil
}
