package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/diagramify/diagramify/internal/generate"
	"github.com/diagramify/diagramify/internal/markdown"
)

var (
	// ErrBusy is returned when a request is already in flight for the section.
	ErrBusy = errors.New("a diagram request is already in progress")
	// ErrStale is returned to a request that was superseded before it finished.
	ErrStale = errors.New("diagram request was superseded")
	// ErrNoDiagram is returned by operations that need an accepted diagram.
	ErrNoDiagram = errors.New("no diagram has been generated yet")
	// ErrNoUndo is returned when the cursor is at the first entry.
	ErrNoUndo = errors.New("nothing to undo")
	// ErrNoRedo is returned when the cursor is at the last entry.
	ErrNoRedo = errors.New("nothing to redo")
)

// State is the lifecycle state of a section's diagram.
type State string

const (
	StateEmpty      State = "empty"
	StateGenerating State = "generating"
	StateAccepted   State = "accepted"
	StateRejected   State = "rejected"
	StateEditing    State = "editing"
)

// Snapshot is a point-in-time view of a Controller.
type Snapshot struct {
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Prompt        string    `json:"prompt"`
	Diagram       string    `json:"diagram"`
	State         State     `json:"state"`
	HistoryLength int       `json:"historyLength"`
	Cursor        int       `json:"cursor"`
	CanUndo       bool      `json:"canUndo"`
	CanRedo       bool      `json:"canRedo"`
	Generating    bool      `json:"generating"`
	Error         string    `json:"error,omitempty"`
	View          ViewState `json:"view"`
}

// Controller owns the diagram history and view state of one section. It is
// safe for concurrent use; at most one generation request runs at a time.
type Controller struct {
	mu  sync.Mutex
	gen generate.Generator

	title   string
	content string
	prompt  string

	hist  *History
	view  ViewState
	state State

	inFlight   bool
	generation uint64
	lastErr    error

	logger *slog.Logger
}

// NewController creates a controller for sec. A non-empty sec.Diagram seeds
// the history.
func NewController(gen generate.Generator, sec markdown.Section, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	prompt := sec.Prompt
	if prompt == "" {
		prompt = markdown.DefaultPrompt
	}
	c := &Controller{
		gen:     gen,
		title:   sec.Title,
		content: sec.Content,
		prompt:  prompt,
		hist:    NewHistory(sec.Diagram),
		view:    DefaultView(),
		state:   StateEmpty,
		logger:  logger,
	}
	if sec.Diagram != "" {
		c.state = StateAccepted
	}
	return c
}

// Generate asks for a fresh diagram from the section content and prompt.
func (c *Controller) Generate(ctx context.Context) (string, error) {
	c.mu.Lock()
	req := c.contentRequest()
	c.mu.Unlock()
	return c.run(ctx, req)
}

// Regenerate repeats the generation with the same prompt. It needs a
// diagram to replace.
func (c *Controller) Regenerate(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.hist.Len() == 0 {
		c.mu.Unlock()
		return "", ErrNoDiagram
	}
	req := c.contentRequest()
	c.mu.Unlock()
	return c.run(ctx, req)
}

// ApplyEdit asks for the displayed diagram to be changed per instructions.
func (c *Controller) ApplyEdit(ctx context.Context, instructions string) (string, error) {
	if strings.TrimSpace(instructions) == "" {
		return "", fmt.Errorf("edit instructions are required: %w", generate.ErrMissingInput)
	}
	c.mu.Lock()
	if c.hist.Len() == 0 {
		c.mu.Unlock()
		return "", ErrNoDiagram
	}
	req := c.contentRequest()
	req.Prompt = instructions
	req.CurrentDiagram = c.hist.Current()
	c.mu.Unlock()
	return c.run(ctx, req)
}

// contentRequest must be called with c.mu held.
func (c *Controller) contentRequest() generate.Request {
	return generate.Request{
		Content: c.title + "\n\n" + c.content,
		Prompt:  c.prompt,
		Label:   c.title,
	}
}

func (c *Controller) run(ctx context.Context, req generate.Request) (string, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return "", ErrBusy
	}
	c.inFlight = true
	c.generation++
	gen := c.generation
	c.state = StateGenerating
	c.mu.Unlock()

	diagram, err := c.gen.Generate(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Debug("discarding stale diagram response", "section", c.title)
		return "", ErrStale
	}
	c.inFlight = false

	if err != nil {
		c.lastErr = err
		c.state = StateRejected
		if errors.Is(err, context.Canceled) {
			c.state = c.restingState()
		}
		return "", err
	}

	c.lastErr = nil
	c.state = StateAccepted
	if !c.hist.Accept(diagram) {
		c.logger.Debug("generated diagram equals the displayed one", "section", c.title)
	}
	return c.hist.Current(), nil
}

// Cancel abandons the in-flight request, if any. Its response will be
// discarded with ErrStale.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inFlight {
		return
	}
	c.generation++
	c.inFlight = false
	c.state = c.restingState()
}

// Undo displays the previous accepted diagram.
func (c *Controller) Undo() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return "", ErrBusy
	}
	if !c.hist.Undo() {
		return "", ErrNoUndo
	}
	c.state = StateAccepted
	return c.hist.Current(), nil
}

// Redo displays the next accepted diagram.
func (c *Controller) Redo() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return "", ErrBusy
	}
	if !c.hist.Redo() {
		return "", ErrNoRedo
	}
	c.state = StateAccepted
	return c.hist.Current(), nil
}

// BeginEdit enters the editing state.
func (c *Controller) BeginEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return ErrBusy
	}
	if c.hist.Len() == 0 {
		return ErrNoDiagram
	}
	c.state = StateEditing
	return nil
}

// CancelEdit leaves the editing state without a request.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateEditing {
		c.state = StateAccepted
	}
}

// SetPrompt replaces the generation instructions used by Generate.
func (c *Controller) SetPrompt(prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompt = prompt
}

// UpdateView applies a view transition and returns the new state.
func (c *Controller) UpdateView(fn func(ViewState) ViewState) ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = fn(c.view)
	return c.view
}

func (c *Controller) View() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *Controller) Diagram() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hist.Current()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the error of the most recent rejected request.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Section returns the section with its displayed diagram.
func (c *Controller) Section() markdown.Section {
	c.mu.Lock()
	defer c.mu.Unlock()
	return markdown.Section{
		Title:   c.title,
		Content: c.content,
		Diagram: c.hist.Current(),
		Prompt:  c.prompt,
	}
}

// Snapshot returns the controller state for display.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Title:         c.title,
		Content:       c.content,
		Prompt:        c.prompt,
		Diagram:       c.hist.Current(),
		State:         c.state,
		HistoryLength: c.hist.Len(),
		Cursor:        c.hist.Cursor(),
		CanUndo:       c.hist.CanUndo(),
		CanRedo:       c.hist.CanRedo(),
		Generating:    c.inFlight,
		View:          c.view,
	}
	if c.lastErr != nil {
		s.Error = c.lastErr.Error()
	}
	return s
}

// restingState must be called with c.mu held.
func (c *Controller) restingState() State {
	if c.hist.Len() == 0 {
		return StateEmpty
	}
	return StateAccepted
}
