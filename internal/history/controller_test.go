package history

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/diagramify/diagramify/internal/diagrams"
	"github.com/diagramify/diagramify/internal/generate"
	"github.com/diagramify/diagramify/internal/llm"
	"github.com/diagramify/diagramify/internal/markdown"
)

// scriptedGenerator returns queued results in order and records requests.
type scriptedGenerator struct {
	mu       sync.Mutex
	results  []result
	requests []generate.Request
	block    chan struct{}
}

type result struct {
	diagram string
	err     error
}

func (g *scriptedGenerator) Generate(ctx context.Context, req generate.Request) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	var r result
	if len(g.results) > 0 {
		r = g.results[0]
		g.results = g.results[1:]
	}
	block := g.block
	g.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return r.diagram, r.err
}

func newSection() markdown.Section {
	return markdown.Section{Title: "Onboarding", Content: "Onboarding flow", Prompt: markdown.DefaultPrompt}
}

func TestControllerGenerateAccepts(t *testing.T) {
	gen := &scriptedGenerator{results: []result{{diagram: "graph TD\nA-->B"}}}
	c := NewController(gen, newSection(), nil)

	if c.State() != StateEmpty {
		t.Fatalf("expected empty state, got %s", c.State())
	}

	got, err := c.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "graph TD\nA-->B" {
		t.Errorf("got %q", got)
	}

	s := c.Snapshot()
	if s.State != StateAccepted || s.HistoryLength != 1 || s.Cursor != 0 || s.CanUndo || s.CanRedo {
		t.Errorf("unexpected snapshot %+v", s)
	}
	if gen.requests[0].Content != "Onboarding\n\nOnboarding flow" || gen.requests[0].Prompt != markdown.DefaultPrompt {
		t.Errorf("unexpected request %+v", gen.requests[0])
	}
	if gen.requests[0].CurrentDiagram != "" {
		t.Error("generate must not send the current diagram")
	}
}

// The full pipeline: formatter, mock completion, sanitizer, history.
func TestControllerEndToEndWithService(t *testing.T) {
	mock := &replyProvider{reply: "```mermaid\ngraph TD\nA-->B\n```"}
	svc := generate.NewService(mock, nil, generate.Options{Temperature: 0.3, MaxTokens: 1500}, nil)
	c := NewController(svc, markdown.Section{Title: "Flow", Content: "Onboarding flow", Prompt: markdown.DefaultPrompt}, nil)

	got, err := c.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "graph TD\nA-->B" {
		t.Errorf("got %q", got)
	}
	s := c.Snapshot()
	if s.HistoryLength != 1 || s.Cursor != 0 || s.CanUndo || s.CanRedo {
		t.Errorf("unexpected snapshot %+v", s)
	}
	if !strings.Contains(mock.lastUser, "Generate a Mermaid diagram") {
		t.Errorf("expected generate instruction, got %q", mock.lastUser)
	}
}

type replyProvider struct {
	reply    string
	lastUser string
}

func (p *replyProvider) Name() string { return "reply" }

func (p *replyProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.lastUser = req.Messages[len(req.Messages)-1].Content
	return &llm.CompletionResponse{Content: p.reply, Model: "test"}, nil
}

func TestControllerEditUndoRedo(t *testing.T) {
	gen := &scriptedGenerator{results: []result{
		{diagram: "graph TD\nA-->B"},
		{diagram: "graph LR\nA-->B"},
	}}
	c := NewController(gen, newSection(), nil)

	if _, err := c.Generate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.BeginEdit(); err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}
	if c.State() != StateEditing {
		t.Fatalf("expected editing, got %s", c.State())
	}
	if _, err := c.ApplyEdit(context.Background(), "make it horizontal"); err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}

	edit := gen.requests[1]
	if edit.CurrentDiagram != "graph TD\nA-->B" || edit.Prompt != "make it horizontal" {
		t.Errorf("unexpected edit request %+v", edit)
	}

	s := c.Snapshot()
	if !s.CanUndo || s.CanRedo || s.State != StateAccepted {
		t.Fatalf("after edit expected undo only, got %+v", s)
	}

	prev, err := c.Undo()
	if err != nil || prev != "graph TD\nA-->B" {
		t.Fatalf("Undo = %q, %v", prev, err)
	}
	s = c.Snapshot()
	if s.CanUndo || !s.CanRedo {
		t.Errorf("after undo expected redo only, got undo=%v redo=%v", s.CanUndo, s.CanRedo)
	}
	if _, err := c.Undo(); !errors.Is(err, ErrNoUndo) {
		t.Errorf("expected ErrNoUndo, got %v", err)
	}

	next, err := c.Redo()
	if err != nil || next != "graph LR\nA-->B" {
		t.Fatalf("Redo = %q, %v", next, err)
	}
	if _, err := c.Redo(); !errors.Is(err, ErrNoRedo) {
		t.Errorf("expected ErrNoRedo, got %v", err)
	}
}

func TestControllerRejectionKeepsState(t *testing.T) {
	gen := &scriptedGenerator{results: []result{
		{diagram: "graph TD\nA-->B"},
		{err: diagrams.ErrNoChanges},
	}}
	c := NewController(gen, newSection(), nil)
	c.Generate(context.Background())

	_, err := c.ApplyEdit(context.Background(), "do nothing")
	if !errors.Is(err, diagrams.ErrNoChanges) {
		t.Fatalf("expected ErrNoChanges, got %v", err)
	}

	s := c.Snapshot()
	if s.State != StateRejected {
		t.Errorf("expected rejected, got %s", s.State)
	}
	if s.HistoryLength != 1 || s.Diagram != "graph TD\nA-->B" {
		t.Errorf("rejection must not mutate history: %+v", s)
	}
	if !errors.Is(c.LastError(), diagrams.ErrNoChanges) || s.Error == "" {
		t.Errorf("expected last error recorded, got %v", c.LastError())
	}
}

func TestControllerIdenticalDiagramIsNoop(t *testing.T) {
	gen := &scriptedGenerator{results: []result{
		{diagram: "graph TD\nA-->B"},
		{diagram: "graph TD\nA-->B"},
	}}
	c := NewController(gen, newSection(), nil)
	c.Generate(context.Background())

	if _, err := c.Regenerate(context.Background()); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if s := c.Snapshot(); s.HistoryLength != 1 || s.CanUndo {
		t.Errorf("identical diagram must not grow history: %+v", s)
	}
}

func TestControllerRequiresDiagram(t *testing.T) {
	c := NewController(&scriptedGenerator{}, newSection(), nil)

	if _, err := c.Regenerate(context.Background()); !errors.Is(err, ErrNoDiagram) {
		t.Errorf("Regenerate: expected ErrNoDiagram, got %v", err)
	}
	if _, err := c.ApplyEdit(context.Background(), "x"); !errors.Is(err, ErrNoDiagram) {
		t.Errorf("ApplyEdit: expected ErrNoDiagram, got %v", err)
	}
	if err := c.BeginEdit(); !errors.Is(err, ErrNoDiagram) {
		t.Errorf("BeginEdit: expected ErrNoDiagram, got %v", err)
	}
	if _, err := c.ApplyEdit(context.Background(), "  "); !errors.Is(err, generate.ErrMissingInput) {
		t.Errorf("blank instructions: expected ErrMissingInput, got %v", err)
	}
}

func TestControllerCancelEdit(t *testing.T) {
	c := NewController(&scriptedGenerator{}, markdown.Section{Title: "t", Diagram: "graph TD\nA"}, nil)
	if c.State() != StateAccepted {
		t.Fatalf("seeded controller should be accepted, got %s", c.State())
	}
	c.BeginEdit()
	c.CancelEdit()
	if c.State() != StateAccepted {
		t.Errorf("expected accepted after cancel, got %s", c.State())
	}
}

func TestControllerBusy(t *testing.T) {
	gen := &scriptedGenerator{
		results: []result{{diagram: "graph TD\nA-->B"}},
		block:   make(chan struct{}),
	}
	c := NewController(gen, newSection(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.Generate(context.Background())
		done <- err
	}()

	waitFor(t, func() bool { return c.Snapshot().Generating })

	if _, err := c.Generate(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	if _, err := c.Undo(); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for undo, got %v", err)
	}
	if c.State() != StateGenerating {
		t.Errorf("expected generating, got %s", c.State())
	}

	close(gen.block)
	if err := <-done; err != nil {
		t.Fatalf("first request: %v", err)
	}
	if c.Diagram() != "graph TD\nA-->B" {
		t.Errorf("unexpected diagram %q", c.Diagram())
	}
}

func TestControllerCancelFencesStaleResponse(t *testing.T) {
	gen := &scriptedGenerator{
		results: []result{{diagram: "graph TD\nOLD"}, {diagram: "graph TD\nNEW"}},
		block:   make(chan struct{}),
	}
	c := NewController(gen, newSection(), nil)

	first := make(chan error, 1)
	go func() {
		_, err := c.Generate(context.Background())
		first <- err
	}()
	waitFor(t, func() bool { return c.Snapshot().Generating })

	c.Cancel()
	if c.Snapshot().Generating {
		t.Fatal("cancel should clear the in-flight flag")
	}

	second := make(chan error, 1)
	go func() {
		_, err := c.Generate(context.Background())
		second <- err
	}()
	waitFor(t, func() bool {
		gen.mu.Lock()
		defer gen.mu.Unlock()
		return len(gen.requests) == 2
	})

	close(gen.block)
	if err := <-first; !errors.Is(err, ErrStale) {
		t.Errorf("expected stale first response, got %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("second request: %v", err)
	}
	if c.Diagram() != "graph TD\nNEW" {
		t.Errorf("stale response clobbered state: %q", c.Diagram())
	}
	if n := c.Snapshot().HistoryLength; n != 1 {
		t.Errorf("expected one accepted entry, got %d", n)
	}
}

func TestControllerViewAndPrompt(t *testing.T) {
	c := NewController(&scriptedGenerator{results: []result{{diagram: "graph TD\nX"}}}, newSection(), nil)
	v := c.UpdateView(ViewState.Expand)
	if !v.Expanded || c.View().Zoom != ExpandedZoom {
		t.Errorf("unexpected view %+v", v)
	}

	c.SetPrompt("show actors only")
	c.Generate(context.Background())
	if got := c.Section(); got.Prompt != "show actors only" || got.Diagram != "graph TD\nX" {
		t.Errorf("unexpected section %+v", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}
