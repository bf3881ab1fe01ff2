// Package editor holds the in-memory editing state of each signed-in
// session and serves it over JSON and a websocket.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/diagramify/diagramify/internal/generate"
	"github.com/diagramify/diagramify/internal/history"
	"github.com/diagramify/diagramify/internal/markdown"
	"github.com/diagramify/diagramify/internal/render"
)

// ErrSectionNotFound is returned for a section index outside the document.
var ErrSectionNotFound = errors.New("section not found")

type section struct {
	ctrl    *history.Controller
	adapter *render.Adapter
}

// SectionView is one section of a workspace snapshot.
type SectionView struct {
	Index int `json:"index"`
	history.Snapshot
	// HTML is the rendered preview of the section content.
	HTML string `json:"html"`
}

// Snapshot is the full state of a workspace.
type Snapshot struct {
	Markdown string        `json:"markdown"`
	Sections []SectionView `json:"sections"`
}

// Workspace is the document and per-section diagram state of one session.
type Workspace struct {
	gen    generate.Generator
	engine render.Engine
	logger *slog.Logger

	mu       sync.Mutex
	text     string
	sections []*section
	nextID   int
}

// NewWorkspace creates an empty workspace.
func NewWorkspace(gen generate.Generator, engine render.Engine, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspace{gen: gen, engine: engine, logger: logger}
}

// SetDocument replaces the document text. Sections whose position, title
// and content are unchanged keep their controller with its history and view;
// all others start fresh and their pending requests are cancelled.
func (w *Workspace) SetDocument(text string) int {
	next := markdown.Split(text)

	w.mu.Lock()
	defer w.mu.Unlock()

	prev := make([]markdown.Section, len(w.sections))
	for i, s := range w.sections {
		prev[i] = s.ctrl.Section()
	}
	kept := make(map[int]bool)
	for _, i := range markdown.Reconcile(prev, next) {
		kept[i] = true
	}

	sections := make([]*section, len(next))
	for i, sec := range next {
		if kept[i] {
			sections[i] = w.sections[i]
			continue
		}
		sections[i] = w.newSection(sec)
	}
	for i, s := range w.sections {
		if !kept[i] {
			s.ctrl.Cancel()
		}
	}

	w.logger.Debug("document updated", "sections", len(next), "kept", len(kept))
	w.text = text
	w.sections = sections
	return len(sections)
}

// newSection must be called with w.mu held.
func (w *Workspace) newSection(sec markdown.Section) *section {
	w.nextID++
	id := fmt.Sprintf("diagram-%d", w.nextID)
	return &section{
		ctrl:    history.NewController(w.gen, sec, w.logger),
		adapter: render.NewAdapter(w.engine, id, w.logger),
	}
}

// Document returns the current document text.
func (w *Workspace) Document() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.text
}

// Len returns the number of sections.
func (w *Workspace) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sections)
}

func (w *Workspace) section(i int) (*section, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i < 0 || i >= len(w.sections) {
		return nil, fmt.Errorf("%w: %d", ErrSectionNotFound, i)
	}
	return w.sections[i], nil
}

// Controller returns the diagram controller of section i.
func (w *Workspace) Controller(i int) (*history.Controller, error) {
	s, err := w.section(i)
	if err != nil {
		return nil, err
	}
	return s.ctrl, nil
}

// Render returns the SVG of the diagram displayed for section i.
func (w *Workspace) Render(ctx context.Context, i int) (render.Result, error) {
	s, err := w.section(i)
	if err != nil {
		return render.Result{}, err
	}
	markup := s.ctrl.Diagram()
	if markup == "" {
		return render.Result{}, history.ErrNoDiagram
	}
	return s.adapter.Render(ctx, markup)
}

// Export renders the diagram of section i for download and returns the
// data with its file name.
func (w *Workspace) Export(ctx context.Context, i int, format render.Format) ([]byte, string, error) {
	s, err := w.section(i)
	if err != nil {
		return nil, "", err
	}
	sec := s.ctrl.Section()
	if sec.Diagram == "" {
		return nil, "", history.ErrNoDiagram
	}
	data, err := s.adapter.Export(ctx, sec.Diagram, sec.Title, format)
	if err != nil {
		return nil, "", err
	}
	return data, render.FileName(sec.Title, format), nil
}

// Snapshot returns the workspace state with rendered previews.
func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	text := w.text
	sections := append([]*section(nil), w.sections...)
	w.mu.Unlock()

	snap := Snapshot{Markdown: text, Sections: make([]SectionView, len(sections))}
	for i, s := range sections {
		view := SectionView{Index: i, Snapshot: s.ctrl.Snapshot()}
		html, err := markdown.RenderHTML(view.Content)
		if err != nil {
			w.logger.Warn("rendering section preview", "section", view.Title, "error", err)
		}
		view.HTML = html
		snap.Sections[i] = view
	}
	return snap
}

// Close cancels every pending request.
func (w *Workspace) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.sections {
		s.ctrl.Cancel()
	}
}

// Manager keeps one workspace per session token.
type Manager struct {
	gen    generate.Generator
	engine render.Engine
	logger *slog.Logger

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

// NewManager creates a manager whose workspaces use gen and engine.
func NewManager(gen generate.Generator, engine render.Engine, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		gen:        gen,
		engine:     engine,
		logger:     logger,
		workspaces: make(map[string]*Workspace),
	}
}

// Get returns the workspace for token, creating it on first use.
func (m *Manager) Get(token string) *Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.workspaces[token]
	if !ok {
		ws = NewWorkspace(m.gen, m.engine, m.logger)
		m.workspaces[token] = ws
	}
	return ws
}

// Remove closes and forgets the workspace for token. It is registered as
// the session store's eviction hook.
func (m *Manager) Remove(token string) {
	m.mu.Lock()
	ws, ok := m.workspaces[token]
	delete(m.workspaces, token)
	m.mu.Unlock()
	if ok {
		ws.Close()
	}
}

// Len returns the number of live workspaces.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workspaces)
}
