package editor

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/diagramify/diagramify/internal/auth"
	"github.com/diagramify/diagramify/internal/diagrams"
	"github.com/diagramify/diagramify/internal/generate"
	"github.com/diagramify/diagramify/internal/history"
	"github.com/diagramify/diagramify/internal/llm"
	"github.com/diagramify/diagramify/internal/render"
	"github.com/go-chi/chi/v5"
)

//go:embed dashboard.html
var dashboardHTML []byte

// Handler serves the editor page, its JSON API and live channel.
type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

// NewHandler creates a Handler over manager.
func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{manager: manager, logger: logger}
}

// RegisterRoutes mounts the editor routes onto r. They expect the session
// gate to have stored a session in the request context.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get(auth.DashboardPath, h.serveDashboard)
	r.Get("/ws/editor", h.handleWebSocket)

	r.Route("/api/editor", func(r chi.Router) {
		r.Get("/", h.handleSnapshot)
		r.Put("/document", h.handleDocument)
		r.Route("/sections/{index}", func(r chi.Router) {
			r.Post("/generate", h.handleGenerate)
			r.Post("/regenerate", h.handleRegenerate)
			r.Post("/edit", h.handleEdit)
			r.Post("/edit/begin", h.handleBeginEdit)
			r.Post("/edit/cancel", h.handleCancelEdit)
			r.Post("/undo", h.handleUndo)
			r.Post("/redo", h.handleRedo)
			r.Put("/prompt", h.handlePrompt)
			r.Post("/view", h.handleView)
			r.Get("/svg", h.handleSVG)
			r.Get("/export", h.handleExport)
		})
	})
}

func (h *Handler) serveDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(dashboardHTML)
}

// workspace returns the caller's workspace, writing 401 when the request
// carries no session.
func (h *Handler) workspace(w http.ResponseWriter, r *http.Request) (*Workspace, bool) {
	sess, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return nil, false
	}
	return h.manager.Get(sess.Token), true
}

// controller resolves the {index} route parameter to a section controller.
func (h *Handler) controller(w http.ResponseWriter, r *http.Request) (*Workspace, int, *history.Controller, bool) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return nil, 0, nil, false
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid section index"})
		return nil, 0, nil, false
	}
	ctrl, err := ws.Controller(index)
	if err != nil {
		h.writeError(w, err)
		return nil, 0, nil, false
	}
	return ws, index, ctrl, true
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ws.Snapshot())
}

type documentRequest struct {
	Markdown string `json:"markdown"`
}

func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	ws.SetDocument(req.Markdown)
	writeJSON(w, http.StatusOK, ws.Snapshot())
}

type sectionResponse struct {
	Index   int              `json:"index"`
	Section history.Snapshot `json:"section"`
}

func (h *Handler) writeSection(w http.ResponseWriter, index int, ctrl *history.Controller) {
	writeJSON(w, http.StatusOK, sectionResponse{Index: index, Section: ctrl.Snapshot()})
}

// runAction runs a controller request and replies with the section state.
func (h *Handler) runAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, ctrl *history.Controller) error) {
	_, index, ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	if err := fn(r.Context(), ctrl); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeSection(w, index, ctrl)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, func(ctx context.Context, ctrl *history.Controller) error {
		_, err := ctrl.Generate(ctx)
		return err
	})
}

func (h *Handler) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, func(ctx context.Context, ctrl *history.Controller) error {
		_, err := ctrl.Regenerate(ctx)
		return err
	})
}

type editRequest struct {
	Instructions string `json:"instructions"`
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	h.runAction(w, r, func(ctx context.Context, ctrl *history.Controller) error {
		_, err := ctrl.ApplyEdit(ctx, req.Instructions)
		return err
	})
}

func (h *Handler) handleBeginEdit(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, func(_ context.Context, ctrl *history.Controller) error {
		return ctrl.BeginEdit()
	})
}

func (h *Handler) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, func(_ context.Context, ctrl *history.Controller) error {
		ctrl.CancelEdit()
		return nil
	})
}

func (h *Handler) handleUndo(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, func(ctx context.Context, ctrl *history.Controller) error {
		_, err := ctrl.Undo()
		return err
	})
}

func (h *Handler) handleRedo(w http.ResponseWriter, r *http.Request) {
	h.runAction(w, r, func(ctx context.Context, ctrl *history.Controller) error {
		_, err := ctrl.Redo()
		return err
	})
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

func (h *Handler) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	h.runAction(w, r, func(ctx context.Context, ctrl *history.Controller) error {
		ctrl.SetPrompt(req.Prompt)
		return nil
	})
}

type viewRequest struct {
	Action string  `json:"action"`
	DeltaY float64 `json:"deltaY"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// viewTransition maps a client view action to a state transition.
func viewTransition(req viewRequest) (func(history.ViewState) history.ViewState, error) {
	p := history.Point{X: req.X, Y: req.Y}
	switch req.Action {
	case "zoom_in":
		return history.ViewState.ZoomIn, nil
	case "zoom_out":
		return history.ViewState.ZoomOut, nil
	case "wheel":
		return func(v history.ViewState) history.ViewState { return v.Wheel(req.DeltaY) }, nil
	case "expand":
		return history.ViewState.Expand, nil
	case "collapse":
		return history.ViewState.Collapse, nil
	case "drag_start":
		return func(v history.ViewState) history.ViewState { return v.DragStart(p) }, nil
	case "drag_move":
		return func(v history.ViewState) history.ViewState { return v.DragMove(p) }, nil
	case "drag_end":
		return history.ViewState.DragEnd, nil
	}
	return nil, fmt.Errorf("unknown view action %q", req.Action)
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	fn, err := viewTransition(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	_, _, ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ctrl.UpdateView(fn))
}

func (h *Handler) handleSVG(w http.ResponseWriter, r *http.Request) {
	ws, index, _, ok := h.controller(w, r)
	if !ok {
		return
	}
	res, err := ws.Render(r.Context(), index)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ws, index, _, ok := h.controller(w, r)
	if !ok {
		return
	}
	data, name, err := ws.Export(r.Context(), index, format)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(data)
}

// statusFor maps editor errors to HTTP status codes.
func statusFor(err error) int {
	var renderErr *render.Error
	switch {
	case errors.Is(err, ErrSectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, generate.ErrMissingInput), errors.Is(err, diagrams.ErrNoChanges):
		return http.StatusBadRequest
	case errors.Is(err, history.ErrBusy), errors.Is(err, history.ErrStale),
		errors.Is(err, history.ErrNoDiagram), errors.Is(err, history.ErrNoUndo),
		errors.Is(err, history.ErrNoRedo):
		return http.StatusConflict
	case errors.Is(err, render.ErrThrottled):
		return http.StatusTooManyRequests
	case errors.Is(err, llm.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.As(err, &renderErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("editor request failed", "error", err)
	}

	body := map[string]string{"error": err.Error()}
	var renderErr *render.Error
	if errors.As(err, &renderErr) {
		body["markup"] = renderErr.Markup
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
