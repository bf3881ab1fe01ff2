package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/diagramify/diagramify/internal/diagrams"
	"github.com/diagramify/diagramify/internal/generate"
)

type diagramResponse struct {
	Diagram string `json:"diagram"`
}

func (s *Server) handleGenerateDiagram(w http.ResponseWriter, r *http.Request) {
	var req generate.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	diagram, err := s.deps.Generator.Generate(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, generate.ErrMissingInput):
			status = http.StatusBadRequest
		case errors.Is(err, diagrams.ErrNoChanges):
			status = http.StatusBadRequest
		default:
			s.logger.Error("diagram generation failed", "error", err)
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, diagramResponse{Diagram: diagram})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
