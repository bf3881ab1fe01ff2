package editor

import (
	"encoding/json"
	"net/http"

	"github.com/diagramify/diagramify/internal/auth"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// liveRequest is the incoming websocket message.
type liveRequest struct {
	Type     string `json:"type"` // "document" or "snapshot"
	Markdown string `json:"markdown"`
}

// liveResponse is the outgoing websocket message.
type liveResponse struct {
	Type     string        `json:"type"` // "sections" or "error"
	Sections []SectionView `json:"sections,omitempty"`
	Error    string        `json:"error,omitempty"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	ws := h.manager.Get(sess.Token)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var req liveRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			h.send(conn, liveResponse{Type: "error", Error: "invalid message format"})
			continue
		}

		switch req.Type {
		case "document":
			ws.SetDocument(req.Markdown)
		case "snapshot":
		default:
			h.send(conn, liveResponse{Type: "error", Error: "unknown message type: " + req.Type})
			continue
		}
		h.send(conn, liveResponse{Type: "sections", Sections: ws.Snapshot().Sections})
	}
}

func (h *Handler) send(conn *websocket.Conn, resp liveResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		h.logger.Warn("websocket write failed", "error", err)
	}
}
