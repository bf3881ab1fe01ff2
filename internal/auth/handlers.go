package auth

import (
	_ "embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"
)

//go:embed login.html
var loginHTML string

var loginTemplate = template.Must(template.New("login").Parse(loginHTML))

// DashboardPath is where signed-in users land.
const DashboardPath = "/dashboard"

// Options configures the sign-in handlers.
type Options struct {
	// Verifier checks ID tokens. Nil disables sign-in.
	Verifier Verifier
	// OAuth drives the redirect sign-in flow. Nil disables it.
	OAuth *oauth2.Config
	// ClientID is shown to the login page for Google Identity Services.
	ClientID     string
	CookieSecure bool
	Logger       *slog.Logger
}

// Handler serves the sign-in, sign-out and login page endpoints.
type Handler struct {
	store *Store
	opts  Options
	log   *slog.Logger
}

// NewHandler creates a Handler over store.
func NewHandler(store *Store, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, opts: opts, log: logger}
}

// SignInEnabled reports whether any sign-in flow is available.
func (h *Handler) SignInEnabled() bool {
	return h.opts.Verifier != nil
}

// RegisterRoutes mounts the auth routes onto r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get(LoginPath, h.handleLoginPage)
	r.Post("/api/auth/session", h.handleSession)
	r.Post("/api/auth/logout", h.handleLogout)
	r.Get("/auth/google/start", h.handleOAuthStart)
	r.Get("/auth/google/callback", h.handleOAuthCallback)
}

type sessionRequest struct {
	Token string `json:"token"`
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "token is required"})
		return
	}

	sess, err := h.signIn(r, req.Token)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, ErrVerifierUnavailable):
			status = http.StatusServiceUnavailable
		case errors.Is(err, ErrInvalidToken):
			status = http.StatusUnauthorized
		}
		writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
		return
	}

	h.setSessionCookie(w, sess)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "session created"})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil {
		h.store.Delete(c.Value)
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "session closed"})
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.store.SessionFromRequest(r); ok {
		http.Redirect(w, r, DashboardPath, http.StatusFound)
		return
	}

	data := struct {
		SignInEnabled bool
		OAuthEnabled  bool
		ClientID      string
		Error         string
	}{
		SignInEnabled: h.SignInEnabled(),
		OAuthEnabled:  h.SignInEnabled() && h.opts.OAuth != nil,
		ClientID:      h.opts.ClientID,
		Error:         r.URL.Query().Get("error"),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := loginTemplate.Execute(w, data); err != nil {
		h.log.Error("rendering login page", "error", err)
	}
}

// signIn verifies idToken and creates a session for its subject.
func (h *Handler) signIn(r *http.Request, idToken string) (*Session, error) {
	if h.opts.Verifier == nil {
		return nil, ErrVerifierUnavailable
	}
	id, err := h.opts.Verifier.Verify(r.Context(), idToken)
	if err != nil {
		h.log.Warn("sign-in rejected", "error", err)
		return nil, err
	}
	sess := h.store.Create(id)
	h.log.Info("signed in", "email", id.Email)
	return sess, nil
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, sess *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(h.store.TTL() / time.Second),
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
