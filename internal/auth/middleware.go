package auth

import (
	"context"
	"net/http"
	"strings"
)

// CookieName is the cookie carrying the session token.
const CookieName = "session"

// LoginPath is where unauthenticated page requests are sent.
const LoginPath = "/login"

type sessionKey struct{}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// FromContext returns the session stored by the gate, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*Session)
	return sess, ok && sess != nil
}

// SessionFromRequest returns the live session named by the request cookie.
func (s *Store) SessionFromRequest(r *http.Request) (*Session, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, false
	}
	return s.Get(c.Value)
}

// Gate requires a live session for requests under any of the protected
// path prefixes. API and websocket requests without one get 401; page
// requests are redirected to LoginPath. Other paths pass through.
func Gate(store *Store, protected ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isProtected(r.URL.Path, protected) {
				next.ServeHTTP(w, r)
				return
			}

			sess, ok := store.SessionFromRequest(r)
			if !ok {
				if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/ws/") {
					writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
					return
				}
				http.Redirect(w, r, LoginPath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

func isProtected(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}
