package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"
)

// stubVerifier accepts exactly one token.
type stubVerifier struct {
	valid string
	id    Identity
}

func (v *stubVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token != v.valid {
		return Identity{}, fmt.Errorf("%w: unknown token", ErrInvalidToken)
	}
	return v.id, nil
}

func newTestHandler(v Verifier, oauth *oauth2.Config) (*Handler, *Store, http.Handler) {
	store := NewStore(7 * 24 * time.Hour)
	h := NewHandler(store, Options{Verifier: v, OAuth: oauth, ClientID: "client-1"})
	r := chi.NewRouter()
	r.Use(Gate(store, "/dashboard", "/api/editor", "/ws/editor"))
	h.RegisterRoutes(r)
	r.Get("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		sess, _ := FromContext(r.Context())
		fmt.Fprintf(w, "hello %s", sess.Identity.Email)
	})
	r.Get("/api/editor", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return h, store, r
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestStoreLifecycle(t *testing.T) {
	store := NewStore(time.Hour)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	var mu sync.Mutex
	var evicted []string
	store.OnEvict(func(token string) {
		mu.Lock()
		evicted = append(evicted, token)
		mu.Unlock()
	})

	a := store.Create(Identity{Email: "a@example.com"})
	b := store.Create(Identity{Email: "b@example.com"})
	if a.Token == b.Token || a.Token == "" {
		t.Fatal("expected distinct tokens")
	}
	if _, ok := store.Get(a.Token); !ok {
		t.Fatal("expected live session")
	}

	if !store.Delete(a.Token) {
		t.Error("expected delete to report an existing session")
	}
	if _, ok := store.Get(a.Token); ok {
		t.Error("deleted session must not be returned")
	}

	clock = clock.Add(2 * time.Hour)
	if _, ok := store.Get(b.Token); ok {
		t.Error("expired session must not be returned")
	}
	if n := store.Sweep(); n != 1 {
		t.Errorf("expected 1 swept session, got %d", n)
	}
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d", store.Len())
	}
	if len(evicted) != 2 {
		t.Errorf("expected eviction hooks for both sessions, got %v", evicted)
	}
}

func TestStoreJanitorStopsOnCancel(t *testing.T) {
	store := NewStore(time.Millisecond)
	store.Create(Identity{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.RunJanitor(ctx, time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for store.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
	if store.Len() != 0 {
		t.Error("janitor should have swept the expired session")
	}
}

func TestGateRedirectsPages(t *testing.T) {
	_, _, router := newTestHandler(nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/dashboard", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != LoginPath {
		t.Errorf("expected redirect to %s, got %q", LoginPath, loc)
	}
}

func TestGateRejectsAPI(t *testing.T) {
	_, _, router := newTestHandler(nil, nil)

	req := httptest.NewRequest("GET", "/api/editor", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "forged"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "authentication required") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestGatePassesUnprotected(t *testing.T) {
	_, _, router := newTestHandler(nil, nil)
	for _, path := range []string{"/healthz", "/dashboardish"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code == http.StatusFound || rec.Code == http.StatusUnauthorized {
			t.Errorf("%s: expected pass-through, got %d", path, rec.Code)
		}
	}
}

func TestSessionEndpointWithoutVerifier(t *testing.T) {
	_, store, router := newTestHandler(nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/auth/session", strings.NewReader(`{"token":"anything"}`)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if store.Len() != 0 {
		t.Error("no session may be created without verification")
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			t.Error("no cookie may be set without verification")
		}
	}
}

func TestSessionEndpointRejectsInvalidToken(t *testing.T) {
	_, _, router := newTestHandler(&stubVerifier{valid: "good"}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/auth/session", strings.NewReader(`{"token":"bad"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/auth/session", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing token, got %d", rec.Code)
	}
}

func TestSignInThenLogout(t *testing.T) {
	v := &stubVerifier{valid: "good", id: Identity{Subject: "1", Email: "ada@example.com"}}
	_, store, router := newTestHandler(v, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/auth/session", strings.NewReader(`{"token":"good"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	json.NewDecoder(rec.Body).Decode(&body)
	if body["success"] != true {
		t.Errorf("expected success, got %v", body)
	}

	cookie := sessionCookie(t, rec)
	if !cookie.HttpOnly || cookie.Path != "/" || cookie.MaxAge != 7*24*60*60 {
		t.Errorf("unexpected cookie attributes %+v", cookie)
	}
	if cookie.Value == "good" {
		t.Error("cookie must carry a server token, not the ID token")
	}

	req := httptest.NewRequest("GET", "/dashboard", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ada@example.com") {
		t.Fatalf("expected dashboard for signed-in user, got %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest("GET", LoginPath, nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != DashboardPath {
		t.Errorf("signed-in login visit should redirect to dashboard, got %d", rec.Code)
	}

	req = httptest.NewRequest("POST", "/api/auth/logout", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}
	if c := sessionCookie(t, rec); c.MaxAge >= 0 {
		t.Errorf("expected cookie cleared, got MaxAge %d", c.MaxAge)
	}
	if store.Len() != 0 {
		t.Error("expected server session deleted")
	}
}

func TestLoginPage(t *testing.T) {
	_, _, router := newTestHandler(nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/login?error=boom", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Sign-in is not configured") {
		t.Error("expected notice when sign-in is disabled")
	}
	if !strings.Contains(body, "boom") {
		t.Error("expected error message on page")
	}

	_, _, router = newTestHandler(&stubVerifier{}, NewGoogleOAuthConfig("client-1", "secret", "http://localhost/cb"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/login", nil))
	body = rec.Body.String()
	if !strings.Contains(body, `data-client_id="client-1"`) || !strings.Contains(body, "/auth/google/start") {
		t.Errorf("expected sign-in controls, got:\n%s", body)
	}
}

func TestOAuthFlow(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("code") != "the-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at","token_type":"Bearer","expires_in":3600,"id_token":"good"}`)
	}))
	defer tokenSrv.Close()

	conf := NewGoogleOAuthConfig("client-1", "secret", "http://localhost/auth/google/callback")
	conf.Endpoint = oauth2.Endpoint{AuthURL: tokenSrv.URL + "/auth", TokenURL: tokenSrv.URL + "/token"}
	v := &stubVerifier{valid: "good", id: Identity{Subject: "1", Email: "ada@example.com"}}
	_, store, router := newTestHandler(v, conf)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/auth/google/start", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("start: expected 302, got %d", rec.Code)
	}
	loc, _ := url.Parse(rec.Header().Get("Location"))
	state := loc.Query().Get("state")
	if state == "" {
		t.Fatal("expected state in authorization URL")
	}
	var stateCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookieName {
			stateCookie = c
		}
	}
	if stateCookie == nil || stateCookie.Value != state {
		t.Fatal("expected state cookie matching the URL")
	}

	// Wrong state is rejected.
	req := httptest.NewRequest("GET", "/auth/google/callback?code=the-code&state=other", nil)
	req.AddCookie(stateCookie)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if !strings.HasPrefix(rec.Header().Get("Location"), LoginPath+"?error=") {
		t.Errorf("expected login error redirect, got %q", rec.Header().Get("Location"))
	}

	req = httptest.NewRequest("GET", "/auth/google/callback?code=the-code&state="+state, nil)
	req.AddCookie(stateCookie)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != DashboardPath {
		t.Fatalf("callback: expected redirect to dashboard, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	sessionCookie(t, rec)
	if store.Len() != 1 {
		t.Errorf("expected one session, got %d", store.Len())
	}
}

func TestOAuthDisabled(t *testing.T) {
	_, _, router := newTestHandler(nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/auth/google/start", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestGoogleVerifier(t *testing.T) {
	fakeValidate := func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
		if audience != "client-1" {
			return nil, errors.New("idtoken: audience provided does not match aud claim in the JWT")
		}
		switch token {
		case "good":
			return &idtoken.Payload{
				Issuer:   "https://accounts.google.com",
				Audience: audience,
				Subject:  "42",
				Claims:   map[string]interface{}{"email": "ada@example.com", "name": "Ada"},
			}, nil
		case "other-issuer":
			return &idtoken.Payload{Issuer: "https://evil.example.com", Audience: audience, Subject: "42"}, nil
		case "no-subject":
			return &idtoken.Payload{Issuer: "accounts.google.com", Audience: audience}, nil
		case "expired":
			return nil, errors.New("idtoken: token expired")
		case "down":
			return nil, &url.Error{Op: "Get", URL: "https://www.googleapis.com/oauth2/v3/certs", Err: errors.New("connection refused")}
		}
		return nil, errors.New("idtoken: invalid token")
	}
	v := &GoogleVerifier{clientID: "client-1", validate: fakeValidate}

	id, err := v.Verify(context.Background(), "good")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.Subject != "42" || id.Email != "ada@example.com" || id.Name != "Ada" {
		t.Errorf("unexpected identity %+v", id)
	}

	for _, tok := range []string{"other-issuer", "no-subject", "expired", "garbage", ""} {
		if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%q: expected ErrInvalidToken, got %v", tok, err)
		}
	}

	other := &GoogleVerifier{clientID: "client-2", validate: fakeValidate}
	if _, err := other.Verify(context.Background(), "good"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("audience mismatch: expected ErrInvalidToken, got %v", err)
	}

	_, err = v.Verify(context.Background(), "down")
	if err == nil || errors.Is(err, ErrInvalidToken) {
		t.Errorf("key fetch failure should not look like an invalid token: %v", err)
	}
}
