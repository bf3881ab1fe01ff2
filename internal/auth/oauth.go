package auth

import (
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const stateCookieName = "oauth_state"

// NewGoogleOAuthConfig returns the authorization-code configuration for
// Google sign-in.
func NewGoogleOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
	}
}

func (h *Handler) handleOAuthStart(w http.ResponseWriter, r *http.Request) {
	if h.opts.OAuth == nil || h.opts.Verifier == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": ErrVerifierUnavailable.Error()})
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.opts.OAuth.AuthCodeURL(state), http.StatusFound)
}

func (h *Handler) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if h.opts.OAuth == nil || h.opts.Verifier == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": ErrVerifierUnavailable.Error()})
		return
	}

	q := r.URL.Query()
	if msg := q.Get("error"); msg != "" {
		h.loginFailed(w, r, "authorization failed: "+msg)
		return
	}

	c, err := r.Cookie(stateCookieName)
	if err != nil || c.Value == "" || c.Value != q.Get("state") {
		h.loginFailed(w, r, "invalid sign-in state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/auth/google", MaxAge: -1})

	code := q.Get("code")
	if code == "" {
		h.loginFailed(w, r, "no authorization code received")
		return
	}

	token, err := h.opts.OAuth.Exchange(r.Context(), code)
	if err != nil {
		h.log.Error("exchanging authorization code", "error", err)
		h.loginFailed(w, r, "could not complete sign-in")
		return
	}
	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		h.loginFailed(w, r, "identity provider returned no ID token")
		return
	}

	sess, err := h.signIn(r, idToken)
	if err != nil {
		h.loginFailed(w, r, "could not verify identity")
		return
	}
	h.setSessionCookie(w, sess)
	http.Redirect(w, r, DashboardPath, http.StatusFound)
}

func (h *Handler) loginFailed(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, LoginPath+"?error="+url.QueryEscape(msg), http.StatusFound)
}
