package auth

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
)

const (
	stateCookie   = "oauthstate"
	sessionCookie = "id_token"
)

func (a *Auth) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// LoginHandler starts the authorization code flow. The state value is kept
// in a cookie and checked on the callback.
func (a *Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if a.bypass {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	state, err := randomState()
	if err != nil {
		http.Error(w, "failed to generate state", http.StatusInternalServerError)
		return
	}
	a.setCookie(w, stateCookie, state, 0)
	http.Redirect(w, r, a.oauth2Config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// CallbackHandler completes the flow: it checks state, exchanges the code,
// verifies the ID token and stores it as the session cookie.
func (a *Auth) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	if a.bypass {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	q := r.URL.Query()
	if c, err := r.Cookie(stateCookie); err != nil || q.Get("state") != c.Value {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}
	a.setCookie(w, stateCookie, "", -1)

	token, err := a.oauth2Config.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		a.logError("token exchange failed", err)
		http.Error(w, "token exchange failed", http.StatusInternalServerError)
		return
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "no id_token in token response", http.StatusInternalServerError)
		return
	}
	if _, err := a.verifier.Verify(r.Context(), rawIDToken); err != nil {
		a.logError("id token rejected", err)
		http.Error(w, "failed to verify id token", http.StatusUnauthorized)
		return
	}

	a.setCookie(w, sessionCookie, rawIDToken, 0)
	http.Redirect(w, r, "/docs", http.StatusSeeOther)
}

// LogoutHandler drops the session cookie.
func (a *Auth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	a.setCookie(w, sessionCookie, "", -1)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *Auth) logError(msg string, err error) {
	if a.logger != nil {
		a.logger.Error(msg, "error", err)
	}
}

func randomState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
