package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc"
)

var errNoCredentials = errors.New("no credentials")

// RequireAuth resolves the caller and stores a Principal in the request
// context. Requests without credentials are sent to /login.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.authenticate(r)
		switch {
		case errors.Is(err, errNoCredentials):
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		case err != nil:
			http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
			return
		}

		if a.logger != nil {
			a.logger.Debug("request authenticated", "subject", p.Subject, "path", r.URL.Path)
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// authenticate prefers a bearer access token, whose scopes it honours, and
// falls back to the session cookie, which is granted ReadScopes.
func (a *Auth) authenticate(r *http.Request) (Principal, error) {
	if a.bypass {
		return devPrincipal, nil
	}

	var (
		token  *oidc.IDToken
		err    error
		bearer bool
	)
	if raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		bearer = true
		token, err = a.apiVerifier.Verify(r.Context(), raw)
	} else if c, cerr := r.Cookie(sessionCookie); cerr == nil {
		token, err = a.verifier.Verify(r.Context(), c.Value)
	} else {
		return Principal{}, errNoCredentials
	}
	if err != nil {
		return Principal{}, err
	}

	var claims struct {
		Email string      `json:"email"`
		Scp   []string    `json:"scp"`
		Scope interface{} `json:"scope"`
	}
	if err := token.Claims(&claims); err != nil {
		return Principal{}, errors.New("failed to parse token claims")
	}

	p := Principal{Subject: token.Subject, Email: claims.Email, Scopes: ReadScopes}
	if bearer {
		p.Scopes = tokenScopes(claims.Scp, claims.Scope)
	}
	return p, nil
}

// RequireScope rejects callers whose principal lacks scope. It must run
// after RequireAuth.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				http.Error(w, "unauthenticated", http.StatusUnauthorized)
				return
			}
			if !p.Has(scope) {
				http.Error(w, "missing scope "+scope, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// tokenScopes merges Okta's scp array with an RFC 8693 scope claim, which
// may be a space separated string or an array.
func tokenScopes(scp []string, scope interface{}) []string {
	out := append([]string(nil), scp...)
	switch s := scope.(type) {
	case string:
		out = append(out, strings.Fields(s)...)
	case []interface{}:
		for _, v := range s {
			if str, ok := v.(string); ok {
				out = append(out, str)
			}
		}
	}
	return out
}
