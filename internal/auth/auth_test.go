package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coreos/go-oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joel785/Medallion-Project/internal/config"
)

// NoOpLogger for testing
type NoOpLogger struct{}

func (l *NoOpLogger) Debug(msg string, args ...any) {}
func (l *NoOpLogger) Info(msg string, args ...any)  {}
func (l *NoOpLogger) Error(msg string, args ...any) {}

// MockKeySet satisfies oidc.KeySet to bypass signature verification
type MockKeySet struct{}

func (m *MockKeySet) VerifySignature(ctx context.Context, jwtToken string) ([]byte, error) {
	parts := strings.Split(jwtToken, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed jwt")
	}
	return base64.RawURLEncoding.DecodeString(parts[1])
}

const (
	testIssuer   = "https://test-issuer.com"
	testClientID = "test-client"
)

func fakeToken(t *testing.T, extra map[string]interface{}) string {
	t.Helper()
	claims := map[string]interface{}{
		"iss": testIssuer,
		"aud": testClientID,
		"sub": "analyst-1",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Add(-1 * time.Minute).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	header, err := json.Marshal(map[string]interface{}{"alg": "RS256", "typ": "JWT", "kid": "test-key"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(header) + "." +
		base64.RawURLEncoding.EncodeToString(payload) + "." +
		base64.RawURLEncoding.EncodeToString([]byte("fakesignature"))
}

func testVerifier() *oidc.IDTokenVerifier {
	return oidc.NewVerifier(testIssuer, &MockKeySet{}, &oidc.Config{
		ClientID:          testClientID,
		SkipClientIDCheck: true,
	})
}

func TestRequireAuth_BearerTokenScopes(t *testing.T) {
	a := &Auth{apiVerifier: testVerifier()}
	token := fakeToken(t, map[string]interface{}{
		"email": "analyst@clinic.example",
		"scp":   []string{ScopeOpenID, ScopeGoldRead},
	})

	var got Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		assert.True(t, ok, "principal should be in context")
		got = p
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/gold", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	a.RequireAuth(RequireScope(ScopeGoldRead)(next)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Logf("Response Body: %s", rec.Body.String())
	}
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "analyst-1", got.Subject)
	assert.Equal(t, "analyst@clinic.example", got.Email)
	assert.True(t, got.Has(ScopeGoldRead))
	assert.False(t, got.Has(ScopeAuditRead))
}

func TestRequireAuth_MissingScopeIsForbidden(t *testing.T) {
	a := &Auth{apiVerifier: testVerifier()}
	token := fakeToken(t, map[string]interface{}{"scope": "openid gold:read"})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit/rejections", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	a.RequireAuth(RequireScope(ScopeAuditRead)(next)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAuth_InvalidBearer(t *testing.T) {
	a := &Auth{apiVerifier: testVerifier()}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/gold", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	a.RequireAuth(http.NotFoundHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_NoCredentialsRedirectsToLogin(t *testing.T) {
	a := &Auth{verifier: testVerifier(), apiVerifier: testVerifier()}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/gold", nil)
	rec := httptest.NewRecorder()
	a.RequireAuth(http.NotFoundHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRequireAuth_SessionCookieGetsReadScopes(t *testing.T) {
	a := &Auth{verifier: testVerifier()}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/gold", nil)
	req.AddCookie(&http.Cookie{Name: "id_token", Value: fakeToken(t, map[string]interface{}{"email": "a@b.c"})})
	rec := httptest.NewRecorder()

	a.RequireAuth(RequireScope(ScopeAuditRead)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireAuth_BypassMode(t *testing.T) {
	cfg := &config.Config{
		Environment:   "DEV",
		DevModeBypass: true,
	}
	a, err := New(context.Background(), cfg, &NoOpLogger{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/gold", nil)
	rec := httptest.NewRecorder()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		assert.True(t, ok)
		assert.Equal(t, "dev@localhost", p.Email)
		w.WriteHeader(http.StatusOK)
	})
	a.RequireAuth(RequireScope(ScopeAuditRead)(next)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRejectsIncompleteConfig(t *testing.T) {
	cfg := &config.Config{Environment: "PROD", DevModeBypass: true}
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestRequireScopeWithoutPrincipal(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireScope(ScopeGoldRead)(http.NotFoundHandler()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
