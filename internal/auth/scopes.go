package auth

const (
	ScopeOpenID    = "openid"
	ScopeProfile   = "profile"
	ScopeEmail     = "email"
	ScopeGoldRead  = "gold:read"
	ScopeAuditRead = "audit:read"
)

// AllScopes defines the full set of scopes used by the Swagger UI
var AllScopes = []string{
	ScopeOpenID,
	ScopeProfile,
	ScopeEmail,
	ScopeGoldRead,
	ScopeAuditRead,
}

// ReadScopes are granted to browser sessions.
var ReadScopes = []string{ScopeGoldRead, ScopeAuditRead}
