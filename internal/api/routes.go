package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Joel785/Medallion-Project/internal/auth"
)

// RegisterRoutes mounts the health probe and the /api/v1 read routes on e.
// authn resolves the caller; when it is nil the routes are left open and
// scopes are not checked, which is how local tooling and tests run them.
func RegisterRoutes(e *echo.Echo, h *Handler, authn func(http.Handler) http.Handler) {
	e.GET("/health", h.HandleHealth)

	v1 := e.Group("/api/v1")
	if authn != nil {
		v1.Use(echo.WrapMiddleware(authn))
	}
	scoped := func(scope string) []echo.MiddlewareFunc {
		if authn == nil {
			return nil
		}
		return []echo.MiddlewareFunc{echo.WrapMiddleware(auth.RequireScope(scope))}
	}

	gold := v1.Group("/gold", scoped(auth.ScopeGoldRead)...)
	gold.GET("", h.ListGoldTables)
	gold.GET("/dashboard", h.GetDashboard)
	gold.GET("/:table", h.GetGoldTable)

	v1.GET("/reconciliation/latest", h.GetLatestReconciliation, scoped(auth.ScopeGoldRead)...)
	v1.GET("/audit/rejections", h.ListRejections, scoped(auth.ScopeAuditRead)...)
}
