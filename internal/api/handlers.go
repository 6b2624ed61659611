// Package api contains the HTTP handlers of the Gold read API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"

	"github.com/Joel785/Medallion-Project/internal/repository"
	"github.com/Joel785/Medallion-Project/internal/services"
	"github.com/Joel785/Medallion-Project/pkg/models"
)

const (
	serviceName         = "medallion-api"
	defaultRejectionCap = 100
	maxRejectionCap     = 1000
)

// GoldReader serves Gold tables.
type GoldReader interface {
	Tables() []models.GoldTable
	ReadTable(ctx context.Context, name string) (*models.GoldTableRows, error)
	Dashboard(ctx context.Context) (*models.DashboardSummary, error)
	BuildInfo(ctx context.Context) (*models.BuildInfo, error)
}

// ReconciliationReader serves persisted reconciliation reports.
type ReconciliationReader interface {
	Latest(ctx context.Context) (*models.ReconciliationReport, error)
}

// RejectionReader serves the rejection audit.
type RejectionReader interface {
	ListRejections(ctx context.Context, filter models.RejectionFilter) ([]models.RejectedRow, error)
}

// Pinger checks a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers for the Gold read API
type Handler struct {
	gold       GoldReader
	reconcile  ReconciliationReader
	rejections RejectionReader
	db         Pinger
	version    string
}

// NewHandler creates a new Handler with required dependencies
func NewHandler(gold GoldReader, reconcile ReconciliationReader, rejections RejectionReader, db Pinger, version string) *Handler {
	return &Handler{gold: gold, reconcile: reconcile, rejections: rejections, db: db, version: version}
}

// HandleHealth reports 200 when the database answers and 503 otherwise.
// GET /health
func (h *Handler) HandleHealth(c echo.Context) error {
	ctx := c.Request().Context()
	status := models.HealthStatus{
		Status:    "ok",
		Service:   serviceName,
		Version:   h.version,
		Timestamp: time.Now().UTC(),
		Checks:    map[string]string{},
	}
	code := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		status.Status = "degraded"
		status.Checks["database"] = err.Error()
		code = http.StatusServiceUnavailable
	} else {
		status.Checks["database"] = "ok"
	}

	info, err := h.gold.BuildInfo(ctx)
	switch {
	case err == nil:
		status.Checks["gold_version"] = info.Version()
	case errors.Is(err, services.ErrGoldNotBuilt):
		status.Checks["gold_version"] = "not built"
	default:
		status.Checks["gold_version"] = "unknown"
	}
	return c.JSON(code, status)
}

// ListGoldTables returns the Gold table catalogue.
// GET /api/v1/gold
func (h *Handler) ListGoldTables(c echo.Context) error {
	return c.JSON(http.StatusOK, h.gold.Tables())
}

// GetGoldTable returns every row of one Gold table.
// GET /api/v1/gold/:table
func (h *Handler) GetGoldTable(c echo.Context) error {
	rows, err := h.gold.ReadTable(c.Request().Context(), c.Param("table"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// GetDashboard returns the KPI roll-up.
// GET /api/v1/gold/dashboard
func (h *Handler) GetDashboard(c echo.Context) error {
	d, err := h.gold.Dashboard(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// ListRejections returns recent rejection audit entries, newest first.
// GET /api/v1/audit/rejections?kind=&batch_id=&limit=
func (h *Handler) ListRejections(c echo.Context) error {
	filter := models.RejectionFilter{Limit: defaultRejectionCap}
	if v := c.QueryParam("kind"); v != "" {
		kind, err := models.ParseKind(v)
		if err != nil {
			return writeError(c, http.StatusBadRequest, "Invalid kind", err.Error())
		}
		filter.Kind = &kind
	}
	if v := c.QueryParam("batch_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return writeError(c, http.StatusBadRequest, "Invalid batch_id", err.Error())
		}
		filter.BatchID = &id
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxRejectionCap {
			return writeError(c, http.StatusBadRequest, "Invalid limit",
				"limit must be an integer between 1 and "+strconv.Itoa(maxRejectionCap))
		}
		filter.Limit = n
	}

	rows, err := h.rejections.ListRejections(c.Request().Context(), filter)
	if err != nil {
		return h.fail(c, err)
	}
	if rows == nil {
		rows = []models.RejectedRow{}
	}
	return c.JSON(http.StatusOK, rows)
}

// GetLatestReconciliation returns the most recent reconciliation report.
// GET /api/v1/reconciliation/latest
func (h *Handler) GetLatestReconciliation(c echo.Context) error {
	report, err := h.reconcile.Latest(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

// fail maps service errors onto problem responses.
func (h *Handler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return writeError(c, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, services.ErrGoldNotBuilt), errors.Is(err, services.ErrNoReconciliation):
		return writeError(c, http.StatusNotFound, "Not Available", err.Error())
	case errors.Is(err, services.ErrStoreUnavailable):
		c.Logger().Error(err)
		return writeError(c, http.StatusServiceUnavailable, "Store Unavailable", "the data store could not be reached")
	default:
		c.Logger().Error(err)
		return writeError(c, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
	}
}

// writeError writes an RFC 7807 Problem Details JSON error response
func writeError(c echo.Context, status int, title, detail string) error {
	problem := models.ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	}
	if sc := trace.SpanContextFromContext(c.Request().Context()); sc.HasTraceID() {
		problem.TraceID = sc.TraceID().String()
	}
	body, err := json.Marshal(problem)
	if err != nil {
		return err
	}
	return c.Blob(status, "application/problem+json", body)
}
