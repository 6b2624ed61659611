// Package mcp exposes Gold, audit and reconciliation reads as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Joel785/Medallion-Project/internal/repository"
	"github.com/Joel785/Medallion-Project/internal/services"
	"github.com/Joel785/Medallion-Project/pkg/models"
)

const maxRejections = 200

// GoldReader is the read side of the Gold layer.
type GoldReader interface {
	Tables() []models.GoldTable
	ReadTable(ctx context.Context, name string) (*models.GoldTableRows, error)
	Dashboard(ctx context.Context) (*models.DashboardSummary, error)
}

// ReconciliationReader returns the newest reconciliation report.
type ReconciliationReader interface {
	Latest(ctx context.Context) (*models.ReconciliationReport, error)
}

// RejectionReader lists rejection audit entries.
type RejectionReader interface {
	ListRejections(ctx context.Context, filter models.RejectionFilter) ([]models.RejectedRow, error)
}

type Server struct {
	mcpServer  *server.MCPServer
	gold       GoldReader
	reconcile  ReconciliationReader
	rejections RejectionReader
}

func NewServer(gold GoldReader, reconcile ReconciliationReader, rejections RejectionReader, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Medallion Gold",
			version,
			server.WithToolCapabilities(true),
		),
		gold:       gold,
		reconcile:  reconcile,
		rejections: rejections,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_gold_tables",
			mcp.WithDescription("List the Gold tables with their columns"),
		),
		s.handleListTables,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"read_gold_table",
			mcp.WithDescription("Read every row of one Gold table"),
			mcp.WithString("table", mcp.Required(), mcp.Description("Table name as returned by list_gold_tables")),
		),
		s.handleReadTable,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"dashboard_summary",
			mcp.WithDescription("KPI roll-up: patients, doctors, appointments, revenue and prescriptions"),
		),
		s.handleDashboard,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"latest_reconciliation",
			mcp.WithDescription("The most recent Silver versus Gold reconciliation report"),
		),
		s.handleLatestReconciliation,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"recent_rejections",
			mcp.WithDescription("Recently rejected source rows, newest first"),
			mcp.WithString("kind", mcp.Description("patient, doctor, appointment, prescription or billing")),
			mcp.WithNumber("limit", mcp.Description("Maximum rows to return (default 20)")),
		),
		s.handleRecentRejections,
	)
}

func (s *Server) handleListTables(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.gold.Tables())
}

func (s *Server) handleReadTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := request.RequireString("table")
	if err != nil || table == "" {
		return mcp.NewToolResultError("Missing required parameter: table"), nil
	}

	rows, err := s.gold.ReadTable(ctx, table)
	if err != nil {
		return toolError("read gold table", err), nil
	}
	return jsonResult(rows)
}

func (s *Server) handleDashboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := s.gold.Dashboard(ctx)
	if err != nil {
		return toolError("read dashboard", err), nil
	}
	return jsonResult(d)
}

func (s *Server) handleLatestReconciliation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.reconcile.Latest(ctx)
	if err != nil {
		return toolError("read reconciliation", err), nil
	}
	return jsonResult(report)
}

func (s *Server) handleRecentRejections(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := models.RejectionFilter{Limit: request.GetInt("limit", 20)}
	if filter.Limit < 1 || filter.Limit > maxRejections {
		return mcp.NewToolResultError(fmt.Sprintf("limit must be between 1 and %d", maxRejections)), nil
	}
	if v := request.GetString("kind", ""); v != "" {
		kind, err := models.ParseKind(v)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filter.Kind = &kind
	}

	rows, err := s.rejections.ListRejections(ctx, filter)
	if err != nil {
		return toolError("list rejections", err), nil
	}
	if rows == nil {
		rows = []models.RejectedRow{}
	}
	return jsonResult(rows)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError keeps store internals out of tool output.
func toolError(op string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, services.ErrGoldNotBuilt),
		errors.Is(err, services.ErrNoReconciliation):
		return mcp.NewToolResultError(err.Error())
	case errors.Is(err, services.ErrStoreUnavailable):
		return mcp.NewToolResultError(op + ": data store unavailable")
	default:
		return mcp.NewToolResultError(op + " failed")
	}
}

// MountHTTPHandlers serves streamable HTTP on /mcp and the legacy SSE
// transport on /mcp/sse and /mcp/message.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	streamable := server.NewStreamableHTTPServer(mcpServer, server.WithEndpointPath("/mcp"))
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.Handle("/mcp", streamable)
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
