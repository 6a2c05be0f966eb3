package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/admit/internal/criteria"
	"github.com/joescharf/admit/internal/models"
	"github.com/joescharf/admit/internal/store"
)

// Server exposes saved reviews and the criteria catalog as MCP tools.
type Server struct {
	store    store.Store
	registry *criteria.Registry
	version  string
}

// NewServer creates the MCP server wrapper.
func NewServer(s store.Store, reg *criteria.Registry, version string) *Server {
	return &Server{store: s, registry: reg, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("admit", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.listReviewsTool())
	srv.AddTool(s.reviewRecordsTool())
	srv.AddTool(s.feedbackLogsTool())
	srv.AddTool(s.listCriteriaTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// admit_list_reviews
func (s *Server) listReviewsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("admit_list_reviews",
		mcp.WithDescription("List complaint reviews, newest first. Returns a JSON array with id, file_name, status and timestamps."),
		mcp.WithString("status", mcp.Description("Filter by review status"), mcp.Enum("draft", "saved")),
	)
	return tool, s.handleListReviews
}

func (s *Server) handleListReviews(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := models.ReviewStatus(request.GetString("status", ""))
	if status != "" && status != models.ReviewStatusDraft && status != models.ReviewStatusSaved {
		return mcp.NewToolResultError(fmt.Sprintf("invalid status: %s", status)), nil
	}
	reviews, err := s.store.ListReviews(ctx, status)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list reviews: %v", err)), nil
	}
	if reviews == nil {
		reviews = []*models.Review{}
	}
	return jsonResult(reviews)
}

// admit_review_records
func (s *Server) reviewRecordsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("admit_review_records",
		mcp.WithDescription("Get a review and its saved per-criterion decisions. Each record holds the final status, the reviewer's reason and organization, and the analyzer's original finding."),
		mcp.WithString("review_id", mcp.Required(), mcp.Description("Review ID")),
	)
	return tool, s.handleReviewRecords
}

func (s *Server) handleReviewRecords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("review_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: review_id"), nil
	}

	rev, err := s.store.GetReview(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("review not found: %s", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get review: %v", err)), nil
	}

	records, err := s.store.ListRecords(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list records: %v", err)), nil
	}
	if records == nil {
		records = []models.CriterionRecord{}
	}

	return jsonResult(struct {
		Review  *models.Review           `json:"review"`
		Records []models.CriterionRecord `json:"records"`
	}{rev, records})
}

// admit_feedback_logs
func (s *Server) feedbackLogsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("admit_feedback_logs",
		mcp.WithDescription("Get the analyzer accuracy log of a saved review: one row per extracted value with the analyzer's value, the reviewer's value and whether the analyzer was right."),
		mcp.WithString("review_id", mcp.Required(), mcp.Description("Review ID")),
	)
	return tool, s.handleFeedbackLogs
}

func (s *Server) handleFeedbackLogs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("review_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: review_id"), nil
	}
	logs, err := s.store.ListFeedbackLogs(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list feedback logs: %v", err)), nil
	}
	if logs == nil {
		logs = []*models.FeedbackLog{}
	}
	return jsonResult(logs)
}

// admit_list_criteria
func (s *Server) listCriteriaTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("admit_list_criteria",
		mcp.WithDescription("List the admissibility criteria in order, with evaluation mode, finding shape, manual options and authority outcomes."),
	)
	return tool, s.handleListCriteria
}

func (s *Server) handleListCriteria(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.registry.All())
}
