// Package mcpadapter exposes pipeline progress, interview summaries and
// orchestration runs as MCP tools for assistant clients.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
	"github.com/Phani130825/ask-a-coach/internal/core/ports"
)

const (
	serverName    = "ask-a-coach"
	serverVersion = "1.0.0"
)

type Tools struct {
	pipelines    ports.PipelineTracker
	interviews   ports.InterviewService
	orchestrator ports.Orchestrator
	logger       *zap.Logger
}

func NewTools(pipelines ports.PipelineTracker, interviews ports.InterviewService, orchestrator ports.Orchestrator, logger *zap.Logger) *Tools {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tools{
		pipelines:    pipelines,
		interviews:   interviews,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Server registers every tool on a new MCP server.
func (t *Tools) Server() *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("pipeline_progress",
		mcp.WithDescription("Show stage progress of a user's pipelines."),
		mcp.WithString("owner_id", mcp.Required(), mcp.Description("User id owning the pipelines")),
		mcp.WithString("pipeline_type", mcp.Description("tailoring or interview; omit to list all")),
		mcp.WithString("resume_id", mcp.Description("Resume the pipeline belongs to")),
	), t.PipelineProgress)

	s.AddTool(mcp.NewTool("interview_summary",
		mcp.WithDescription("Summarize an interview session with its performance."),
		mcp.WithString("owner_id", mcp.Required(), mcp.Description("User id owning the session")),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Interview session id")),
	), t.InterviewSummary)

	s.AddTool(mcp.NewTool("run_orchestration",
		mcp.WithDescription("Tailor a parsed resume and run the automated interviews, returning the run report."),
		mcp.WithString("resume_id", mcp.Required(), mcp.Description("Parsed resume id")),
	), t.RunOrchestration)

	return s
}

func (t *Tools) ServeStdio() error {
	return server.ServeStdio(t.Server())
}

func (t *Tools) PipelineProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := req.RequireString("owner_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawType := req.GetString("pipeline_type", "")
	if rawType == "" {
		items, err := t.pipelines.ListByOwner(ctx, owner)
		if err != nil {
			return t.failure("pipeline_progress", err), nil
		}
		out := make([]domain.PipelineProgress, 0, len(items))
		for _, p := range items {
			out = append(out, p.Progress())
		}
		return jsonResult(out)
	}

	pipelineType, err := domain.ParsePipelineType(rawType)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := t.pipelines.Get(ctx, domain.PipelineKey{
		OwnerID:  owner,
		Type:     pipelineType,
		ResumeID: req.GetString("resume_id", ""),
	})
	if err != nil {
		return t.failure("pipeline_progress", err), nil
	}
	return jsonResult(p.Progress())
}

func (t *Tools) InterviewSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := req.RequireString("owner_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	session, err := t.interviews.Get(ctx, owner, sessionID)
	if err != nil {
		return t.failure("interview_summary", err), nil
	}
	return jsonResult(struct {
		domain.SessionSummary
		Performance *domain.PerformanceSummary `json:"performance,omitempty"`
	}{session.Summary(), session.Performance})
}

func (t *Tools) RunOrchestration(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resumeID, err := req.RequireString("resume_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := t.orchestrator.RunByResumeID(ctx, resumeID)
	if err != nil {
		return t.failure("run_orchestration", err), nil
	}
	return jsonResult(report)
}

// failure turns domain errors into tool errors so the client sees them as
// results rather than protocol faults.
func (t *Tools) failure(tool string, err error) *mcp.CallToolResult {
	t.logger.Warn("mcp_tool_failed", zap.String("tool", tool), zap.Error(err))
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", tool, err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
