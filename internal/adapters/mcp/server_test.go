package mcpadapter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
	"github.com/Phani130825/ask-a-coach/internal/core/ports"
)

type trackerFake struct {
	ports.PipelineTracker
	pipeline *domain.Pipeline
}

func (f trackerFake) Get(_ context.Context, key domain.PipelineKey) (*domain.Pipeline, error) {
	if f.pipeline == nil || f.pipeline.Key != key {
		return nil, domain.WrapError(domain.ErrNotFound, "get pipeline", errors.New(key.String()))
	}
	return f.pipeline, nil
}

func (f trackerFake) ListByOwner(context.Context, string) ([]domain.Pipeline, error) {
	if f.pipeline == nil {
		return nil, nil
	}
	return []domain.Pipeline{*f.pipeline}, nil
}

type interviewsFake struct {
	ports.InterviewService
	session *domain.InterviewSession
}

func (f interviewsFake) Get(_ context.Context, ownerID, sessionID string) (*domain.InterviewSession, error) {
	if f.session == nil || f.session.OwnerID != ownerID || f.session.ID != sessionID {
		return nil, domain.WrapError(domain.ErrNotFound, "get session", errors.New(sessionID))
	}
	return f.session, nil
}

type orchestratorFake struct {
	err error
}

func (f orchestratorFake) RunByResumeID(_ context.Context, resumeID string) (*domain.RunReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.RunReport{RunID: "run-1", ResumeID: resumeID}, nil
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("expected tool content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func newTestTools(orchErr error) *Tools {
	key := domain.PipelineKey{OwnerID: "user-1", Type: domain.PipelineInterview, ResumeID: "resume-1"}
	p := domain.NewPipeline("pipeline-1", key, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	p.ApplyStageFlags(map[string]bool{"uploaded": true, "interview": true})
	return NewTools(
		trackerFake{pipeline: p},
		interviewsFake{session: &domain.InterviewSession{ID: "session-1", OwnerID: "user-1", Type: domain.InterviewHR, Status: domain.InterviewCompleted}},
		orchestratorFake{err: orchErr},
		nil,
	)
}

func TestPipelineProgressTool(t *testing.T) {
	tools := newTestTools(nil)

	res, err := tools.PipelineProgress(context.Background(), callRequest(map[string]any{
		"owner_id": "user-1", "pipeline_type": "interview", "resume_id": "resume-1",
	}))
	if err != nil {
		t.Fatalf("PipelineProgress() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if text := resultText(t, res); !strings.Contains(text, `"percent": 33`) {
		t.Fatalf("expected 2 of 6 stages done, got %s", text)
	}

	res, err = tools.PipelineProgress(context.Background(), callRequest(map[string]any{"owner_id": "user-1"}))
	if err != nil || res.IsError {
		t.Fatalf("list progress failed: %v", err)
	}

	res, _ = tools.PipelineProgress(context.Background(), callRequest(map[string]any{}))
	if !res.IsError {
		t.Fatalf("expected tool error without owner_id")
	}
}

func TestInterviewSummaryTool(t *testing.T) {
	tools := newTestTools(nil)

	res, err := tools.InterviewSummary(context.Background(), callRequest(map[string]any{"owner_id": "user-1", "session_id": "session-1"}))
	if err != nil {
		t.Fatalf("InterviewSummary() error = %v", err)
	}
	if text := resultText(t, res); !strings.Contains(text, `"interview_type": "hr"`) {
		t.Fatalf("unexpected summary %s", text)
	}

	res, _ = tools.InterviewSummary(context.Background(), callRequest(map[string]any{"owner_id": "user-2", "session_id": "session-1"}))
	if !res.IsError {
		t.Fatalf("expected tool error for another owner's session")
	}
}

func TestRunOrchestrationTool(t *testing.T) {
	res, err := newTestTools(nil).RunOrchestration(context.Background(), callRequest(map[string]any{"resume_id": "resume-9"}))
	if err != nil {
		t.Fatalf("RunOrchestration() error = %v", err)
	}
	if text := resultText(t, res); !strings.Contains(text, `"resume_id": "resume-9"`) {
		t.Fatalf("unexpected report %s", text)
	}

	failing := newTestTools(domain.WrapError(domain.ErrInvalidState, "run", errors.New("not parsed")))
	res, _ = failing.RunOrchestration(context.Background(), callRequest(map[string]any{"resume_id": "resume-9"}))
	if !res.IsError {
		t.Fatalf("expected tool error when the run cannot start")
	}
}

func TestServerRegistersTools(t *testing.T) {
	if newTestTools(nil).Server() == nil {
		t.Fatalf("expected server")
	}
}
