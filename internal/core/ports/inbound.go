package ports

import (
	"context"
	"io"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

// ResumeIngestor is the inbound contract for resume upload.
type ResumeIngestor interface {
	Upload(ctx context.Context, ownerID, filename, mimeType string, body io.Reader) (*domain.Resume, error)
}

// ResumeReader is the inbound read model for resume state.
type ResumeReader interface {
	GetByID(ctx context.Context, id string) (*domain.Resume, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Resume, error)
}

// ResumeProcessor is the inbound contract for asynchronous resume processing.
type ResumeProcessor interface {
	ProcessByID(ctx context.Context, resumeID string) error
}

// ResumeTailor is the inbound contract for on-demand tailoring.
type ResumeTailor interface {
	Tailor(ctx context.Context, cmd domain.TailorCommand) (*domain.TailoredVersion, error)
}

// Orchestrator drives one resume through every automated stage.
type Orchestrator interface {
	RunByResumeID(ctx context.Context, resumeID string) (*domain.RunReport, error)
}

// RunTrigger schedules an orchestration run off the request path.
type RunTrigger interface {
	Trigger(ctx context.Context, ownerID, resumeID string) error
}

// InterviewService is the inbound contract for interactive sessions.
type InterviewService interface {
	Create(ctx context.Context, cmd domain.CreateInterviewCommand) (*domain.InterviewSession, error)
	Get(ctx context.Context, ownerID, sessionID string) (*domain.InterviewSession, error)
	List(ctx context.Context, ownerID string) ([]domain.SessionSummary, error)
	Start(ctx context.Context, ownerID, sessionID string) (*domain.InterviewSession, error)
	Submit(ctx context.Context, cmd domain.SubmitResponseCommand) (*domain.Question, domain.InterviewType, error)
	End(ctx context.Context, ownerID, sessionID string) (*domain.InterviewSession, error)
	Cancel(ctx context.Context, ownerID, sessionID string) (*domain.InterviewSession, error)
}

// PipelineTracker is the inbound contract for stage flags and progress.
type PipelineTracker interface {
	Create(ctx context.Context, key domain.PipelineKey) (*domain.Pipeline, error)
	SetStage(ctx context.Context, key domain.PipelineKey, stage domain.Stage, value bool) (*domain.Pipeline, error)
	SetCollaboratorStage(ctx context.Context, key domain.PipelineKey, stage domain.CollaboratorStage, value bool) (*domain.Pipeline, error)
	Get(ctx context.Context, key domain.PipelineKey) (*domain.Pipeline, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Pipeline, error)
}
