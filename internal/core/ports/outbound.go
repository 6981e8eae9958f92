package ports

import (
	"context"
	"io"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

// ResumeRepository persists and reads resume state.
type ResumeRepository interface {
	Create(ctx context.Context, resume *domain.Resume) error
	GetByID(ctx context.Context, id string) (*domain.Resume, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Resume, error)
	UpdateStatus(ctx context.Context, id string, status domain.ResumeStatus, errMessage string) error
	SaveParsedText(ctx context.Context, id, originalText, parsedSummary string) error
	// AppendTailoredVersion adds one version without rewriting earlier ones.
	AppendTailoredVersion(ctx context.Context, id string, version domain.TailoredVersion) error
}

// InterviewRepository persists interview sessions as whole documents.
type InterviewRepository interface {
	Create(ctx context.Context, session *domain.InterviewSession) error
	GetByID(ctx context.Context, id string) (*domain.InterviewSession, error)
	Update(ctx context.Context, session *domain.InterviewSession) error
	ListByOwner(ctx context.Context, ownerID string) ([]domain.InterviewSession, error)
	ListByResume(ctx context.Context, resumeID string) ([]domain.InterviewSession, error)
}

// PipelineStore keeps stage flags per pipeline key. MergeStage must be an
// atomic upsert that touches a single flag; concurrent merges on the same
// record may never lose each other's writes.
type PipelineStore interface {
	Ensure(ctx context.Context, pipeline *domain.Pipeline) (*domain.Pipeline, error)
	Get(ctx context.Context, key domain.PipelineKey) (*domain.Pipeline, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Pipeline, error)
	MergeStage(ctx context.Context, seed *domain.Pipeline, stage string, value bool) (*domain.Pipeline, error)
}

// AIGateway is the natural-language generation and evaluation collaborator.
// A failed call returns an error and no partial result.
type AIGateway interface {
	Tailor(ctx context.Context, req domain.TailorRequest) (domain.TailoredContent, error)
	GenerateQuestions(ctx context.Context, req domain.QuestionRequest) ([]domain.Question, error)
	EvaluateResponse(ctx context.Context, req domain.EvaluationRequest) (domain.Evaluation, error)
	AnalyzeNonVerbal(ctx context.Context, input domain.NonVerbalInput) (domain.NonVerbalEvaluation, error)
}

// ObjectStorage stores uploaded resume files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes resume ingestion events.
type MessageQueue interface {
	PublishResumeIngested(ctx context.Context, resumeID string) error
	SubscribeResumeIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored resume file.
type TextExtractor interface {
	Extract(ctx context.Context, resume *domain.Resume) (string, error)
}

// JobCatalog supplies the job descriptions used by automated runs.
type JobCatalog interface {
	GenericJobDescription() string
	InterviewJobDescription(t domain.InterviewType) string
	TemplateType() string
}

// JobPostingFetcher turns a job posting URL into plain description text.
type JobPostingFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// AnswerSource produces candidate answers for automated sessions.
type AnswerSource interface {
	Answer(ctx context.Context, session *domain.InterviewSession, index int) (domain.RawResponse, *domain.NonVerbalInput, error)
}

// RunObserver records orchestration telemetry.
type RunObserver interface {
	RunStarted()
	RunFinished(report *domain.RunReport)
}
