package httpadapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type ingestFake struct {
	mu    sync.Mutex
	owner string
	body  string
	mime  string
	err   error
}

func (f *ingestFake) Upload(_ context.Context, ownerID, filename, mimeType string, body io.Reader) (*domain.Resume, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.owner, f.body, f.mime = ownerID, string(raw), mimeType
	f.mu.Unlock()
	return &domain.Resume{ID: "resume-1", OwnerID: ownerID, Filename: filename, Status: domain.ResumeUploaded, CreatedAt: testNow, UpdatedAt: testNow}, nil
}

type resumeReaderFake struct {
	resumes map[string]*domain.Resume
}

func (f resumeReaderFake) GetByID(_ context.Context, id string) (*domain.Resume, error) {
	r, ok := f.resumes[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get resume", errors.New(id))
	}
	return r, nil
}

func (f resumeReaderFake) ListByOwner(_ context.Context, ownerID string) ([]domain.Resume, error) {
	out := make([]domain.Resume, 0)
	for _, r := range f.resumes {
		if r.OwnerID == ownerID {
			out = append(out, *r)
		}
	}
	return out, nil
}

type tailorFake struct {
	cmd domain.TailorCommand
	err error
}

func (f *tailorFake) Tailor(_ context.Context, cmd domain.TailorCommand) (*domain.TailoredVersion, error) {
	f.cmd = cmd
	if f.err != nil {
		return nil, f.err
	}
	return &domain.TailoredVersion{JobDescription: cmd.JobDescription, CreatedAt: testNow}, nil
}

type triggerFake struct {
	calls []string
	err   error
}

func (f *triggerFake) Trigger(_ context.Context, ownerID, resumeID string) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, ownerID+"/"+resumeID)
	return nil
}

type interviewFake struct {
	session   *domain.InterviewSession
	summaries []domain.SessionSummary
	submitted []domain.SubmitResponseCommand
	gets      int
	err       error
}

func (f *interviewFake) result(ownerID string) (*domain.InterviewSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.session == nil || f.session.OwnerID != ownerID {
		return nil, domain.WrapError(domain.ErrNotFound, "get session", errors.New("missing"))
	}
	return f.session, nil
}

func (f *interviewFake) Create(_ context.Context, cmd domain.CreateInterviewCommand) (*domain.InterviewSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.InterviewSession{ID: "session-1", OwnerID: cmd.OwnerID, Type: cmd.Type, Status: domain.InterviewScheduled}, nil
}

func (f *interviewFake) Get(_ context.Context, ownerID, _ string) (*domain.InterviewSession, error) {
	f.gets++
	return f.result(ownerID)
}

func (f *interviewFake) List(context.Context, string) ([]domain.SessionSummary, error) {
	return f.summaries, f.err
}

func (f *interviewFake) Start(_ context.Context, ownerID, _ string) (*domain.InterviewSession, error) {
	return f.result(ownerID)
}

func (f *interviewFake) Submit(_ context.Context, cmd domain.SubmitResponseCommand) (*domain.Question, domain.InterviewType, error) {
	var interviewType domain.InterviewType
	if f.session != nil {
		interviewType = f.session.Type
	}
	if f.err != nil {
		return nil, interviewType, f.err
	}
	f.submitted = append(f.submitted, cmd)
	return &domain.Question{Text: "q", Response: &domain.Response{Text: cmd.Response.Text}}, interviewType, nil
}

func (f *interviewFake) End(_ context.Context, ownerID, _ string) (*domain.InterviewSession, error) {
	return f.result(ownerID)
}

func (f *interviewFake) Cancel(_ context.Context, ownerID, _ string) (*domain.InterviewSession, error) {
	return f.result(ownerID)
}

type trackerFake struct {
	mu        sync.Mutex
	pipelines map[domain.PipelineKey]*domain.Pipeline
}

func newTrackerFake() *trackerFake {
	return &trackerFake{pipelines: make(map[domain.PipelineKey]*domain.Pipeline)}
}

func (f *trackerFake) Create(_ context.Context, key domain.PipelineKey) (*domain.Pipeline, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pipelines[key]
	if !ok {
		p = domain.NewPipeline("pipeline-"+string(key.Type), key, testNow)
		f.pipelines[key] = p
	}
	return p, nil
}

func (f *trackerFake) SetStage(ctx context.Context, key domain.PipelineKey, stage domain.Stage, value bool) (*domain.Pipeline, error) {
	return f.set(ctx, key, string(stage), value)
}

func (f *trackerFake) SetCollaboratorStage(ctx context.Context, key domain.PipelineKey, stage domain.CollaboratorStage, value bool) (*domain.Pipeline, error) {
	parsed, err := domain.ParseCollaboratorStage(string(stage))
	if err != nil {
		return nil, err
	}
	return f.set(ctx, key, string(parsed), value)
}

func (f *trackerFake) set(ctx context.Context, key domain.PipelineKey, stage string, value bool) (*domain.Pipeline, error) {
	p, err := f.Create(ctx, key)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	flags := p.StageFlags()
	flags[stage] = value
	p.ApplyStageFlags(flags)
	return p, nil
}

func (f *trackerFake) Get(_ context.Context, key domain.PipelineKey) (*domain.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pipelines[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get pipeline", errors.New(key.String()))
	}
	return p, nil
}

func (f *trackerFake) ListByOwner(_ context.Context, ownerID string) ([]domain.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Pipeline, 0)
	for k, p := range f.pipelines {
		if k.OwnerID == ownerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type testDeps struct {
	ingest     *ingestFake
	tailor     *tailorFake
	trigger    *triggerFake
	interviews *interviewFake
	tracker    *trackerFake
}

func newTestDeps() testDeps {
	return testDeps{
		ingest:     &ingestFake{},
		tailor:     &tailorFake{},
		trigger:    &triggerFake{},
		interviews: &interviewFake{},
		tracker:    newTrackerFake(),
	}
}

func (d testDeps) handler(t *testing.T, opts Options) http.Handler {
	t.Helper()
	h, err := NewRouter(Deps{
		Ingest: d.ingest,
		Resumes: resumeReaderFake{resumes: map[string]*domain.Resume{
			"resume-1": {ID: "resume-1", OwnerID: "user-1", Status: domain.ResumeParsed},
		}},
		Tailor:     d.tailor,
		Trigger:    d.trigger,
		Interviews: d.interviews,
		Pipelines:  d.tracker,
	}, opts).Handler()
	if err != nil {
		t.Fatalf("Handler() error = %v", err)
	}
	return h
}
