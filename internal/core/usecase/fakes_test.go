package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

var fixedNow = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type resumeRepoFake struct {
	mu          sync.Mutex
	resumes     map[string]*domain.Resume
	statusCalls []domain.ResumeStatus
	appendErr   error
	statusErr   error
}

func newResumeRepoFake(resumes ...*domain.Resume) *resumeRepoFake {
	f := &resumeRepoFake{resumes: map[string]*domain.Resume{}}
	for _, r := range resumes {
		f.resumes[r.ID] = r
	}
	return f
}

func (f *resumeRepoFake) Create(_ context.Context, r *domain.Resume) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copyResume := *r
	f.resumes[r.ID] = &copyResume
	return nil
}

func (f *resumeRepoFake) GetByID(_ context.Context, id string) (*domain.Resume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resumes[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get resume", fmt.Errorf("resume %s", id))
	}
	copyResume := *r
	copyResume.TailoredVersions = append([]domain.TailoredVersion(nil), r.TailoredVersions...)
	return &copyResume, nil
}

func (f *resumeRepoFake) ListByOwner(_ context.Context, ownerID string) ([]domain.Resume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Resume{}
	for _, r := range f.resumes {
		if r.OwnerID == ownerID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *resumeRepoFake) UpdateStatus(_ context.Context, id string, status domain.ResumeStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, status)
	if f.statusErr != nil {
		return f.statusErr
	}
	r, ok := f.resumes[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Status = status
	if errMessage != "" {
		r.ProcessingErrors = append(r.ProcessingErrors, errMessage)
	}
	return nil
}

func (f *resumeRepoFake) SaveParsedText(_ context.Context, id, text, summary string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resumes[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.OriginalText = text
	r.ParsedSummary = summary
	return nil
}

func (f *resumeRepoFake) AppendTailoredVersion(_ context.Context, id string, v domain.TailoredVersion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	r, ok := f.resumes[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.TailoredVersions = append(r.TailoredVersions, v)
	return nil
}

func (f *resumeRepoFake) get(id string) *domain.Resume {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resumes[id]
}

type interviewRepoFake struct {
	mu        sync.Mutex
	sessions  map[string]domain.InterviewSession
	createErr error
	updates   int
}

func newInterviewRepoFake() *interviewRepoFake {
	return &interviewRepoFake{sessions: map[string]domain.InterviewSession{}}
}

func cloneSession(s domain.InterviewSession) domain.InterviewSession {
	s.Questions = append([]domain.Question(nil), s.Questions...)
	return s
}

func (f *interviewRepoFake) Create(_ context.Context, s *domain.InterviewSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.sessions[s.ID] = cloneSession(*s)
	return nil
}

func (f *interviewRepoFake) GetByID(_ context.Context, id string) (*domain.InterviewSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get session", fmt.Errorf("session %s", id))
	}
	out := cloneSession(s)
	return &out, nil
}

func (f *interviewRepoFake) Update(_ context.Context, s *domain.InterviewSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.sessions[s.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Status.Terminal() {
		return domain.WrapError(domain.ErrInvalidState, "update session", fmt.Errorf("session %s is already %s", s.ID, stored.Status))
	}
	f.updates++
	f.sessions[s.ID] = cloneSession(*s)
	return nil
}

func (f *interviewRepoFake) ListByOwner(_ context.Context, ownerID string) ([]domain.InterviewSession, error) {
	return f.filter(func(s domain.InterviewSession) bool { return s.OwnerID == ownerID }), nil
}

func (f *interviewRepoFake) ListByResume(_ context.Context, resumeID string) ([]domain.InterviewSession, error) {
	return f.filter(func(s domain.InterviewSession) bool { return s.ResumeID == resumeID }), nil
}

func (f *interviewRepoFake) filter(keep func(domain.InterviewSession) bool) []domain.InterviewSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.InterviewSession{}
	for _, s := range f.sessions {
		if keep(s) {
			out = append(out, cloneSession(s))
		}
	}
	return out
}

func (f *interviewRepoFake) byType(t domain.InterviewType) []domain.InterviewSession {
	return f.filter(func(s domain.InterviewSession) bool { return s.Type == t })
}

// pipelineStoreFake merges stages under a mutex, like the in-memory store.
type pipelineStoreFake struct {
	mu        sync.Mutex
	pipelines map[domain.PipelineKey]*domain.Pipeline
	mergeErr  error
}

func newPipelineStoreFake() *pipelineStoreFake {
	return &pipelineStoreFake{pipelines: map[domain.PipelineKey]*domain.Pipeline{}}
}

func (f *pipelineStoreFake) Ensure(_ context.Context, seed *domain.Pipeline) (*domain.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pipelines[seed.Key]
	if !ok {
		p = seed
		f.pipelines[seed.Key] = p
	}
	out := *p
	return &out, nil
}

func (f *pipelineStoreFake) Get(_ context.Context, key domain.PipelineKey) (*domain.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pipelines[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := domain.Pipeline{ID: p.ID, Key: p.Key, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
	out.ApplyStageFlags(p.StageFlags())
	return &out, nil
}

func (f *pipelineStoreFake) ListByOwner(_ context.Context, ownerID string) ([]domain.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Pipeline{}
	for k, p := range f.pipelines {
		if k.OwnerID == ownerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *pipelineStoreFake) MergeStage(_ context.Context, seed *domain.Pipeline, stage string, value bool) (*domain.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mergeErr != nil {
		return nil, f.mergeErr
	}
	p, ok := f.pipelines[seed.Key]
	if !ok {
		p = seed
		f.pipelines[seed.Key] = p
	}
	p.ApplyStageFlags(map[string]bool{stage: value})
	out := domain.Pipeline{ID: p.ID, Key: p.Key}
	out.ApplyStageFlags(p.StageFlags())
	return &out, nil
}

func (f *pipelineStoreFake) flags(key domain.PipelineKey) map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pipelines[key]
	if !ok {
		return map[string]bool{}
	}
	return p.StageFlags()
}

type gatewayFake struct {
	mu            sync.Mutex
	tailorErr     error
	questionErrs  map[domain.InterviewType]error
	evaluateErrAt map[string]bool
	nonVerbalErr  error
	score         float64
	block         bool
	calls         map[string]int
}

func newGatewayFake() *gatewayFake {
	return &gatewayFake{
		questionErrs:  map[domain.InterviewType]error{},
		evaluateErrAt: map[string]bool{},
		score:         9,
		calls:         map[string]int{},
	}
}

func (f *gatewayFake) count(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *gatewayFake) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *gatewayFake) Tailor(ctx context.Context, req domain.TailorRequest) (domain.TailoredContent, error) {
	f.count("tailor")
	if f.block {
		<-ctx.Done()
		return domain.TailoredContent{}, ctx.Err()
	}
	if f.tailorErr != nil {
		return domain.TailoredContent{}, f.tailorErr
	}
	return domain.TailoredContent{Summary: "tailored", MatchScore: 82, OptimizedText: "optimized " + req.JobDescription}, nil
}

func (f *gatewayFake) GenerateQuestions(_ context.Context, req domain.QuestionRequest) ([]domain.Question, error) {
	f.count("questions")
	if err := f.questionErrs[req.InterviewType]; err != nil {
		return nil, err
	}
	out := make([]domain.Question, req.Count)
	for i := range out {
		out[i] = domain.Question{
			Text:             fmt.Sprintf("%s question %d", req.InterviewType, i),
			Category:         string(req.InterviewType),
			Difficulty:       domain.DifficultyMedium,
			ExpectedKeywords: []string{"impact"},
			ModelAnswer:      fmt.Sprintf("model answer %d", i),
		}
	}
	return out, nil
}

func (f *gatewayFake) EvaluateResponse(_ context.Context, req domain.EvaluationRequest) (domain.Evaluation, error) {
	f.count("evaluate")
	if f.evaluateErrAt[req.Question] {
		return domain.Evaluation{}, errors.New("model overloaded")
	}
	return domain.Evaluation{OverallScore: f.score, Feedback: "ok"}, nil
}

func (f *gatewayFake) AnalyzeNonVerbal(context.Context, domain.NonVerbalInput) (domain.NonVerbalEvaluation, error) {
	f.count("nonverbal")
	if f.nonVerbalErr != nil {
		return domain.NonVerbalEvaluation{}, f.nonVerbalErr
	}
	return domain.NonVerbalEvaluation{OverallScore: 8, Confidence: 8}, nil
}

type catalogFake struct{}

func (catalogFake) GenericJobDescription() string { return "generic software role" }
func (catalogFake) InterviewJobDescription(t domain.InterviewType) string {
	return string(t) + " role"
}
func (catalogFake) TemplateType() string { return "modern" }

type observerFake struct {
	mu       sync.Mutex
	started  int
	finished []*domain.RunReport
}

func (o *observerFake) RunStarted() {
	o.mu.Lock()
	o.started++
	o.mu.Unlock()
}

func (o *observerFake) RunFinished(r *domain.RunReport) {
	o.mu.Lock()
	o.finished = append(o.finished, r)
	o.mu.Unlock()
}
