package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
	"github.com/Phani130825/ask-a-coach/internal/core/ports"
)

const maxQuestionCount = 20

type InterviewOptions struct {
	DefaultQuestionCount int
	GatewayTimeout       time.Duration
	CountPolicy          domain.CountPolicy
}

// InterviewUseCase drives sessions on behalf of a live candidate. Calls that
// touch the same session are serialized within the process.
type InterviewUseCase struct {
	repo    ports.InterviewRepository
	resumes ports.ResumeRepository
	tracker ports.PipelineTracker
	gateway gatewayCaller
	catalog ports.JobCatalog
	logger  *zap.Logger
	now     Clock
	locks   *keyedMutex
	opts    InterviewOptions
}

func NewInterviewUseCase(
	repo ports.InterviewRepository,
	resumes ports.ResumeRepository,
	tracker ports.PipelineTracker,
	gateway ports.AIGateway,
	catalog ports.JobCatalog,
	logger *zap.Logger,
	clock Clock,
	opts InterviewOptions,
) *InterviewUseCase {
	if opts.DefaultQuestionCount <= 0 {
		opts.DefaultQuestionCount = defaultQuestionsPerType
	}
	if opts.CountPolicy == "" {
		opts.CountPolicy = domain.CountEverySubmission
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InterviewUseCase{
		repo:    repo,
		resumes: resumes,
		tracker: tracker,
		gateway: newGatewayCaller(gateway, opts.GatewayTimeout),
		catalog: catalog,
		logger:  logger,
		now:     clockOrDefault(clock),
		locks:   newKeyedMutex(),
		opts:    opts,
	}
}

func (uc *InterviewUseCase) Create(ctx context.Context, cmd domain.CreateInterviewCommand) (*domain.InterviewSession, error) {
	if err := validateCreate(&cmd, uc.opts.DefaultQuestionCount); err != nil {
		return nil, err
	}

	resumeText := ""
	if cmd.ResumeID != "" {
		resume, err := uc.ownedResume(ctx, cmd.OwnerID, cmd.ResumeID)
		if err != nil {
			return nil, err
		}
		resumeText = resume.OriginalText
	}
	jd := strings.TrimSpace(cmd.JobDescription)
	if jd == "" {
		jd = uc.catalog.InterviewJobDescription(cmd.Type)
	}

	questions, err := uc.gateway.generateQuestions(ctx, domain.QuestionRequest{
		ResumeText:     resumeText,
		JobDescription: jd,
		InterviewType:  cmd.Type,
		Count:          cmd.QuestionCount,
	})
	if err != nil {
		return nil, err
	}

	session, err := domain.NewInterviewSession(domain.NewSessionParams{
		ID:             uuid.NewString(),
		OwnerID:        cmd.OwnerID,
		ResumeID:       cmd.ResumeID,
		Type:           cmd.Type,
		JobDescription: jd,
		Questions:      questions,
	}, uc.now())
	if err != nil {
		return nil, err
	}
	if err := uc.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create interview session: %w", err)
	}
	uc.markStage(ctx, session, domain.StageInterview)
	return session, nil
}

func validateCreate(cmd *domain.CreateInterviewCommand, defaultCount int) error {
	if strings.TrimSpace(cmd.OwnerID) == "" {
		return domain.WrapError(domain.ErrValidation, "create interview", errors.New("owner id is required"))
	}
	t, err := domain.ParseInterviewType(string(cmd.Type))
	if err != nil {
		return err
	}
	cmd.Type = t
	if cmd.QuestionCount == 0 {
		cmd.QuestionCount = defaultCount
	}
	if cmd.QuestionCount < 1 || cmd.QuestionCount > maxQuestionCount {
		return domain.WrapError(domain.ErrValidation, "create interview", fmt.Errorf("question count must be within [1,%d]", maxQuestionCount))
	}
	return nil
}

func (uc *InterviewUseCase) Get(ctx context.Context, ownerID, sessionID string) (*domain.InterviewSession, error) {
	return uc.ownedSession(ctx, ownerID, sessionID)
}

func (uc *InterviewUseCase) List(ctx context.Context, ownerID string) ([]domain.SessionSummary, error) {
	sessions, err := uc.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list interview sessions: %w", err)
	}
	out := make([]domain.SessionSummary, 0, len(sessions))
	for i := range sessions {
		out = append(out, sessions[i].Summary())
	}
	return out, nil
}

func (uc *InterviewUseCase) Start(ctx context.Context, ownerID, sessionID string) (*domain.InterviewSession, error) {
	return uc.transition(ctx, ownerID, sessionID, func(s *domain.InterviewSession) error {
		return s.Start(uc.now())
	})
}

// Submit validates the submission, evaluates it through the gateway and
// records the result. Nothing is recorded when any gateway call fails. The
// session's interview type comes back whenever the session could be
// loaded, failures included.
func (uc *InterviewUseCase) Submit(ctx context.Context, cmd domain.SubmitResponseCommand) (*domain.Question, domain.InterviewType, error) {
	unlock := uc.locks.Lock(cmd.SessionID)
	defer unlock()

	session, err := uc.ownedSession(ctx, cmd.OwnerID, cmd.SessionID)
	if err != nil {
		return nil, "", err
	}
	if err := session.CheckSubmission(cmd.Index); err != nil {
		return nil, session.Type, err
	}
	if strings.TrimSpace(cmd.Response.Text) == "" {
		return nil, session.Type, domain.WrapError(domain.ErrValidation, "submit response", errors.New("response text is required"))
	}

	eval, nv, err := uc.gateway.evaluateAnswer(ctx, session, cmd.Index, cmd.Response, cmd.NonVerbal)
	if err != nil {
		return nil, session.Type, err
	}
	if err := session.RecordResponse(cmd.Index, cmd.Response, eval, nv, uc.opts.CountPolicy, uc.now()); err != nil {
		return nil, session.Type, err
	}
	if err := uc.repo.Update(ctx, session); err != nil {
		return nil, session.Type, fmt.Errorf("save interview session: %w", err)
	}
	q := session.Questions[cmd.Index]
	return &q, session.Type, nil
}

func (uc *InterviewUseCase) End(ctx context.Context, ownerID, sessionID string) (*domain.InterviewSession, error) {
	session, err := uc.transition(ctx, ownerID, sessionID, func(s *domain.InterviewSession) error {
		return s.End(uc.now())
	})
	if err != nil {
		return nil, err
	}
	uc.markStage(ctx, session, domain.StageAnalytics)
	return session, nil
}

func (uc *InterviewUseCase) Cancel(ctx context.Context, ownerID, sessionID string) (*domain.InterviewSession, error) {
	return uc.transition(ctx, ownerID, sessionID, func(s *domain.InterviewSession) error {
		return s.Cancel(uc.now())
	})
}

func (uc *InterviewUseCase) transition(ctx context.Context, ownerID, sessionID string, apply func(*domain.InterviewSession) error) (*domain.InterviewSession, error) {
	unlock := uc.locks.Lock(sessionID)
	defer unlock()

	session, err := uc.ownedSession(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := apply(session); err != nil {
		return nil, err
	}
	if err := uc.repo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("save interview session: %w", err)
	}
	return session, nil
}

func (uc *InterviewUseCase) ownedSession(ctx context.Context, ownerID, sessionID string) (*domain.InterviewSession, error) {
	session, err := uc.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch interview session: %w", err)
	}
	if session.OwnerID != ownerID {
		return nil, domain.WrapError(domain.ErrNotFound, "fetch interview session", fmt.Errorf("session %s", sessionID))
	}
	return session, nil
}

func (uc *InterviewUseCase) ownedResume(ctx context.Context, ownerID, resumeID string) (*domain.Resume, error) {
	resume, err := uc.resumes.GetByID(ctx, resumeID)
	if err != nil {
		return nil, fmt.Errorf("fetch resume: %w", err)
	}
	if resume.OwnerID != ownerID {
		return nil, domain.WrapError(domain.ErrNotFound, "fetch resume", fmt.Errorf("resume %s", resumeID))
	}
	return resume, nil
}

// markStage keeps the interview pipeline in step with sessions tied to a
// resume. Tracker failures are logged; the session change already happened.
func (uc *InterviewUseCase) markStage(ctx context.Context, session *domain.InterviewSession, stage domain.Stage) {
	if session.ResumeID == "" || uc.tracker == nil {
		return
	}
	key := domain.PipelineKey{OwnerID: session.OwnerID, Type: domain.PipelineInterview, ResumeID: session.ResumeID}
	if _, err := uc.tracker.SetStage(ctx, key, stage, true); err != nil {
		uc.logger.Warn("interview_stage_write_failed",
			zap.String("session_id", session.ID),
			zap.String("stage", string(stage)),
			zap.Error(err),
		)
	}
}
