package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
	"github.com/Phani130825/ask-a-coach/internal/core/ports"
)

const defaultQuestionsPerType = 5

type OrchestratorOptions struct {
	QuestionsPerType   int
	InterviewTypes     []domain.InterviewType
	ParallelInterviews bool
	GatewayTimeout     time.Duration
	CountPolicy        domain.CountPolicy
}

type OrchestratorDeps struct {
	Resumes    ports.ResumeRepository
	Interviews ports.InterviewRepository
	Tracker    ports.PipelineTracker
	Gateway    ports.AIGateway
	Catalog    ports.JobCatalog
	Answers    ports.AnswerSource
	Observer   ports.RunObserver
	Logger     *zap.Logger
	Clock      Clock
}

// OrchestrateResumeUseCase tailors a parsed resume and runs one automated
// interview per type. Sub-stage failures are isolated and reported; they
// never abort the run.
type OrchestrateResumeUseCase struct {
	resumes    ports.ResumeRepository
	interviews ports.InterviewRepository
	tracker    ports.PipelineTracker
	gateway    gatewayCaller
	catalog    ports.JobCatalog
	answers    ports.AnswerSource
	observer   ports.RunObserver
	logger     *zap.Logger
	tracer     trace.Tracer
	now        Clock
	opts       OrchestratorOptions
}

func NewOrchestrateResumeUseCase(deps OrchestratorDeps, opts OrchestratorOptions) *OrchestrateResumeUseCase {
	if opts.QuestionsPerType <= 0 {
		opts.QuestionsPerType = defaultQuestionsPerType
	}
	if len(opts.InterviewTypes) == 0 {
		opts.InterviewTypes = domain.InterviewTypes
	}
	if opts.CountPolicy == "" {
		opts.CountPolicy = domain.CountEverySubmission
	}
	answers := deps.Answers
	if answers == nil {
		answers = SyntheticAnswers{}
	}
	observer := deps.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrchestrateResumeUseCase{
		resumes:    deps.Resumes,
		interviews: deps.Interviews,
		tracker:    deps.Tracker,
		gateway:    newGatewayCaller(deps.Gateway, opts.GatewayTimeout),
		catalog:    deps.Catalog,
		answers:    answers,
		observer:   observer,
		logger:     logger,
		tracer:     otel.Tracer("github.com/Phani130825/ask-a-coach/orchestrator"),
		now:        clockOrDefault(deps.Clock),
		opts:       opts,
	}
}

// RunByResumeID returns an error only when the run cannot begin at all
// (missing or unparsed resume). Everything after that lands in the report.
func (uc *OrchestrateResumeUseCase) RunByResumeID(ctx context.Context, resumeID string) (*domain.RunReport, error) {
	resume, err := uc.loadResume(ctx, resumeID)
	if err != nil {
		return nil, err
	}
	if err := checkOrchestrationReady(resume); err != nil {
		return nil, err
	}

	ctx, span := uc.tracer.Start(ctx, "orchestrator.run", trace.WithAttributes(
		attribute.String("resume.id", resume.ID),
		attribute.String("owner.id", resume.OwnerID),
	))
	defer span.End()

	uc.observer.RunStarted()
	rb := newReportBuilder(uuid.NewString(), resume, uc.now())
	log := uc.logger.With(zap.String("run_id", rb.report.RunID), zap.String("resume_id", resume.ID))
	log.Info("orchestration_started")

	key := domain.PipelineKey{OwnerID: resume.OwnerID, Type: domain.PipelineInterview, ResumeID: resume.ID}
	if _, err := uc.tracker.Create(ctx, key); err != nil {
		log.Warn("orchestration_pipeline_create_failed", zap.Error(err))
	}
	uc.advanceResume(ctx, resume, domain.ResumeAnalyzing, "", log)

	uc.runTailoring(ctx, resume, key, rb, log)
	uc.runInterviews(ctx, resume, key, rb, log)

	report := rb.finish(uc.now())
	if report.Productive() {
		uc.advanceResume(ctx, resume, domain.ResumeAnalyzed, "", log)
	} else {
		uc.advanceResume(ctx, resume, domain.ResumeError, "orchestration produced no results", log)
		span.SetStatus(codes.Error, "no stage produced a result")
	}
	uc.observer.RunFinished(report)

	log.Info("orchestration_finished",
		zap.Int("succeeded", report.Count(domain.OutcomeSucceeded)),
		zap.Int("failed", report.Count(domain.OutcomeFailed)),
		zap.Int("skipped", report.Count(domain.OutcomeSkipped)),
		zap.Strings("session_ids", report.SessionIDs),
	)
	return report, nil
}

func (uc *OrchestrateResumeUseCase) loadResume(ctx context.Context, resumeID string) (*domain.Resume, error) {
	resume, err := uc.resumes.GetByID(ctx, resumeID)
	if err != nil {
		return nil, fmt.Errorf("fetch resume by id: %w", err)
	}
	return resume, nil
}

func checkOrchestrationReady(resume *domain.Resume) error {
	switch resume.Status {
	case domain.ResumeParsed, domain.ResumeAnalyzing, domain.ResumeAnalyzed:
	default:
		return domain.WrapError(domain.ErrInvalidState, "orchestrate resume", fmt.Errorf("resume %s is %s", resume.ID, resume.Status))
	}
	if resume.OriginalText == "" {
		return domain.WrapError(domain.ErrValidation, "orchestrate resume", errors.New("resume has no extracted text"))
	}
	return nil
}

func (uc *OrchestrateResumeUseCase) advanceResume(ctx context.Context, resume *domain.Resume, next domain.ResumeStatus, errMessage string, log *zap.Logger) {
	if !resume.Status.CanAdvanceTo(next) {
		return
	}
	if err := uc.resumes.UpdateStatus(ctx, resume.ID, next, errMessage); err != nil {
		log.Warn("orchestration_resume_status_failed", zap.String("status", string(next)), zap.Error(err))
		return
	}
	resume.Status = next
}

func (uc *OrchestrateResumeUseCase) runTailoring(ctx context.Context, resume *domain.Resume, key domain.PipelineKey, rb *reportBuilder, log *zap.Logger) {
	ctx, span := uc.tracer.Start(ctx, "orchestrator.tailor")
	defer span.End()

	jd := uc.catalog.GenericJobDescription()
	if resume.HasTailoredVersionFor(jd) {
		rb.skip(domain.StepTailor, "", "resume already tailored for the generic job description")
		uc.setStage(ctx, key, domain.StageTailored, "", rb, log)
		return
	}

	started := uc.now()
	content, err := uc.gateway.tailor(ctx, domain.TailorRequest{
		ResumeText:     resume.OriginalText,
		JobDescription: jd,
		TemplateType:   uc.catalog.TemplateType(),
	})
	if err == nil {
		err = uc.resumes.AppendTailoredVersion(ctx, resume.ID, domain.NewTailoredVersion(jd, content, uc.now()))
		if err != nil {
			err = fmt.Errorf("append tailored version: %w", err)
		}
	}
	rb.record(domain.StepTailor, "", nil, uc.since(started), err)
	if err != nil {
		failSpan(span, err)
		log.Warn("orchestration_stage_failed", zap.String("step", domain.StepTailor), zap.Error(err))
		return
	}
	uc.setStage(ctx, key, domain.StageTailored, "", rb, log)
}

func (uc *OrchestrateResumeUseCase) runInterviews(ctx context.Context, resume *domain.Resume, key domain.PipelineKey, rb *reportBuilder, log *zap.Logger) {
	earlier := uc.earlierSessions(ctx, resume.ID, log)

	if !uc.opts.ParallelInterviews {
		for _, t := range uc.opts.InterviewTypes {
			uc.runInterview(ctx, resume, key, t, earlier, rb, log)
		}
		return
	}

	var g errgroup.Group
	for _, t := range uc.opts.InterviewTypes {
		g.Go(func() error {
			uc.runInterview(ctx, resume, key, t, earlier, rb, log)
			return nil
		})
	}
	_ = g.Wait()
}

// priorSessions is what earlier runs left behind for one resume. It is
// read-only once built, so parallel interviews share it.
type priorSessions struct {
	completed map[domain.InterviewType]string
	open      map[domain.InterviewType][]domain.InterviewSession
}

// earlierSessions finds sessions from earlier runs. Completed ones are
// reused so a redelivered event does not repeat them; open ones belong to
// a run that died before finishing.
func (uc *OrchestrateResumeUseCase) earlierSessions(ctx context.Context, resumeID string, log *zap.Logger) priorSessions {
	out := priorSessions{
		completed: make(map[domain.InterviewType]string),
		open:      make(map[domain.InterviewType][]domain.InterviewSession),
	}
	sessions, err := uc.interviews.ListByResume(ctx, resumeID)
	if err != nil {
		log.Warn("orchestration_session_lookup_failed", zap.Error(err))
		return out
	}
	for _, s := range sessions {
		switch {
		case s.Status == domain.InterviewCompleted:
			out.completed[s.Type] = s.ID
		case !s.Status.Terminal():
			out.open[s.Type] = append(out.open[s.Type], s)
		}
	}
	return out
}

func (uc *OrchestrateResumeUseCase) runInterview(
	ctx context.Context,
	resume *domain.Resume,
	key domain.PipelineKey,
	t domain.InterviewType,
	earlier priorSessions,
	rb *reportBuilder,
	log *zap.Logger,
) {
	ctx, span := uc.tracer.Start(ctx, "orchestrator.interview", trace.WithAttributes(attribute.String("interview.type", string(t))))
	defer span.End()
	log = log.With(zap.String("interview_type", string(t)))

	uc.cancelAbandoned(ctx, t, earlier.open[t], rb, log)

	if completedID := earlier.completed[t]; completedID != "" {
		rb.addSession(completedID)
		rb.skip(domain.StepComplete, t, "completed session "+completedID+" already exists")
		uc.setStage(ctx, key, domain.StageInterview, t, rb, log)
		uc.setStage(ctx, key, domain.StageAnalytics, t, rb, log)
		return
	}

	started := uc.now()
	jd := uc.catalog.InterviewJobDescription(t)
	questions, err := uc.gateway.generateQuestions(ctx, domain.QuestionRequest{
		ResumeText:     resume.OriginalText,
		JobDescription: jd,
		InterviewType:  t,
		Count:          uc.opts.QuestionsPerType,
	})
	rb.record(domain.StepQuestions, t, nil, uc.since(started), err)
	if err != nil {
		failSpan(span, err)
		log.Warn("orchestration_stage_failed", zap.String("step", domain.StepQuestions), zap.Error(err))
		return
	}

	started = uc.now()
	session, err := domain.NewInterviewSession(domain.NewSessionParams{
		ID:             uuid.NewString(),
		OwnerID:        resume.OwnerID,
		ResumeID:       resume.ID,
		Type:           t,
		JobDescription: jd,
		Questions:      questions,
	}, started)
	if err == nil {
		err = uc.interviews.Create(ctx, session)
	}
	rb.record(domain.StepSession, t, nil, uc.since(started), err)
	if err != nil {
		failSpan(span, err)
		log.Warn("orchestration_stage_failed", zap.String("step", domain.StepSession), zap.Error(err))
		return
	}
	rb.addSession(session.ID)
	log = log.With(zap.String("session_id", session.ID))
	uc.setStage(ctx, key, domain.StageInterview, t, rb, log)

	started = uc.now()
	if err := session.Start(started); err != nil {
		rb.record(domain.StepComplete, t, nil, uc.since(started), err)
		return
	}
	if err := uc.saveProgress(ctx, session, log); err != nil {
		uc.stopClosedSession(span, session, 0, err, rb, log)
		return
	}

	for i := range session.Questions {
		if ctx.Err() != nil {
			rb.skip(domain.StepAnswer, t, ctx.Err().Error(), i)
			continue
		}
		if err := uc.answerQuestion(ctx, session, i, rb, log); err != nil {
			uc.stopClosedSession(span, session, i, err, rb, log)
			return
		}
	}

	started = uc.now()
	err = session.End(started)
	if err == nil {
		err = uc.interviews.Update(ctx, session)
		if domain.IsKind(err, domain.ErrInvalidState) {
			uc.stopClosedSession(span, session, len(session.Questions), err, rb, log)
			return
		}
	}
	rb.record(domain.StepComplete, t, nil, uc.since(started), err)
	if err != nil {
		failSpan(span, err)
		log.Warn("orchestration_stage_failed", zap.String("step", domain.StepComplete), zap.Error(err))
		return
	}
	uc.setStage(ctx, key, domain.StageAnalytics, t, rb, log)
}

// cancelAbandoned closes sessions an interrupted run left open, so they do
// not sit in progress next to the session this run produces.
func (uc *OrchestrateResumeUseCase) cancelAbandoned(ctx context.Context, t domain.InterviewType, sessions []domain.InterviewSession, rb *reportBuilder, log *zap.Logger) {
	for i := range sessions {
		s := &sessions[i]
		started := uc.now()
		err := s.Cancel(started)
		if err == nil {
			err = uc.interviews.Update(ctx, s)
		}
		if domain.IsKind(err, domain.ErrInvalidState) {
			rb.skip(domain.StepCancelStale, t, "session "+s.ID+" closed before it could be cancelled")
			continue
		}
		if err != nil {
			err = fmt.Errorf("cancel session %s: %w", s.ID, err)
			log.Warn("orchestration_stale_session_cancel_failed", zap.String("stale_session_id", s.ID), zap.Error(err))
		} else {
			log.Info("orchestration_stale_session_cancelled", zap.String("stale_session_id", s.ID))
		}
		rb.record(domain.StepCancelStale, t, nil, uc.since(started), err)
	}
}

// answerQuestion records answer failures in the report and moves on. It
// returns an error only when the session was closed outside this run.
func (uc *OrchestrateResumeUseCase) answerQuestion(ctx context.Context, session *domain.InterviewSession, index int, rb *reportBuilder, log *zap.Logger) error {
	started := uc.now()
	err := uc.answerAndRecord(ctx, session, index)
	if err == nil {
		if closed := uc.saveProgress(ctx, session, log); closed != nil {
			return closed
		}
	}
	idx := index
	rb.record(domain.StepAnswer, session.Type, &idx, uc.since(started), err)
	if err != nil {
		log.Warn("orchestration_question_failed", zap.Int("question_index", index), zap.Error(err))
	}
	return nil
}

func (uc *OrchestrateResumeUseCase) answerAndRecord(ctx context.Context, session *domain.InterviewSession, index int) error {
	raw, nonVerbal, err := uc.answers.Answer(ctx, session, index)
	if err != nil {
		return fmt.Errorf("synthesize answer: %w", err)
	}
	eval, nv, err := uc.gateway.evaluateAnswer(ctx, session, index, raw, nonVerbal)
	if err != nil {
		return err
	}
	return session.RecordResponse(index, raw, eval, nv, uc.opts.CountPolicy, uc.now())
}

// saveProgress persists the in-memory session. Ordinary write failures are
// logged and the next save carries the same state. A session that was
// completed or cancelled elsewhere comes back as an error so the caller
// stops driving it.
func (uc *OrchestrateResumeUseCase) saveProgress(ctx context.Context, session *domain.InterviewSession, log *zap.Logger) error {
	err := uc.interviews.Update(ctx, session)
	switch {
	case err == nil:
		return nil
	case domain.IsKind(err, domain.ErrInvalidState):
		return err
	default:
		log.Warn("orchestration_session_save_failed", zap.Error(err))
		return nil
	}
}

// stopClosedSession gives up on a session that reached a terminal state
// outside this run. The stored session is left untouched and the questions
// from index onward are reported as skipped.
func (uc *OrchestrateResumeUseCase) stopClosedSession(span trace.Span, session *domain.InterviewSession, from int, err error, rb *reportBuilder, log *zap.Logger) {
	const reason = "session closed outside this run"
	for i := from; i < len(session.Questions); i++ {
		rb.skip(domain.StepAnswer, session.Type, reason, i)
	}
	err = fmt.Errorf("%s: %w", reason, err)
	rb.record(domain.StepComplete, session.Type, nil, 0, err)
	failSpan(span, err)
	log.Warn("orchestration_session_closed_elsewhere", zap.Int("question_index", from), zap.Error(err))
}

func (uc *OrchestrateResumeUseCase) setStage(
	ctx context.Context,
	key domain.PipelineKey,
	stage domain.Stage,
	t domain.InterviewType,
	rb *reportBuilder,
	log *zap.Logger,
) {
	started := uc.now()
	_, err := uc.tracker.SetStage(ctx, key, stage, true)
	if err == nil {
		return
	}
	rb.record(domain.StepStageWrite, t, nil, uc.since(started), fmt.Errorf("stage %s: %w", stage, err))
	log.Warn("orchestration_stage_write_failed", zap.String("stage", string(stage)), zap.Error(err))
}

func (uc *OrchestrateResumeUseCase) since(started time.Time) time.Duration {
	return uc.now().Sub(started)
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

type reportBuilder struct {
	mu     sync.Mutex
	report domain.RunReport
}

func newReportBuilder(runID string, resume *domain.Resume, started time.Time) *reportBuilder {
	return &reportBuilder{report: domain.RunReport{
		RunID:      runID,
		ResumeID:   resume.ID,
		OwnerID:    resume.OwnerID,
		SessionIDs: []string{},
		Outcomes:   []domain.StageOutcome{},
		StartedAt:  started,
	}}
}

func (b *reportBuilder) record(step string, t domain.InterviewType, index *int, took time.Duration, err error) {
	o := domain.StageOutcome{
		Step:          step,
		InterviewType: t,
		QuestionIndex: index,
		Status:        domain.OutcomeSucceeded,
		Duration:      took,
	}
	if err != nil {
		o.Status = domain.OutcomeFailed
		o.Error = err.Error()
	}
	b.add(o)
}

func (b *reportBuilder) skip(step string, t domain.InterviewType, reason string, index ...int) {
	o := domain.StageOutcome{Step: step, InterviewType: t, Status: domain.OutcomeSkipped, Error: reason}
	if len(index) > 0 {
		idx := index[0]
		o.QuestionIndex = &idx
	}
	b.add(o)
}

func (b *reportBuilder) add(o domain.StageOutcome) {
	b.mu.Lock()
	b.report.Outcomes = append(b.report.Outcomes, o)
	b.mu.Unlock()
}

func (b *reportBuilder) addSession(id string) {
	b.mu.Lock()
	b.report.SessionIDs = append(b.report.SessionIDs, id)
	b.mu.Unlock()
}

func (b *reportBuilder) finish(now time.Time) *domain.RunReport {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.report
	out.FinishedAt = now
	out.Outcomes = append(make([]domain.StageOutcome, 0, len(b.report.Outcomes)), b.report.Outcomes...)
	out.SessionIDs = append(make([]string, 0, len(b.report.SessionIDs)), b.report.SessionIDs...)
	return &out
}

type noopObserver struct{}

func (noopObserver) RunStarted()                     {}
func (noopObserver) RunFinished(_ *domain.RunReport) {}
