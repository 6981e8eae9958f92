package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
	"github.com/Phani130825/ask-a-coach/internal/core/ports"
)

type orchestratorFixture struct {
	resumes    *resumeRepoFake
	interviews *interviewRepoFake
	store      *pipelineStoreFake
	gateway    *gatewayFake
	observer   *observerFake
	answers    ports.AnswerSource
	uc         *OrchestrateResumeUseCase
}

var interviewKey = domain.PipelineKey{OwnerID: "user-1", Type: domain.PipelineInterview, ResumeID: "resume-1"}

func newOrchestratorFixture(t *testing.T, opts OrchestratorOptions, mutate ...func(*orchestratorFixture)) *orchestratorFixture {
	t.Helper()
	f := &orchestratorFixture{
		resumes: newResumeRepoFake(&domain.Resume{
			ID:           "resume-1",
			OwnerID:      "user-1",
			Status:       domain.ResumeParsed,
			OriginalText: "Go engineer, 6 years of backend work",
		}),
		interviews: newInterviewRepoFake(),
		store:      newPipelineStoreFake(),
		gateway:    newGatewayFake(),
		observer:   &observerFake{},
	}
	for _, m := range mutate {
		m(f)
	}
	f.uc = NewOrchestrateResumeUseCase(OrchestratorDeps{
		Resumes:    f.resumes,
		Interviews: f.interviews,
		Tracker:    NewPipelineTrackerUseCase(f.store, fixedClock),
		Gateway:    f.gateway,
		Catalog:    catalogFake{},
		Answers:    f.answers,
		Observer:   f.observer,
		Clock:      fixedClock,
	}, opts)
	return f
}

func TestRunByResumeIDHappyPath(t *testing.T) {
	f := newOrchestratorFixture(t, OrchestratorOptions{})

	report, err := f.uc.RunByResumeID(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("RunByResumeID() error = %v", err)
	}
	if report.PartialFailure() {
		t.Fatalf("unexpected failures: %+v", report.Failures())
	}
	if len(report.SessionIDs) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(report.SessionIDs))
	}

	flags := f.store.flags(interviewKey)
	for _, stage := range []string{"tailored", "interview", "analytics"} {
		if !flags[stage] {
			t.Fatalf("expected stage %s to be set, got %+v", stage, flags)
		}
	}

	resume := f.resumes.get("resume-1")
	if resume.Status != domain.ResumeAnalyzed {
		t.Fatalf("expected resume analyzed, got %s", resume.Status)
	}
	if len(resume.TailoredVersions) != 1 || resume.TailoredVersions[0].JobDescription != "generic software role" {
		t.Fatalf("unexpected tailored versions: %+v", resume.TailoredVersions)
	}

	for _, typ := range domain.InterviewTypes {
		sessions := f.interviews.byType(typ)
		if len(sessions) != 1 {
			t.Fatalf("expected one %s session, got %d", typ, len(sessions))
		}
		s := sessions[0]
		if s.Status != domain.InterviewCompleted {
			t.Fatalf("expected %s session completed, got %s", typ, s.Status)
		}
		if s.Session.CompletedQuestions != 5 || s.Session.TotalQuestions != 5 {
			t.Fatalf("unexpected counters for %s: %+v", typ, s.Session)
		}
		if s.Performance == nil || s.Performance.OverallScore != 8.5 || s.Performance.BonusPoints != 10 {
			t.Fatalf("unexpected performance for %s: %+v", typ, s.Performance)
		}
	}

	if got := f.gateway.callCount("evaluate"); got != 15 {
		t.Fatalf("expected 15 evaluations, got %d", got)
	}
	if f.observer.started != 1 || len(f.observer.finished) != 1 {
		t.Fatalf("observer not notified: %+v", f.observer)
	}
}

func TestRunByResumeIDManagerialQuestionFailureIsIsolated(t *testing.T) {
	f := newOrchestratorFixture(t, OrchestratorOptions{}, func(f *orchestratorFixture) {
		f.gateway.questionErrs[domain.InterviewManagerial] = errors.New("model unavailable")
	})

	report, err := f.uc.RunByResumeID(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("RunByResumeID() error = %v", err)
	}

	if got := len(f.interviews.filter(func(domain.InterviewSession) bool { return true })); got != 2 {
		t.Fatalf("expected 2 sessions, got %d", got)
	}
	if len(f.interviews.byType(domain.InterviewManagerial)) != 0 {
		t.Fatalf("expected no managerial session")
	}

	flags := f.store.flags(interviewKey)
	if !flags["interview"] || !flags["analytics"] {
		t.Fatalf("expected interview and analytics flags, got %+v", flags)
	}

	outcome, ok := report.Find(domain.StepQuestions, domain.InterviewManagerial)
	if !ok || outcome.Status != domain.OutcomeFailed {
		t.Fatalf("expected failed managerial question outcome, got %+v", outcome)
	}
	if !strings.Contains(outcome.Error, domain.ErrGatewayUnavailable.Error()) {
		t.Fatalf("expected gateway unavailable error, got %q", outcome.Error)
	}
	if len(report.Failures()) != 1 {
		t.Fatalf("expected exactly one failure, got %+v", report.Failures())
	}
}

func TestRunByResumeIDTailorFailureContinues(t *testing.T) {
	f := newOrchestratorFixture(t, OrchestratorOptions{}, func(f *orchestratorFixture) {
		f.gateway.tailorErr = errors.New("tailor down")
	})

	report, err := f.uc.RunByResumeID(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("RunByResumeID() error = %v", err)
	}
	if outcome, _ := report.Find(domain.StepTailor, ""); outcome.Status != domain.OutcomeFailed {
		t.Fatalf("expected tailor failure, got %+v", outcome)
	}
	flags := f.store.flags(interviewKey)
	if flags["tailored"] {
		t.Fatalf("tailored flag must stay unset")
	}
	if !flags["analytics"] {
		t.Fatalf("expected analytics flag after interviews")
	}
	if len(report.SessionIDs) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(report.SessionIDs))
	}
	if status := f.resumes.get("resume-1").Status; status != domain.ResumeAnalyzed {
		t.Fatalf("expected analyzed, got %s", status)
	}
}

func TestRunByResumeIDIsolatesQuestionFailures(t *testing.T) {
	f := newOrchestratorFixture(t, OrchestratorOptions{}, func(f *orchestratorFixture) {
		f.gateway.evaluateErrAt["technical question 2"] = true
	})

	report, err := f.uc.RunByResumeID(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("RunByResumeID() error = %v", err)
	}

	technical := f.interviews.byType(domain.InterviewTechnical)
	if len(technical) != 1 {
		t.Fatalf("expected technical session")
	}
	s := technical[0]
	if s.Status != domain.InterviewCompleted {
		t.Fatalf("expected session completed despite failed question, got %s", s.Status)
	}
	if s.Session.CompletedQuestions != 4 {
		t.Fatalf("expected 4 completed questions, got %d", s.Session.CompletedQuestions)
	}
	if s.Questions[2].Evaluation != nil || s.Questions[2].Response != nil {
		t.Fatalf("failed question must stay unanswered: %+v", s.Questions[2])
	}

	failures := report.Failures()
	if len(failures) != 1 || failures[0].QuestionIndex == nil || *failures[0].QuestionIndex != 2 {
		t.Fatalf("expected one question failure at index 2, got %+v", failures)
	}
	if failures[0].Label() != "technical:answer#2" {
		t.Fatalf("unexpected label %q", failures[0].Label())
	}
}

func TestRunByResumeIDNonVerbalFailureLeavesQuestionUnanswered(t *testing.T) {
	f := newOrchestratorFixture(t, OrchestratorOptions{InterviewTypes: []domain.InterviewType{domain.InterviewHR}}, func(f *orchestratorFixture) {
		f.gateway.nonVerbalErr = errors.New("vision model down")
	})

	report, err := f.uc.RunByResumeID(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("RunByResumeID() error = %v", err)
	}
	if got := report.Count(domain.OutcomeFailed); got != 5 {
		t.Fatalf("expected 5 question failures, got %d", got)
	}
	s := f.interviews.byType(domain.InterviewHR)[0]
	if s.Performance == nil || s.Performance.OverallScore != 0 {
		t.Fatalf("expected zero performance, got %+v", s.Performance)
	}
	if !f.store.flags(interviewKey)["analytics"] {
		t.Fatalf("analytics flag is set even when every answer failed")
	}
}

func TestRunByResumeIDTotalFailureMarksResumeError(t *testing.T) {
	f := newOrchestratorFixture(t, OrchestratorOptions{}, func(f *orchestratorFixture) {
		f.gateway.tailorErr = errors.New("down")
		for _, typ := range domain.InterviewTypes {
			f.gateway.questionErrs[typ] = errors.New("down")
		}
	})

	report, err := f.uc.RunByResumeID(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("orchestrator must not return stage errors, got %v", err)
	}
	if report.Productive() {
		t.Fatalf("expected unproductive report")
	}
	if len(f.store.flags(interviewKey)) != 0 {
		t.Fatalf("expected no stage flags, got %+v", f.store.flags(interviewKey))
	}
	resume := f.resumes.get("resume-1")
	if resume.Status != domain.ResumeError || len(resume.ProcessingErrors) != 1 {
		t.Fatalf("expected error status with message, got %s %+v", resume.Status, resume.ProcessingErrors)
	}
}

func TestRunByResumeIDParallelInterviews(t *testing.T) {
	f := newOrchestratorFixture(t, OrchestratorOptions{ParallelInterviews: true}, func(f *orchestratorFixture) {
		f.gateway.questionErrs[domain.InterviewHR] = errors.New("down")
	})

	report, err := f.uc.RunByResumeID(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("RunByResumeID() error = %v", err)
	}
	if len(report.SessionIDs) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(report.SessionIDs))
	}
	if got := report.Count(domain.OutcomeSucceeded); got < 2*(1+1+5+1) {
		t.Fatalf("expected outcomes for both sessions, got %d succeeded", got)
	}
	flags := f.store.flags(interviewKey)
	if !flags["tailored"] || !flags["interview"] || !flags["analytics"] {
		t.Fatalf("unexpected flags %+v", flags)
	}
}

func TestRunByResumeIDSkipsWorkFromEarlierRun(t *testing.T) {
	f := newOrchestratorFixture(t, OrchestratorOptions{})
	ctx := context.Background()

	if _, err := f.uc.RunByResumeID(ctx, "resume-1"); err != nil {
		t.Fatalf("first run error = %v", err)
	}
	report, err := f.uc.RunByResumeID(ctx, "resume-1")
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}

	if got := f.gateway.callCount("tailor"); got != 1 {
		t.Fatalf("expected tailoring once, got %d", got)
	}
	if got := f.gateway.callCount("questions"); got != 3 {
		t.Fatalf("expected question generation once per type, got %d", got)
	}
	if got := report.Count(domain.OutcomeSkipped); got != 4 {
		t.Fatalf("expected 4 skipped outcomes, got %d", got)
	}
	if len(report.SessionIDs) != 3 {
		t.Fatalf("expected earlier sessions in report, got %+v", report.SessionIDs)
	}
	if status := f.resumes.get("resume-1").Status; status != domain.ResumeAnalyzed {
		t.Fatalf("expected analyzed, got %s", status)
	}
}

func TestRunByResumeIDGatewayDeadlineIsGatewayFailure(t *testing.T) {
	f := newOrchestratorFixture(t, OrchestratorOptions{
		GatewayTimeout: 20 * time.Millisecond,
		InterviewTypes: []domain.InterviewType{domain.InterviewHR},
	}, func(f *orchestratorFixture) {
		f.gateway.block = true
	})

	report, err := f.uc.RunByResumeID(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("RunByResumeID() error = %v", err)
	}
	outcome, _ := report.Find(domain.StepTailor, "")
	if outcome.Status != domain.OutcomeFailed {
		t.Fatalf("expected tailor failure, got %+v", outcome)
	}
	if !strings.Contains(outcome.Error, "ai gateway unavailable") || !strings.Contains(outcome.Error, "deadline exceeded") {
		t.Fatalf("expected deadline reported as gateway failure, got %q", outcome.Error)
	}
	if len(report.SessionIDs) != 1 {
		t.Fatalf("expected interview to continue after tailor timeout")
	}
}

func TestRunByResumeIDPreconditions(t *testing.T) {
	f := newOrchestratorFixture(t, OrchestratorOptions{}, func(f *orchestratorFixture) {
		f.resumes.resumes["resume-1"].Status = domain.ResumeUploaded
	})

	_, err := f.uc.RunByResumeID(context.Background(), "resume-1")
	if !domain.IsKind(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}

	_, err = f.uc.RunByResumeID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if f.gateway.callCount("tailor") != 0 {
		t.Fatalf("gateway must not be called when preconditions fail")
	}
}

func TestRunByResumeIDStageWriteFailureIsReported(t *testing.T) {
	f := newOrchestratorFixture(t, OrchestratorOptions{InterviewTypes: []domain.InterviewType{domain.InterviewHR}}, func(f *orchestratorFixture) {
		f.store.mergeErr = errors.New("redis down")
	})

	report, err := f.uc.RunByResumeID(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("RunByResumeID() error = %v", err)
	}
	writes := 0
	for _, o := range report.Failures() {
		if o.Step == domain.StepStageWrite {
			writes++
		}
	}
	if writes != 3 {
		t.Fatalf("expected 3 failed stage writes, got %d (%+v)", writes, report.Failures())
	}
	if !report.Productive() {
		t.Fatalf("stage write failures do not undo completed work")
	}
}

// cancellingAnswers cancels the session through the interactive use case
// while the automated run is still answering it.
type cancellingAnswers struct {
	interviews *InterviewUseCase
	at         int
	err        error
}

func (a *cancellingAnswers) Answer(ctx context.Context, s *domain.InterviewSession, index int) (domain.RawResponse, *domain.NonVerbalInput, error) {
	if index == a.at {
		_, a.err = a.interviews.Cancel(ctx, s.OwnerID, s.ID)
	}
	return SyntheticAnswers{}.Answer(ctx, s, index)
}

func TestRunByResumeIDKeepsUserCancellation(t *testing.T) {
	answers := &cancellingAnswers{at: 1}
	f := newOrchestratorFixture(t, OrchestratorOptions{InterviewTypes: []domain.InterviewType{domain.InterviewHR}}, func(f *orchestratorFixture) {
		answers.interviews = NewInterviewUseCase(f.interviews, f.resumes, nil, f.gateway, catalogFake{}, nil, fixedClock, InterviewOptions{})
		f.answers = answers
	})

	report, err := f.uc.RunByResumeID(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("RunByResumeID() error = %v", err)
	}
	if answers.err != nil {
		t.Fatalf("Cancel() error = %v", answers.err)
	}

	sessions := f.interviews.byType(domain.InterviewHR)
	if len(sessions) != 1 {
		t.Fatalf("expected one hr session, got %d", len(sessions))
	}
	s := sessions[0]
	if s.Status != domain.InterviewCancelled {
		t.Fatalf("expected cancelled session to stay cancelled, got %s", s.Status)
	}
	if s.Performance != nil {
		t.Fatalf("cancelled session must not get a performance summary: %+v", s.Performance)
	}
	if s.Session.CompletedQuestions != 1 {
		t.Fatalf("expected only the answer saved before cancel, got %d", s.Session.CompletedQuestions)
	}

	outcome, ok := report.Find(domain.StepComplete, domain.InterviewHR)
	if !ok || outcome.Status != domain.OutcomeFailed {
		t.Fatalf("expected failed completion outcome, got %+v", outcome)
	}
	if !strings.Contains(outcome.Error, "session closed outside this run") || !strings.Contains(outcome.Error, "already cancelled") {
		t.Fatalf("unexpected completion error %q", outcome.Error)
	}
	if got := report.Count(domain.OutcomeSkipped); got != 4 {
		t.Fatalf("expected questions 1-4 skipped, got %d", got)
	}
	flags := f.store.flags(interviewKey)
	if !flags["interview"] || flags["analytics"] {
		t.Fatalf("expected interview flag without analytics, got %+v", flags)
	}
}

func TestRunByResumeIDKeepsCancellationOfLastQuestion(t *testing.T) {
	answers := &cancellingAnswers{at: 4}
	f := newOrchestratorFixture(t, OrchestratorOptions{InterviewTypes: []domain.InterviewType{domain.InterviewHR}}, func(f *orchestratorFixture) {
		answers.interviews = NewInterviewUseCase(f.interviews, f.resumes, nil, f.gateway, catalogFake{}, nil, fixedClock, InterviewOptions{})
		f.answers = answers
	})

	report, err := f.uc.RunByResumeID(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("RunByResumeID() error = %v", err)
	}
	s := f.interviews.byType(domain.InterviewHR)[0]
	if s.Status != domain.InterviewCancelled || s.Performance != nil || s.Session.CompletedQuestions != 4 {
		t.Fatalf("unexpected stored session %s completed=%d performance=%+v", s.Status, s.Session.CompletedQuestions, s.Performance)
	}
	if outcome, _ := report.Find(domain.StepComplete, domain.InterviewHR); outcome.Status != domain.OutcomeFailed {
		t.Fatalf("expected failed completion outcome, got %+v", outcome)
	}
}

func TestRunByResumeIDCancelsSessionsLeftOpenByEarlierRun(t *testing.T) {
	f := newOrchestratorFixture(t, OrchestratorOptions{InterviewTypes: []domain.InterviewType{domain.InterviewHR}})
	startedAt := fixedNow.Add(-time.Hour)
	f.interviews.sessions["stale"] = domain.InterviewSession{
		ID:        "stale",
		OwnerID:   "user-1",
		ResumeID:  "resume-1",
		Type:      domain.InterviewHR,
		Status:    domain.InterviewInProgress,
		Questions: []domain.Question{{Text: "left over"}},
		Session:   domain.SessionTiming{TotalQuestions: 1, StartTime: &startedAt},
	}
	f.interviews.sessions["technical-open"] = domain.InterviewSession{
		ID:       "technical-open",
		OwnerID:  "user-1",
		ResumeID: "resume-1",
		Type:     domain.InterviewTechnical,
		Status:   domain.InterviewScheduled,
	}

	report, err := f.uc.RunByResumeID(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("RunByResumeID() error = %v", err)
	}

	stale, err := f.interviews.GetByID(context.Background(), "stale")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stale.Status != domain.InterviewCancelled {
		t.Fatalf("expected stale session cancelled, got %s", stale.Status)
	}
	other, _ := f.interviews.GetByID(context.Background(), "technical-open")
	if other.Status != domain.InterviewScheduled {
		t.Fatalf("sessions of types outside the run must be left alone, got %s", other.Status)
	}

	if len(report.SessionIDs) != 1 || report.SessionIDs[0] == "stale" {
		t.Fatalf("expected one new session, got %+v", report.SessionIDs)
	}
	fresh, _ := f.interviews.GetByID(context.Background(), report.SessionIDs[0])
	if fresh.Status != domain.InterviewCompleted {
		t.Fatalf("expected new session completed, got %s", fresh.Status)
	}
	outcome, ok := report.Find(domain.StepCancelStale, domain.InterviewHR)
	if !ok || outcome.Status != domain.OutcomeSucceeded {
		t.Fatalf("expected stale cancellation in report, got %+v", outcome)
	}
	if report.PartialFailure() {
		t.Fatalf("unexpected failures: %+v", report.Failures())
	}
}

func TestRunByResumeIDTailorsDespiteUnrelatedVersion(t *testing.T) {
	f := newOrchestratorFixture(t, OrchestratorOptions{InterviewTypes: []domain.InterviewType{domain.InterviewHR}}, func(f *orchestratorFixture) {
		f.resumes.resumes["resume-1"].TailoredVersions = []domain.TailoredVersion{{JobDescription: "staff data engineer at Acme"}}
	})

	report, err := f.uc.RunByResumeID(context.Background(), "resume-1")
	if err != nil {
		t.Fatalf("RunByResumeID() error = %v", err)
	}
	if got := f.gateway.callCount("tailor"); got != 1 {
		t.Fatalf("expected generic tailoring to run, got %d calls", got)
	}
	if outcome, _ := report.Find(domain.StepTailor, ""); outcome.Status != domain.OutcomeSucceeded {
		t.Fatalf("expected tailor success, got %+v", outcome)
	}
	versions := f.resumes.get("resume-1").TailoredVersions
	if len(versions) != 2 || versions[1].JobDescription != "generic software role" {
		t.Fatalf("unexpected tailored versions %+v", versions)
	}
}
