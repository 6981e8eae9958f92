package domain

import (
	"fmt"
	"time"
)

type OutcomeStatus string

const (
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeSkipped   OutcomeStatus = "skipped"
)

// Sub-stage names used in run reports.
const (
	StepTailor      = "tailor"
	StepCancelStale = "cancel_stale_session"
	StepQuestions   = "generate_questions"
	StepSession     = "create_session"
	StepAnswer      = "answer"
	StepComplete    = "complete_session"
	StepStageWrite  = "stage_write"
)

type StageOutcome struct {
	Step          string        `json:"step"`
	InterviewType InterviewType `json:"interview_type,omitempty"`
	QuestionIndex *int          `json:"question_index,omitempty"`
	Status        OutcomeStatus `json:"status"`
	Error         string        `json:"error,omitempty"`
	Duration      time.Duration `json:"duration_ns"`
}

func (o StageOutcome) Label() string {
	label := o.Step
	if o.InterviewType != "" {
		label = fmt.Sprintf("%s:%s", o.InterviewType, label)
	}
	if o.QuestionIndex != nil {
		label = fmt.Sprintf("%s#%d", label, *o.QuestionIndex)
	}
	return label
}

// RunReport collects the outcome of every sub-stage of one orchestration run.
type RunReport struct {
	RunID      string         `json:"run_id"`
	ResumeID   string         `json:"resume_id"`
	OwnerID    string         `json:"owner_id"`
	SessionIDs []string       `json:"session_ids"`
	Outcomes   []StageOutcome `json:"outcomes"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

func (r *RunReport) Count(status OutcomeStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

func (r *RunReport) Failures() []StageOutcome {
	out := make([]StageOutcome, 0)
	for _, o := range r.Outcomes {
		if o.Status == OutcomeFailed {
			out = append(out, o)
		}
	}
	return out
}

// Find returns the first outcome for step, optionally scoped to an interview type.
func (r *RunReport) Find(step string, interviewType InterviewType) (StageOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.Step == step && o.InterviewType == interviewType && o.QuestionIndex == nil {
			return o, true
		}
	}
	return StageOutcome{}, false
}

// Productive reports whether at least one top-level stage has a result,
// either produced by this run or found from an earlier one.
func (r *RunReport) Productive() bool {
	for _, o := range r.Outcomes {
		if o.Status == OutcomeFailed {
			continue
		}
		if o.Step == StepTailor || o.Step == StepComplete {
			return true
		}
	}
	return false
}

func (r *RunReport) PartialFailure() bool {
	return r.Count(OutcomeFailed) > 0
}
