package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

type InterviewType string

const (
	InterviewTechnical  InterviewType = "technical"
	InterviewManagerial InterviewType = "managerial"
	InterviewHR         InterviewType = "hr"
)

// InterviewTypes is the order in which automated runs attempt sessions.
var InterviewTypes = []InterviewType{InterviewTechnical, InterviewManagerial, InterviewHR}

func ParseInterviewType(raw string) (InterviewType, error) {
	t := InterviewType(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case InterviewTechnical, InterviewManagerial, InterviewHR:
		return t, nil
	default:
		return "", WrapError(ErrValidation, "parse interview type", fmt.Errorf("unknown interview type %q", raw))
	}
}

type InterviewStatus string

const (
	InterviewScheduled  InterviewStatus = "scheduled"
	InterviewInProgress InterviewStatus = "in-progress"
	InterviewCompleted  InterviewStatus = "completed"
	InterviewCancelled  InterviewStatus = "cancelled"
)

func (s InterviewStatus) Terminal() bool {
	return s == InterviewCompleted || s == InterviewCancelled
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// NormalizeDifficulty maps free-form gateway output onto the known levels.
func NormalizeDifficulty(raw string) Difficulty {
	switch Difficulty(strings.ToLower(strings.TrimSpace(raw))) {
	case DifficultyEasy:
		return DifficultyEasy
	case DifficultyHard:
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

// CountPolicy decides how CompletedQuestions reacts to a submission.
type CountPolicy string

const (
	// CountEverySubmission increments on every accepted submission, including
	// resubmissions of an already answered question.
	CountEverySubmission CountPolicy = "count-every-submission"
	// CountDistinctQuestions increments only the first time a question is answered.
	CountDistinctQuestions CountPolicy = "count-distinct-questions"
)

func ParseCountPolicy(raw string) (CountPolicy, error) {
	switch p := CountPolicy(strings.TrimSpace(raw)); p {
	case "":
		return CountEverySubmission, nil
	case CountEverySubmission, CountDistinctQuestions:
		return p, nil
	default:
		return "", WrapError(ErrValidation, "parse count policy", fmt.Errorf("unknown policy %q", raw))
	}
}

// Response is the persisted subset of a candidate answer.
type Response struct {
	Text            string   `json:"text"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	Confidence      *float64 `json:"confidence,omitempty"`
}

// RawResponse is what a client submits. Media references and free-form
// metadata are accepted for evaluation but never persisted.
type RawResponse struct {
	Text            string         `json:"text"`
	DurationSeconds *float64       `json:"duration_seconds,omitempty"`
	Confidence      *float64       `json:"confidence,omitempty"`
	AudioURL        string         `json:"audio_url,omitempty"`
	VideoURL        string         `json:"video_url,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

func (r RawResponse) Persistable() Response {
	return Response{
		Text:            r.Text,
		DurationSeconds: r.DurationSeconds,
		Confidence:      r.Confidence,
	}
}

type Evaluation struct {
	ContentScore float64  `json:"content_score"`
	KeywordMatch float64  `json:"keyword_match"`
	Clarity      float64  `json:"clarity"`
	Relevance    float64  `json:"relevance"`
	OverallScore float64  `json:"overall_score"`
	Feedback     string   `json:"feedback"`
	Suggestions  []string `json:"suggestions"`
	AIFeedback   string   `json:"ai_feedback"`
}

// NonVerbalInput carries observed delivery signals, each on a 0-10 scale.
type NonVerbalInput struct {
	EyeContact        float64 `json:"eye_contact"`
	Posture           float64 `json:"posture"`
	Gestures          float64 `json:"gestures"`
	FacialExpressions float64 `json:"facial_expressions"`
	SpeakingPace      float64 `json:"speaking_pace"`
	Notes             string  `json:"notes,omitempty"`
}

type NonVerbalEvaluation struct {
	EyeContact        float64 `json:"eye_contact"`
	Posture           float64 `json:"posture"`
	Gestures          float64 `json:"gestures"`
	FacialExpressions float64 `json:"facial_expressions"`
	Confidence        float64 `json:"confidence"`
	OverallScore      float64 `json:"overall_score"`
	Feedback          string  `json:"feedback"`
}

type Question struct {
	Text             string               `json:"question"`
	Category         string               `json:"category"`
	Difficulty       Difficulty           `json:"difficulty"`
	ExpectedKeywords []string             `json:"expected_keywords"`
	ModelAnswer      string               `json:"model_answer"`
	Response         *Response            `json:"response,omitempty"`
	Evaluation       *Evaluation          `json:"evaluation,omitempty"`
	NonVerbal        *NonVerbalEvaluation `json:"non_verbal,omitempty"`
	AnsweredAt       *time.Time           `json:"answered_at,omitempty"`
}

func (q Question) Answered() bool {
	return q.Response != nil
}

type SessionTiming struct {
	StartTime          *time.Time `json:"start_time,omitempty"`
	EndTime            *time.Time `json:"end_time,omitempty"`
	DurationMinutes    *int       `json:"duration,omitempty"`
	TotalQuestions     int        `json:"total_questions"`
	CompletedQuestions int        `json:"completed_questions"`
}

type InterviewSession struct {
	ID             string              `json:"id"`
	OwnerID        string              `json:"owner_id"`
	ResumeID       string              `json:"resume_id,omitempty"`
	Type           InterviewType       `json:"interview_type"`
	Status         InterviewStatus     `json:"status"`
	JobDescription string              `json:"job_description,omitempty"`
	Questions      []Question          `json:"questions"`
	Session        SessionTiming       `json:"session"`
	Performance    *PerformanceSummary `json:"performance,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

type NewSessionParams struct {
	ID             string
	OwnerID        string
	ResumeID       string
	Type           InterviewType
	JobDescription string
	Questions      []Question
}

func NewInterviewSession(p NewSessionParams, now time.Time) (*InterviewSession, error) {
	if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.OwnerID) == "" {
		return nil, WrapError(ErrValidation, "new interview session", errors.New("id and owner are required"))
	}
	if _, err := ParseInterviewType(string(p.Type)); err != nil {
		return nil, err
	}

	questions := make([]Question, 0, len(p.Questions))
	for _, q := range p.Questions {
		q.Difficulty = NormalizeDifficulty(string(q.Difficulty))
		q.ExpectedKeywords = uniqueStrings(q.ExpectedKeywords)
		q.Response, q.Evaluation, q.NonVerbal, q.AnsweredAt = nil, nil, nil, nil
		questions = append(questions, q)
	}

	now = now.UTC()
	return &InterviewSession{
		ID:             p.ID,
		OwnerID:        p.OwnerID,
		ResumeID:       p.ResumeID,
		Type:           p.Type,
		Status:         InterviewScheduled,
		JobDescription: p.JobDescription,
		Questions:      questions,
		Session:        SessionTiming{TotalQuestions: len(questions)},
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (s *InterviewSession) Start(now time.Time) error {
	if s.Status != InterviewScheduled {
		return s.stateError("start")
	}
	now = now.UTC()
	s.Status = InterviewInProgress
	s.Session.StartTime = &now
	s.UpdatedAt = now
	return nil
}

// CheckSubmission validates that a response for index may be recorded now.
// It runs before any gateway call so rejected submissions cost nothing.
func (s *InterviewSession) CheckSubmission(index int) error {
	if s.Status != InterviewInProgress {
		return s.stateError("submit response")
	}
	if index < 0 || index >= len(s.Questions) {
		return WrapError(ErrValidation, "submit response", fmt.Errorf("question index %d out of range [0,%d)", index, len(s.Questions)))
	}
	return nil
}

// RecordResponse stores an evaluated answer. A later submission for the same
// index replaces the earlier one.
func (s *InterviewSession) RecordResponse(
	index int,
	raw RawResponse,
	eval Evaluation,
	nonVerbal *NonVerbalEvaluation,
	policy CountPolicy,
	now time.Time,
) error {
	if err := s.CheckSubmission(index); err != nil {
		return err
	}
	now = now.UTC()
	q := &s.Questions[index]
	firstAnswer := !q.Answered()

	resp := raw.Persistable()
	q.Response = &resp
	q.Evaluation = &eval
	q.NonVerbal = nonVerbal
	q.AnsweredAt = &now

	if policy != CountDistinctQuestions || firstAnswer {
		s.Session.CompletedQuestions++
	}
	if s.Session.CompletedQuestions > s.Session.TotalQuestions {
		s.Session.CompletedQuestions = s.Session.TotalQuestions
	}
	s.UpdatedAt = now
	return nil
}

func (s *InterviewSession) End(now time.Time) error {
	if s.Status != InterviewInProgress {
		return s.stateError("end")
	}
	now = now.UTC()
	s.Status = InterviewCompleted
	s.Session.EndTime = &now
	if s.Session.StartTime != nil {
		minutes := int(math.Round(now.Sub(*s.Session.StartTime).Minutes()))
		if minutes < 0 {
			minutes = 0
		}
		s.Session.DurationMinutes = &minutes
	}
	perf := ComputePerformance(s.Questions)
	s.Performance = &perf
	s.UpdatedAt = now
	return nil
}

func (s *InterviewSession) Cancel(now time.Time) error {
	if s.Status.Terminal() {
		return s.stateError("cancel")
	}
	s.Status = InterviewCancelled
	s.UpdatedAt = now.UTC()
	return nil
}

func (s *InterviewSession) stateError(op string) error {
	return WrapError(ErrInvalidState, op, fmt.Errorf("session %s is %s", s.ID, s.Status))
}

// SessionSummary is the list view of a session.
type SessionSummary struct {
	ID                 string          `json:"id"`
	InterviewType      InterviewType   `json:"interview_type"`
	Status             InterviewStatus `json:"status"`
	StartTime          *time.Time      `json:"start_time,omitempty"`
	Duration           *int            `json:"duration,omitempty"`
	TotalQuestions     int             `json:"total_questions"`
	CompletedQuestions int             `json:"completed_questions"`
	OverallScore       float64         `json:"overall_score"`
	TotalPoints        float64         `json:"total_points"`
	BonusPoints        float64         `json:"bonus_points"`
}

func (s *InterviewSession) Summary() SessionSummary {
	out := SessionSummary{
		ID:                 s.ID,
		InterviewType:      s.Type,
		Status:             s.Status,
		StartTime:          s.Session.StartTime,
		Duration:           s.Session.DurationMinutes,
		TotalQuestions:     s.Session.TotalQuestions,
		CompletedQuestions: s.Session.CompletedQuestions,
	}
	if s.Performance != nil {
		out.OverallScore = s.Performance.OverallScore
		out.TotalPoints = s.Performance.TotalPoints
		out.BonusPoints = s.Performance.BonusPoints
	}
	return out
}

func uniqueStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
