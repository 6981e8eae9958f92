package httpadapter

import (
	"context"
	"net/http"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

type createInterviewRequest struct {
	ResumeID       string `json:"resume_id" validate:"omitempty,max=128"`
	InterviewType  string `json:"interview_type" validate:"required"`
	JobDescription string `json:"job_description" validate:"omitempty,max=20000"`
	QuestionCount  int    `json:"question_count" validate:"gte=0,lte=20"`
}

type submitResponseRequest struct {
	Index     *int                   `json:"index" validate:"required,gte=0"`
	Response  domain.RawResponse     `json:"response"`
	NonVerbal *domain.NonVerbalInput `json:"non_verbal"`
}

func (rt *Router) createInterview(w http.ResponseWriter, r *http.Request) {
	var req createInterviewRequest
	if !rt.decodeJSON(w, r, &req) {
		return
	}
	interviewType, err := domain.ParseInterviewType(req.InterviewType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	session, err := rt.deps.Interviews.Create(r.Context(), domain.CreateInterviewCommand{
		OwnerID:        ownerFromContext(r.Context()),
		ResumeID:       req.ResumeID,
		Type:           interviewType,
		JobDescription: req.JobDescription,
		QuestionCount:  req.QuestionCount,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (rt *Router) listInterviews(w http.ResponseWriter, r *http.Request) {
	items, err := rt.deps.Interviews.List(r.Context(), ownerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (rt *Router) getInterview(w http.ResponseWriter, r *http.Request) {
	rt.sessionAction(w, r, rt.deps.Interviews.Get)
}

func (rt *Router) startInterview(w http.ResponseWriter, r *http.Request) {
	rt.sessionAction(w, r, rt.deps.Interviews.Start)
}

func (rt *Router) endInterview(w http.ResponseWriter, r *http.Request) {
	rt.sessionAction(w, r, rt.deps.Interviews.End)
}

func (rt *Router) cancelInterview(w http.ResponseWriter, r *http.Request) {
	rt.sessionAction(w, r, rt.deps.Interviews.Cancel)
}

type sessionFunc func(ctx context.Context, ownerID, sessionID string) (*domain.InterviewSession, error)

func (rt *Router) sessionAction(w http.ResponseWriter, r *http.Request, fn sessionFunc) {
	id, err := pathParam(r, "session_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	session, err := fn(r.Context(), ownerFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (rt *Router) submitResponse(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "session_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req submitResponseRequest
	if !rt.decodeJSON(w, r, &req) {
		return
	}
	owner := ownerFromContext(r.Context())
	question, interviewType, err := rt.deps.Interviews.Submit(r.Context(), domain.SubmitResponseCommand{
		OwnerID:   owner,
		SessionID: id,
		Index:     *req.Index,
		Response:  req.Response,
		NonVerbal: req.NonVerbal,
	})
	if rt.opts.Metrics != nil {
		rt.opts.Metrics.RecordSubmission(rt.opts.Service, string(interviewType), err)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}
