package httpadapter

import (
	"net/http"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

type setStageRequest struct {
	Value *bool `json:"value" validate:"required"`
}

func (rt *Router) listPipelines(w http.ResponseWriter, r *http.Request) {
	items, err := rt.deps.Pipelines.ListByOwner(r.Context(), ownerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]domain.PipelineProgress, 0, len(items))
	for _, p := range items {
		out = append(out, p.Progress())
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (rt *Router) getPipeline(w http.ResponseWriter, r *http.Request) {
	key, err := pipelineKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := rt.deps.Pipelines.Get(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Progress())
}

func (rt *Router) createPipeline(w http.ResponseWriter, r *http.Request) {
	key, err := pipelineKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := rt.deps.Pipelines.Create(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p.Progress())
}

// setPipelineStage lets collaborating modules record their own stages.
// Orchestrator-owned stages are rejected by the tracker.
func (rt *Router) setPipelineStage(w http.ResponseWriter, r *http.Request) {
	key, err := pipelineKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	stage, err := pathParam(r, "stage")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req setStageRequest
	if !rt.decodeJSON(w, r, &req) {
		return
	}
	p, err := rt.deps.Pipelines.SetCollaboratorStage(r.Context(), key, domain.CollaboratorStage(stage), *req.Value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Progress())
}
