package httpadapter

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

type uploadTextRequest struct {
	Filename string `json:"filename" validate:"omitempty,max=255"`
	Text     string `json:"text" validate:"required"`
}

type tailorRequest struct {
	JobDescription string `json:"job_description" validate:"omitempty,max=20000"`
	JobURL         string `json:"job_url" validate:"omitempty,url"`
	TemplateType   string `json:"template_type" validate:"omitempty,max=64"`
}

func (rt *Router) uploadResume(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req uploadTextRequest
		if !rt.decodeJSON(w, r, &req) {
			return
		}
		filename := req.Filename
		if filename == "" {
			filename = "resume.txt"
		}
		resume, err := rt.deps.Ingest.Upload(r.Context(), owner, filename, "text/plain", strings.NewReader(req.Text))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, resume)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "resume file is too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	resume, err := rt.deps.Ingest.Upload(
		r.Context(),
		owner,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resume)
}

func (rt *Router) listResumes(w http.ResponseWriter, r *http.Request) {
	items, err := rt.deps.Resumes.ListByOwner(r.Context(), ownerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.Resume{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (rt *Router) getResume(w http.ResponseWriter, r *http.Request) {
	resume, err := rt.ownedResume(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resume)
}

func (rt *Router) ownedResume(r *http.Request) (*domain.Resume, error) {
	id, err := pathParam(r, "resume_id")
	if err != nil {
		return nil, err
	}
	resume, err := rt.deps.Resumes.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if err := ownedBy(ownerFromContext(r.Context()), resume.OwnerID, "get resume", id); err != nil {
		return nil, err
	}
	return resume, nil
}

func (rt *Router) tailorResume(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "resume_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req tailorRequest
	if !rt.decodeJSON(w, r, &req) {
		return
	}
	version, err := rt.deps.Tailor.Tailor(r.Context(), domain.TailorCommand{
		OwnerID:        ownerFromContext(r.Context()),
		ResumeID:       id,
		JobDescription: req.JobDescription,
		JobURL:         req.JobURL,
		TemplateType:   req.TemplateType,
	})
	if rt.opts.Metrics != nil {
		rt.opts.Metrics.RecordTailoring(rt.opts.Service, err)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, version)
}

func (rt *Router) triggerOrchestration(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "resume_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := rt.deps.Trigger.Trigger(r.Context(), ownerFromContext(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"resume_id": id, "status": "queued"})
}
