package domain

import (
	"fmt"
	"strings"
	"time"
)

type ResumeStatus string

const (
	ResumeUploaded  ResumeStatus = "uploaded"
	ResumeParsing   ResumeStatus = "parsing"
	ResumeParsed    ResumeStatus = "parsed"
	ResumeAnalyzing ResumeStatus = "analyzing"
	ResumeAnalyzed  ResumeStatus = "analyzed"
	ResumeError     ResumeStatus = "error"
)

var resumeStatusRank = map[ResumeStatus]int{
	ResumeUploaded:  0,
	ResumeParsing:   1,
	ResumeParsed:    2,
	ResumeAnalyzing: 3,
	ResumeAnalyzed:  4,
}

func (s ResumeStatus) Valid() bool {
	_, ok := resumeStatusRank[s]
	return ok || s == ResumeError
}

// CanAdvanceTo reports whether a resume in status s may move to next.
// Status only moves forward; error is reachable from anywhere and is final.
func (s ResumeStatus) CanAdvanceTo(next ResumeStatus) bool {
	if !next.Valid() || s == ResumeError {
		return false
	}
	if next == ResumeError {
		return true
	}
	return resumeStatusRank[next] > resumeStatusRank[s]
}

// TailoredContent is what the gateway returns for a tailoring request.
type TailoredContent struct {
	Summary       string   `json:"summary"`
	Experience    []string `json:"experience"`
	Skills        []string `json:"skills"`
	Keywords      []string `json:"keywords"`
	MatchScore    float64  `json:"match_score"`
	Suggestions   []string `json:"suggestions"`
	OptimizedText string   `json:"optimized_text"`
}

type TailoredVersion struct {
	JobDescription  string          `json:"job_description"`
	TailoredContent TailoredContent `json:"tailored_content"`
	MatchScore      float64         `json:"match_score"`
	Suggestions     []string        `json:"suggestions"`
	OptimizedText   string          `json:"optimized_text"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewTailoredVersion builds an append-ready version from gateway output.
func NewTailoredVersion(jobDescription string, content TailoredContent, now time.Time) TailoredVersion {
	score := clampScore(content.MatchScore, 0, 100)
	content.MatchScore = score
	suggestions := content.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return TailoredVersion{
		JobDescription:  jobDescription,
		TailoredContent: content,
		MatchScore:      score,
		Suggestions:     suggestions,
		OptimizedText:   content.OptimizedText,
		CreatedAt:       now.UTC(),
	}
}

type Resume struct {
	ID               string            `json:"id"`
	OwnerID          string            `json:"owner_id"`
	Filename         string            `json:"filename"`
	MimeType         string            `json:"mime_type"`
	StoragePath      string            `json:"storage_path"`
	Status           ResumeStatus      `json:"status"`
	OriginalText     string            `json:"original_text,omitempty"`
	ParsedSummary    string            `json:"parsed_summary,omitempty"`
	TailoredVersions []TailoredVersion `json:"tailored_versions"`
	ProcessingErrors []string          `json:"processing_errors"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Advance moves the resume to next, rejecting backward transitions.
func (r *Resume) Advance(next ResumeStatus, now time.Time) error {
	if !r.Status.CanAdvanceTo(next) {
		return WrapError(ErrInvalidState, "advance resume status", fmt.Errorf("%s -> %s", r.Status, next))
	}
	r.Status = next
	r.UpdatedAt = now.UTC()
	return nil
}

// HasTailoredVersionFor reports whether the resume was already tailored
// against jobDescription. Versions for other descriptions do not count.
func (r *Resume) HasTailoredVersionFor(jobDescription string) bool {
	jobDescription = strings.TrimSpace(jobDescription)
	for _, v := range r.TailoredVersions {
		if strings.TrimSpace(v.JobDescription) == jobDescription {
			return true
		}
	}
	return false
}

func clampScore(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
