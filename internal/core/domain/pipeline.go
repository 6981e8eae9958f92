package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

type PipelineType string

const (
	PipelineTailoring PipelineType = "tailoring"
	PipelineInterview PipelineType = "interview"
)

func ParsePipelineType(raw string) (PipelineType, error) {
	switch t := PipelineType(strings.ToLower(strings.TrimSpace(raw))); t {
	case PipelineTailoring, PipelineInterview:
		return t, nil
	default:
		return "", WrapError(ErrValidation, "parse pipeline type", fmt.Errorf("unknown pipeline type %q", raw))
	}
}

// Stage is a flag written by the orchestrator itself.
type Stage string

const (
	StageTailored  Stage = "tailored"
	StageInterview Stage = "interview"
	StageAnalytics Stage = "analytics"
)

func (s Stage) Valid() bool {
	switch s {
	case StageTailored, StageInterview, StageAnalytics:
		return true
	default:
		return false
	}
}

// CollaboratorStage is a flag written by subsystems outside the orchestrator.
// New names may appear; they only have to be well formed and must not shadow
// an orchestrator stage.
type CollaboratorStage string

const (
	StageUploaded          CollaboratorStage = "uploaded"
	StageAptitude          CollaboratorStage = "aptitude"
	StageCoding            CollaboratorStage = "coding"
	StageTailoringComplete CollaboratorStage = "tailoring_complete"
)

var collaboratorStageName = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

func ParseCollaboratorStage(raw string) (CollaboratorStage, error) {
	name := strings.TrimSpace(raw)
	if !collaboratorStageName.MatchString(name) {
		return "", WrapError(ErrValidation, "parse collaborator stage", fmt.Errorf("malformed stage name %q", raw))
	}
	if Stage(name).Valid() {
		return "", WrapError(ErrValidation, "parse collaborator stage", fmt.Errorf("stage %q is reserved for the orchestrator", name))
	}
	return CollaboratorStage(name), nil
}

// DisplayStages is the fixed progress list shown to users. It mixes both
// vocabularies and does not have to match what any single writer sets.
var DisplayStages = []string{
	string(StageUploaded),
	string(StageTailored),
	string(StageAptitude),
	string(StageCoding),
	string(StageInterview),
	string(StageAnalytics),
}

type PipelineKey struct {
	OwnerID  string       `json:"owner_id"`
	Type     PipelineType `json:"pipeline_type"`
	ResumeID string       `json:"resume_id,omitempty"`
}

func (k PipelineKey) Validate() error {
	if strings.TrimSpace(k.OwnerID) == "" {
		return WrapError(ErrValidation, "pipeline key", fmt.Errorf("owner id is required"))
	}
	if _, err := ParsePipelineType(string(k.Type)); err != nil {
		return err
	}
	return nil
}

func (k PipelineKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.OwnerID, k.Type, k.ResumeID)
}

type Pipeline struct {
	ID                 string
	Key                PipelineKey
	Stages             map[Stage]bool
	CollaboratorStages map[CollaboratorStage]bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type pipelineJSON struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"owner_id"`
	PipelineType PipelineType    `json:"pipeline_type"`
	ResumeID     string          `json:"resume_id,omitempty"`
	Stages       map[string]bool `json:"stages"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (p Pipeline) MarshalJSON() ([]byte, error) {
	return json.Marshal(pipelineJSON{
		ID:           p.ID,
		OwnerID:      p.Key.OwnerID,
		PipelineType: p.Key.Type,
		ResumeID:     p.Key.ResumeID,
		Stages:       p.StageFlags(),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	})
}

func NewPipeline(id string, key PipelineKey, now time.Time) *Pipeline {
	now = now.UTC()
	return &Pipeline{
		ID:                 id,
		Key:                key,
		Stages:             map[Stage]bool{},
		CollaboratorStages: map[CollaboratorStage]bool{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// StageFlags returns the combined string-keyed view that storage persists.
func (p Pipeline) StageFlags() map[string]bool {
	out := make(map[string]bool, len(p.Stages)+len(p.CollaboratorStages))
	for k, v := range p.CollaboratorStages {
		out[string(k)] = v
	}
	for k, v := range p.Stages {
		out[string(k)] = v
	}
	return out
}

// ApplyStageFlags splits a persisted flag map back into both vocabularies.
func (p *Pipeline) ApplyStageFlags(flags map[string]bool) {
	if p.Stages == nil {
		p.Stages = map[Stage]bool{}
	}
	if p.CollaboratorStages == nil {
		p.CollaboratorStages = map[CollaboratorStage]bool{}
	}
	for name, v := range flags {
		if s := Stage(name); s.Valid() {
			p.Stages[s] = v
			continue
		}
		p.CollaboratorStages[CollaboratorStage(name)] = v
	}
}

func (p Pipeline) Flag(name string) bool {
	if s := Stage(name); s.Valid() {
		return p.Stages[s]
	}
	return p.CollaboratorStages[CollaboratorStage(name)]
}

// IsComplete reports whether an interview pipeline is finished from the
// user's point of view, which is also when it becomes deletable.
func (p Pipeline) IsComplete() bool {
	return p.Key.Type == PipelineInterview && p.CollaboratorStages[StageTailoringComplete]
}

type StageProgress struct {
	Name string `json:"name"`
	Done bool   `json:"done"`
}

type PipelineProgress struct {
	PipelineID string          `json:"pipeline_id"`
	Key        PipelineKey     `json:"key"`
	Stages     []StageProgress `json:"stages"`
	Percent    int             `json:"percent"`
	Deletable  bool            `json:"deletable"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (p Pipeline) Progress() PipelineProgress {
	stages := make([]StageProgress, 0, len(DisplayStages))
	done := 0
	for _, name := range DisplayStages {
		flag := p.Flag(name)
		if flag {
			done++
		}
		stages = append(stages, StageProgress{Name: name, Done: flag})
	}
	return PipelineProgress{
		PipelineID: p.ID,
		Key:        p.Key,
		Stages:     stages,
		Percent:    done * 100 / len(DisplayStages),
		Deletable:  p.IsComplete(),
		UpdatedAt:  p.UpdatedAt,
	}
}
