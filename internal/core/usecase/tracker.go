package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
	"github.com/Phani130825/ask-a-coach/internal/core/ports"
)

type PipelineTrackerUseCase struct {
	store ports.PipelineStore
	now   Clock
}

func NewPipelineTrackerUseCase(store ports.PipelineStore, clock Clock) *PipelineTrackerUseCase {
	return &PipelineTrackerUseCase{
		store: store,
		now:   clockOrDefault(clock),
	}
}

// Create returns the pipeline for key, creating it with no stages if needed.
func (uc *PipelineTrackerUseCase) Create(ctx context.Context, key domain.PipelineKey) (*domain.Pipeline, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	p, err := uc.store.Ensure(ctx, domain.NewPipeline(uuid.NewString(), key, uc.now()))
	if err != nil {
		return nil, fmt.Errorf("ensure pipeline %s: %w", key, err)
	}
	return p, nil
}

func (uc *PipelineTrackerUseCase) SetStage(ctx context.Context, key domain.PipelineKey, stage domain.Stage, value bool) (*domain.Pipeline, error) {
	if !stage.Valid() {
		return nil, domain.WrapError(domain.ErrValidation, "set stage", fmt.Errorf("unknown orchestrator stage %q", stage))
	}
	return uc.merge(ctx, key, string(stage), value)
}

func (uc *PipelineTrackerUseCase) SetCollaboratorStage(ctx context.Context, key domain.PipelineKey, stage domain.CollaboratorStage, value bool) (*domain.Pipeline, error) {
	parsed, err := domain.ParseCollaboratorStage(string(stage))
	if err != nil {
		return nil, err
	}
	return uc.merge(ctx, key, string(parsed), value)
}

func (uc *PipelineTrackerUseCase) Get(ctx context.Context, key domain.PipelineKey) (*domain.Pipeline, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	p, err := uc.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get pipeline %s: %w", key, err)
	}
	return p, nil
}

func (uc *PipelineTrackerUseCase) ListByOwner(ctx context.Context, ownerID string) ([]domain.Pipeline, error) {
	if ownerID == "" {
		return nil, domain.WrapError(domain.ErrValidation, "list pipelines", fmt.Errorf("owner id is required"))
	}
	items, err := uc.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list pipelines: %w", err)
	}
	return items, nil
}

func (uc *PipelineTrackerUseCase) merge(ctx context.Context, key domain.PipelineKey, stage string, value bool) (*domain.Pipeline, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	seed := domain.NewPipeline(uuid.NewString(), key, uc.now())
	p, err := uc.store.MergeStage(ctx, seed, stage, value)
	if err != nil {
		return nil, fmt.Errorf("merge stage %s on %s: %w", stage, key, err)
	}
	return p, nil
}
