package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
	"github.com/Phani130825/ask-a-coach/internal/core/ports"
)

type IngestResumeUseCase struct {
	repo    ports.ResumeRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	tracker ports.PipelineTracker
	logger  *zap.Logger
	now     Clock
}

func NewIngestResumeUseCase(
	repo ports.ResumeRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	tracker ports.PipelineTracker,
	logger *zap.Logger,
	clock Clock,
) *IngestResumeUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestResumeUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
		tracker: tracker,
		logger:  logger,
		now:     clockOrDefault(clock),
	}
}

func (uc *IngestResumeUseCase) Upload(
	ctx context.Context,
	ownerID, filename, mimeType string,
	body io.Reader,
) (*domain.Resume, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domain.WrapError(domain.ErrValidation, "upload resume", errors.New("owner id is required"))
	}
	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := uc.now()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	resume := &domain.Resume{
		ID:               id,
		OwnerID:          ownerID,
		Filename:         filename,
		MimeType:         mimeType,
		StoragePath:      storageKey,
		Status:           domain.ResumeUploaded,
		TailoredVersions: []domain.TailoredVersion{},
		ProcessingErrors: []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := uc.repo.Create(ctx, resume); err != nil {
		return nil, fmt.Errorf("create resume metadata: %w", err)
	}

	key := domain.PipelineKey{OwnerID: ownerID, Type: domain.PipelineInterview, ResumeID: id}
	if _, err := uc.tracker.SetCollaboratorStage(ctx, key, domain.StageUploaded, true); err != nil {
		uc.logger.Warn("ingest_stage_write_failed", zap.String("resume_id", id), zap.Error(err))
	}

	if err := uc.queue.PublishResumeIngested(ctx, resume.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	return resume, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "resume.bin"
	}
	return base
}
