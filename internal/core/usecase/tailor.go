package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
	"github.com/Phani130825/ask-a-coach/internal/core/ports"
)

type TailorResumeUseCase struct {
	resumes ports.ResumeRepository
	tracker ports.PipelineTracker
	gateway gatewayCaller
	catalog ports.JobCatalog
	fetcher ports.JobPostingFetcher
	logger  *zap.Logger
	now     Clock
}

func NewTailorResumeUseCase(
	resumes ports.ResumeRepository,
	tracker ports.PipelineTracker,
	gateway ports.AIGateway,
	catalog ports.JobCatalog,
	fetcher ports.JobPostingFetcher,
	logger *zap.Logger,
	clock Clock,
	gatewayTimeout time.Duration,
) *TailorResumeUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TailorResumeUseCase{
		resumes: resumes,
		tracker: tracker,
		gateway: newGatewayCaller(gateway, gatewayTimeout),
		catalog: catalog,
		fetcher: fetcher,
		logger:  logger,
		now:     clockOrDefault(clock),
	}
}

func (uc *TailorResumeUseCase) Tailor(ctx context.Context, cmd domain.TailorCommand) (*domain.TailoredVersion, error) {
	resume, err := uc.resumes.GetByID(ctx, cmd.ResumeID)
	if err != nil {
		return nil, fmt.Errorf("fetch resume: %w", err)
	}
	if resume.OwnerID != cmd.OwnerID {
		return nil, domain.WrapError(domain.ErrNotFound, "fetch resume", fmt.Errorf("resume %s", cmd.ResumeID))
	}
	if resume.OriginalText == "" {
		return nil, domain.WrapError(domain.ErrInvalidState, "tailor resume", fmt.Errorf("resume %s is %s", resume.ID, resume.Status))
	}

	jd, err := uc.jobDescription(ctx, cmd)
	if err != nil {
		return nil, err
	}
	template := strings.TrimSpace(cmd.TemplateType)
	if template == "" {
		template = uc.catalog.TemplateType()
	}

	content, err := uc.gateway.tailor(ctx, domain.TailorRequest{
		ResumeText:     resume.OriginalText,
		JobDescription: jd,
		TemplateType:   template,
	})
	if err != nil {
		return nil, err
	}
	version := domain.NewTailoredVersion(jd, content, uc.now())
	if err := uc.resumes.AppendTailoredVersion(ctx, resume.ID, version); err != nil {
		return nil, fmt.Errorf("append tailored version: %w", err)
	}

	key := domain.PipelineKey{OwnerID: resume.OwnerID, Type: domain.PipelineTailoring, ResumeID: resume.ID}
	if _, err := uc.tracker.SetStage(ctx, key, domain.StageTailored, true); err != nil {
		uc.logger.Warn("tailor_stage_write_failed", zap.String("resume_id", resume.ID), zap.Error(err))
	}
	return &version, nil
}

func (uc *TailorResumeUseCase) jobDescription(ctx context.Context, cmd domain.TailorCommand) (string, error) {
	if jd := strings.TrimSpace(cmd.JobDescription); jd != "" {
		return jd, nil
	}
	if url := strings.TrimSpace(cmd.JobURL); url != "" {
		if uc.fetcher == nil {
			return "", domain.WrapError(domain.ErrValidation, "fetch job posting", errors.New("job url fetching is disabled"))
		}
		text, err := uc.fetcher.Fetch(ctx, url)
		if err != nil {
			return "", fmt.Errorf("fetch job posting: %w", err)
		}
		return text, nil
	}
	return uc.catalog.GenericJobDescription(), nil
}
