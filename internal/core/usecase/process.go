package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
	"github.com/Phani130825/ask-a-coach/internal/core/ports"
)

const parsedSummaryLimit = 280

// ProcessResumeUseCase handles an ingestion event: it extracts text from a
// freshly uploaded resume and then hands the parsed resume to the orchestrator.
type ProcessResumeUseCase struct {
	repo         ports.ResumeRepository
	extractor    ports.TextExtractor
	orchestrator ports.Orchestrator
	logger       *zap.Logger
}

func NewProcessResumeUseCase(
	repo ports.ResumeRepository,
	extractor ports.TextExtractor,
	orchestrator ports.Orchestrator,
	logger *zap.Logger,
) *ProcessResumeUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessResumeUseCase{
		repo:         repo,
		extractor:    extractor,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

func (uc *ProcessResumeUseCase) ProcessByID(ctx context.Context, resumeID string) error {
	resume, err := uc.loadResume(ctx, resumeID)
	if err != nil {
		return err
	}

	switch resume.Status {
	case domain.ResumeUploaded, domain.ResumeParsing:
		if err := uc.parse(ctx, resume); err != nil {
			return err
		}
	case domain.ResumeError:
		uc.logger.Info("resume_processing_skipped", zap.String("resume_id", resumeID), zap.String("status", string(resume.Status)))
		return nil
	}

	report, err := uc.orchestrator.RunByResumeID(ctx, resumeID)
	if err != nil {
		return fmt.Errorf("orchestrate resume: %w", err)
	}
	if report.PartialFailure() {
		for _, f := range report.Failures() {
			uc.logger.Warn("resume_processing_partial_failure",
				zap.String("resume_id", resumeID),
				zap.String("stage", f.Label()),
				zap.String("error", f.Error),
			)
		}
	}
	return nil
}

func (uc *ProcessResumeUseCase) parse(ctx context.Context, resume *domain.Resume) error {
	if resume.Status == domain.ResumeUploaded {
		if err := uc.markStatus(ctx, resume.ID, domain.ResumeParsing, ""); err != nil {
			return fmt.Errorf("set status=parsing: %w", err)
		}
	}

	text, err := uc.extractText(ctx, resume)
	if err == nil {
		err = uc.persistText(ctx, resume.ID, text)
	}
	if err != nil {
		if failErr := uc.markFailed(ctx, resume.ID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, resume.ID, domain.ResumeParsed, ""); err != nil {
		return fmt.Errorf("set status=parsed: %w", err)
	}
	return nil
}

func (uc *ProcessResumeUseCase) loadResume(ctx context.Context, resumeID string) (*domain.Resume, error) {
	resume, err := uc.repo.GetByID(ctx, resumeID)
	if err != nil {
		return nil, fmt.Errorf("fetch resume by id: %w", err)
	}
	return resume, nil
}

func (uc *ProcessResumeUseCase) extractText(ctx context.Context, resume *domain.Resume) (string, error) {
	text, err := uc.extractor.Extract(ctx, resume)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.WrapError(domain.ErrValidation, "extract text", errors.New("empty extracted text"))
	}
	return text, nil
}

func (uc *ProcessResumeUseCase) persistText(ctx context.Context, resumeID, text string) error {
	if err := uc.repo.SaveParsedText(ctx, resumeID, text, summarize(text)); err != nil {
		return fmt.Errorf("save parsed text: %w", err)
	}
	return nil
}

func (uc *ProcessResumeUseCase) markStatus(ctx context.Context, resumeID string, status domain.ResumeStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, resumeID, status, errMessage)
}

func (uc *ProcessResumeUseCase) markFailed(ctx context.Context, resumeID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, resumeID, domain.ResumeError, processErr.Error())
}

// summarize keeps the first lines of the resume up to a short limit.
func summarize(text string) string {
	fields := strings.Fields(text)
	var b strings.Builder
	for _, f := range fields {
		if b.Len()+len(f)+1 > parsedSummaryLimit {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(f)
	}
	return b.String()
}
