package usecase

import (
	"context"
	"fmt"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
	"github.com/Phani130825/ask-a-coach/internal/core/ports"
)

// QueueRunTrigger re-enqueues a resume so the worker runs orchestration
// off the request path.
type QueueRunTrigger struct {
	resumes ports.ResumeRepository
	queue   ports.MessageQueue
}

func NewQueueRunTrigger(resumes ports.ResumeRepository, queue ports.MessageQueue) *QueueRunTrigger {
	return &QueueRunTrigger{resumes: resumes, queue: queue}
}

func (t *QueueRunTrigger) Trigger(ctx context.Context, ownerID, resumeID string) error {
	resume, err := t.resumes.GetByID(ctx, resumeID)
	if err != nil {
		return fmt.Errorf("fetch resume: %w", err)
	}
	if resume.OwnerID != ownerID {
		return domain.WrapError(domain.ErrNotFound, "trigger run", fmt.Errorf("resume %s", resumeID))
	}
	if resume.Status == domain.ResumeError {
		return domain.WrapError(domain.ErrInvalidState, "trigger run", fmt.Errorf("resume %s is %s", resumeID, resume.Status))
	}
	if err := t.queue.PublishResumeIngested(ctx, resumeID); err != nil {
		return fmt.Errorf("publish run event: %w", err)
	}
	return nil
}
