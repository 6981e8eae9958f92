package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

type InterviewRepository struct {
	db *sql.DB
}

func NewInterviewRepository(db *sql.DB) *InterviewRepository {
	return &InterviewRepository{db: db}
}

const interviewColumns = `id, owner_id, resume_id, interview_type, status, job_description, questions, session, performance, created_at, updated_at`

type sessionPayload struct {
	questions   []byte
	timing      []byte
	performance []byte
}

func encodeSession(s *domain.InterviewSession) (sessionPayload, error) {
	questions := s.Questions
	if questions == nil {
		questions = []domain.Question{}
	}
	q, err := json.Marshal(questions)
	if err != nil {
		return sessionPayload{}, fmt.Errorf("marshal questions: %w", err)
	}
	timing, err := json.Marshal(s.Session)
	if err != nil {
		return sessionPayload{}, fmt.Errorf("marshal session timing: %w", err)
	}
	var perf []byte
	if s.Performance != nil {
		perf, err = json.Marshal(s.Performance)
		if err != nil {
			return sessionPayload{}, fmt.Errorf("marshal performance: %w", err)
		}
	}
	return sessionPayload{questions: q, timing: timing, performance: perf}, nil
}

func (r *InterviewRepository) Create(ctx context.Context, session *domain.InterviewSession) error {
	payload, err := encodeSession(session)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO interview_sessions (id, owner_id, resume_id, interview_type, status, job_description, questions, session, performance, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`, session.ID, session.OwnerID, session.ResumeID, string(session.Type), string(session.Status), session.JobDescription,
		payload.questions, payload.timing, nullableJSON(payload.performance), session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert interview session: %w", err)
	}
	return nil
}

func (r *InterviewRepository) GetByID(ctx context.Context, id string) (*domain.InterviewSession, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+interviewColumns+` FROM interview_sessions WHERE id = $1`, id)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get interview session", fmt.Errorf("session %s", id))
		}
		return nil, fmt.Errorf("get interview session: %w", err)
	}
	return &session, nil
}

// Update rewrites the whole session document. Rows already completed or
// cancelled are never rewritten; a write against one reports ErrInvalidState.
func (r *InterviewRepository) Update(ctx context.Context, session *domain.InterviewSession) error {
	payload, err := encodeSession(session)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE interview_sessions
SET status = $2, job_description = $3, questions = $4, session = $5, performance = $6, updated_at = $7
WHERE id = $1 AND status NOT IN ($8, $9)
`, session.ID, string(session.Status), session.JobDescription, payload.questions, payload.timing,
		nullableJSON(payload.performance), session.UpdatedAt,
		string(domain.InterviewCompleted), string(domain.InterviewCancelled))
	if err != nil {
		return fmt.Errorf("update interview session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update interview session rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	return r.explainSkippedUpdate(ctx, session.ID)
}

func (r *InterviewRepository) explainSkippedUpdate(ctx context.Context, id string) error {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM interview_sessions WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WrapError(domain.ErrNotFound, "update interview session", fmt.Errorf("session %s", id))
	}
	if err != nil {
		return fmt.Errorf("update interview session: read status: %w", err)
	}
	return domain.WrapError(domain.ErrInvalidState, "update interview session", fmt.Errorf("session %s is already %s", id, status))
}

func (r *InterviewRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.InterviewSession, error) {
	return r.list(ctx, `SELECT `+interviewColumns+` FROM interview_sessions WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
}

func (r *InterviewRepository) ListByResume(ctx context.Context, resumeID string) ([]domain.InterviewSession, error) {
	return r.list(ctx, `SELECT `+interviewColumns+` FROM interview_sessions WHERE resume_id = $1 ORDER BY created_at ASC`, resumeID)
}

func (r *InterviewRepository) list(ctx context.Context, query string, arg string) ([]domain.InterviewSession, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list interview sessions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.InterviewSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interview session: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interview sessions: %w", err)
	}
	return out, nil
}

func scanSession(row rowScanner) (domain.InterviewSession, error) {
	var (
		s              domain.InterviewSession
		interviewType  string
		status         string
		questionsRaw   []byte
		timingRaw      []byte
		performanceRaw []byte
	)
	if err := row.Scan(
		&s.ID,
		&s.OwnerID,
		&s.ResumeID,
		&interviewType,
		&status,
		&s.JobDescription,
		&questionsRaw,
		&timingRaw,
		&performanceRaw,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return domain.InterviewSession{}, err
	}
	s.Type = domain.InterviewType(interviewType)
	s.Status = domain.InterviewStatus(status)
	s.Questions = []domain.Question{}
	if len(questionsRaw) > 0 {
		if err := json.Unmarshal(questionsRaw, &s.Questions); err != nil {
			return domain.InterviewSession{}, fmt.Errorf("decode questions: %w", err)
		}
	}
	if len(timingRaw) > 0 {
		if err := json.Unmarshal(timingRaw, &s.Session); err != nil {
			return domain.InterviewSession{}, fmt.Errorf("decode session timing: %w", err)
		}
	}
	if len(performanceRaw) > 0 {
		var perf domain.PerformanceSummary
		if err := json.Unmarshal(performanceRaw, &perf); err != nil {
			return domain.InterviewSession{}, fmt.Errorf("decode performance: %w", err)
		}
		s.Performance = &perf
	}
	return s, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
