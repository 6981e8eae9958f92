package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

type ResumeRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewResumeRepository(db *sql.DB) *ResumeRepository {
	return &ResumeRepository{db: db, now: time.Now}
}

const resumeColumns = `id, owner_id, filename, mime_type, storage_path, status, original_text, parsed_summary, tailored_versions, processing_errors, created_at, updated_at`

func (r *ResumeRepository) Create(ctx context.Context, resume *domain.Resume) error {
	versions, err := json.Marshal(nonNilVersions(resume.TailoredVersions))
	if err != nil {
		return fmt.Errorf("marshal tailored versions: %w", err)
	}
	processingErrors, err := json.Marshal(nonNilStrings(resume.ProcessingErrors))
	if err != nil {
		return fmt.Errorf("marshal processing errors: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO resumes (id, owner_id, filename, mime_type, storage_path, status, original_text, parsed_summary, tailored_versions, processing_errors, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`, resume.ID, resume.OwnerID, resume.Filename, resume.MimeType, resume.StoragePath, string(resume.Status),
		resume.OriginalText, resume.ParsedSummary, versions, processingErrors, resume.CreatedAt, resume.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert resume: %w", err)
	}
	return nil
}

func (r *ResumeRepository) GetByID(ctx context.Context, id string) (*domain.Resume, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+resumeColumns+` FROM resumes WHERE id = $1`, id)
	resume, err := scanResume(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get resume", fmt.Errorf("resume %s", id))
		}
		return nil, fmt.Errorf("get resume: %w", err)
	}
	return &resume, nil
}

func (r *ResumeRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Resume, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+resumeColumns+` FROM resumes WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Resume, 0)
	for rows.Next() {
		resume, err := scanResume(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resume: %w", err)
		}
		out = append(out, resume)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resumes: %w", err)
	}
	return out, nil
}

// UpdateStatus sets the status and, when errMessage is set, appends it to
// processing_errors in the same statement.
func (r *ResumeRepository) UpdateStatus(ctx context.Context, id string, status domain.ResumeStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE resumes
SET status = $2,
    processing_errors = CASE WHEN $3::text = '' THEN processing_errors ELSE processing_errors || jsonb_build_array($3::text) END,
    updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, r.now().UTC())
	if err != nil {
		return fmt.Errorf("update resume status: %w", err)
	}
	return expectOneRow(res, "update resume status", id)
}

func (r *ResumeRepository) SaveParsedText(ctx context.Context, id, originalText, parsedSummary string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE resumes SET original_text = $2, parsed_summary = $3, updated_at = $4 WHERE id = $1
`, id, originalText, parsedSummary, r.now().UTC())
	if err != nil {
		return fmt.Errorf("save parsed text: %w", err)
	}
	return expectOneRow(res, "save parsed text", id)
}

func (r *ResumeRepository) AppendTailoredVersion(ctx context.Context, id string, version domain.TailoredVersion) error {
	payload, err := json.Marshal([]domain.TailoredVersion{version})
	if err != nil {
		return fmt.Errorf("marshal tailored version: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE resumes SET tailored_versions = tailored_versions || $2::jsonb, updated_at = $3 WHERE id = $1
`, id, payload, r.now().UTC())
	if err != nil {
		return fmt.Errorf("append tailored version: %w", err)
	}
	return expectOneRow(res, "append tailored version", id)
}

func scanResume(row rowScanner) (domain.Resume, error) {
	var (
		resume           domain.Resume
		status           string
		versionsRaw      []byte
		processingErrRaw []byte
	)
	if err := row.Scan(
		&resume.ID,
		&resume.OwnerID,
		&resume.Filename,
		&resume.MimeType,
		&resume.StoragePath,
		&status,
		&resume.OriginalText,
		&resume.ParsedSummary,
		&versionsRaw,
		&processingErrRaw,
		&resume.CreatedAt,
		&resume.UpdatedAt,
	); err != nil {
		return domain.Resume{}, err
	}
	resume.Status = domain.ResumeStatus(status)
	resume.TailoredVersions = []domain.TailoredVersion{}
	if len(versionsRaw) > 0 {
		if err := json.Unmarshal(versionsRaw, &resume.TailoredVersions); err != nil {
			return domain.Resume{}, fmt.Errorf("decode tailored versions: %w", err)
		}
	}
	resume.ProcessingErrors = []string{}
	if len(processingErrRaw) > 0 {
		if err := json.Unmarshal(processingErrRaw, &resume.ProcessingErrors); err != nil {
			return domain.Resume{}, fmt.Errorf("decode processing errors: %w", err)
		}
	}
	return resume, nil
}

func expectOneRow(res sql.Result, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, op, fmt.Errorf("id %s", id))
	}
	return nil
}

func nonNilVersions(v []domain.TailoredVersion) []domain.TailoredVersion {
	if v == nil {
		return []domain.TailoredVersion{}
	}
	return v
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
