package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

// PipelineRepository stores stage flags as a JSONB object. Stage merges run as
// a single upsert statement so concurrent writers never lose each other's flags.
type PipelineRepository struct {
	db *sql.DB
}

func NewPipelineRepository(db *sql.DB) *PipelineRepository {
	return &PipelineRepository{db: db}
}

const pipelineColumns = `id, owner_id, pipeline_type, resume_id, stages, created_at, updated_at`

func (r *PipelineRepository) Ensure(ctx context.Context, seed *domain.Pipeline) (*domain.Pipeline, error) {
	row := r.db.QueryRowContext(ctx, `
INSERT INTO pipelines (id, owner_id, pipeline_type, resume_id, stages, created_at, updated_at)
VALUES ($1,$2,$3,$4,'{}'::jsonb,$5,$5)
ON CONFLICT (owner_id, pipeline_type, resume_id) DO UPDATE SET owner_id = EXCLUDED.owner_id
RETURNING `+pipelineColumns,
		seed.ID, seed.Key.OwnerID, string(seed.Key.Type), seed.Key.ResumeID, seed.CreatedAt)
	p, err := scanPipeline(row)
	if err != nil {
		return nil, fmt.Errorf("ensure pipeline: %w", err)
	}
	return &p, nil
}

func (r *PipelineRepository) MergeStage(ctx context.Context, seed *domain.Pipeline, stage string, value bool) (*domain.Pipeline, error) {
	row := r.db.QueryRowContext(ctx, `
INSERT INTO pipelines (id, owner_id, pipeline_type, resume_id, stages, created_at, updated_at)
VALUES ($1,$2,$3,$4,jsonb_build_object($5::text, $6::boolean),$7,$7)
ON CONFLICT (owner_id, pipeline_type, resume_id) DO UPDATE
SET stages = pipelines.stages || jsonb_build_object($5::text, $6::boolean),
    updated_at = EXCLUDED.updated_at
RETURNING `+pipelineColumns,
		seed.ID, seed.Key.OwnerID, string(seed.Key.Type), seed.Key.ResumeID, stage, value, seed.UpdatedAt)
	p, err := scanPipeline(row)
	if err != nil {
		return nil, fmt.Errorf("merge pipeline stage: %w", err)
	}
	return &p, nil
}

func (r *PipelineRepository) Get(ctx context.Context, key domain.PipelineKey) (*domain.Pipeline, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+pipelineColumns+`
FROM pipelines
WHERE owner_id = $1 AND pipeline_type = $2 AND resume_id = $3
`, key.OwnerID, string(key.Type), key.ResumeID)
	p, err := scanPipeline(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get pipeline", fmt.Errorf("pipeline %s", key))
		}
		return nil, fmt.Errorf("get pipeline: %w", err)
	}
	return &p, nil
}

func (r *PipelineRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Pipeline, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+pipelineColumns+` FROM pipelines WHERE owner_id = $1 ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list pipelines: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Pipeline, 0)
	for rows.Next() {
		p, err := scanPipeline(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pipeline: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pipelines: %w", err)
	}
	return out, nil
}

func scanPipeline(row rowScanner) (domain.Pipeline, error) {
	var (
		p            domain.Pipeline
		pipelineType string
		stagesRaw    []byte
	)
	if err := row.Scan(&p.ID, &p.Key.OwnerID, &pipelineType, &p.Key.ResumeID, &stagesRaw, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Pipeline{}, err
	}
	p.Key.Type = domain.PipelineType(pipelineType)
	flags := map[string]bool{}
	if len(stagesRaw) > 0 {
		if err := json.Unmarshal(stagesRaw, &flags); err != nil {
			return domain.Pipeline{}, fmt.Errorf("decode stages: %w", err)
		}
	}
	p.ApplyStageFlags(flags)
	return p, nil
}
