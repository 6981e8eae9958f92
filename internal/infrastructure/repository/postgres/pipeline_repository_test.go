package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

func pipelineRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "owner_id", "pipeline_type", "resume_id", "stages", "created_at", "updated_at"})
}

func TestPipelineRepositoryMergeStageIsSingleUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()
	repo := NewPipelineRepository(db)

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	key := domain.PipelineKey{OwnerID: "user-1", Type: domain.PipelineInterview, ResumeID: "resume-1"}
	seed := domain.NewPipeline("p-new", key, now)

	mock.ExpectQuery(`ON CONFLICT \(owner_id, pipeline_type, resume_id\) DO UPDATE\s+SET stages = pipelines.stages \|\| jsonb_build_object`).
		WithArgs("p-new", "user-1", "interview", "resume-1", "aptitude", true, now).
		WillReturnRows(pipelineRows().AddRow("p-1", "user-1", "interview", "resume-1", []byte(`{"tailored":true,"aptitude":true}`), now, now))

	p, err := repo.MergeStage(context.Background(), seed, "aptitude", true)
	if err != nil {
		t.Fatalf("MergeStage() error = %v", err)
	}
	if p.ID != "p-1" {
		t.Fatalf("expected existing pipeline id, got %s", p.ID)
	}
	if !p.Stages[domain.StageTailored] || !p.CollaboratorStages[domain.StageAptitude] {
		t.Fatalf("expected both vocabularies populated, got %+v / %+v", p.Stages, p.CollaboratorStages)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPipelineRepositoryEnsureReturnsStoredRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()
	repo := NewPipelineRepository(db)

	now := time.Now().UTC()
	key := domain.PipelineKey{OwnerID: "user-1", Type: domain.PipelineTailoring}
	mock.ExpectQuery("INSERT INTO pipelines").
		WithArgs("p-new", "user-1", "tailoring", "", sqlmock.AnyArg()).
		WillReturnRows(pipelineRows().AddRow("p-old", "user-1", "tailoring", "", []byte(`{}`), now, now))

	p, err := repo.Ensure(context.Background(), domain.NewPipeline("p-new", key, now))
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if p.ID != "p-old" || len(p.StageFlags()) != 0 {
		t.Fatalf("unexpected pipeline %+v", p)
	}
}

func TestPipelineRepositoryGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()
	repo := NewPipelineRepository(db)

	mock.ExpectQuery("FROM pipelines").
		WithArgs("user-1", "interview", "resume-9").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.Get(context.Background(), domain.PipelineKey{OwnerID: "user-1", Type: domain.PipelineInterview, ResumeID: "resume-9"})
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
