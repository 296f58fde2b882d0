package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fiapx/fiapx-lesson-service/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RunRepository struct {
	pool *pgxpool.Pool
}

func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

func (r *RunRepository) Create(ctx context.Context, run *entity.Run) error {
	query := `
		INSERT INTO generation_runs (
			id, user_id, video_key, output_key, mode, strategy, status,
			failed_stage, sampled_frames, kept_frames, duration_minutes,
			error_message, created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`

	_, err := r.pool.Exec(ctx, query,
		run.ID, run.UserID, run.VideoKey, run.OutputKey,
		string(run.Mode), run.Strategy, string(run.State), string(run.FailedStage),
		run.SampledFrames, run.KeptFrames, run.DurationMinutes,
		run.ErrorMessage, run.CreatedAt, run.UpdatedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *RunRepository) Update(ctx context.Context, run *entity.Run) error {
	query := `
		UPDATE generation_runs SET
			status=$2, failed_stage=$3, output_key=$4, sampled_frames=$5,
			kept_frames=$6, duration_minutes=$7, error_message=$8,
			updated_at=$9, completed_at=$10
		WHERE id=$1`

	tag, err := r.pool.Exec(ctx, query,
		run.ID, string(run.State), string(run.FailedStage), run.OutputKey,
		run.SampledFrames, run.KeptFrames, run.DurationMinutes,
		run.ErrorMessage, run.UpdatedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update run %s: %w", run.ID, entity.ErrRunNotFound)
	}
	return nil
}

func (r *RunRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	query := `
		SELECT id, user_id, video_key, output_key, mode, strategy, status,
			failed_stage, sampled_frames, kept_frames, duration_minutes,
			error_message, created_at, updated_at, completed_at
		FROM generation_runs WHERE id=$1`

	run := &entity.Run{}
	var mode, status, failedStage string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.UserID, &run.VideoKey, &run.OutputKey,
		&mode, &run.Strategy, &status, &failedStage,
		&run.SampledFrames, &run.KeptFrames, &run.DurationMinutes,
		&run.ErrorMessage, &run.CreatedAt, &run.UpdatedAt, &run.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entity.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find run by id: %w", err)
	}
	run.Mode = entity.OutputMode(mode)
	run.State = entity.RunState(status)
	run.FailedStage = entity.RunState(failedStage)
	return run, nil
}
