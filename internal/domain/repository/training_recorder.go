package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"farm_service/internal/domain/model"
)

type TrainingRunRecorder interface {
	RecordTrainingRun(ctx context.Context, run model.TrainingRun) error
}

type SQLTrainingRecorder struct {
	db *sqlx.DB
}

func NewSQLTrainingRecorder(db *sqlx.DB) *SQLTrainingRecorder {
	return &SQLTrainingRecorder{db: db}
}

func (r *SQLTrainingRecorder) RecordTrainingRun(ctx context.Context, run model.TrainingRun) error {
	const query = `
		INSERT INTO training_runs (
			run_id, source, row_count,
			low_count, medium_count, high_count,
			trees, duration_ms, trained_at
		) VALUES (
			:run_id, :source, :row_count,
			:low_count, :medium_count, :high_count,
			:trees, :duration_ms, :trained_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return classify(fmt.Errorf("failed to record training run: %w", err))
	}
	return nil
}

// TrainingRuns returns the most recent runs, newest first.
func (r *SQLTrainingRecorder) TrainingRuns(ctx context.Context, limit int) ([]model.TrainingRun, error) {
	if limit <= 0 {
		limit = 10
	}
	query := r.db.Rebind(`
		SELECT run_id, source, row_count, low_count, medium_count, high_count,
			trees, duration_ms, trained_at
		FROM training_runs
		ORDER BY trained_at DESC
		LIMIT ?`)

	var runs []model.TrainingRun
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, classify(fmt.Errorf("failed to query training runs: %w", err))
	}
	return runs, nil
}
