package repository

import (
	"context"

	"github.com/timmy/jobscout/internal/domain"
	"gorm.io/gorm"
)

// RunRepository stores one row per pipeline run.
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new RunRepository.
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create appends a run log row. Rows are never updated.
func (r *RunRepository) Create(ctx context.Context, run *domain.RunLog) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// GetByID retrieves a run by its numeric id.
func (r *RunRepository) GetByID(ctx context.Context, id uint) (*domain.RunLog, error) {
	var run domain.RunLog
	if err := r.db.WithContext(ctx).First(&run, "run_id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRecent returns the latest runs, newest first.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]domain.RunLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []domain.RunLog
	if err := r.db.WithContext(ctx).
		Order("run_id DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
