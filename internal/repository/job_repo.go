package repository

import (
	"context"

	"github.com/timmy/jobscout/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobRepository persists postings that survived deduplication.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *JobRepository: repository instance bound to db.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// ExistsByURL checks whether a posting with the exact URL is stored.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - url: posting URL.
// Returns:
//   - bool: true if a record exists.
//   - error: non-nil if the lookup fails.
func (r *JobRepository) ExistsByURL(ctx context.Context, url string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Job{}).Where("url = ?", url).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistsByDedupeKey checks whether a posting with the same fuzzy key is stored.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - key: normalized "company|title" key.
// Returns:
//   - bool: true if a record exists.
//   - error: non-nil if the lookup fails.
func (r *JobRepository) ExistsByDedupeKey(ctx context.Context, key string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Job{}).Where("dedupe_key = ?", key).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertIfNew inserts job unless a row with the same id or URL exists.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - job: posting to persist; ID and DedupeKey are stamped on insert.
// Returns:
//   - bool: true if a row was inserted.
//   - error: non-nil if the insert fails for a reason other than a conflict.
func (r *JobRepository) InsertIfNew(ctx context.Context, job *domain.Job) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(job)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetByID retrieves a posting by job id.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: 16 hex char job id.
// Returns:
//   - *domain.Job: posting if found.
//   - error: gorm.ErrRecordNotFound when absent.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	var job domain.Job
	if err := r.db.WithContext(ctx).First(&job, "job_id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// JobFilter narrows List results.
type JobFilter struct {
	MatchOnly bool
	RunDate   string
	Limit     int
	Offset    int
}

// List returns stored postings, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - filter: match/run-date narrowing and pagination.
// Returns:
//   - []domain.Job: postings in the page.
//   - error: non-nil if the query fails.
func (r *JobRepository) List(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	query := r.db.WithContext(ctx).Model(&domain.Job{})
	if filter.MatchOnly {
		query = query.Where("is_match = ?", true)
	}
	if filter.RunDate != "" {
		query = query.Where("run_date = ?", filter.RunDate)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var jobs []domain.Job
	if err := query.Order("created_at DESC").Order("job_id").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// Count returns the number of stored postings.
func (r *JobRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Job{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
