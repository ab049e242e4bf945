package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/timmy/jobscout/internal/domain"
	"github.com/timmy/jobscout/internal/logger"
	"github.com/timmy/jobscout/internal/repository"
)

// DefaultSemanticThreshold is the cosine similarity at or above which two
// descriptions are the same opening.
const DefaultSemanticThreshold float32 = 0.92

// semanticPrefixRunes bounds the description part of the embedded text.
const semanticPrefixRunes = 500

// DuplicateReason names the tier that caught a duplicate.
type DuplicateReason string

const (
	DuplicateNone     DuplicateReason = ""
	DuplicateURL      DuplicateReason = "url"
	DuplicateFuzzyKey DuplicateReason = "fuzzy_key"
	DuplicateSemantic DuplicateReason = "semantic"
)

// JobStore is the persistent exact/fuzzy index.
type JobStore interface {
	ExistsByURL(ctx context.Context, url string) (bool, error)
	ExistsByDedupeKey(ctx context.Context, key string) (bool, error)
	InsertIfNew(ctx context.Context, job *domain.Job) (bool, error)
}

// SemanticIndex is the append-only store of description vectors.
type SemanticIndex interface {
	Add(ctx context.Context, job *domain.Job, vector []float32) error
	Nearest(ctx context.Context, vector []float32) (*repository.VectorMatch, error)
}

// DedupeEngine runs the three duplicate checks and persists new postings.
// Check and insert happen under one lock, so two postings of the same run
// cannot both be stored as new when they duplicate each other.
type DedupeEngine struct {
	store     JobStore
	index     SemanticIndex
	embedder  Embedder
	threshold float32

	mu sync.Mutex
}

// NewDedupeEngine creates an engine. A nil embedder or index disables the
// semantic tier.
func NewDedupeEngine(store JobStore, index SemanticIndex, embedder Embedder, threshold float32) *DedupeEngine {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSemanticThreshold
	}
	return &DedupeEngine{
		store:     store,
		index:     index,
		embedder:  embedder,
		threshold: threshold,
	}
}

// SemanticText is the text embedded for job.
func SemanticText(job *domain.Job) string {
	return job.Title + " " + job.Company + " " + domain.TruncateRunes(job.Description, semanticPrefixRunes)
}

// IsDuplicate reports whether job is already known, and which tier said so.
func (e *DedupeEngine) IsDuplicate(ctx context.Context, job *domain.Job) (bool, DuplicateReason, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	reason, _, err := e.check(ctx, job)
	return reason != DuplicateNone, reason, err
}

// check runs the tiers in order and returns the embedding it computed, if any,
// so a later insert can reuse it.
func (e *DedupeEngine) check(ctx context.Context, job *domain.Job) (DuplicateReason, []float32, error) {
	exists, err := e.store.ExistsByURL(ctx, job.URL)
	if err != nil {
		return DuplicateNone, nil, fmt.Errorf("url lookup: %w", err)
	}
	if exists {
		return DuplicateURL, nil, nil
	}

	exists, err = e.store.ExistsByDedupeKey(ctx, job.FuzzyKey())
	if err != nil {
		return DuplicateNone, nil, fmt.Errorf("dedupe key lookup: %w", err)
	}
	if exists {
		return DuplicateFuzzyKey, nil, nil
	}

	if e.embedder == nil || e.index == nil || strings.TrimSpace(job.Description) == "" {
		return DuplicateNone, nil, nil
	}

	log := logger.FromContext(ctx).WithField(logger.FieldJobID, job.JobID())
	vector, err := e.embedder.Embed(ctx, SemanticText(job))
	if err != nil {
		log.WithError(err).Warn("Embedding failed, skipping semantic check")
		return DuplicateNone, nil, nil
	}
	match, err := e.index.Nearest(ctx, vector)
	if err != nil {
		log.WithError(err).Warn("Semantic index search failed, skipping semantic check")
		return DuplicateNone, vector, nil
	}
	if match != nil && match.Score >= e.threshold {
		log.WithFields(logger.Fields{
			"similar_job_id": match.JobID,
			"similarity":     match.Score,
		}).Debug("Semantic duplicate")
		return DuplicateSemantic, nil, nil
	}
	return DuplicateNone, vector, nil
}

// PersistIfNew stores job when no tier reports a duplicate.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - job: posting to persist; it is stamped with runDate, ID and DedupeKey.
//   - runDate: YYYY-MM-DD of the current run.
// Returns:
//   - bool: true if the posting was newly inserted.
//   - error: non-nil if a store lookup or insert failed.
func (e *DedupeEngine) PersistIfNew(ctx context.Context, job *domain.Job, runDate string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	reason, vector, err := e.check(ctx, job)
	if err != nil {
		return false, err
	}
	if reason != DuplicateNone {
		logger.FromContext(ctx).WithFields(logger.Fields{
			logger.FieldJobID: job.JobID(),
			"reason":          string(reason),
		}).Debugf("Duplicate: %s at %s", job.Title, job.Company)
		return false, nil
	}

	job.RunDate = runDate
	inserted, err := e.store.InsertIfNew(ctx, job)
	if err != nil {
		return false, fmt.Errorf("insert job: %w", err)
	}
	if !inserted {
		return false, nil
	}

	if vector != nil {
		if err := e.index.Add(ctx, job, vector); err != nil {
			logger.FromContext(ctx).WithError(err).WithField(logger.FieldJobID, job.ID).Warn("Failed to add job to semantic index")
		}
	}
	return true, nil
}

// DedupeResult summarizes one DeduplicateAndPersist call.
type DedupeResult struct {
	New        []*domain.Job
	Duplicates int
	Errors     []error
}

// DeduplicateAndPersist persists clones of jobs that are new, in order.
func (e *DedupeEngine) DeduplicateAndPersist(ctx context.Context, jobs []*domain.Job, runDate string) DedupeResult {
	var res DedupeResult
	for _, j := range jobs {
		job := j.Clone()
		inserted, err := e.PersistIfNew(ctx, job, runDate)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("%s at %s: %w", job.Title, job.Company, err))
			continue
		}
		if !inserted {
			res.Duplicates++
			continue
		}
		res.New = append(res.New, job)
	}
	return res
}
