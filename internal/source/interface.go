package source

import (
	"context"

	"github.com/timmy/jobscout/internal/domain"
)

// Source defines the interface for job posting sources.
type Source interface {
	// GetSourceID returns the unique identifier for this source.
	// Parameters: none.
	// Returns:
	//   - string: stable source identifier.
	GetSourceID() string

	// GetDisplayName returns a human-readable name for this source.
	// Parameters: none.
	// Returns:
	//   - string: display-friendly source name, stored on every job.
	GetDisplayName() string

	// Fetch retrieves the current postings of the source.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	// Returns:
	//   - []*domain.Job: parsed postings; items that fail to parse are skipped.
	//   - error: non-nil if the source could not be fetched or decoded.
	Fetch(ctx context.Context) ([]*domain.Job, error)
}
