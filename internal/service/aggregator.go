package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/timmy/jobscout/internal/domain"
	"github.com/timmy/jobscout/internal/logger"
	"github.com/timmy/jobscout/internal/source"
	"github.com/timmy/jobscout/internal/source/feed"
	"github.com/timmy/jobscout/internal/source/remoteok"
)

// DefaultSourceTimeout bounds a single source fetch when neither the
// source nor the configuration sets one.
const DefaultSourceTimeout = 30 * time.Second

// BoundSource is a source with its fetch timeout.
type BoundSource struct {
	Source  source.Source
	Timeout time.Duration
}

// BuildSources turns enabled specs into adapters. Unknown types and
// incomplete specs are skipped with a warning.
func BuildSources(ctx context.Context, specs []domain.SourceSpec, client *source.Client) []BoundSource {
	log := logger.FromContext(ctx)
	var out []BoundSource
	for _, spec := range specs {
		if !spec.Enabled {
			continue
		}
		var src source.Source
		switch spec.Type {
		case domain.SourceTypeRemoteOK:
			src = remoteok.NewAdapter(spec.Name, spec.URL, client)
		case domain.SourceTypeRSS, domain.SourceTypeGreenhouse, domain.SourceTypeLever:
			a, err := feed.NewAdapter(feed.Config{
				Kind:        feed.Kind(spec.Type),
				Name:        spec.Name,
				URL:         spec.URL,
				CompanySlug: spec.CompanySlug,
			}, client)
			if err != nil {
				log.WithError(err).Warnf("Skipping source %s", spec.DisplayName())
				continue
			}
			src = a
		default:
			log.Warnf("Unknown source type %q for %s, skipping", spec.Type, spec.DisplayName())
			continue
		}
		out = append(out, BoundSource{Source: src, Timeout: spec.Timeout})
	}
	return out
}

// Aggregator fetches every source concurrently.
type Aggregator struct {
	defaultTimeout time.Duration
}

// NewAggregator creates an aggregator with the given per-source timeout.
func NewAggregator(defaultTimeout time.Duration) *Aggregator {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultSourceTimeout
	}
	return &Aggregator{defaultTimeout: defaultTimeout}
}

// FetchAll runs every source under its own timeout. A failing source is
// recorded in the returned errors and does not affect the others.
// Parameters:
//   - ctx: parent context for all fetches.
//   - sources: sources to fetch.
// Returns:
//   - []*domain.Job: postings from all sources that succeeded.
//   - []error: one entry per failed source.
func (a *Aggregator) FetchAll(ctx context.Context, sources []BoundSource) ([]*domain.Job, []error) {
	var (
		mu   sync.Mutex
		jobs []*domain.Job
		errs []error
	)

	var g errgroup.Group
	for _, bs := range sources {
		g.Go(func() error {
			timeout := bs.Timeout
			if timeout <= 0 {
				timeout = a.defaultTimeout
			}
			name := bs.Source.GetDisplayName()
			sctx := logger.SetSource(ctx, bs.Source.GetSourceID())
			fctx, cancel := context.WithTimeout(sctx, timeout)
			defer cancel()

			start := time.Now()
			fetched, err := fetchSafely(fctx, bs.Source)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.FromContext(sctx).WithError(err).Errorf("Failed to fetch %s", name)
				errs = append(errs, fmt.Errorf("source %s: %w", name, err))
				return nil
			}
			logger.With(logger.Fields{logger.FieldSource: bs.Source.GetSourceID()}).
				WithDuration(time.Since(start)).
				WithCount(len(fetched)).
				Info(sctx, "Fetched %d jobs from %s", len(fetched), name)
			jobs = append(jobs, fetched...)
			return nil
		})
	}
	_ = g.Wait()

	return jobs, errs
}

// fetchSafely converts a panicking adapter into an error.
func fetchSafely(ctx context.Context, src source.Source) (jobs []*domain.Job, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return src.Fetch(ctx)
}
