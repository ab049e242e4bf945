package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/timmy/jobscout/internal/domain"
	"github.com/timmy/jobscout/internal/logger"
	"github.com/timmy/jobscout/internal/prompts"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrScoringFailed is returned when both scoring attempts fail.
	ErrScoringFailed = errors.New("scoring failed")
	// ErrEmptyResponse is returned when the backend answers with no text.
	ErrEmptyResponse = errors.New("empty llm response")
)

// Scorer assigns a ScoringResult to one posting.
type Scorer interface {
	Score(ctx context.Context, job *domain.Job, criteria domain.Criteria) (*domain.ScoringResult, error)
}

// LLMScorer scores through a Generator with a single repair attempt.
type LLMScorer struct {
	gen Generator
}

// NewLLMScorer creates a scorer over gen.
func NewLLMScorer(gen Generator) *LLMScorer {
	return &LLMScorer{gen: gen}
}

type scoreAttempt int

const (
	attemptInitial scoreAttempt = iota
	attemptRepair
	attemptFailed
)

// Score runs attempt 1, then at most one repair attempt on a malformed
// response. A backend error on attempt 1 fails immediately.
func (s *LLMScorer) Score(ctx context.Context, job *domain.Job, criteria domain.Criteria) (*domain.ScoringResult, error) {
	log := logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldJobID:   job.JobID(),
		logger.FieldCompany: job.Company,
	})

	var previous string
	var lastErr error
	state := attemptInitial
	for state != attemptFailed {
		var prompt string
		if state == attemptInitial {
			prompt = prompts.BuildScoringPrompt(criteria.PromptText(), job)
		} else {
			prompt = prompts.BuildRepairPrompt(previous)
		}

		raw, err := s.gen.Generate(ctx, prompt)
		if err == nil && strings.TrimSpace(raw) == "" {
			err = ErrEmptyResponse
		}
		if err != nil {
			lastErr = err
			log.WithError(err).Warn("LLM call failed")
			state = attemptFailed
			continue
		}

		result, err := ParseScoringResult(raw)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if state == attemptInitial {
			log.WithError(err).Infof("First scoring attempt failed for %q, retrying with repair prompt", job.Title)
			previous = raw
			state = attemptRepair
		} else {
			state = attemptFailed
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrScoringFailed, lastErr)
}

// DryRunScorer assigns a neutral match without calling any backend.
type DryRunScorer struct{}

// DryRunReason is the reason attached by DryRunScorer.
const DryRunReason = "Dry run: no LLM scoring performed"

// Score returns score 5, is_match true, low confidence.
func (DryRunScorer) Score(context.Context, *domain.Job, domain.Criteria) (*domain.ScoringResult, error) {
	return &domain.ScoringResult{
		IsMatch:    true,
		Score:      5,
		Reasons:    []string{DryRunReason},
		Flags:      []string{},
		Confidence: domain.ConfidenceLow,
	}, nil
}

// looseNumber accepts a JSON number or a string holding one.
type looseNumber float64

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = looseNumber(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("score must be a number: %s", data)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("score must be a number: %q", s)
	}
	*n = looseNumber(f)
	return nil
}

type rawScoringOutput struct {
	IsMatch    *bool        `json:"is_match"`
	Score      *looseNumber `json:"score"`
	Reasons    []string     `json:"reasons"`
	Flags      []string     `json:"flags"`
	Confidence *string      `json:"confidence"`
}

// ParseScoringResult extracts and validates the JSON object in raw.
// Unknown fields are ignored and reasons beyond MaxReasons are dropped.
func ParseScoringResult(raw string) (*domain.ScoringResult, error) {
	jsonStr := extractJSON(raw)
	if jsonStr == "" {
		return nil, errors.New("no JSON found in response")
	}

	var out rawScoringOutput
	if err := json.Unmarshal([]byte(jsonStr), &out); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if out.IsMatch == nil {
		return nil, errors.New("missing is_match")
	}
	if out.Score == nil {
		return nil, errors.New("missing score")
	}
	score := float64(*out.Score)
	if score != math.Trunc(score) {
		return nil, fmt.Errorf("score %v is not an integer", score)
	}
	if score < 1 || score > 10 {
		return nil, fmt.Errorf("score %v out of range [1,10]", score)
	}

	confidence := domain.ConfidenceMedium
	if out.Confidence != nil {
		confidence = domain.Confidence(*out.Confidence)
		if !confidence.Valid() {
			return nil, fmt.Errorf("invalid confidence %q", *out.Confidence)
		}
	}

	reasons := out.Reasons
	if len(reasons) > domain.MaxReasons {
		reasons = reasons[:domain.MaxReasons]
	}
	if reasons == nil {
		reasons = []string{}
	}
	flags := out.Flags
	if flags == nil {
		flags = []string{}
	}

	return &domain.ScoringResult{
		IsMatch:    *out.IsMatch,
		Score:      int(score),
		Reasons:    reasons,
		Flags:      flags,
		Confidence: confidence,
	}, nil
}

var (
	fencedJSONRe  = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	genericJSONRe = regexp.MustCompile(`(?s)\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)
)

// extractJSON finds the JSON object in text: the first balanced object,
// then a fenced block, then any object with at most one nesting level.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '{'); idx >= 0 {
		if obj := balancedObject(text[idx:]); obj != "" && json.Valid([]byte(obj)) {
			return obj
		}
	}
	if m := fencedJSONRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return genericJSONRe.FindString(text)
}

func balancedObject(text string) string {
	depth := 0
	for i, ch := range text {
		switch ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[:i+1]
			}
		}
	}
	return ""
}

// RankCandidates orders jobs by keyword match count, highest first, keeping
// input order among ties, and keeps at most limit of them.
func RankCandidates(jobs []*domain.Job, limit int) []*domain.Job {
	ranked := make([]*domain.Job, len(jobs))
	copy(ranked, jobs)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].KeywordMatches > ranked[j].KeywordMatches
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// ScoreStats summarizes a batch.
type ScoreStats struct {
	Scored int
	Failed int
}

// ScoreBatch scores clones of jobs with at most concurrency calls in flight.
// A failed record is marked and the batch continues. Output order matches input.
func ScoreBatch(ctx context.Context, scorer Scorer, jobs []*domain.Job, criteria domain.Criteria, concurrency int) ([]*domain.Job, ScoreStats) {
	if concurrency <= 0 {
		concurrency = 1
	}

	out := domain.CloneJobs(jobs)
	failed := make([]bool, len(out))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, job := range out {
		g.Go(func() error {
			logger.FromContext(gctx).Debugf("Scoring job %d/%d: %q at %s", i+1, len(out), job.Title, job.Company)
			result, err := scorer.Score(gctx, job, criteria)
			if err != nil {
				domain.MarkScoringFailed(job)
				failed[i] = true
				return nil
			}
			result.Apply(job)
			return nil
		})
	}
	_ = g.Wait()

	var stats ScoreStats
	for _, f := range failed {
		if f {
			stats.Failed++
		} else {
			stats.Scored++
		}
	}
	return out, stats
}
