package service

import (
	"github.com/timmy/jobscout/internal/domain"
)

const (
	// FallbackScore is the neutral score given to keyword-relevance matches.
	FallbackScore = 5
	// FallbackReason explains a keyword-relevance match in the report.
	FallbackReason = "Keyword relevance match (LLM scoring unavailable)"
)

// Selection is the outcome of partitioning scored records.
type Selection struct {
	Matched    []*domain.Job
	Borderline []*domain.Job
	// Fallback is true when Matched came from keyword ranking instead of the LLM.
	Fallback bool
}

// SelectMatches partitions scored into matched (score >= min) and
// borderline (score == min-1). When nothing matched, the top keyword-ranked
// records become matches with a neutral score.
func SelectMatches(scored []*domain.Job, criteria domain.Criteria) Selection {
	var sel Selection
	minScore := criteria.MinLLMScore
	for _, job := range scored {
		if job.LLMScore == nil {
			continue
		}
		switch score := *job.LLMScore; {
		case score >= minScore:
			sel.Matched = append(sel.Matched, job)
		case score == minScore-1 && score > 0:
			sel.Borderline = append(sel.Borderline, job)
		}
	}

	if len(sel.Matched) > 0 {
		return sel
	}

	ranked := RankCandidates(scored, criteria.MaxResultsPerReport)
	if len(ranked) == 0 {
		return sel
	}

	sel.Fallback = true
	sel.Matched = make([]*domain.Job, len(ranked))
	for i, c := range ranked {
		job := c.Clone()
		job.LLMScore = domain.IntPtr(FallbackScore)
		job.IsMatch = true
		job.LLMReasons = domain.StringArray{FallbackReason}
		job.AddFlag(domain.FlagKeywordRelevanceMatch)
		sel.Matched[i] = job
	}
	return sel
}
