package pipeline

import (
	"github.com/timmy/jobscout/internal/domain"
	"github.com/timmy/jobscout/internal/report"
	"github.com/timmy/jobscout/internal/service"
)

// RunState is everything one run has produced so far. Stages receive it by
// value and never modify it; they return a Delta that the orchestrator merges.
type RunState struct {
	RunID   string
	RunDate string
	Mode    domain.RunMode

	Criteria domain.Criteria
	Sources  []service.BoundSource

	Raw        []*domain.Job
	Normalized []*domain.Job
	Filtered   []*domain.Job
	Scored     []*domain.Job
	Matched    []*domain.Job
	Borderline []*domain.Job
	New        []*domain.Job
	// Fallback is set when Matched came from keyword ranking.
	Fallback bool

	TotalFetched  int
	TotalFiltered int
	TotalScored   int
	ScoringFailed int
	TotalMatched  int
	Duplicates    int
	TotalNew      int
	TotalEmailed  int

	Report          *report.Report
	ReportLocations []string
	EmailSent       bool

	// Errors is append-only.
	Errors []string
}

// Delta is what one stage changes. Nil pointer fields leave the state alone;
// counters are added; errors are appended.
type Delta struct {
	Criteria   *domain.Criteria
	Sources    *[]service.BoundSource
	Raw        *[]*domain.Job
	Normalized *[]*domain.Job
	Filtered   *[]*domain.Job
	Scored     *[]*domain.Job
	Matched    *[]*domain.Job
	Borderline *[]*domain.Job
	New        *[]*domain.Job
	Fallback   *bool

	Fetched       int
	FilteredCount int
	ScoredCount   int
	ScoringFailed int
	MatchedCount  int
	Duplicates    int
	NewCount      int
	Emailed       int

	Report          *report.Report
	ReportLocations []string
	EmailSent       *bool

	Errors []string
}

// AddError records a non-fatal error.
func (d *Delta) AddError(msg string) {
	d.Errors = append(d.Errors, msg)
}

// Merge applies d to s.
func (s *RunState) Merge(d Delta) {
	if d.Criteria != nil {
		s.Criteria = *d.Criteria
	}
	if d.Sources != nil {
		s.Sources = *d.Sources
	}
	mergeJobs(&s.Raw, d.Raw)
	mergeJobs(&s.Normalized, d.Normalized)
	mergeJobs(&s.Filtered, d.Filtered)
	mergeJobs(&s.Scored, d.Scored)
	mergeJobs(&s.Matched, d.Matched)
	mergeJobs(&s.Borderline, d.Borderline)
	mergeJobs(&s.New, d.New)
	if d.Fallback != nil {
		s.Fallback = *d.Fallback
	}

	s.TotalFetched += d.Fetched
	s.TotalFiltered += d.FilteredCount
	s.TotalScored += d.ScoredCount
	s.ScoringFailed += d.ScoringFailed
	s.TotalMatched += d.MatchedCount
	s.Duplicates += d.Duplicates
	s.TotalNew += d.NewCount
	s.TotalEmailed += d.Emailed

	if d.Report != nil {
		s.Report = d.Report
	}
	if d.ReportLocations != nil {
		s.ReportLocations = d.ReportLocations
	}
	if d.EmailSent != nil {
		s.EmailSent = *d.EmailSent
	}
	s.Errors = append(s.Errors, d.Errors...)
}

func mergeJobs(dst *[]*domain.Job, src *[]*domain.Job) {
	if src != nil {
		*dst = *src
	}
}

// RunLog summarizes the state into its persisted form.
func (s *RunState) RunLog(durationSecs float64) *domain.RunLog {
	errs := make(domain.StringArray, len(s.Errors))
	copy(errs, s.Errors)
	return &domain.RunLog{
		RunUUID:       s.RunID,
		RunDate:       s.RunDate,
		Mode:          s.Mode,
		TotalFetched:  s.TotalFetched,
		TotalFiltered: s.TotalFiltered,
		TotalMatched:  s.TotalMatched,
		TotalEmailed:  s.TotalEmailed,
		Errors:        errs,
		DurationSecs:  durationSecs,
	}
}

func jobs(v []*domain.Job) *[]*domain.Job { return &v }

func boolPtr(v bool) *bool { return &v }
