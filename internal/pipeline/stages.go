package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/timmy/jobscout/internal/config"
	"github.com/timmy/jobscout/internal/domain"
	"github.com/timmy/jobscout/internal/logger"
	"github.com/timmy/jobscout/internal/notify"
	"github.com/timmy/jobscout/internal/report"
	"github.com/timmy/jobscout/internal/service"
	"github.com/timmy/jobscout/internal/source"
)

// Inputs are the read-only dependencies and options of one run.
type Inputs struct {
	Mode    domain.RunMode
	DryRun  bool
	NoEmail bool

	CriteriaPath string
	SourcesPath  string

	Client     *source.Client
	Aggregator *service.Aggregator
	Annotator  *service.Annotator
	Scorer     service.Scorer
	Reputation *service.ReputationChecker
	Dedupe     *service.DedupeEngine
	// Archive and Sender are optional.
	Archive *report.Archive
	Sender  notify.Sender

	MaxCandidates    int
	ScoreConcurrency int
}

// StageFunc computes the change one stage makes to the run.
type StageFunc func(ctx context.Context, in *Inputs, st RunState) Delta

// Stage is a named step of the run.
type Stage struct {
	Name string
	Run  StageFunc
}

// Stages returns the run steps in execution order.
func Stages() []Stage {
	return []Stage{
		{"load_criteria", LoadCriteria},
		{"load_sources", LoadSources},
		{"fetch_jobs", FetchJobs},
		{"normalize", NormalizeJobs},
		{"annotate", Annotate},
		{"score", Score},
		{"reputation", Reputation},
		{"dedupe_persist", DeduplicateAndPersist},
		{"generate_report", GenerateReport},
		{"deliver", Deliver},
	}
}

// LoadCriteria parses the criteria document and applies the run mode.
func LoadCriteria(ctx context.Context, in *Inputs, st RunState) Delta {
	c := service.LoadCriteria(ctx, in.CriteriaPath).WithMode(st.Mode)
	return Delta{Criteria: &c}
}

// LoadSources reads the sources file and builds adapters. A missing or
// malformed file leaves the run with no sources.
func LoadSources(ctx context.Context, in *Inputs, st RunState) Delta {
	var d Delta
	specs, total, err := config.LoadSources(in.SourcesPath)
	if err != nil {
		logger.CtxError(ctx, "Failed to load sources: %v", err)
		d.AddError(fmt.Sprintf("Failed to load sources: %v", err))
		d.Sources = &[]service.BoundSource{}
		return d
	}
	bound := service.BuildSources(ctx, specs, in.Client)
	logger.CtxInfo(ctx, "Loaded %d sources (%d enabled, %d configured)", len(bound), len(specs), total)
	d.Sources = &bound
	return d
}

// FetchJobs runs every source concurrently.
func FetchJobs(ctx context.Context, in *Inputs, st RunState) Delta {
	var d Delta
	raw, errs := in.Aggregator.FetchAll(ctx, st.Sources)
	for _, err := range errs {
		d.AddError(err.Error())
	}
	d.Raw = jobs(raw)
	d.Fetched = len(raw)
	return d
}

// NormalizeJobs cleans every fetched record.
func NormalizeJobs(ctx context.Context, in *Inputs, st RunState) Delta {
	return Delta{Normalized: jobs(service.Normalize(st.Raw))}
}

// Annotate applies the soft filter. No record is dropped.
func Annotate(ctx context.Context, in *Inputs, st RunState) Delta {
	filtered := in.Annotator.Annotate(st.Normalized, st.Criteria)
	logger.CtxInfo(ctx, "Annotated %d jobs", len(filtered))
	return Delta{Filtered: jobs(filtered), FilteredCount: len(filtered)}
}

// Score scores the top keyword-ranked candidates and selects matches.
func Score(ctx context.Context, in *Inputs, st RunState) Delta {
	if len(st.Filtered) == 0 {
		return Delta{Scored: jobs(nil)}
	}

	candidates := service.RankCandidates(st.Filtered, in.MaxCandidates)
	if len(candidates) < len(st.Filtered) {
		logger.CtxInfo(ctx, "Scoring top %d of %d jobs by keyword matches", len(candidates), len(st.Filtered))
	}

	scored, stats := service.ScoreBatch(ctx, in.Scorer, candidates, st.Criteria, in.ScoreConcurrency)
	d := Delta{
		Scored:        jobs(scored),
		ScoredCount:   len(scored),
		ScoringFailed: stats.Failed,
	}

	// Dry runs keep every record so the rest of the run can be exercised.
	if in.DryRun {
		d.Matched = jobs(scored)
		d.Borderline = jobs(nil)
		d.MatchedCount = len(scored)
		return d
	}

	sel := service.SelectMatches(scored, st.Criteria)
	if sel.Fallback {
		logger.CtxWarn(ctx, "No LLM matches, using top %d keyword-ranked jobs", len(sel.Matched))
	}
	d.Matched = jobs(sel.Matched)
	d.Borderline = jobs(sel.Borderline)
	d.Fallback = boolPtr(sel.Fallback)
	d.MatchedCount = len(sel.Matched)

	logger.With(logger.Fields{
		"scored":     stats.Scored,
		"failed":     stats.Failed,
		"matched":    len(sel.Matched),
		"borderline": len(sel.Borderline),
	}).Info(ctx, "Scoring complete (min score %d)", st.Criteria.MinLLMScore)
	return d
}

// Reputation annotates matched records with company reputation.
func Reputation(ctx context.Context, in *Inputs, st RunState) Delta {
	if in.Reputation == nil || len(st.Matched) == 0 {
		return Delta{}
	}
	return Delta{Matched: jobs(in.Reputation.AnnotateReputation(ctx, st.Matched))}
}

// DeduplicateAndPersist stores matched records not seen in earlier runs.
func DeduplicateAndPersist(ctx context.Context, in *Inputs, st RunState) Delta {
	if in.Dedupe == nil || len(st.Matched) == 0 {
		return Delta{New: jobs(nil)}
	}

	res := in.Dedupe.DeduplicateAndPersist(ctx, st.Matched, st.RunDate)
	d := Delta{
		New:        jobs(res.New),
		NewCount:   len(res.New),
		Duplicates: res.Duplicates,
	}
	for _, err := range res.Errors {
		d.AddError(fmt.Sprintf("Persist failed: %v", err))
	}
	logger.CtxInfo(ctx, "Dedup: %d matched, %d new, %d duplicates", len(st.Matched), len(res.New), res.Duplicates)
	return d
}

// DisplayJobs picks the first non-empty of matched, scored, filtered and
// new, sorted by score then reputation and limited to limit.
func DisplayJobs(st RunState, limit int) []*domain.Job {
	var src []*domain.Job
	for _, c := range [][]*domain.Job{st.Matched, st.Scored, st.Filtered, st.New} {
		if len(c) > 0 {
			src = c
			break
		}
	}

	out := make([]*domain.Job, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score() != out[j].Score() {
			return out[i].Score() > out[j].Score()
		}
		return out[i].Reputation() > out[j].Reputation()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// GenerateReport renders the report and archives it. A failed archive is a
// run error; the rendered report is kept either way.
func GenerateReport(ctx context.Context, in *Inputs, st RunState) Delta {
	var d Delta
	display := DisplayJobs(st, st.Criteria.MaxResultsPerReport)

	stats := report.Stats{
		RunDate:       st.RunDate,
		Mode:          st.Mode,
		TotalFetched:  st.TotalFetched,
		TotalFiltered: st.TotalFiltered,
		TotalScored:   st.TotalScored,
		TotalMatched:  st.TotalMatched,
		TotalNew:      st.TotalNew,
		Fallback:      st.Fallback,
		Errors:        append([]string(nil), st.Errors...),
	}

	r, err := report.Render(display, st.Borderline, stats)
	if err != nil {
		logger.CtxError(ctx, "Failed to render report: %v", err)
		d.AddError(fmt.Sprintf("Report render failed: %v", err))
		return d
	}
	d.Report = r

	if in.Archive != nil {
		locations, err := in.Archive.Save(ctx, r)
		if err != nil {
			logger.CtxError(ctx, "Failed to save report: %v", err)
			d.AddError(fmt.Sprintf("Report save failed: %v", err))
		}
		d.ReportLocations = locations
	}
	return d
}

// Deliver emails the report when the run found new jobs.
func Deliver(ctx context.Context, in *Inputs, st RunState) Delta {
	var d Delta
	switch {
	case in.NoEmail:
		logger.CtxInfo(ctx, "Email sending disabled")
		return d
	case in.DryRun:
		logger.CtxInfo(ctx, "Dry run, skipping email")
		return d
	case st.TotalNew == 0:
		logger.CtxInfo(ctx, "No new jobs, skipping email")
		return d
	case in.Sender == nil || st.Report == nil:
		logger.CtxWarn(ctx, "Email not configured, skipping")
		return d
	}

	err := in.Sender.Send(ctx, notify.Message{
		Subject: notify.Subject(st.RunDate, st.TotalMatched, st.TotalNew),
		Text:    st.Report.Markdown,
		HTML:    st.Report.HTML,
	})
	if errors.Is(err, notify.ErrNoCredentials) {
		logger.CtxWarn(ctx, "Email credentials not configured, skipping email")
		return d
	}
	if err != nil {
		logger.CtxError(ctx, "Failed to send email: %v", err)
		d.AddError(fmt.Sprintf("Email send failed: %v", err))
		return d
	}

	d.EmailSent = boolPtr(true)
	d.Emailed = st.TotalNew
	return d
}
