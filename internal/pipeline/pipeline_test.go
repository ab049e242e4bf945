package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"gorm.io/gorm"

	"github.com/timmy/jobscout/internal/config"
	"github.com/timmy/jobscout/internal/domain"
	"github.com/timmy/jobscout/internal/notify"
	"github.com/timmy/jobscout/internal/report"
	"github.com/timmy/jobscout/internal/repository"
	"github.com/timmy/jobscout/internal/service"
	"github.com/timmy/jobscout/internal/storage"
)

const testCriteria = `# Search
- Fully remote: yes
- Full-time only
- Keywords: go, kubernetes, postgres
Minimum LLM score: 7
Minimum keyword matches: 2
`

type stubSource struct {
	jobs []*domain.Job
}

func (s *stubSource) GetSourceID() string    { return "stub" }
func (s *stubSource) GetDisplayName() string { return "Stub" }
func (s *stubSource) Fetch(context.Context) ([]*domain.Job, error) {
	return domain.CloneJobs(s.jobs), nil
}

// titleScorer scores by title and fails for unknown titles.
type titleScorer map[string]int

func (s titleScorer) Score(_ context.Context, job *domain.Job, _ domain.Criteria) (*domain.ScoringResult, error) {
	score, ok := s[job.Title]
	if !ok {
		return nil, service.ErrScoringFailed
	}
	return &domain.ScoringResult{
		IsMatch:    score >= 7,
		Score:      score,
		Reasons:    []string{"stub"},
		Confidence: domain.ConfidenceHigh,
	}, nil
}

type stubSender struct {
	err  error
	sent []notify.Message
}

func (s *stubSender) Send(_ context.Context, msg notify.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

var scenarioScores = []int{9, 8, 7, 7, 6, 6, 5, 3, 2, 1}

func scenarioJobs() ([]*domain.Job, titleScorer) {
	jobs := make([]*domain.Job, len(scenarioScores))
	scores := titleScorer{}
	for i, s := range scenarioScores {
		title := fmt.Sprintf("Backend Engineer %d", i)
		jobs[i] = &domain.Job{
			Title:          title,
			Company:        fmt.Sprintf("Company %d", i),
			URL:            fmt.Sprintf("https://jobs.example.com/%d", i),
			Source:         "Stub",
			RemoteType:     domain.RemoteTypeRemote,
			EmploymentType: domain.EmploymentFullTime,
			SalaryText:     "$150000",
			Description:    "We build Go services on Kubernetes and Postgres.",
		}
		scores[title] = s
	}
	return jobs, scores
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         filepath.Join(t.TempDir(), "jobs.db"),
		MaxIdleConns: 1,
		MaxOpenConns: 1,
		AutoMigrate:  true,
		LogLevel:     "silent",
	})
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type scenario struct {
	orch    *Orchestrator
	in      *Inputs
	jobRepo *repository.JobRepository
	runRepo *repository.RunRepository
}

func newScenario(t *testing.T) *scenario {
	t.Helper()
	dir := t.TempDir()
	criteriaPath := filepath.Join(dir, "criteria.md")
	if err := os.WriteFile(criteriaPath, []byte(testCriteria), 0o644); err != nil {
		t.Fatal(err)
	}

	db := newTestDB(t)
	jobRepo := repository.NewJobRepository(db)
	runRepo := repository.NewRunRepository(db)

	store, err := storage.NewLocalStorage(filepath.Join(dir, "reports"))
	if err != nil {
		t.Fatal(err)
	}

	raw, scores := scenarioJobs()
	src := &stubSource{jobs: raw}

	orch := NewOrchestrator(runRepo, filepath.Join(dir, "run.lock"))
	orch.stages[1].Run = func(context.Context, *Inputs, RunState) Delta {
		return Delta{Sources: &[]service.BoundSource{{Source: src}}}
	}

	in := &Inputs{
		Mode:         domain.RunModeDaily,
		NoEmail:      true,
		CriteriaPath: criteriaPath,
		Aggregator:   service.NewAggregator(time.Second),
		Annotator:    service.NewAnnotator(),
		Scorer:       scores,
		Reputation:   service.NewReputationChecker(nil, 3),
		Dedupe:       service.NewDedupeEngine(jobRepo, nil, nil, 0),
		Archive:      report.NewArchive(store, ""),
	}
	return &scenario{orch: orch, in: in, jobRepo: jobRepo, runRepo: runRepo}
}

func TestRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := newScenario(t)

	st, err := s.orch.Run(ctx, s.in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if st.Criteria.MinKeywordMatches != 2 || st.Criteria.PostedWithinDays != 1 {
		t.Errorf("criteria = %+v", st.Criteria)
	}
	if st.TotalFetched != 10 || st.TotalFiltered != 10 {
		t.Errorf("fetched/filtered = %d/%d, want 10/10", st.TotalFetched, st.TotalFiltered)
	}
	for _, job := range st.Filtered {
		if !job.HasFlag(domain.FlagKeywordMatchesPrefix + "3") {
			t.Errorf("%s flags = %v", job.Title, job.Flags)
		}
	}
	if st.TotalScored != 10 || st.ScoringFailed != 0 {
		t.Errorf("scored = %d, failed = %d", st.TotalScored, st.ScoringFailed)
	}
	if st.TotalMatched != 4 || len(st.Matched) != 4 {
		t.Errorf("matched = %d", st.TotalMatched)
	}
	if len(st.Borderline) != 2 {
		t.Errorf("borderline = %d, want 2", len(st.Borderline))
	}
	for _, job := range st.Matched {
		if job.ReputationScore == nil {
			t.Errorf("%s has no reputation", job.Title)
		}
	}
	if st.TotalNew != 4 {
		t.Errorf("new = %d, want 4", st.TotalNew)
	}
	if st.Report == nil || st.Report.Jobs != st.TotalNew {
		t.Fatalf("report = %+v", st.Report)
	}
	if len(st.ReportLocations) != 2 {
		t.Errorf("report locations = %v", st.ReportLocations)
	}
	if st.TotalEmailed != 0 || st.EmailSent {
		t.Errorf("emailed with --no-email")
	}
	if len(st.Errors) != 0 {
		t.Errorf("errors = %v", st.Errors)
	}

	count, err := s.jobRepo.Count(ctx)
	if err != nil || count != 4 {
		t.Errorf("stored jobs = %d, %v", count, err)
	}

	runs, err := s.runRepo.ListRecent(ctx, 10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs = %v, %v", runs, err)
	}
	if runs[0].TotalFetched != 10 || runs[0].TotalMatched != 4 || runs[0].RunUUID != st.RunID {
		t.Errorf("run log = %+v", runs[0])
	}
}

func TestRunExcludesKnownURL(t *testing.T) {
	ctx := context.Background()
	s := newScenario(t)

	seeded := &domain.Job{URL: "https://jobs.example.com/0", Company: "Other", Title: "Other", RunDate: "2020-01-01"}
	if ok, err := s.jobRepo.InsertIfNew(ctx, seeded); err != nil || !ok {
		t.Fatalf("seed: %v, %v", ok, err)
	}

	st, err := s.orch.Run(ctx, s.in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.TotalMatched != 4 {
		t.Errorf("matched = %d, want 4", st.TotalMatched)
	}
	if st.TotalNew != 3 || st.Duplicates != 1 {
		t.Errorf("new = %d, duplicates = %d", st.TotalNew, st.Duplicates)
	}
	for _, job := range st.New {
		if job.URL == seeded.URL {
			t.Error("known URL reported as new")
		}
	}
}

func TestRunScoringOutageFallsBack(t *testing.T) {
	s := newScenario(t)
	s.in.Scorer = titleScorer{}

	st, err := s.orch.Run(context.Background(), s.in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.ScoringFailed != 10 {
		t.Errorf("failed = %d", st.ScoringFailed)
	}
	if !st.Fallback || st.TotalMatched == 0 {
		t.Fatalf("fallback = %v, matched = %d", st.Fallback, st.TotalMatched)
	}
	for _, job := range st.Matched {
		if job.Score() != service.FallbackScore || !job.HasFlag(domain.FlagKeywordRelevanceMatch) {
			t.Errorf("%s not tagged as fallback: score %d flags %v", job.Title, job.Score(), job.Flags)
		}
	}
	if !strings.Contains(st.Report.Markdown, "keyword relevance") {
		t.Error("report does not mention fallback")
	}
}

func TestRunDryRun(t *testing.T) {
	s := newScenario(t)
	s.in.DryRun = true
	s.in.NoEmail = false
	sender := &stubSender{}
	s.in.Sender = sender
	s.in.Scorer = service.DryRunScorer{}

	st, err := s.orch.Run(context.Background(), s.in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.TotalMatched != 10 {
		t.Errorf("matched = %d, want all 10", st.TotalMatched)
	}
	if len(sender.sent) != 0 {
		t.Error("dry run sent email")
	}
}

func TestRunRecordsPanic(t *testing.T) {
	ctx := context.Background()
	s := newScenario(t)
	s.orch.stages[4].Run = func(context.Context, *Inputs, RunState) Delta {
		panic("boom")
	}

	st, err := s.orch.Run(ctx, s.in)
	if err == nil || !strings.Contains(err.Error(), "annotate") {
		t.Fatalf("err = %v", err)
	}
	if st == nil || st.TotalFetched != 10 {
		t.Fatalf("state = %+v", st)
	}

	runs, lerr := s.runRepo.ListRecent(ctx, 10)
	if lerr != nil || len(runs) != 1 {
		t.Fatalf("runs = %v, %v", runs, lerr)
	}
	if len(runs[0].Errors) == 0 || !strings.Contains(runs[0].Errors[0], "boom") {
		t.Errorf("run log errors = %v", runs[0].Errors)
	}
}

func TestRunLocked(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.lock")
	other := flock.New(path)
	if ok, err := other.TryLock(); err != nil || !ok {
		t.Fatalf("TryLock: %v, %v", ok, err)
	}
	defer other.Unlock()

	o := NewOrchestrator(nil, path)
	if _, err := o.Run(context.Background(), &Inputs{}); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("err = %v, want ErrRunInProgress", err)
	}
}

func TestLoadSourcesMissingFile(t *testing.T) {
	d := LoadSources(context.Background(), &Inputs{SourcesPath: filepath.Join(t.TempDir(), "none.yaml")}, RunState{})
	if d.Sources == nil || len(*d.Sources) != 0 {
		t.Errorf("sources = %v", d.Sources)
	}
	if len(d.Errors) != 1 || !strings.HasPrefix(d.Errors[0], "Failed to load sources") {
		t.Errorf("errors = %v", d.Errors)
	}
}

func TestDeliver(t *testing.T) {
	r := &report.Report{Markdown: "md", HTML: "<p>html</p>"}
	base := RunState{RunDate: "2024-06-01", TotalMatched: 5, TotalNew: 3, Report: r}

	tests := []struct {
		name        string
		in          Inputs
		st          RunState
		sendErr     error
		wantSent    bool
		wantEmailed int
		wantErr     string
	}{
		{"sends", Inputs{}, base, nil, true, 3, ""},
		{"no email flag", Inputs{NoEmail: true}, base, nil, false, 0, ""},
		{"dry run", Inputs{DryRun: true}, base, nil, false, 0, ""},
		{"nothing new", Inputs{}, RunState{RunDate: "2024-06-01", Report: r}, nil, false, 0, ""},
		{"no credentials", Inputs{}, base, notify.ErrNoCredentials, false, 0, ""},
		{"smtp failure", Inputs{}, base, errors.New("connection refused"), false, 0, "Email send failed: smtp: connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &stubSender{err: tt.sendErr}
			if tt.sendErr != nil && !errors.Is(tt.sendErr, notify.ErrNoCredentials) {
				sender.err = fmt.Errorf("smtp: %w", tt.sendErr)
			}
			in := tt.in
			in.Sender = sender

			st := tt.st
			st.Merge(Deliver(context.Background(), &in, tt.st))

			if (len(sender.sent) == 1) != tt.wantSent {
				t.Errorf("sent = %d", len(sender.sent))
			}
			if tt.wantSent && sender.sent[0].Subject != "Job Matches 2024-06-01: 5 matched, 3 new" {
				t.Errorf("subject = %q", sender.sent[0].Subject)
			}
			if st.TotalEmailed != tt.wantEmailed || st.EmailSent != tt.wantSent {
				t.Errorf("emailed = %d, sent = %v", st.TotalEmailed, st.EmailSent)
			}
			if tt.wantErr == "" && len(st.Errors) != 0 {
				t.Errorf("errors = %v", st.Errors)
			}
			if tt.wantErr != "" && (len(st.Errors) != 1 || st.Errors[0] != tt.wantErr) {
				t.Errorf("errors = %v, want %q", st.Errors, tt.wantErr)
			}
		})
	}
}

func TestDisplayJobsCascade(t *testing.T) {
	mk := func(title string, score, rep int) *domain.Job {
		return &domain.Job{Title: title, LLMScore: domain.IntPtr(score), ReputationScore: domain.IntPtr(rep)}
	}
	filtered := []*domain.Job{{Title: "f1"}, {Title: "f2"}}
	scored := []*domain.Job{mk("s1", 3, 0), mk("s2", 6, 0)}
	matched := []*domain.Job{mk("low", 7, 9), mk("high", 9, 1), mk("tie-rep", 7, 10)}

	tests := []struct {
		name  string
		st    RunState
		limit int
		want  []string
	}{
		{"matched wins", RunState{Matched: matched, Scored: scored, Filtered: filtered}, 0, []string{"high", "tie-rep", "low"}},
		{"scored when nothing matched", RunState{Scored: scored, Filtered: filtered}, 0, []string{"s2", "s1"}},
		{"filtered when nothing scored", RunState{Filtered: filtered}, 0, []string{"f1", "f2"}},
		{"new last", RunState{New: []*domain.Job{{Title: "n"}}}, 0, []string{"n"}},
		{"limit", RunState{Matched: matched}, 2, []string{"high", "tie-rep"}},
		{"empty", RunState{}, 5, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DisplayJobs(tt.st, tt.limit)
			var titles []string
			for _, j := range got {
				titles = append(titles, j.Title)
			}
			if strings.Join(titles, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", titles, tt.want)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	st := RunState{TotalFetched: 2, Errors: []string{"first"}, Raw: []*domain.Job{{Title: "a"}}}
	st.Merge(Delta{Fetched: 3, Errors: []string{"second"}})
	if st.TotalFetched != 5 {
		t.Errorf("TotalFetched = %d", st.TotalFetched)
	}
	if len(st.Raw) != 1 {
		t.Error("nil delta field replaced state")
	}
	st.Merge(Delta{Raw: jobs(nil)})
	if len(st.Raw) != 0 {
		t.Error("explicit empty delta field ignored")
	}
	if strings.Join(st.Errors, ",") != "first,second" {
		t.Errorf("Errors = %v", st.Errors)
	}
}
