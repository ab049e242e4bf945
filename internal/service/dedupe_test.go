package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/timmy/jobscout/internal/domain"
	"github.com/timmy/jobscout/internal/repository"
)

type memStore struct {
	mu     sync.Mutex
	byURL  map[string]*domain.Job
	byKey  map[string]bool
	failOn string
}

func newMemStore() *memStore {
	return &memStore{byURL: map[string]*domain.Job{}, byKey: map[string]bool{}}
}

func (s *memStore) ExistsByURL(_ context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != "" && url == s.failOn {
		return false, errors.New("db locked")
	}
	_, ok := s.byURL[url]
	return ok, nil
}

func (s *memStore) ExistsByDedupeKey(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byKey[key], nil
}

func (s *memStore) InsertIfNew(_ context.Context, job *domain.Job) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byURL[job.URL]; ok {
		return false, nil
	}
	job.ID = job.JobID()
	job.DedupeKey = job.FuzzyKey()
	s.byURL[job.URL] = job
	s.byKey[job.DedupeKey] = true
	return true, nil
}

// memIndex is a brute-force cosine index.
type memIndex struct {
	mu      sync.Mutex
	jobs    []string
	vectors [][]float32
	err     error
}

func (m *memIndex) Add(_ context.Context, job *domain.Job, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job.ID)
	m.vectors = append(m.vectors, vector)
	return nil
}

func (m *memIndex) Nearest(_ context.Context, vector []float32) (*repository.VectorMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var best *repository.VectorMatch
	for i, v := range m.vectors {
		s := cosine(vector, v)
		if best == nil || s > best.Score {
			best = &repository.VectorMatch{JobID: m.jobs[i], Score: s}
		}
	}
	return best, nil
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// topicEmbedder maps text to a vector of topic word counts, so texts about
// the same topics are similar.
type topicEmbedder struct {
	err error
}

var embedTopics = []string{"go", "python", "kubernetes", "frontend", "payments", "rust"}

func (e topicEmbedder) Dimensions() int { return len(embedTopics) }

func (e topicEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	words := strings.Fields(strings.ToLower(text))
	v := make([]float32, len(embedTopics))
	for _, w := range words {
		for i, topic := range embedTopics {
			if w == topic {
				v[i]++
			}
		}
	}
	return v, nil
}

func TestDedupeTiers(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	index := &memIndex{}
	engine := NewDedupeEngine(store, index, topicEmbedder{}, 0)

	original := &domain.Job{
		Title: "ML Engineer (Remote)", Company: "Acme Corp, Inc.", URL: "https://a.example/1",
		Description: "go kubernetes payments",
	}
	inserted, err := engine.PersistIfNew(ctx, original, "2024-06-01")
	if err != nil || !inserted {
		t.Fatalf("PersistIfNew = %v, %v", inserted, err)
	}
	if original.RunDate != "2024-06-01" || original.ID == "" {
		t.Errorf("inserted job not stamped: run_date=%q id=%q", original.RunDate, original.ID)
	}
	if len(index.vectors) != 1 {
		t.Fatalf("index size = %d, want 1", len(index.vectors))
	}

	tests := []struct {
		name   string
		job    *domain.Job
		dup    bool
		reason DuplicateReason
	}{
		{
			name:   "same url",
			job:    &domain.Job{Title: "Other", Company: "Other", URL: "https://a.example/1"},
			dup:    true,
			reason: DuplicateURL,
		},
		{
			name:   "fuzzy cross-post",
			job:    &domain.Job{Title: "ML Engineer Remote", Company: "Acme Corp Inc", URL: "https://b.example/9"},
			dup:    true,
			reason: DuplicateFuzzyKey,
		},
		{
			name:   "semantic",
			job:    &domain.Job{Title: "Platform Dev", Company: "Acme", URL: "https://c.example/3", Description: "go kubernetes payments"},
			dup:    true,
			reason: DuplicateSemantic,
		},
		{
			name: "different topic",
			job:  &domain.Job{Title: "Frontend Dev", Company: "Acme", URL: "https://c.example/4", Description: "frontend python"},
		},
		{
			name: "empty description skips semantic tier",
			job:  &domain.Job{Title: "Platform Dev", Company: "Acme", URL: "https://c.example/5"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dup, reason, err := engine.IsDuplicate(ctx, tt.job)
			if err != nil {
				t.Fatalf("IsDuplicate: %v", err)
			}
			if dup != tt.dup || reason != tt.reason {
				t.Errorf("IsDuplicate = %v, %q; want %v, %q", dup, reason, tt.dup, tt.reason)
			}
		})
	}
}

func TestDeduplicateAndPersistWithinRun(t *testing.T) {
	ctx := context.Background()
	engine := NewDedupeEngine(newMemStore(), &memIndex{}, topicEmbedder{}, 0.92)

	jobs := []*domain.Job{
		{Title: "Go Engineer", Company: "Acme", URL: "https://x/1", Description: "go payments"},
		{Title: "Go Engineer", Company: "ACME", URL: "https://y/1", Description: "go payments"},
		{Title: "Python Engineer", Company: "Beta", URL: "https://x/2", Description: "python ml"},
		{Title: "Go Engineer", Company: "Acme", URL: "https://x/1", Description: "go payments"},
	}
	res := engine.DeduplicateAndPersist(ctx, jobs, "2024-06-01")

	if len(res.New) != 2 || res.Duplicates != 2 || len(res.Errors) != 0 {
		t.Fatalf("result: new=%d dup=%d errs=%v", len(res.New), res.Duplicates, res.Errors)
	}
	if res.New[0].URL != "https://x/1" || res.New[1].URL != "https://x/2" {
		t.Errorf("new = %s, %s", res.New[0].URL, res.New[1].URL)
	}
	if jobs[0].RunDate != "" {
		t.Error("input job was mutated")
	}

	again := engine.DeduplicateAndPersist(ctx, jobs, "2024-06-02")
	if len(again.New) != 0 {
		t.Errorf("re-run inserted %d jobs, want 0", len(again.New))
	}
}

func TestDedupeDegradesSemanticFailures(t *testing.T) {
	ctx := context.Background()
	job := &domain.Job{Title: "Go Engineer", Company: "Acme", URL: "https://x/1", Description: "go"}

	tests := []struct {
		name     string
		index    *memIndex
		embedder Embedder
	}{
		{"embedder error", &memIndex{}, topicEmbedder{err: errors.New("ollama down")}},
		{"index error", &memIndex{err: errors.New("qdrant down")}, topicEmbedder{}},
		{"tier disabled", &memIndex{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewDedupeEngine(newMemStore(), tt.index, tt.embedder, 0)
			inserted, err := engine.PersistIfNew(ctx, job.Clone(), "2024-06-01")
			if err != nil || !inserted {
				t.Errorf("PersistIfNew = %v, %v; want true, nil", inserted, err)
			}
		})
	}
}

func TestDedupeStoreError(t *testing.T) {
	store := newMemStore()
	store.failOn = "https://x/1"
	engine := NewDedupeEngine(store, nil, nil, 0)

	res := engine.DeduplicateAndPersist(context.Background(), []*domain.Job{
		{Title: "A", Company: "X", URL: "https://x/1"},
		{Title: "B", Company: "X", URL: "https://x/2"},
	}, "2024-06-01")
	if len(res.Errors) != 1 || len(res.New) != 1 {
		t.Errorf("errors=%v new=%d", res.Errors, len(res.New))
	}
}

func TestSemanticText(t *testing.T) {
	job := &domain.Job{Title: "T", Company: "C", Description: strings.Repeat("é", 600)}
	got := SemanticText(job)
	if want := "T C " + strings.Repeat("é", 500); got != want {
		t.Errorf("SemanticText length = %d runes", len([]rune(got)))
	}
}
