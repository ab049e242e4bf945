package report

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/timmy/jobscout/internal/domain"
	"github.com/timmy/jobscout/internal/storage"
)

func sampleJobs() ([]*domain.Job, []*domain.Job) {
	jobs := []*domain.Job{
		{
			Title: "Senior Go Engineer", Company: "Acme <Labs>", URL: "https://x/1", Source: "RemoteOK",
			Location: "Remote", RemoteType: domain.RemoteTypeRemote, SalaryText: "$150000–$180000",
			LLMScore: domain.IntPtr(9), LLMConfidence: domain.ConfidenceHigh,
			LLMReasons: domain.StringArray{"Strong Go match"}, ReputationScore: domain.IntPtr(8),
			Flags: domain.StringArray{"keyword_matches:3"},
		},
	}
	borderline := []*domain.Job{{Title: "Data Engineer", Company: "Beta", URL: "https://x/2", LLMScore: domain.IntPtr(6)}}
	return jobs, borderline
}

func TestRender(t *testing.T) {
	jobs, borderline := sampleJobs()
	stats := Stats{RunDate: "2024-06-01", Mode: domain.RunModeDaily, TotalFetched: 10, TotalFiltered: 10, TotalMatched: 1, TotalNew: 1,
		Errors: []string{"Source Foo: timeout"}}

	r, err := Render(jobs, borderline, stats)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if r.Jobs != 1 {
		t.Errorf("Jobs = %d", r.Jobs)
	}

	for _, want := range []string{
		"# Job Matches: 2024-06-01",
		"[Senior Go Engineer](https://x/1)",
		"**Score:** 9/10 (high confidence)",
		"(reputation 8/10)",
		"Strong Go match",
		"## Borderline",
		"(score 6)",
		"Source Foo: timeout",
	} {
		if !strings.Contains(r.Markdown, want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	for _, want := range []string{
		`<a href="https://x/1">Senior Go Engineer</a>`,
		"Acme &lt;Labs&gt;",
		"Score: <strong>9/10</strong>",
		"(reputation 8/10)",
		"keyword_matches:3",
		"<h2>Borderline</h2>",
	} {
		if !strings.Contains(r.HTML, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestRenderEmpty(t *testing.T) {
	r, err := Render(nil, nil, Stats{RunDate: "2024-06-01", Fallback: true})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(r.Markdown, "No matching jobs found") || !strings.Contains(r.HTML, "No matching jobs found") {
		t.Error("empty report does not say so")
	}
	if !strings.Contains(r.Markdown, "keyword relevance") {
		t.Error("fallback note missing")
	}
	if strings.Contains(r.HTML, "Borderline") {
		t.Error("empty borderline section rendered")
	}
}

func TestArchiveSave(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	a := NewArchive(store, "/reports/")

	jobs, borderline := sampleJobs()
	r, err := Render(jobs, borderline, Stats{RunDate: "2024-06-01"})
	if err != nil {
		t.Fatal(err)
	}

	locations, err := a.Save(context.Background(), r)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(locations) != 2 {
		t.Fatalf("locations = %v", locations)
	}

	mdKey, htmlKey := a.Keys("2024-06-01")
	if mdKey != "reports/report_2024-06-01.md" || htmlKey != "reports/report_2024-06-01.html" {
		t.Errorf("keys = %s, %s", mdKey, htmlKey)
	}
	rc, err := store.Download(context.Background(), htmlKey)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != r.HTML {
		t.Error("stored html differs from rendered html")
	}
}

func TestArchiveLoad(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	a := NewArchive(store, "")

	jobs, borderline := sampleJobs()
	r, err := Render(jobs, borderline, Stats{RunDate: "2024-06-01"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Save(ctx, r); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		date     string
		format   string
		wantBody string
		wantType string
		wantErr  error
	}{
		{"markdown", "2024-06-01", "md", r.Markdown, "text/markdown; charset=utf-8", nil},
		{"html", "2024-06-01", "html", r.HTML, "text/html; charset=utf-8", nil},
		{"missing date", "2024-06-02", "md", "", "", ErrReportNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType, err := a.Load(ctx, tt.date, tt.format)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if string(body) != tt.wantBody || contentType != tt.wantType {
				t.Errorf("got %q (%s)", contentType, body)
			}
		})
	}

	if _, _, err := a.Load(ctx, "2024-06-01", "pdf"); err == nil {
		t.Error("expected error for unknown format")
	}
}
