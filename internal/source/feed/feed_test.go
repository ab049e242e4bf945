package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/timmy/jobscout/internal/domain"
	"github.com/timmy/jobscout/internal/source"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Jobs</title>
  <item>
    <title>Senior Go Engineer at Acme Corp</title>
    <link>https://jobs.example.com/1</link>
    <description>&lt;p&gt;Fully remote. Full-time. $150,000 - $180,000&lt;/p&gt;</description>
    <pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate>
  </item>
  <item>
    <title>Data Engineer | Initech</title>
    <link>https://jobs.example.com/2</link>
    <description>Hybrid in Austin. 6 month contract.</description>
  </item>
  <item>
    <title></title>
    <link>https://jobs.example.com/3</link>
  </item>
  <item>
    <title>Plain Title</title>
    <link>https://jobs.example.com/4</link>
  </item>
</channel>
</rss>`

const leverBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
  <item>
    <title>Platform Engineer – Remote, US</title>
    <link>https://jobs.lever.co/acme-corp/abc</link>
    <description>Build infra.</description>
  </item>
</channel></rss>`

func TestParseRSS(t *testing.T) {
	a, err := NewAdapter(Config{Kind: KindRSS, Name: "Example Feed", URL: "https://example.com/rss"}, nil)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	jobs, err := a.Parse([]byte(rssBody))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("got %d jobs, want 3", len(jobs))
	}

	first := jobs[0]
	if first.Title != "Senior Go Engineer" || first.Company != "Acme Corp" {
		t.Errorf("title/company = %q/%q", first.Title, first.Company)
	}
	if first.Source != "Example Feed" {
		t.Errorf("source = %q", first.Source)
	}
	if first.RemoteType != domain.RemoteTypeRemote {
		t.Errorf("remote type = %q", first.RemoteType)
	}
	if first.EmploymentType != domain.EmploymentFullTime {
		t.Errorf("employment type = %q", first.EmploymentType)
	}
	if first.SalaryMin == nil || *first.SalaryMin != 150000 {
		t.Errorf("salary min = %v", first.SalaryMin)
	}
	if first.Description != "Fully remote. Full-time. $150,000 - $180,000" {
		t.Errorf("description = %q", first.Description)
	}

	second := jobs[1]
	if second.Title != "Data Engineer" || second.Company != "Initech" {
		t.Errorf("title/company = %q/%q", second.Title, second.Company)
	}
	if second.RemoteType != domain.RemoteTypeHybrid || second.EmploymentType != domain.EmploymentContract {
		t.Errorf("types = %q/%q", second.RemoteType, second.EmploymentType)
	}

	if jobs[2].Company != "Unknown" {
		t.Errorf("company without separator = %q", jobs[2].Company)
	}
}

func TestParseLever(t *testing.T) {
	a, err := NewAdapter(Config{Kind: KindLever, CompanySlug: "acme-corp"}, nil)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	jobs, err := a.Parse([]byte(leverBody))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(jobs))
	}
	job := jobs[0]
	if job.Title != "Platform Engineer" || job.Location != "Remote, US" {
		t.Errorf("title/location = %q/%q", job.Title, job.Location)
	}
	if job.Company != "Acme Corp" {
		t.Errorf("company = %q", job.Company)
	}
	if job.Source != "Lever (acme-corp)" {
		t.Errorf("source = %q", job.Source)
	}
	if job.RemoteType != domain.RemoteTypeRemote {
		t.Errorf("remote type = %q", job.RemoteType)
	}
}

func TestNewAdapterValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantURL string
		wantErr bool
	}{
		{"rss without url", Config{Kind: KindRSS, Name: "x"}, "", true},
		{"greenhouse without slug", Config{Kind: KindGreenhouse}, "", true},
		{"greenhouse url", Config{Kind: KindGreenhouse, CompanySlug: "acme"}, "https://boards.greenhouse.io/acme.rss", false},
		{"lever url", Config{Kind: KindLever, CompanySlug: "acme"}, "https://jobs.lever.co/acme?format=rss", false},
		{"unknown kind", Config{Kind: "atom", URL: "https://x"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAdapter(tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && a.url != tt.wantURL {
				t.Errorf("url = %q, want %q", a.url, tt.wantURL)
			}
		})
	}
}

func TestFetchGreenhouse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssBody))
	}))
	defer srv.Close()

	client := source.NewClient(source.ClientConfig{Timeout: 5 * time.Second, RateLimit: 100, Burst: 10})
	a, err := NewAdapter(Config{Kind: KindGreenhouse, CompanySlug: "acme-corp", URL: srv.URL}, client)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	jobs, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("got %d jobs, want 3", len(jobs))
	}
	for _, j := range jobs {
		if j.Company != "Acme Corp" {
			t.Errorf("company = %q, want slug company", j.Company)
		}
	}
	if jobs[0].Title != "Senior Go Engineer at Acme Corp" {
		t.Errorf("greenhouse titles are kept whole, got %q", jobs[0].Title)
	}
}

func TestFetchMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<rss><channel><item>"))
	}))
	defer srv.Close()

	client := source.NewClient(source.ClientConfig{Timeout: 5 * time.Second, RateLimit: 100, Burst: 10})
	a, _ := NewAdapter(Config{Kind: KindRSS, Name: "broken", URL: srv.URL}, client)
	if _, err := a.Fetch(context.Background()); err == nil {
		t.Error("expected parse error")
	}
}
