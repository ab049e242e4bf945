package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/timmy/jobscout/internal/domain"
)

// Stats are the run counters shown at the top of a report.
type Stats struct {
	RunDate       string
	Mode          domain.RunMode
	TotalFetched  int
	TotalFiltered int
	TotalScored   int
	TotalMatched  int
	TotalNew      int
	Fallback      bool
	Errors        []string
}

// Report is one rendered run report.
type Report struct {
	Stats    Stats
	Markdown string
	HTML     string
	// Jobs is the number of postings in the main section.
	Jobs int
}

// Render produces the markdown and HTML forms of a report.
// Parameters:
//   - jobs: postings for the main section, already sorted and limited.
//   - borderline: postings one point below the match threshold.
//   - stats: run counters.
// Returns:
//   - *Report: rendered report.
//   - error: non-nil if the HTML template fails.
func Render(jobs, borderline []*domain.Job, stats Stats) (*Report, error) {
	html, err := RenderHTML(jobs, borderline, stats)
	if err != nil {
		return nil, err
	}
	return &Report{
		Stats:    stats,
		Markdown: RenderMarkdown(jobs, borderline, stats),
		HTML:     html,
		Jobs:     len(jobs),
	}, nil
}

// RenderMarkdown renders the plain form of the report.
func RenderMarkdown(jobs, borderline []*domain.Job, stats Stats) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Job Matches: %s\n\n", stats.RunDate)
	fmt.Fprintf(&b, "**Mode:** %s | **Fetched:** %d | **Filtered:** %d | **Matched:** %d | **New:** %d\n\n",
		stats.Mode, stats.TotalFetched, stats.TotalFiltered, stats.TotalMatched, stats.TotalNew)
	if stats.Fallback {
		b.WriteString("> LLM scoring was unavailable; jobs below are ranked by keyword relevance.\n\n")
	}

	if len(jobs) == 0 {
		b.WriteString("No matching jobs found in this run.\n")
	}
	for i, job := range jobs {
		writeMarkdownJob(&b, i+1, job)
	}

	if len(borderline) > 0 {
		b.WriteString("\n## Borderline\n\n")
		for _, job := range borderline {
			fmt.Fprintf(&b, "- [%s](%s) at %s (score %d)\n", job.Title, job.URL, job.Company, job.Score())
		}
	}

	if len(stats.Errors) > 0 {
		b.WriteString("\n## Errors\n\n")
		for _, e := range stats.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}
	return b.String()
}

func writeMarkdownJob(b *strings.Builder, n int, job *domain.Job) {
	fmt.Fprintf(b, "## %d. [%s](%s)\n\n", n, job.Title, job.URL)
	fmt.Fprintf(b, "- **Company:** %s", job.Company)
	if job.ReputationScore != nil {
		fmt.Fprintf(b, " (reputation %d/10)", *job.ReputationScore)
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "- **Score:** %d/10", job.Score())
	if job.LLMConfidence != "" {
		fmt.Fprintf(b, " (%s confidence)", job.LLMConfidence)
	}
	b.WriteString("\n")
	if loc := locationLine(job); loc != "" {
		fmt.Fprintf(b, "- **Location:** %s\n", loc)
	}
	if job.SalaryText != "" {
		fmt.Fprintf(b, "- **Salary:** %s\n", job.SalaryText)
	}
	if job.PostedDate != "" {
		fmt.Fprintf(b, "- **Posted:** %s\n", job.PostedDate)
	}
	fmt.Fprintf(b, "- **Source:** %s\n", job.Source)
	for _, r := range job.LLMReasons {
		fmt.Fprintf(b, "  - %s\n", r)
	}
	if len(job.Flags) > 0 {
		fmt.Fprintf(b, "- **Flags:** %s\n", strings.Join(job.Flags, ", "))
	}
	b.WriteString("\n")
}

func locationLine(job *domain.Job) string {
	parts := make([]string, 0, 2)
	if job.Location != "" {
		parts = append(parts, job.Location)
	}
	if job.RemoteType != "" && job.RemoteType != domain.RemoteTypeUnknown {
		parts = append(parts, string(job.RemoteType))
	}
	return strings.Join(parts, ", ")
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"score":    func(j *domain.Job) int { return j.Score() },
	"location": locationLine,
	"join":     strings.Join,
	"inc":      func(i int) int { return i + 1 },
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Job Matches: {{.Stats.RunDate}}</title></head>
<body style="font-family: -apple-system, Helvetica, Arial, sans-serif; max-width: 760px; margin: auto; color: #222;">
<h1>Job Matches: {{.Stats.RunDate}}</h1>
<p style="color: #555;">Mode: {{.Stats.Mode}} | Fetched: {{.Stats.TotalFetched}} | Filtered: {{.Stats.TotalFiltered}} | Matched: {{.Stats.TotalMatched}} | New: {{.Stats.TotalNew}}</p>
{{- if .Stats.Fallback}}
<p style="background: #fff3cd; padding: 8px;">LLM scoring was unavailable; jobs below are ranked by keyword relevance.</p>
{{- end}}
{{- if not .Jobs}}
<p>No matching jobs found in this run.</p>
{{- end}}
{{- range $i, $j := .Jobs}}
<div style="border: 1px solid #ddd; border-radius: 6px; padding: 12px; margin: 12px 0;">
  <h2 style="margin: 0 0 6px;">{{inc $i}}. <a href="{{$j.URL}}">{{$j.Title}}</a></h2>
  <p style="margin: 2px 0;"><strong>{{$j.Company}}</strong>{{if $j.ReputationScore}} (reputation {{$j.ReputationScore}}/10){{end}}</p>
  <p style="margin: 2px 0;">Score: <strong>{{score $j}}/10</strong>{{if $j.LLMConfidence}} ({{$j.LLMConfidence}} confidence){{end}}</p>
  {{- with location $j}}<p style="margin: 2px 0;">Location: {{.}}</p>{{end}}
  {{- if $j.SalaryText}}<p style="margin: 2px 0;">Salary: {{$j.SalaryText}}</p>{{end}}
  {{- if $j.PostedDate}}<p style="margin: 2px 0;">Posted: {{$j.PostedDate}}</p>{{end}}
  {{- if $j.LLMReasons}}
  <ul>{{range $j.LLMReasons}}<li>{{.}}</li>{{end}}</ul>
  {{- end}}
  {{- if $j.Flags}}<p style="color: #888; font-size: 12px;">{{join $j.Flags ", "}}</p>{{end}}
</div>
{{- end}}
{{- if .Borderline}}
<h2>Borderline</h2>
<ul>
{{- range .Borderline}}
  <li><a href="{{.URL}}">{{.Title}}</a> at {{.Company}} (score {{score .}})</li>
{{- end}}
</ul>
{{- end}}
{{- if .Stats.Errors}}
<h2>Errors</h2>
<ul>{{range .Stats.Errors}}<li>{{.}}</li>{{end}}</ul>
{{- end}}
</body>
</html>
`))

// RenderHTML renders the rich form of the report.
func RenderHTML(jobs, borderline []*domain.Job, stats Stats) (string, error) {
	var buf bytes.Buffer
	err := htmlTemplate.Execute(&buf, struct {
		Stats      Stats
		Jobs       []*domain.Job
		Borderline []*domain.Job
	}{stats, jobs, borderline})
	if err != nil {
		return "", fmt.Errorf("failed to render html report: %w", err)
	}
	return buf.String(), nil
}
