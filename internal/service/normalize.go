package service

import (
	"strings"
	"time"

	"github.com/timmy/jobscout/internal/domain"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02 Jan 2006",
	"2 Jan 2006",
	"January 02, 2006",
	"January 2, 2006",
}

// NormalizeDate converts s to RFC3339 in UTC. Layouts without a zone are
// read as UTC. Unparseable input is returned unchanged.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return s
}

// Normalize returns cleaned clones of jobs: RFC3339 dates, collapsed
// whitespace, bounded descriptions and a missing_salary flag.
func Normalize(jobs []*domain.Job) []*domain.Job {
	out := make([]*domain.Job, len(jobs))
	for i, j := range jobs {
		job := j.Clone()
		job.Title = collapseSpace(job.Title)
		job.Company = collapseSpace(job.Company)
		job.Location = collapseSpace(job.Location)
		job.URL = strings.TrimSpace(job.URL)
		job.Description = domain.TruncateRunes(strings.TrimSpace(job.Description), domain.MaxDescriptionRunes)
		job.PostedDate = NormalizeDate(job.PostedDate)
		if job.RemoteType == "" {
			job.RemoteType = domain.RemoteTypeUnknown
		}
		if job.EmploymentType == "" {
			job.EmploymentType = domain.EmploymentUnknown
		}
		if job.SalaryText == "" && job.SalaryMin == nil {
			job.AddFlag(domain.FlagMissingSalary)
		}
		out[i] = job
	}
	return out
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
