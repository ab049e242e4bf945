package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/timmy/jobscout/internal/domain"
)

// Soft filter flags. None of them removes a record.
const (
	FlagRemoteMismatch        = "remote_mismatch"
	FlagContractRole          = "contract_role"
	FlagHourlyRole            = "hourly_role"
	FlagNotFullTime           = "not_full_time"
	FlagStalePosting          = "stale_posting"
	FlagSalaryBelowMin        = "salary_below_min"
	FlagSalaryAboveMax        = "salary_above_max"
	FlagExcludedKeywordPrefix = "excluded_keyword:"
	FlagBelowKeywordThreshold = "below_keyword_threshold"
)

// Annotator is the soft relevance filter: it counts keyword hits and flags
// criteria violations, and passes every record through.
type Annotator struct {
	now func() time.Time
}

// NewAnnotator creates an Annotator using the wall clock.
func NewAnnotator() *Annotator {
	return &Annotator{now: time.Now}
}

// Annotate returns annotated clones of jobs in the same order.
func (a *Annotator) Annotate(jobs []*domain.Job, criteria domain.Criteria) []*domain.Job {
	out := make([]*domain.Job, len(jobs))
	for i, j := range jobs {
		job := j.Clone()
		a.annotate(job, criteria)
		out[i] = job
	}
	return out
}

func (a *Annotator) annotate(job *domain.Job, c domain.Criteria) {
	text := strings.ToLower(job.Title + " " + job.Description)

	matches := CountKeywordMatches(text, c.Keywords)
	job.KeywordMatches = matches
	job.AddFlag(fmt.Sprintf("%s%d", domain.FlagKeywordMatchesPrefix, matches))
	if len(c.Keywords) > 0 && matches < c.MinKeywordMatches {
		job.AddFlag(FlagBelowKeywordThreshold)
	}

	if c.FullyRemote && job.RemoteType != domain.RemoteTypeRemote && job.RemoteType != domain.RemoteTypeUnknown && job.RemoteType != "" {
		job.AddFlag(FlagRemoteMismatch)
	}

	switch job.EmploymentType {
	case domain.EmploymentContract:
		if c.AvoidContract {
			job.AddFlag(FlagContractRole)
		}
	case domain.EmploymentHourly:
		if c.AvoidHourly {
			job.AddFlag(FlagHourlyRole)
		}
	case domain.EmploymentPartTime, domain.EmploymentInternship:
		if c.FullTimeOnly {
			job.AddFlag(FlagNotFullTime)
		}
	}

	if c.PostedWithinDays > 0 && job.PostedDate != "" {
		if posted, err := time.Parse(time.RFC3339, job.PostedDate); err == nil {
			cutoff := a.now().Add(-time.Duration(c.PostedWithinDays) * 24 * time.Hour)
			if posted.Before(cutoff) {
				job.AddFlag(FlagStalePosting)
			}
		}
	}

	if job.SalaryMax != nil && c.MinSalary != nil && *job.SalaryMax < *c.MinSalary {
		job.AddFlag(FlagSalaryBelowMin)
	}
	if job.SalaryMin != nil && c.MaxSalary != nil && *job.SalaryMin > *c.MaxSalary {
		job.AddFlag(FlagSalaryAboveMax)
	}

	for _, kw := range c.ExcludeKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(text, kw) {
			job.AddFlag(FlagExcludedKeywordPrefix + kw)
		}
	}
}

// CountKeywordMatches counts keywords present in lowered text, case-insensitively.
// Each keyword counts at most once.
func CountKeywordMatches(loweredText string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(loweredText, kw) {
			n++
		}
	}
	return n
}
