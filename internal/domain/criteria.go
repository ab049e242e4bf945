package domain

import (
	"fmt"
	"strings"
)

// RunMode selects the posting window of a run.
type RunMode string

const (
	RunModeDaily  RunMode = "daily"
	RunModeWeekly RunMode = "weekly"
)

// PostedWithinDays returns the posting window in days for the mode.
func (m RunMode) PostedWithinDays() int {
	if m == RunModeWeekly {
		return 7
	}
	return 1
}

// Valid reports whether m is a known mode.
func (m RunMode) Valid() bool {
	return m == RunModeDaily || m == RunModeWeekly
}

// Criteria holds the filtering and scoring thresholds for one run.
// It is built once at run start and passed by value afterwards.
type Criteria struct {
	FullyRemote   bool
	FullTimeOnly  bool
	AvoidHourly   bool
	AvoidContract bool

	MinSalary *int
	MaxSalary *int

	Keywords        []string
	Seniority       []string
	ExcludeKeywords []string

	PostedWithinDays    int
	MinLLMScore         int
	MaxResultsPerReport int
	MinKeywordMatches   int

	// RawText is the criteria document as written; it is sent to the LLM verbatim.
	RawText string
}

// DefaultCriteria returns the criteria used when no document is available.
func DefaultCriteria() Criteria {
	return Criteria{
		FullyRemote:         true,
		FullTimeOnly:        true,
		AvoidHourly:         true,
		AvoidContract:       true,
		PostedWithinDays:    1,
		MinLLMScore:         7,
		MaxResultsPerReport: 30,
		MinKeywordMatches:   1,
	}
}

// WithMode returns a copy with the posting window of mode.
func (c Criteria) WithMode(mode RunMode) Criteria {
	c.PostedWithinDays = mode.PostedWithinDays()
	return c
}

// PromptText returns the text the LLM sees for these criteria.
func (c Criteria) PromptText() string {
	if strings.TrimSpace(c.RawText) != "" {
		return c.RawText
	}

	var parts []string
	if c.FullyRemote {
		parts = append(parts, "Must be fully remote")
	}
	if c.FullTimeOnly {
		parts = append(parts, "Must be full-time")
	}
	if c.AvoidContract {
		parts = append(parts, "No contract/1099 roles")
	}
	if c.AvoidHourly {
		parts = append(parts, "No hourly roles")
	}
	if c.MinSalary != nil || c.MaxSalary != nil {
		parts = append(parts, fmt.Sprintf("Salary range: $%s-$%s", intOrUnknown(c.MinSalary), intOrUnknown(c.MaxSalary)))
	}
	if len(c.Keywords) > 0 {
		parts = append(parts, "Target keywords: "+strings.Join(c.Keywords, ", "))
	}
	if len(c.Seniority) > 0 {
		parts = append(parts, "Seniority levels: "+strings.Join(c.Seniority, ", "))
	}
	if len(c.ExcludeKeywords) > 0 {
		parts = append(parts, "Exclude: "+strings.Join(c.ExcludeKeywords, ", "))
	}

	lines := make([]string, len(parts))
	for i, p := range parts {
		lines[i] = "- " + p
	}
	return strings.Join(lines, "\n")
}

func intOrUnknown(v *int) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *v)
}
