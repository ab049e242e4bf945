package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"

	"gorm.io/gorm"
)

// RemoteType is the work arrangement of a posting.
type RemoteType string

const (
	RemoteTypeRemote  RemoteType = "remote"
	RemoteTypeHybrid  RemoteType = "hybrid"
	RemoteTypeOnsite  RemoteType = "onsite"
	RemoteTypeUnknown RemoteType = "unknown"
)

// EmploymentType is the contract form of a posting.
type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full_time"
	EmploymentPartTime   EmploymentType = "part_time"
	EmploymentContract   EmploymentType = "contract"
	EmploymentHourly     EmploymentType = "hourly"
	EmploymentInternship EmploymentType = "internship"
	EmploymentUnknown    EmploymentType = "unknown"
)

// Confidence is the scorer's confidence in its own assessment.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Valid reports whether c is one of low, medium, high.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return true
	}
	return false
}

// Flags attached by pipeline stages.
const (
	FlagMissingSalary         = "missing_salary"
	FlagScoringFailed         = "scoring_failed"
	FlagKeywordRelevanceMatch = "keyword_relevance_match"
	FlagKeywordMatchesPrefix  = "keyword_matches:"
)

// MaxDescriptionRunes bounds the persisted description.
const MaxDescriptionRunes = 5000

// Job is one normalized posting. Every field any stage can produce lives
// here; absent values are nil pointers or empty strings.
type Job struct {
	// ID and DedupeKey mirror JobID and DedupeKey of URL, Company and Title.
	// They are filled in BeforeCreate and never assigned by the pipeline.
	ID        string `gorm:"column:job_id;type:text;primaryKey" json:"job_id"`
	URL       string `gorm:"type:text;not null;uniqueIndex:idx_jobs_url" json:"url"`
	DedupeKey string `gorm:"type:text;not null;index:idx_jobs_dedupe_key" json:"dedupe_key"`

	Title   string `gorm:"type:text;not null" json:"title"`
	Company string `gorm:"type:text;not null" json:"company"`
	Source  string `gorm:"type:text" json:"source"`

	PostedDate     string         `gorm:"type:text" json:"posted_date,omitempty"`
	SalaryText     string         `gorm:"type:text" json:"salary_text,omitempty"`
	SalaryMin      *int           `json:"salary_min,omitempty"`
	SalaryMax      *int           `json:"salary_max,omitempty"`
	Location       string         `gorm:"type:text" json:"location,omitempty"`
	RemoteType     RemoteType     `gorm:"type:text;default:unknown" json:"remote_type"`
	EmploymentType EmploymentType `gorm:"type:text;default:unknown" json:"employment_type"`
	Description    string         `gorm:"type:text" json:"description"`

	LLMScore           *int        `gorm:"column:llm_score" json:"llm_score,omitempty"`
	LLMReasons         StringArray `gorm:"column:llm_reasons;type:text" json:"llm_reasons"`
	LLMConfidence      Confidence  `gorm:"column:llm_confidence;type:text" json:"llm_confidence,omitempty"`
	IsMatch            bool        `json:"is_match"`
	ReputationScore    *int        `json:"reputation_score,omitempty"`
	ReputationEvidence StringArray `gorm:"type:text" json:"reputation_evidence"`
	Flags              StringArray `gorm:"type:text" json:"flags"`

	RunDate   string    `gorm:"type:text;index:idx_jobs_run_date" json:"run_date"`
	CreatedAt time.Time `json:"created_at"`

	// KeywordMatches is the annotator's count; it is not persisted.
	KeywordMatches int `gorm:"-" json:"-"`
}

// TableName returns the database table name for Job.
func (Job) TableName() string {
	return "jobs"
}

// BeforeCreate stamps the derived identifiers and bounds the description.
func (j *Job) BeforeCreate(tx *gorm.DB) error {
	j.ID = j.JobID()
	j.DedupeKey = j.FuzzyKey()
	j.Description = TruncateRunes(j.Description, MaxDescriptionRunes)
	return nil
}

// JobID returns the stable content hash for this posting.
func (j *Job) JobID() string {
	return JobID(j.URL, j.Company, j.Title)
}

// FuzzyKey returns the cross-posting key for this posting.
func (j *Job) FuzzyKey() string {
	return DedupeKey(j.Company, j.Title)
}

// JobID hashes url, company and title into a 16 hex char identifier.
// Company and title are compared case- and surrounding-space-insensitively.
func JobID(url, company, title string) string {
	normalized := strings.TrimSpace(url) + "|" +
		strings.ToLower(strings.TrimSpace(company)) + "|" +
		strings.ToLower(strings.TrimSpace(title))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:16]
}

// DedupeKey builds "company|title" keeping only lowercase letters and digits.
func DedupeKey(company, title string) string {
	return alnumLower(company) + "|" + alnumLower(title)
}

func alnumLower(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// AddFlag appends flag unless it is already present.
func (j *Job) AddFlag(flag string) {
	if j.HasFlag(flag) {
		return
	}
	j.Flags = append(j.Flags, flag)
}

// HasFlag reports whether flag is present.
func (j *Job) HasFlag(flag string) bool {
	for _, f := range j.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Score returns the LLM score, 0 when absent.
func (j *Job) Score() int {
	if j.LLMScore == nil {
		return 0
	}
	return *j.LLMScore
}

// Reputation returns the reputation score, 0 when absent.
func (j *Job) Reputation() int {
	if j.ReputationScore == nil {
		return 0
	}
	return *j.ReputationScore
}

// Clone returns a deep copy so a stage can annotate without touching its input.
func (j *Job) Clone() *Job {
	c := *j
	c.SalaryMin = cloneInt(j.SalaryMin)
	c.SalaryMax = cloneInt(j.SalaryMax)
	c.LLMScore = cloneInt(j.LLMScore)
	c.ReputationScore = cloneInt(j.ReputationScore)
	c.LLMReasons = j.LLMReasons.Clone()
	c.ReputationEvidence = j.ReputationEvidence.Clone()
	c.Flags = j.Flags.Clone()
	return &c
}

// CloneJobs deep-copies a collection.
func CloneJobs(jobs []*Job) []*Job {
	out := make([]*Job, len(jobs))
	for i, j := range jobs {
		out[i] = j.Clone()
	}
	return out
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
