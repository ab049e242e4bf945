package remoteok

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/timmy/jobscout/internal/domain"
	"github.com/timmy/jobscout/internal/logger"
	"github.com/timmy/jobscout/internal/source"
)

const (
	// DefaultURL is the public RemoteOK API.
	DefaultURL = "https://remoteok.com/api"
	jobBaseURL = "https://remoteok.com/remote-jobs/"
)

// item is one RemoteOK posting. Salary values arrive as numbers or strings.
type item struct {
	Position    string   `json:"position"`
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	URL         string   `json:"url"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	SalaryMin   any      `json:"salary_min"`
	SalaryMax   any      `json:"salary_max"`
	Tags        []string `json:"tags"`
	Location    string   `json:"location"`
}

// Adapter implements the Source interface for the RemoteOK JSON API.
type Adapter struct {
	name   string
	url    string
	client *source.Client
}

// NewAdapter creates a RemoteOK adapter.
// Parameters:
//   - name: display name from sources.yaml, "RemoteOK" when empty.
//   - url: API URL, DefaultURL when empty.
//   - client: shared source HTTP client.
// Returns:
//   - *Adapter: initialized adapter.
func NewAdapter(name, url string, client *source.Client) *Adapter {
	if name == "" {
		name = "RemoteOK"
	}
	if url == "" {
		url = DefaultURL
	}
	return &Adapter{name: name, url: url, client: client}
}

// GetSourceID returns the unique identifier for this source.
func (a *Adapter) GetSourceID() string {
	return "remoteok"
}

// GetDisplayName returns a human-readable name for this source.
func (a *Adapter) GetDisplayName() string {
	return a.name
}

// Fetch downloads the feed. The first array element is API metadata and
// is skipped; items without a title or URL are dropped.
func (a *Adapter) Fetch(ctx context.Context) ([]*domain.Job, error) {
	body, err := a.client.Get(ctx, a.url)
	if err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode RemoteOK response: %w", err)
	}
	if len(raw) < 2 {
		return nil, nil
	}

	log := logger.FromContext(ctx)
	jobs := make([]*domain.Job, 0, len(raw)-1)
	for _, msg := range raw[1:] {
		var it item
		if err := json.Unmarshal(msg, &it); err != nil {
			log.WithError(err).Warn("Failed to parse RemoteOK item")
			continue
		}
		if job := a.toJob(it); job != nil {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

func (a *Adapter) toJob(it item) *domain.Job {
	title := it.Position
	if title == "" {
		title = it.Title
	}
	jobURL := it.URL
	if jobURL == "" && it.Slug != "" {
		jobURL = jobBaseURL + it.Slug
	}
	if title == "" || jobURL == "" {
		return nil
	}

	company := it.Company
	if company == "" {
		company = "Unknown"
	}
	location := it.Location
	if location == "" {
		location = "Remote"
	}

	description := source.CleanHTML(it.Description)
	if len(it.Tags) > 0 {
		description = strings.TrimSpace(description + " " + strings.Join(it.Tags, " "))
	}

	job := &domain.Job{
		Title:          title,
		Company:        company,
		URL:            jobURL,
		Source:         a.name,
		PostedDate:     it.Date,
		EmploymentType: domain.EmploymentFullTime,
		RemoteType:     domain.RemoteTypeRemote,
		SalaryMin:      source.ParseLooseInt(it.SalaryMin),
		SalaryMax:      source.ParseLooseInt(it.SalaryMax),
		Location:       location,
		Description:    description,
	}
	if job.SalaryMin != nil || job.SalaryMax != nil {
		job.SalaryText = fmt.Sprintf("$%s–$%s", intOrQuestion(job.SalaryMin), intOrQuestion(job.SalaryMax))
	}
	return job
}

func intOrQuestion(v *int) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *v)
}
