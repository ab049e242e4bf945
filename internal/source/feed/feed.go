package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/timmy/jobscout/internal/domain"
	"github.com/timmy/jobscout/internal/source"
)

// Kind selects how feed items are interpreted.
type Kind string

const (
	KindRSS        Kind = "rss"
	KindGreenhouse Kind = "greenhouse"
	KindLever      Kind = "lever"
)

// titleSeparators split "Title at Company" style RSS titles, in order.
var titleSeparators = []string{" at ", " @ ", " - ", " — ", " | "}

// leverLocationSeparator precedes the location in Lever titles.
const leverLocationSeparator = " – "

// Config describes one feed source.
type Config struct {
	Kind        Kind
	Name        string
	URL         string
	CompanySlug string
}

// Adapter implements the Source interface for RSS 2.0 job feeds,
// including Greenhouse and Lever boards.
type Adapter struct {
	cfg     Config
	url     string
	company string
	client  *source.Client
}

// NewAdapter creates a feed adapter. For Greenhouse and Lever the URL is
// derived from the company slug unless cfg.URL is set.
// Parameters:
//   - cfg: kind, name, URL and company slug.
//   - client: shared source HTTP client.
// Returns:
//   - *Adapter: initialized adapter.
//   - error: non-nil if the config lacks a URL or slug.
func NewAdapter(cfg Config, client *source.Client) (*Adapter, error) {
	a := &Adapter{cfg: cfg, url: cfg.URL, client: client}

	switch cfg.Kind {
	case KindRSS:
		if cfg.URL == "" {
			return nil, fmt.Errorf("rss source %q has no url", cfg.Name)
		}
	case KindGreenhouse, KindLever:
		if cfg.CompanySlug == "" {
			return nil, fmt.Errorf("%s source %q has no company_slug", cfg.Kind, cfg.Name)
		}
		a.company = source.TitleCaseSlug(cfg.CompanySlug)
		if a.url == "" {
			a.url = boardURL(cfg.Kind, cfg.CompanySlug)
		}
	default:
		return nil, fmt.Errorf("unknown feed kind %q", cfg.Kind)
	}
	return a, nil
}

func boardURL(kind Kind, slug string) string {
	if kind == KindGreenhouse {
		return fmt.Sprintf("https://boards.greenhouse.io/%s.rss", slug)
	}
	return fmt.Sprintf("https://jobs.lever.co/%s?format=rss", slug)
}

// GetSourceID returns the unique identifier for this source.
func (a *Adapter) GetSourceID() string {
	if a.cfg.Kind == KindRSS {
		return "rss:" + a.cfg.Name
	}
	return string(a.cfg.Kind) + ":" + a.cfg.CompanySlug
}

// GetDisplayName returns a human-readable name for this source.
func (a *Adapter) GetDisplayName() string {
	switch a.cfg.Kind {
	case KindGreenhouse:
		return fmt.Sprintf("Greenhouse (%s)", a.cfg.CompanySlug)
	case KindLever:
		return fmt.Sprintf("Lever (%s)", a.cfg.CompanySlug)
	}
	if a.cfg.Name == "" {
		return "RSS"
	}
	return a.cfg.Name
}

type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Summary     string `xml:"summary"`
	PubDate     string `xml:"pubDate"`
	Location    string `xml:"location"`
}

// Fetch downloads and parses the feed.
func (a *Adapter) Fetch(ctx context.Context) ([]*domain.Job, error) {
	body, err := a.client.Get(ctx, a.url)
	if err != nil {
		return nil, err
	}
	return a.Parse(body)
}

// Parse converts an RSS document into jobs. Items without a title or link
// are skipped.
func (a *Adapter) Parse(body []byte) ([]*domain.Job, error) {
	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", a.GetDisplayName(), err)
	}

	jobs := make([]*domain.Job, 0, len(doc.Channel.Items))
	for _, it := range doc.Channel.Items {
		title := strings.TrimSpace(it.Title)
		link := strings.TrimSpace(it.Link)
		if title == "" || link == "" {
			continue
		}
		jobs = append(jobs, a.toJob(it, title, link))
	}
	return jobs, nil
}

func (a *Adapter) toJob(it rssItem, title, link string) *domain.Job {
	descHTML := it.Description
	if descHTML == "" {
		descHTML = it.Summary
	}
	description := source.CleanHTML(descHTML)

	job := &domain.Job{
		URL:         link,
		Source:      a.GetDisplayName(),
		PostedDate:  strings.TrimSpace(it.PubDate),
		Description: description,
		Location:    strings.TrimSpace(it.Location),
	}

	inferText := title + " " + description
	salaryText := description

	switch a.cfg.Kind {
	case KindRSS:
		job.Title, job.Company = splitTitleCompany(title)
		salaryText = title + " " + description
	case KindGreenhouse:
		job.Title = title
		job.Company = a.company
	case KindLever:
		job.Title = title
		job.Company = a.company
		if i := strings.LastIndex(title, leverLocationSeparator); i >= 0 {
			job.Title = strings.TrimSpace(title[:i])
			job.Location = strings.TrimSpace(title[i+len(leverLocationSeparator):])
		}
		inferText += " " + job.Location
	}

	job.RemoteType = source.InferRemoteType(inferText)
	job.EmploymentType = source.InferEmploymentType(title + " " + description)
	job.SalaryText, job.SalaryMin, job.SalaryMax = source.ExtractSalary(salaryText)
	return job
}

// splitTitleCompany splits "Title at Company" on the first separator
// present. Company is "Unknown" when no separator matches.
func splitTitleCompany(title string) (string, string) {
	for _, sep := range titleSeparators {
		if i := strings.Index(title, sep); i >= 0 {
			return strings.TrimSpace(title[:i]), strings.TrimSpace(title[i+len(sep):])
		}
	}
	return title, "Unknown"
}
