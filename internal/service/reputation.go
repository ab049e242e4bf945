package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/jobscout/internal/domain"
	"github.com/timmy/jobscout/internal/logger"
)

// Reputation scores.
const (
	ReputationKnown    = 9
	ReputationRelated  = 8
	ReputationStrong   = 8
	ReputationSome     = 6
	ReputationNeutral  = 5
	ReputationNoSignal = 4

	maxEvidence = 5
)

// knownCompanies is the allowlist of well-known tech companies.
var knownCompanies = []string{
	"google", "meta", "apple", "amazon", "microsoft", "netflix", "openai",
	"anthropic", "nvidia", "tesla", "stripe", "figma", "airbnb", "uber",
	"lyft", "coinbase", "databricks", "snowflake", "datadog", "cloudflare",
	"twilio", "atlassian", "shopify", "salesforce", "adobe", "oracle",
	"ibm", "intel", "amd", "qualcomm", "broadcom", "palantir", "spotify",
	"twitter", "x", "reddit", "discord", "slack", "zoom", "doordash",
	"instacart", "robinhood", "plaid", "square", "block", "paypal",
	"linkedin", "github", "gitlab", "hashicorp", "elastic", "mongodb",
	"vercel", "supabase", "hugging face", "huggingface", "cohere",
	"deepmind", "stability ai", "midjourney", "notion", "linear",
	"anyscale", "langchain", "mistral", "together ai",
}

var fundingSignals = []string{
	"series a", "series b", "series c", "series d", "series e",
	"ipo", "publicly traded", "nasdaq", "nyse", "fortune 500",
	"raised", "funding", "valuation", "unicorn", "billion",
}

// SearchResult is one search engine hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Searcher runs web searches for reputation signals.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// SearxngClient queries a SearXNG instance's JSON API.
type SearxngClient struct {
	client   *resty.Client
	endpoint string
}

// NewSearxngClient creates a client for the instance at baseURL.
func NewSearxngClient(baseURL string, timeout time.Duration) *SearxngClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")

	return &SearxngClient{
		client:   client,
		endpoint: strings.TrimRight(baseURL, "/") + "/search",
	}
}

type searxngResponse struct {
	Results []SearchResult `json:"results"`
}

// Search runs query in the general category and returns at most maxResults hits.
func (c *SearxngClient) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	var resp searxngResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":          query,
			"format":     "json",
			"categories": "general",
		}).
		SetResult(&resp).
		Get(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call SearXNG: %w", err)
	}
	if httpResp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("SearXNG error: status %d", httpResp.StatusCode())
	}

	results := resp.Results
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

type reputation struct {
	score    int
	evidence []string
}

// ReputationChecker scores companies from the allowlist and, when a
// Searcher is configured, from funding signals in search results.
// Results are memoized per company.
type ReputationChecker struct {
	searcher   Searcher
	maxResults int

	mu   sync.Mutex
	memo map[string]reputation
}

// NewReputationChecker creates a checker. A nil searcher disables search.
func NewReputationChecker(searcher Searcher, maxResults int) *ReputationChecker {
	if maxResults <= 0 {
		maxResults = 3
	}
	return &ReputationChecker{
		searcher:   searcher,
		maxResults: maxResults,
		memo:       make(map[string]reputation),
	}
}

// Check returns a 0-10 score and evidence for company. It never fails.
func (r *ReputationChecker) Check(ctx context.Context, company string) (int, []string) {
	key := strings.ToLower(strings.TrimSpace(company))

	r.mu.Lock()
	cached, ok := r.memo[key]
	r.mu.Unlock()
	if ok {
		return cached.score, append([]string(nil), cached.evidence...)
	}

	rep := r.check(ctx, company, key)

	r.mu.Lock()
	r.memo[key] = rep
	r.mu.Unlock()
	return rep.score, append([]string(nil), rep.evidence...)
}

func (r *ReputationChecker) check(ctx context.Context, company, key string) reputation {
	if key != "" {
		for _, known := range knownCompanies {
			if key == known {
				return reputation{ReputationKnown, []string{company + " is a well-known tech company"}}
			}
		}
		for _, known := range knownCompanies {
			if containsWord(key, known) || containsWord(known, key) {
				return reputation{ReputationRelated, []string{
					fmt.Sprintf("%s appears related to known company '%s'", company, known),
				}}
			}
		}
	}

	if r.searcher == nil {
		return reputation{ReputationNeutral, []string{"Search disabled, using neutral score"}}
	}

	queries := []string{
		company + " company funding",
		company + " careers hiring",
	}

	var evidence []string
	hits := 0
	for _, q := range queries {
		results, err := r.searcher.Search(ctx, q, r.maxResults)
		if err != nil {
			logger.FromContext(ctx).WithError(err).WithField(logger.FieldCompany, company).Warn("Reputation search failed")
			return reputation{ReputationNeutral, []string{"Search failed: " + err.Error()}}
		}
		for _, res := range results {
			combined := strings.ToLower(res.Content + " " + res.Title)
			for _, signal := range fundingSignals {
				if strings.Contains(combined, signal) {
					hits++
					evidence = append(evidence, fmt.Sprintf("Signal '%s' found: %s", signal, domain.TruncateRunes(res.Title, 80)))
					break
				}
			}
		}
	}

	score := ReputationNoSignal
	switch {
	case hits >= 3:
		score = ReputationStrong
	case hits >= 1:
		score = ReputationSome
	default:
		evidence = append(evidence, "No strong reputation signals found")
	}
	if len(evidence) > maxEvidence {
		evidence = evidence[:maxEvidence]
	}
	return reputation{score, evidence}
}

// containsWord reports whether needle occurs in haystack on word boundaries.
func containsWord(haystack, needle string) bool {
	if needle == "" || len(needle) > len(haystack) {
		return false
	}
	for start := 0; start+len(needle) <= len(haystack); {
		i := strings.Index(haystack[start:], needle)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(needle)
		if (i == 0 || !isWordByte(haystack[i-1])) && (end == len(haystack) || !isWordByte(haystack[end])) {
			return true
		}
		start = i + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// AnnotateReputation returns clones of jobs with reputation fields set.
func (r *ReputationChecker) AnnotateReputation(ctx context.Context, jobs []*domain.Job) []*domain.Job {
	out := make([]*domain.Job, len(jobs))
	for i, j := range jobs {
		job := j.Clone()
		score, evidence := r.Check(ctx, job.Company)
		job.ReputationScore = domain.IntPtr(score)
		job.ReputationEvidence = domain.StringArray(evidence)
		out[i] = job
	}
	return out
}
