package source

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// DefaultUserAgent is sent with every source request.
const DefaultUserAgent = "JobSearchAgent/1.0"

// HostLimiter rate-limits requests per hostname (remoteok.com,
// boards.greenhouse.io, jobs.lever.co, ...).
type HostLimiter struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
	r  rate.Limit
	b  int
}

// NewHostLimiter creates a limiter allowing reqPerSec requests per host with
// the given burst.
func NewHostLimiter(reqPerSec float64, burst int) *HostLimiter {
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		m: make(map[string]*rate.Limiter),
		r: rate.Limit(reqPerSec),
		b: burst,
	}
}

func (hl *HostLimiter) limiterFor(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	if lim, ok := hl.m[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(hl.r, hl.b)
	hl.m[host] = lim
	return lim
}

// WaitURL blocks until a request to raw's host is allowed.
func (hl *HostLimiter) WaitURL(ctx context.Context, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return hl.limiterFor("_").Wait(ctx)
	}
	return hl.limiterFor(u.Host).Wait(ctx)
}

// Client is the HTTP client shared by all source adapters.
type Client struct {
	http    *resty.Client
	limiter *HostLimiter
}

// ClientConfig holds source HTTP settings.
type ClientConfig struct {
	UserAgent string
	Timeout   time.Duration
	RateLimit float64
	Burst     int
}

// NewClient creates a source client.
// Parameters:
//   - cfg: user agent, request timeout and per-host rate settings.
// Returns:
//   - *Client: client ready for Get calls.
func NewClient(cfg ClientConfig) *Client {
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 1
	}

	client := resty.New()
	client.SetHeader("User-Agent", ua)
	client.SetTimeout(timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	return &Client{
		http:    client,
		limiter: NewHostLimiter(rps, cfg.Burst),
	}
}

// Get fetches rawURL and returns the body of a 2xx response.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.WaitURL(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	resp, err := c.http.R().
		SetContext(ctx).
		Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode())
	}
	return resp.Body(), nil
}
