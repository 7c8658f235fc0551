package crawler

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRequestsPerSecond spaces requests two seconds apart.
const DefaultRequestsPerSecond = 0.5

var userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// RateLimitedClient wraps an http.Client with rate limiting
type RateLimitedClient struct {
	client      *http.Client
	rateLimiter *rate.Limiter
}

func NewRateLimitedClient(requestsPerSecond float64) *RateLimitedClient {
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRequestsPerSecond
	}
	return &RateLimitedClient{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

func (c *RateLimitedClient) Do(req *http.Request) (*http.Response, error) {
	err := c.rateLimiter.Wait(req.Context())
	if err != nil {
		return nil, err
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}
	return c.client.Do(req)
}
