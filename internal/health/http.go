package health

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPChecker checks that an HTTP dependency, such as an S3-compatible
// endpoint, is reachable.
type HTTPChecker struct {
	name   string
	url    string
	client *http.Client
}

// NewHTTPChecker creates a reachability checker for url. name is used in errors.
func NewHTTPChecker(name, url string) *HTTPChecker {
	return &HTTPChecker{
		name: name,
		url:  url,
		client: &http.Client{
			Timeout: 3 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        16,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// HealthCheck sends a HEAD request. Any status below 500 counts as healthy:
// object stores answer anonymous requests with 403.
func (c *HTTPChecker) HealthCheck(ctx context.Context) error {
	if c.url == "" {
		return fmt.Errorf("%s url not configured", c.name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%s unhealthy: unexpected status code %d", c.name, resp.StatusCode)
	}
	return nil
}
