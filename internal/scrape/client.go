// Package scrape fetches volatile market data from public sources: an
// equity index level, an fx rate, a commodity reference price, issue
// boards and live quotes. Every source fails independently — a fetch
// error is logged, tagged with the source name, and degrades to "no
// data" so the caller can try the next source in its chain. Nothing in
// this package propagates a panic or blocks without a timeout.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SourceError tags a fetch or parse failure with the source it came
// from, so fallback chains can log precisely which site failed.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Client is the HTTP client shared by all fetchers: bounded timeout and
// browser-like headers, since several sources refuse obvious bots.
type Client struct {
	http *http.Client
}

// NewClient creates a fetch client with the given per-request bound.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{Timeout: timeout},
	}
}

const maxBodyBytes = 4 << 20 // markup pages; anything bigger is not ours

// Get fetches url and returns the body as text. Non-2xx statuses are
// errors; the body read is capped.
func (c *Client) Get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:122.0) Gecko/20100101 Firefox/122.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
