package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/javault/javault/internal/models"
)

// ErrNotFound means the source has no page for the key. It is definitive
// and must not be retried.
var ErrNotFound = errors.New("source: no matching content")

const (
	fetchTimeout  = 7 * time.Second
	maxRetries    = 5
	retryInterval = 20 * time.Second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Client fetches raw source documents for compound keys.
type Client struct {
	baseURL    string
	host       string
	httpClient *http.Client

	// retryPause is overridable so tests don't sleep 20s per attempt.
	retries    int
	retryPause time.Duration
}

func NewClient(baseURL string) *Client {
	host := ""
	if u, err := url.Parse(baseURL); err == nil {
		host = u.Host
	}
	return &Client{
		baseURL:    baseURL,
		host:       host,
		httpClient: &http.Client{Timeout: fetchTimeout},
		retries:    maxRetries,
		retryPause: retryInterval,
	}
}

// FetchDocument retrieves the source page for key, retrying transport
// failures up to the configured bound with a fixed pause between attempts.
// A 404 from the source returns ErrNotFound immediately.
func (c *Client) FetchDocument(ctx context.Context, key models.MovieKey) (string, error) {
	reqURL := c.baseURL + "/" + key.Display()

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			log.Printf("Source: fetch %s failed (attempt %d, %d remaining): %v",
				key.Display(), attempt, c.retries-attempt+1, lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.retryPause):
			}
		}

		doc, err := c.fetchOnce(ctx, reqURL)
		if err == nil {
			return doc, nil
		}
		if errors.Is(err, ErrNotFound) {
			return "", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}
	return "", fmt.Errorf("fetch %s: retries exhausted: %w", key.Display(), lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, reqURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", c.baseURL+"/")
	req.Header.Set("Cache-Control", "no-cache")
	if c.host != "" {
		req.Host = c.host
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("source request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("source returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read source body: %w", err)
	}
	return string(body), nil
}
