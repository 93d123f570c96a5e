package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxResponseBodyBytes limits the size of fetched page responses.
const maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB

// defaultRequestTimeout bounds a single HTTP fetch.
const defaultRequestTimeout = 10 * time.Second

// ErrUnsupportedContent marks responses that are not HTML pages.
var ErrUnsupportedContent = errors.New("unsupported content type")

// Fetcher retrieves page bodies over HTTP. Redirects are followed up to
// DefaultMaxRedirects hops; only 2xx text/html responses are accepted.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
}

// NewFetcher creates a Fetcher with the given request timeout and
// User-Agent header.
func NewFetcher(requestTimeout time.Duration, userAgent string) *Fetcher {
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:       requestTimeout,
			CheckRedirect: RedirectPolicy(DefaultMaxRedirects),
		},
		userAgent: userAgent,
	}
}

// Fetch performs the HTTP GET for the given URL and returns the body.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if reqErr != nil {
		return nil, fmt.Errorf("create request: %w", reqErr)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, doErr := f.httpClient.Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("http fetch: %w", doErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "text/html") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, contentType)
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if readErr != nil {
		return nil, fmt.Errorf("read response body: %w", readErr)
	}

	return body, nil
}
