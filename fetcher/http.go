package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	DefaultUserAgent = "Mozilla/5.0"
	defaultTimeout   = 30 * time.Second
	maxPageSize      = 16 * 1024 * 1024 // Community pages are a few MB at most
)

// PageLoader retrieves the raw markup of a page
type PageLoader interface {
	Load(ctx context.Context, url string) ([]byte, error)
}

// HTTPLoader fetches pages with a plain GET request
type HTTPLoader struct {
	client    *http.Client
	userAgent string
	maxSize   int64
}

// NewHTTPLoader creates a loader sending the given User-Agent header.
// A zero timeout falls back to 30 seconds.
func NewHTTPLoader(userAgent string, timeout time.Duration) *HTTPLoader {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPLoader{
		client:    &http.Client{Transport: transport, Timeout: timeout},
		userAgent: userAgent,
		maxSize:   maxPageSize,
	}
}

// Load performs the GET request and returns the response body
func (l *HTTPLoader) Load(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for '%s' with %w", url, err)
	}
	req.Header.Set("User-Agent", l.userAgent)
	// Without it YouTube may serve a localized consent interstitial
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get '%s' with %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d for '%s'", resp.StatusCode, url)
	}

	// One extra byte tells a page of exactly maxSize from a longer one
	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body of '%s' with %w", url, err)
	}
	if int64(len(body)) > l.maxSize {
		return nil, fmt.Errorf("page '%s' exceeds %d bytes", url, l.maxSize)
	}
	slog.Debug("page loaded", "url", url, "bytes", len(body))
	return body, nil
}
