package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

// BrowserLoader renders pages in headless Chromium. Use it when the plain GET
// response lacks the embedded payload (consent walls, client-side rendering).
type BrowserLoader struct {
	userAgent string
	timeout   time.Duration
}

// NewBrowserLoader creates a loader; the browser itself starts lazily on Load
func NewBrowserLoader(userAgent string, timeout time.Duration) *BrowserLoader {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &BrowserLoader{userAgent: userAgent, timeout: timeout}
}

// Load navigates to url and returns the rendered document markup
func (l *BrowserLoader) Load(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Install playwright if needed
	if err := playwright.Install(); err != nil {
		return nil, fmt.Errorf("could not install playwright: %w", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch()
	if err != nil {
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.NewPage(playwright.BrowserNewPageOptions{
		UserAgent: playwright.String(l.userAgent),
	})
	if err != nil {
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	defer page.Close()

	if _, err = page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(l.timeout.Milliseconds())),
	}); err != nil {
		return nil, fmt.Errorf("could not navigate to '%s': %w", url, err)
	}

	content, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("could not read page content: %w", err)
	}
	slog.Debug("page rendered", "url", url, "bytes", len(content))
	return []byte(content), nil
}
