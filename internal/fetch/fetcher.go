// Package fetch reduces a URL to a normalized snapshot of its visible text.
// A headless browser renders the page so client-side content is included;
// the rendered HTML is then flattened to text.
package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"driftwatch/internal/logging"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Fetcher reduces a URL to normalized visible text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Config holds browser fetcher settings.
type Config struct {
	Headless          bool
	NavigationTimeout time.Duration
}

// BrowserFetcher renders pages with a shared headless browser instance.
// The browser is launched lazily on first fetch and reused across entities.
type BrowserFetcher struct {
	cfg Config

	mu      sync.Mutex
	browser *rod.Browser
}

// NewBrowserFetcher creates a fetcher with the given settings.
func NewBrowserFetcher(cfg Config) *BrowserFetcher {
	return &BrowserFetcher{cfg: cfg}
}

// Fetch navigates to the URL, waits for the page to load, and returns the
// normalized visible text of the rendered document.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	timer := logging.StartTimer(logging.CategoryFetch, "Fetch "+url)
	defer timer.Stop()

	browser, err := f.ensureBrowser()
	if err != nil {
		return "", fmt.Errorf("failed to launch browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return "", fmt.Errorf("failed to open page for %s: %w", url, err)
	}
	defer page.Close()

	page = page.Context(ctx)
	if f.cfg.NavigationTimeout > 0 {
		page = page.Timeout(f.cfg.NavigationTimeout)
	}

	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("page load failed for %s: %w", url, err)
	}

	htmlContent, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to read rendered HTML for %s: %w", url, err)
	}

	text, err := VisibleText(htmlContent)
	if err != nil {
		return "", fmt.Errorf("failed to reduce HTML to text for %s: %w", url, err)
	}

	logging.Fetch("Fetched %s: %d bytes of visible text", url, len(text))
	return text, nil
}

// ensureBrowser launches the shared browser on first use.
func (f *BrowserFetcher) ensureBrowser() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		return f.browser, nil
	}

	controlURL, err := launcher.New().Headless(f.cfg.Headless).Launch()
	if err != nil {
		return nil, err
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, err
	}

	f.browser = browser
	logging.Fetch("Browser launched (headless=%v)", f.cfg.Headless)
	return browser, nil
}

// Close shuts the shared browser down.
func (f *BrowserFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser == nil {
		return nil
	}
	err := f.browser.Close()
	f.browser = nil
	return err
}
