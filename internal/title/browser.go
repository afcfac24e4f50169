package title

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// BrowserResolver renders pages in headless Chromium via rod. It handles
// pages whose title is only set by JavaScript. The browser is launched on
// first use and reused until Close.
type BrowserResolver struct {
	timeout time.Duration
	filter  filter
	log     logrus.FieldLogger

	mu      sync.Mutex
	browser *rod.Browser
}

// NewBrowserResolver creates a resolver bounded by timeout per page.
func NewBrowserResolver(timeout time.Duration, denylist []string, logger logrus.FieldLogger) *BrowserResolver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BrowserResolver{
		timeout: timeout,
		filter:  newFilter(denylist),
		log:     logger.WithField("component", "browser_title_resolver"),
	}
}

// Resolve loads url in the browser and returns its title, or url on failure.
func (r *BrowserResolver) Resolve(ctx context.Context, url string) (resolved string) {
	log := r.log.WithField("url", url)
	defer func() {
		if p := recover(); p != nil {
			log.WithField("panic", p).Error("Browser title fetch panicked, using URL")
			resolved = url
		}
	}()

	raw, err := r.pageTitle(ctx, url)
	if err != nil {
		log.WithError(err).Debug("Browser title fetch failed, using URL")
		return url
	}
	t, ok := r.filter.accept(raw)
	if !ok {
		log.WithField("title", raw).Debug("Title rejected, using URL")
		return url
	}
	return t
}

func (r *BrowserResolver) pageTitle(ctx context.Context, url string) (title string, err error) {
	browser, err := r.connect()
	if err != nil {
		return "", err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			r.log.WithError(closeErr).Warn("Error closing rod page")
		}
	}()

	pageCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	page = page.Context(pageCtx)

	if err := page.WaitLoad(); err != nil {
		if errors.Is(pageCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("page load timed out: %w", pageCtx.Err())
		}
		return "", fmt.Errorf("failed waiting for page load: %w", err)
	}

	info, err := page.Info()
	if err != nil {
		return "", fmt.Errorf("read page info: %w", err)
	}
	return info.Title, nil
}

func (r *BrowserResolver) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	path, exists := launcher.LookPath()
	if !exists {
		return nil, errors.New("rod browser dependency not found")
	}
	u, err := launcher.New().Bin(path).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	r.log.Info("Headless browser launched")
	r.browser = browser
	return browser, nil
}

// Close shuts the browser down if it was launched.
func (r *BrowserResolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	return err
}
