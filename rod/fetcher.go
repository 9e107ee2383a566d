package rod

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fwojciec/medprice"
	"github.com/go-rod/rod/lib/proto"
)

// Ensure Fetcher implements medprice.Fetcher at compile time.
var _ medprice.Fetcher = (*Fetcher)(nil)

// DefaultFetchTimeout bounds a single page render.
const DefaultFetchTimeout = 30 * time.Second

// DefaultSettleTimeout bounds the wait for a price element after load.
const DefaultSettleTimeout = 5 * time.Second

// DefaultBlockedURLs keeps the browser from downloading media that pharmacy
// pages load in bulk but that never carries product data.
var DefaultBlockedURLs = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg",
	"*.woff", "*.woff2", "*.ttf", "*.mp4",
}

// DefaultWaitSelector matches the price markup used by the known pharmacies
// and generic schema.org pages.
const DefaultWaitSelector = `[itemprop="price"], [class*="price" i], [class*="Price"]`

// Fetcher retrieves rendered HTML from URLs using Chrome browser automation.
// It is the fetcher of choice for pharmacy storefronts that render prices
// client-side. Fetcher is safe for concurrent use by multiple goroutines.
type Fetcher struct {
	manager       *BrowserManager
	fetchTimeout  time.Duration
	settleTimeout time.Duration
	waitSelector  string
	blockedURLs   []string
	managerOpts   []ManagerOption
	closed        atomic.Bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithFetchTimeout sets the timeout for a single fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.fetchTimeout = d
	}
}

// WithWaitSelector sets the selector awaited after load before the HTML is
// captured. An empty selector disables the wait.
func WithWaitSelector(selector string, timeout time.Duration) Option {
	return func(f *Fetcher) {
		f.waitSelector = selector
		f.settleTimeout = timeout
	}
}

// WithBlockedURLs sets URL patterns the browser must not load.
func WithBlockedURLs(patterns ...string) Option {
	return func(f *Fetcher) {
		f.blockedURLs = patterns
	}
}

// WithManagerOptions configures the underlying BrowserManager.
func WithManagerOptions(opts ...ManagerOption) Option {
	return func(f *Fetcher) {
		f.managerOpts = append(f.managerOpts, opts...)
	}
}

// NewFetcher creates a new Fetcher that launches a headless Chrome browser.
// Close must be called when the Fetcher is no longer needed.
//
// Returns an error if Chrome/Chromium cannot be found or launched.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		fetchTimeout:  DefaultFetchTimeout,
		settleTimeout: DefaultSettleTimeout,
		waitSelector:  DefaultWaitSelector,
		blockedURLs:   DefaultBlockedURLs,
	}
	for _, opt := range opts {
		opt(f)
	}

	manager, err := NewBrowserManager(f.managerOpts...)
	if err != nil {
		return nil, err
	}
	f.manager = manager
	return f, nil
}

// Fetch navigates to the URL and returns the rendered HTML.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.closed.Load() {
		return "", medprice.Errorf(medprice.EINVALID, "fetcher is closed")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, f.fetchTimeout)
	defer cancel()

	page, err := f.manager.Browser().Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", err
	}
	defer page.Close()
	defer f.manager.PageDone()

	page = page.Context(ctx)

	if len(f.blockedURLs) > 0 {
		if err := (proto.NetworkEnable{}).Call(page); err != nil {
			return "", err
		}
		if err := (proto.NetworkSetBlockedURLs{Urls: f.blockedURLs}).Call(page); err != nil {
			return "", err
		}
	}

	if err := page.Navigate(url); err != nil {
		return "", contextErr(ctx, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", contextErr(ctx, err)
	}

	// Prices often arrive after load; a missing element is not an error.
	if f.waitSelector != "" && f.settleTimeout > 0 {
		_, _ = page.Timeout(f.settleTimeout).Element(f.waitSelector)
	}

	html, err := page.HTML()
	if err != nil {
		return "", contextErr(ctx, err)
	}
	return html, nil
}

// Close releases browser resources. Close is safe to call multiple times.
func (f *Fetcher) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	return f.manager.Close()
}

// LauncherPID returns the process ID of the browser launcher.
func (f *Fetcher) LauncherPID() int {
	return f.manager.LauncherPID()
}

// contextErr prefers the context error so callers can match
// context.DeadlineExceeded when rod reports a generic failure.
func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
