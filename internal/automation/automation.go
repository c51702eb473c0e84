// Package automation drives a headless Chrome instance for catalogs that only
// serve their result pages to real browsers.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

const defaultTimeout = 60 * time.Second

var (
	chromedpExecAllocator = chromedp.NewExecAllocator
	chromedpContext       = chromedp.NewContext
	chromedpRunner        = chromedp.Run
)

// Options configures the browser.
type Options struct {
	Headless  bool
	UserAgent string
	// WaitSelector is waited for before the page HTML is read. Defaults to "body".
	WaitSelector string
	Timeout      time.Duration
}

// FetchHTML navigates to url in a fresh browser and returns the rendered
// document HTML.
func FetchHTML(parentCtx context.Context, opts Options, url string) (string, error) {
	if url == "" {
		return "", errors.New("automation requires a URL")
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()

	allocCtx, cancelAllocator := chromedpExecAllocator(ctx, buildExecAllocatorOptions(opts)...)
	defer cancelAllocator()

	browserCtx, cancelBrowser := chromedpContext(allocCtx)
	defer cancelBrowser()

	slog.Debug("Loading page in browser", "url", url, "headless", opts.Headless)

	var html string
	if err := chromedpRunner(browserCtx, buildTasks(opts, url, &html)); err != nil {
		return "", fmt.Errorf("failed to load %s in browser: %w", url, err)
	}
	return html, nil
}

// Fetcher returns a page fetcher bound to opts.
func Fetcher(opts Options) func(ctx context.Context, url string) (string, error) {
	return func(ctx context.Context, url string) (string, error) {
		return FetchHTML(ctx, opts, url)
	}
}

func buildTasks(opts Options, url string, html *string) chromedp.Tasks {
	selector := opts.WaitSelector
	if selector == "" {
		selector = "body"
	}

	var tasks chromedp.Tasks
	if opts.UserAgent != "" {
		tasks = append(tasks, emulation.SetUserAgentOverride(opts.UserAgent))
	}
	return append(tasks,
		chromedp.Navigate(url),
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.OuterHTML("html", html, chromedp.ByQuery),
	)
}

func buildExecAllocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	return []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-default-apps", true),
	}
}
