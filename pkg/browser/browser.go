// Package browser renders client-side pages through a headless Chrome.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Adda-Baaj/arthik-khobor/internal/logger"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const (
	defaultNavigateTimeout = 30 * time.Second
	defaultWaitTimeout     = 15 * time.Second
	defaultSettleDelay     = 3 * time.Second
)

// Request describes one page render.
type Request struct {
	URL          string
	WaitSelector string
	WaitTimeout  time.Duration
	// Settle is the fixed delay used when no WaitSelector is given.
	Settle  time.Duration
	Headers map[string]string
}

// Renderer returns the rendered DOM of a page as HTML.
type Renderer interface {
	Render(ctx context.Context, req Request) (string, error)
}

// Options configures the Chrome allocator.
type Options struct {
	ExecPath        string
	Headless        bool
	UserAgent       string
	NavigateTimeout time.Duration

	// WaitTimeout applies to requests that name a selector but no timeout.
	WaitTimeout time.Duration
}

// ChromeRenderer drives a single long-lived browser and opens one tab per render.
type ChromeRenderer struct {
	opts Options
	log  logger.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
}

// NewChromeRenderer creates a renderer. The browser starts lazily on first use.
func NewChromeRenderer(opts Options, log logger.Logger) *ChromeRenderer {
	if log == nil {
		log = logger.NopLogger{}
	}
	if opts.NavigateTimeout <= 0 {
		opts.NavigateTimeout = defaultNavigateTimeout
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = defaultWaitTimeout
	}
	return &ChromeRenderer{opts: opts, log: log}
}

func (r *ChromeRenderer) ensureBrowser() (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browserCtx != nil && r.browserCtx.Err() == nil {
		return r.browserCtx, nil
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", r.opts.Headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.WindowSize(1366, 900),
	)
	if r.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(r.opts.ExecPath))
	}
	if r.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(r.opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	r.browserCtx = browserCtx
	r.cancelAlloc = cancelAlloc
	r.cancelBrowser = cancelBrowser
	return browserCtx, nil
}

// Render navigates a fresh tab to req.URL and returns the document HTML.
// A missing wait selector is logged and the current DOM is returned anyway.
func (r *ChromeRenderer) Render(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.URL) == "" {
		return "", errors.New("render url is empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	browserCtx, err := r.ensureBrowser()
	if err != nil {
		return "", err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	navCtx, cancelNav := context.WithTimeout(tabCtx, r.opts.NavigateTimeout)
	defer cancelNav()

	actions := []chromedp.Action{}
	if len(req.Headers) > 0 {
		hdrs := network.Headers{}
		for k, v := range req.Headers {
			if strings.EqualFold(k, "User-Agent") {
				continue
			}
			hdrs[k] = v
		}
		actions = append(actions, network.Enable(), network.SetExtraHTTPHeaders(hdrs))
	}
	actions = append(actions, chromedp.Navigate(req.URL))
	if err := chromedp.Run(navCtx, actions...); err != nil {
		return "", fmt.Errorf("navigate %s: %w", req.URL, err)
	}

	if sel := strings.TrimSpace(req.WaitSelector); sel != "" {
		wait := req.WaitTimeout
		if wait <= 0 {
			wait = r.opts.WaitTimeout
		}
		waitCtx, cancelWait := context.WithTimeout(navCtx, wait)
		err := chromedp.Run(waitCtx, chromedp.WaitReady(sel, chromedp.ByQuery))
		cancelWait()
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			r.log.WarnObj("wait selector not found", "render_wait_timeout", map[string]any{
				"url":      req.URL,
				"selector": sel,
				"timeout":  wait.String(),
			})
		}
	} else {
		settle := req.Settle
		if settle <= 0 {
			settle = defaultSettleDelay
		}
		if err := chromedp.Run(navCtx, chromedp.Sleep(settle)); err != nil {
			return "", fmt.Errorf("settle %s: %w", req.URL, err)
		}
	}

	var html string
	if err := chromedp.Run(navCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read dom %s: %w", req.URL, err)
	}
	return html, nil
}

// Close shuts down the browser process.
func (r *ChromeRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelBrowser != nil {
		r.cancelBrowser()
	}
	if r.cancelAlloc != nil {
		r.cancelAlloc()
	}
	r.browserCtx = nil
	r.cancelAlloc = nil
	r.cancelBrowser = nil
	return nil
}
