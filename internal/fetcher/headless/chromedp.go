// Package headless drives a real Chrome through chromedp so pages render
// their JavaScript before text and links are read.
package headless

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/company-intel-crawler/internal/crawler"
)

// DefaultNavTimeout bounds Navigate when the caller passes no timeout.
const DefaultNavTimeout = 90 * time.Second

// opTimeout bounds text, anchor and click evaluations.
const opTimeout = 30 * time.Second

// Config controls the Chrome process.
type Config struct {
	UserAgent string
	Headless  bool
	NoSandbox bool
	// ExecPath overrides Chrome discovery.
	ExecPath string
}

// Launcher starts one Chrome per run.
type Launcher struct {
	cfg    Config
	logger *zap.Logger
}

var _ crawler.Launcher = (*Launcher)(nil)

// NewLauncher creates a chromedp-backed launcher.
func NewLauncher(cfg Config, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{cfg: cfg, logger: logger}
}

func (l *Launcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if l.cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if l.cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if l.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.cfg.UserAgent))
	}
	if l.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.cfg.ExecPath))
	}
	return opts
}

// Launch starts Chrome and waits until it accepts commands. The browser
// lives until Close or until ctx ends.
func (l *Launcher) Launch(ctx context.Context) (crawler.Browser, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, l.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	l.logger.Debug("chrome started")
	return &Browser{
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
		logger:      l.logger,
	}, nil
}

// Browser is a running Chrome instance.
type Browser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger
	closeOnce   sync.Once
}

// NewPage opens a fresh tab.
func (b *Browser) NewPage(ctx context.Context) (crawler.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("open tab: %w", err)
	}
	tabCtx, cancel := chromedp.NewContext(b.ctx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return &Page{ctx: tabCtx, cancel: cancel}, nil
}

// Close shuts Chrome down. Calling it more than once is harmless.
func (b *Browser) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if cerr := chromedp.Cancel(b.ctx); cerr != nil && !errors.Is(cerr, context.Canceled) {
			err = fmt.Errorf("close chrome: %w", cerr)
		}
		b.cancel()
		b.allocCancel()
	})
	return err
}

// Page is one Chrome tab.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// op derives a command context from the tab that also ends with ctx.
func (p *Page) op(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(p.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

// Navigate loads url and returns once DOMContentLoaded fires.
func (p *Page) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultNavTimeout
	}
	opCtx, cancel := p.op(ctx, timeout)
	defer cancel()

	loaded := make(chan struct{})
	var once sync.Once
	listenCtx, stopListening := context.WithCancel(opCtx)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, func(ev any) {
		if _, ok := ev.(*page.EventDomContentEventFired); ok {
			once.Do(func() { close(loaded) })
		}
	})

	err := chromedp.Run(opCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, errorText, _, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return errors.New(errorText)
		}
		return nil
	}))
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}

	select {
	case <-loaded:
		return nil
	case <-opCtx.Done():
		return fmt.Errorf("navigate %s: waiting for DOMContentLoaded: %w", url, opCtx.Err())
	}
}

// VisibleText returns document.body.innerText.
func (p *Page) VisibleText(ctx context.Context) (string, error) {
	opCtx, cancel := p.op(ctx, opTimeout)
	defer cancel()

	var text string
	if err := chromedp.Run(opCtx, chromedp.Evaluate(visibleTextScript, &text)); err != nil {
		return "", fmt.Errorf("read body text: %w", err)
	}
	return text, nil
}

// Anchors returns the raw href attribute and visible text of every link.
func (p *Page) Anchors(ctx context.Context) ([]crawler.Anchor, error) {
	opCtx, cancel := p.op(ctx, opTimeout)
	defer cancel()

	var raw []anchorJSON
	if err := chromedp.Run(opCtx, chromedp.Evaluate(anchorsScript, &raw)); err != nil {
		return nil, fmt.Errorf("list anchors: %w", err)
	}
	anchors := make([]crawler.Anchor, 0, len(raw))
	for _, a := range raw {
		anchors = append(anchors, crawler.Anchor{Href: a.Href, Text: a.Text})
	}
	return anchors, nil
}

// ClickFirstMatching clicks the first button or link whose text contains
// pattern, ignoring case.
func (p *Page) ClickFirstMatching(ctx context.Context, pattern string) (bool, error) {
	script, err := clickScript(pattern)
	if err != nil {
		return false, err
	}
	opCtx, cancel := p.op(ctx, opTimeout)
	defer cancel()

	var clicked bool
	if err := chromedp.Run(opCtx, chromedp.Evaluate(script, &clicked)); err != nil {
		return false, fmt.Errorf("click %q: %w", pattern, err)
	}
	return clicked, nil
}

// Close closes the tab.
func (p *Page) Close() error {
	defer p.cancel()
	if err := chromedp.Cancel(p.ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close tab: %w", err)
	}
	return nil
}
