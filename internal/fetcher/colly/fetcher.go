// Package collyfetcher implements a static crawler.Launcher with gocolly.
// Pages are fetched once and parsed with goquery; no JavaScript runs.
package collyfetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/html"

	"github.com/JakeFAU/company-intel-crawler/internal/crawler"
)

// errNoDocument is returned when a page is read before a successful Navigate.
var errNoDocument = errors.New("no document loaded")

// Config controls collector behavior.
type Config struct {
	UserAgent string
}

// Launcher hands out static pages sharing one HTTP transport and cookie jar.
type Launcher struct {
	cfg  Config
	base *colly.Collector
}

var _ crawler.Launcher = (*Launcher)(nil)

// NewLauncher builds a Launcher.
func NewLauncher(cfg Config) *Launcher {
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	c.IgnoreRobotsTxt = true
	c.AllowURLRevisit = true
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	return &Launcher{cfg: cfg, base: c}
}

// Launch returns a Browser; there is no process to start.
func (l *Launcher) Launch(ctx context.Context) (crawler.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("launch: %w", err)
	}
	return &Browser{base: l.base}, nil
}

// Browser creates pages backed by clones of the base collector.
type Browser struct {
	base *colly.Collector
}

// NewPage returns an empty page.
func (b *Browser) NewPage(ctx context.Context) (crawler.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	return &Page{base: b.base}, nil
}

// Close is a no-op.
func (b *Browser) Close() error { return nil }

// Page holds the most recently fetched document.
type Page struct {
	base *colly.Collector

	mu  sync.Mutex
	doc *goquery.Document
}

// Navigate fetches url and parses the response body.
func (p *Page) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	collector := p.base.Clone()
	collector.AllowURLRevisit = true
	if timeout > 0 {
		collector.SetRequestTimeout(timeout)
	}

	var (
		doc      *goquery.Document
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		parsed, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			fetchErr = fmt.Errorf("parse html: %w", err)
			return
		}
		parsed.Url = r.Request.URL
		doc = parsed
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	if err := runCollector(ctx, collector, url, &fetchErr); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if doc == nil {
		return fmt.Errorf("navigate %s: empty response", url)
	}

	p.mu.Lock()
	p.doc = doc
	p.mu.Unlock()
	return nil
}

func (p *Page) document() (*goquery.Document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return nil, errNoDocument
	}
	return p.doc, nil
}

// VisibleText returns the body's text nodes joined by spaces, skipping
// script, style, noscript and template content.
func (p *Page) VisibleText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	doc, err := p.document()
	if err != nil {
		return "", err
	}
	var parts []string
	for _, n := range doc.Find("body").Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, " "), nil
}

func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.TextNode:
		if s := strings.Join(strings.Fields(n.Data), " "); s != "" {
			*parts = append(*parts, s)
		}
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// Anchors returns the href attribute and text of every a[href].
func (p *Page) Anchors(ctx context.Context) ([]crawler.Anchor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := p.document()
	if err != nil {
		return nil, err
	}
	var anchors []crawler.Anchor
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		anchors = append(anchors, crawler.Anchor{
			Href: href,
			Text: strings.Join(strings.Fields(s.Text()), " "),
		})
	})
	return anchors, nil
}

// ClickFirstMatching never clicks: static documents have no live elements.
func (p *Page) ClickFirstMatching(context.Context, string) (bool, error) {
	return false, nil
}

// Close drops the document.
func (p *Page) Close() error {
	p.mu.Lock()
	p.doc = nil
	p.mu.Unlock()
	return nil
}

func runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
