package crawler

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeSite struct {
	text    string
	anchors []Anchor
	navErr  error
	textErr error
}

type fakePage struct {
	mu        sync.Mutex
	sites     map[string]fakeSite
	current   string
	navigated []string
	timeouts  []time.Duration
	clickable map[string]bool
	clickErr  map[string]error
	clicked   []string
	anchorErr error
	closed    bool
	closeErr  error
}

func newFakePage(sites map[string]fakeSite) *fakePage {
	return &fakePage{
		sites:     sites,
		clickable: map[string]bool{},
		clickErr:  map[string]error{},
	}
}

func (p *fakePage) Navigate(_ context.Context, url string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = append(p.navigated, url)
	p.timeouts = append(p.timeouts, timeout)
	site, ok := p.sites[url]
	if !ok {
		return errors.New("net::ERR_NAME_NOT_RESOLVED")
	}
	if site.navErr != nil {
		return site.navErr
	}
	p.current = url
	return nil
}

func (p *fakePage) VisibleText(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	site := p.sites[p.current]
	if site.textErr != nil {
		return "", site.textErr
	}
	return site.text, nil
}

func (p *fakePage) Anchors(context.Context) ([]Anchor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.anchorErr != nil {
		return nil, p.anchorErr
	}
	return append([]Anchor(nil), p.sites[p.current].anchors...), nil
}

func (p *fakePage) ClickFirstMatching(_ context.Context, pattern string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.clickErr[pattern]; err != nil {
		return false, err
	}
	if p.clickable[pattern] {
		p.clicked = append(p.clicked, pattern)
		return true, nil
	}
	return false, nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.closeErr
}

type fakeBrowser struct {
	page    *fakePage
	openErr error
}

func (b *fakeBrowser) NewPage(context.Context) (Page, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	return b.page, nil
}

func (b *fakeBrowser) Close() error { return nil }

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return ctx.Err()
}

type fakeEnricher struct {
	calls  int
	about  string
	result Enrichment
}

func (e *fakeEnricher) Enrich(_ context.Context, _, _, aboutText string) Enrichment {
	e.calls++
	e.about = aboutText
	return e.result
}

type stepLog struct {
	steps []string
}

func (s *stepLog) record(step string) {
	s.steps = append(s.steps, step)
}
