package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/company-intel-crawler/internal/crawler"
	"github.com/JakeFAU/company-intel-crawler/internal/progress"
)

type sitePage struct {
	mu      sync.Mutex
	pages   map[string]string
	anchors map[string][]crawler.Anchor
	current string
}

func (p *sitePage) Navigate(_ context.Context, url string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pages[url]; !ok {
		return errors.New("net::ERR_NAME_NOT_RESOLVED")
	}
	p.current = url
	return nil
}

func (p *sitePage) VisibleText(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pages[p.current], nil
}

func (p *sitePage) Anchors(context.Context) ([]crawler.Anchor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.anchors[p.current], nil
}

func (*sitePage) ClickFirstMatching(context.Context, string) (bool, error) { return false, nil }

func (*sitePage) Close() error { return nil }

type siteBrowser struct{ page *sitePage }

func (b *siteBrowser) NewPage(context.Context) (crawler.Page, error) { return b.page, nil }

func (*siteBrowser) Close() error { return nil }

type siteLauncher struct{ browser *siteBrowser }

func (l *siteLauncher) Launch(context.Context) (crawler.Browser, error) { return l.browser, nil }

func TestExecuteCrawlsAcmeEndToEnd(t *testing.T) {
	t.Parallel()

	page := &sitePage{
		pages: map[string]string{
			"https://acme.test":       "Welcome to Acme. We make anvils.",
			"https://acme.test/about": "About us: Acme has built anvils since 1949. Write to hello@acme.test",
		},
		anchors: map[string][]crawler.Anchor{
			"https://acme.test": {
				{Href: "/about", Text: "About"},
				{Href: "https://elsewhere.test/about", Text: "About"},
			},
		},
	}
	clock := fixedClock{now: time.Unix(1700000000, 0).UTC()}
	controller := crawler.NewController(crawler.ControllerConfig{
		NavTimeout:  time.Second,
		MaxSubpages: 3,
	}, clock, nil, zap.NewNop())
	writer := &fakeWriter{}
	m := NewManager(Deps{
		IDs:      &seqIDs{},
		Clock:    clock,
		Launcher: &siteLauncher{browser: &siteBrowser{page: page}},
		Crawler:  controller,
		Writer:   writer,
	}, zap.NewNop())

	ticket, err := m.Submit([]crawler.CompanyTarget{{Name: "Acme", URL: "https://acme.test"}})
	require.NoError(t, err)
	require.NoError(t, m.Execute(context.Background(), ticket))

	require.Equal(t, StatusDone, m.Snapshot().Status)
	results := m.Results()
	require.Len(t, results, 1)
	require.NotNil(t, results[0].AboutUs)
	require.Contains(t, *results[0].AboutUs, "About us")
	require.Equal(t, "since 1949", *results[0].FoundedInfo)
	require.Equal(t, "hello@acme.test", *results[0].Email)
	require.True(t, results[0].Enrichment.IsEmpty())

	events, _ := m.Events(0)
	var done []progress.CompanyDoneData
	for _, e := range events {
		if e.Type == progress.TypeCompanyDone {
			done = append(done, e.Data.(progress.CompanyDoneData))
		}
	}
	require.Len(t, done, 1)
	require.Equal(t, 1, done[0].Index)
	require.Equal(t, *results[0].AboutUs, *done[0].Result.AboutUs)
	require.Equal(t, progress.TypeDone, events[len(events)-1].Type)
	require.Equal(t, []int{1}, writer.sizes)
}

func TestExecuteRecoversCrawlerPanic(t *testing.T) {
	t.Parallel()

	f := newFixture(crawlFunc(func(context.Context, crawler.CompanyTarget, crawler.StepFunc) crawler.CompanyResult {
		panic("tab crashed")
	}))
	ticket, err := f.manager.Submit(targets("acme", "globex"))
	require.NoError(t, err)

	err = f.manager.Execute(context.Background(), ticket)
	require.EqualError(t, err, "panic: tab crashed")

	snap := f.manager.Snapshot()
	require.Equal(t, StatusError, snap.Status)
	require.Equal(t, "panic: tab crashed", *snap.Error)
	require.Empty(t, f.manager.Results())
	require.True(t, f.browser.isClosed())

	events, _ := f.manager.Events(0)
	require.Equal(t, []progress.Type{
		progress.TypeStart,
		progress.TypeCompanyStart,
		progress.TypeError,
	}, eventTypes(events))
	require.Equal(t, progress.ErrorData{Message: "panic: tab crashed"}, events[2].Data)

	_, err = f.manager.Submit(targets("acme"))
	require.NoError(t, err)
}
