package collyfetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/company-intel-crawler/internal/crawler"
)

const homeHTML = `<!doctype html>
<html><head><title>Acme</title><style>body { color: red }</style></head>
<body>
  <nav><a href="/about">About   Us</a> <a href="https://other.test/x">Elsewhere</a><a name="top">no href</a></nav>
  <main><p>Founded in 1998.</p><p>Contact hello@acme.test</p></main>
  <script>var hidden = "secret";</script>
  <noscript>Enable JS</noscript>
</body></html>`

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(homeHTML))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func openPage(t *testing.T) crawler.Page {
	t.Helper()
	browser, err := NewLauncher(Config{UserAgent: "test-agent"}).Launch(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, browser.Close()) })
	page, err := browser.NewPage(context.Background())
	require.NoError(t, err)
	return page
}

func TestPageReadsStaticDocument(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	page := openPage(t)
	ctx := context.Background()

	require.NoError(t, page.Navigate(ctx, srv.URL+"/", 5*time.Second))

	text, err := page.VisibleText(ctx)
	require.NoError(t, err)
	require.Contains(t, text, "Founded in 1998.")
	require.Contains(t, text, "Contact hello@acme.test")
	require.Contains(t, text, "About Us")
	require.NotContains(t, text, "secret")
	require.NotContains(t, text, "Enable JS")
	require.NotContains(t, text, "color: red")

	anchors, err := page.Anchors(ctx)
	require.NoError(t, err)
	require.Equal(t, []crawler.Anchor{
		{Href: "/about", Text: "About Us"},
		{Href: "https://other.test/x", Text: "Elsewhere"},
	}, anchors)

	clicked, err := page.ClickFirstMatching(ctx, "accept")
	require.NoError(t, err)
	require.False(t, clicked)
}

func TestPageRevisitsSameURL(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	page := openPage(t)
	require.NoError(t, page.Navigate(context.Background(), srv.URL+"/", time.Second))
	require.NoError(t, page.Navigate(context.Background(), srv.URL+"/", time.Second))
}

func TestPageNavigateErrorStatus(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	page := openPage(t)

	err := page.Navigate(context.Background(), srv.URL+"/missing", time.Second)
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 404")

	_, err = page.VisibleText(context.Background())
	require.ErrorIs(t, err, errNoDocument)
}

func TestPageNavigateTimeout(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	page := openPage(t)
	require.Error(t, page.Navigate(context.Background(), srv.URL+"/slow", 50*time.Millisecond))
}

func TestPageNavigateCanceled(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	page := openPage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := page.Navigate(ctx, srv.URL+"/slow", time.Second)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPageCloseDropsDocument(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	page := openPage(t)
	require.NoError(t, page.Navigate(context.Background(), srv.URL+"/", time.Second))
	require.NoError(t, page.Close())

	_, err := page.Anchors(context.Background())
	require.ErrorIs(t, err, errNoDocument)
}

func TestLaunchHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLauncher(Config{}).Launch(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
