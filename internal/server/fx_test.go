package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JakeFAU/company-intel-crawler/internal/config"
	"github.com/JakeFAU/company-intel-crawler/internal/tabular"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Port:            0,
			MaxUploadBytes:  1 << 20,
			ShutdownTimeout: 2 * time.Second,
			PollInterval:    10 * time.Millisecond,
		},
		Crawl: config.CrawlConfig{
			Engine:      config.EngineColly,
			NavTimeout:  5 * time.Second,
			MaxSubpages: 3,
			UserAgent:   "company-intel-crawler-test",
		},
		Enrich: config.EnrichConfig{Provider: "groq", Timeout: time.Second},
		Storage: config.StorageConfig{
			Backend:      "local",
			BaseDir:      t.TempDir(),
			OutputKey:    "output.xlsx",
			UploadPrefix: "uploads",
		},
		Progress: config.ProgressConfig{MaxBatchWait: 10 * time.Millisecond},
		Logging:  config.LoggingConfig{Level: "error"},
	}
}

func companySite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body><h1>Acme Anvils</h1><a href="/about">About us</a></body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><p>Acme was founded in 1998. Write to hello@acme.test</p></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRunBatchWritesWorkbook(t *testing.T) {
	site := companySite(t)
	cfg := testConfig(t)

	dir := t.TempDir()
	input := filepath.Join(dir, "companies.csv")
	output := filepath.Join(dir, "out", "output.xlsx")
	require.NoError(t, os.WriteFile(input, []byte("company_name,website\nAcme,"+site.URL+"\n"), 0o600))

	require.NoError(t, RunBatch(context.Background(), cfg, input, output))

	f, err := excelize.OpenFile(output)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, tabular.OutputColumns, rows[0])
	require.Equal(t, []string{"Acme", site.URL}, rows[1][:2])
}

func TestRunBatchRejectsBadInput(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.csv")
	require.ErrorContains(t, RunBatch(context.Background(), cfg, missing, filepath.Join(dir, "o.xlsx")), "read input")

	badHeader := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(badHeader, []byte("name,url\nAcme,https://acme.test\n"), 0o600))
	err := RunBatch(context.Background(), cfg, badHeader, filepath.Join(dir, "o.xlsx"))
	require.ErrorContains(t, err, "File must have columns")

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, []byte("company_name,website\n"), 0o600))
	err = RunBatch(context.Background(), cfg, empty, filepath.Join(dir, "o.xlsx"))
	require.ErrorContains(t, err, "no companies found")
}

func TestBuildServesAndShutsDown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = "memory"

	app, err := Build(context.Background(), cfg)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	app.apiServer.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"job_id":"","status":"idle","total":0,"current":0,"current_company":"","error":null}`, rec.Body.String())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
