// Package server builds the application's dependencies and runs the HTTP
// service or a one-shot batch crawl.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/company-intel-crawler/internal/api"
	"github.com/JakeFAU/company-intel-crawler/internal/clock/system"
	"github.com/JakeFAU/company-intel-crawler/internal/config"
	"github.com/JakeFAU/company-intel-crawler/internal/crawler"
	"github.com/JakeFAU/company-intel-crawler/internal/enrich"
	collyfetcher "github.com/JakeFAU/company-intel-crawler/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/company-intel-crawler/internal/fetcher/headless"
	"github.com/JakeFAU/company-intel-crawler/internal/id/uuid"
	"github.com/JakeFAU/company-intel-crawler/internal/job"
	"github.com/JakeFAU/company-intel-crawler/internal/logging"
	"github.com/JakeFAU/company-intel-crawler/internal/metrics"
	"github.com/JakeFAU/company-intel-crawler/internal/progress"
	progresssinks "github.com/JakeFAU/company-intel-crawler/internal/progress/sinks"
	memorypublisher "github.com/JakeFAU/company-intel-crawler/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/company-intel-crawler/internal/publisher/pubsub"
	queueMemory "github.com/JakeFAU/company-intel-crawler/internal/queue/memory"
	gcsstorage "github.com/JakeFAU/company-intel-crawler/internal/storage/gcs"
	localstorage "github.com/JakeFAU/company-intel-crawler/internal/storage/local"
	memoryStorage "github.com/JakeFAU/company-intel-crawler/internal/storage/memory"
	pgstore "github.com/JakeFAU/company-intel-crawler/internal/storage/postgres"
	"github.com/JakeFAU/company-intel-crawler/internal/store"
	"github.com/JakeFAU/company-intel-crawler/internal/tabular"
	"github.com/JakeFAU/company-intel-crawler/internal/telemetry"
	"github.com/JakeFAU/company-intel-crawler/internal/worker"
)

// App contains the application's dependencies.
type App struct {
	cfg         *config.Config
	logger      *zap.Logger
	apiServer   *api.Server
	manager     *job.Manager
	worker      *worker.Worker
	queue       *queueMemory.Queue[job.Ticket]
	progressHub *progress.Hub
	storage     *storage.Client
	resultStore *pgstore.ResultStore
	publisher   *gcppublisher.Publisher
	gemini      *enrich.GeminiClient

	tracerShutdown func(context.Context) error
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(logging.Options{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.String("engine", cfg.Crawl.Engine),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("enrich_provider", cfg.Enrich.Provider),
	)

	tp, err := telemetry.InitTracerProvider(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		ProjectID:   cfg.Telemetry.ProjectID,
	})
	if err != nil {
		return nil, fmt.Errorf("tracer init failed: %w", err)
	}
	app.tracerShutdown = tp.Shutdown

	blobStore, err := setupStorage(ctx, app)
	if err != nil {
		return nil, app.abort(err)
	}
	if err = setupDatabase(ctx, app); err != nil {
		return nil, app.abort(err)
	}
	publisher, err := setupPublisher(ctx, app)
	if err != nil {
		return nil, app.abort(err)
	}
	if err = setupProgress(ctx, app, publisher); err != nil {
		return nil, app.abort(err)
	}
	launcher, controller, err := setupCrawler(ctx, app)
	if err != nil {
		return nil, app.abort(err)
	}

	app.queue = queueMemory.NewQueue[job.Ticket](1)
	app.manager = job.NewManager(job.Deps{
		IDs:      uuid.New(),
		Clock:    system.New(),
		Launcher: launcher,
		Crawler:  controller,
		Writer:   tabular.NewWriter(blobStore, cfg.Storage.OutputKey),
		Queue:    app.queue,
		Emitter:  app.progressHub,
	}, logger.Named("job"))
	app.worker = worker.New(app.queue, app.manager, logger.Named("worker"))

	var (
		runs  store.RunReader
		ready func(context.Context) error
	)
	if app.resultStore != nil {
		runs = app.resultStore
		ready = app.resultStore.Ping
	}
	app.apiServer = api.NewServer(app.manager, blobStore, runs, api.Options{
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		PollInterval:   cfg.Server.PollInterval,
		OutputKey:      cfg.Storage.OutputKey,
		UploadPrefix:   cfg.Storage.UploadPrefix,
		AuthEnabled:    cfg.Auth.Enabled,
		APIKey:         cfg.Auth.APIKey,
		Ready:          ready,
	}, logger.Named("api"))

	return app, nil
}

// Run serves HTTP and drains the job queue until ctx is canceled or a
// termination signal arrives, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		// Open /progress streams end when shutdown begins.
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		a.logger.Info("worker started")
		return a.worker.Run(gctx)
	})
	g.Go(func() error {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown error", zap.Error(err))
		}
		a.queue.Close()
		return nil
	})

	runErr := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	a.Close(closeCtx)
	return runErr
}

// Close releases every client the App opened. It is safe to call more than
// once.
func (a *App) Close(ctx context.Context) {
	if a.queue != nil {
		a.queue.Close()
	}
	a.closeInfrastructure(ctx)
	a.logger.Info("shutdown complete")
	_ = a.logger.Sync()
}

func (a *App) abort(err error) error {
	a.closeInfrastructure(context.Background())
	return err
}

func (a *App) closeInfrastructure(ctx context.Context) {
	// The hub drains first so the store and publish sinks still have clients.
	if a.progressHub != nil {
		if err := a.progressHub.Close(ctx); err != nil {
			a.logger.Warn("progress hub close failed", zap.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("pubsub publisher close failed", zap.Error(err))
		}
		a.publisher = nil
	}
	if a.resultStore != nil {
		a.resultStore.Close()
		a.resultStore = nil
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
		a.storage = nil
	}
	if a.gemini != nil {
		if err := a.gemini.Close(); err != nil {
			a.logger.Warn("gemini client close failed", zap.Error(err))
		}
		a.gemini = nil
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
		a.tracerShutdown = nil
	}
}

func setupStorage(ctx context.Context, app *App) (crawler.BlobStore, error) {
	cfg := app.cfg.Storage
	switch cfg.Backend {
	case "gcs":
		app.logger.Info("using GCS storage backend", zap.String("bucket", cfg.GCSBucket))
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		app.storage = client
		blobStore, err := gcsstorage.New(client, gcsstorage.Config{Bucket: cfg.GCSBucket, Prefix: cfg.Prefix})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		return blobStore, nil
	case "local":
		app.logger.Info("using local storage backend", zap.String("path", cfg.BaseDir))
		blobStore, err := localstorage.New(localstorage.Config{BaseDir: cfg.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		return blobStore, nil
	default:
		app.logger.Info("using in-memory storage backend")
		return memoryStorage.NewBlobStore(), nil
	}
}

func setupDatabase(ctx context.Context, app *App) error {
	cfg := app.cfg.Database
	if cfg.DSN == "" {
		app.logger.Warn("no database DSN configured; run history disabled")
		return nil
	}
	resultStore, err := pgstore.NewResultStore(ctx, pgstore.Config{
		DSN:          cfg.DSN,
		RunsTable:    cfg.RunsTable,
		ResultsTable: cfg.ResultsTable,
		MaxConns:     cfg.MaxConns,
	})
	if err != nil {
		return fmt.Errorf("result store init failed: %w", err)
	}
	app.resultStore = resultStore
	app.logger.Info("result store initialized",
		zap.String("runs_table", cfg.RunsTable),
		zap.String("results_table", cfg.ResultsTable),
	)
	return nil
}

func setupPublisher(ctx context.Context, app *App) (crawler.Publisher, error) {
	cfg := app.cfg.PubSub
	if cfg.ProjectID == "" || cfg.TopicName == "" {
		app.logger.Warn("no Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	publisher, err := gcppublisher.Dial(ctx, cfg.ProjectID, cfg.TopicName)
	if err != nil {
		return nil, fmt.Errorf("pubsub publisher init failed: %w", err)
	}
	app.publisher = publisher
	app.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", cfg.ProjectID),
		zap.String("topic", cfg.TopicName),
	)
	return publisher, nil
}

func setupProgress(ctx context.Context, app *App, publisher crawler.Publisher) error {
	cfg := app.cfg.Progress
	var sinkList []progress.Sink
	if cfg.LogEvents {
		sinkList = append(sinkList, progresssinks.NewLogSink(app.logger.Named("progress_log")))
	}
	promSink, err := progresssinks.NewPrometheusSink(nil)
	if err != nil {
		return fmt.Errorf("prometheus sink init failed: %w", err)
	}
	sinkList = append(sinkList, promSink)
	if app.resultStore != nil {
		sinkList = append(sinkList, progresssinks.NewStoreSink(app.resultStore, app.logger.Named("progress_store")))
	}
	sinkList = append(sinkList,
		progresssinks.NewPublishSink(publisher, app.cfg.PubSub.TopicName, app.logger.Named("progress_publish")))

	hubCfg := progress.Config{
		BufferSize:     cfg.BufferSize,
		MaxBatchEvents: cfg.MaxBatchEvents,
		MaxBatchWait:   cfg.MaxBatchWait,
		SinkTimeout:    cfg.SinkTimeout,
		BaseContext:    context.WithoutCancel(ctx),
		Logger:         app.logger.Named("progress_hub"),
	}
	app.progressHub = progress.NewHub(hubCfg, sinkList...)
	app.logger.Info("progress hub initialized",
		zap.Int("sinks", len(sinkList)),
		zap.Int("buffer_size", hubCfg.BufferSize),
		zap.Int("max_batch_events", hubCfg.MaxBatchEvents),
		zap.Duration("max_batch_wait", hubCfg.MaxBatchWait),
		zap.Duration("sink_timeout", hubCfg.SinkTimeout),
	)
	return nil
}

// setupCrawler selects the browser engine and enrichment provider and wires
// them into the per-company controller.
func setupCrawler(ctx context.Context, app *App) (crawler.Launcher, *crawler.Controller, error) {
	cfg := app.cfg
	var launcher crawler.Launcher
	switch cfg.Crawl.Engine {
	case config.EngineColly:
		launcher = collyfetcher.NewLauncher(collyfetcher.Config{UserAgent: cfg.Crawl.UserAgent})
		app.logger.Info("using colly engine", zap.String("user_agent", cfg.Crawl.UserAgent))
	default:
		launcher = headlessfetcher.NewLauncher(headlessfetcher.Config{
			UserAgent: cfg.Crawl.UserAgent,
			Headless:  cfg.Crawl.Headless,
			NoSandbox: cfg.Crawl.NoSandbox,
			ExecPath:  cfg.Crawl.ExecPath,
		}, app.logger.Named("chromedp"))
		app.logger.Info("using chromedp engine", zap.Bool("headless", cfg.Crawl.Headless))
	}

	enricher, err := setupEnricher(ctx, app)
	if err != nil {
		return nil, nil, err
	}
	controller := crawler.NewController(crawler.ControllerConfig{
		NavTimeout:   cfg.Crawl.NavTimeout,
		SettleDelay:  cfg.Crawl.SettleDelay,
		ConsentDelay: cfg.Crawl.ConsentDelay,
		MaxSubpages:  cfg.Crawl.MaxSubpages,
	}, system.New(), enricher, app.logger.Named("crawler"))
	return launcher, controller, nil
}

func setupEnricher(ctx context.Context, app *App) (crawler.Enricher, error) {
	cfg := app.cfg.Enrich
	adapterCfg := enrich.Config{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Timeout:     cfg.Timeout,
		Temperature: cfg.Temperature,
	}
	if !adapterCfg.Configured() {
		app.logger.Warn("enrichment credentials missing; results will carry no report",
			zap.String("provider", cfg.Provider))
		return enrich.NewAdapter(adapterCfg, nil, app.logger.Named("enrich")), nil
	}

	var completer enrich.Completer
	switch cfg.Provider {
	case "gemini":
		client, err := enrich.NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("gemini client init failed: %w", err)
		}
		app.gemini = client
		completer = client
	default:
		completer = enrich.NewGroqClient(&http.Client{Timeout: cfg.Timeout}, cfg.BaseURL, cfg.APIKey, cfg.Model)
	}
	app.logger.Info("enrichment enabled", zap.String("provider", cfg.Provider), zap.String("model", cfg.Model))
	return enrich.NewAdapter(adapterCfg, completer, app.logger.Named("enrich")), nil
}
