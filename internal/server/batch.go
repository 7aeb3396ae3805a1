package server

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/JakeFAU/company-intel-crawler/internal/clock/system"
	"github.com/JakeFAU/company-intel-crawler/internal/config"
	"github.com/JakeFAU/company-intel-crawler/internal/id/uuid"
	"github.com/JakeFAU/company-intel-crawler/internal/job"
	"github.com/JakeFAU/company-intel-crawler/internal/logging"
	"github.com/JakeFAU/company-intel-crawler/internal/progress"
	progresssinks "github.com/JakeFAU/company-intel-crawler/internal/progress/sinks"
	localstorage "github.com/JakeFAU/company-intel-crawler/internal/storage/local"
	"github.com/JakeFAU/company-intel-crawler/internal/tabular"
)

// RunBatch crawls every company listed in the input spreadsheet, in order,
// and rewrites the output workbook after each one. Progress goes to the log.
func RunBatch(ctx context.Context, cfg *config.Config, input, output string) error {
	logger, err := logging.New(logging.Options{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	targets, err := tabular.ReadTargets(bytes.NewReader(data), filepath.Base(input))
	if err != nil {
		return fmt.Errorf("parse %s: %w", input, err)
	}
	if len(targets) == 0 {
		return fmt.Errorf("no companies found in %s", input)
	}

	outStore, err := localstorage.New(localstorage.Config{BaseDir: filepath.Dir(output)})
	if err != nil {
		return fmt.Errorf("output directory: %w", err)
	}

	app := &App{cfg: cfg, logger: logger}
	defer app.Close(context.Background())

	launcher, controller, err := setupCrawler(ctx, app)
	if err != nil {
		return err
	}
	app.progressHub = progress.NewHub(progress.Config{
		BaseContext: context.WithoutCancel(ctx),
		Logger:      logger.Named("progress_hub"),
	}, progresssinks.NewLogSink(logger.Named("progress")))

	manager := job.NewManager(job.Deps{
		IDs:      uuid.New(),
		Clock:    system.New(),
		Launcher: launcher,
		Crawler:  controller,
		Writer:   tabular.NewWriter(outStore, filepath.Base(output)),
		Emitter:  app.progressHub,
	}, logger.Named("job"))

	ticket, err := manager.Submit(targets)
	if err != nil {
		return fmt.Errorf("submit batch: %w", err)
	}
	logger.Info("batch started",
		zap.String("job_id", ticket.JobID),
		zap.Int("companies", len(targets)),
		zap.String("input", input),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := manager.Execute(ctx, ticket); err != nil {
		return fmt.Errorf("batch %s: %w", ticket.JobID, err)
	}
	logger.Info("batch complete", zap.String("job_id", ticket.JobID), zap.String("output", output))
	return nil
}
