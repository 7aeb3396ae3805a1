package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/company-intel-crawler/internal/metrics"
)

// ControllerConfig tunes per-company navigation.
type ControllerConfig struct {
	NavTimeout   time.Duration
	SettleDelay  time.Duration
	ConsentDelay time.Duration
	MaxSubpages  int
}

// Controller runs the crawl pipeline for one company at a time.
type Controller struct {
	cfg        ControllerConfig
	clock      Clock
	consent    *ConsentHandler
	aggregator *Aggregator
	enricher   Enricher
	logger     *zap.Logger
}

// NewController wires the pipeline stages. A nil enricher disables enrichment.
func NewController(cfg ControllerConfig, clock Clock, enricher Enricher, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = DefaultNavTimeout
	}
	return &Controller{
		cfg:     cfg,
		clock:   clock,
		consent: NewConsentHandler(clock, cfg.ConsentDelay, logger.Named("consent")),
		aggregator: NewAggregator(AggregatorConfig{
			MaxSubpages: cfg.MaxSubpages,
			NavTimeout:  cfg.NavTimeout,
			SettleDelay: cfg.SettleDelay,
		}, clock, logger.Named("aggregator")),
		enricher: enricher,
		logger:   logger,
	}
}

// Crawl opens one page on browser, gathers text from the homepage and its
// best-ranked internal pages, and returns the filled result. Failure to open
// or read the homepage yields a result carrying only the identity; the page
// is always closed.
func (c *Controller) Crawl(ctx context.Context, browser Browser, target CompanyTarget, step StepFunc) CompanyResult {
	logger := c.logger.With(zap.String("company", target.Name), zap.String("website", target.URL))
	result := NewResult(target)

	page, err := browser.NewPage(ctx)
	if err != nil {
		c.fail(logger, step, fmt.Errorf("open page: %w", err))
		return result
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			logger.Debug("page close failed", zap.Error(cerr))
		}
	}()

	homeText, err := c.loadHomepage(ctx, page, target, step)
	if err != nil {
		c.fail(logger, step, err)
		return result
	}

	report(step, "Discovering internal pages…")
	anchors, err := page.Anchors(ctx)
	if err != nil {
		logger.Warn("anchor listing failed", zap.Error(err))
		report(step, fmt.Sprintf("Could not list links: %v", err))
	}
	links := ScoreLinks(target.URL, anchors)
	logger.Debug("links ranked", zap.Int("anchors", len(anchors)), zap.Int("candidates", len(links)))

	text := CollapseWhitespace(homeText)
	if len(links) > 0 {
		seen := map[string]struct{}{target.URL: {}}
		text = c.aggregator.Aggregate(ctx, page, homeText, links, seen, step)
	}

	facts := ExtractFacts(text)
	result.FoundedInfo = facts.FoundedInfo
	result.AboutUs = facts.AboutUs
	result.Email = facts.Email

	if c.enricher != nil {
		about := ""
		if facts.AboutUs != nil {
			about = *facts.AboutUs
		}
		result.Enrichment = c.enricher.Enrich(ctx, target.Name, target.URL, about)
	}

	metrics.ObserveCompany("ok")
	logger.Info("company crawled",
		zap.Int("subpages_ranked", len(links)),
		zap.Bool("founded", result.FoundedInfo != nil),
		zap.Bool("about_us", result.AboutUs != nil),
		zap.Bool("email", result.Email != nil),
		zap.Bool("enriched", !result.Enrichment.IsEmpty()),
	)
	return result
}

func (c *Controller) loadHomepage(ctx context.Context, page Page, target CompanyTarget, step StepFunc) (string, error) {
	report(step, fmt.Sprintf("Opening %s", target.URL))
	if err := page.Navigate(ctx, target.URL, c.cfg.NavTimeout); err != nil {
		metrics.ObservePage("home", "error")
		return "", fmt.Errorf("open homepage: %w", err)
	}
	if c.clock != nil && c.cfg.SettleDelay > 0 {
		if err := c.clock.Sleep(ctx, c.cfg.SettleDelay); err != nil {
			return "", fmt.Errorf("homepage settle: %w", err)
		}
	}
	c.consent.Dismiss(ctx, page)

	text, err := page.VisibleText(ctx)
	if err != nil {
		metrics.ObservePage("home", "error")
		return "", fmt.Errorf("read homepage text: %w", err)
	}
	metrics.ObservePage("home", "ok")
	return text, nil
}

func (c *Controller) fail(logger *zap.Logger, step StepFunc, err error) {
	metrics.ObserveCompany("failed")
	if errors.Is(err, context.Canceled) {
		logger.Info("company crawl canceled", zap.Error(err))
	} else {
		logger.Error("company crawl failed", zap.Error(err))
	}
	report(step, fmt.Sprintf("Error: %v", err))
}
