package crawler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/company-intel-crawler/internal/metrics"
)

// Default traversal knobs.
const (
	DefaultMaxSubpages   = 3
	DefaultNavTimeout    = 90 * time.Second
	DefaultSettleDelay   = 2 * time.Second
	DefaultConsentDelay  = time.Second
	defaultTextSeparator = " "
)

// AggregatorConfig bounds sub-page traversal.
type AggregatorConfig struct {
	MaxSubpages int
	NavTimeout  time.Duration
	SettleDelay time.Duration
}

// Aggregator visits ranked sub-pages and concatenates their visible text.
type Aggregator struct {
	cfg    AggregatorConfig
	clock  Clock
	logger *zap.Logger
}

// NewAggregator applies defaults to cfg. A negative MaxSubpages disables traversal.
func NewAggregator(cfg AggregatorConfig, clock Clock, logger *zap.Logger) *Aggregator {
	if cfg.MaxSubpages == 0 {
		cfg.MaxSubpages = DefaultMaxSubpages
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = DefaultNavTimeout
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{cfg: cfg, clock: clock, logger: logger}
}

// Aggregate starts from homeText and appends the text of up to MaxSubpages
// distinct links not yet visited. seen holds URLs already loaded during this
// crawl. A failing page is reported through step and skipped. The result has
// whitespace collapsed.
func (a *Aggregator) Aggregate(
	ctx context.Context,
	page Page,
	homeText string,
	links []CandidateLink,
	seen map[string]struct{},
	step StepFunc,
) string {
	if seen == nil {
		seen = make(map[string]struct{})
	}
	var b strings.Builder
	b.WriteString(homeText)

	attempted := 0
	for _, link := range links {
		if attempted >= a.cfg.MaxSubpages {
			break
		}
		if err := ctx.Err(); err != nil {
			a.logger.Debug("traversal stopped", zap.Error(err))
			break
		}
		if _, ok := seen[link.URL]; ok {
			continue
		}
		seen[link.URL] = struct{}{}
		attempted++

		report(step, fmt.Sprintf("Crawling: %s", link.URL))
		text, err := a.visit(ctx, page, link.URL)
		if err != nil {
			metrics.ObservePage("subpage", "error")
			a.logger.Warn("sub-page skipped", zap.String("url", link.URL), zap.Error(err))
			report(step, fmt.Sprintf("Could not crawl %s: %v", link.URL, err))
			continue
		}
		metrics.ObservePage("subpage", "ok")
		b.WriteString(defaultTextSeparator)
		b.WriteString(text)
	}
	return CollapseWhitespace(b.String())
}

func (a *Aggregator) visit(ctx context.Context, page Page, target string) (string, error) {
	if err := page.Navigate(ctx, target, a.cfg.NavTimeout); err != nil {
		return "", fmt.Errorf("navigate: %w", err)
	}
	if err := a.settle(ctx); err != nil {
		return "", err
	}
	text, err := page.VisibleText(ctx)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return text, nil
}

func (a *Aggregator) settle(ctx context.Context) error {
	if a.clock == nil || a.cfg.SettleDelay <= 0 {
		return nil
	}
	if err := a.clock.Sleep(ctx, a.cfg.SettleDelay); err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	return nil
}

func report(step StepFunc, msg string) {
	if step != nil {
		step(msg)
	}
}
