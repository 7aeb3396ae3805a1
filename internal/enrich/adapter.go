package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/company-intel-crawler/internal/crawler"
	"github.com/JakeFAU/company-intel-crawler/internal/metrics"
)

// DefaultTimeout bounds a request when Config.Timeout is unset.
const DefaultTimeout = 60 * time.Second

// Config carries the credential check and request knobs.
type Config struct {
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float32
}

// Configured reports whether both the key and the model are present and
// are not template placeholders.
func (c Config) Configured() bool {
	for _, v := range []string{c.APIKey, c.Model} {
		v = strings.TrimSpace(v)
		if v == "" || strings.Contains(v, "YOUR_") {
			return false
		}
	}
	return true
}

// Adapter implements crawler.Enricher.
type Adapter struct {
	cfg       Config
	completer Completer
	logger    *zap.Logger
}

var _ crawler.Enricher = (*Adapter)(nil)

// NewAdapter wires a Completer. A zero Timeout takes the default; the
// temperature is used as given, so 0 requests deterministic output.
func NewAdapter(cfg Config, completer Completer, logger *zap.Logger) *Adapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{cfg: cfg, completer: completer, logger: logger}
}

// Enrich requests the report and maps it onto the nine sections. Any failure
// returns an all-null Enrichment.
func (a *Adapter) Enrich(ctx context.Context, name, website, about string) crawler.Enrichment {
	logger := a.logger.With(zap.String("company", name))
	if a.completer == nil || !a.cfg.Configured() {
		logger.Debug("enrichment not configured; skipping")
		metrics.ObserveEnrichment("skipped", 0)
		return crawler.Enrichment{}
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	start := time.Now()
	content, err := a.completer.Complete(ctx, BuildPrompt(name, website, about, a.cfg.Temperature))
	elapsed := time.Since(start)
	if err != nil {
		logger.Warn("enrichment request failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		metrics.ObserveEnrichment("error", elapsed)
		return crawler.Enrichment{}
	}
	if content == "" {
		logger.Info("enrichment returned no content")
		metrics.ObserveEnrichment("empty", elapsed)
		return crawler.Enrichment{}
	}

	enrichment, ok := a.decode(logger, stripCodeFence(content))
	if !ok {
		metrics.ObserveEnrichment("malformed", elapsed)
		return crawler.Enrichment{}
	}
	metrics.ObserveEnrichment("ok", elapsed)
	return enrichment
}

func (a *Adapter) decode(logger *zap.Logger, content string) (crawler.Enrichment, bool) {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &sections); err != nil || sections == nil {
		logger.Warn("enrichment reply is not a JSON object", zap.Error(err))
		return crawler.Enrichment{}, false
	}
	if violations, err := CheckReport([]byte(content)); err != nil {
		logger.Debug("enrichment schema check unavailable", zap.Error(err))
	} else if len(violations) > 0 {
		logger.Warn("enrichment reply deviates from report shape", zap.Strings("violations", violations))
	}

	var out crawler.Enrichment
	for i, field := range out.Fields() {
		raw, ok := sections[crawler.SectionKeys[i]]
		if !ok {
			continue
		}
		*field = sectionField(raw)
	}
	return out, true
}

// sectionField maps one section: null stays null, objects and arrays are
// compacted in source order, strings are unquoted and other scalars keep
// their literal text.
func sectionField(raw json.RawMessage) crawler.Field {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return crawler.NullField()
	}
	switch trimmed[0] {
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return crawler.NullField()
		}
		return crawler.StructuredField(buf.String())
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return crawler.NullField()
		}
		return crawler.ScalarField(s)
	default:
		return crawler.ScalarField(string(trimmed))
	}
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
