package crawler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ConsentPatterns are tried in order against clickable element text.
var ConsentPatterns = []string{"accept", "agree", "allow all"}

// ConsentHandler dismisses cookie banners on a best-effort basis.
type ConsentHandler struct {
	clock  Clock
	delay  time.Duration
	logger *zap.Logger
}

// NewConsentHandler builds a handler that waits delay after a successful click.
func NewConsentHandler(clock Clock, delay time.Duration, logger *zap.Logger) *ConsentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsentHandler{clock: clock, delay: delay, logger: logger}
}

// Dismiss clicks the first element matching the first pattern that has any
// match and reports whether a click happened. Failures are logged and the
// next pattern is tried.
func (h *ConsentHandler) Dismiss(ctx context.Context, page Page) bool {
	for _, pattern := range ConsentPatterns {
		clicked, err := page.ClickFirstMatching(ctx, pattern)
		if err != nil {
			h.logger.Debug("consent click failed", zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		if !clicked {
			continue
		}
		h.logger.Debug("cookie banner dismissed", zap.String("pattern", pattern))
		if h.clock != nil && h.delay > 0 {
			if err := h.clock.Sleep(ctx, h.delay); err != nil {
				h.logger.Debug("consent settle interrupted", zap.Error(err))
			}
		}
		return true
	}
	return false
}
