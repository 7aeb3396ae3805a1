package sinks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/company-intel-crawler/internal/crawler"
	"github.com/JakeFAU/company-intel-crawler/internal/progress"
)

// CompanyDoneMessage is the payload published for each finished company.
type CompanyDoneMessage struct {
	JobID   string                `json:"job_id"`
	Index   int                   `json:"index"`
	Total   int                   `json:"total"`
	Company string                `json:"company"`
	Result  crawler.CompanyResult `json:"result"`
}

// PublishSink forwards company_done events to a topic.
type PublishSink struct {
	publisher crawler.Publisher
	topic     string
	logger    *zap.Logger
}

// NewPublishSink builds a sink publishing to topic.
func NewPublishSink(publisher crawler.Publisher, topic string, logger *zap.Logger) *PublishSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublishSink{publisher: publisher, topic: topic, logger: logger}
}

// Consume publishes every company_done event in the batch.
func (s *PublishSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.publisher == nil {
		return nil
	}
	for _, evt := range batch {
		data, ok := evt.Data.(progress.CompanyDoneData)
		if !ok {
			continue
		}
		id, err := s.publisher.Publish(ctx, s.topic, CompanyDoneMessage{
			JobID:   evt.JobID,
			Index:   data.Index,
			Total:   data.Total,
			Company: data.Company,
			Result:  data.Result,
		})
		if err != nil {
			return fmt.Errorf("publish company_done %d: %w", data.Index, err)
		}
		s.logger.Debug("company result published", zap.String("job_id", evt.JobID), zap.String("message_id", id))
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PublishSink) Close(context.Context) error {
	return nil
}
