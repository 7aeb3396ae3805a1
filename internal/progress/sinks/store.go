package sinks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/company-intel-crawler/internal/progress"
	"github.com/JakeFAU/company-intel-crawler/internal/store"
)

// StoreSink persists run lifecycle and company results through a
// store.ResultRepository.
type StoreSink struct {
	repo   store.ResultRepository
	logger *zap.Logger
}

// NewStoreSink constructs a StoreSink for the provided repository.
func NewStoreSink(repo store.ResultRepository, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{repo: repo, logger: logger}
}

// Consume forwards start, company_done, done and error events in order and
// stops at the first repository failure. Step events are ignored.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.repo == nil {
		return nil
	}
	for _, evt := range batch {
		if err := s.consumeEvent(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

func (s *StoreSink) consumeEvent(ctx context.Context, evt progress.Event) error {
	switch data := evt.Data.(type) {
	case progress.StartData:
		if err := s.repo.UpsertJobStart(ctx, evt.JobID, data.Total, evt.TS); err != nil {
			return fmt.Errorf("upsert job start: %w", err)
		}
	case progress.CompanyDoneData:
		if err := s.repo.SaveResult(ctx, evt.JobID, data.Index, data.Result, evt.TS); err != nil {
			return fmt.Errorf("save result %d: %w", data.Index, err)
		}
	case progress.DoneData:
		err := s.repo.CompleteJob(ctx, evt.JobID, store.RunCompletion{
			FinishedAt: evt.TS,
			Status:     store.RunSuccess,
			OutputFile: data.OutputFile,
		})
		if err != nil {
			return fmt.Errorf("complete job: %w", err)
		}
	case progress.ErrorData:
		msg := data.Message
		err := s.repo.CompleteJob(ctx, evt.JobID, store.RunCompletion{
			FinishedAt:   evt.TS,
			Status:       store.RunError,
			ErrorMessage: &msg,
		})
		if err != nil {
			return fmt.Errorf("complete job: %w", err)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *StoreSink) Close(context.Context) error {
	return nil
}
