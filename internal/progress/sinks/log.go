package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/company-intel-crawler/internal/progress"
)

// LogSink writes each event as a structured log line.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch. Step lines go to debug, everything
// else to info.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("job_id", evt.JobID),
			zap.Int("seq", evt.Seq),
			zap.String("type", string(evt.Type)),
		}
		switch data := evt.Data.(type) {
		case progress.StartData:
			fields = append(fields, zap.Int("total", data.Total))
		case progress.CompanyStartData:
			fields = append(fields, zap.Int("index", data.Index), zap.String("company", data.Company))
		case progress.StepData:
			s.logger.Debug("progress step", append(fields, zap.String("company", data.Company), zap.String("step", data.Step))...)
			continue
		case progress.CompanyDoneData:
			fields = append(fields, zap.Int("index", data.Index), zap.String("company", data.Company))
		case progress.DoneData:
			fields = append(fields, zap.String("output_file", data.OutputFile))
		case progress.ErrorData:
			fields = append(fields, zap.String("message", data.Message))
		}
		s.logger.Info("progress event", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
