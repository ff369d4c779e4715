package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phishsense/phishsense/internal/model"
	"github.com/phishsense/phishsense/internal/platform/requestid"
)

// Service orchestrates batch runs, persists their reports, and logs
// outcomes.
type Service struct {
	runner BatchRunner
	store  ReportStore
	logger *slog.Logger
}

// NewService creates a Service backed by the given runner and store.
func NewService(runner BatchRunner, store ReportStore, logger *slog.Logger) *Service {
	return &Service{runner: runner, store: store, logger: logger}
}

// ScanOne classifies a single URL and returns its report row.
func (s *Service) ScanOne(ctx context.Context, targetURL string) model.ReportRow {
	logger := s.logger.With("url", targetURL, "request_id", requestid.FromContext(ctx))

	rows := s.runner.Run(ctx, []string{targetURL})
	row := rows[0]
	if row.Failed() {
		logger.Warn("scan failed", "error_code", row.ErrCode)
		return row
	}

	logger.Info("scan complete",
		"label", row.Classification.Label,
		"confidence", row.Classification.Confidence,
		"degraded_slots", len(row.Degraded),
	)
	return row
}

// ScanBatch classifies every URL and stores the resulting report under a
// fresh job ID. The returned report always has one row per input URL in
// input order; storage failures are reported but do not discard the rows.
func (s *Service) ScanBatch(ctx context.Context, urls []string) (model.BatchReport, error) {
	logger := s.logger.With("request_id", requestid.FromContext(ctx), "urls", len(urls))

	rep := model.BatchReport{
		JobID:     uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Rows:      s.runner.Run(ctx, urls),
	}

	failed := 0
	for _, row := range rep.Rows {
		if row.Failed() {
			failed++
		}
	}
	logger.Info("batch scan complete", "job_id", rep.JobID, "failed_rows", failed)

	if err := s.store.Save(rep); err != nil {
		return rep, fmt.Errorf("store batch report: %w", err)
	}
	return rep, nil
}

// Report loads a previously stored batch report.
func (s *Service) Report(jobID string) (model.BatchReport, error) {
	return s.store.Get(jobID)
}
