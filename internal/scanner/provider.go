package scanner

import (
	"context"

	"github.com/phishsense/phishsense/internal/model"
)

// BatchRunner defines the contract to the batch coordinator: one row per
// input URL, in input order, always.
type BatchRunner interface {
	Run(ctx context.Context, urls []string) []model.ReportRow
}

// ReportStore persists completed batch reports for later download.
type ReportStore interface {
	Save(rep model.BatchReport) error
	Get(jobID string) (model.BatchReport, error)
}
