package storage

import (
	"context"

	"github.com/triathematician/blaisemath-sub005/internal/model"
)

// Query narrows a listing. The zero value lists everything.
type Query struct {
	// Scenario keeps only records of the named scenario when set.
	Scenario string
	// Limit caps the number of records returned when positive.
	Limit int
}

// Store persists run and batch results.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns stored runs matching q, newest first.
	ListRuns(ctx context.Context, q Query) ([]model.RunRecord, error)
	SaveBatch(ctx context.Context, batch model.BatchRecord) error
	GetBatch(ctx context.Context, id string) (model.BatchRecord, bool, error)
	// ListBatches returns stored batches matching q, newest first.
	ListBatches(ctx context.Context, q Query) ([]model.BatchRecord, error)
}
