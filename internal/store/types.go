package store

import (
	"context"
	"time"

	"github.com/stellarlinkco/chat-eval/internal/result"
)

// RunWriter defines persistence for finished evaluation runs.
type RunWriter interface {
	SaveRun(ctx context.Context, run *RunRecord) error
}

// RunReader defines read access to run history.
type RunReader interface {
	GetRun(ctx context.Context, id string) (*RunRecord, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*RunRecord, error)
}

// Store defines persistence for evaluation run history.
type Store interface {
	RunWriter
	RunReader
	Close() error
}

// RunRecord stores one finished run: the batch counters plus every case
// record, serialized as a blob.
type RunRecord struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	Scorer       string
	TotalTests   int
	Successful   int
	Failed       int
	SuccessRate  float64
	AverageScore float64
	ThresholdMet bool
	Results      []result.Result // JSON serialized
}

// RunFilter filters run listings.
type RunFilter struct {
	Scorer string
	Since  time.Time
	Until  time.Time
	Limit  int
}
