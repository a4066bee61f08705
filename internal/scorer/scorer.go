// Package scorer implements the pluggable scoring strategies: keyword
// coverage and model-judged rubric scoring.
package scorer

import (
	"context"

	"github.com/stellarlinkco/chat-eval/internal/testcase"
)

// Result is the verdict for one answer. Extracted is false when the score
// did not come from well-formed judge output and a degraded value was used.
type Result struct {
	Success    bool
	Score      float64
	Reason     string
	Dimensions map[string]float64
	Extracted  bool
	Details    map[string]any
}

// Scorer judges a single answer against its test case. An error means the
// strategy itself could not run; a low score is not an error.
type Scorer interface {
	Name() string
	Score(ctx context.Context, tc *testcase.TestCase, answer string) (*Result, error)
}
