package runner

import (
	"strings"
	"time"

	"github.com/stellarlinkco/chat-eval/internal/result"
	"github.com/stellarlinkco/chat-eval/internal/testcase"
)

// Config tunes a batch run.
type Config struct {
	// MaxRetries bounds re-asks of a single case after a failed produce or
	// an empty answer.
	MaxRetries int

	// ScenarioOverride, when set, replaces every case's scenario for the run.
	ScenarioOverride string

	// RetryPause is the wait before re-asking a case. Defaults to one second.
	RetryPause time.Duration
}

// Filter selects the subset of loaded cases to run. Filters apply in order:
// category, priority, skip, then limit.
type Filter struct {
	Category string
	Priority string
	Skip     int
	Limit    int
}

// Apply returns the cases matching the filter, preserving order.
func (f Filter) Apply(cases []testcase.TestCase) []testcase.TestCase {
	out := make([]testcase.TestCase, 0, len(cases))
	category := strings.ToLower(strings.TrimSpace(f.Category))
	priority := strings.ToLower(strings.TrimSpace(f.Priority))

	for _, tc := range cases {
		if category != "" && strings.ToLower(tc.Category) != category {
			continue
		}
		if priority != "" && strings.ToLower(tc.Priority) != priority {
			continue
		}
		out = append(out, tc)
	}

	if f.Skip > 0 {
		if f.Skip >= len(out) {
			return nil
		}
		out = out[f.Skip:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out
}

// ProgressFunc observes each finished case: its 1-based index, the planned
// total, and the record just produced.
type ProgressFunc func(index, total int, r *result.Result)
