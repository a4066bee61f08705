// Package result defines the per-case evaluation record and the batch run
// counters shared by the runner, the statistics aggregator, the report
// writer, and the history store.
package result

import "time"

// Result is one evaluated test case. Error is non-empty when the case never
// produced a scorable answer; such records keep their metadata but are
// excluded from score statistics.
type Result struct {
	TestID        string             `json:"test_id"`
	Question      string             `json:"question"`
	Answer        string             `json:"answer,omitempty"`
	Success       bool               `json:"success"`
	Score         float64            `json:"score"`
	Reason        string             `json:"reason,omitempty"`
	Dimensions    map[string]float64 `json:"dimension_scores,omitempty"`
	Category      string             `json:"category"`
	Priority      string             `json:"priority"`
	Scenario      string             `json:"scenario,omitempty"`
	Timestamp     time.Time          `json:"timestamp"`
	ExecutionTime float64            `json:"execution_time"`
	APITime       float64            `json:"api_response_time"`
	RetryCount    int                `json:"retry_count"`
	Error         string             `json:"error,omitempty"`
	Details       map[string]any     `json:"details,omitempty"`
}

// Scored reports whether the case reached a scorer.
func (r *Result) Scored() bool {
	return r != nil && r.Error == ""
}

// RunStats tracks batch-level counters while a run is in flight. Completed
// counts cases that reached the scorer and Failed counts cases that did not;
// their sum never exceeds TotalTests.
type RunStats struct {
	TotalTests     int       `json:"total_tests"`
	CompletedTests int       `json:"completed_tests"`
	FailedTests    int       `json:"failed_tests"`
	TotalAPITime   float64   `json:"total_api_time"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
}

// Duration is the wall-clock span of the run in seconds.
func (s *RunStats) Duration() float64 {
	if s == nil || s.StartTime.IsZero() || s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime).Seconds()
}

// ClampScore keeps scores inside the 0..100 scale.
func ClampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
