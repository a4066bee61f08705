// Package stats aggregates per-case results into the summary block of a
// report: success rates, score distribution, and breakdowns by category,
// priority, and scenario.
package stats

import (
	"math"

	"github.com/stellarlinkco/chat-eval/internal/result"
)

// Distribution bucket names, ordered from best to worst.
var BucketOrder = []string{"excellent", "good", "average", "poor", "very_poor"}

// Breakdown counts outcomes within one category or priority value.
type Breakdown struct {
	Total       int     `json:"total"`
	Successful  int     `json:"successful"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

// ScenarioStats tracks volume and average score per rubric scenario.
type ScenarioStats struct {
	Count        int     `json:"count"`
	AverageScore float64 `json:"average_score"`
}

// Summary is the aggregate view over a finished run.
type Summary struct {
	TotalTests   int     `json:"total_tests"`
	Successful   int     `json:"successful"`
	Failed       int     `json:"failed"`
	Errored      int     `json:"errored"`
	SuccessRate  float64 `json:"success_rate"`
	ThresholdMet bool    `json:"threshold_met"`

	AverageScore float64 `json:"average_score"`
	MinScore     float64 `json:"min_score"`
	MaxScore     float64 `json:"max_score"`

	Distribution map[string]int `json:"score_distribution"`

	ByCategory map[string]*Breakdown     `json:"by_category"`
	ByPriority map[string]*Breakdown     `json:"by_priority"`
	ByScenario map[string]*ScenarioStats `json:"by_scenario"`

	AverageExecutionTime float64 `json:"average_execution_time"`
	TotalRetries         int     `json:"total_retries"`
}

// Aggregate folds results into a Summary. threshold is the batch success
// rate (0..1) required for ThresholdMet. Errored cases count toward totals
// and failure rates but are excluded from score statistics.
func Aggregate(results []result.Result, threshold float64) *Summary {
	s := &Summary{
		TotalTests:   len(results),
		Distribution: make(map[string]int, len(BucketOrder)),
		ByCategory:   make(map[string]*Breakdown),
		ByPriority:   make(map[string]*Breakdown),
		ByScenario:   make(map[string]*ScenarioStats),
	}
	for _, b := range BucketOrder {
		s.Distribution[b] = 0
	}

	var (
		scoreSum float64
		scored   int
		execSum  float64
		minScore = math.Inf(1)
		maxScore = math.Inf(-1)
	)

	for i := range results {
		r := &results[i]
		execSum += r.ExecutionTime
		s.TotalRetries += r.RetryCount

		if r.Success {
			s.Successful++
		} else {
			s.Failed++
		}
		if !r.Scored() {
			s.Errored++
		}

		bumpBreakdown(s.ByCategory, r.Category, r.Success)
		bumpBreakdown(s.ByPriority, r.Priority, r.Success)

		if !r.Scored() {
			continue
		}

		score := result.ClampScore(r.Score)
		scoreSum += score
		scored++
		minScore = math.Min(minScore, score)
		maxScore = math.Max(maxScore, score)
		s.Distribution[bucket(score)]++

		if r.Scenario != "" {
			sc := s.ByScenario[r.Scenario]
			if sc == nil {
				sc = &ScenarioStats{}
				s.ByScenario[r.Scenario] = sc
			}
			// Running mean keeps a single pass.
			sc.Count++
			sc.AverageScore += (score - sc.AverageScore) / float64(sc.Count)
		}
	}

	if s.TotalTests > 0 {
		s.SuccessRate = float64(s.Successful) / float64(s.TotalTests)
		s.AverageExecutionTime = execSum / float64(s.TotalTests)
	}
	if scored > 0 {
		s.AverageScore = scoreSum / float64(scored)
		s.MinScore = minScore
		s.MaxScore = maxScore
	}
	for _, m := range []map[string]*Breakdown{s.ByCategory, s.ByPriority} {
		for _, b := range m {
			if b.Total > 0 {
				b.SuccessRate = float64(b.Successful) / float64(b.Total)
			}
		}
	}

	s.ThresholdMet = s.TotalTests > 0 && s.SuccessRate >= threshold
	return s
}

func bumpBreakdown(m map[string]*Breakdown, key string, success bool) {
	if key == "" {
		key = "unknown"
	}
	b := m[key]
	if b == nil {
		b = &Breakdown{}
		m[key] = b
	}
	b.Total++
	if success {
		b.Successful++
	} else {
		b.Failed++
	}
}

// bucket maps a 0..100 score onto its distribution bucket. Boundaries are
// inclusive at the bottom of each band.
func bucket(score float64) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 80:
		return "good"
	case score >= 70:
		return "average"
	case score >= 60:
		return "poor"
	default:
		return "very_poor"
	}
}
