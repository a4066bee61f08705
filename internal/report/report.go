// Package report renders a finished run into two artifacts: a machine
// readable JSON report and a human readable text summary, both timestamped
// under the results directory.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/stellarlinkco/chat-eval/internal/result"
	"github.com/stellarlinkco/chat-eval/internal/stats"
)

const (
	reasonWidth    = 50
	detailRowLimit = 10
)

// Metadata describes the run that produced a report.
type Metadata struct {
	EvaluationTime time.Time       `json:"evaluation_time"`
	EngineVersion  string          `json:"engine_version"`
	TotalTests     int             `json:"total_tests"`
	Statistics     result.RunStats `json:"statistics"`
}

// Report is the JSON artifact layout.
type Report struct {
	Metadata Metadata        `json:"metadata"`
	Results  []result.Result `json:"results"`
	Summary  *stats.Summary  `json:"summary"`
}

// Paths names the two files written for one run.
type Paths struct {
	JSON string
	Text string
}

// Write renders both artifacts into dir, creating it if needed, and returns
// their paths. Filenames share one timestamp so a run's pair sorts together.
func Write(dir, version string, results []result.Result, runStats *result.RunStats, summary *stats.Summary) (*Paths, error) {
	if summary == nil {
		return nil, fmt.Errorf("report: nil summary")
	}
	if runStats == nil {
		runStats = &result.RunStats{}
	}
	if dir = strings.TrimSpace(dir); dir == "" {
		dir = "results"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("report: create %q: %w", dir, err)
	}

	now := time.Now()
	ts := now.Format("20060102_150405")
	paths := &Paths{
		JSON: filepath.Join(dir, fmt.Sprintf("eval_report_%s.json", ts)),
		Text: filepath.Join(dir, fmt.Sprintf("eval_summary_%s.txt", ts)),
	}

	rep := Report{
		Metadata: Metadata{
			EvaluationTime: now,
			EngineVersion:  version,
			TotalTests:     len(results),
			Statistics:     *runStats,
		},
		Results: results,
		Summary: summary,
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("report: encode JSON: %w", err)
	}
	if err := os.WriteFile(paths.JSON, data, 0o644); err != nil {
		return nil, fmt.Errorf("report: write %q: %w", paths.JSON, err)
	}

	text := RenderText(version, results, runStats, summary)
	if err := os.WriteFile(paths.Text, []byte(text), 0o644); err != nil {
		return nil, fmt.Errorf("report: write %q: %w", paths.Text, err)
	}

	return paths, nil
}

// RenderText builds the human readable summary.
func RenderText(version string, results []result.Result, runStats *result.RunStats, summary *stats.Summary) string {
	var b strings.Builder

	fmt.Fprintln(&b, strings.Repeat("=", 60))
	fmt.Fprintf(&b, "Evaluation Summary (engine %s)\n", version)
	fmt.Fprintln(&b, strings.Repeat("=", 60))
	fmt.Fprintf(&b, "Run time:       %.1fs\n", runStats.Duration())
	fmt.Fprintf(&b, "Total cases:    %d\n", summary.TotalTests)
	fmt.Fprintf(&b, "Successful:     %d\n", summary.Successful)
	fmt.Fprintf(&b, "Failed:         %d\n", summary.Failed)
	if summary.Errored > 0 {
		fmt.Fprintf(&b, "Errored:        %d\n", summary.Errored)
	}
	fmt.Fprintf(&b, "Success rate:   %.1f%%\n", summary.SuccessRate*100)
	fmt.Fprintf(&b, "Average score:  %.1f (min %.1f, max %.1f)\n", summary.AverageScore, summary.MinScore, summary.MaxScore)
	fmt.Fprintf(&b, "Total retries:  %d\n", summary.TotalRetries)
	verdict := "NOT MET"
	if summary.ThresholdMet {
		verdict = "MET"
	}
	fmt.Fprintf(&b, "Threshold:      %s\n\n", verdict)

	writeDistribution(&b, summary)
	writeBreakdown(&b, "By category", summary.ByCategory)
	writeBreakdown(&b, "By priority", summary.ByPriority)
	writeScenarios(&b, summary)
	writeDetails(&b, results)
	writeFailures(&b, results)

	return b.String()
}

func writeDistribution(b *strings.Builder, summary *stats.Summary) {
	scored := 0
	for _, n := range summary.Distribution {
		scored += n
	}
	if scored == 0 {
		return
	}

	fmt.Fprintln(b, "Score distribution:")
	tw := tabwriter.NewWriter(b, 0, 4, 2, ' ', 0)
	for _, bucket := range stats.BucketOrder {
		n := summary.Distribution[bucket]
		fmt.Fprintf(tw, "  %s\t%d\t%.1f%%\n", bucket, n, float64(n)/float64(scored)*100)
	}
	tw.Flush()
	fmt.Fprintln(b)
}

func writeBreakdown(b *strings.Builder, title string, m map[string]*stats.Breakdown) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(b, "%s:\n", title)
	tw := tabwriter.NewWriter(b, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "  \ttotal\tok\tfail\trate\n")
	for _, k := range keys {
		bd := m[k]
		fmt.Fprintf(tw, "  %s\t%d\t%d\t%d\t%.1f%%\n", k, bd.Total, bd.Successful, bd.Failed, bd.SuccessRate*100)
	}
	tw.Flush()
	fmt.Fprintln(b)
}

func writeScenarios(b *strings.Builder, summary *stats.Summary) {
	if len(summary.ByScenario) == 0 {
		return
	}
	keys := make([]string, 0, len(summary.ByScenario))
	for k := range summary.ByScenario {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(b, "By scenario:")
	tw := tabwriter.NewWriter(b, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "  \tcases\tavg score\n")
	for _, k := range keys {
		sc := summary.ByScenario[k]
		fmt.Fprintf(tw, "  %s\t%d\t%.1f\n", k, sc.Count, sc.AverageScore)
	}
	tw.Flush()
	fmt.Fprintln(b)
}

func writeDetails(b *strings.Builder, results []result.Result) {
	if len(results) == 0 {
		return
	}

	fmt.Fprintln(b, "Case details:")
	tw := tabwriter.NewWriter(b, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "  id\tstatus\tscore\treason\n")
	shown := len(results)
	if shown > detailRowLimit {
		shown = detailRowLimit
	}
	for i := 0; i < shown; i++ {
		r := &results[i]
		status := "FAIL"
		if r.Success {
			status = "PASS"
		}
		reason := r.Reason
		if r.Error != "" {
			reason = r.Error
		}
		fmt.Fprintf(tw, "  %s\t%s\t%.0f\t%s\n", r.TestID, status, r.Score, truncate(reason, reasonWidth))
	}
	tw.Flush()
	if rest := len(results) - shown; rest > 0 {
		fmt.Fprintf(b, "  ... and %d more (see the JSON report)\n", rest)
	}
	fmt.Fprintln(b)
}

func writeFailures(b *strings.Builder, results []result.Result) {
	var failed []*result.Result
	for i := range results {
		if !results[i].Success {
			failed = append(failed, &results[i])
		}
	}
	if len(failed) == 0 {
		return
	}

	fmt.Fprintln(b, "Failed cases:")
	for _, r := range failed {
		reason := r.Reason
		if r.Error != "" {
			reason = r.Error
		}
		fmt.Fprintf(b, "  - %s: %s\n", r.TestID, truncate(reason, 2*reasonWidth))
	}
	fmt.Fprintln(b)
}

// truncate cuts on rune boundaries so multi-byte reasons stay valid UTF-8.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
