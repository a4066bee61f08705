package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/chat-eval/internal/config"
	"github.com/stellarlinkco/chat-eval/internal/llm"
	"github.com/stellarlinkco/chat-eval/internal/producer"
	"github.com/stellarlinkco/chat-eval/internal/report"
	"github.com/stellarlinkco/chat-eval/internal/result"
	"github.com/stellarlinkco/chat-eval/internal/retry"
	"github.com/stellarlinkco/chat-eval/internal/runner"
	"github.com/stellarlinkco/chat-eval/internal/scorer"
	"github.com/stellarlinkco/chat-eval/internal/stats"
	"github.com/stellarlinkco/chat-eval/internal/store"
	"github.com/stellarlinkco/chat-eval/internal/testcase"
)

var errThresholdNotMet = errors.New("chateval: success threshold not met")

const defaultTestFile = "tests/test_cases.json"

type runOptions struct {
	testFile   string
	output     string
	scorerName string
	scenario   string
	category   string
	priority   string
	skip       int
	limit      int
	dryRun     bool
}

func newRunCmd(st *cliState) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an evaluation batch",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(st)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluation(cmd, st, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.testFile, "test-file", defaultTestFile, "test case file to load")
	cmd.Flags().StringVar(&opts.output, "output", "", "results directory (overrides config)")
	cmd.Flags().StringVar(&opts.scorerName, "scorer", "", "scoring strategy: keyword|judge (overrides config)")
	cmd.Flags().StringVar(&opts.scenario, "scenario", "", "force a judge scenario for every case")
	cmd.Flags().StringVar(&opts.category, "category", "", "only run cases in this category")
	cmd.Flags().StringVar(&opts.priority, "priority", "", "only run cases with this priority")
	cmd.Flags().IntVar(&opts.skip, "skip", 0, "skip the first N filtered cases")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "run at most N cases (0 = all)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "list selected cases without calling anything")

	return cmd
}

func runEvaluation(cmd *cobra.Command, st *cliState, opts *runOptions) error {
	if st == nil || st.cfg == nil {
		return fmt.Errorf("run: missing config (internal error)")
	}
	if opts == nil {
		return fmt.Errorf("run: nil options")
	}
	cfg := st.cfg
	out := cmd.OutOrStdout()

	if s := strings.TrimSpace(opts.scenario); s != "" && !testcase.KnownScenario(s) {
		return fmt.Errorf("run: unknown scenario %q (known: %s)", s, strings.Join(scorer.Scenarios(), ", "))
	}

	cases, err := testcase.LoadFromFile(opts.testFile)
	if err != nil {
		return err
	}

	filter := runner.Filter{
		Category: opts.category,
		Priority: opts.priority,
		Skip:     opts.skip,
		Limit:    opts.limit,
	}
	selected := filter.Apply(cases)
	if len(selected) == 0 {
		return fmt.Errorf("run: no cases selected (loaded %d)", len(cases))
	}

	logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
	caller := retry.New(cfg.Request.MaxRetries, cfg.Request.Timeout, cfg.Request.Interval, logger)

	prod, err := buildProducer(cfg, caller)
	if err != nil {
		return err
	}

	sc, err := buildScorer(cfg, opts.scorerName, caller, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// A dry run still validates the configuration and the connectivity of
	// everything the batch would touch; it just scores nothing.
	if opts.dryRun {
		fmt.Fprintf(out, "Would run %d of %d cases:\n", len(selected), len(cases))
		for _, tc := range selected {
			fmt.Fprintf(out, "  %s [%s/%s/%s] %s\n", tc.ID, tc.Category, tc.Priority, tc.Scenario, truncateQuestion(tc.Question))
		}
		return checkConnectivity(ctx, out, prod, sc)
	}

	if err := prod.Health(ctx); err != nil {
		return fmt.Errorf("run: target not ready: %w", err)
	}

	r, err := runner.New(prod, sc, runner.Config{
		MaxRetries:       cfg.Evaluation.MaxRetries,
		ScenarioOverride: opts.scenario,
	}, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Running %d cases (%s scorer, target %s)\n", len(selected), sc.Name(), prod.Name())

	startedAt := time.Now().UTC()
	results, runStats, err := r.Run(ctx, selected, func(i, total int, rec *result.Result) {
		status := "FAIL"
		if rec.Success {
			status = "PASS"
		}
		fmt.Fprintf(out, "[%d/%d] %s %s score=%.0f (%.1fs)\n", i, total, rec.TestID, status, rec.Score, rec.ExecutionTime)
	})
	if err != nil {
		return err
	}
	finishedAt := time.Now().UTC()

	summary := stats.Aggregate(results, cfg.Evaluation.SuccessThreshold)

	resultsDir := strings.TrimSpace(opts.output)
	if resultsDir == "" {
		resultsDir = cfg.Evaluation.ResultsDir
	}
	paths, err := report.Write(resultsDir, engineVersion, results, runStats, summary)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nReport: %s\nSummary: %s\n", paths.JSON, paths.Text)
	fmt.Fprintf(out, "Success rate: %.1f%% (threshold %.0f%%)\n", summary.SuccessRate*100, cfg.Evaluation.SuccessThreshold*100)

	if err := saveRunToStore(ctx, st, sc.Name(), results, summary, startedAt, finishedAt); err != nil {
		logger.Printf("warn: history not saved: %v", err)
	}

	if !summary.ThresholdMet {
		return errThresholdNotMet
	}
	return nil
}

// pinger is implemented by scorers that depend on a remote backend.
type pinger interface {
	Ping(ctx context.Context) error
}

// checkConnectivity verifies the producer and, for remote-backed scorers,
// the scoring backend are reachable.
func checkConnectivity(ctx context.Context, out io.Writer, prod producer.Producer, sc scorer.Scorer) error {
	if err := prod.Health(ctx); err != nil {
		return fmt.Errorf("run: target not ready: %w", err)
	}
	fmt.Fprintf(out, "Target %s: healthy\n", prod.Name())

	if p, ok := sc.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("run: %s scorer not reachable: %w", sc.Name(), err)
		}
		fmt.Fprintf(out, "Scorer %s: reachable\n", sc.Name())
	}
	return nil
}

func buildProducer(cfg *config.Config, caller *retry.Caller) (producer.Producer, error) {
	if strings.TrimSpace(cfg.Chat.Command) != "" {
		return producer.NewSubprocess(cfg.Chat.Command, cfg.Chat.Dir, cfg.Chat.Timeout, caller)
	}
	return producer.NewHTTP(cfg.Chat.URL, cfg.Chat.Timeout, caller)
}

func buildScorer(cfg *config.Config, override string, caller *retry.Caller, logger *log.Logger) (scorer.Scorer, error) {
	name := strings.ToLower(strings.TrimSpace(override))
	if name == "" {
		name = strings.ToLower(strings.TrimSpace(cfg.Evaluation.Scorer))
	}
	switch name {
	case "keyword":
		return scorer.NewKeywordScorer(), nil
	case "judge":
		provider, err := llm.DefaultProviderFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("run: %w", err)
		}
		return scorer.NewJudgeScorer(provider, caller, cfg.Evaluation.PassScore, logger)
	default:
		return nil, fmt.Errorf("run: unknown scorer %q (expected keyword or judge)", name)
	}
}

func saveRunToStore(ctx context.Context, st *cliState, scorerName string, results []result.Result, summary *stats.Summary, startedAt, finishedAt time.Time) error {
	stor, err := store.Open(st.cfg)
	if err != nil {
		return err
	}
	defer stor.Close()

	id, err := newRunID()
	if err != nil {
		return err
	}

	return stor.SaveRun(ctx, &store.RunRecord{
		ID:           id,
		StartedAt:    startedAt,
		FinishedAt:   finishedAt,
		Scorer:       scorerName,
		TotalTests:   summary.TotalTests,
		Successful:   summary.Successful,
		Failed:       summary.Failed,
		SuccessRate:  summary.SuccessRate,
		AverageScore: summary.AverageScore,
		ThresholdMet: summary.ThresholdMet,
		Results:      results,
	})
}

func newRunID() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return fmt.Sprintf("run_%s_%x", time.Now().UTC().Format("20060102T150405Z"), buf), nil
}

func truncateQuestion(q string) string {
	q = strings.ReplaceAll(q, "\n", " ")
	if len(q) <= 60 {
		return q
	}
	return q[:60] + "..."
}
