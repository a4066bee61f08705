// Package runner drives a batch evaluation: it asks the producer each
// question, hands the answer to the scorer, and collects per-case records
// with retry bookkeeping.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/stellarlinkco/chat-eval/internal/producer"
	"github.com/stellarlinkco/chat-eval/internal/result"
	"github.com/stellarlinkco/chat-eval/internal/scorer"
	"github.com/stellarlinkco/chat-eval/internal/testcase"
)

type Runner struct {
	producer producer.Producer
	scorer   scorer.Scorer
	cfg      Config
	logger   *log.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

func New(p producer.Producer, s scorer.Scorer, cfg Config, logger *log.Logger) (*Runner, error) {
	if p == nil {
		return nil, errors.New("runner: nil producer")
	}
	if s == nil {
		return nil, errors.New("runner: nil scorer")
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryPause <= 0 {
		cfg.RetryPause = time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		producer: p,
		scorer:   s,
		cfg:      cfg,
		logger:   logger,
		sleep:    sleepWithContext,
	}, nil
}

// Run evaluates cases sequentially. A canceled context finalizes the batch
// with the results gathered so far; per-case failures never abort the batch.
func (r *Runner) Run(ctx context.Context, cases []testcase.TestCase, progress ProgressFunc) ([]result.Result, *result.RunStats, error) {
	if r == nil {
		return nil, nil, errors.New("runner: nil runner")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stats := &result.RunStats{
		TotalTests: len(cases),
		StartTime:  time.Now(),
	}
	results := make([]result.Result, 0, len(cases))

caseLoop:
	for i := range cases {
		select {
		case <-ctx.Done():
			r.logger.Printf("warn: run interrupted after %d/%d cases", len(results), len(cases))
			break caseLoop
		default:
		}

		rec := r.RunCase(ctx, &cases[i])
		results = append(results, *rec)

		// Completed and failed are disjoint: a case either reached the scorer
		// or it errored out, so the two never sum past the planned total.
		if rec.Scored() {
			stats.CompletedTests++
		} else {
			stats.FailedTests++
		}
		stats.TotalAPITime += rec.APITime

		if progress != nil {
			progress(i+1, len(cases), rec)
		}
	}

	stats.EndTime = time.Now()
	return results, stats, nil
}

// RunCase evaluates one case: produce an answer, score it, and retry the
// produce step on failures or empty answers up to MaxRetries times. Scoring
// failures are terminal for the case. A panic inside a strategy is recorded
// as the case's error rather than tearing down the batch.
func (r *Runner) RunCase(ctx context.Context, tc *testcase.TestCase) (rec *result.Result) {
	started := time.Now()

	effective := *tc
	if s := strings.TrimSpace(r.cfg.ScenarioOverride); s != "" {
		effective.Scenario = s
	}

	rec = &result.Result{
		TestID:    effective.ID,
		Question:  effective.Question,
		Category:  effective.Category,
		Priority:  effective.Priority,
		Scenario:  effective.Scenario,
		Timestamp: started,
	}

	defer func() {
		if p := recover(); p != nil {
			rec.Success = false
			rec.Error = fmt.Sprintf("panic: %v", p)
		}
		rec.ExecutionTime = time.Since(started).Seconds()
	}()

	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			rec.RetryCount++
			if err := r.sleep(ctx, r.cfg.RetryPause); err != nil {
				lastErr = err
				break
			}
		}
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		apiStart := time.Now()
		answer, produceRetries, err := r.producer.Produce(ctx, effective.Question)
		rec.APITime += time.Since(apiStart).Seconds()
		rec.RetryCount += produceRetries

		if err != nil {
			lastErr = err
			r.logger.Printf("warn: case %s: produce attempt %d failed: %v", effective.ID, attempt+1, err)
			continue
		}
		if strings.TrimSpace(answer) == "" {
			lastErr = errors.New("empty answer")
			r.logger.Printf("warn: case %s: empty answer on attempt %d", effective.ID, attempt+1)
			continue
		}

		rec.Answer = answer

		verdict, err := r.scorer.Score(ctx, &effective, answer)
		if err != nil {
			rec.Success = false
			rec.Error = fmt.Sprintf("scoring failed: %v", err)
			return rec
		}

		rec.Success = verdict.Success
		rec.Score = result.ClampScore(verdict.Score)
		rec.Reason = verdict.Reason
		rec.Dimensions = verdict.Dimensions
		if len(verdict.Details) > 0 {
			rec.Details = verdict.Details
		}
		if !verdict.Extracted {
			if rec.Details == nil {
				rec.Details = make(map[string]any, 1)
			}
			rec.Details["score_extracted"] = false
		}
		return rec
	}

	rec.Success = false
	if lastErr == nil {
		lastErr = errors.New("no answer produced")
	}
	rec.Error = lastErr.Error()
	return rec
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
