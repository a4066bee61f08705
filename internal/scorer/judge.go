package scorer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/stellarlinkco/chat-eval/internal/llm"
	"github.com/stellarlinkco/chat-eval/internal/retry"
	"github.com/stellarlinkco/chat-eval/internal/testcase"
)

// JudgeScorer asks an LLM to grade the answer with a rubric prompt and
// parses the structured verdict. Malformed verdicts degrade to pattern
// extraction instead of failing the case.
type JudgeScorer struct {
	provider  llm.Provider
	caller    *retry.Caller
	passScore float64
	logger    *log.Logger
}

type judgeVerdict struct {
	Score      *float64           `json:"score"`
	Success    *bool              `json:"success"`
	Reason     string             `json:"reason"`
	Dimensions map[string]float64 `json:"dimensions"`
}

func NewJudgeScorer(provider llm.Provider, caller *retry.Caller, passScore int, logger *log.Logger) (*JudgeScorer, error) {
	if provider == nil {
		return nil, errors.New("scorer: nil judge provider")
	}
	if caller == nil {
		return nil, errors.New("scorer: nil retry caller")
	}
	if passScore <= 0 || passScore > 100 {
		passScore = 60
	}
	if logger == nil {
		logger = log.Default()
	}
	return &JudgeScorer{
		provider:  provider,
		caller:    caller,
		passScore: float64(passScore),
		logger:    logger,
	}, nil
}

func (s *JudgeScorer) Name() string {
	return "judge"
}

// Ping sends a minimal request to verify the judge backend answers at all.
// Dry runs use it before anything is scored.
func (s *JudgeScorer) Ping(ctx context.Context) error {
	if s == nil || s.provider == nil {
		return errors.New("scorer: nil judge scorer")
	}
	_, err := s.provider.Complete(ctx, &llm.Request{
		Messages:  []llm.Message{{Role: "user", Content: "ping"}},
		MaxTokens: 8,
	})
	if err != nil {
		return fmt.Errorf("scorer: judge ping: %w", err)
	}
	return nil
}

func (s *JudgeScorer) Score(ctx context.Context, tc *testcase.TestCase, answer string) (*Result, error) {
	if s == nil {
		return nil, errors.New("scorer: nil judge scorer")
	}
	if tc == nil {
		return nil, errors.New("scorer: nil test case")
	}

	prompt := buildJudgePrompt(tc, answer)

	raw, _, err := s.caller.Call(ctx, "judge", func(ctx context.Context) (string, error) {
		resp, err := s.provider.Complete(ctx, &llm.Request{
			Messages:  []llm.Message{{Role: "user", Content: prompt}},
			MaxTokens: 1000,
		})
		if err != nil {
			return "", err
		}
		return resp.Text, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scorer: judge call: %w", err)
	}

	return s.parseVerdict(tc, raw), nil
}

func (s *JudgeScorer) parseVerdict(tc *testcase.TestCase, raw string) *Result {
	var v judgeVerdict
	if err := llm.ParseJSON(raw, &v); err != nil || v.Score == nil {
		return s.degraded(tc, raw)
	}

	score := *v.Score
	if score < 0 || score > 100 {
		s.logger.Printf("warn: judge score %v for %s outside 0-100, degrading", score, tc.ID)
		return s.degraded(tc, raw)
	}

	// Dimensions are weighted contributions, so their plain sum should land
	// on the overall score. A drift beyond the rounding tolerance is worth a
	// warning but the judge's overall score still wins.
	if len(v.Dimensions) > 0 {
		sum := 0.0
		for _, d := range v.Dimensions {
			sum += d
		}
		if math.Abs(sum-score) > 1 {
			s.logger.Printf("warn: judge for %s: dimension sum %.1f disagrees with score %.1f", tc.ID, sum, score)
		}
	}

	success := score >= s.passScore
	if v.Success != nil {
		success = *v.Success
	}

	return &Result{
		Success:    success,
		Score:      score,
		Reason:     strings.TrimSpace(v.Reason),
		Dimensions: v.Dimensions,
		Extracted:  true,
	}
}

// degraded recovers a score from malformed judge output with pattern
// matching; when even that fails a neutral score is recorded and marked as
// not extracted.
func (s *JudgeScorer) degraded(tc *testcase.TestCase, raw string) *Result {
	score, matched := extractScore(raw)
	if matched {
		s.logger.Printf("warn: judge for %s returned malformed output, recovered score %.0f", tc.ID, score)
	} else {
		s.logger.Printf("warn: judge for %s returned unscorable output, using neutral %d", tc.ID, fallbackScore)
	}
	return &Result{
		Success:   score >= s.passScore,
		Score:     score,
		Reason:    "unparsable judge output: " + truncate(raw, 200),
		Extracted: matched,
	}
}

// truncate cuts on rune boundaries so multi-byte judge output stays valid
// UTF-8.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
