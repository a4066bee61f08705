package scorer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stellarlinkco/chat-eval/internal/testcase"
)

// KeywordScorer checks answer coverage of a case's expected keywords.
// A non-empty answer passes when the case has no keywords or when at least
// one of them appears (case-insensitive substring). The score is the
// coverage ratio on the 0..100 scale so distribution buckets stay
// meaningful.
type KeywordScorer struct{}

func NewKeywordScorer() *KeywordScorer {
	return &KeywordScorer{}
}

func (s *KeywordScorer) Name() string {
	return "keyword"
}

func (s *KeywordScorer) Score(ctx context.Context, tc *testcase.TestCase, answer string) (*Result, error) {
	if s == nil {
		return nil, errors.New("scorer: nil keyword scorer")
	}
	if tc == nil {
		return nil, errors.New("scorer: nil test case")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(answer) == "" {
		return &Result{
			Success:   false,
			Score:     0,
			Reason:    "empty answer",
			Extracted: true,
		}, nil
	}

	// A case without keywords passes on any non-empty answer.
	if len(tc.ExpectedKeywords) == 0 {
		return &Result{
			Success:   true,
			Score:     100,
			Reason:    "no expected keywords; non-empty answer accepted",
			Extracted: true,
		}, nil
	}

	lower := strings.ToLower(answer)
	var matched, missing []string
	for _, kw := range tc.ExpectedKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched = append(matched, kw)
		} else {
			missing = append(missing, kw)
		}
	}

	ratio := float64(len(matched)) / float64(len(tc.ExpectedKeywords))
	return &Result{
		Success:   len(matched) > 0,
		Score:     100 * ratio,
		Reason:    fmt.Sprintf("matched %d/%d keywords", len(matched), len(tc.ExpectedKeywords)),
		Extracted: true,
		Details: map[string]any{
			"matched_keywords": matched,
			"missing_keywords": missing,
			"match_ratio":      ratio,
		},
	}, nil
}
