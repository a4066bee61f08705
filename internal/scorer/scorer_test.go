package scorer

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stellarlinkco/chat-eval/internal/llm"
	"github.com/stellarlinkco/chat-eval/internal/retry"
	"github.com/stellarlinkco/chat-eval/internal/testcase"
)

func TestKeywordScorerCoverage(t *testing.T) {
	t.Parallel()

	tc := &testcase.TestCase{
		ID:               "kw_1",
		Question:         "what is go",
		ExpectedKeywords: []string{"compiled", "Google", "goroutine", "static"},
	}
	s := NewKeywordScorer()

	res, err := s.Score(context.Background(), tc, "Go is a COMPILED language from google with goroutines and static typing.")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if !res.Success {
		t.Fatal("full coverage should pass")
	}
	if res.Score != 100 {
		t.Fatalf("score = %v, want 100", res.Score)
	}

	// One matched keyword is enough to pass; the score still reflects
	// partial coverage.
	res, err = s.Score(context.Background(), tc, "Go was made at Google and has goroutines.")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if !res.Success {
		t.Fatal("partial match should pass")
	}
	if res.Score != 50 {
		t.Fatalf("score = %v, want 50", res.Score)
	}
	missing, _ := res.Details["missing_keywords"].([]string)
	if len(missing) != 2 {
		t.Fatalf("missing = %v, want 2 entries", missing)
	}

	res, err = s.Score(context.Background(), tc, "Rust is a systems language.")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.Success || res.Score != 0 {
		t.Fatalf("zero matches should fail with 0, got %+v", res)
	}
}

func TestKeywordScorerNoKeywords(t *testing.T) {
	t.Parallel()

	tc := &testcase.TestCase{ID: "kw_2", Question: "hi"}
	s := NewKeywordScorer()

	res, err := s.Score(context.Background(), tc, "hello there")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if !res.Success || res.Score != 100 {
		t.Fatalf("non-empty answer without keywords should pass with 100, got %+v", res)
	}

	res, err = s.Score(context.Background(), tc, "   ")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.Success || res.Score != 0 {
		t.Fatalf("blank answer should fail with 0, got %+v", res)
	}
}

type fakeJudge struct {
	replies []string
	err     error
	calls   int
}

func (f *fakeJudge) Name() string { return "fake" }

func (f *fakeJudge) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	i := f.calls
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	f.calls++
	return &llm.Response{Text: f.replies[i]}, nil
}

func newJudge(t *testing.T, provider llm.Provider) *JudgeScorer {
	t.Helper()
	caller := retry.New(0, 5*time.Second, 0, log.New(judgeLogWriter{t}, "", 0))
	s, err := NewJudgeScorer(provider, caller, 60, log.New(judgeLogWriter{t}, "", 0))
	if err != nil {
		t.Fatalf("NewJudgeScorer: %v", err)
	}
	return s
}

type judgeLogWriter struct{ t *testing.T }

func (w judgeLogWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

func TestJudgeScorerWellFormed(t *testing.T) {
	t.Parallel()

	reply := `{"score": 88, "success": true, "reason": "clear and accurate",
		"dimensions": {"relevance": 27, "accuracy": 22, "completeness": 17, "usefulness": 13, "expression": 9}}`
	s := newJudge(t, &fakeJudge{replies: []string{reply}})

	tc := &testcase.TestCase{ID: "j_1", Question: "q", Scenario: testcase.ScenarioKnowledge}
	res, err := s.Score(context.Background(), tc, "an answer")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if !res.Success || res.Score != 88 {
		t.Fatalf("got %+v, want success at 88", res)
	}
	if !res.Extracted {
		t.Fatal("well-formed verdict should be marked extracted")
	}
	if res.Dimensions["relevance"] != 27 {
		t.Fatalf("dimensions = %v", res.Dimensions)
	}
}

func TestJudgeScorerDimensionSumMismatchWarns(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := log.New(&logs, "", 0)
	caller := retry.New(0, 5*time.Second, 0, logger)

	// Dimension points summing to 50 cannot explain a score of 88.
	reply := `{"score": 88, "reason": "x",
		"dimensions": {"relevance": 10, "accuracy": 10, "completeness": 10, "usefulness": 10, "expression": 10}}`
	s, err := NewJudgeScorer(&fakeJudge{replies: []string{reply}}, caller, 60, logger)
	if err != nil {
		t.Fatalf("NewJudgeScorer: %v", err)
	}

	res, err := s.Score(context.Background(), &testcase.TestCase{ID: "j_dim", Question: "q"}, "a")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	// The warning does not alter the verdict.
	if !res.Success || res.Score != 88 || !res.Extracted {
		t.Fatalf("got %+v, want extracted success at 88", res)
	}
	if !strings.Contains(logs.String(), "dimension sum 50.0 disagrees with score 88.0") {
		t.Fatalf("mismatch warning missing, logs:\n%s", logs.String())
	}
}

func TestJudgeScorerConsistentDimensionsDoNotWarn(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := log.New(&logs, "", 0)
	caller := retry.New(0, 5*time.Second, 0, logger)

	reply := `{"score": 87, "reason": "x",
		"dimensions": {"relevance": 26, "accuracy": 22, "completeness": 18, "usefulness": 13, "expression": 8}}`
	s, err := NewJudgeScorer(&fakeJudge{replies: []string{reply}}, caller, 60, logger)
	if err != nil {
		t.Fatalf("NewJudgeScorer: %v", err)
	}

	if _, err := s.Score(context.Background(), &testcase.TestCase{ID: "j_dim2", Question: "q"}, "a"); err != nil {
		t.Fatalf("Score: %v", err)
	}
	if strings.Contains(logs.String(), "disagrees") {
		t.Fatalf("unexpected warning, logs:\n%s", logs.String())
	}
}

func TestJudgeScorerFencedVerdict(t *testing.T) {
	t.Parallel()

	reply := "```json\n{\"score\": 40, \"reason\": \"misses the point\"}\n```"
	s := newJudge(t, &fakeJudge{replies: []string{reply}})

	res, err := s.Score(context.Background(), &testcase.TestCase{ID: "j_2", Question: "q"}, "a")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.Success {
		t.Fatal("40 should not pass at pass score 60")
	}
	if res.Score != 40 {
		t.Fatalf("score = %v, want 40", res.Score)
	}
}

func TestJudgeScorerFallbackExtraction(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		reply     string
		wantScore float64
		extracted bool
	}{
		{name: "json-ish fragment", reply: `the verdict is "score": 73 overall`, wantScore: 73, extracted: true},
		{name: "chinese label", reply: "分数：65，理由：基本正确", wantScore: 65, extracted: true},
		{name: "suffix form", reply: "我给这个回答85分。", wantScore: 85, extracted: true},
		{name: "out of hundred", reply: "I give this 82/100.", wantScore: 82, extracted: true},
		{name: "nothing usable", reply: "the answer seems fine to me", wantScore: 75, extracted: false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			s := newJudge(t, &fakeJudge{replies: []string{c.reply}})
			res, err := s.Score(context.Background(), &testcase.TestCase{ID: "j_fb", Question: "q"}, "a")
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if res.Score != c.wantScore {
				t.Fatalf("score = %v, want %v", res.Score, c.wantScore)
			}
			if res.Extracted != c.extracted {
				t.Fatalf("extracted = %v, want %v", res.Extracted, c.extracted)
			}
			if !strings.Contains(res.Reason, c.reply) {
				t.Fatalf("reason should carry the raw output, got %q", res.Reason)
			}
		})
	}
}

func TestJudgeScorerOutOfRangeScoreDegrades(t *testing.T) {
	t.Parallel()

	s := newJudge(t, &fakeJudge{replies: []string{`{"score": 150, "reason": "x"}`}})
	res, err := s.Score(context.Background(), &testcase.TestCase{ID: "j_3", Question: "q"}, "a")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	// 150 fails range validation; pattern extraction also rejects it, so the
	// neutral fallback applies.
	if res.Score != 75 || res.Extracted {
		t.Fatalf("got %+v, want neutral 75 unextracted", res)
	}
}

func TestJudgeScorerLongReasonStaysValidUTF8(t *testing.T) {
	t.Parallel()

	// A long Chinese reply with no recoverable score lands in Reason via
	// truncation, which must not cut a rune in half.
	reply := strings.Repeat("回答内容基本符合预期，表达清晰。", 30)
	s := newJudge(t, &fakeJudge{replies: []string{reply}})

	res, err := s.Score(context.Background(), &testcase.TestCase{ID: "j_utf8", Question: "q"}, "a")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.Extracted {
		t.Fatalf("got %+v, want unextracted fallback", res)
	}
	if !utf8.ValidString(res.Reason) {
		t.Fatalf("reason is not valid UTF-8: %q", res.Reason)
	}
}

func TestJudgeScorerPing(t *testing.T) {
	t.Parallel()

	s := newJudge(t, &fakeJudge{replies: []string{"pong"}})
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	s = newJudge(t, &fakeJudge{err: errors.New("no route to host")})
	if err := s.Ping(context.Background()); err == nil || !strings.Contains(err.Error(), "judge ping") {
		t.Fatalf("err = %v, want judge ping failure", err)
	}
}

func TestJudgeScorerProviderError(t *testing.T) {
	t.Parallel()

	s := newJudge(t, &fakeJudge{err: errors.New("boom")})
	_, err := s.Score(context.Background(), &testcase.TestCase{ID: "j_4", Question: "q"}, "a")
	if err == nil {
		t.Fatal("provider failure after retries should surface as an error")
	}
}

func TestBuildJudgePrompt(t *testing.T) {
	t.Parallel()

	tc := &testcase.TestCase{
		ID:               "p_1",
		Question:         "explain TCP slow start",
		Scenario:         testcase.ScenarioTechnical,
		ExpectedKeywords: []string{"congestion window", "exponential"},
	}
	prompt := buildJudgePrompt(tc, "some answer")

	for _, want := range []string{
		"explain TCP slow start",
		"some answer",
		"congestion window, exponential",
		"relevance (0-30)",
		"technical question",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestScenarios(t *testing.T) {
	t.Parallel()

	got := Scenarios()
	want := []string{"creative", "general", "knowledge", "technical"}
	if len(got) != len(want) {
		t.Fatalf("Scenarios() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Scenarios() = %v, want %v", got, want)
		}
	}
}
