package scorer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stellarlinkco/chat-eval/internal/testcase"
)

// Rubric dimensions. Each dimension's points are its weighted share of the
// overall score, so the five values add up to the score itself.
const rubricDimensions = `Score the answer on five dimensions. Each dimension carries the points of its
weight, and the five point values must add up to the overall score:
- relevance (0-30): does the answer address the question directly?
- accuracy (0-25): is the content factually correct?
- completeness (0-20): does it cover the essential points?
- usefulness (0-15): would the answer actually help the asker?
- expression (0-10): is it clear and well organized?`

const judgeOutputFormat = `Respond with ONLY a JSON object, no prose before or after:
{
  "score": <overall 0-100, the sum of the dimension points>,
  "success": <true if the answer is acceptable>,
  "reason": "<one or two sentences>",
  "dimensions": {
    "relevance": <0-30>,
    "accuracy": <0-25>,
    "completeness": <0-20>,
    "usefulness": <0-15>,
    "expression": <0-10>
  }
}`

var scenarioGuidance = map[string]string{
	testcase.ScenarioGeneral:   "This is a general conversational exchange. Weigh relevance and usefulness highest.",
	testcase.ScenarioKnowledge: "This is a factual knowledge question. Be strict about accuracy; factual errors should cap the score below 60.",
	testcase.ScenarioCreative:  "This is a creative request. Reward originality and expression; accuracy matters only where facts are stated.",
	testcase.ScenarioTechnical: "This is a technical question. Demand precise terminology and correct procedures; vague answers score poorly.",
}

// Scenarios lists the rubric variants in stable order.
func Scenarios() []string {
	names := make([]string, 0, len(scenarioGuidance))
	for name := range scenarioGuidance {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// buildJudgePrompt renders the rubric prompt for one case and answer.
func buildJudgePrompt(tc *testcase.TestCase, answer string) string {
	guidance, ok := scenarioGuidance[tc.Scenario]
	if !ok {
		guidance = scenarioGuidance[testcase.ScenarioGeneral]
	}

	var b strings.Builder
	b.WriteString("You are a strict evaluator of conversational AI answers.\n\n")
	b.WriteString(guidance)
	b.WriteString("\n\n")
	b.WriteString(rubricDimensions)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Question:\n%s\n\n", tc.Question)
	fmt.Fprintf(&b, "Answer under evaluation:\n%s\n\n", answer)
	if len(tc.ExpectedKeywords) > 0 {
		fmt.Fprintf(&b, "Key points the answer should touch on: %s\n\n", strings.Join(tc.ExpectedKeywords, ", "))
	}
	b.WriteString(judgeOutputFormat)
	return b.String()
}
