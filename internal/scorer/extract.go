package scorer

import (
	"regexp"
	"strconv"
)

// fallbackScore is used when no score can be recovered from judge output.
const fallbackScore = 75

// scorePatterns are tried in order against malformed judge output. The first
// capture that parses wins.
var scorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`"score"\s*:\s*(\d+)`),
	regexp.MustCompile(`分数[：:]\s*(\d+)`),
	regexp.MustCompile(`得分[：:]\s*(\d+)`),
	regexp.MustCompile(`(\d+)\s*分`),
	regexp.MustCompile(`(\d+)\s*/\s*100`),
	regexp.MustCompile(`(\d+)\s*%`),
}

// extractScore pulls a plausible 0..100 score out of free-form judge text.
// The second return is false when no pattern matched and the neutral
// fallback was used.
func extractScore(raw string) (float64, bool) {
	for _, re := range scorePatterns {
		m := re.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 0 || n > 100 {
			continue
		}
		return float64(n), true
	}
	return fallbackScore, false
}
