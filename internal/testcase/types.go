package testcase

// Priority levels accepted for a test case.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Scenario names accepted for a test case. The scenario selects the judge
// rubric variant; keyword scoring ignores it.
const (
	ScenarioGeneral   = "general"
	ScenarioKnowledge = "knowledge"
	ScenarioCreative  = "creative"
	ScenarioTechnical = "technical"
)

// TestCase defines a single evaluation case. Cases are loaded once from a
// file, defaulted, and never mutated afterwards.
type TestCase struct {
	ID               string   `json:"id"`
	Question         string   `json:"question"`
	Category         string   `json:"category,omitempty"`
	Priority         string   `json:"priority,omitempty"`
	Scenario         string   `json:"scenario,omitempty"`
	ExpectedKeywords []string `json:"expected_keywords,omitempty"`
}

// KnownPriority reports whether p is a recognized priority level.
func KnownPriority(p string) bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// KnownScenario reports whether s is a recognized scenario name.
func KnownScenario(s string) bool {
	switch s {
	case ScenarioGeneral, ScenarioKnowledge, ScenarioCreative, ScenarioTechnical:
		return true
	default:
		return false
	}
}
