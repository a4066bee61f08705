package testcase

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Sentinel errors for the load-time failure taxonomy. All of them abort a
// run before any case executes.
var (
	ErrNotFound = errors.New("testcase: file not found")
	ErrParse    = errors.New("testcase: malformed file")
	ErrFormat   = errors.New("testcase: unexpected file shape")
)

// ValidationError reports an invalid case in the input file.
type ValidationError struct {
	Index int
	ID    string
	Field string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "testcase: validation error <nil>"
	}
	if e.ID != "" {
		return fmt.Sprintf("testcase: cases[%d] (%s): missing %s", e.Index, e.ID, e.Field)
	}
	return fmt.Sprintf("testcase: cases[%d]: missing %s", e.Index, e.Field)
}

// rawCase accepts both field spellings the file format allows.
type rawCase struct {
	ID               string   `json:"id"`
	Question         string   `json:"question"`
	Prompt           string   `json:"prompt"`
	Category         string   `json:"category"`
	Priority         string   `json:"priority"`
	Scenario         string   `json:"scenario"`
	ExpectedKeywords []string `json:"expected_keywords"`
	ExpectedAspects  []string `json:"expected_aspects"`
}

// LoadFromFile loads test cases from a JSON file. The file holds either a
// bare list of case objects or an object with a "test_cases" list field.
// Missing optional fields are defaulted; a missing question fails the load.
func LoadFromFile(path string) ([]TestCase, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
		}
		return nil, fmt.Errorf("testcase: read %q: %w", path, err)
	}

	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrParse, path, err)
	}

	var raws []rawCase
	switch doc.(type) {
	case []any:
		if err := json.Unmarshal(b, &raws); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrParse, path, err)
		}
	case map[string]any:
		var wrapper struct {
			TestCases *[]rawCase `json:"test_cases"`
		}
		if err := json.Unmarshal(b, &wrapper); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrParse, path, err)
		}
		if wrapper.TestCases == nil {
			return nil, fmt.Errorf("%w: %q: expected a list or a \"test_cases\" field", ErrFormat, path)
		}
		raws = *wrapper.TestCases
	default:
		return nil, fmt.Errorf("%w: %q: expected a list or a \"test_cases\" field", ErrFormat, path)
	}

	out := make([]TestCase, 0, len(raws))
	for i, r := range raws {
		tc, err := normalize(i, r)
		if err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, nil
}

func normalize(index int, r rawCase) (TestCase, error) {
	question := strings.TrimSpace(r.Question)
	if question == "" {
		question = strings.TrimSpace(r.Prompt)
	}
	if question == "" {
		return TestCase{}, &ValidationError{Index: index, ID: strings.TrimSpace(r.ID), Field: "question"}
	}

	tc := TestCase{
		ID:       strings.TrimSpace(r.ID),
		Question: question,
		Category: strings.TrimSpace(r.Category),
		Priority: strings.TrimSpace(r.Priority),
		Scenario: strings.TrimSpace(r.Scenario),
	}
	if tc.ID == "" {
		tc.ID = fmt.Sprintf("test_%d", index+1)
	}
	if tc.Category == "" {
		tc.Category = "general"
	}
	if tc.Priority == "" {
		tc.Priority = PriorityMedium
	}
	if tc.Scenario == "" {
		tc.Scenario = ScenarioGeneral
	}

	keywords := r.ExpectedKeywords
	if len(keywords) == 0 {
		keywords = r.ExpectedAspects
	}
	tc.ExpectedKeywords = make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		tc.ExpectedKeywords = append(tc.ExpectedKeywords, k)
	}

	return tc, nil
}
