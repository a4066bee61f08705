package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stellarlinkco/chat-eval/internal/config"
)

func TestParseJSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		Score  int    `json:"score"`
		Reason string `json:"reason"`
	}

	cases := []struct {
		name string
		raw  string
		want payload
	}{
		{
			name: "plain object",
			raw:  `{"score": 85, "reason": "good"}`,
			want: payload{Score: 85, Reason: "good"},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"score\": 70, \"reason\": \"ok\"}\n```",
			want: payload{Score: 70, Reason: "ok"},
		},
		{
			name: "fenced without language",
			raw:  "```\n{\"score\": 60, \"reason\": \"meh\"}\n```",
			want: payload{Score: 60, Reason: "meh"},
		},
		{
			name: "surrounding prose",
			raw:  "Here is my verdict:\n{\"score\": 92, \"reason\": \"solid\"}\nThanks.",
			want: payload{Score: 92, Reason: "solid"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var got payload
			if err := ParseJSON(tc.raw, &got); err != nil {
				t.Fatalf("ParseJSON(%q) error: %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("ParseJSON(%q) = %+v, want %+v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestParseJSONErrors(t *testing.T) {
	t.Parallel()

	var out map[string]any
	if err := ParseJSON("", &out); err == nil {
		t.Fatal("expected error for empty input")
	}
	if err := ParseJSON("no json here", &out); err == nil {
		t.Fatal("expected error for input without an object")
	}
	if err := ParseJSON("} {", &out); err == nil {
		t.Fatal("expected error for reversed braces")
	}
}

type fakeProvider struct {
	name string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	return nil, errors.New("not implemented")
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&fakeProvider{name: "DeepSeek"})

	if _, ok := r.Get("missing"); ok {
		t.Fatal("Get(missing) should report absence")
	}

	p, ok := r.Get("deepseek")
	if !ok {
		t.Fatal("Get(deepseek) failed after Register")
	}
	if p.Name() != "DeepSeek" {
		t.Fatalf("provider name = %q, want DeepSeek", p.Name())
	}

	// Lookup is case-insensitive both ways.
	if _, ok := r.Get("  DEEPSEEK "); !ok {
		t.Fatal("Get should trim and lowercase the name")
	}
}

func TestNewRegistryFromConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.LLM.Providers = map[string]config.ProviderConfig{
		"deepseek": {APIKey: "sk-a"},
		"openai":   {APIKey: "sk-b", Model: "gpt-4o-mini"},
		"claude":   {APIKey: "sk-c"},
	}

	reg, err := NewRegistryFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewRegistryFromConfig: %v", err)
	}
	for _, name := range []string{"deepseek", "openai", "claude"} {
		if _, ok := reg.Get(name); !ok {
			t.Fatalf("provider %q not registered", name)
		}
	}
}

func TestNewRegistryFromConfigUnknownProvider(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.LLM.Providers = map[string]config.ProviderConfig{
		"grok": {APIKey: "sk-x"},
	}

	if _, err := NewRegistryFromConfig(cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestDefaultProviderFromConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.LLM.DefaultProvider = "openai"
	cfg.LLM.Providers = map[string]config.ProviderConfig{
		"openai": {APIKey: "sk-b"},
	}

	p, err := DefaultProviderFromConfig(cfg)
	if err != nil {
		t.Fatalf("DefaultProviderFromConfig: %v", err)
	}
	if p.Name() != "openai" {
		t.Fatalf("default provider = %q, want openai", p.Name())
	}
}

func TestDefaultProviderFallsBackToOnlyProvider(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.LLM.DefaultProvider = "deepseek"
	cfg.LLM.Providers = map[string]config.ProviderConfig{
		"claude": {APIKey: "sk-c"},
	}

	p, err := DefaultProviderFromConfig(cfg)
	if err != nil {
		t.Fatalf("DefaultProviderFromConfig: %v", err)
	}
	if p.Name() != "claude" {
		t.Fatalf("fallback provider = %q, want claude", p.Name())
	}
}

func TestDefaultProviderMissing(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.LLM.DefaultProvider = "deepseek"
	cfg.LLM.Providers = map[string]config.ProviderConfig{
		"openai": {APIKey: "sk-b"},
		"claude": {APIKey: "sk-c"},
	}

	_, err := DefaultProviderFromConfig(cfg)
	if err == nil {
		t.Fatal("expected error when default provider is absent")
	}
	if !strings.Contains(err.Error(), "deepseek") {
		t.Fatalf("error should name the missing provider, got %v", err)
	}
}

func TestNormalizeRole(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"user":      "user",
		"Assistant": "assistant",
		"SYSTEM":    "system",
		"":          "user",
		"tool":      "user",
	}
	for in, want := range cases {
		if got := normalizeRole(in); got != want {
			t.Fatalf("normalizeRole(%q) = %q, want %q", in, got, want)
		}
	}
}
