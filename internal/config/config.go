package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

// Config holds all settings for a run. Loaded once at startup and passed
// into component constructors; read-only afterwards.
type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Request    RequestConfig    `yaml:"request"`
	Chat       ChatConfig       `yaml:"chat"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`
}

// LLMConfig selects and configures judge backends.
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider,omitempty"`
	Providers       map[string]ProviderConfig `yaml:"providers,omitempty"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

// RequestConfig is the retry/backoff/pacing policy applied to remote calls.
type RequestConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
	Interval   time.Duration `yaml:"interval,omitempty"`
}

// ChatConfig points at the response producer under evaluation: either a
// local HTTP chat endpoint or a spawned interactive command.
type ChatConfig struct {
	URL     string        `yaml:"url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
	Command string        `yaml:"command,omitempty"` // subprocess mode when set
	Dir     string        `yaml:"dir,omitempty"`     // working dir for the subprocess
}

type EvaluationConfig struct {
	Scorer           string        `yaml:"scorer,omitempty"` // "keyword" or "judge"
	SuccessThreshold float64       `yaml:"success_threshold,omitempty"`
	PassScore        int           `yaml:"pass_score,omitempty"` // judge score counted as success
	MaxRetries       int           `yaml:"max_retries,omitempty"`
	Timeout          time.Duration `yaml:"timeout,omitempty"` // per producer attempt
	ResultsDir       string        `yaml:"results_dir,omitempty"`
}

type StorageConfig struct {
	Type string `yaml:"type,omitempty"` // "sqlite" or "memory"
	Path string `yaml:"path,omitempty"` // SQLite file path
}

// ServerConfig configures the local chat endpoint served by `chateval serve`.
type ServerConfig struct {
	Addr             string `yaml:"addr,omitempty"`
	SystemPromptFile string `yaml:"system_prompt_file,omitempty"`
}

func Load(path string) (*Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a usable configuration without a config file, so keyword
// runs against a local endpoint work out of the box.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	applyEnv(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.LLM.Providers == nil {
		cfg.LLM.Providers = make(map[string]ProviderConfig)
	}
	if strings.TrimSpace(cfg.LLM.DefaultProvider) == "" {
		cfg.LLM.DefaultProvider = "deepseek"
	}

	if cfg.Request.MaxRetries <= 0 {
		cfg.Request.MaxRetries = 3
	}
	if cfg.Request.Timeout <= 0 {
		cfg.Request.Timeout = 30 * time.Second
	}
	if cfg.Request.Interval <= 0 {
		cfg.Request.Interval = time.Second
	}

	if strings.TrimSpace(cfg.Chat.URL) == "" {
		cfg.Chat.URL = "http://localhost:8000"
	}
	if cfg.Chat.Timeout <= 0 {
		cfg.Chat.Timeout = 15 * time.Second
	}

	if strings.TrimSpace(cfg.Evaluation.Scorer) == "" {
		cfg.Evaluation.Scorer = "keyword"
	}
	if cfg.Evaluation.SuccessThreshold <= 0 {
		cfg.Evaluation.SuccessThreshold = 0.8
	}
	if cfg.Evaluation.PassScore <= 0 {
		cfg.Evaluation.PassScore = 60
	}
	if cfg.Evaluation.MaxRetries <= 0 {
		cfg.Evaluation.MaxRetries = 3
	}
	if cfg.Evaluation.Timeout <= 0 {
		cfg.Evaluation.Timeout = cfg.Chat.Timeout
	}
	if strings.TrimSpace(cfg.Evaluation.ResultsDir) == "" {
		cfg.Evaluation.ResultsDir = "results"
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = ":8000"
	}
	if strings.TrimSpace(cfg.Server.SystemPromptFile) == "" {
		cfg.Server.SystemPromptFile = "systemprompt.md"
	}
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("DEEPSEEK_API_KEY")); v != "" {
		p := cfg.LLM.Providers["deepseek"]
		p.APIKey = v
		cfg.LLM.Providers["deepseek"] = p
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		p := cfg.LLM.Providers["openai"]
		p.APIKey = v
		cfg.LLM.Providers["openai"] = p
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" {
		p := cfg.LLM.Providers["claude"]
		p.APIKey = v
		cfg.LLM.Providers["claude"] = p
	}
}

// Validate checks cross-field consistency once at startup.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Evaluation.Scorer)) {
	case "keyword", "judge":
	default:
		return fmt.Errorf("config: unknown scorer %q (expected keyword or judge)", cfg.Evaluation.Scorer)
	}
	if cfg.Evaluation.SuccessThreshold < 0 || cfg.Evaluation.SuccessThreshold > 1 {
		return fmt.Errorf("config: success_threshold must be between 0 and 1 (got %v)", cfg.Evaluation.SuccessThreshold)
	}
	if cfg.Evaluation.PassScore < 0 || cfg.Evaluation.PassScore > 100 {
		return fmt.Errorf("config: pass_score must be between 0 and 100 (got %d)", cfg.Evaluation.PassScore)
	}
	return nil
}
