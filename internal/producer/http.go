package producer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stellarlinkco/chat-eval/internal/retry"
)

// HTTPProducer talks to a chat endpoint exposing POST /chat and GET /health.
type HTTPProducer struct {
	baseURL string
	client  *http.Client
	caller  *retry.Caller
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
	Message  string `json:"message"`
	Error    string `json:"error"`
}

func NewHTTP(baseURL string, timeout time.Duration, caller *retry.Caller) (*HTTPProducer, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("producer: empty base URL")
	}
	if caller == nil {
		return nil, errors.New("producer: nil retry caller")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPProducer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		caller:  caller,
	}, nil
}

func (p *HTTPProducer) Name() string {
	return "http"
}

func (p *HTTPProducer) Produce(ctx context.Context, question string) (string, int, error) {
	if p == nil {
		return "", 0, errors.New("producer: nil producer")
	}
	return p.caller.Call(ctx, "chat", func(ctx context.Context) (string, error) {
		return p.post(ctx, question)
	})
}

func (p *HTTPProducer) post(ctx context.Context, question string) (string, error) {
	body, err := json.Marshal(chatRequest{Message: question})
	if err != nil {
		return "", fmt.Errorf("producer: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("producer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("producer: post /chat: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("producer: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("producer: /chat returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("producer: decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("producer: /chat error: %s", out.Error)
	}

	answer := strings.TrimSpace(out.Response)
	if answer == "" {
		answer = strings.TrimSpace(out.Message)
	}
	return answer, nil
}

func (p *HTTPProducer) Health(ctx context.Context) error {
	if p == nil {
		return errors.New("producer: nil producer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("producer: build health request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("producer: get /health: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("producer: /health returned %d", resp.StatusCode)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
