package producer

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stellarlinkco/chat-eval/internal/retry"
)

func newTestCaller(t *testing.T, maxRetries int) *retry.Caller {
	t.Helper()
	// Zero interval keeps backoff and pacing out of the test clock.
	return retry.New(maxRetries, 5*time.Second, 0, log.New(testWriter{t}, "", 0))
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

func TestHTTPProducerProduce(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "echo: " + req.Message})
	}))
	defer srv.Close()

	p, err := NewHTTP(srv.URL, time.Second, newTestCaller(t, 0))
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}

	answer, retries, err := p.Produce(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if answer != "echo: hello" {
		t.Fatalf("answer = %q, want %q", answer, "echo: hello")
	}
	if retries != 0 {
		t.Fatalf("retries = %d, want 0", retries)
	}
}

func TestHTTPProducerMessageFallback(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"message": "from message field"})
	}))
	defer srv.Close()

	p, err := NewHTTP(srv.URL, time.Second, newTestCaller(t, 0))
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}

	answer, _, err := p.Produce(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if answer != "from message field" {
		t.Fatalf("answer = %q", answer)
	}
}

func TestHTTPProducerRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "finally"})
	}))
	defer srv.Close()

	p, err := NewHTTP(srv.URL, time.Second, newTestCaller(t, 3))
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}

	answer, retries, err := p.Produce(context.Background(), "q")
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if answer != "finally" {
		t.Fatalf("answer = %q", answer)
	}
	if retries != 2 {
		t.Fatalf("retries = %d, want 2", retries)
	}
}

func TestHTTPProducerErrorPayload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "model overloaded"})
	}))
	defer srv.Close()

	p, err := NewHTTP(srv.URL, time.Second, newTestCaller(t, 0))
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}

	_, _, err = p.Produce(context.Background(), "q")
	if err == nil {
		t.Fatal("expected error from error payload")
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Fatalf("error should carry the payload message, got %v", err)
	}
}

func TestHTTPProducerHealth(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p, err := NewHTTP(srv.URL, time.Second, newTestCaller(t, 0))
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	if err := p.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}

	bad, err := NewHTTP(srv.URL+"/nope", time.Second, newTestCaller(t, 0))
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	if err := bad.Health(context.Background()); err == nil {
		t.Fatal("Health should fail on non-200")
	}
}

func TestSubprocessProducer(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}

	// Echoes prompt markers and an answer line; the markers must be dropped.
	script := filepath.Join(t.TempDir(), "chat.sh")
	body := "#!/bin/sh\nprintf '> \\nThe answer is 42.\\n> \\n'\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	p, err := NewSubprocess("sh "+script, "", time.Second, newTestCaller(t, 0))
	if err != nil {
		t.Fatalf("NewSubprocess: %v", err)
	}

	answer, _, err := p.Produce(context.Background(), "what is the answer")
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if answer != "The answer is 42." {
		t.Fatalf("answer = %q", answer)
	}
}

func TestSubprocessProducerHealth(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}

	ok, err := NewSubprocess("sh", "", time.Second, newTestCaller(t, 0))
	if err != nil {
		t.Fatalf("NewSubprocess: %v", err)
	}
	if err := ok.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}

	missing, err := NewSubprocess("definitely-not-a-command-xyz", "", time.Second, newTestCaller(t, 0))
	if err != nil {
		t.Fatalf("NewSubprocess: %v", err)
	}
	if err := missing.Health(context.Background()); err == nil {
		t.Fatal("Health should fail for a missing command")
	}
}

func TestExtractAnswer(t *testing.T) {
	t.Parallel()

	in := "> \nfirst line\n\n>  trailing prompt\nsecond line\n"
	got := extractAnswer(in)
	want := "first line\nsecond line"
	if got != want {
		t.Fatalf("extractAnswer = %q, want %q", got, want)
	}
}
