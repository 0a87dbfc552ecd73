package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/recruiter-agency/internal/ai"
)

func newTestGenerator(t *testing.T, url string, attempts int) *Generator {
	t.Helper()

	originalSleep := sleep
	sleep = func(time.Duration) {}
	t.Cleanup(func() { sleep = originalSleep })

	g, err := New(url, time.Second, ai.RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond}, zap.NewNop())
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	return g
}

func TestGenerateSendsPromptAndInstructions(t *testing.T) {
	var got request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"result": "  generated  "})
	}))
	defer server.Close()

	g := newTestGenerator(t, server.URL, 1)

	text, err := g.Generate(context.Background(), "Tell me", "Be brief")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "generated" {
		t.Fatalf("unexpected text %q", text)
	}
	if got.Prompt != "Tell me" {
		t.Fatalf("instructions must not be folded into the prompt, got %q", got.Prompt)
	}
	if got.Instructions != "Be brief" {
		t.Fatalf("unexpected instructions %q", got.Instructions)
	}
}

func TestGenerateRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"result": "ok"})
	}))
	defer server.Close()

	g := newTestGenerator(t, server.URL, 3)

	text, err := g.Generate(context.Background(), "prompt", "")
	if err != nil || text != "ok" {
		t.Fatalf("expected ok after retry, got %q (%v)", text, err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestGenerateMapsProxyErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": 400, "details": "bad key"})
	}))
	defer server.Close()

	g := newTestGenerator(t, server.URL, 3)

	_, err := g.Generate(context.Background(), "prompt", "")

	var genErr *ai.GenerationError
	if !errors.As(err, &genErr) || genErr.Code != ai.CodeStatus {
		t.Fatalf("expected status error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("proxy level errors must not be retried, got %d calls", calls.Load())
	}
}

func TestGenerateEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"result": ""})
	}))
	defer server.Close()

	g := newTestGenerator(t, server.URL, 2)

	_, err := g.Generate(context.Background(), "prompt", "")

	var genErr *ai.GenerationError
	if !errors.As(err, &genErr) || genErr.Code != ai.CodeEmptyResponse {
		t.Fatalf("expected empty response error, got %v", err)
	}
}

func TestNewRequiresURL(t *testing.T) {
	if _, err := New("  ", 0, ai.RetryPolicy{}, nil); err == nil {
		t.Fatal("expected error for empty url")
	}
}
