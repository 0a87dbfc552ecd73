package agents

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/recruiter-agency/internal/adzuna"
	"github.com/spigell/recruiter-agency/internal/ai"
)

var errUnavailable = &ai.GenerationError{Code: ai.CodeStatus, Status: 503, Detail: "unavailable"}

type stubGenerator struct {
	mu sync.Mutex
	// responses are returned in order; the last one repeats.
	responses []string
	err       error
	prompts   []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	if len(g.responses) == 0 {
		return "", nil
	}
	resp := g.responses[0]
	if len(g.responses) > 1 {
		g.responses = g.responses[1:]
	}
	return resp, nil
}

type searchCall struct {
	keywords string
	pageSize int
}

type stubSearcher struct {
	mu    sync.Mutex
	calls []searchCall
	// results keyed by joined keywords; missing keys return nil.
	results map[string][]adzuna.Posting
	// failures keyed by joined keywords.
	failures map[string]error
	// pageResults overrides results for a page size.
	pageResults map[int][]adzuna.Posting
}

func (s *stubSearcher) Search(_ context.Context, params adzuna.SearchParams) ([]adzuna.Posting, error) {
	key := strings.Join(params.Keywords, " ")

	s.mu.Lock()
	s.calls = append(s.calls, searchCall{keywords: key, pageSize: params.PageSize})
	s.mu.Unlock()

	if err := s.failures[key]; err != nil {
		return nil, err
	}
	if postings, ok := s.pageResults[params.PageSize]; ok {
		return postings, nil
	}
	return s.results[key], nil
}

func (s *stubSearcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func testDeps(gen ai.Generator) Deps {
	return Deps{Generator: gen, Logger: zap.NewNop()}
}

func fixClock(t *testing.T) time.Time {
	t.Helper()

	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	original := now
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = original })

	return fixed
}

var errSearch = errors.New("search backend down")

func contains(s, substr string) bool { return strings.Contains(s, substr) }
