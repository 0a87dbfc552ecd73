package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/recruiter-agency/internal/adzuna"
	"github.com/spigell/recruiter-agency/internal/agents"
	"github.com/spigell/recruiter-agency/internal/ai"
	"github.com/spigell/recruiter-agency/internal/profile"
	"github.com/spigell/recruiter-agency/internal/workflow"
)

type stubPipeline struct {
	input      profile.ResumeInput
	university string
	fileText   string
	err        error
}

func (p *stubPipeline) ProcessApplication(_ context.Context, input profile.ResumeInput, universityContext string) (*workflow.Context, error) {
	p.input = input
	p.university = universityContext
	if input.FilePath != "" {
		data, err := os.ReadFile(input.FilePath)
		if err != nil {
			return nil, err
		}
		p.fileText = string(data)
	}

	wc := &workflow.Context{ID: "run-1", Resume: input, Status: workflow.StatusCompleted, CurrentStage: workflow.StageRecommendation}
	if p.err != nil {
		wc.Status = workflow.StatusFailed
		wc.CurrentStage = workflow.StageAnalysis
		wc.Error = p.err.Error()
		return wc, p.err
	}
	return wc, nil
}

type stubCurriculum struct {
	got string
	err error
}

func (s *stubCurriculum) Analyze(_ context.Context, curriculum string) (profile.CurriculumAnalysis, error) {
	s.got = curriculum
	if strings.TrimSpace(curriculum) == "" {
		return profile.CurriculumAnalysis{}, agents.ErrEmptyCurriculum
	}
	if s.err != nil {
		return profile.CurriculumAnalysis{}, s.err
	}
	return profile.CurriculumAnalysis{FormattedOutput: "- Algorithms"}, nil
}

type stubJobs struct {
	params adzuna.SearchParams
	err    error
}

func (s *stubJobs) Search(_ context.Context, params adzuna.SearchParams) ([]adzuna.Posting, error) {
	s.params = params
	if s.err != nil {
		return nil, s.err
	}
	return []adzuna.Posting{{Title: "Go Developer"}}, nil
}

type fixture struct {
	pipeline   *stubPipeline
	curriculum *stubCurriculum
	jobs       *stubJobs
	router     *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{pipeline: &stubPipeline{}, curriculum: &stubCurriculum{}, jobs: &stubJobs{}}
	f.router = NewRouter(Deps{
		Pipeline:   f.pipeline,
		Curriculum: f.curriculum,
		Jobs:       f.jobs,
		Logger:     zap.NewNop(),
		UploadDir:  t.TempDir(),
	})
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	return resp
}

func multipartRequest(t *testing.T, target, field, fileName, content string, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestProcessApplicationWithFile(t *testing.T) {
	f := newFixture(t)

	req := multipartRequest(t, "/v1/applications", "resume", "cv.txt", "Jane Doe, Go", map[string]string{"university_context": "ML track"})
	resp := f.do(req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if f.pipeline.fileText != "Jane Doe, Go" || f.pipeline.university != "ML track" {
		t.Fatalf("unexpected pipeline input %#v", f.pipeline)
	}
	if !strings.HasSuffix(f.pipeline.input.FilePath, ".txt") {
		t.Fatalf("upload must keep its extension, got %q", f.pipeline.input.FilePath)
	}
	if _, err := os.Stat(f.pipeline.input.FilePath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("upload must be removed after processing, stat err %v", err)
	}

	var run workflow.Context
	if err := json.Unmarshal(resp.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.Status != workflow.StatusCompleted || resp.Header().Get(requestIDHeader) == "" {
		t.Fatalf("unexpected response %#v", run)
	}
}

func TestProcessApplicationWithText(t *testing.T) {
	f := newFixture(t)

	form := url.Values{"text": {"Plain resume"}}
	req := httptest.NewRequest(http.MethodPost, "/v1/applications", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if resp := f.do(req); resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if f.pipeline.input.Text != "Plain resume" {
		t.Fatalf("unexpected input %#v", f.pipeline.input)
	}
}

func TestProcessApplicationValidation(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/applications", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp := f.do(req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}

	var body ErrorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil || body.Error.Code != "validation_error" {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestProcessApplicationFailedRun(t *testing.T) {
	f := newFixture(t)
	f.pipeline.err = errors.New("analysis: boom")

	form := url.Values{"text": {"resume"}}
	req := httptest.NewRequest(http.MethodPost, "/v1/applications", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp := f.do(req)
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"current_stage":"analysis"`) {
		t.Fatalf("failed run must be returned in details: %s", resp.Body.String())
	}
}

func TestAnalyzeCurriculum(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/curriculum", strings.NewReader(`{"curriculum": "CS101"}`))
	req.Header.Set("Content-Type", "application/json")

	resp := f.do(req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"formatted_output":"- Algorithms"`) || f.curriculum.got != "CS101" {
		t.Fatalf("unexpected response %s", resp.Body.String())
	}
}

func TestAnalyzeCurriculumFromFile(t *testing.T) {
	f := newFixture(t)

	resp := f.do(multipartRequest(t, "/v1/curriculum", "file", "syllabus.txt", "Databases and SQL", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if f.curriculum.got != "Databases and SQL" {
		t.Fatalf("unexpected curriculum %q", f.curriculum.got)
	}
}

func TestAnalyzeCurriculumErrors(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/curriculum", strings.NewReader(`{"curriculum": " "}`))
	req.Header.Set("Content-Type", "application/json")
	if resp := f.do(req); resp.Code != http.StatusBadRequest {
		t.Fatalf("empty curriculum: unexpected status %d", resp.Code)
	}

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{
			name:   "generation failure",
			err:    fmt.Errorf("analyze curriculum: %w", &ai.GenerationError{Code: ai.CodeStatus, Status: http.StatusTooManyRequests}),
			status: http.StatusBadGateway,
		},
		{name: "unexpected failure", err: errors.New("broken"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		f.curriculum.err = tt.err
		req = httptest.NewRequest(http.MethodPost, "/v1/curriculum", strings.NewReader(`{"curriculum": "CS"}`))
		req.Header.Set("Content-Type", "application/json")
		if resp := f.do(req); resp.Code != tt.status {
			t.Fatalf("%s: got %d, want %d", tt.name, resp.Code, tt.status)
		}
	}
}

func TestOversizedUploads(t *testing.T) {
	f := newFixture(t)
	large := strings.Repeat("a", maxUploadSize+1)

	tests := []struct {
		name string
		req  *http.Request
	}{
		{name: "resume", req: multipartRequest(t, "/v1/applications", "resume", "cv.txt", large, nil)},
		{name: "curriculum", req: multipartRequest(t, "/v1/curriculum", "file", "syllabus.txt", large, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(tt.req)
			if resp.Code != http.StatusRequestEntityTooLarge {
				t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
			}

			var body ErrorResponse
			if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil || body.Error.Code != "payload_too_large" {
				t.Fatalf("unexpected body %s", resp.Body.String())
			}
		})
	}

	if f.pipeline.input != (profile.ResumeInput{}) || f.curriculum.got != "" {
		t.Fatal("oversized uploads must not reach the services")
	}
}

func TestSearchJobs(t *testing.T) {
	f := newFixture(t)

	resp := f.do(httptest.NewRequest(http.MethodGet, "/v1/jobs?what=go,+sql&where=Pune&results=5&page=2", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}

	want := adzuna.SearchParams{Keywords: []string{"go", "sql"}, Location: "Pune", PageSize: 5, Page: 2}
	got := f.jobs.params
	if strings.Join(got.Keywords, "|") != "go|sql" || got.Location != want.Location || got.PageSize != want.PageSize || got.Page != want.Page {
		t.Fatalf("got %#v, want %#v", got, want)
	}
	if !strings.Contains(resp.Body.String(), `"count":1`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestSearchJobsErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		target string
		status int
	}{
		{target: "/v1/jobs", status: http.StatusBadRequest},
		{target: "/v1/jobs?what=go&results=500", status: http.StatusBadRequest},
		{target: "/v1/jobs?what=go&page=zero", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		if resp := f.do(httptest.NewRequest(http.MethodGet, tt.target, nil)); resp.Code != tt.status {
			t.Fatalf("%s: got %d, want %d", tt.target, resp.Code, tt.status)
		}
	}

	f.jobs.err = &adzuna.SearchError{Status: http.StatusUnauthorized}
	if resp := f.do(httptest.NewRequest(http.MethodGet, "/v1/jobs?what=go", nil)); resp.Code != http.StatusBadGateway {
		t.Fatalf("search failure: unexpected status %d", resp.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestID(), recovery(zap.NewNop()))
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if resp.Code != http.StatusInternalServerError || !strings.Contains(resp.Body.String(), `"code":"internal"`) {
		t.Fatalf("unexpected response %d %s", resp.Code, resp.Body.String())
	}
}

func TestAddr(t *testing.T) {
	for in, want := range map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"} {
		if got := Addr(in); got != want {
			t.Fatalf("%q: got %q, want %q", in, got, want)
		}
	}
}
