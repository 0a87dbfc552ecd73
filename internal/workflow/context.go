package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/spigell/recruiter-agency/internal/profile"
)

type Status string

const (
	StatusInitiated  Status = "initiated"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

type Stage string

const (
	StageExtraction     Stage = "extraction"
	StageAnalysis       Stage = "analysis"
	StageMatching       Stage = "matching"
	StageScreening      Stage = "screening"
	StageRecommendation Stage = "recommendation"
)

// Stages lists the pipeline stages in execution order.
var Stages = []Stage{StageExtraction, StageAnalysis, StageMatching, StageScreening, StageRecommendation}

var (
	// ErrTerminal is returned when a completed or failed context is modified.
	ErrTerminal = errors.New("workflow context is terminal")
	// ErrStageOrder is returned for out of order stage transitions.
	ErrStageOrder = errors.New("invalid stage transition")
)

// Context accumulates the results of one run. Fields for stages after
// CurrentStage are always nil. Once Status is completed or failed the
// context no longer changes.
type Context struct {
	ID                  string                        `json:"id" yaml:"id"`
	Resume              profile.ResumeInput           `json:"resume_data" yaml:"resume_data"`
	UniversityContext   string                        `json:"university_context,omitempty" yaml:"university_context,omitempty"`
	Status              Status                        `json:"status" yaml:"status"`
	CurrentStage        Stage                         `json:"current_stage" yaml:"current_stage"`
	ExtractedData       *profile.ExtractedResume      `json:"extracted_data,omitempty" yaml:"extracted_data,omitempty"`
	AnalysisResults     *profile.AnalysisResult       `json:"analysis_results,omitempty" yaml:"analysis_results,omitempty"`
	JobMatches          *profile.MatchResult          `json:"job_matches,omitempty" yaml:"job_matches,omitempty"`
	ScreeningResults    *profile.ScreeningResult      `json:"screening_results,omitempty" yaml:"screening_results,omitempty"`
	FinalRecommendation *profile.RecommendationResult `json:"final_recommendation,omitempty" yaml:"final_recommendation,omitempty"`
	Error               string                        `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt           time.Time                     `json:"started_at" yaml:"started_at"`
	FinishedAt          time.Time                     `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

func newContext(id string, input profile.ResumeInput, universityContext string) *Context {
	return &Context{
		ID:                id,
		Resume:            input,
		UniversityContext: universityContext,
		Status:            StatusInitiated,
		CurrentStage:      StageExtraction,
	}
}

// Terminal reports whether the run has finished.
func (c *Context) Terminal() bool {
	return c.Status == StatusCompleted || c.Status == StatusFailed
}

// Snapshot returns a deep copy of the results collected so far. Changes to
// the snapshot never reach the context.
func (c *Context) Snapshot() *profile.Snapshot {
	s := &profile.Snapshot{
		Resume:            c.Resume,
		UniversityContext: c.UniversityContext,
	}
	if c.ExtractedData != nil {
		v := c.ExtractedData.Clone()
		s.ExtractedData = &v
	}
	if c.AnalysisResults != nil {
		v := c.AnalysisResults.Clone()
		s.AnalysisResults = &v
	}
	if c.JobMatches != nil {
		v := c.JobMatches.Clone()
		s.JobMatches = &v
	}
	if c.ScreeningResults != nil {
		v := *c.ScreeningResults
		s.ScreeningResults = &v
	}
	return s
}

func (c *Context) start(at time.Time) error {
	if c.Terminal() {
		return ErrTerminal
	}
	if c.Status != StatusInitiated {
		return fmt.Errorf("%w: run already started", ErrStageOrder)
	}
	c.Status = StatusInProgress
	c.StartedAt = at
	return nil
}

// enter moves CurrentStage forward to stage.
func (c *Context) enter(stage Stage) error {
	if c.Terminal() {
		return ErrTerminal
	}
	if c.Status != StatusInProgress {
		return fmt.Errorf("%w: run is %s", ErrStageOrder, c.Status)
	}
	if stageIndex(stage) < stageIndex(c.CurrentStage) {
		return fmt.Errorf("%w: %s after %s", ErrStageOrder, stage, c.CurrentStage)
	}
	c.CurrentStage = stage
	return nil
}

func (c *Context) attach(stage Stage, set func()) error {
	if c.Terminal() {
		return ErrTerminal
	}
	if stage != c.CurrentStage {
		return fmt.Errorf("%w: %s result while at %s", ErrStageOrder, stage, c.CurrentStage)
	}
	set()
	return nil
}

func (c *Context) setExtracted(r profile.ExtractedResume) error {
	return c.attach(StageExtraction, func() { c.ExtractedData = &r })
}

func (c *Context) setAnalysis(r profile.AnalysisResult) error {
	return c.attach(StageAnalysis, func() { c.AnalysisResults = &r })
}

func (c *Context) setMatches(r profile.MatchResult) error {
	return c.attach(StageMatching, func() { c.JobMatches = &r })
}

func (c *Context) setScreening(r profile.ScreeningResult) error {
	return c.attach(StageScreening, func() { c.ScreeningResults = &r })
}

func (c *Context) setRecommendation(r profile.RecommendationResult) error {
	return c.attach(StageRecommendation, func() { c.FinalRecommendation = &r })
}

func (c *Context) complete(at time.Time) error {
	if c.Terminal() {
		return ErrTerminal
	}
	c.Status = StatusCompleted
	c.FinishedAt = at
	return nil
}

func (c *Context) fail(err error, at time.Time) error {
	if c.Terminal() {
		return ErrTerminal
	}
	c.Status = StatusFailed
	c.Error = err.Error()
	c.FinishedAt = at
	return nil
}

func stageIndex(stage Stage) int {
	for i, s := range Stages {
		if s == stage {
			return i
		}
	}
	return -1
}
