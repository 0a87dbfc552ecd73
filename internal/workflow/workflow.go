// Package workflow drives the candidate pipeline: extraction, analysis,
// matching, screening and recommendation, strictly in that order.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/recruiter-agency/internal/logger"
	"github.com/spigell/recruiter-agency/internal/profile"
)

type Extractor interface {
	Extract(ctx context.Context, input profile.ResumeInput, curriculum string) (profile.ExtractedResume, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, extracted *profile.ExtractedResume, curriculum string) (profile.AnalysisResult, error)
}

type Matcher interface {
	Match(ctx context.Context, analysis *profile.AnalysisResult) (profile.MatchResult, error)
}

type Screener interface {
	Screen(ctx context.Context, snapshot *profile.Snapshot) (profile.ScreeningResult, error)
}

type Recommender interface {
	Recommend(ctx context.Context, snapshot *profile.Snapshot) (profile.RecommendationResult, error)
}

// Agents aggregates the stage implementations.
type Agents struct {
	Extractor   Extractor
	Analyzer    Analyzer
	Matcher     Matcher
	Screener    Screener
	Recommender Recommender
}

type Orchestrator struct {
	agents Agents
	logger *zap.Logger
	newID  func() string
	now    func() time.Time
}

func New(agents Agents, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		agents: agents,
		logger: logger.OrNop(log),
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

type step struct {
	stage Stage
	run   func(ctx context.Context, wc *Context) error
}

func (o *Orchestrator) steps() []step {
	return []step{
		{StageExtraction, func(ctx context.Context, wc *Context) error {
			r, err := o.agents.Extractor.Extract(ctx, wc.Resume, wc.UniversityContext)
			if err != nil {
				return err
			}
			return wc.setExtracted(r)
		}},
		{StageAnalysis, func(ctx context.Context, wc *Context) error {
			r, err := o.agents.Analyzer.Analyze(ctx, wc.ExtractedData, wc.UniversityContext)
			if err != nil {
				return err
			}
			return wc.setAnalysis(r)
		}},
		{StageMatching, func(ctx context.Context, wc *Context) error {
			r, err := o.agents.Matcher.Match(ctx, wc.AnalysisResults)
			if err != nil {
				return err
			}
			return wc.setMatches(r)
		}},
		{StageScreening, func(ctx context.Context, wc *Context) error {
			r, err := o.agents.Screener.Screen(ctx, wc.Snapshot())
			if err != nil {
				return err
			}
			return wc.setScreening(r)
		}},
		{StageRecommendation, func(ctx context.Context, wc *Context) error {
			r, err := o.agents.Recommender.Recommend(ctx, wc.Snapshot())
			if err != nil {
				return err
			}
			return wc.setRecommendation(r)
		}},
	}
}

// ProcessApplication runs the whole pipeline for one resume. The returned
// context is never nil. When a stage fails the context is marked failed at
// that stage, no later stage runs and the error is returned as well.
func (o *Orchestrator) ProcessApplication(ctx context.Context, input profile.ResumeInput, universityContext string) (*Context, error) {
	wc := newContext(o.newID(), input, universityContext)
	runLogger := logger.WithFields(o.logger, logger.StageFields(wc.ID, "")...)

	if err := wc.start(o.now()); err != nil {
		return wc, err
	}
	runLogger.Info("application processing started")

	for _, s := range o.steps() {
		if err := wc.enter(s.stage); err != nil {
			return wc, err
		}

		log := logger.WithFields(o.logger, logger.StageFields(wc.ID, string(s.stage))...)
		started := o.now()

		if err := runStep(ctx, s, wc); err != nil {
			_ = wc.fail(err, o.now())
			log.Error("stage failed", zap.Duration("duration", o.now().Sub(started)), zap.Error(err))
			return wc, fmt.Errorf("%s: %w", s.stage, err)
		}

		log.Info("stage finished", zap.Duration("duration", o.now().Sub(started)))
	}

	if err := wc.complete(o.now()); err != nil {
		return wc, err
	}
	runLogger.Info("application processing completed", zap.Duration("duration", wc.FinishedAt.Sub(wc.StartedAt)))

	return wc, nil
}

// runStep turns panics and cancellation into errors.
func runStep(ctx context.Context, s step, wc *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s stage: %v", s.stage, r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	return s.run(ctx, wc)
}
