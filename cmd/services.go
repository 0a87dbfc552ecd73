package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/recruiter-agency/internal/adzuna"
	"github.com/spigell/recruiter-agency/internal/agents"
	"github.com/spigell/recruiter-agency/internal/ai"
	"github.com/spigell/recruiter-agency/internal/ai/gemini"
	"github.com/spigell/recruiter-agency/internal/ai/proxy"
	"github.com/spigell/recruiter-agency/internal/document"
	"github.com/spigell/recruiter-agency/internal/parser"
	"github.com/spigell/recruiter-agency/internal/secrets"
	"github.com/spigell/recruiter-agency/internal/workflow"

	"go.uber.org/zap"
)

// services holds everything built from the config once per process.
type services struct {
	jobs         *adzuna.Client
	university   *agents.University
	enhancer     *agents.Enhancer
	orchestrator *workflow.Orchestrator
}

func newServices(ctx context.Context, config *Config, logger *zap.Logger) (*services, error) {
	jobs, err := newJobSearch(config.Adzuna, logger)
	if err != nil {
		return nil, err
	}

	generator, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		return nil, fmt.Errorf("building ai generator: %w", err)
	}

	deps := agents.Deps{
		Generator:    generator,
		Logger:       logger,
		MaxLogLength: config.AI.MaxLogLength,
	}

	analysisParser, err := newAnalysisParser(config.AI)
	if err != nil {
		return nil, err
	}

	orchestrator := workflow.New(workflow.Agents{
		Extractor:   agents.NewExtractor(deps, document.FileExtractor{}),
		Analyzer:    agents.NewAnalyzer(deps, analysisParser),
		Matcher:     agents.NewMatcher(deps, jobs, config.Matcher.Parallelism),
		Screener:    agents.NewScreener(deps),
		Recommender: agents.NewRecommender(deps),
	}, logger)

	return &services{
		jobs:         jobs,
		university:   agents.NewUniversity(deps),
		enhancer:     agents.NewEnhancer(deps),
		orchestrator: orchestrator,
	}, nil
}

func newAnalysisParser(cfg *AIConfig) (parser.Parser, error) {
	if !cfg.StrictParsing {
		return parser.Default, nil
	}

	p, err := agents.NewAnalysisSchemaParser()
	if err != nil {
		return nil, fmt.Errorf("building analysis schema parser: %w", err)
	}
	return p, nil
}

func newGenerator(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Generator, error) {
	retry := ai.RetryPolicy{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
	}

	switch provider := strings.TrimSpace(strings.ToLower(cfg.Provider)); provider {
	case "", gemini.Provider:
		if cfg.Gemini == nil {
			cfg.Gemini = &GeminiConfig{}
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.Gemini.APIKey,
			Env:   "GEMINI_API_KEY",
			File:  cfg.Gemini.APIKeyFile,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
		}

		generator, err := gemini.NewGenerator(ctx, gemini.Options{
			APIKey:       apiKey,
			Model:        cfg.Gemini.Model,
			Retry:        retry,
			Timeout:      cfg.Timeout,
			Temperature:  cfg.Gemini.Temperature,
			MaxLogLength: cfg.MaxLogLength,
		}, logger)
		if err != nil {
			return nil, err
		}
		return generator, nil
	case proxy.Provider:
		if cfg.Proxy == nil {
			return nil, fmt.Errorf("ai.proxy section is required for the proxy provider")
		}
		generator, err := proxy.New(cfg.Proxy.URL, cfg.Timeout, retry, logger)
		if err != nil {
			return nil, err
		}
		return generator, nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

func newJobSearch(cfg *AdzunaConfig, logger *zap.Logger) (*adzuna.Client, error) {
	appID, err := secrets.Load(secrets.Source{
		Name:  "adzuna app id",
		Value: cfg.AppID,
		Env:   "ADZUNA_APP_ID",
		File:  cfg.AppIDFile,
	})
	if err != nil {
		return nil, err
	}

	appKey, err := secrets.Load(secrets.Source{
		Name:  "adzuna app key",
		Value: cfg.AppKey,
		Env:   "ADZUNA_APP_KEY",
		File:  cfg.AppKeyFile,
	})
	if err != nil {
		return nil, err
	}

	return adzuna.New(logger.With(zap.String("service", "adzuna")), adzuna.Options{
		AppID:    appID,
		AppKey:   appKey,
		APIURL:   cfg.APIURL,
		Country:  cfg.Country,
		Location: cfg.Location,
		Timeout:  cfg.Timeout,
	}), nil
}
