// Package agents implements the pipeline stages. Each agent owns a fixed
// instruction set, builds its prompt from typed input and normalizes the
// generated answer into a profile record.
package agents

import (
	"context"
	"embed"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/recruiter-agency/internal/adzuna"
	"github.com/spigell/recruiter-agency/internal/ai"
	"github.com/spigell/recruiter-agency/internal/logger"
	"github.com/spigell/recruiter-agency/internal/utils"
)

//go:embed prompts
var prompts embed.FS

const defaultMaxLogLength = 200

// now is swapped in tests.
var now = time.Now

// Searcher runs a job search.
type Searcher interface {
	Search(ctx context.Context, params adzuna.SearchParams) ([]adzuna.Posting, error)
}

// Deps are shared by every agent.
type Deps struct {
	Generator    ai.Generator
	Logger       *zap.Logger
	MaxLogLength int
}

type agent struct {
	name         string
	instructions string
	generator    ai.Generator
	logger       *zap.Logger
	maxLogLen    int
}

func newAgent(name, instructions string, deps Deps) agent {
	maxLogLen := deps.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return agent{
		name:         name,
		instructions: instructions,
		generator:    deps.Generator,
		logger:       logger.ForAgent(deps.Logger, name),
		maxLogLen:    maxLogLen,
	}
}

func (a *agent) generate(ctx context.Context, prompt string) (string, error) {
	a.logger.Debug("generate request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, a.maxLogLen)),
	)

	raw, err := a.generator.Generate(ctx, prompt, a.instructions)
	if err != nil {
		return "", err
	}

	a.logger.Debug("generate response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, a.maxLogLen)),
	)

	return raw, nil
}

func template(name string) string {
	data, err := prompts.ReadFile("prompts/" + name)
	if err != nil {
		panic("missing embedded prompt " + name)
	}
	return string(data)
}

func render(tmpl string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// optionalSection renders a titled block, or nothing for empty content.
func optionalSection(title, content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	return "\n" + title + ":\n" + content + "\n"
}

// toJSON renders v for embedding in a prompt. Map keys are sorted by
// encoding/json so the output is stable.
func toJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
