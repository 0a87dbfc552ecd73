package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/recruiter-agency/internal/ai"
	"github.com/spigell/recruiter-agency/internal/logger"
	"github.com/spigell/recruiter-agency/internal/utils"
)

const (
	Provider = "gemini"

	defaultModel        = "gemini-2.5-flash"
	defaultTimeout      = 60 * time.Second
	defaultMaxLogLength = 200
)

// sleep is swapped in tests.
var sleep = time.Sleep

var retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) ([0-9]+(?:\.[0-9]+)?)\s*s`)

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	chats *genai.Chats
}

func (c genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	chat, err := c.chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// Options configures a Generator.
type Options struct {
	APIKey      string
	Model       string
	Retry       ai.RetryPolicy
	Timeout     time.Duration
	Temperature float32
	// MaxLogLength bounds prompt and response previews in debug logs.
	MaxLogLength int
}

// Generator implements ai.Generator on top of the Google GenAI chat API.
// Every call opens a fresh chat so no history leaks between stages.
type Generator struct {
	chats       chatCreator
	model       string
	retry       ai.RetryPolicy
	timeout     time.Duration
	temperature *float32
	maxLogLen   int
	logger      *zap.Logger
}

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, opts Options, log *zap.Logger) (*Generator, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	maxLogLen := opts.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	g := &Generator{
		chats:     genaiChats{chats: client.Chats},
		model:     model,
		retry:     opts.Retry,
		timeout:   timeout,
		maxLogLen: maxLogLen,
		logger:    logger.WithCommonFields(log, Provider, model),
	}

	if opts.Temperature > 0 {
		temperature := opts.Temperature
		g.temperature = &temperature
	}

	return g, nil
}

// Generate sends prompt as a user message with instructions as the system
// instruction and returns the concatenated text of the response.
func (g *Generator) Generate(ctx context.Context, prompt, instructions string) (string, error) {
	if g == nil || g.chats == nil {
		return "", &ai.GenerationError{Code: ai.CodeInvalidRequest, Detail: "gemini generator is not initialized"}
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", &ai.GenerationError{Code: ai.CodeInvalidRequest, Detail: "prompt must not be empty"}
	}

	log := logger.OrNop(g.logger)
	log.Debug("gemini generate request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.logLimit())),
	)

	attempts := g.retry.Attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := g.attempt(ctx, prompt, instructions)
		if err == nil {
			log.Debug("gemini generate response",
				zap.Int("attempt", attempt),
				zap.Int("response_length", utf8.RuneCountInString(text)),
				zap.String("response_preview", utils.TruncateForLog(text, g.logLimit())),
			)
			return text, nil
		}

		lastErr = err
		if attempt == attempts || ctx.Err() != nil {
			break
		}

		delay, retry := g.retryDelay(err, attempt)
		if !retry {
			break
		}

		log.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if waitErr := utils.WaitWith(ctx, delay, sleep); waitErr != nil {
			return "", &ai.GenerationError{Code: ai.CodeTimeout, Detail: "waiting for retry", Err: waitErr}
		}
	}

	return "", lastErr
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func (g *Generator) attempt(ctx context.Context, prompt, instructions string) (string, error) {
	attemptCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	chat, err := g.chats.Create(attemptCtx, g.model, g.config(instructions), nil)
	if err != nil {
		return "", classify(ctx, err)
	}

	resp, err := chat.SendMessage(attemptCtx, genai.Part{Text: prompt})
	if err != nil {
		return "", classify(ctx, err)
	}

	text := responseText(resp)
	if text == "" {
		return "", &ai.GenerationError{Code: ai.CodeEmptyResponse, Detail: "gemini api returned empty response"}
	}

	return text, nil
}

func (g *Generator) config(instructions string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{Temperature: g.temperature}
	if instructions = strings.TrimSpace(instructions); instructions != "" {
		cfg.SystemInstruction = &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: instructions}},
		}
	}
	return cfg
}

func (g *Generator) logLimit() int {
	if g.maxLogLen <= 0 {
		return defaultMaxLogLength
	}
	return g.maxLogLen
}

// retryDelay decides whether err is transient and how long to wait before the
// next attempt. Quota errors advertising a delay longer than the policy limit
// are not retried.
func (g *Generator) retryDelay(err error, attempt int) (time.Duration, bool) {
	var genErr *ai.GenerationError
	if !errors.As(err, &genErr) {
		return 0, false
	}

	delay := g.retry.Delay(attempt)

	switch genErr.Code {
	case ai.CodeTimeout, ai.CodeTransport:
		return delay, true
	case ai.CodeStatus:
	default:
		return 0, false
	}

	switch {
	case genErr.Status >= http.StatusInternalServerError:
		return delay, true
	case genErr.Status == http.StatusTooManyRequests:
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			if advertised, ok := advertisedDelay(apiErr); ok {
				if advertised > g.retry.Limit() {
					return 0, false
				}
				if advertised > delay {
					delay = advertised
				}
			}
		}
		return delay, true
	default:
		return 0, false
	}
}

func classify(parent context.Context, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ai.GenerationError{
			Code:   ai.CodeStatus,
			Status: apiErr.Code,
			Detail: strings.TrimSpace(apiErr.Status + " " + apiErr.Message),
			Err:    err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return &ai.GenerationError{Code: ai.CodeTimeout, Detail: "request timed out", Err: err}
	}

	return &ai.GenerationError{Code: ai.CodeTransport, Err: err}
}

func advertisedDelay(apiErr genai.APIError) (time.Duration, bool) {
	for _, detail := range apiErr.Details {
		raw, ok := detail["retryDelay"].(string)
		if !ok {
			continue
		}
		if d, err := time.ParseDuration(raw); err == nil {
			return d, true
		}
	}

	if m := retryAfterPattern.FindStringSubmatch(apiErr.Message); len(m) == 2 {
		seconds, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return time.Duration(seconds * float64(time.Second)), true
		}
	}

	return 0, false
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}
