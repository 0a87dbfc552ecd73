// Package proxy talks to an HTTP generation proxy that accepts
// {"prompt", "instructions"} and answers {"result"} or {"error", "details"}.
package proxy

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

	"go.uber.org/zap"

	"github.com/spigell/recruiter-agency/internal/ai"
	"github.com/spigell/recruiter-agency/internal/logger"
	"github.com/spigell/recruiter-agency/internal/utils"
)

const (
	Provider = "proxy"

	contentType    = "application/json"
	defaultTimeout = 60 * time.Second
	maxErrorBody   = 512
)

var sleep = time.Sleep

type request struct {
	Prompt       string `json:"prompt"`
	Instructions string `json:"instructions"`
}

type response struct {
	Result  string `json:"result"`
	Error   any    `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
	Message string `json:"message,omitempty"`
}

// Generator implements ai.Generator against a generation proxy.
type Generator struct {
	URL        string
	HTTPClient *http.Client
	Retry      ai.RetryPolicy
	logger     *zap.Logger
}

// New returns a proxy generator with a bounded request timeout.
func New(url string, timeout time.Duration, retry ai.RetryPolicy, log *zap.Logger) (*Generator, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("proxy url is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Generator{
		URL:        url,
		HTTPClient: &http.Client{Timeout: timeout},
		Retry:      retry,
		logger:     logger.WithCommonFields(log, Provider, url),
	}, nil
}

// Generate posts the prompt and the instructions to the proxy, which joins
// them itself as "<instructions>\n\n<prompt>".
func (g *Generator) Generate(ctx context.Context, prompt, instructions string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", &ai.GenerationError{Code: ai.CodeInvalidRequest, Detail: "prompt must not be empty"}
	}

	body, err := json.Marshal(request{
		Prompt:       strings.TrimSpace(prompt),
		Instructions: strings.TrimSpace(instructions),
	})
	if err != nil {
		return "", &ai.GenerationError{Code: ai.CodeInvalidRequest, Err: err}
	}

	log := logger.OrNop(g.logger)
	attempts := g.Retry.Attempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := g.post(ctx, body)
		if err == nil {
			return text, nil
		}

		lastErr = err
		if attempt == attempts || ctx.Err() != nil || !transient(err) {
			break
		}

		delay := g.Retry.Delay(attempt)
		log.Warn("proxy request failed, retrying",
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

func (g *Generator) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewReader(body))
	if err != nil {
		return "", &ai.GenerationError{Code: ai.CodeInvalidRequest, Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	client := g.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		code := ai.CodeTransport
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			code = ai.CodeTimeout
		}
		return "", &ai.GenerationError{Code: code, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ai.GenerationError{Code: ai.CodeTransport, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ai.GenerationError{
			Code:   ai.CodeStatus,
			Status: resp.StatusCode,
			Detail: utils.TruncateForLog(string(data), maxErrorBody),
		}
	}

	var decoded response
	if err := json.Unmarshal(data, &decoded); err != nil {
		return "", &ai.GenerationError{Code: ai.CodeStatus, Status: resp.StatusCode, Detail: "undecodable proxy response", Err: err}
	}

	if decoded.Error != nil {
		return "", &ai.GenerationError{
			Code:   ai.CodeStatus,
			Status: resp.StatusCode,
			Detail: strings.TrimSpace(fmt.Sprintf("%v %v %s", decoded.Error, orEmpty(decoded.Details), decoded.Message)),
		}
	}

	text := strings.TrimSpace(decoded.Result)
	if text == "" {
		return "", &ai.GenerationError{Code: ai.CodeEmptyResponse, Status: resp.StatusCode, Detail: "proxy returned empty result"}
	}

	return text, nil
}

func transient(err error) bool {
	var genErr *ai.GenerationError
	if !errors.As(err, &genErr) {
		return false
	}

	switch genErr.Code {
	case ai.CodeTransport, ai.CodeTimeout:
		return true
	case ai.CodeStatus:
		return genErr.Status >= http.StatusInternalServerError || genErr.Status == http.StatusTooManyRequests
	default:
		return false
	}
}

func isTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}

func orEmpty(v any) any {
	if v == nil {
		return ""
	}
	return v
}
