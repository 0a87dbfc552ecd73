package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Generator sends a prompt with optional system instructions to a text
// generation service and returns the generated text.
type Generator interface {
	Generate(ctx context.Context, prompt, instructions string) (string, error)
}

// Failure codes carried by GenerationError.
const (
	CodeTransport      = "transport"
	CodeStatus         = "status"
	CodeTimeout        = "timeout"
	CodeEmptyResponse  = "empty_response"
	CodeInvalidRequest = "invalid_request"
)

// GenerationError is the typed failure returned by every Generator.
type GenerationError struct {
	Code string
	// Status is the upstream HTTP status when one was received.
	Status int
	Detail string
	Err    error
}

func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString("generation failed: ")
	b.WriteString(e.Code)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsGenerationError reports whether err carries a GenerationError.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}

// RetryPolicy bounds retries of transient transport failures.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

const (
	defaultBaseDelay = time.Second
	defaultMaxDelay  = 30 * time.Second
)

// Attempts returns the number of attempts to make, never less than one.
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Delay returns the exponential backoff before retry number attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}
	if attempt < 1 {
		attempt = 1
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	return delay
}

// Limit returns the longest delay the policy is willing to wait.
func (p RetryPolicy) Limit() time.Duration {
	if p.MaxDelay <= 0 {
		return defaultMaxDelay
	}
	return p.MaxDelay
}
