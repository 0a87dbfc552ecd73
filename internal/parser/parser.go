// Package parser pulls structured records out of free-form model output.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when the text holds no brace-delimited segment.
	ErrNotFound = errors.New("no structured segment found")
	// ErrMalformed is wrapped by MalformedError.
	ErrMalformed = errors.New("malformed structured segment")
)

// MalformedError reports a segment that was found but could not be decoded.
type MalformedError struct {
	Segment string
	Err     error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s: %v", ErrMalformed, e.Err)
}

func (e *MalformedError) Unwrap() []error { return []error{ErrMalformed, e.Err} }

// Parser turns generated text into a key/value record.
type Parser interface {
	Parse(text string) (map[string]any, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(text string) (map[string]any, error)

func (f ParserFunc) Parse(text string) (map[string]any, error) { return f(text) }

// Default is the permissive brace scanner.
var Default Parser = ParserFunc(ParseStructured)

// ParseStructured decodes the substring from the first "{" to the last "}"
// inclusive. Surrounding prose and code fences are ignored.
func ParseStructured(text string) (map[string]any, error) {
	segment, ok := Segment(text)
	if !ok {
		return nil, ErrNotFound
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(segment), &data); err != nil {
		return nil, &MalformedError{Segment: segment, Err: err}
	}
	if data == nil {
		return nil, &MalformedError{Segment: segment, Err: errors.New("segment is not an object")}
	}

	return data, nil
}

// Segment returns the text between the first "{" and the last "}".
func Segment(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return text[start : end+1], true
}
