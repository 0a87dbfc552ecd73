package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/recruiter-agency/internal/document"
	"github.com/spigell/recruiter-agency/internal/parser"
	"github.com/spigell/recruiter-agency/internal/profile"
)

const extractorInstructions = `Extract and structure information from resumes.
Focus on: personal info, work experience, education, skills, and certifications.
Provide output in a clear, structured format as JSON only.`

// ErrEmptyResume is returned when the input carries neither text nor a file.
var ErrEmptyResume = errors.New("resume input is empty")

type Extractor struct {
	agent
	documents document.Extractor
	parser    parser.Parser
	template  string
}

func NewExtractor(deps Deps, documents document.Extractor) *Extractor {
	if documents == nil {
		documents = document.FileExtractor{}
	}

	return &Extractor{
		agent:     newAgent("extractor", extractorInstructions, deps),
		documents: documents,
		parser:    parser.Default,
		template:  template("extractor.md"),
	}
}

// Extract obtains the resume text and asks for a structured rendition of it.
// A document that cannot be read is an error. A generation or parse failure
// leaves StructuredData empty and the extraction still counts as completed.
func (e *Extractor) Extract(ctx context.Context, input profile.ResumeInput, curriculum string) (profile.ExtractedResume, error) {
	if input.Empty() {
		return profile.ExtractedResume{}, ErrEmptyResume
	}

	rawText := input.Text
	if path := strings.TrimSpace(input.FilePath); path != "" {
		text, err := e.documents.ExtractFile(ctx, path)
		if err != nil {
			return profile.ExtractedResume{}, fmt.Errorf("extract resume text: %w", err)
		}
		rawText = text
	}

	result := profile.ExtractedResume{
		RawText:        rawText,
		StructuredData: map[string]any{},
		Status:         profile.ExtractionCompleted,
	}

	prompt := render(e.template, map[string]string{
		"RESUME_TEXT":        rawText,
		"CURRICULUM_CONTEXT": optionalSection("University curriculum context (optional)", curriculum),
	})

	raw, err := e.generate(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return profile.ExtractedResume{}, ctx.Err()
		}
		e.logger.Warn("structuring failed, keeping raw text only", zap.Error(err))
		return result, nil
	}

	data, err := e.parser.Parse(raw)
	if err != nil {
		e.logger.Warn("structured data not parseable", zap.Error(err))
		return result, nil
	}

	result.StructuredData = data
	return result, nil
}
