package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/recruiter-agency/internal/profile"
)

const universityInstructions = `Analyze university course data and extract:
- Course names
- Skills taught
- Degree program compatibility
- Suitable job roles

Answer in plain English as short bullet points grouped by those headings.`

// ErrEmptyCurriculum is returned when there is no curriculum text.
var ErrEmptyCurriculum = errors.New("curriculum is empty")

type University struct {
	agent
}

func NewUniversity(deps Deps) *University {
	return &University{agent: newAgent("university", universityInstructions, deps)}
}

// Analyze summarizes curriculum content. The output is meant to be passed
// to the main pipeline as optional context.
func (u *University) Analyze(ctx context.Context, curriculum string) (profile.CurriculumAnalysis, error) {
	curriculum = strings.TrimSpace(curriculum)
	if curriculum == "" {
		return profile.CurriculumAnalysis{}, ErrEmptyCurriculum
	}

	text, err := u.generate(ctx, curriculum)
	if err != nil {
		return profile.CurriculumAnalysis{}, fmt.Errorf("analyze curriculum: %w", err)
	}

	return profile.CurriculumAnalysis{FormattedOutput: strings.TrimSpace(text)}, nil
}
