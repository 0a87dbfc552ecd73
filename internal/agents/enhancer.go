package agents

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spigell/recruiter-agency/internal/parser"
	"github.com/spigell/recruiter-agency/internal/profile"
	"github.com/spigell/recruiter-agency/internal/utils"
)

const enhancerInstructions = "Enhance the candidate's resume into a professional summary paragraph using the extracted structured info."

type Enhancer struct {
	agent
	template string
}

func NewEnhancer(deps Deps) *Enhancer {
	return &Enhancer{
		agent:    newAgent("enhancer", enhancerInstructions, deps),
		template: template("enhancer.md"),
	}
}

// Summarize writes a short professional summary from the structured resume.
func (e *Enhancer) Summarize(ctx context.Context, extracted *profile.ExtractedResume) (profile.ProfileSummary, error) {
	if extracted == nil {
		return profile.ProfileSummary{}, fmt.Errorf("extracted resume is required")
	}

	text, err := e.generate(ctx, e.prompt(extracted.StructuredData))
	if err != nil {
		return profile.ProfileSummary{}, fmt.Errorf("summarize profile: %w", err)
	}

	return profile.ProfileSummary{Summary: strings.TrimSpace(text)}, nil
}

func (e *Enhancer) prompt(data map[string]any) string {
	name := parser.String(data["name"])
	if name == "" {
		name = "The candidate"
	}

	var years float64
	var roles []string
	if items, ok := data["experience"].([]any); ok {
		for _, item := range items {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if y := parser.Float(entry["years"]); !math.IsNaN(y) && y > 0 {
				years += y
			}
			roles = append(roles, parser.String(entry["role"]))
		}
	}

	return render(e.template, map[string]string{
		"NAME":   name,
		"YEARS":  strconv.FormatFloat(years, 'f', -1, 64),
		"ROLES":  strings.Join(utils.NonEmpty(roles...), ", "),
		"SKILLS": strings.Join(parser.Strings(data["skills"]), ", "),
	})
}
