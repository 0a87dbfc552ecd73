package agents

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/recruiter-agency/internal/profile"
)

const screenerInstructions = `Screen candidates based on the following:
- Qualification alignment
- Experience relevance
- Skill match percentage
- Cultural fit indicators
- Red flags or concerns

Provide a comprehensive but concise screening report in plain text.
Mention if anything is missing or uncertain in the candidate's profile.`

const (
	screeningInputError  = "Could not screen candidate due to input error."
	screeningUnavailable = "Screening report is unavailable: the generation service did not answer."

	// screenedScore is a fixed placeholder, the report is not scored.
	screenedScore = 85
)

type Screener struct {
	agent
}

func NewScreener(deps Deps) *Screener {
	return &Screener{agent: newAgent("screener", screenerInstructions, deps)}
}

// Screen writes a screening report for the run so far.
func (s *Screener) Screen(ctx context.Context, snapshot *profile.Snapshot) (profile.ScreeningResult, error) {
	if snapshot.Empty() {
		s.logger.Warn("nothing to screen")
		return s.degraded(screeningInputError), nil
	}

	data, err := toJSON(snapshot)
	if err != nil {
		s.logger.Warn("cannot render candidate profile", zap.Error(err))
		return s.degraded(screeningInputError), nil
	}

	report, err := s.generate(ctx, "Candidate Profile Data:\n"+data)
	if err != nil {
		if ctx.Err() != nil {
			return profile.ScreeningResult{}, ctx.Err()
		}
		s.logger.Warn("screening generation failed", zap.Error(err))
		return s.degraded(screeningUnavailable), nil
	}

	return profile.ScreeningResult{
		ScreeningReport: report,
		ScreeningScore:  screenedScore,
		ScreenedAt:      now(),
	}, nil
}

func (s *Screener) degraded(report string) profile.ScreeningResult {
	return profile.ScreeningResult{ScreeningReport: report, ScreeningScore: 0, ScreenedAt: now()}
}
