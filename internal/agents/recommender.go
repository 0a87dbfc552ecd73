package agents

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/recruiter-agency/internal/profile"
)

const recommenderInstructions = `Generate final recommendations considering:
1. Extracted profile
2. Skills analysis
3. Job matches
4. Screening results

Your response should offer:
- Clear next steps
- Personalized insights based on the profile
- Any missing elements (skills, qualifications)
Return the recommendations in a well-structured paragraph.`

const (
	recommendationInputError  = "Could not generate recommendation due to invalid input."
	recommendationUnavailable = "Recommendation is unavailable: the generation service did not answer."
)

type Recommender struct {
	agent
}

func NewRecommender(deps Deps) *Recommender {
	return &Recommender{agent: newAgent("recommender", recommenderInstructions, deps)}
}

// Recommend writes the final recommendation. Confidence is low only when
// the input could not be used.
func (r *Recommender) Recommend(ctx context.Context, snapshot *profile.Snapshot) (profile.RecommendationResult, error) {
	if snapshot.Empty() {
		r.logger.Warn("nothing to recommend on")
		return r.result(recommendationInputError, profile.ConfidenceLow), nil
	}

	data, err := toJSON(snapshot)
	if err != nil {
		r.logger.Warn("cannot render candidate data", zap.Error(err))
		return r.result(recommendationInputError, profile.ConfidenceLow), nil
	}

	text, err := r.generate(ctx, "Candidate Data:\n"+data)
	if err != nil {
		if ctx.Err() != nil {
			return profile.RecommendationResult{}, ctx.Err()
		}
		r.logger.Warn("recommendation generation failed", zap.Error(err))
		return r.result(recommendationUnavailable, profile.ConfidenceHigh), nil
	}

	return r.result(text, profile.ConfidenceHigh), nil
}

func (r *Recommender) result(text, confidence string) profile.RecommendationResult {
	return profile.RecommendationResult{
		FinalRecommendation: text,
		ConfidenceLevel:     confidence,
		RecommendedAt:       now(),
	}
}
