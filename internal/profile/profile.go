// Package profile holds the records produced by each pipeline stage.
package profile

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spigell/recruiter-agency/internal/adzuna"
)

// ExtractionCompleted is the only status an extraction record carries. An
// unreadable document fails the stage instead of producing a record.
const ExtractionCompleted = "completed"

// Experience levels accepted by the matcher.
const (
	LevelJunior = "Junior"
	LevelMid    = "Mid-level"
	LevelSenior = "Senior"
)

// Recommendation confidence levels.
const (
	ConfidenceLow  = "low"
	ConfidenceHigh = "high"
)

// ResumeInput is either raw text or a reference to a document on disk.
type ResumeInput struct {
	Text     string `json:"text,omitempty" yaml:"text,omitempty"`
	FilePath string `json:"file_path,omitempty" yaml:"file_path,omitempty"`
}

// Empty reports whether neither text nor a file is supplied.
func (r ResumeInput) Empty() bool {
	return strings.TrimSpace(r.Text) == "" && strings.TrimSpace(r.FilePath) == ""
}

type ExtractedResume struct {
	RawText        string         `json:"raw_text" yaml:"raw_text"`
	StructuredData map[string]any `json:"structured_data" yaml:"structured_data"`
	Status         string         `json:"extraction_status" yaml:"extraction_status"`
}

// Clone returns a copy that shares nothing with r, nested structured data
// included.
func (r ExtractedResume) Clone() ExtractedResume {
	if r.StructuredData != nil {
		r.StructuredData = cloneValue(r.StructuredData).(map[string]any)
	}
	return r
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

type Education struct {
	Level string `json:"level" yaml:"level" mapstructure:"level"`
	Field string `json:"field" yaml:"field" mapstructure:"field"`
}

type AnalysisResult struct {
	TechnicalSkills   []string  `json:"technical_skills" yaml:"technical_skills" mapstructure:"technical_skills"`
	YearsOfExperience float64   `json:"years_of_experience" yaml:"years_of_experience" mapstructure:"years_of_experience"`
	Education         Education `json:"education" yaml:"education" mapstructure:"education"`
	ExperienceLevel   string    `json:"experience_level" yaml:"experience_level" mapstructure:"experience_level"`
	KeyAchievements   []string  `json:"key_achievements" yaml:"key_achievements" mapstructure:"key_achievements"`
	DomainExpertise   []string  `json:"domain_expertise" yaml:"domain_expertise" mapstructure:"domain_expertise"`
	ConfidenceScore   float64   `json:"confidence_score" yaml:"confidence_score" mapstructure:"-"`
	AnalyzedAt        time.Time `json:"analysis_timestamp" yaml:"analysis_timestamp" mapstructure:"-"`
}

func (a AnalysisResult) Clone() AnalysisResult {
	a.TechnicalSkills = slices.Clone(a.TechnicalSkills)
	a.KeyAchievements = slices.Clone(a.KeyAchievements)
	a.DomainExpertise = slices.Clone(a.DomainExpertise)
	return a
}

// DefaultAnalysis is substituted when the analysis answer cannot be parsed.
func DefaultAnalysis() AnalysisResult {
	return AnalysisResult{
		TechnicalSkills:   []string{},
		YearsOfExperience: 0,
		Education:         Education{Level: "Unknown", Field: "Unknown"},
		ExperienceLevel:   LevelJunior,
		KeyAchievements:   []string{},
		DomainExpertise:   []string{},
		ConfidenceScore:   0.5,
	}
}

// ValidLevel reports whether level is one of the known experience levels.
func ValidLevel(level string) bool {
	switch level {
	case LevelJunior, LevelMid, LevelSenior:
		return true
	default:
		return false
	}
}

// MatchScore is a percentage, or the fallback marker for postings that were
// not scored at all.
type MatchScore struct {
	Value    int
	Fallback bool
}

const fallbackScore = "Fallback"

// Percent returns a numeric score.
func Percent(v int) MatchScore { return MatchScore{Value: v} }

// FallbackScore marks an unscored posting.
func FallbackScore() MatchScore { return MatchScore{Fallback: true} }

func (s MatchScore) String() string {
	if s.Fallback {
		return fallbackScore
	}
	return strconv.Itoa(s.Value) + "%"
}

func (s MatchScore) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *MatchScore) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("match score: %w", err)
	}
	return s.parse(raw)
}

func (s MatchScore) MarshalYAML() (any, error) { return s.String(), nil }

func (s *MatchScore) parse(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == fallbackScore {
		*s = FallbackScore()
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSuffix(raw, "%"))
	if err != nil {
		return fmt.Errorf("match score %q: %w", raw, err)
	}
	*s = Percent(v)
	return nil
}

type ScoredMatch struct {
	adzuna.Posting `yaml:",inline"`
	MatchScore     MatchScore `json:"match_score" yaml:"match_score"`
}

type MatchResult struct {
	MatchedJobs      []ScoredMatch               `json:"matched_jobs" yaml:"matched_jobs"`
	RecommendedRoles map[string][]adzuna.Posting `json:"recommended_roles" yaml:"recommended_roles"`
	DomainExpertise  []string                    `json:"domain_expertise" yaml:"domain_expertise"`
	DomainJobs       map[string][]adzuna.Posting `json:"domain_jobs" yaml:"domain_jobs"`
	NumberOfMatches  int                         `json:"number_of_matches" yaml:"number_of_matches"`
	MatchedAt        time.Time                   `json:"match_timestamp" yaml:"match_timestamp"`
}

func (m MatchResult) Clone() MatchResult {
	m.MatchedJobs = slices.Clone(m.MatchedJobs)
	m.RecommendedRoles = clonePostings(m.RecommendedRoles)
	m.DomainExpertise = slices.Clone(m.DomainExpertise)
	m.DomainJobs = clonePostings(m.DomainJobs)
	return m
}

func clonePostings(in map[string][]adzuna.Posting) map[string][]adzuna.Posting {
	out := maps.Clone(in)
	for key, postings := range out {
		out[key] = slices.Clone(postings)
	}
	return out
}

// EmptyMatch is the result used when there is nothing to match against.
func EmptyMatch() MatchResult {
	return MatchResult{
		MatchedJobs:      []ScoredMatch{},
		RecommendedRoles: map[string][]adzuna.Posting{},
		DomainExpertise:  []string{},
		DomainJobs:       map[string][]adzuna.Posting{},
	}
}

type ScreeningResult struct {
	ScreeningReport string    `json:"screening_report" yaml:"screening_report"`
	ScreeningScore  int       `json:"screening_score" yaml:"screening_score"`
	ScreenedAt      time.Time `json:"screening_timestamp" yaml:"screening_timestamp"`
}

type RecommendationResult struct {
	FinalRecommendation string    `json:"final_recommendation" yaml:"final_recommendation"`
	ConfidenceLevel     string    `json:"confidence_level" yaml:"confidence_level"`
	RecommendedAt       time.Time `json:"recommendation_timestamp" yaml:"recommendation_timestamp"`
}

type CurriculumAnalysis struct {
	FormattedOutput string `json:"formatted_output" yaml:"formatted_output"`
}

type ProfileSummary struct {
	Summary string `json:"summary" yaml:"summary"`
}

// Snapshot is the copy of a run handed to the screening and recommendation
// stages.
type Snapshot struct {
	Resume            ResumeInput      `json:"resume_data"`
	UniversityContext string           `json:"university_context,omitempty"`
	ExtractedData     *ExtractedResume `json:"extracted_data,omitempty"`
	AnalysisResults   *AnalysisResult  `json:"analysis_results,omitempty"`
	JobMatches        *MatchResult     `json:"job_matches,omitempty"`
	ScreeningResults  *ScreeningResult `json:"screening_results,omitempty"`
}

// Empty reports whether the snapshot carries no stage results.
func (s *Snapshot) Empty() bool {
	return s == nil || (s.ExtractedData == nil && s.AnalysisResults == nil && s.JobMatches == nil && s.ScreeningResults == nil)
}
