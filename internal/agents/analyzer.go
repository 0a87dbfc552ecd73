package agents

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/recruiter-agency/internal/parser"
	"github.com/spigell/recruiter-agency/internal/profile"
)

const analyzerInstructions = `Analyze candidate profiles and extract:
1. Technical skills (as a list)
2. Years of experience (numeric)
3. Education level
4. Experience level (Junior/Mid-level/Senior)
5. Key achievements
6. Domain expertise

Format the output as structured data.`

const analyzedConfidence = 0.85

type Analyzer struct {
	agent
	parser   parser.Parser
	template string
}

// NewAnalyzer returns an analyzer using p to read the answer. A nil p means
// the permissive brace scanner.
func NewAnalyzer(deps Deps, p parser.Parser) *Analyzer {
	if p == nil {
		p = parser.Default
	}

	return &Analyzer{
		agent:    newAgent("analyzer", analyzerInstructions, deps),
		parser:   p,
		template: template("analyzer.md"),
	}
}

// NewAnalysisSchemaParser returns a parser that also validates answers
// against the analysis JSON schema.
func NewAnalysisSchemaParser() (*parser.SchemaParser, error) {
	schema, err := prompts.ReadFile("prompts/analysis.schema.json")
	if err != nil {
		return nil, err
	}
	return parser.NewSchemaParser(string(schema))
}

// Analyze turns the extracted resume into an analysis. Any generation or
// parse failure yields the default analysis with a 0.5 confidence. A parsed
// answer is kept with a 0.85 confidence even when some fields are mistyped.
func (a *Analyzer) Analyze(ctx context.Context, extracted *profile.ExtractedResume, curriculum string) (profile.AnalysisResult, error) {
	structured := map[string]any{}
	if extracted != nil && extracted.StructuredData != nil {
		structured = extracted.StructuredData
	}

	structuredJSON, err := toJSON(structured)
	if err != nil {
		a.logger.Warn("cannot render structured data", zap.Error(err))
		return a.fallback(), nil
	}

	prompt := render(a.template, map[string]string{
		"STRUCTURED_DATA":    structuredJSON,
		"CURRICULUM_CONTEXT": optionalSection("University context (optional)", curriculum),
	})

	raw, err := a.generate(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return profile.AnalysisResult{}, ctx.Err()
		}
		a.logger.Warn("analysis generation failed, using default", zap.Error(err))
		return a.fallback(), nil
	}

	data, err := a.parser.Parse(raw)
	if err != nil {
		a.logger.Warn("analysis not parseable, using default", zap.Error(err))
		return a.fallback(), nil
	}

	result, unusable := decodeAnalysis(data)
	if len(unusable) > 0 {
		a.logger.Warn("analysis fields unusable, using defaults for them", zap.Strings("fields", unusable))
	}

	result.ConfidenceScore = analyzedConfidence
	result.AnalyzedAt = now()
	return result, nil
}

func (a *Analyzer) fallback() profile.AnalysisResult {
	result := profile.DefaultAnalysis()
	result.AnalyzedAt = now()
	return result
}

// decodeAnalysis reads the answer field by field. A mistyped field falls
// back to its default and is reported in unusable; the rest is kept.
func decodeAnalysis(data map[string]any) (profile.AnalysisResult, []string) {
	result := profile.DefaultAnalysis()
	result.ExperienceLevel = parser.String(data["experience_level"])

	var unusable []string

	result.TechnicalSkills = parser.Strings(data["technical_skills"])
	result.KeyAchievements = parser.Strings(data["key_achievements"])
	result.DomainExpertise = parser.Strings(data["domain_expertise"])

	if v, ok := data["years_of_experience"]; ok && v != nil {
		years, ok := decodeYears(v)
		if !ok {
			unusable = append(unusable, "years_of_experience")
		}
		result.YearsOfExperience = years
	}

	if v, ok := data["education"]; ok && v != nil {
		education, ok := decodeEducation(v)
		if !ok {
			unusable = append(unusable, "education")
		}
		result.Education = education
	}

	return result, unusable
}

var leadingNumber = regexp.MustCompile(`^\s*([0-9]+(?:\.[0-9]+)?)`)

// decodeYears accepts numbers, numeric strings and strings starting with a
// number such as "5+" or "3-4 years". Negative values become 0.
func decodeYears(v any) (float64, bool) {
	years := parser.Float(v)
	if math.IsNaN(years) {
		s, isString := v.(string)
		if !isString {
			return 0, false
		}
		m := leadingNumber.FindStringSubmatch(s)
		if m == nil {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		years = parsed
	}
	if math.IsInf(years, 0) || years < 0 {
		return 0, true
	}
	return years, true
}

// decodeEducation accepts {"level", "field"} or a plain description, which
// is kept as the field.
func decodeEducation(v any) (profile.Education, bool) {
	education := profile.Education{}

	switch val := v.(type) {
	case string:
		education.Field = strings.TrimSpace(val)
	case map[string]any:
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &education,
		})
		if err != nil {
			return unknownEducation(education), false
		}
		if err := decoder.Decode(val); err != nil {
			return unknownEducation(profile.Education{}), false
		}
		education.Level = strings.TrimSpace(education.Level)
		education.Field = strings.TrimSpace(education.Field)
	default:
		return unknownEducation(education), false
	}

	return unknownEducation(education), true
}

func unknownEducation(e profile.Education) profile.Education {
	if e.Level == "" {
		e.Level = "Unknown"
	}
	if e.Field == "" {
		e.Field = "Unknown"
	}
	return e
}
