package agents

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/recruiter-agency/internal/adzuna"
	"github.com/spigell/recruiter-agency/internal/parser"
	"github.com/spigell/recruiter-agency/internal/profile"
	"github.com/spigell/recruiter-agency/internal/utils"
)

const matcherInstructions = `Match candidate profiles with job positions.
Consider: skills match, experience level, location preferences.
Provide detailed reasoning and compatibility scores.
Return matches in JSON format with title, match_score, and location fields.`

const (
	primaryPageSize  = 20
	fallbackPageSize = 5
	sidePageSize     = 5
	maxMatchedJobs   = 10

	defaultParallelism = 4
)

type Matcher struct {
	agent
	searcher    Searcher
	parser      parser.Parser
	template    string
	parallelism int
}

// NewMatcher returns a matcher issuing at most parallelism side queries at once.
func NewMatcher(deps Deps, searcher Searcher, parallelism int) *Matcher {
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}

	return &Matcher{
		agent:       newAgent("matcher", matcherInstructions, deps),
		searcher:    searcher,
		parser:      parser.Default,
		template:    template("roles.md"),
		parallelism: parallelism,
	}
}

// Match searches postings for the analyzed profile, scores them against the
// technical skills and collects postings per recommended role and per
// domain. Search failures never fail the stage.
func (m *Matcher) Match(ctx context.Context, analysis *profile.AnalysisResult) (profile.MatchResult, error) {
	if analysis == nil {
		m.logger.Warn("no analysis supplied, nothing to match")
		result := profile.EmptyMatch()
		result.MatchedAt = now()
		return result, nil
	}

	level := analysis.ExperienceLevel
	if !profile.ValidLevel(level) {
		level = profile.LevelMid
	}

	domains := utils.NonEmpty(analysis.DomainExpertise...)
	keywords := utils.NonEmpty(append(append(append(
		append([]string{}, analysis.TechnicalSkills...),
		domains...),
		analysis.KeyAchievements...),
		analysis.Education.Field)...)

	m.logger.Debug("search keywords", zap.Strings("keywords", keywords), zap.String("experience_level", level))

	roles, err := m.recommendRoles(ctx, keywords, level, domains)
	if err != nil {
		return profile.MatchResult{}, err
	}

	skills := utils.NonEmpty(analysis.TechnicalSkills...)

	postings, err := m.searcher.Search(ctx, adzuna.SearchParams{Keywords: skills, PageSize: primaryPageSize})
	if err != nil {
		if ctx.Err() != nil {
			return profile.MatchResult{}, ctx.Err()
		}
		m.logger.Warn("primary search failed", zap.Error(err))
	}

	matched := Score(postings, skills)
	count := len(matched)

	if count == 0 {
		fallback, err := m.searcher.Search(ctx, adzuna.SearchParams{Keywords: skills, PageSize: fallbackPageSize})
		if err != nil {
			if ctx.Err() != nil {
				return profile.MatchResult{}, ctx.Err()
			}
			m.logger.Warn("fallback search failed", zap.Error(err))
		}
		for _, p := range fallback {
			matched = append(matched, profile.ScoredMatch{Posting: p, MatchScore: profile.FallbackScore()})
		}
		count = len(matched)
	}

	if len(matched) > maxMatchedJobs {
		matched = matched[:maxMatchedJobs]
	}

	byRole, byDomain, err := m.sideQueries(ctx, roles, domains)
	if err != nil {
		return profile.MatchResult{}, err
	}

	return profile.MatchResult{
		MatchedJobs:      matched,
		RecommendedRoles: byRole,
		DomainExpertise:  domains,
		DomainJobs:       byDomain,
		NumberOfMatches:  count,
		MatchedAt:        now(),
	}, nil
}

// Score rates each posting by the share of skills found in its title and
// description and sorts the result by score, highest first. Ties keep the
// search order.
func Score(postings []adzuna.Posting, skills []string) []profile.ScoredMatch {
	required := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		required = append(required, s)
	}

	scored := make([]profile.ScoredMatch, 0, len(postings))
	for _, p := range postings {
		score := 0
		if len(required) > 0 {
			text := strings.ToLower(p.Title + " " + p.Description)
			overlap := 0
			for _, skill := range required {
				if strings.Contains(text, skill) {
					overlap++
				}
			}
			score = int(math.Round(100 * float64(overlap) / float64(len(required))))
		}
		scored = append(scored, profile.ScoredMatch{Posting: p, MatchScore: profile.Percent(score)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].MatchScore.Value > scored[j].MatchScore.Value
	})

	return scored
}

func (m *Matcher) recommendRoles(ctx context.Context, keywords []string, level string, domains []string) ([]string, error) {
	keywordsJSON, _ := json.Marshal(keywords)
	domainsJSON, _ := json.Marshal(domains)

	prompt := render(m.template, map[string]string{
		"KEYWORDS":         string(keywordsJSON),
		"EXPERIENCE_LEVEL": level,
		"DOMAINS":          string(domainsJSON),
	})

	raw, err := m.generate(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		m.logger.Warn("role recommendation failed, using static table", zap.Error(err))
		return StaticRoles(keywords), nil
	}

	data, err := m.parser.Parse(raw)
	if err != nil {
		m.logger.Warn("role recommendation not parseable, using static table", zap.Error(err))
		return StaticRoles(keywords), nil
	}

	value, ok := data["recommended_roles"]
	if !ok {
		return StaticRoles(keywords), nil
	}

	roles := utils.NonEmpty(parser.Strings(value)...)
	if len(roles) > maxRoles {
		roles = roles[:maxRoles]
	}
	return roles, nil
}

// sideQueries searches postings for every role and domain. Each query writes
// only its own slot and a failed query leaves an empty list for its key.
func (m *Matcher) sideQueries(ctx context.Context, roles, domains []string) (map[string][]adzuna.Posting, map[string][]adzuna.Posting, error) {
	keys := make([]string, 0, len(roles)+len(domains))
	keys = append(keys, roles...)
	keys = append(keys, domains...)
	results := make([][]adzuna.Posting, len(keys))

	var g errgroup.Group
	g.SetLimit(m.parallelism)

	for i, key := range keys {
		g.Go(func() error {
			postings, err := m.searcher.Search(ctx, adzuna.SearchParams{Keywords: []string{key}, PageSize: sidePageSize})
			if err != nil {
				m.logger.Warn("side query failed", zap.String("keyword", key), zap.Error(err))
				postings = []adzuna.Posting{}
			}
			if postings == nil {
				postings = []adzuna.Posting{}
			}
			results[i] = postings
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	byRole := make(map[string][]adzuna.Posting, len(roles))
	for i, role := range roles {
		byRole[role] = results[i]
	}
	byDomain := make(map[string][]adzuna.Posting, len(domains))
	for i, domain := range domains {
		byDomain[domain] = results[len(roles)+i]
	}

	return byRole, byDomain, nil
}
