package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonathan/cover-letter-agent/internal/agent"
	"github.com/jonathan/cover-letter-agent/internal/llm"
	"github.com/jonathan/cover-letter-agent/internal/retrieval"
	"github.com/jonathan/cover-letter-agent/internal/schemas"
	"github.com/jonathan/cover-letter-agent/internal/types"
)

// similarLetterLimit caps how many past letters are shown to the strategist
const similarLetterLimit = 3

// StrategyComposer builds a CoverLetterStrategy from the deterministic gap analysis and
// LLM-written talking points.
type StrategyComposer struct {
	agent    *agent.Agent[types.CoverLetterStrategy]
	searcher retrieval.Searcher
	logger   *slog.Logger
}

// NewStrategyComposer creates the composer. searcher may be nil, in which case no past
// letters are consulted.
func NewStrategyComposer(rt agent.Runtime, searcher retrieval.Searcher) (*StrategyComposer, error) {
	a, err := agent.New[types.CoverLetterStrategy](agent.Spec{
		Name:      StrategyAgentName,
		PromptKey: "develop-strategy",
		Required:  []string{"SkillsAnalysis", "RequirementsAnalysis"},
		Schema:    schemas.CoverLetterStrategy,
		Tier:      llm.TierAdvanced,
	}, rt)
	if err != nil {
		return nil, err
	}
	logger := rt.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &StrategyComposer{agent: a, searcher: searcher, logger: logger}, nil
}

// Compose returns the strategy for the given analyses. The gap analysis in the result is
// always the one computed by MatchSkills; whatever the model proposed is discarded.
func (c *StrategyComposer) Compose(ctx context.Context, skills *types.SkillsAnalysis, reqs *types.JobRequirements) (*types.CoverLetterStrategy, error) {
	if skills == nil || reqs == nil {
		return nil, agent.Wrap(agent.KindStrategy, StrategyAgentName,
			&agent.Error{Kind: agent.KindMissingAnalysis, Err: errors.New("skills and requirements analyses are required")})
	}

	similar := c.findSimilarLetters(ctx, reqs)
	gap := MatchSkills(skills, reqs)

	skillsJSON, err := json.Marshal(skills)
	if err != nil {
		return nil, agent.Wrap(agent.KindStrategy, StrategyAgentName, fmt.Errorf("encode skills: %w", err))
	}
	reqsJSON, err := json.Marshal(reqs)
	if err != nil {
		return nil, agent.Wrap(agent.KindStrategy, StrategyAgentName, fmt.Errorf("encode requirements: %w", err))
	}
	similarJSON, err := json.Marshal(similar)
	if err != nil {
		return nil, agent.Wrap(agent.KindStrategy, StrategyAgentName, fmt.Errorf("encode similar letters: %w", err))
	}

	strategy, err := c.agent.Invoke(ctx, map[string]string{
		"SkillsAnalysis":       string(skillsJSON),
		"RequirementsAnalysis": string(reqsJSON),
		"SimilarLetters":       string(similarJSON),
	})
	if err != nil {
		return nil, agent.Wrap(agent.KindStrategy, StrategyAgentName, err)
	}

	strategy.GapAnalysis = gap
	if strategy.KeyTalkingPoints == nil {
		strategy.KeyTalkingPoints = []types.TalkingPoint{}
	}
	if strategy.ToneRecommendations == nil {
		strategy.ToneRecommendations = map[string]string{}
	}
	return strategy, nil
}

// findSimilarLetters never fails: a missing or failing store yields no letters.
func (c *StrategyComposer) findSimilarLetters(ctx context.Context, reqs *types.JobRequirements) []retrieval.SearchResult {
	empty := []retrieval.SearchResult{}
	if c.searcher == nil {
		return empty
	}
	query := similarLettersQuery(reqs)
	if query == "" {
		return empty
	}

	results, err := c.searcher.Search(ctx, query, similarLetterLimit, map[string]string{
		retrieval.DocTypeKey: retrieval.DocTypeCoverLetter,
	})
	if err != nil {
		c.logger.Warn("similar letter lookup failed", "error", err)
		return empty
	}
	if results == nil {
		return empty
	}
	return results
}

func similarLettersQuery(reqs *types.JobRequirements) string {
	parts := make([]string, 0, len(reqs.CoreRequirements))
	for _, r := range reqs.CoreRequirements {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Skill, r.Description))
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
