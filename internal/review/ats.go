// Package review checks a finished letter for ATS parseability, factual support and
// consistent terminology, and turns the findings into suggestions.
package review

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/cover-letter-agent/internal/agent"
	"github.com/jonathan/cover-letter-agent/internal/llm"
	"github.com/jonathan/cover-letter-agent/internal/schemas"
	"github.com/jonathan/cover-letter-agent/internal/types"
)

// Agent names
const (
	ATSAgentName         = "ats_scanner"
	ContentAgentName     = "content_validation"
	TerminologyAgentName = "technical_term"
)

// Suggestion types
const (
	SuggestionKeywordAddition = "keyword_addition"
	SuggestionFormatFix       = "format_fix"
	SuggestionTermUpdate      = "term_update"
)

// goodEnoughScore is the keyword match score above which a letter with no format issues
// needs no ATS changes
const goodEnoughScore = 0.9

// ATSScanner scores how well applicant tracking systems would parse a letter
type ATSScanner struct {
	agent *agent.Agent[types.ATSAnalysis]
}

// NewATSScanner creates the scanner agent
func NewATSScanner(rt agent.Runtime) (*ATSScanner, error) {
	a, err := agent.New[types.ATSAnalysis](agent.Spec{
		Name:      ATSAgentName,
		PromptKey: "scan-ats",
		Required:  []string{"CoverLetter", "JobDescription"},
		Schema:    schemas.ATSAnalysis,
		Tier:      llm.TierStandard,
	}, rt)
	if err != nil {
		return nil, err
	}
	return &ATSScanner{agent: a}, nil
}

// Scan analyzes letter against the job description and its extracted requirements.
// requirements may be nil.
func (s *ATSScanner) Scan(ctx context.Context, letter, jobDescription string, requirements *types.JobRequirements) (*types.ATSAnalysis, error) {
	reqs := requirements
	if reqs == nil {
		reqs = &types.JobRequirements{}
	}
	reqsJSON, err := json.Marshal(reqs)
	if err != nil {
		return nil, agent.Wrap(agent.KindProcessing, ATSAgentName, fmt.Errorf("encode requirements: %w", err))
	}

	out, err := s.agent.Invoke(ctx, map[string]string{
		"CoverLetter":    letter,
		"JobDescription": jobDescription,
		"Requirements":   string(reqsJSON),
	})
	if err != nil {
		return nil, err
	}
	if out.KeyTermsFound == nil {
		out.KeyTermsFound = []string{}
	}
	if out.KeyTermsMissing == nil {
		out.KeyTermsMissing = []string{}
	}
	if out.FormatIssues == nil {
		out.FormatIssues = []types.ATSIssue{}
	}
	if out.HeadersAnalysis == nil {
		out.HeadersAnalysis = map[string]bool{}
	}
	return out, nil
}

// SuggestImprovements returns no suggestions when the keyword match score is above 0.9 and
// there are no format issues. Otherwise it returns one keyword_addition suggestion bundling
// every missing term, when there are any, followed by one format_fix per format issue.
func (s *ATSScanner) SuggestImprovements(analysis *types.ATSAnalysis) []types.Suggestion {
	suggestions := []types.Suggestion{}
	if analysis == nil {
		return suggestions
	}
	if analysis.KeywordMatchScore > goodEnoughScore && len(analysis.FormatIssues) == 0 {
		return suggestions
	}

	if len(analysis.KeyTermsMissing) > 0 {
		suggestions = append(suggestions, types.Suggestion{
			Type:     SuggestionKeywordAddition,
			Details:  "Add missing key terms",
			Terms:    append([]string(nil), analysis.KeyTermsMissing...),
			Priority: types.PriorityHigh,
		})
	}
	for _, issue := range analysis.FormatIssues {
		suggestions = append(suggestions, types.Suggestion{
			Type:       SuggestionFormatFix,
			Details:    issue.Description,
			Suggestion: issue.Suggestion,
			Priority:   issue.Severity,
		})
	}
	return suggestions
}
