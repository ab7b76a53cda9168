package review

import (
	"context"
	"sort"
	"strings"

	"github.com/jonathan/cover-letter-agent/internal/agent"
	"github.com/jonathan/cover-letter-agent/internal/llm"
	"github.com/jonathan/cover-letter-agent/internal/schemas"
	"github.com/jonathan/cover-letter-agent/internal/types"
)

// ContentValidator checks that the claims of a letter are backed by the resume
type ContentValidator struct {
	agent *agent.Agent[types.ValidationResult]
}

// NewContentValidator creates the validation agent
func NewContentValidator(rt agent.Runtime) (*ContentValidator, error) {
	a, err := agent.New[types.ValidationResult](agent.Spec{
		Name:      ContentAgentName,
		PromptKey: "validate-content",
		Required:  []string{"CoverLetter", "Resume", "JobDescription"},
		Schema:    schemas.ValidationResult,
		Tier:      llm.TierStandard,
	}, rt)
	if err != nil {
		return nil, err
	}
	return &ContentValidator{agent: a}, nil
}

// namedInput pairs an optional input with the field name used in errors
type namedInput struct {
	field string
	value *string
}

// checkInputs rejects nil inputs before it rejects blank ones, so a caller that sends no
// value at all gets KindInputNull even when another input is blank.
func checkInputs(agentName string, inputs ...namedInput) error {
	for _, in := range inputs {
		if in.value == nil {
			return agent.InputNull(agentName, in.field)
		}
	}
	for _, in := range inputs {
		if strings.TrimSpace(*in.value) == "" {
			return agent.InputEmpty(agentName, in.field)
		}
	}
	return nil
}

// Validate checks letter against resume and the job description. A nil input fails with
// KindInputNull; a blank one with KindInputEmpty.
func (v *ContentValidator) Validate(ctx context.Context, letter, resume, jobDescription *string) (*types.ValidationResult, error) {
	if err := checkInputs(ContentAgentName,
		namedInput{"cover_letter", letter},
		namedInput{"resume", resume},
		namedInput{"job_description", jobDescription},
	); err != nil {
		return nil, err
	}

	out, err := v.agent.Invoke(ctx, map[string]string{
		"CoverLetter":    *letter,
		"Resume":         *resume,
		"JobDescription": *jobDescription,
	})
	if err != nil {
		return nil, err
	}
	if out.Issues == nil {
		out.Issues = []types.ValidationIssue{}
	}
	if out.SupportedClaims == nil {
		out.SupportedClaims = []map[string]string{}
	}
	if out.RequirementCoverage == nil {
		out.RequirementCoverage = map[string]bool{}
	}
	return out, nil
}

// SuggestImprovements maps every issue to a suggestion. Suggestions are ordered by
// the raw priority label, so "high" < "low" < "medium". This is string order, not severity
// order; callers that need severity order must sort again.
func (v *ContentValidator) SuggestImprovements(result *types.ValidationResult) []types.Suggestion {
	suggestions := []types.Suggestion{}
	if result == nil {
		return suggestions
	}
	for _, issue := range result.Issues {
		suggestions = append(suggestions, types.Suggestion{
			Type:       issue.Type,
			Location:   issue.Location,
			Suggestion: issue.Suggestion,
			Priority:   issue.Severity,
		})
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Priority < suggestions[j].Priority
	})
	return suggestions
}
