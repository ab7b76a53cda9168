package review

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cover-letter-agent/internal/agent"
	"github.com/jonathan/cover-letter-agent/internal/llm"
	"github.com/jonathan/cover-letter-agent/internal/types"
)

const validationJSON = `{
	"issues": [
		{"type": "unsupported_claim", "severity": "medium", "location": "paragraph 2", "description": "10 years of Rust", "suggestion": "say 2 years"},
		{"type": "exaggeration", "severity": "high", "location": "introduction", "description": "led 50 people", "suggestion": "led 5 people"},
		{"type": "style", "severity": "low", "location": "closing", "description": "cliche", "suggestion": "be specific"}
	],
	"supported_claims": [{"claim": "Go services", "evidence": "Acme"}],
	"requirement_coverage": {"Go": true, "Kubernetes": false},
	"confidence_score": 0.8
}`

func TestContentValidator_Validate(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
			assert.Contains(t, prompt, "Resume:\nGo engineer at Acme")
			return validationJSON, nil
		},
	}
	v, err := NewContentValidator(agent.Runtime{Client: client})
	require.NoError(t, err)

	out, err := v.Validate(context.Background(), ptr("Dear team"), ptr("Go engineer at Acme"), ptr("Backend role"))
	require.NoError(t, err)
	assert.Len(t, out.Issues, 3)
	assert.Equal(t, "Acme", out.SupportedClaims[0]["evidence"])
	assert.False(t, out.RequirementCoverage["Kubernetes"])
	assert.Equal(t, 0.8, out.ConfidenceScore)
}

func TestContentValidator_NullBeforeEmpty(t *testing.T) {
	client := &MockLLMClient{}
	v, err := NewContentValidator(agent.Runtime{Client: client})
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name   string
		letter *string
		resume *string
		job    *string
		kind   agent.Kind
		field  string
	}{
		{"nil letter", nil, ptr("resume"), ptr("job"), agent.KindInputNull, "cover_letter"},
		{"nil resume with blank letter", ptr(" "), nil, ptr("job"), agent.KindInputNull, "resume"},
		{"nil job", ptr("letter"), ptr("resume"), nil, agent.KindInputNull, "job_description"},
		{"blank letter", ptr("  \n"), ptr("resume"), ptr("job"), agent.KindInputEmpty, "cover_letter"},
		{"empty job", ptr("letter"), ptr("resume"), ptr(""), agent.KindInputEmpty, "job_description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(ctx, tt.letter, tt.resume, tt.job)
			require.Error(t, err)
			assert.Equal(t, tt.kind, agent.KindOf(err))
			assert.True(t, agent.IsInputError(err))

			var aerr *agent.Error
			require.True(t, errors.As(err, &aerr))
			assert.Equal(t, tt.field, aerr.Field)
		})
	}
	assert.Zero(t, client.calls.Load())
}

// Suggestions are ordered by the priority label as a string, which puts "low" before
// "medium". This mirrors the historical behaviour and is kept on purpose.
func TestContentValidator_SuggestImprovements_LexicographicOrder(t *testing.T) {
	result := &types.ValidationResult{Issues: []types.ValidationIssue{
		{Type: "unsupported_claim", Severity: "medium", Location: "paragraph 2", Suggestion: "say 2 years"},
		{Type: "exaggeration", Severity: "high", Location: "introduction", Suggestion: "led 5 people"},
		{Type: "style", Severity: "low", Location: "closing", Suggestion: "be specific"},
		{Type: "tone", Severity: "high", Location: "closing", Suggestion: "soften"},
	}}

	got := (&ContentValidator{}).SuggestImprovements(result)
	require.Len(t, got, 4)

	priorities := []string{got[0].Priority, got[1].Priority, got[2].Priority, got[3].Priority}
	assert.Equal(t, []string{"high", "high", "low", "medium"}, priorities)
	// stable within a priority
	assert.Equal(t, "exaggeration", got[0].Type)
	assert.Equal(t, "tone", got[1].Type)
	assert.Equal(t, types.Suggestion{
		Type:       "unsupported_claim",
		Location:   "paragraph 2",
		Suggestion: "say 2 years",
		Priority:   "medium",
	}, got[3])
}

func TestContentValidator_SuggestImprovements_NoIssues(t *testing.T) {
	v := &ContentValidator{}
	assert.Equal(t, []types.Suggestion{}, v.SuggestImprovements(&types.ValidationResult{}))
	assert.Equal(t, []types.Suggestion{}, v.SuggestImprovements(nil))
}
