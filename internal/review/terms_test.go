package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cover-letter-agent/internal/agent"
	"github.com/jonathan/cover-letter-agent/internal/llm"
	"github.com/jonathan/cover-letter-agent/internal/types"
)

func TestTermStandardizer_Standardize(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
			assert.Equal(t, llm.TierLite, tier)
			assert.Contains(t, prompt, "Additional Context:\n{}")
			return `{
				"job_terms": {"Kubernetes": {"canonical": "Kubernetes", "variants": ["k8s"], "context": "container orchestration"}},
				"letter_terms": {"k8s": {"canonical": "Kubernetes"}},
				"misaligned_terms": [{"current": "k8s", "canonical": "Kubernetes"}],
				"suggested_changes": []
			}`, nil
		},
	}
	s, err := NewTermStandardizer(agent.Runtime{Client: client})
	require.NoError(t, err)

	out, err := s.Standardize(context.Background(), ptr("Kubernetes required"), ptr("I run k8s"), nil)
	require.NoError(t, err)
	assert.Equal(t, "container orchestration", out.JobTerms["Kubernetes"].Context)
	assert.Len(t, out.MisalignedTerms, 1)
}

func TestTermStandardizer_NullBeforeEmpty(t *testing.T) {
	client := &MockLLMClient{}
	s, err := NewTermStandardizer(agent.Runtime{Client: client})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Standardize(ctx, ptr(""), nil, nil)
	assert.Equal(t, agent.KindInputNull, agent.KindOf(err))

	_, err = s.Standardize(ctx, nil, ptr("letter"), nil)
	assert.Equal(t, agent.KindInputNull, agent.KindOf(err))

	_, err = s.Standardize(ctx, ptr(""), ptr("letter"), nil)
	assert.Equal(t, agent.KindInputEmpty, agent.KindOf(err))

	_, err = s.Standardize(ctx, ptr("job"), ptr("   "), nil)
	assert.Equal(t, agent.KindInputEmpty, agent.KindOf(err))

	assert.Zero(t, client.calls.Load())
}

func TestSuggestTermUpdates(t *testing.T) {
	alignment := &types.TermAlignment{
		JobTerms: map[string]types.TermVariant{
			"Kubernetes": {Canonical: "Kubernetes", Context: "container orchestration"},
			"JS":         {Canonical: "JS"},
			"JavaScript": {Canonical: "JavaScript"},
		},
		MisalignedTerms: []map[string]string{
			{"current": "k8s", "canonical": "Kubernetes"},
			{"current": "JS", "canonical": "JavaScript"},
			{"current": "golang"},
			{"canonical": "AWS"},
			{"current": "py", "canonical": "Python"},
		},
	}

	got := (&TermStandardizer{}).SuggestTermUpdates(alignment)
	require.Len(t, got, 3)

	assert.Equal(t, types.TermSuggestion{
		Term:            "k8s",
		SuggestedUpdate: "Kubernetes",
		Reason:          "Match job description terminology",
		Context:         "container orchestration",
		Priority:        types.PriorityMedium,
	}, got[0])
	assert.Equal(t, "JS", got[1].Term)
	assert.Equal(t, types.PriorityHigh, got[1].Priority)
	assert.Equal(t, "", got[2].Context)
	assert.Equal(t, types.PriorityMedium, got[2].Priority)
}

func TestSuggestTermUpdates_Empty(t *testing.T) {
	s := &TermStandardizer{}
	assert.Equal(t, []types.TermSuggestion{}, s.SuggestTermUpdates(&types.TermAlignment{}))
	assert.Equal(t, []types.TermSuggestion{}, s.SuggestTermUpdates(nil))
}

func TestApplyTermSuggestions(t *testing.T) {
	suggestions := []types.TermSuggestion{
		{Term: "k8s", SuggestedUpdate: "Kubernetes"},
		{Term: "JS", SuggestedUpdate: "JavaScript"},
		{Term: "Amazon", SuggestedUpdate: "AWS"},
		{Term: "Amazon Web Services", SuggestedUpdate: "AWS"},
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"whole words only", "I run k8s and k8s-based JS, not JSON.", "I run Kubernetes and Kubernetes-based JavaScript, not JSON."},
		{"longest term first", "Deployed on Amazon Web Services.", "Deployed on AWS."},
		{"case sensitive", "js and K8S stay", "js and K8S stay"},
		{"start and end of text", "JS", "JavaScript"},
		{"adjacent to unicode letters", "éJS k8s", "éJS Kubernetes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyTermSuggestions(tt.in, suggestions))
		})
	}
}

func TestApplyTermSuggestions_ReplacementsAreNotRewritten(t *testing.T) {
	tests := []struct {
		name        string
		suggestions []types.TermSuggestion
		in          string
		want        string
	}{
		{
			"canonical form contains another term",
			[]types.TermSuggestion{
				{Term: "k8s", SuggestedUpdate: "Kubernetes (K8s)"},
				{Term: "K8s", SuggestedUpdate: "Kubernetes"},
			},
			"k8s and K8s",
			"Kubernetes (K8s) and Kubernetes",
		},
		{
			"swapped terms",
			[]types.TermSuggestion{
				{Term: "JS", SuggestedUpdate: "JavaScript"},
				{Term: "JavaScript", SuggestedUpdate: "JS"},
			},
			"JS and JavaScript",
			"JavaScript and JS",
		},
		{
			"unchanged long term shields shorter one",
			[]types.TermSuggestion{
				{Term: "Amazon Web Services", SuggestedUpdate: "Amazon Web Services"},
				{Term: "Amazon", SuggestedUpdate: "AWS"},
			},
			"Amazon Web Services, not Amazon",
			"Amazon Web Services, not AWS",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyTermSuggestions(tt.in, tt.suggestions))
		})
	}
}

func TestApplyTermSuggestions_NoOp(t *testing.T) {
	text := "Go and Rust"
	assert.Equal(t, text, ApplyTermSuggestions(text, nil))
	assert.Equal(t, text, ApplyTermSuggestions(text, []types.TermSuggestion{{Term: "Go", SuggestedUpdate: "Go"}, {Term: ""}}))
}

func TestTermSuggestionsAsSuggestions(t *testing.T) {
	got := TermSuggestionsAsSuggestions([]types.TermSuggestion{
		{Term: "k8s", SuggestedUpdate: "Kubernetes", Reason: "Match job description terminology", Priority: "high"},
	})
	assert.Equal(t, []types.Suggestion{{
		Type:       SuggestionTermUpdate,
		Details:    "Match job description terminology",
		Terms:      []string{"k8s"},
		Suggestion: "Kubernetes",
		Priority:   "high",
	}}, got)
}
