package review

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonathan/cover-letter-agent/internal/agent"
	"github.com/jonathan/cover-letter-agent/internal/llm"
	"github.com/jonathan/cover-letter-agent/internal/schemas"
	"github.com/jonathan/cover-letter-agent/internal/types"
)

// Keys of a misaligned_terms entry
const (
	MisalignedCurrent   = "current"
	MisalignedCanonical = "canonical"
)

const termReason = "Match job description terminology"

// TermStandardizer aligns the technical terms of a letter with the job description
type TermStandardizer struct {
	agent *agent.Agent[types.TermAlignment]
}

// NewTermStandardizer creates the terminology agent
func NewTermStandardizer(rt agent.Runtime) (*TermStandardizer, error) {
	a, err := agent.New[types.TermAlignment](agent.Spec{
		Name:      TerminologyAgentName,
		PromptKey: "standardize-terms",
		Required:  []string{"JobDescription", "CoverLetter"},
		Schema:    schemas.TermAlignment,
		Tier:      llm.TierLite,
	}, rt)
	if err != nil {
		return nil, err
	}
	return &TermStandardizer{agent: a}, nil
}

// Standardize compares the terminology of letter with the job description. techContext is
// optional extra context for the model. Nil inputs fail with KindInputNull, blank ones with
// KindInputEmpty.
func (s *TermStandardizer) Standardize(ctx context.Context, jobDescription, letter *string, techContext map[string]string) (*types.TermAlignment, error) {
	if err := checkInputs(TerminologyAgentName,
		namedInput{"job_description", jobDescription},
		namedInput{"cover_letter", letter},
	); err != nil {
		return nil, err
	}
	if techContext == nil {
		techContext = map[string]string{}
	}
	contextJSON, err := json.Marshal(techContext)
	if err != nil {
		return nil, agent.Wrap(agent.KindProcessing, TerminologyAgentName, fmt.Errorf("encode context: %w", err))
	}

	out, err := s.agent.Invoke(ctx, map[string]string{
		"JobDescription": *jobDescription,
		"CoverLetter":    *letter,
		"Context":        string(contextJSON),
	})
	if err != nil {
		return nil, err
	}
	if out.JobTerms == nil {
		out.JobTerms = map[string]types.TermVariant{}
	}
	if out.LetterTerms == nil {
		out.LetterTerms = map[string]types.TermVariant{}
	}
	if out.MisalignedTerms == nil {
		out.MisalignedTerms = []map[string]string{}
	}
	if out.SuggestedChanges == nil {
		out.SuggestedChanges = []map[string]string{}
	}
	return out, nil
}

// SuggestTermUpdates emits one suggestion per misaligned pair that names both the current
// and the canonical term. Priority is high when the current term is itself a key of
// job_terms, medium otherwise. Context comes from the canonical job term when known.
func (s *TermStandardizer) SuggestTermUpdates(alignment *types.TermAlignment) []types.TermSuggestion {
	suggestions := []types.TermSuggestion{}
	if alignment == nil {
		return suggestions
	}
	for _, m := range alignment.MisalignedTerms {
		current, canonical := m[MisalignedCurrent], m[MisalignedCanonical]
		if current == "" || canonical == "" {
			continue
		}

		termContext := ""
		if v, ok := alignment.JobTerms[canonical]; ok {
			termContext = v.Context
		}
		priority := types.PriorityMedium
		if _, ok := alignment.JobTerms[current]; ok {
			priority = types.PriorityHigh
		}

		suggestions = append(suggestions, types.TermSuggestion{
			Term:            current,
			SuggestedUpdate: canonical,
			Reason:          termReason,
			Context:         termContext,
			Priority:        priority,
		})
	}
	return suggestions
}

// TermSuggestionsAsSuggestions converts term suggestions to the common suggestion shape
func TermSuggestionsAsSuggestions(in []types.TermSuggestion) []types.Suggestion {
	out := make([]types.Suggestion, 0, len(in))
	for _, s := range in {
		out = append(out, types.Suggestion{
			Type:       SuggestionTermUpdate,
			Details:    s.Reason,
			Terms:      []string{s.Term},
			Suggestion: s.SuggestedUpdate,
			Priority:   s.Priority,
		})
	}
	return out
}

// ApplyTermSuggestions replaces every whole-word, case-sensitive occurrence of each
// suggested term in text with its canonical form. Text is scanned once, so a replacement is
// never rewritten by another suggestion. Where terms overlap the longer one wins, which
// replaces "Amazon Web Services" before "Amazon"; among equal terms the first suggestion wins.
func ApplyTermSuggestions(text string, suggestions []types.TermSuggestion) string {
	ordered := make([]types.TermSuggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if s.Term != "" {
			ordered = append(ordered, s)
		}
	}
	if len(ordered) == 0 {
		return text
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].Term) > len(ordered[j].Term)
	})

	var sb strings.Builder
	copied := 0
	for i := 0; i < len(text); {
		if s, ok := termAt(text, i, ordered); ok {
			sb.WriteString(text[copied:i])
			sb.WriteString(s.SuggestedUpdate)
			i += len(s.Term)
			copied = i
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	sb.WriteString(text[copied:])
	return sb.String()
}

// termAt returns the first suggestion whose term occurs as a whole word at text[i:].
func termAt(text string, i int, ordered []types.TermSuggestion) (types.TermSuggestion, bool) {
	if i > 0 {
		if before, _ := utf8.DecodeLastRuneInString(text[:i]); isWordRune(before) {
			return types.TermSuggestion{}, false
		}
	}
	for _, s := range ordered {
		if !strings.HasPrefix(text[i:], s.Term) {
			continue
		}
		end := i + len(s.Term)
		if end < len(text) {
			if after, _ := utf8.DecodeRuneInString(text[end:]); isWordRune(after) {
				continue
			}
		}
		return s, true
	}
	return types.TermSuggestion{}, false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
