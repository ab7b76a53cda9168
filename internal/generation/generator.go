// Package generation writes, refines and formats cover letters.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/cover-letter-agent/internal/agent"
	"github.com/jonathan/cover-letter-agent/internal/llm"
	"github.com/jonathan/cover-letter-agent/internal/schemas"
	"github.com/jonathan/cover-letter-agent/internal/types"
)

// Agent names
const (
	GenerateAgentName = "cover_letter_generation"
	RefineAgentName   = "cover_letter_refinement"
	DraftAgentName    = "cover_letter_draft"
)

// DefaultTemperature is the sampling temperature for letter writing
const DefaultTemperature = 0.7

// DefaultStrategyType is recorded when the strategy names no overall approach
const DefaultStrategyType = "standard"

// Metadata keys added to generated letters
const (
	MetaModel            = "model"
	MetaTemperature      = "temperature"
	MetaStrategyType     = "strategy_type"
	MetaRefined          = "refined"
	MetaOriginalMetadata = "original_metadata"
)

// Generator produces CoverLetter records
type Generator struct {
	generate *agent.Agent[types.CoverLetter]
	refine   *agent.Agent[types.CoverLetter]
	draft    *agent.TextAgent
}

// New creates a generator. A zero temperature uses DefaultTemperature.
func New(rt agent.Runtime, temperature float64) (*Generator, error) {
	if temperature == 0 {
		temperature = DefaultTemperature
	}

	gen, err := agent.New[types.CoverLetter](agent.Spec{
		Name:        GenerateAgentName,
		PromptKey:   "generate-cover-letter",
		Required:    []string{"SkillsAnalysis", "RequirementsAnalysis", "Strategy"},
		Schema:      schemas.CoverLetter,
		Tier:        llm.TierAdvanced,
		Temperature: temperature,
	}, rt)
	if err != nil {
		return nil, err
	}

	ref, err := agent.New[types.CoverLetter](agent.Spec{
		Name:        RefineAgentName,
		PromptKey:   "refine-cover-letter",
		Required:    []string{"Letter", "Feedback"},
		Schema:      schemas.CoverLetter,
		Tier:        llm.TierAdvanced,
		Temperature: temperature,
	}, rt)
	if err != nil {
		return nil, err
	}

	draft, err := agent.NewText(agent.Spec{
		Name:        DraftAgentName,
		PromptKey:   "draft-cover-letter",
		Required:    []string{"JobDescription"},
		Tier:        llm.TierAdvanced,
		Temperature: temperature,
	}, rt)
	if err != nil {
		return nil, err
	}

	return &Generator{generate: gen, refine: ref, draft: draft}, nil
}

// Generate writes a letter following strategy. Preferences may be nil.
// The returned metadata keeps whatever the model wrote and adds model, temperature and
// strategy_type.
func (g *Generator) Generate(ctx context.Context, skills *types.SkillsAnalysis, reqs *types.JobRequirements, strategy *types.CoverLetterStrategy, prefs map[string]any) (*types.CoverLetter, error) {
	switch {
	case skills == nil || skills.IsEmpty():
		return nil, missingAnalysis("skills_analysis")
	case reqs == nil || reqs.IsEmpty():
		return nil, missingAnalysis("requirements_analysis")
	case strategy == nil || strategy.IsEmpty():
		return nil, missingAnalysis("strategy")
	}
	if prefs == nil {
		prefs = map[string]any{}
	}

	inputs := map[string]string{}
	for key, v := range map[string]any{
		"SkillsAnalysis":       skills,
		"RequirementsAnalysis": reqs,
		"Strategy":             strategy,
		"Preferences":          prefs,
	} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, agent.Wrap(agent.KindProcessing, GenerateAgentName, fmt.Errorf("encode %s: %w", key, err))
		}
		inputs[key] = string(b)
	}

	letter, err := g.generate.Invoke(ctx, inputs)
	if err != nil {
		return nil, err
	}

	strategyType := strings.TrimSpace(strategy.OverallApproach)
	if strategyType == "" {
		strategyType = DefaultStrategyType
	}
	if letter.Metadata == nil {
		letter.Metadata = map[string]any{}
	}
	letter.Metadata[MetaModel] = g.generate.Model()
	letter.Metadata[MetaTemperature] = strconv.FormatFloat(g.generate.Temperature(), 'f', -1, 64)
	letter.Metadata[MetaStrategyType] = strategyType
	normalize(letter)
	return letter, nil
}

// Refine rewrites letter to address feedback. The result is a new letter whose metadata
// carries refined=true and the full previous metadata under original_metadata.
func (g *Generator) Refine(ctx context.Context, letter *types.CoverLetter, feedback map[string]string) (*types.CoverLetter, error) {
	if letter == nil {
		return nil, agent.InvalidInput(RefineAgentName, "cover_letter")
	}
	if len(feedback) == 0 {
		return nil, agent.InvalidInput(RefineAgentName, "feedback")
	}
	feedbackJSON, err := json.Marshal(feedback)
	if err != nil {
		return nil, agent.Wrap(agent.KindProcessing, RefineAgentName, fmt.Errorf("encode feedback: %w", err))
	}

	refined, err := g.refine.Invoke(ctx, map[string]string{
		"Letter":   Transcript(letter),
		"Feedback": string(feedbackJSON),
	})
	if err != nil {
		return nil, err
	}

	if refined.Metadata == nil {
		refined.Metadata = map[string]any{}
	}
	refined.Metadata[MetaRefined] = "true"
	refined.Metadata[MetaOriginalMetadata] = types.CloneMetadata(letter.Metadata)
	normalize(refined)
	return refined, nil
}

// Draft writes a plain-text letter from the job description and retrieved context documents.
func (g *Generator) Draft(ctx context.Context, jobDescription string, contextDocs []string, prefs map[string]any) (string, error) {
	if prefs == nil {
		prefs = map[string]any{}
	}
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return "", agent.Wrap(agent.KindProcessing, DraftAgentName, fmt.Errorf("encode preferences: %w", err))
	}
	return g.draft.Invoke(ctx, map[string]string{
		"JobDescription": jobDescription,
		"Context":        strings.Join(contextDocs, "\n\n"),
		"Preferences":    string(prefsJSON),
	})
}

// Model returns the model that writes letters
func (g *Generator) Model() string {
	return g.generate.Model()
}

// Transcript renders letter as readable text for the refinement prompt
func Transcript(letter *types.CoverLetter) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Greeting: %s\n", letter.Greeting)
	fmt.Fprintf(&sb, "Introduction: %s\n", letter.Introduction.Content)
	fmt.Fprintf(&sb, "Purpose: %s\n", letter.Introduction.Purpose)
	fmt.Fprintf(&sb, "Key Points: %s\n", strings.Join(letter.Introduction.KeyPoints, ", "))
	sb.WriteString("Body paragraphs:\n")
	for _, p := range letter.BodyParagraphs {
		fmt.Fprintf(&sb, "- %s (Purpose: %s)\n", p.Content, p.Purpose)
	}
	fmt.Fprintf(&sb, "Closing: %s\n", letter.Closing.Content)
	fmt.Fprintf(&sb, "Purpose: %s\n", letter.Closing.Purpose)
	fmt.Fprintf(&sb, "Key Points: %s\n", strings.Join(letter.Closing.KeyPoints, ", "))
	fmt.Fprintf(&sb, "Signature: %s", letter.Signature)
	return sb.String()
}

// Format renders letter as plain text: greeting, introduction, each body paragraph, closing
// and signature separated by blank lines. Purposes and key points are dropped. Only the
// "standard" style exists; other styles render the same way.
func Format(letter *types.CoverLetter, style string) string {
	if letter == nil {
		return ""
	}
	parts := make([]string, 0, len(letter.BodyParagraphs)+4)
	parts = append(parts, letter.Greeting, letter.Introduction.Content)
	for _, p := range letter.BodyParagraphs {
		parts = append(parts, p.Content)
	}
	parts = append(parts, letter.Closing.Content, letter.Signature)
	return strings.Join(parts, "\n\n")
}

func normalize(letter *types.CoverLetter) {
	if letter.BodyParagraphs == nil {
		letter.BodyParagraphs = []types.Section{}
	}
}

func missingAnalysis(field string) error {
	return &agent.Error{
		Kind:  agent.KindMissingAnalysis,
		Agent: GenerateAgentName,
		Field: field,
		Err:   errors.New("required analysis data is missing"),
	}
}
