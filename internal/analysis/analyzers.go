// Package analysis extracts structured skills and requirements and composes the letter strategy.
package analysis

import (
	"context"

	"github.com/jonathan/cover-letter-agent/internal/agent"
	"github.com/jonathan/cover-letter-agent/internal/llm"
	"github.com/jonathan/cover-letter-agent/internal/schemas"
	"github.com/jonathan/cover-letter-agent/internal/types"
)

// Agent names, used in errors, logs and metrics
const (
	SkillsAgentName       = "skills_analysis"
	RequirementsAgentName = "requirements_analysis"
	StrategyAgentName     = "strategy_analysis"
)

// SkillsAnalyzer extracts a SkillsAnalysis from resume text
type SkillsAnalyzer struct {
	agent *agent.Agent[types.SkillsAnalysis]
}

// NewSkillsAnalyzer creates the skills agent
func NewSkillsAnalyzer(rt agent.Runtime) (*SkillsAnalyzer, error) {
	a, err := agent.New[types.SkillsAnalysis](agent.Spec{
		Name:      SkillsAgentName,
		PromptKey: "analyze-skills",
		Required:  []string{"Resume"},
		Schema:    schemas.SkillsAnalysis,
		Tier:      llm.TierStandard,
	}, rt)
	if err != nil {
		return nil, err
	}
	return &SkillsAnalyzer{agent: a}, nil
}

// Analyze extracts skills, soft skills and achievements from resume
func (s *SkillsAnalyzer) Analyze(ctx context.Context, resume string) (*types.SkillsAnalysis, error) {
	out, err := s.agent.Invoke(ctx, map[string]string{"Resume": resume})
	if err != nil {
		return nil, err
	}
	if out.TechnicalSkills == nil {
		out.TechnicalSkills = []types.TechnicalSkill{}
	}
	if out.SoftSkills == nil {
		out.SoftSkills = []types.SoftSkill{}
	}
	if out.Achievements == nil {
		out.Achievements = []types.Achievement{}
	}
	return out, nil
}

// RequirementsAnalyzer extracts JobRequirements from a job description
type RequirementsAnalyzer struct {
	agent *agent.Agent[types.JobRequirements]
}

// NewRequirementsAnalyzer creates the requirements agent
func NewRequirementsAnalyzer(rt agent.Runtime) (*RequirementsAnalyzer, error) {
	a, err := agent.New[types.JobRequirements](agent.Spec{
		Name:      RequirementsAgentName,
		PromptKey: "analyze-requirements",
		Required:  []string{"JobDescription"},
		Schema:    schemas.JobRequirements,
		Tier:      llm.TierStandard,
	}, rt)
	if err != nil {
		return nil, err
	}
	return &RequirementsAnalyzer{agent: a}, nil
}

// Analyze extracts core requirements, nice-to-haves, culture and responsibilities
func (r *RequirementsAnalyzer) Analyze(ctx context.Context, jobDescription string) (*types.JobRequirements, error) {
	out, err := r.agent.Invoke(ctx, map[string]string{"JobDescription": jobDescription})
	if err != nil {
		return nil, err
	}
	if out.CoreRequirements == nil {
		out.CoreRequirements = []types.Requirement{}
	}
	if out.NiceToHave == nil {
		out.NiceToHave = []types.NiceToHave{}
	}
	if out.CultureIndicators == nil {
		out.CultureIndicators = []types.CultureIndicator{}
	}
	if out.KeyResponsibilities == nil {
		out.KeyResponsibilities = []types.Responsibility{}
	}
	return out, nil
}
