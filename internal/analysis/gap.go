package analysis

import (
	"strings"

	"github.com/jonathan/cover-letter-agent/internal/types"
)

// MatchSkills classifies every core requirement against the candidate's skills.
//
// Names are compared case-insensitively after trimming. Technical skills contribute their
// years (the largest value wins for duplicates); soft skills count as present with 0 years.
// A requirement is missing when the candidate does not list it, partial when the candidate
// has fewer years than required, and strong otherwise. Output keeps requirement order and
// the requirement's own spelling of the skill. Requirements naming the same skill are
// classified once: at the position of the first, with the details of the last.
func MatchSkills(skills *types.SkillsAnalysis, reqs *types.JobRequirements) types.SkillGapAnalysis {
	gap := types.SkillGapAnalysis{
		MissingSkills:  []types.MissingSkill{},
		PartialMatches: []types.PartialMatch{},
		StrongMatches:  []types.StrongMatch{},
	}
	if reqs == nil {
		return gap
	}

	candidate := candidateYears(skills)
	for _, req := range dedupeRequirements(reqs.CoreRequirements) {
		required := nonNegative(req.YearsExperience)
		years, ok := candidate[normalizeSkill(req.Skill)]
		switch {
		case !ok:
			gap.MissingSkills = append(gap.MissingSkills, types.MissingSkill{
				Skill:           req.Skill,
				Description:     req.Description,
				YearsExperience: required,
			})
		case years < required:
			gap.PartialMatches = append(gap.PartialMatches, types.PartialMatch{
				Skill:               req.Skill,
				Gap:                 required - years,
				CandidateExperience: years,
				RequiredExperience:  required,
			})
		default:
			gap.StrongMatches = append(gap.StrongMatches, types.StrongMatch{
				Skill:               req.Skill,
				CandidateExperience: years,
				RequiredExperience:  required,
			})
		}
	}
	return gap
}

func dedupeRequirements(in []types.Requirement) []types.Requirement {
	index := make(map[string]int, len(in))
	out := make([]types.Requirement, 0, len(in))
	for _, req := range in {
		key := normalizeSkill(req.Skill)
		if i, ok := index[key]; ok {
			out[i] = req
			continue
		}
		index[key] = len(out)
		out = append(out, req)
	}
	return out
}

func candidateYears(skills *types.SkillsAnalysis) map[string]float64 {
	out := make(map[string]float64)
	if skills == nil {
		return out
	}
	for _, s := range skills.TechnicalSkills {
		key := normalizeSkill(s.Skill)
		if key == "" {
			continue
		}
		years := nonNegative(s.Years)
		if prev, ok := out[key]; !ok || years > prev {
			out[key] = years
		}
	}
	for _, s := range skills.SoftSkills {
		key := normalizeSkill(s.Skill)
		if key == "" {
			continue
		}
		if _, ok := out[key]; !ok {
			out[key] = 0
		}
	}
	return out
}

func normalizeSkill(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
