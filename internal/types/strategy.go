package types

// SkillGapAnalysis partitions core requirements by how well the candidate covers them.
// Each requirement lands in exactly one bucket.
type SkillGapAnalysis struct {
	MissingSkills  []MissingSkill `json:"missing_skills"`
	PartialMatches []PartialMatch `json:"partial_matches"`
	StrongMatches  []StrongMatch  `json:"strong_matches"`
}

// MissingSkill is a required skill the candidate does not list
type MissingSkill struct {
	Skill           string  `json:"skill"`
	Description     string  `json:"description,omitempty"`
	YearsExperience float64 `json:"years_experience"`
}

// PartialMatch is a listed skill with fewer years than required. Gap is always positive.
type PartialMatch struct {
	Skill               string  `json:"skill"`
	Gap                 float64 `json:"gap"`
	CandidateExperience float64 `json:"candidate_experience"`
	RequiredExperience  float64 `json:"required_experience"`
}

// StrongMatch is a listed skill meeting or exceeding the required years
type StrongMatch struct {
	Skill               string  `json:"skill"`
	CandidateExperience float64 `json:"candidate_experience"`
	RequiredExperience  float64 `json:"required_experience"`
}

// Total returns the number of classified requirements
func (g SkillGapAnalysis) Total() int {
	return len(g.MissingSkills) + len(g.PartialMatches) + len(g.StrongMatches)
}

// CoverLetterStrategy combines the skill gap analysis with the talking points for the letter
type CoverLetterStrategy struct {
	GapAnalysis         SkillGapAnalysis  `json:"gap_analysis"`
	KeyTalkingPoints    []TalkingPoint    `json:"key_talking_points"`
	OverallApproach     string            `json:"overall_approach"`
	ToneRecommendations map[string]string `json:"tone_recommendations"`
}

// TalkingPoint is one argument the letter should make. Priority runs from 1 (highest) to 5.
type TalkingPoint struct {
	Topic    string `json:"topic"`
	Strategy string `json:"strategy"`
	Evidence string `json:"evidence"`
	Priority int    `json:"priority"`
}

// IsEmpty reports whether the strategy gives the writer nothing to work with
func (s *CoverLetterStrategy) IsEmpty() bool {
	return s == nil || (len(s.KeyTalkingPoints) == 0 && s.OverallApproach == "" && len(s.ToneRecommendations) == 0)
}
