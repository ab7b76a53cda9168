// Package types defines the structured records exchanged between agents.
//
//nolint:revive // types is a standard Go package name pattern
package types

// SkillsAnalysis is the candidate profile extracted from resume text
type SkillsAnalysis struct {
	TechnicalSkills []TechnicalSkill `json:"technical_skills"`
	SoftSkills      []SoftSkill      `json:"soft_skills"`
	Achievements    []Achievement    `json:"achievements"`
}

// TechnicalSkill is a hard skill with proficiency and experience.
// Years decodes to 0 when the model omits it or returns null.
type TechnicalSkill struct {
	Skill   string  `json:"skill"`
	Level   string  `json:"level,omitempty"`
	Years   float64 `json:"years"`
	Context string  `json:"context,omitempty"`
}

// SoftSkill is an interpersonal skill with supporting evidence
type SoftSkill struct {
	Skill    string `json:"skill"`
	Evidence string `json:"evidence,omitempty"`
}

// Achievement is a quantifiable accomplishment
type Achievement struct {
	Description        string   `json:"description"`
	Metrics            string   `json:"metrics,omitempty"`
	SkillsDemonstrated []string `json:"skills_demonstrated,omitempty"`
}

// IsEmpty reports whether no skill or achievement was extracted
func (s *SkillsAnalysis) IsEmpty() bool {
	return s == nil || (len(s.TechnicalSkills) == 0 && len(s.SoftSkills) == 0 && len(s.Achievements) == 0)
}

// JobRequirements is the structured view of a job description
type JobRequirements struct {
	CoreRequirements    []Requirement      `json:"core_requirements"`
	NiceToHave          []NiceToHave       `json:"nice_to_have"`
	CultureIndicators   []CultureIndicator `json:"culture_indicators"`
	KeyResponsibilities []Responsibility   `json:"key_responsibilities"`
}

// Requirement is a core skill requirement. YearsExperience is 0 when unstated.
type Requirement struct {
	Skill           string  `json:"skill"`
	Description     string  `json:"description,omitempty"`
	YearsExperience float64 `json:"years_experience"`
}

// NiceToHave is an optional skill
type NiceToHave struct {
	Skill       string `json:"skill"`
	Description string `json:"description,omitempty"`
}

// CultureIndicator is a team or company culture signal
type CultureIndicator struct {
	Aspect      string `json:"aspect"`
	Description string `json:"description,omitempty"`
}

// Responsibility is a key duty of the role
type Responsibility struct {
	Responsibility string `json:"responsibility"`
	Description    string `json:"description,omitempty"`
}

// IsEmpty reports whether the analysis carries no requirement of any kind
func (r *JobRequirements) IsEmpty() bool {
	return r == nil || (len(r.CoreRequirements) == 0 && len(r.NiceToHave) == 0 &&
		len(r.CultureIndicators) == 0 && len(r.KeyResponsibilities) == 0)
}
