package types

// Severity and priority labels
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// ATSAnalysis scores how well an applicant tracking system would parse a letter
type ATSAnalysis struct {
	KeywordMatchScore float64         `json:"keyword_match_score"`
	ParseConfidence   float64         `json:"parse_confidence"`
	KeyTermsFound     []string        `json:"key_terms_found"`
	KeyTermsMissing   []string        `json:"key_terms_missing"`
	FormatIssues      []ATSIssue      `json:"format_issues"`
	HeadersAnalysis   map[string]bool `json:"headers_analysis"`
}

// ATSIssue is a parsing problem found by the scanner
type ATSIssue struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Suggestion  string `json:"suggestion"`
}

// ValidationResult reports whether letter claims are supported by the resume
type ValidationResult struct {
	Issues              []ValidationIssue   `json:"issues"`
	SupportedClaims     []map[string]string `json:"supported_claims"`
	RequirementCoverage map[string]bool     `json:"requirement_coverage"`
	ConfidenceScore     float64             `json:"confidence_score"`
}

// ValidationIssue is an unsupported claim, inconsistency or factual problem
type ValidationIssue struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
}

// TermAlignment compares technical terminology between the job description and the letter
type TermAlignment struct {
	JobTerms         map[string]TermVariant `json:"job_terms"`
	LetterTerms      map[string]TermVariant `json:"letter_terms"`
	MisalignedTerms  []map[string]string    `json:"misaligned_terms"`
	SuggestedChanges []map[string]string    `json:"suggested_changes"`
}

// TermVariant groups the spellings of one technical term
type TermVariant struct {
	Canonical string   `json:"canonical"`
	Variants  []string `json:"variants,omitempty"`
	Context   string   `json:"context,omitempty"`
}

// Suggestion is a deterministic follow-up derived from an ATS or validation result
type Suggestion struct {
	Type       string   `json:"type"`
	Details    string   `json:"details,omitempty"`
	Terms      []string `json:"terms,omitempty"`
	Location   string   `json:"location,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
	Priority   string   `json:"priority"`
}

// TermSuggestion proposes replacing a letter term with the job's canonical form
type TermSuggestion struct {
	Term            string `json:"term"`
	SuggestedUpdate string `json:"suggested_update"`
	Reason          string `json:"reason"`
	Context         string `json:"context"`
	Priority        string `json:"priority"`
}
