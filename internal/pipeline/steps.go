package pipeline

import "fmt"

// Step names reported in progress events
const (
	StepRetrieveContext     = "retrieve_context"
	StepLoadResume          = "load_resume"
	StepAnalyzeSkills       = "analyze_skills"
	StepAnalyzeRequirements = "analyze_requirements"
	StepComposeStrategy     = "compose_strategy"
	StepDraftLetter         = "draft_letter"
	StepGenerateLetter      = "generate_letter"
	StepScanATS             = "scan_ats"
	StepValidateContent     = "validate_content"
	StepStandardizeTerms    = "standardize_terms"
	StepAssemble            = "assemble"
)

// Step categories
const (
	CategoryContext    = "context"
	CategoryAnalysis   = "analysis"
	CategoryGeneration = "generation"
	CategoryReview     = "review"
)

// StepDefinition describes one pipeline step and the steps whose output it consumes
type StepDefinition struct {
	Name         string
	Category     string
	Dependencies []string
}

// StepRegistry holds every step definition
var StepRegistry = map[string]StepDefinition{
	StepRetrieveContext:     {Name: StepRetrieveContext, Category: CategoryContext},
	StepLoadResume:          {Name: StepLoadResume, Category: CategoryContext},
	StepAnalyzeSkills:       {Name: StepAnalyzeSkills, Category: CategoryAnalysis, Dependencies: []string{StepLoadResume}},
	StepAnalyzeRequirements: {Name: StepAnalyzeRequirements, Category: CategoryAnalysis},
	StepComposeStrategy: {
		Name:         StepComposeStrategy,
		Category:     CategoryAnalysis,
		Dependencies: []string{StepAnalyzeSkills, StepAnalyzeRequirements},
	},
	StepDraftLetter: {Name: StepDraftLetter, Category: CategoryGeneration, Dependencies: []string{StepRetrieveContext}},
	StepGenerateLetter: {
		Name:         StepGenerateLetter,
		Category:     CategoryGeneration,
		Dependencies: []string{StepComposeStrategy},
	},
	StepScanATS: {
		Name:         StepScanATS,
		Category:     CategoryReview,
		Dependencies: []string{StepDraftLetter, StepAnalyzeRequirements},
	},
	StepValidateContent: {
		Name:         StepValidateContent,
		Category:     CategoryReview,
		Dependencies: []string{StepDraftLetter, StepLoadResume},
	},
	StepStandardizeTerms: {Name: StepStandardizeTerms, Category: CategoryReview, Dependencies: []string{StepDraftLetter}},
	StepAssemble: {
		Name:         StepAssemble,
		Category:     CategoryReview,
		Dependencies: []string{StepScanATS, StepValidateContent, StepStandardizeTerms},
	},
}

// DependencyError reports a step that ran before one of its dependencies
type DependencyError struct {
	Step    string
	Missing []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("step %s is missing dependencies: %v", e.Step, e.Missing)
}

// ValidateDependencies checks that every dependency of step is in completed
func ValidateDependencies(step string, completed map[string]bool) error {
	def, ok := StepRegistry[step]
	if !ok {
		return fmt.Errorf("unknown step: %s", step)
	}
	var missing []string
	for _, dep := range def.Dependencies {
		if !completed[dep] {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return &DependencyError{Step: step, Missing: missing}
	}
	return nil
}

// CategoryOf returns the category of step, or "" when unknown
func CategoryOf(step string) string {
	return StepRegistry[step].Category
}
