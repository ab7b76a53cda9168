package schemas

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{
		ATSAnalysis,
		CoverLetter,
		CoverLetterStrategy,
		JobRequirements,
		SkillsAnalysis,
		TermAlignment,
		ValidationResult,
	}, Names())
}

func TestAllSchemas_Compile(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			raw, err := Describe(name)
			require.NoError(t, err)

			var v map[string]any
			require.NoError(t, json.Unmarshal([]byte(raw), &v))

			_, err = load(name)
			assert.NoError(t, err)
		})
	}
}

func TestDescribe_Unknown(t *testing.T) {
	_, err := Describe("nope")
	var loadErr *SchemaLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Contains(t, err.Error(), "nope.schema.json")
}

func TestValidate_SkillsAnalysis(t *testing.T) {
	valid := `{
		"technical_skills": [{"skill": "Go", "level": "expert", "years": 6, "context": "backend services"}],
		"soft_skills": [{"skill": "Mentoring", "evidence": "led onboarding"}],
		"achievements": [{"description": "Cut p99 latency", "metrics": "40%", "skills_demonstrated": ["Go"]}]
	}`
	assert.NoError(t, Validate(SkillsAnalysis, valid))

	nullYears := `{"technical_skills": [{"skill": "Go", "years": null}], "soft_skills": [], "achievements": []}`
	assert.NoError(t, Validate(SkillsAnalysis, nullYears))

	negative := `{"technical_skills": [{"skill": "Go", "years": -1}], "soft_skills": [], "achievements": []}`
	assert.Error(t, Validate(SkillsAnalysis, negative))

	missing := `{"technical_skills": []}`
	err := Validate(SkillsAnalysis, missing)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, SkillsAnalysis, vErr.Schema)
	assert.Len(t, vErr.Errors, 2)
}

func TestValidate_ATSAnalysisRanges(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{
			name: "valid",
			doc:  `{"keyword_match_score": 0.95, "parse_confidence": 1, "format_issues": [], "headers_analysis": {"contact_info": true}}`,
		},
		{
			name:    "score above one",
			doc:     `{"keyword_match_score": 1.2, "parse_confidence": 0.5, "headers_analysis": {}}`,
			wantErr: true,
		},
		{
			name:    "unknown severity",
			doc:     `{"keyword_match_score": 0.5, "parse_confidence": 0.5, "headers_analysis": {}, "format_issues": [{"type": "format", "description": "tables", "severity": "critical", "suggestion": "remove"}]}`,
			wantErr: true,
		},
		{
			name:    "header flag not boolean",
			doc:     `{"keyword_match_score": 0.5, "parse_confidence": 0.5, "headers_analysis": {"date": "yes"}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(ATSAnalysis, tt.doc)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_StrategyPriority(t *testing.T) {
	doc := `{
		"key_talking_points": [{"topic": "Go", "strategy": "lead", "evidence": "6 years", "priority": 6}],
		"overall_approach": "strength-first",
		"tone_recommendations": {"voice": "confident"}
	}`
	assert.Error(t, Validate(CoverLetterStrategy, doc))
}

func TestValidate_CoverLetterSection(t *testing.T) {
	doc := `{
		"greeting": "Dear Hiring Manager,",
		"introduction": {"purpose": "hook"},
		"body_paragraphs": [],
		"closing": {"content": "Thank you."},
		"signature": "Sam"
	}`
	err := Validate(CoverLetter, doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "introduction")
}

func TestValidate_MalformedJSON(t *testing.T) {
	err := Validate(TermAlignment, `{"job_terms": `)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.Errors[0].Message, "not valid JSON")
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type": "object", "required": ["id"], "properties": {"id": {"type": "string"}}}`

	assert.NoError(t, ValidateJSONString(schema, `{"id": "abc"}`))

	err := ValidateJSONString(schema, `{"id": 1}`)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "id", vErr.Errors[0].Field)
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{
		Schema: CoverLetter,
		Errors: []FieldError{{Field: "greeting", Message: "is required"}},
	}
	assert.Equal(t, "cover_letter validation failed: 1. greeting: is required", err.Error())
}
