package server

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/cover-letter-agent/internal/db"
	"github.com/jonathan/cover-letter-agent/internal/llm"
)

const (
	skillsJSON = `{
		"technical_skills": [{"skill": "Go", "level": "expert", "years": 6}, {"skill": "Kubernetes", "years": 1}],
		"soft_skills": [{"skill": "Mentoring"}],
		"achievements": [{"description": "Cut p99 latency by 40%"}]
	}`
	requirementsJSON = `{
		"core_requirements": [{"skill": "Go", "years_experience": 3}, {"skill": "Terraform", "years_experience": 1}],
		"nice_to_have": [],
		"culture_indicators": [{"aspect": "ownership"}],
		"key_responsibilities": [{"responsibility": "Run the platform"}]
	}`
	strategyJSON = `{
		"key_talking_points": [{"topic": "Go", "strategy": "lead with depth", "evidence": "6 years", "priority": 1}],
		"overall_approach": "strength-first",
		"tone_recommendations": {"voice": "confident"}
	}`
	letterJSON = `{
		"greeting": "Dear Hiring Manager,",
		"introduction": {"content": "I am applying for the Platform Engineer role."},
		"body_paragraphs": [{"content": "I have run Go services for six years."}],
		"closing": {"content": "Thank you."},
		"signature": "Sam Rivera"
	}`
	atsJSON = `{
		"keyword_match_score": 0.6,
		"parse_confidence": 0.9,
		"key_terms_found": ["Go"],
		"key_terms_missing": ["Terraform"],
		"format_issues": [],
		"headers_analysis": {"contact_info": true}
	}`
	validationJSON = `{
		"issues": [],
		"supported_claims": ["six years of Go"],
		"requirement_coverage": {"Go": true},
		"confidence_score": 0.8
	}`
	termsJSON = `{
		"job_terms": {"Kubernetes": {"canonical": "Kubernetes", "context": "orchestration"}},
		"letter_terms": {"k8s": {"canonical": "Kubernetes"}},
		"misaligned_terms": [{"current": "k8s", "canonical": "Kubernetes"}],
		"suggested_changes": []
	}`
	draftText = "Dear Hiring Manager,\n\nI run Go services on k8s every day.\n\nSam"
)

// MockLLMClient answers each agent by the opening line of its prompt
type MockLLMClient struct {
	// Fail makes the agent whose prompt starts with this prefix return Err
	Fail string
	Err  error

	mu    sync.Mutex
	calls int
}

var responses = []struct {
	prefix string
	body   string
}{
	{"You are an expert skills analyst", skillsJSON},
	{"You are an expert job-requirements analyst", requirementsJSON},
	{"You are an expert cover letter strategist", strategyJSON},
	{"You are an expert cover letter writer who connects", letterJSON},
	{"You are revising a cover letter", letterJSON},
	{"You are an applicant tracking system", atsJSON},
	{"You are a content validation expert", validationJSON},
	{"You are a technical terminology expert", termsJSON},
}

func (m *MockLLMClient) record(prompt string) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Fail != "" && strings.HasPrefix(prompt, m.Fail) {
		return m.Err
	}
	return nil
}

func (m *MockLLMClient) GenerateContent(_ context.Context, prompt string, _ llm.ModelTier, _ ...llm.CallOption) (string, error) {
	if err := m.record(prompt); err != nil {
		return "", err
	}
	return draftText, nil
}

func (m *MockLLMClient) GenerateJSON(_ context.Context, prompt string, _ llm.ModelTier, _ ...llm.CallOption) (string, error) {
	if err := m.record(prompt); err != nil {
		return "", err
	}
	for _, r := range responses {
		if strings.HasPrefix(prompt, r.prefix) {
			return r.body, nil
		}
	}
	return "{}", nil
}

func (m *MockLLMClient) GetModel(tier llm.ModelTier) string {
	return "mock-" + string(tier)
}

func (m *MockLLMClient) Close() error {
	return nil
}

func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// wordEmbedder counts a few fixed words so similar texts land close together
type wordEmbedder struct{}

var embedWords = []string{"go", "kubernetes", "platform", "letter"}

func (wordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	v := make([]float32, len(embedWords)+1)
	for i, w := range embedWords {
		v[i] = float32(strings.Count(lower, w))
	}
	v[len(embedWords)] = 0.01
	return v, nil
}

func (wordEmbedder) Model() string {
	return "word-embedder"
}

// mockResumes keeps resumes in memory
type mockResumes struct {
	mu      sync.Mutex
	resumes map[string]*db.Resume
	latest  string
}

func newMockResumes() *mockResumes {
	return &mockResumes{resumes: make(map[string]*db.Resume)}
}

func (m *mockResumes) SaveResume(_ context.Context, id, content string, metadata map[string]string) (*db.Resume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if strings.TrimSpace(id) == "" {
		id = db.DefaultResumeID
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	now := time.Now().UTC()
	r := &db.Resume{ID: id, Content: content, Metadata: metadata, CreatedAt: now, UpdatedAt: now}
	if prev, ok := m.resumes[id]; ok {
		r.CreatedAt = prev.CreatedAt
	}
	m.resumes[id] = r
	m.latest = id
	return r, nil
}

func (m *mockResumes) GetResume(_ context.Context, id string) (*db.Resume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resumes[id], nil
}

func (m *mockResumes) GetActiveResume(_ context.Context) (*db.Resume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latest == "" {
		return nil, nil
	}
	return m.resumes[m.latest], nil
}

func (m *mockResumes) DeleteResume(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resumes[id]; !ok {
		return fmt.Errorf("resume %s: %w", id, db.ErrNotFound)
	}
	delete(m.resumes, id)
	if m.latest == id {
		m.latest = ""
	}
	return nil
}

// mockPinger fails with err when set
type mockPinger struct {
	err error
}

func (p mockPinger) Ping(context.Context) error {
	return p.err
}
