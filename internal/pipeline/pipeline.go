// Package pipeline orchestrates retrieval, analysis, generation and review into the
// end-to-end cover letter flows.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/cover-letter-agent/internal/agent"
	"github.com/jonathan/cover-letter-agent/internal/analysis"
	"github.com/jonathan/cover-letter-agent/internal/db"
	"github.com/jonathan/cover-letter-agent/internal/generation"
	"github.com/jonathan/cover-letter-agent/internal/retrieval"
	"github.com/jonathan/cover-letter-agent/internal/review"
	"github.com/jonathan/cover-letter-agent/internal/types"
)

// Name identifies the pipeline in errors and logs
const Name = "pipeline"

// Retrieval limits for the context-based flow
const (
	ResumeContextLimit = 3
	JobContextLimit    = 2
)

// Metadata keys of a GenerateResponse
const (
	MetaTimestamp     = "timestamp"
	MetaModel         = "model"
	MetaATSAnalysis   = "ats_analysis"
	MetaValidation    = "validation"
	MetaTermAlignment = "term_alignment"
	MetaSuggestions   = "suggestions"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// ResumeStore looks up stored resumes. *db.DB implements it.
type ResumeStore interface {
	GetResume(ctx context.Context, id string) (*db.Resume, error)
	GetActiveResume(ctx context.Context) (*db.Resume, error)
}

// GenerateRequest is the input of the context-based flow
type GenerateRequest struct {
	JobDescription string
	ResumeID       string
	// ResumeContent falls back to the stored resume when blank
	ResumeContent string
	Preferences   map[string]any
	OnProgress    ProgressCallback
}

// GenerateResponse is the reviewed letter with its analyses
type GenerateResponse struct {
	Content          string           `json:"content"`
	Metadata         map[string]any   `json:"metadata"`
	SimilarDocuments []map[string]any `json:"similar_documents"`
}

// ComposeResult carries every artifact of the structured flow
type ComposeResult struct {
	Skills       *types.SkillsAnalysis      `json:"skills_analysis"`
	Requirements *types.JobRequirements     `json:"requirements_analysis"`
	Strategy     *types.CoverLetterStrategy `json:"strategy"`
	Letter       *types.CoverLetter         `json:"cover_letter"`
	Text         string                     `json:"text"`
}

// Options configures New
type Options struct {
	Runtime agent.Runtime
	// Searcher is optional; without it no context or past letters are retrieved.
	Searcher retrieval.Searcher
	// Resumes is optional; without it a blank resume_content is an input error.
	Resumes     ResumeStore
	Temperature float64
	Logger      *slog.Logger
}

// Pipeline wires the agents together. It is safe for concurrent use.
type Pipeline struct {
	searcher     retrieval.Searcher
	resumes      ResumeStore
	skills       *analysis.SkillsAnalyzer
	requirements *analysis.RequirementsAnalyzer
	strategy     *analysis.StrategyComposer
	generator    *generation.Generator
	ats          *review.ATSScanner
	content      *review.ContentValidator
	terms        *review.TermStandardizer
	logger       *slog.Logger
	now          func() time.Time
}

// New builds every agent from opts.Runtime
func New(opts Options) (*Pipeline, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rt := opts.Runtime
	if rt.Logger == nil {
		rt.Logger = logger
	}

	p := &Pipeline{searcher: opts.Searcher, resumes: opts.Resumes, logger: logger, now: time.Now}
	var err error
	if p.skills, err = analysis.NewSkillsAnalyzer(rt); err != nil {
		return nil, err
	}
	if p.requirements, err = analysis.NewRequirementsAnalyzer(rt); err != nil {
		return nil, err
	}
	if p.strategy, err = analysis.NewStrategyComposer(rt, opts.Searcher); err != nil {
		return nil, err
	}
	if p.generator, err = generation.New(rt, opts.Temperature); err != nil {
		return nil, err
	}
	if p.ats, err = review.NewATSScanner(rt); err != nil {
		return nil, err
	}
	if p.content, err = review.NewContentValidator(rt); err != nil {
		return nil, err
	}
	if p.terms, err = review.NewTermStandardizer(rt); err != nil {
		return nil, err
	}
	return p, nil
}

// Model returns the model that writes letters
func (p *Pipeline) Model() string {
	return p.generator.Model()
}

// tracker checks step ordering and emits progress for one run
type tracker struct {
	mu         sync.Mutex
	completed  map[string]bool
	onProgress ProgressCallback
	logger     *slog.Logger
}

func newTracker(onProgress ProgressCallback, logger *slog.Logger) *tracker {
	return &tracker{completed: map[string]bool{}, onProgress: onProgress, logger: logger}
}

func (t *tracker) begin(step string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ValidateDependencies(step, t.completed)
}

func (t *tracker) done(step, message string, content any) {
	t.mu.Lock()
	t.completed[step] = true
	t.mu.Unlock()

	t.logger.Debug("pipeline step finished", "step", step, "message", message)
	if t.onProgress != nil {
		t.onProgress(ProgressEvent{Step: step, Category: CategoryOf(step), Message: message, Content: content})
	}
}

// Generate runs the context-based flow: retrieve context and analyze requirements, draft
// the letter, review it concurrently, then apply the term fixes and assemble the response.
// Any failing step fails the whole request.
func (p *Pipeline) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if strings.TrimSpace(req.JobDescription) == "" {
		return nil, agent.InvalidInput(Name, "job_description")
	}
	tr := newTracker(req.OnProgress, p.logger)

	var (
		resumeCtx, jobCtx []retrieval.SearchResult
		reqs              *types.JobRequirements
		resume            string
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := tr.begin(StepRetrieveContext); err != nil {
			return err
		}
		var err error
		resumeCtx, err = p.search(gCtx, req.JobDescription, ResumeContextLimit, retrieval.DocTypeResume)
		if err != nil {
			return fmt.Errorf("resume context retrieval failed: %w", err)
		}
		jobCtx, err = p.search(gCtx, req.JobDescription, JobContextLimit, retrieval.DocTypeJobDescription)
		if err != nil {
			return fmt.Errorf("job context retrieval failed: %w", err)
		}
		tr.done(StepRetrieveContext,
			fmt.Sprintf("Retrieved %d resume and %d job description chunks", len(resumeCtx), len(jobCtx)), nil)
		return nil
	})
	g.Go(func() error {
		if err := tr.begin(StepAnalyzeRequirements); err != nil {
			return err
		}
		var err error
		reqs, err = p.requirements.Analyze(gCtx, req.JobDescription)
		if err != nil {
			return err
		}
		tr.done(StepAnalyzeRequirements,
			fmt.Sprintf("Found %d core requirements", len(reqs.CoreRequirements)), reqs)
		return nil
	})
	g.Go(func() error {
		if err := tr.begin(StepLoadResume); err != nil {
			return err
		}
		var err error
		resume, err = p.resolveResume(gCtx, req.ResumeID, req.ResumeContent)
		if err != nil {
			return err
		}
		tr.done(StepLoadResume, "Resume loaded", nil)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := tr.begin(StepDraftLetter); err != nil {
		return nil, err
	}
	contextDocs := append(retrieval.Contents(resumeCtx), retrieval.Contents(jobCtx)...)
	draft, err := p.generator.Draft(ctx, req.JobDescription, contextDocs, req.Preferences)
	if err != nil {
		return nil, err
	}
	tr.done(StepDraftLetter, "Drafted cover letter", nil)

	var (
		atsResult  *types.ATSAnalysis
		validation *types.ValidationResult
		alignment  *types.TermAlignment
	)
	g, gCtx = errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := tr.begin(StepScanATS); err != nil {
			return err
		}
		var err error
		atsResult, err = p.ats.Scan(gCtx, draft, req.JobDescription, reqs)
		if err != nil {
			return err
		}
		tr.done(StepScanATS, fmt.Sprintf("ATS keyword match %.2f", atsResult.KeywordMatchScore), atsResult)
		return nil
	})
	g.Go(func() error {
		if err := tr.begin(StepValidateContent); err != nil {
			return err
		}
		var err error
		validation, err = p.content.Validate(gCtx, &draft, &resume, &req.JobDescription)
		if err != nil {
			return err
		}
		tr.done(StepValidateContent, fmt.Sprintf("Found %d content issues", len(validation.Issues)), validation)
		return nil
	})
	g.Go(func() error {
		if err := tr.begin(StepStandardizeTerms); err != nil {
			return err
		}
		var err error
		alignment, err = p.terms.Standardize(gCtx, &req.JobDescription, &draft, nil)
		if err != nil {
			return err
		}
		tr.done(StepStandardizeTerms, fmt.Sprintf("Found %d misaligned terms", len(alignment.MisalignedTerms)), alignment)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := tr.begin(StepAssemble); err != nil {
		return nil, err
	}
	termSuggestions := p.terms.SuggestTermUpdates(alignment)
	suggestions := p.ats.SuggestImprovements(atsResult)
	suggestions = append(suggestions, p.content.SuggestImprovements(validation)...)
	suggestions = append(suggestions, review.TermSuggestionsAsSuggestions(termSuggestions)...)

	resp := &GenerateResponse{
		Content: review.ApplyTermSuggestions(draft, termSuggestions),
		Metadata: map[string]any{
			MetaTimestamp:     p.now().UTC().Format(time.RFC3339),
			MetaModel:         p.generator.Model(),
			MetaATSAnalysis:   atsResult,
			MetaValidation:    validation,
			MetaTermAlignment: alignment,
			MetaSuggestions:   suggestions,
		},
		SimilarDocuments: append(retrieval.Metadata(resumeCtx), retrieval.Metadata(jobCtx)...),
	}
	tr.done(StepAssemble, fmt.Sprintf("Assembled letter with %d suggestions", len(suggestions)), nil)
	return resp, nil
}

// AnalyzeStrategy extracts skills and requirements concurrently and composes the strategy
func (p *Pipeline) AnalyzeStrategy(ctx context.Context, resume, jobDescription string) (*types.CoverLetterStrategy, error) {
	skills, reqs, err := p.analyze(ctx, resume, jobDescription, newTracker(nil, p.logger))
	if err != nil {
		return nil, err
	}
	return p.strategy.Compose(ctx, skills, reqs)
}

// Compose runs the structured flow: analyses, strategy, structured letter and its plain
// text rendering.
func (p *Pipeline) Compose(ctx context.Context, resume, jobDescription string, prefs map[string]any, onProgress ProgressCallback) (*ComposeResult, error) {
	tr := newTracker(onProgress, p.logger)
	skills, reqs, err := p.analyze(ctx, resume, jobDescription, tr)
	if err != nil {
		return nil, err
	}

	if err := tr.begin(StepComposeStrategy); err != nil {
		return nil, err
	}
	strategy, err := p.strategy.Compose(ctx, skills, reqs)
	if err != nil {
		return nil, err
	}
	tr.done(StepComposeStrategy, fmt.Sprintf("Strategy: %s", strategy.OverallApproach), strategy)

	if err := tr.begin(StepGenerateLetter); err != nil {
		return nil, err
	}
	letter, err := p.generator.Generate(ctx, skills, reqs, strategy, prefs)
	if err != nil {
		return nil, err
	}
	tr.done(StepGenerateLetter, fmt.Sprintf("Generated letter with %d body paragraphs", len(letter.BodyParagraphs)), nil)

	return &ComposeResult{
		Skills:       skills,
		Requirements: reqs,
		Strategy:     strategy,
		Letter:       letter,
		Text:         generation.Format(letter, "standard"),
	}, nil
}

func (p *Pipeline) analyze(ctx context.Context, resume, jobDescription string, tr *tracker) (*types.SkillsAnalysis, *types.JobRequirements, error) {
	var skills *types.SkillsAnalysis
	var reqs *types.JobRequirements

	tr.done(StepLoadResume, "Resume provided", nil)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := tr.begin(StepAnalyzeSkills); err != nil {
			return err
		}
		var err error
		skills, err = p.skills.Analyze(gCtx, resume)
		if err != nil {
			return err
		}
		tr.done(StepAnalyzeSkills, fmt.Sprintf("Found %d technical skills", len(skills.TechnicalSkills)), skills)
		return nil
	})
	g.Go(func() error {
		if err := tr.begin(StepAnalyzeRequirements); err != nil {
			return err
		}
		var err error
		reqs, err = p.requirements.Analyze(gCtx, jobDescription)
		if err != nil {
			return err
		}
		tr.done(StepAnalyzeRequirements, fmt.Sprintf("Found %d core requirements", len(reqs.CoreRequirements)), reqs)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return skills, reqs, nil
}

// AnalyzeSkills extracts skills from a resume
func (p *Pipeline) AnalyzeSkills(ctx context.Context, resume string) (*types.SkillsAnalysis, error) {
	return p.skills.Analyze(ctx, resume)
}

// AnalyzeRequirements extracts requirements from a job description
func (p *Pipeline) AnalyzeRequirements(ctx context.Context, jobDescription string) (*types.JobRequirements, error) {
	return p.requirements.Analyze(ctx, jobDescription)
}

// GenerateLetter writes a structured letter from existing analyses
func (p *Pipeline) GenerateLetter(ctx context.Context, skills *types.SkillsAnalysis, reqs *types.JobRequirements, strategy *types.CoverLetterStrategy, prefs map[string]any) (*types.CoverLetter, error) {
	return p.generator.Generate(ctx, skills, reqs, strategy, prefs)
}

// RefineLetter rewrites a letter to address feedback
func (p *Pipeline) RefineLetter(ctx context.Context, letter *types.CoverLetter, feedback map[string]string) (*types.CoverLetter, error) {
	return p.generator.Refine(ctx, letter, feedback)
}

// ScanATS scores a letter for ATS compatibility
func (p *Pipeline) ScanATS(ctx context.Context, letter, jobDescription string, reqs *types.JobRequirements) (*types.ATSAnalysis, error) {
	return p.ats.Scan(ctx, letter, jobDescription, reqs)
}

// ValidateContent checks a letter against a resume and job description
func (p *Pipeline) ValidateContent(ctx context.Context, letter, resume, jobDescription *string) (*types.ValidationResult, error) {
	return p.content.Validate(ctx, letter, resume, jobDescription)
}

// StandardizeTerms compares the terminology of a letter with the job description
func (p *Pipeline) StandardizeTerms(ctx context.Context, jobDescription, letter *string) (*types.TermAlignment, error) {
	return p.terms.Standardize(ctx, jobDescription, letter, nil)
}

func (p *Pipeline) search(ctx context.Context, query string, limit int, docType string) ([]retrieval.SearchResult, error) {
	if p.searcher == nil {
		return []retrieval.SearchResult{}, nil
	}
	return p.searcher.Search(ctx, query, limit, map[string]string{retrieval.DocTypeKey: docType})
}

// errNoResume is returned when no resume text is supplied or stored
var errNoResume = errors.New("no resume content supplied and no stored resume found")

// resolveResume prefers the supplied text, then the stored resume with id, then the most
// recently stored resume.
func (p *Pipeline) resolveResume(ctx context.Context, id, content string) (string, error) {
	if strings.TrimSpace(content) != "" {
		return content, nil
	}
	if p.resumes == nil {
		return "", &agent.Error{Kind: agent.KindInvalidInput, Agent: Name, Field: "resume_content", Err: errNoResume}
	}

	var stored *db.Resume
	var err error
	if strings.TrimSpace(id) != "" {
		stored, err = p.resumes.GetResume(ctx, id)
		if err != nil {
			return "", agent.Wrap(agent.KindProcessing, Name, err)
		}
	}
	if stored == nil {
		stored, err = p.resumes.GetActiveResume(ctx)
		if err != nil {
			return "", agent.Wrap(agent.KindProcessing, Name, err)
		}
	}
	if stored == nil || strings.TrimSpace(stored.Content) == "" {
		return "", &agent.Error{Kind: agent.KindInvalidInput, Agent: Name, Field: "resume_content", Err: errNoResume}
	}
	p.logger.Debug("using stored resume", "resume_id", stored.ID)
	return stored.Content, nil
}
