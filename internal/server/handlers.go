package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/cover-letter-agent/internal/db"
	"github.com/jonathan/cover-letter-agent/internal/pipeline"
	"github.com/jonathan/cover-letter-agent/internal/retrieval"
	"github.com/jonathan/cover-letter-agent/internal/types"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 50
)

// DocumentRequest is the body of POST /api/documents
type DocumentRequest struct {
	Content  string         `json:"content" validate:"required"`
	DocType  string         `json:"doc_type" validate:"required,oneof=resume job_description cover_letter"`
	Metadata map[string]any `json:"metadata"`
}

// SkillsRequest is the body of POST /api/analyze/skills
type SkillsRequest struct {
	Content string `json:"content"`
}

// RequirementsRequest is the body of POST /api/analyze/requirements
type RequirementsRequest struct {
	JobDescription string `json:"job_description"`
}

// StrategyRequest is the body of POST /api/analyze/strategy
type StrategyRequest struct {
	ResumeContent  string `json:"resume_content"`
	JobDescription string `json:"job_description"`
}

// GenerateRequest is the body of POST /api/generate and /api/generate/stream
type GenerateRequest struct {
	JobDescription string         `json:"job_description"`
	ResumeID       string         `json:"resume_id"`
	ResumeContent  string         `json:"resume_content"`
	Preferences    map[string]any `json:"preferences,omitempty"`
}

// CoverLetterRequest is the body of POST /api/generate/cover-letter
type CoverLetterRequest struct {
	SkillsAnalysis       *types.SkillsAnalysis      `json:"skills_analysis"`
	RequirementsAnalysis *types.JobRequirements     `json:"requirements_analysis"`
	Strategy             *types.CoverLetterStrategy `json:"strategy"`
	Preferences          map[string]any             `json:"preferences,omitempty"`
}

// RefineRequest is the body of POST /api/refine/cover-letter
type RefineRequest struct {
	CoverLetter *types.CoverLetter `json:"cover_letter"`
	Feedback    map[string]string  `json:"feedback"`
}

// ATSRequest is the body of POST /api/analyze/ats
type ATSRequest struct {
	CoverLetter          string                 `json:"cover_letter"`
	JobDescription       string                 `json:"job_description"`
	RequirementsAnalysis *types.JobRequirements `json:"requirements_analysis"`
}

// ValidateContentRequest is the body of POST /api/validate/content. Fields are pointers so
// a missing value can be told apart from an empty one.
type ValidateContentRequest struct {
	CoverLetter    *string `json:"cover_letter"`
	Resume         *string `json:"resume"`
	JobDescription *string `json:"job_description"`
}

// TermsRequest is the body of POST /api/standardize/terms
type TermsRequest struct {
	JobDescription *string `json:"job_description"`
	CoverLetter    *string `json:"cover_letter"`
}

// ResumeRequest is the body of PUT /api/resume
type ResumeRequest struct {
	ID       string            `json:"id,omitempty"`
	Content  string            `json:"content" validate:"required"`
	Metadata map[string]string `json:"metadata"`
}

// DeleteDocumentResponse reports how much of a document was removed
type DeleteDocumentResponse struct {
	ID      string `json:"id"`
	Deleted int    `json:"deleted_chunks"`
}

// handleIngestDocument chunks, embeds and stores a document
func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	if !s.decode(w, r, &req) {
		return
	}
	if s.store == nil {
		s.fail(w, r, http.StatusServiceUnavailable, &ErrUnavailable{Component: "document store"})
		return
	}

	res, err := s.store.Ingest(r.Context(), req.Content, req.DocType, stringifyMetadata(req.Metadata))
	if err != nil {
		s.fail(w, r, HTTPStatus(err), err)
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveIngest()
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// handleSearchDocuments returns stored chunks similar to the q parameter
func (s *Server) handleSearchDocuments(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.fail(w, r, http.StatusServiceUnavailable, &ErrUnavailable{Component: "document store"})
		return
	}

	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		s.fail(w, r, http.StatusBadRequest, &ErrValidation{Field: "q", Message: "required"})
		return
	}

	limit := defaultSearchLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSearchLimit {
			s.fail(w, r, http.StatusBadRequest, &ErrValidation{Field: "limit", Message: fmt.Sprintf("must be between 1 and %d", maxSearchLimit)})
			return
		}
		limit = n
	}

	var filter map[string]string
	if docType := q.Get("doc_type"); docType != "" {
		if !retrieval.ValidDocType(docType) {
			s.fail(w, r, http.StatusBadRequest, &ErrValidation{Field: "doc_type", Message: "oneof"})
			return
		}
		filter = map[string]string{retrieval.DocTypeKey: docType}
	}

	results, err := s.store.Search(r.Context(), query, limit, filter)
	if err != nil {
		s.fail(w, r, HTTPStatus(err), err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"results": results})
}

// handleDeleteDocument removes every chunk of a stored document
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.fail(w, r, http.StatusServiceUnavailable, &ErrUnavailable{Component: "document store"})
		return
	}

	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		s.fail(w, r, http.StatusBadRequest, &ErrValidation{Field: "id", Message: "uuid"})
		return
	}

	n, err := s.store.Delete(r.Context(), id)
	if err != nil {
		s.fail(w, r, HTTPStatus(err), err)
		return
	}
	if n == 0 {
		s.fail(w, r, http.StatusNotFound, &ErrNotFound{Resource: "document", ID: id})
		return
	}
	s.jsonResponse(w, http.StatusOK, DeleteDocumentResponse{ID: id, Deleted: n})
}

func (s *Server) handleAnalyzeSkills(w http.ResponseWriter, r *http.Request) {
	var req SkillsRequest
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.pipeline.AnalyzeSkills(r.Context(), req.Content)
	s.respond(w, r, out, err)
}

func (s *Server) handleAnalyzeRequirements(w http.ResponseWriter, r *http.Request) {
	var req RequirementsRequest
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.pipeline.AnalyzeRequirements(r.Context(), req.JobDescription)
	s.respond(w, r, out, err)
}

func (s *Server) handleAnalyzeStrategy(w http.ResponseWriter, r *http.Request) {
	var req StrategyRequest
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.pipeline.AnalyzeStrategy(r.Context(), req.ResumeContent, req.JobDescription)
	s.respond(w, r, out, err)
}

// handleGenerate runs the context-based flow and returns the assembled letter
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.pipeline.Generate(r.Context(), req.toPipeline(nil))
	s.respond(w, r, out, err)
}

// handleGenerateStream runs the context-based flow and streams progress via SSE
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !s.decode(w, r, &req) {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	onProgress := func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent(eventStep, event); err != nil {
			s.logger.Debug("failed to write SSE event", "step", event.Step, "error", err)
		}
	}

	out, err := s.pipeline.Generate(r.Context(), req.toPipeline(onProgress))
	if err != nil {
		s.logger.Error("streaming generation failed", "error", err)
		if werr := sse.WriteError(err.Error()); werr != nil {
			s.logger.Debug("failed to write SSE error", "error", werr)
		}
		return
	}
	if err := sse.WriteResult(out); err != nil {
		s.logger.Debug("failed to write SSE result", "error", err)
	}
}

func (s *Server) handleGenerateCoverLetter(w http.ResponseWriter, r *http.Request) {
	var req CoverLetterRequest
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.pipeline.GenerateLetter(r.Context(), req.SkillsAnalysis, req.RequirementsAnalysis, req.Strategy, req.Preferences)
	s.respond(w, r, out, err)
}

func (s *Server) handleRefineCoverLetter(w http.ResponseWriter, r *http.Request) {
	var req RefineRequest
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.pipeline.RefineLetter(r.Context(), req.CoverLetter, req.Feedback)
	s.respond(w, r, out, err)
}

func (s *Server) handleAnalyzeATS(w http.ResponseWriter, r *http.Request) {
	var req ATSRequest
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.pipeline.ScanATS(r.Context(), req.CoverLetter, req.JobDescription, req.RequirementsAnalysis)
	s.respond(w, r, out, err)
}

func (s *Server) handleValidateContent(w http.ResponseWriter, r *http.Request) {
	var req ValidateContentRequest
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.pipeline.ValidateContent(r.Context(), req.CoverLetter, req.Resume, req.JobDescription)
	s.respond(w, r, out, err)
}

// handleStandardizeTerms is the one pipeline route that rejects missing input with 400
func (s *Server) handleStandardizeTerms(w http.ResponseWriter, r *http.Request) {
	var req TermsRequest
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.pipeline.StandardizeTerms(r.Context(), req.JobDescription, req.CoverLetter)
	if err != nil {
		s.fail(w, r, termsStatus(err), err)
		return
	}
	s.jsonResponse(w, http.StatusOK, out)
}

// handlePutResume stores the active resume
func (s *Server) handlePutResume(w http.ResponseWriter, r *http.Request) {
	var req ResumeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if s.resumes == nil {
		s.fail(w, r, http.StatusServiceUnavailable, &ErrUnavailable{Component: "resume store"})
		return
	}

	resume, err := s.resumes.SaveResume(r.Context(), req.ID, req.Content, req.Metadata)
	if err != nil {
		s.fail(w, r, HTTPStatus(err), err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resume)
}

// handleGetResume returns the resume named by ?id=, or the most recently stored one
func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request) {
	if s.resumes == nil {
		s.fail(w, r, http.StatusServiceUnavailable, &ErrUnavailable{Component: "resume store"})
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	var resume *db.Resume
	var err error
	if id != "" {
		resume, err = s.resumes.GetResume(r.Context(), id)
	} else {
		resume, err = s.resumes.GetActiveResume(r.Context())
	}
	if err != nil {
		s.fail(w, r, HTTPStatus(err), err)
		return
	}
	if resume == nil {
		s.fail(w, r, http.StatusNotFound, &ErrNotFound{Resource: "resume", ID: id})
		return
	}
	s.jsonResponse(w, http.StatusOK, resume)
}

// handleDeleteResume removes a stored resume
func (s *Server) handleDeleteResume(w http.ResponseWriter, r *http.Request) {
	if s.resumes == nil {
		s.fail(w, r, http.StatusServiceUnavailable, &ErrUnavailable{Component: "resume store"})
		return
	}
	id := r.PathValue("id")
	if err := s.resumes.DeleteResume(r.Context(), id); err != nil {
		s.fail(w, r, HTTPStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respond writes out, or err with its status
func (s *Server) respond(w http.ResponseWriter, r *http.Request, out any, err error) {
	if err != nil {
		s.fail(w, r, HTTPStatus(err), err)
		return
	}
	s.jsonResponse(w, http.StatusOK, out)
}

func (req GenerateRequest) toPipeline(onProgress pipeline.ProgressCallback) pipeline.GenerateRequest {
	return pipeline.GenerateRequest{
		JobDescription: req.JobDescription,
		ResumeID:       req.ResumeID,
		ResumeContent:  req.ResumeContent,
		Preferences:    req.Preferences,
		OnProgress:     onProgress,
	}
}

// stringifyMetadata flattens JSON metadata values to strings; nested values keep their
// fmt rendering.
func stringifyMetadata(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			out[k] = val
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
