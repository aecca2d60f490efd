package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/casewright/petition-service/internal/domain"
	"github.com/casewright/petition-service/internal/progress"
	"github.com/casewright/petition-service/internal/repository"
	"github.com/casewright/petition-service/internal/temporal"
)

// Pagination and validation constants.
const (
	defaultPageSize = 50
	maxPageSize     = 200

	maxURLsPerCase  = 20
	maxFilesPerCase = 50

	// maxRequestBodySize bounds case trigger bodies; uploaded files carry
	// pre-extracted text, so the limit is generous.
	maxRequestBodySize = 10 << 20 // 10 MB
)

// createCaseRequest is the JSON request body for triggering document generation.
type createCaseRequest struct {
	// CaseID optionally re-triggers generation for an existing case.
	CaseID          string            `json:"case_id,omitempty"`
	BeneficiaryName string            `json:"beneficiary_name" validate:"required,min=2,max=200"`
	VisaCategory    string            `json:"visa_category" validate:"required"`
	FieldOfEndeavor string            `json:"field_of_endeavor,omitempty" validate:"max=500"`
	URLs            []string          `json:"urls,omitempty"`
	Files           []uploadedFileReq `json:"files,omitempty"`
}

type uploadedFileReq struct {
	Name          string `json:"name" validate:"required,max=255"`
	ExtractedText string `json:"extracted_text"`
}

// createCase handles POST /api/v1/cases.
// It creates a petition case and starts the document generation workflow.
// The response returns immediately; generation progress is observed via the
// progress endpoint.
func (s *Server) createCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req createCaseRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	req.BeneficiaryName = strings.TrimSpace(req.BeneficiaryName)
	req.FieldOfEndeavor = strings.TrimSpace(req.FieldOfEndeavor)

	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid field: %s", strings.ToLower(verrs[0].Field())))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	category := domain.VisaCategory(req.VisaCategory)
	if !category.IsKnown() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported visa category: %s", req.VisaCategory))
		return
	}

	if len(req.URLs) > maxURLsPerCase {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("urls must have at most %d entries", maxURLsPerCase))
		return
	}
	for _, raw := range req.URLs {
		parsed, parseErr := url.Parse(raw)
		if parseErr != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid url: %s", raw))
			return
		}
	}
	if len(req.Files) > maxFilesPerCase {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("files must have at most %d entries", maxFilesPerCase))
		return
	}

	now := time.Now().UTC()
	caseID := req.CaseID
	if caseID == "" {
		caseID = domain.NewCaseID(req.BeneficiaryName, now)
	}

	newCase := &domain.Case{
		ID:              caseID,
		BeneficiaryName: req.BeneficiaryName,
		VisaCategory:    category,
		FieldOfEndeavor: req.FieldOfEndeavor,
		Status:          domain.CaseStatusInitializing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.caseRepo.Create(ctx, newCase); err != nil {
		// An existing case is not an error here: a workflow ID collision
		// below decides whether generation is actually already running.
		if !errors.Is(err, domain.ErrAlreadyExists) {
			writeDomainError(w, err)
			return
		}
	}

	// Best-effort: record submitted URLs for audit.
	if len(req.URLs) > 0 {
		if err := s.caseRepo.AddURLs(ctx, caseID, req.URLs); err != nil {
			s.logger.Warn().Err(err).Str("case_id", caseID).Msg("recording case URLs failed")
		}
	}

	// Seed the in-memory store so status queries answer before the first
	// workflow progress write lands.
	s.tracker.Set(ctx, progress.Snapshot{
		CaseID:    caseID,
		Status:    domain.CaseStatusInitializing,
		Percent:   0,
		Stage:     "queued",
		Message:   "Case accepted, generation starting",
		UpdatedAt: now,
	})

	files := make([]domain.UploadedFile, len(req.Files))
	for i, f := range req.Files {
		files[i] = domain.UploadedFile{Name: f.Name, ExtractedText: f.ExtractedText}
	}

	workflowID, _, err := s.workflowClient.StartPetitionWorkflow(ctx, s.workflowFunc, temporal.PetitionWorkflowInput{
		CaseID:          caseID,
		BeneficiaryName: req.BeneficiaryName,
		VisaCategory:    category,
		FieldOfEndeavor: req.FieldOfEndeavor,
		URLs:            req.URLs,
		Files:           files,
	})
	if err != nil {
		if temporal.IsWorkflowAlreadyStarted(err) {
			writeJSON(w, http.StatusConflict, map[string]string{
				"error":   "generation already running for this case",
				"case_id": caseID,
			})
			return
		}
		writeDomainError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.RecordCaseStarted()
	}

	writeJSON(w, http.StatusAccepted, createCaseResponse{
		CaseID:     caseID,
		WorkflowID: workflowID,
		Status:     string(domain.CaseStatusInitializing),
		CreatedAt:  now,
		StatusURL:  fmt.Sprintf("/api/v1/cases/%s/progress", caseID),
		Message:    "petition document generation started",
	})
}

// getCase handles GET /api/v1/cases/{caseID}.
func (s *Server) getCase(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")

	c, err := s.caseRepo.Get(r.Context(), caseID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainCaseToResponse(c))
}

// listCases handles GET /api/v1/cases.
// Optional filters: status, visa_category; pagination via limit/offset.
func (s *Server) listCases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, offset := parsePaginationParams(r)

	filter := repository.CaseFilter{
		Status:       domain.CaseStatus(r.URL.Query().Get("status")),
		VisaCategory: domain.VisaCategory(r.URL.Query().Get("visa_category")),
		Limit:        limit,
		Offset:       offset,
	}

	cases, totalCount, err := s.caseRepo.List(ctx, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	responses := make([]caseResponse, len(cases))
	for i, c := range cases {
		responses[i] = domainCaseToResponse(c)
	}

	writeJSON(w, http.StatusOK, listCasesResponse{
		Cases:      responses,
		TotalCount: int(totalCount),
		Limit:      limit,
		Offset:     offset,
	})
}

// getCaseProgress handles GET /api/v1/cases/{caseID}/progress.
// The durable store answers when reachable; otherwise the in-memory store
// does, with the response's source field naming which one. Completed cases
// include a summary of the generated documents.
func (s *Server) getCaseProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID := chi.URLParam(r, "caseID")

	snapshot, source, err := s.tracker.Get(ctx, caseID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := snapshotToProgressResponse(snapshot, source)
	if resp.CaseID == "" {
		resp.CaseID = caseID
	}

	if snapshot.Status == domain.CaseStatusCompleted {
		docs, docErr := s.documentRepo.ListByCase(ctx, caseID)
		if docErr != nil {
			s.logger.Warn().Err(docErr).Str("case_id", caseID).Msg("listing documents for progress summary failed")
		} else {
			resp.Documents = make([]documentSummaryResponse, len(docs))
			for i, d := range docs {
				resp.Documents[i] = domainDocumentToSummary(d)
				if d.IsFallback {
					resp.FallbackCount++
				}
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// getCaseDocuments handles GET /api/v1/cases/{caseID}/documents.
// Without a number query parameter it returns every document for the case in
// pipeline order; with ?number=N it returns that single document.
func (s *Server) getCaseDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID := chi.URLParam(r, "caseID")

	if numberParam := r.URL.Query().Get("number"); numberParam != "" {
		number, err := strconv.Atoi(numberParam)
		if err != nil || number < 1 || number > domain.DocumentCount {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("number must be an integer between 1 and %d", domain.DocumentCount))
			return
		}

		doc, err := s.documentRepo.Get(ctx, caseID, number)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, domainDocumentToResponse(doc))
		return
	}

	docs, err := s.documentRepo.ListByCase(ctx, caseID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	responses := make([]documentResponse, len(docs))
	for i, d := range docs {
		responses[i] = domainDocumentToResponse(d)
	}

	writeJSON(w, http.StatusOK, listDocumentsResponse{
		CaseID:    caseID,
		Documents: responses,
	})
}

// cancelCase handles DELETE /api/v1/cases/{caseID}.
// It requests cancellation of a running generation by signalling the workflow.
func (s *Server) cancelCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID := chi.URLParam(r, "caseID")

	c, err := s.caseRepo.Get(ctx, caseID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if c.Status.IsTerminal() {
		writeError(w, http.StatusConflict, "case is already in terminal state")
		return
	}

	workflowID := temporal.WorkflowIDForCase(caseID)
	if err := s.workflowClient.SignalWorkflow(ctx, workflowID, "", temporal.SignalCancel, nil); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cancelCaseResponse{
		Success: true,
		Message: "cancellation requested",
		Status:  string(c.Status),
	})
}

// writeDomainError maps domain and temporal errors to appropriate HTTP status
// codes and writes a JSON error response. Internal error details are not
// leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrCaseActive):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.Is(err, domain.ErrCancelled):
		writeError(w, http.StatusConflict, "operation cancelled")
	case errors.Is(err, temporal.ErrWorkflowNotFound):
		writeError(w, http.StatusNotFound, "workflow not found")
	case errors.Is(err, temporal.ErrWorkflowAlreadyStarted):
		writeError(w, http.StatusConflict, "workflow already started")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parsePaginationParams extracts limit and offset from query parameters,
// applying default and maximum bounds.
func parsePaginationParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed > 0 {
			offset = parsed
		}
	}

	return limit, offset
}
