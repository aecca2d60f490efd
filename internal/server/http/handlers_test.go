package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casewright/petition-service/internal/domain"
	"github.com/casewright/petition-service/internal/progress"
	"github.com/casewright/petition-service/internal/repository"
	"github.com/casewright/petition-service/internal/temporal"
)

// fakeWorkflowClient implements WorkflowClient for handler tests.
type fakeWorkflowClient struct {
	startErr  error
	signalErr error
	started   []temporal.PetitionWorkflowInput
	signalled []string
}

func (c *fakeWorkflowClient) StartPetitionWorkflow(_ context.Context, _ interface{}, input temporal.PetitionWorkflowInput) (string, string, error) {
	if c.startErr != nil {
		return "", "", c.startErr
	}
	c.started = append(c.started, input)
	return temporal.WorkflowIDForCase(input.CaseID), "run-1", nil
}

func (c *fakeWorkflowClient) SignalWorkflow(_ context.Context, workflowID, _, signalName string, _ interface{}) error {
	if c.signalErr != nil {
		return c.signalErr
	}
	c.signalled = append(c.signalled, workflowID+":"+signalName)
	return nil
}

func (c *fakeWorkflowClient) Health(context.Context) error { return nil }

// fakeCaseRepo implements repository.CaseRepository for handler tests.
type fakeCaseRepo struct {
	cases     map[string]*domain.Case
	urls      map[string][]string
	createErr error
	listErr   error
}

func newFakeCaseRepo() *fakeCaseRepo {
	return &fakeCaseRepo{
		cases: make(map[string]*domain.Case),
		urls:  make(map[string][]string),
	}
}

func (r *fakeCaseRepo) Create(_ context.Context, c *domain.Case) error {
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.cases[c.ID]; ok {
		return domain.NewAlreadyExistsError("case", c.ID)
	}
	r.cases[c.ID] = c
	return nil
}

func (r *fakeCaseRepo) Get(_ context.Context, caseID string) (*domain.Case, error) {
	c, ok := r.cases[caseID]
	if !ok {
		return nil, domain.NewNotFoundError("case", caseID)
	}
	return c, nil
}

func (r *fakeCaseRepo) UpdateProgress(_ context.Context, caseID string, status domain.CaseStatus, percent int, stage, message string) error {
	c, ok := r.cases[caseID]
	if !ok {
		return domain.NewNotFoundError("case", caseID)
	}
	c.Status = status
	c.ProgressPercentage = percent
	c.CurrentStage = stage
	c.CurrentMessage = message
	return nil
}

func (r *fakeCaseRepo) GetProgress(_ context.Context, caseID string) (progress.Snapshot, error) {
	c, ok := r.cases[caseID]
	if !ok {
		return progress.Snapshot{}, domain.NewNotFoundError("case", caseID)
	}
	return progress.Snapshot{
		CaseID:  c.ID,
		Status:  c.Status,
		Percent: c.ProgressPercentage,
		Stage:   c.CurrentStage,
		Message: c.CurrentMessage,
		Error:   c.ErrorMessage,
	}, nil
}

func (r *fakeCaseRepo) Complete(_ context.Context, caseID string) error {
	c, ok := r.cases[caseID]
	if !ok {
		return domain.NewNotFoundError("case", caseID)
	}
	c.Status = domain.CaseStatusCompleted
	return nil
}

func (r *fakeCaseRepo) Fail(_ context.Context, caseID, errorMsg string) error {
	c, ok := r.cases[caseID]
	if !ok {
		return domain.NewNotFoundError("case", caseID)
	}
	c.Status = domain.CaseStatusFailed
	c.ErrorMessage = errorMsg
	return nil
}

func (r *fakeCaseRepo) List(_ context.Context, filter repository.CaseFilter) ([]*domain.Case, int64, error) {
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	var out []*domain.Case
	for _, c := range r.cases {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.VisaCategory != "" && c.VisaCategory != filter.VisaCategory {
			continue
		}
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

func (r *fakeCaseRepo) AddURLs(_ context.Context, caseID string, urls []string) error {
	r.urls[caseID] = append(r.urls[caseID], urls...)
	return nil
}

func (r *fakeCaseRepo) GetURLs(_ context.Context, caseID string) ([]domain.CaseURL, error) {
	return nil, nil
}

// fakeDocRepo implements repository.DocumentRepository for handler tests.
type fakeDocRepo struct {
	docs map[string][]*domain.Document
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{docs: make(map[string][]*domain.Document)}
}

func (r *fakeDocRepo) Upsert(_ context.Context, doc *domain.Document) error {
	r.docs[doc.CaseID] = append(r.docs[doc.CaseID], doc)
	return nil
}

func (r *fakeDocRepo) Get(_ context.Context, caseID string, number int) (*domain.Document, error) {
	for _, d := range r.docs[caseID] {
		if d.Number == number {
			return d, nil
		}
	}
	return nil, domain.NewNotFoundError("document", fmt.Sprintf("%s/%d", caseID, number))
}

func (r *fakeDocRepo) ListByCase(_ context.Context, caseID string) ([]*domain.Document, error) {
	return r.docs[caseID], nil
}

// fakeProgressReader implements ProgressReader for handler tests.
type fakeProgressReader struct {
	snapshots map[string]progress.Snapshot
	source    progress.Source
	sets      []progress.Snapshot
}

func newFakeProgressReader() *fakeProgressReader {
	return &fakeProgressReader{
		snapshots: make(map[string]progress.Snapshot),
		source:    progress.SourceDatabase,
	}
}

func (t *fakeProgressReader) Set(_ context.Context, snapshot progress.Snapshot) {
	t.sets = append(t.sets, snapshot)
	t.snapshots[snapshot.CaseID] = snapshot
}

func (t *fakeProgressReader) Get(_ context.Context, caseID string) (progress.Snapshot, progress.Source, error) {
	snapshot, ok := t.snapshots[caseID]
	if !ok {
		return progress.Snapshot{}, "", domain.NewNotFoundError("case progress", caseID)
	}
	return snapshot, t.source, nil
}

type serverFixture struct {
	server   *Server
	workflow *fakeWorkflowClient
	cases    *fakeCaseRepo
	docs     *fakeDocRepo
	tracker  *fakeProgressReader
}

func newServerFixture(t *testing.T, cfg Config) *serverFixture {
	t.Helper()
	f := &serverFixture{
		workflow: &fakeWorkflowClient{},
		cases:    newFakeCaseRepo(),
		docs:     newFakeDocRepo(),
		tracker:  newFakeProgressReader(),
	}
	f.server = NewServer(cfg, f.workflow, nil, f.cases, f.docs, f.tracker, nil, nil, zerolog.Nop())
	return f
}

func doRequest(t *testing.T, handler http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func validCreateRequest() createCaseRequest {
	return createCaseRequest{
		BeneficiaryName: "Dr. Maria Santos",
		VisaCategory:    "EB-1A",
		FieldOfEndeavor: "computational biology",
		URLs:            []string{"https://example.com/profile"},
		Files: []uploadedFileReq{
			{Name: "cv.pdf", ExtractedText: "Publications: 42."},
		},
	}
}

func TestCreateCase(t *testing.T) {
	f := newServerFixture(t, Config{})

	rec := doRequest(t, f.server.Router(), http.MethodPost, "/api/v1/cases", validCreateRequest())

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp createCaseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.CaseID)
	assert.True(t, strings.HasPrefix(resp.CaseID, "dr-maria-santos-"), "case ID should be derived from the beneficiary name, got %q", resp.CaseID)
	assert.Equal(t, temporal.WorkflowIDForCase(resp.CaseID), resp.WorkflowID)
	assert.Equal(t, string(domain.CaseStatusInitializing), resp.Status)
	assert.Equal(t, fmt.Sprintf("/api/v1/cases/%s/progress", resp.CaseID), resp.StatusURL)

	// Case row created and workflow started with the submitted context.
	require.Len(t, f.workflow.started, 1)
	started := f.workflow.started[0]
	assert.Equal(t, resp.CaseID, started.CaseID)
	assert.Equal(t, []string{"https://example.com/profile"}, started.URLs)
	require.Len(t, started.Files, 1)
	assert.Equal(t, "cv.pdf", started.Files[0].Name)

	_, err := f.cases.Get(context.Background(), resp.CaseID)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/profile"}, f.cases.urls[resp.CaseID])

	// In-memory progress seeded before the workflow's first write.
	require.NotEmpty(t, f.tracker.sets)
	assert.Equal(t, domain.CaseStatusInitializing, f.tracker.sets[0].Status)
}

func TestCreateCase_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*createCaseRequest)
		wantMsg string
	}{
		{
			name:    "missing beneficiary name",
			mutate:  func(r *createCaseRequest) { r.BeneficiaryName = "" },
			wantMsg: "beneficiaryname",
		},
		{
			name:    "missing visa category",
			mutate:  func(r *createCaseRequest) { r.VisaCategory = "" },
			wantMsg: "visacategory",
		},
		{
			name:    "unknown visa category",
			mutate:  func(r *createCaseRequest) { r.VisaCategory = "H-1B" },
			wantMsg: "unsupported visa category",
		},
		{
			name:    "invalid url scheme",
			mutate:  func(r *createCaseRequest) { r.URLs = []string{"ftp://example.com/file"} },
			wantMsg: "invalid url",
		},
		{
			name:    "relative url",
			mutate:  func(r *createCaseRequest) { r.URLs = []string{"/just/a/path"} },
			wantMsg: "invalid url",
		},
		{
			name: "too many urls",
			mutate: func(r *createCaseRequest) {
				r.URLs = nil
				for i := 0; i <= maxURLsPerCase; i++ {
					r.URLs = append(r.URLs, fmt.Sprintf("https://example.com/%d", i))
				}
			},
			wantMsg: "urls must have at most",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServerFixture(t, Config{})
			req := validCreateRequest()
			tt.mutate(&req)

			rec := doRequest(t, f.server.Router(), http.MethodPost, "/api/v1/cases", req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantMsg)
			assert.Empty(t, f.workflow.started, "workflow must not start on invalid input")
		})
	}
}

func TestCreateCase_InvalidJSON(t *testing.T) {
	f := newServerFixture(t, Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cases", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid JSON")
}

func TestCreateCase_DuplicateActiveCase(t *testing.T) {
	f := newServerFixture(t, Config{})
	f.workflow.startErr = &temporal.TemporalError{
		Op:   "StartPetitionWorkflow",
		Kind: temporal.ErrWorkflowAlreadyStarted,
	}

	req := validCreateRequest()
	req.CaseID = "dr-maria-santos-1700000000"

	rec := doRequest(t, f.server.Router(), http.MethodPost, "/api/v1/cases", req)

	require.Equal(t, http.StatusConflict, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "dr-maria-santos-1700000000", resp["case_id"])
}

func TestCreateCase_RetriggerExistingCase(t *testing.T) {
	f := newServerFixture(t, Config{})
	existing := &domain.Case{
		ID:              "dr-maria-santos-1700000000",
		BeneficiaryName: "Dr. Maria Santos",
		VisaCategory:    "EB-1A",
		Status:          domain.CaseStatusFailed,
	}
	f.cases.cases[existing.ID] = existing

	req := validCreateRequest()
	req.CaseID = existing.ID

	rec := doRequest(t, f.server.Router(), http.MethodPost, "/api/v1/cases", req)

	// The existing row is not an error: a fresh workflow run is started.
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, f.workflow.started, 1)
	assert.Equal(t, existing.ID, f.workflow.started[0].CaseID)
}

func TestGetCaseProgress(t *testing.T) {
	f := newServerFixture(t, Config{})
	f.tracker.snapshots["case-1"] = progress.Snapshot{
		CaseID:    "case-1",
		Status:    domain.CaseStatusGenerating,
		Percent:   55,
		Stage:     "document_4",
		Message:   "Generating document 4 of 8",
		UpdatedAt: time.Now(),
	}

	rec := doRequest(t, f.server.Router(), http.MethodGet, "/api/v1/cases/case-1/progress", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp progressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "case-1", resp.CaseID)
	assert.Equal(t, string(domain.CaseStatusGenerating), resp.Status)
	assert.Equal(t, 55, resp.Progress)
	assert.Equal(t, "document_4", resp.Stage)
	assert.Equal(t, string(progress.SourceDatabase), resp.Source)
	assert.Empty(t, resp.Documents, "documents summary only appears once completed")
}

func TestGetCaseProgress_MemoryFallbackSource(t *testing.T) {
	f := newServerFixture(t, Config{})
	f.tracker.source = progress.SourceMemory
	f.tracker.snapshots["case-1"] = progress.Snapshot{
		CaseID:  "case-1",
		Status:  domain.CaseStatusResearching,
		Percent: 10,
	}

	rec := doRequest(t, f.server.Router(), http.MethodGet, "/api/v1/cases/case-1/progress", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp progressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(progress.SourceMemory), resp.Source)
}

func TestGetCaseProgress_CompletedIncludesDocuments(t *testing.T) {
	f := newServerFixture(t, Config{})
	f.tracker.snapshots["case-1"] = progress.Snapshot{
		CaseID:  "case-1",
		Status:  domain.CaseStatusCompleted,
		Percent: 100,
		Stage:   "completed",
	}

	now := time.Now()
	for number := 1; number <= 3; number++ {
		doc := domain.NewDocument("case-1", number, fmt.Sprintf("Document %d", number), domain.DocumentTypeAnalysis, "content here", number == 2, now)
		require.NoError(t, f.docs.Upsert(context.Background(), &doc))
	}

	rec := doRequest(t, f.server.Router(), http.MethodGet, "/api/v1/cases/case-1/progress", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp progressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Documents, 3)
	assert.Equal(t, 1, resp.FallbackCount)
	assert.True(t, resp.Documents[1].IsFallback)
}

func TestGetCaseProgress_NotFound(t *testing.T) {
	f := newServerFixture(t, Config{})

	rec := doRequest(t, f.server.Router(), http.MethodGet, "/api/v1/cases/missing/progress", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCaseDocuments(t *testing.T) {
	f := newServerFixture(t, Config{})
	now := time.Now()
	for number := 1; number <= 2; number++ {
		doc := domain.NewDocument("case-1", number, fmt.Sprintf("Document %d", number), domain.DocumentTypeBrief, "word "+strings.Repeat("w ", 10), false, now)
		require.NoError(t, f.docs.Upsert(context.Background(), &doc))
	}

	t.Run("list all", func(t *testing.T) {
		rec := doRequest(t, f.server.Router(), http.MethodGet, "/api/v1/cases/case-1/documents", nil)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp listDocumentsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "case-1", resp.CaseID)
		require.Len(t, resp.Documents, 2)
		assert.NotEmpty(t, resp.Documents[0].Content)
	})

	t.Run("single by number", func(t *testing.T) {
		rec := doRequest(t, f.server.Router(), http.MethodGet, "/api/v1/cases/case-1/documents?number=2", nil)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp documentResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Number)
		assert.Equal(t, "Document 2", resp.Name)
	})

	t.Run("invalid number", func(t *testing.T) {
		rec := doRequest(t, f.server.Router(), http.MethodGet, "/api/v1/cases/case-1/documents?number=9", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing document", func(t *testing.T) {
		rec := doRequest(t, f.server.Router(), http.MethodGet, "/api/v1/cases/case-1/documents?number=7", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetCase(t *testing.T) {
	f := newServerFixture(t, Config{})
	f.cases.cases["case-1"] = &domain.Case{
		ID:              "case-1",
		BeneficiaryName: "Dr. Maria Santos",
		VisaCategory:    "EB-1A",
		Status:          domain.CaseStatusGenerating,
	}

	rec := doRequest(t, f.server.Router(), http.MethodGet, "/api/v1/cases/case-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp caseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Dr. Maria Santos", resp.BeneficiaryName)

	rec = doRequest(t, f.server.Router(), http.MethodGet, "/api/v1/cases/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListCases(t *testing.T) {
	f := newServerFixture(t, Config{})
	f.cases.cases["a"] = &domain.Case{ID: "a", Status: domain.CaseStatusCompleted, VisaCategory: "EB-1A"}
	f.cases.cases["b"] = &domain.Case{ID: "b", Status: domain.CaseStatusGenerating, VisaCategory: "O-1A"}

	rec := doRequest(t, f.server.Router(), http.MethodGet, "/api/v1/cases?status=completed", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp listCasesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalCount)
	require.Len(t, resp.Cases, 1)
	assert.Equal(t, "a", resp.Cases[0].CaseID)
}

func TestCancelCase(t *testing.T) {
	f := newServerFixture(t, Config{})
	f.cases.cases["case-1"] = &domain.Case{ID: "case-1", Status: domain.CaseStatusGenerating}

	rec := doRequest(t, f.server.Router(), http.MethodDelete, "/api/v1/cases/case-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.workflow.signalled, 1)
	assert.Equal(t, temporal.WorkflowIDForCase("case-1")+":"+temporal.SignalCancel, f.workflow.signalled[0])
}

func TestCancelCase_Terminal(t *testing.T) {
	f := newServerFixture(t, Config{})
	f.cases.cases["case-1"] = &domain.Case{ID: "case-1", Status: domain.CaseStatusCompleted}

	rec := doRequest(t, f.server.Router(), http.MethodDelete, "/api/v1/cases/case-1", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, f.workflow.signalled)
}

func TestParsePaginationParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cases?limit=500&offset=25", nil)
	limit, offset := parsePaginationParams(req)
	assert.Equal(t, maxPageSize, limit)
	assert.Equal(t, 25, offset)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cases", nil)
	limit, offset = parsePaginationParams(req)
	assert.Equal(t, defaultPageSize, limit)
	assert.Zero(t, offset)
}
