package httpserver

import (
	"time"

	"github.com/casewright/petition-service/internal/domain"
	"github.com/casewright/petition-service/internal/progress"
)

// Response types for JSON serialization.

type createCaseResponse struct {
	CaseID     string    `json:"case_id"`
	WorkflowID string    `json:"workflow_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	StatusURL  string    `json:"status_url"`
	Message    string    `json:"message"`
}

type caseResponse struct {
	CaseID          string     `json:"case_id"`
	BeneficiaryName string     `json:"beneficiary_name"`
	VisaCategory    string     `json:"visa_category"`
	FieldOfEndeavor string     `json:"field_of_endeavor,omitempty"`
	Status          string     `json:"status"`
	Progress        int        `json:"progress"`
	CurrentStage    string     `json:"current_stage,omitempty"`
	CurrentMessage  string     `json:"current_message,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

type listCasesResponse struct {
	Cases      []caseResponse `json:"cases"`
	TotalCount int            `json:"total_count"`
	Limit      int            `json:"limit"`
	Offset     int            `json:"offset"`
}

type progressResponse struct {
	CaseID    string    `json:"case_id"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Stage     string    `json:"stage,omitempty"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`

	// Source names the store that answered: "database" or "memory".
	Source string `json:"source"`

	// Documents summarizes the generated package, present once the case
	// has completed.
	Documents     []documentSummaryResponse `json:"documents,omitempty"`
	FallbackCount int                       `json:"fallback_count,omitempty"`
}

type documentSummaryResponse struct {
	Number       int       `json:"number"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	WordCount    int       `json:"word_count"`
	PageEstimate int       `json:"page_estimate"`
	IsFallback   bool      `json:"is_fallback"`
	GeneratedAt  time.Time `json:"generated_at"`
}

type documentResponse struct {
	CaseID       string    `json:"case_id"`
	Number       int       `json:"number"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Content      string    `json:"content"`
	WordCount    int       `json:"word_count"`
	PageEstimate int       `json:"page_estimate"`
	IsFallback   bool      `json:"is_fallback"`
	GeneratedAt  time.Time `json:"generated_at"`
}

type listDocumentsResponse struct {
	CaseID    string             `json:"case_id"`
	Documents []documentResponse `json:"documents"`
}

type cancelCaseResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Converter functions

func domainCaseToResponse(c *domain.Case) caseResponse {
	return caseResponse{
		CaseID:          c.ID,
		BeneficiaryName: c.BeneficiaryName,
		VisaCategory:    string(c.VisaCategory),
		FieldOfEndeavor: c.FieldOfEndeavor,
		Status:          string(c.Status),
		Progress:        c.ProgressPercentage,
		CurrentStage:    c.CurrentStage,
		CurrentMessage:  c.CurrentMessage,
		ErrorMessage:    c.ErrorMessage,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		CompletedAt:     c.CompletedAt,
	}
}

func snapshotToProgressResponse(snapshot progress.Snapshot, source progress.Source) progressResponse {
	return progressResponse{
		CaseID:    snapshot.CaseID,
		Status:    string(snapshot.Status),
		Progress:  snapshot.Percent,
		Stage:     snapshot.Stage,
		Message:   snapshot.Message,
		Error:     snapshot.Error,
		UpdatedAt: snapshot.UpdatedAt,
		Source:    string(source),
	}
}

func domainDocumentToSummary(d *domain.Document) documentSummaryResponse {
	return documentSummaryResponse{
		Number:       d.Number,
		Name:         d.Name,
		Type:         string(d.Type),
		WordCount:    d.WordCount,
		PageEstimate: d.PageEstimate,
		IsFallback:   d.IsFallback,
		GeneratedAt:  d.GeneratedAt,
	}
}

func domainDocumentToResponse(d *domain.Document) documentResponse {
	return documentResponse{
		CaseID:       d.CaseID,
		Number:       d.Number,
		Name:         d.Name,
		Type:         string(d.Type),
		Content:      d.Content,
		WordCount:    d.WordCount,
		PageEstimate: d.PageEstimate,
		IsFallback:   d.IsFallback,
		GeneratedAt:  d.GeneratedAt,
	}
}
