// Package activities implements the Temporal activities used by the petition
// document workflow: evidence preparation, document generation, progress and
// persistence updates, and lifecycle event publishing.
//
// All input and output types are exported and JSON-serializable so Temporal
// can record them in workflow history.
package activities

import (
	"encoding/json"

	"github.com/casewright/petition-service/internal/domain"
)

// PrepareContextInput contains the parameters for the context preparation activity.
type PrepareContextInput struct {
	// CaseID identifies the petition case.
	CaseID string `json:"case_id"`

	// BeneficiaryName is the petition beneficiary's full name.
	BeneficiaryName string `json:"beneficiary_name"`

	// VisaCategory is the visa classification being petitioned for.
	VisaCategory domain.VisaCategory `json:"visa_category"`

	// FieldOfEndeavor describes the beneficiary's professional field.
	FieldOfEndeavor string `json:"field_of_endeavor"`

	// URLs are supporting web sources to fetch and analyze.
	URLs []string `json:"urls,omitempty"`

	// Files are evidence files with pre-extracted text.
	Files []domain.UploadedFile `json:"files,omitempty"`
}

// PrepareContextOutput contains the assembled case context.
type PrepareContextOutput struct {
	// Preparation is the assembled generation context for the case.
	Preparation domain.PreparationData `json:"preparation"`
}

// GenerateDocumentInput contains the parameters for generating one petition document.
type GenerateDocumentInput struct {
	// CaseID identifies the petition case.
	CaseID string `json:"case_id"`

	// StepNumber is the pipeline step (document number) to generate, 1-8.
	StepNumber int `json:"step_number"`

	// Preparation is the case context assembled by PrepareContext.
	Preparation domain.PreparationData `json:"preparation"`

	// PriorDocuments maps document numbers to the full content of previously
	// generated documents this step depends on.
	PriorDocuments map[int]string `json:"prior_documents,omitempty"`
}

// GenerateDocumentOutput contains a generated petition document.
type GenerateDocumentOutput struct {
	// CaseID identifies the petition case.
	CaseID string `json:"case_id"`

	// DocumentNumber is the pipeline position of the document, 1-8.
	DocumentNumber int `json:"document_number"`

	// DocumentName is the human-readable document title.
	DocumentName string `json:"document_name"`

	// DocumentType categorizes the document (brief, letter, analysis, ...).
	DocumentType string `json:"document_type"`

	// Content is the generated document text.
	Content string `json:"content"`

	// Provider is the text generation provider that produced the content.
	// Empty for fallback documents.
	Provider string `json:"provider,omitempty"`

	// Model is the model that produced the content. Empty for fallback documents.
	Model string `json:"model,omitempty"`

	// InputTokens is the prompt token count reported by the provider.
	InputTokens int `json:"input_tokens,omitempty"`

	// OutputTokens is the completion token count reported by the provider.
	OutputTokens int `json:"output_tokens,omitempty"`

	// IsFallback indicates the content is placeholder fallback text produced
	// after all generation attempts failed.
	IsFallback bool `json:"is_fallback"`
}

// SaveDocumentsInput contains the parameters for persisting generated documents.
type SaveDocumentsInput struct {
	// CaseID identifies the petition case.
	CaseID string `json:"case_id"`

	// Documents are the generated documents to persist.
	Documents []GenerateDocumentOutput `json:"documents"`
}

// SaveDocumentsOutput reports the persistence result. Failed writes are
// reported per document; they never fail the activity, so a case still
// completes with whatever subset of documents could be written.
type SaveDocumentsOutput struct {
	// SavedCount is the number of documents written.
	SavedCount int `json:"saved_count"`

	// FailedNumbers lists the document numbers whose upsert failed.
	FailedNumbers []int `json:"failed_numbers,omitempty"`
}

// UpdateProgressInput contains the parameters for a progress update.
type UpdateProgressInput struct {
	// CaseID identifies the petition case.
	CaseID string `json:"case_id"`

	// Status is the case status to record.
	Status domain.CaseStatus `json:"status"`

	// Percent is the completion percentage, 0-100.
	Percent int `json:"percent"`

	// Stage is a short machine-readable stage label.
	Stage string `json:"stage"`

	// Message is a human-readable progress message.
	Message string `json:"message"`
}

// CompleteCaseInput contains the parameters for marking a case complete.
type CompleteCaseInput struct {
	// CaseID identifies the petition case.
	CaseID string `json:"case_id"`
}

// FailCaseInput contains the parameters for marking a case failed.
type FailCaseInput struct {
	// CaseID identifies the petition case.
	CaseID string `json:"case_id"`

	// Stage is the pipeline stage where the failure occurred.
	Stage string `json:"stage"`

	// ErrorMsg is the failure description to record on the case.
	ErrorMsg string `json:"error_msg"`

	// Percent is the last progress percent reached before the failure. It is
	// carried into the failure snapshot so progress never moves backwards.
	Percent int `json:"percent"`
}

// PublishEventInput contains the parameters for publishing a case lifecycle event.
type PublishEventInput struct {
	// EventType is the lifecycle event type (case.started, case.completed, case.failed).
	EventType string `json:"event_type"`

	// CaseID identifies the petition case.
	CaseID string `json:"case_id"`

	// Payload is the JSON-encoded event payload.
	Payload json.RawMessage `json:"payload"`
}
