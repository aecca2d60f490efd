package domain

import (
	"strings"
	"time"
)

// DocumentType classifies a generated petition document.
// These values must match the database check constraint on generated_documents.document_type.
type DocumentType string

const (
	DocumentTypeAnalysis  DocumentType = "analysis"
	DocumentTypeReference DocumentType = "reference"
	DocumentTypeBrief     DocumentType = "brief"
	DocumentTypeLetter    DocumentType = "letter"
	DocumentTypeChecklist DocumentType = "checklist"
	DocumentTypeGuide     DocumentType = "guide"
)

// DocumentCount is the number of documents in a complete petition package.
const DocumentCount = 8

// wordsPerPage approximates a formatted legal page for the page estimate.
const wordsPerPage = 500

// Document represents a generated petition document stored in the
// generated_documents table. A (CaseID, Number) pair is unique; regenerating
// a document replaces the previous content.
type Document struct {
	CaseID       string
	Number       int
	Name         string
	Type         DocumentType
	Content      string
	WordCount    int
	PageEstimate int
	IsFallback   bool
	GeneratedAt  time.Time
}

// NewDocument builds a Document from generated content, computing the word
// count and page estimate.
func NewDocument(caseID string, number int, name string, docType DocumentType, content string, fallback bool, generatedAt time.Time) Document {
	words := len(strings.Fields(content))
	pages := words / wordsPerPage
	if pages < 1 {
		pages = 1
	}
	return Document{
		CaseID:       caseID,
		Number:       number,
		Name:         name,
		Type:         docType,
		Content:      content,
		WordCount:    words,
		PageEstimate: pages,
		IsFallback:   fallback,
		GeneratedAt:  generatedAt,
	}
}
