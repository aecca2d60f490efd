package repository

import (
	"context"

	"github.com/casewright/petition-service/internal/domain"
)

// DocumentRepository handles generated document persistence.
type DocumentRepository interface {
	// Upsert inserts a document or, when a row for (case_id, document_number)
	// already exists, replaces its content. Re-running a pipeline therefore
	// never duplicates documents.
	Upsert(ctx context.Context, doc *domain.Document) error

	// Get retrieves one document by case ID and document number.
	// Returns domain.ErrNotFound if no matching document exists.
	Get(ctx context.Context, caseID string, number int) (*domain.Document, error)

	// ListByCase returns all documents for a case ordered by document number.
	ListByCase(ctx context.Context, caseID string) ([]*domain.Document, error)
}
