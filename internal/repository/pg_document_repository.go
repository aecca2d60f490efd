package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/casewright/petition-service/internal/domain"
)

// Compile-time interface verification.
var _ DocumentRepository = (*PgDocumentRepository)(nil)

// documentColumns is the canonical column list for scanning documents.
const documentColumns = `case_id, document_number, document_name, document_type,
		content, word_count, page_estimate, is_fallback, generated_at`

// PgDocumentRepository is a PostgreSQL implementation of DocumentRepository.
type PgDocumentRepository struct {
	db DBTX
}

// NewPgDocumentRepository creates a new PostgreSQL document repository.
func NewPgDocumentRepository(db DBTX) *PgDocumentRepository {
	return &PgDocumentRepository{db: db}
}

// Upsert inserts a document or replaces the existing row for the same
// (case_id, document_number) pair.
func (r *PgDocumentRepository) Upsert(ctx context.Context, doc *domain.Document) error {
	if doc == nil {
		return domain.NewValidationError("document", "document cannot be nil")
	}
	if doc.CaseID == "" {
		return domain.NewValidationError("case_id", "case ID is required")
	}
	if doc.Number < 1 || doc.Number > domain.DocumentCount {
		return domain.NewValidationError("document_number",
			fmt.Sprintf("must be between 1 and %d, got %d", domain.DocumentCount, doc.Number))
	}

	query := `
		INSERT INTO generated_documents (
			case_id, document_number, document_name, document_type,
			content, word_count, page_estimate, is_fallback, generated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9
		)
		ON CONFLICT (case_id, document_number) DO UPDATE SET
			document_name = EXCLUDED.document_name,
			document_type = EXCLUDED.document_type,
			content = EXCLUDED.content,
			word_count = EXCLUDED.word_count,
			page_estimate = EXCLUDED.page_estimate,
			is_fallback = EXCLUDED.is_fallback,
			generated_at = EXCLUDED.generated_at`

	_, err := r.db.Exec(ctx, query,
		doc.CaseID, doc.Number, doc.Name, doc.Type,
		doc.Content, doc.WordCount, doc.PageEstimate, doc.IsFallback, doc.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// Get retrieves one document by case ID and document number.
func (r *PgDocumentRepository) Get(ctx context.Context, caseID string, number int) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM generated_documents
		WHERE case_id = $1 AND document_number = $2`

	doc, err := scanDocument(r.db.QueryRow(ctx, query, caseID, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("document", fmt.Sprintf("%s/%d", caseID, number))
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListByCase returns all documents for a case ordered by document number.
func (r *PgDocumentRepository) ListByCase(ctx context.Context, caseID string) ([]*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM generated_documents
		WHERE case_id = $1
		ORDER BY document_number`

	rows, err := r.db.Query(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

// scanDocument scans a document from a row using the documentColumns order.
func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	err := row.Scan(
		&d.CaseID, &d.Number, &d.Name, &d.Type,
		&d.Content, &d.WordCount, &d.PageEstimate, &d.IsFallback, &d.GeneratedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
