package repository

import (
	"context"

	"github.com/casewright/petition-service/internal/domain"
	"github.com/casewright/petition-service/internal/progress"
)

// CaseFilter selects cases for listing.
type CaseFilter struct {
	// Status filters by case status when non-empty.
	Status domain.CaseStatus
	// VisaCategory filters by visa category when non-empty.
	VisaCategory domain.VisaCategory
	// Limit caps the number of returned rows (default 100, max 1000).
	Limit int
	// Offset skips rows for pagination.
	Offset int
}

// CaseRepository handles petition case persistence and lifecycle management.
type CaseRepository interface {
	// Create inserts a new petition case.
	// Returns domain.ErrAlreadyExists if the case ID is taken.
	Create(ctx context.Context, c *domain.Case) error

	// Get retrieves a case by ID.
	// Returns domain.ErrNotFound if no matching case exists.
	Get(ctx context.Context, caseID string) (*domain.Case, error)

	// UpdateProgress persists a progress update: status, percentage, stage,
	// and user-facing message. Returns domain.ErrNotFound for unknown cases.
	UpdateProgress(ctx context.Context, caseID string, status domain.CaseStatus, percent int, stage, message string) error

	// GetProgress loads the case's progress as a snapshot for status queries.
	// Returns domain.ErrNotFound for unknown cases.
	GetProgress(ctx context.Context, caseID string) (progress.Snapshot, error)

	// Complete marks the case completed at 100% and stamps completed_at.
	// Returns domain.ErrNotFound for unknown cases.
	Complete(ctx context.Context, caseID string) error

	// Fail marks the case failed and records the error message.
	// Returns domain.ErrNotFound for unknown cases.
	Fail(ctx context.Context, caseID string, errorMsg string) error

	// List retrieves cases matching the filter, newest first, with the total
	// count of matching rows for pagination.
	List(ctx context.Context, filter CaseFilter) ([]*domain.Case, int64, error)

	// AddURLs records the supporting URLs submitted with a case.
	AddURLs(ctx context.Context, caseID string, urls []string) error

	// GetURLs returns the submitted URLs for a case in submission order.
	GetURLs(ctx context.Context, caseID string) ([]domain.CaseURL, error)
}
