package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/casewright/petition-service/internal/domain"
	"github.com/casewright/petition-service/internal/progress"
)

// PostgreSQL error codes used for constraint violation detection.
const (
	pgUniqueViolation = "23505" // unique_violation
)

// Compile-time interface verification.
var (
	_ CaseRepository        = (*PgCaseRepository)(nil)
	_ progress.DurableStore = (*PgCaseRepository)(nil)
)

// caseColumns is the canonical column list for scanning petition cases.
const caseColumns = `case_id, beneficiary_name, visa_category, field_of_endeavor,
		status, progress_percentage, current_stage, current_message, error_message,
		created_at, updated_at, completed_at`

// PgCaseRepository is a PostgreSQL implementation of CaseRepository.
type PgCaseRepository struct {
	db DBTX
}

// NewPgCaseRepository creates a new PostgreSQL case repository.
func NewPgCaseRepository(db DBTX) *PgCaseRepository {
	return &PgCaseRepository{db: db}
}

// Create inserts a new petition case.
func (r *PgCaseRepository) Create(ctx context.Context, c *domain.Case) error {
	if c == nil {
		return domain.NewValidationError("case", "case cannot be nil")
	}
	if c.ID == "" {
		return domain.NewValidationError("case_id", "case ID is required")
	}
	if c.BeneficiaryName == "" {
		return domain.NewValidationError("beneficiary_name", "beneficiary name is required")
	}
	if c.VisaCategory == "" {
		return domain.NewValidationError("visa_category", "visa category is required")
	}

	query := `
		INSERT INTO petition_cases (
			case_id, beneficiary_name, visa_category, field_of_endeavor,
			status, progress_percentage, current_stage, current_message, error_message,
			created_at, updated_at, completed_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9,
			$10, $11, $12
		)`

	_, err := r.db.Exec(ctx, query,
		c.ID, c.BeneficiaryName, c.VisaCategory, c.FieldOfEndeavor,
		c.Status, c.ProgressPercentage, c.CurrentStage, c.CurrentMessage, nullString(c.ErrorMessage),
		c.CreatedAt, c.UpdatedAt, c.CompletedAt,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewAlreadyExistsError("case", c.ID)
		}
		return fmt.Errorf("failed to create case: %w", err)
	}

	return nil
}

// Get retrieves a case by ID.
func (r *PgCaseRepository) Get(ctx context.Context, caseID string) (*domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM petition_cases WHERE case_id = $1`

	c, err := scanCase(r.db.QueryRow(ctx, query, caseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("case", caseID)
		}
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	return c, nil
}

// UpdateProgress persists a progress update for a case.
func (r *PgCaseRepository) UpdateProgress(ctx context.Context, caseID string, status domain.CaseStatus, percent int, stage, message string) error {
	query := `
		UPDATE petition_cases SET
			status = $2,
			progress_percentage = $3,
			current_stage = $4,
			current_message = $5,
			updated_at = $6
		WHERE case_id = $1`

	tag, err := r.db.Exec(ctx, query, caseID, status, percent, stage, message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update case progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("case", caseID)
	}
	return nil
}

// GetProgress loads the case's progress as a snapshot for status queries.
func (r *PgCaseRepository) GetProgress(ctx context.Context, caseID string) (progress.Snapshot, error) {
	query := `
		SELECT case_id, status, progress_percentage, current_stage, current_message,
			COALESCE(error_message, ''), updated_at
		FROM petition_cases
		WHERE case_id = $1`

	var s progress.Snapshot
	err := r.db.QueryRow(ctx, query, caseID).Scan(
		&s.CaseID, &s.Status, &s.Percent, &s.Stage, &s.Message, &s.Error, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return progress.Snapshot{}, domain.NewNotFoundError("case", caseID)
		}
		return progress.Snapshot{}, fmt.Errorf("failed to get case progress: %w", err)
	}
	return s, nil
}

// Complete marks the case completed at 100% and stamps completed_at.
func (r *PgCaseRepository) Complete(ctx context.Context, caseID string) error {
	now := time.Now().UTC()
	query := `
		UPDATE petition_cases SET
			status = $2,
			progress_percentage = 100,
			current_stage = 'completed',
			current_message = 'All documents generated',
			completed_at = $3,
			updated_at = $3
		WHERE case_id = $1`

	tag, err := r.db.Exec(ctx, query, caseID, domain.CaseStatusCompleted, now)
	if err != nil {
		return fmt.Errorf("failed to complete case: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("case", caseID)
	}
	return nil
}

// Fail marks the case failed and records the error message.
func (r *PgCaseRepository) Fail(ctx context.Context, caseID string, errorMsg string) error {
	query := `
		UPDATE petition_cases SET
			status = $2,
			error_message = $3,
			updated_at = $4
		WHERE case_id = $1`

	tag, err := r.db.Exec(ctx, query, caseID, domain.CaseStatusFailed, errorMsg, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark case failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("case", caseID)
	}
	return nil
}

// List retrieves cases matching the filter, newest first.
func (r *PgCaseRepository) List(ctx context.Context, filter CaseFilter) ([]*domain.Case, int64, error) {
	applyPaginationDefaults(&filter.Limit, &filter.Offset)

	var conditions []string
	var args []interface{}
	argN := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argN))
		args = append(args, filter.Status)
		argN++
	}
	if filter.VisaCategory != "" {
		conditions = append(conditions, fmt.Sprintf("visa_category = $%d", argN))
		args = append(args, filter.VisaCategory)
		argN++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := `SELECT COUNT(*) FROM petition_cases` + where
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count cases: %w", err)
	}

	listQuery := `SELECT ` + caseColumns + ` FROM petition_cases` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argN, argN+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()

	var cases []*domain.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan case: %w", err)
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate cases: %w", err)
	}

	return cases, total, nil
}

// AddURLs records the supporting URLs submitted with a case.
func (r *PgCaseRepository) AddURLs(ctx context.Context, caseID string, urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	query := `
		INSERT INTO case_urls (case_id, url, submitted_at)
		VALUES ($1, $2, $3)`

	now := time.Now().UTC()
	for _, u := range urls {
		if _, err := r.db.Exec(ctx, query, caseID, u, now); err != nil {
			return fmt.Errorf("failed to record case url: %w", err)
		}
	}
	return nil
}

// GetURLs returns the submitted URLs for a case in submission order.
func (r *PgCaseRepository) GetURLs(ctx context.Context, caseID string) ([]domain.CaseURL, error) {
	query := `
		SELECT id, case_id, url, submitted_at
		FROM case_urls
		WHERE case_id = $1
		ORDER BY submitted_at, id`

	rows, err := r.db.Query(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get case urls: %w", err)
	}
	defer rows.Close()

	var urls []domain.CaseURL
	for rows.Next() {
		var u domain.CaseURL
		if err := rows.Scan(&u.ID, &u.CaseID, &u.URL, &u.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan case url: %w", err)
		}
		urls = append(urls, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate case urls: %w", err)
	}

	return urls, nil
}

// scanCase scans a petition case from a row using the caseColumns order.
func scanCase(row pgx.Row) (*domain.Case, error) {
	var c domain.Case
	var errorMsg *string
	err := row.Scan(
		&c.ID, &c.BeneficiaryName, &c.VisaCategory, &c.FieldOfEndeavor,
		&c.Status, &c.ProgressPercentage, &c.CurrentStage, &c.CurrentMessage, &errorMsg,
		&c.CreatedAt, &c.UpdatedAt, &c.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if errorMsg != nil {
		c.ErrorMessage = *errorMsg
	}
	return &c, nil
}

// isPgUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// nullString returns a pointer to the string if non-empty, otherwise nil.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
