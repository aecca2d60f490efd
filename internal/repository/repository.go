// Package repository provides data access interfaces and implementations
// for the Petition Document Service.
//
// The package defines two repository interfaces and their PostgreSQL
// implementations following the repository pattern:
//
//   - CaseRepository: petition case lifecycle, progress, and submitted URLs
//   - DocumentRepository: generated document persistence with idempotent upsert
//
// All repository implementations are safe for concurrent use by multiple
// goroutines; the underlying pgxpool handles connection pooling.
//
// Methods return domain-specific errors: domain.ErrNotFound when a row does
// not exist and domain.ErrAlreadyExists on unique constraint violations.
// Database errors are wrapped with context using fmt.Errorf and %w.
//
// Repositories accept the DBTX interface so they work against both a pool
// and an open transaction:
//
//	db, _ := database.New(ctx, cfg, logger)
//	caseRepo := repository.NewPgCaseRepository(db)
//	docRepo := repository.NewPgDocumentRepository(db)
package repository

import (
	"github.com/casewright/petition-service/internal/database"
)

// DBTX is the database interface supporting both pool and transaction
// contexts, enabling transactional composition and pgxmock-based testing.
type DBTX = database.DBTX

// Filter pagination defaults and limits.
const (
	defaultFilterLimit = 100
	maxFilterLimit     = 1000
)

// applyPaginationDefaults normalizes limit and offset values for filter queries.
// It clamps limit to [1, maxFilterLimit] and ensures offset >= 0.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = defaultFilterLimit
	}
	if *limit > maxFilterLimit {
		*limit = maxFilterLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}
