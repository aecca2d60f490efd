package activities

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/casewright/petition-service/internal/domain"
	"github.com/casewright/petition-service/internal/observability"
	"github.com/casewright/petition-service/internal/progress"
	"github.com/casewright/petition-service/internal/repository"
)

// ProgressTracker writes progress snapshots to the durable and in-memory stores.
type ProgressTracker interface {
	Set(ctx context.Context, snapshot progress.Snapshot)
}

// PersistenceActivities handles the workflow's database writes: progress
// updates, document persistence, and case completion or failure.
// Methods on this struct are registered as Temporal activities via the worker.
type PersistenceActivities struct {
	cases     repository.CaseRepository
	documents repository.DocumentRepository
	tracker   ProgressTracker
	metrics   *observability.Metrics
}

// NewPersistenceActivities creates a new PersistenceActivities instance.
// The metrics parameter may be nil (metrics recording will be skipped).
func NewPersistenceActivities(cases repository.CaseRepository, documents repository.DocumentRepository, tracker ProgressTracker, metrics *observability.Metrics) *PersistenceActivities {
	return &PersistenceActivities{
		cases:     cases,
		documents: documents,
		tracker:   tracker,
		metrics:   metrics,
	}
}

// UpdateProgress records a progress update for the case in both progress
// stores via the tracker. The tracker treats durable-store failures as
// non-fatal, so this activity only errors on invalid input.
func (a *PersistenceActivities) UpdateProgress(ctx context.Context, input UpdateProgressInput) error {
	logger := activity.GetLogger(ctx)
	logger.Info("updating progress",
		"caseID", input.CaseID,
		"status", input.Status,
		"percent", input.Percent,
		"stage", input.Stage,
	)

	if input.CaseID == "" {
		return fmt.Errorf("update progress: case ID is required")
	}

	a.tracker.Set(ctx, progress.Snapshot{
		CaseID:    input.CaseID,
		Status:    input.Status,
		Percent:   input.Percent,
		Stage:     input.Stage,
		Message:   input.Message,
		UpdatedAt: time.Now().UTC(),
	})

	return nil
}

// SaveDocuments persists the generated documents for a case. Each write is an
// upsert keyed by (case_id, document_number), and every document is attempted
// regardless of earlier failures: a failed save is logged and reported in the
// output, never returned as an activity error, so the case still completes
// with the documents that could be written.
func (a *PersistenceActivities) SaveDocuments(ctx context.Context, input SaveDocumentsInput) (*SaveDocumentsOutput, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("saving documents", "caseID", input.CaseID, "count", len(input.Documents))

	now := time.Now().UTC()
	output := &SaveDocumentsOutput{}
	for _, d := range input.Documents {
		doc := domain.NewDocument(
			input.CaseID,
			d.DocumentNumber,
			d.DocumentName,
			domain.DocumentType(d.DocumentType),
			d.Content,
			d.IsFallback,
			now,
		)
		if err := a.documents.Upsert(ctx, &doc); err != nil {
			logger.Error("failed to save document",
				"caseID", input.CaseID,
				"documentNumber", d.DocumentNumber,
				"error", err,
			)
			output.FailedNumbers = append(output.FailedNumbers, d.DocumentNumber)
			continue
		}
		output.SavedCount++
	}

	return output, nil
}

// CompleteCase marks the case completed and writes the final progress snapshot.
func (a *PersistenceActivities) CompleteCase(ctx context.Context, input CompleteCaseInput) error {
	logger := activity.GetLogger(ctx)
	logger.Info("completing case", "caseID", input.CaseID)

	if err := a.cases.Complete(ctx, input.CaseID); err != nil {
		return fmt.Errorf("complete case: %w", err)
	}

	a.tracker.Set(ctx, progress.Snapshot{
		CaseID:    input.CaseID,
		Status:    domain.CaseStatusCompleted,
		Percent:   100,
		Stage:     "completed",
		Message:   "All petition documents generated",
		UpdatedAt: time.Now().UTC(),
	})

	return nil
}

// FailCase marks the case failed and records the error. The failure is also
// written to the progress stores so status queries surface it.
func (a *PersistenceActivities) FailCase(ctx context.Context, input FailCaseInput) error {
	logger := activity.GetLogger(ctx)
	logger.Info("failing case", "caseID", input.CaseID, "stage", input.Stage)

	if err := a.cases.Fail(ctx, input.CaseID, input.ErrorMsg); err != nil {
		return fmt.Errorf("fail case: %w", err)
	}

	a.tracker.Set(ctx, progress.Snapshot{
		CaseID:    input.CaseID,
		Status:    domain.CaseStatusFailed,
		Percent:   input.Percent,
		Stage:     input.Stage,
		Message:   "Document generation failed",
		Error:     input.ErrorMsg,
		UpdatedAt: time.Now().UTC(),
	})

	return nil
}
