// Package workflows defines the Temporal workflow that orchestrates petition
// document generation.
package workflows

import (
	"encoding/json"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/casewright/petition-service/internal/domain"
	ptemporal "github.com/casewright/petition-service/internal/temporal"
	"github.com/casewright/petition-service/internal/temporal/activities"
)

// Re-export signal/query name constants from the parent temporal package for
// convenience. These are defined in the parent package so the server layer can
// reference them without depending on the workflows package.
const (
	SignalCancel  = ptemporal.SignalCancel
	QueryProgress = ptemporal.QueryProgress
)

// Activity timeout constants.
const (
	// contextActivityTimeout bounds context preparation, which fetches every
	// supporting URL with per-fetch timeouts inside the fetcher.
	contextActivityTimeout = 10 * time.Minute

	// generationActivityTimeout bounds one document generation including the
	// gateway's internal retries and provider failover.
	generationActivityTimeout = 20 * time.Minute

	persistenceActivityTimeout = 30 * time.Second
	eventActivityTimeout       = 30 * time.Second
)

// documentProgress maps each document number to the overall completion
// percentage reported after that document is generated.
var documentProgress = map[int]int{
	1: 20, 2: 35, 3: 45, 4: 55, 5: 65, 6: 75, 7: 82, 8: 90,
}

// PetitionWorkflowInput is an alias for the shared input type defined in the
// parent temporal package. This allows the workflow function signature to
// remain unchanged while the type is importable from either location.
type PetitionWorkflowInput = ptemporal.PetitionWorkflowInput

// PetitionWorkflowResult contains the final results of a petition document workflow.
type PetitionWorkflowResult struct {
	// CaseID is the petition case identifier.
	CaseID string

	// DocumentCount is the number of documents generated and saved.
	DocumentCount int

	// FallbackDocuments is the number of documents that received placeholder
	// fallback content after all generation attempts failed.
	FallbackDocuments int

	// Duration is the total workflow execution time in seconds.
	Duration float64
}

// workflowProgress tracks the internal progress state of the workflow, exposed
// via the QueryProgress query handler.
type workflowProgress struct {
	Status            string
	Percent           int
	Stage             string
	Message           string
	DocumentsDone     int
	FallbackDocuments int
}

// PetitionWorkflow orchestrates the generation of a complete petition
// document package for one case.
//
// The workflow proceeds through the following phases:
//  1. Prepare the case context: fetch supporting URLs, collect uploaded
//     evidence text, and load visa-category reference material
//  2. Generate the eight petition documents in pipeline order, feeding each
//     step excerpts of the earlier documents it depends on
//  3. Persist all documents and mark the case complete
//
// Generation retries and provider failover happen inside the activity's text
// generation gateway, so generation activities run with a single Temporal
// attempt; a step whose generation fails entirely yields fallback placeholder
// content rather than failing the workflow.
//
// The workflow supports cancellation via the "cancel" signal and progress
// queries via the "progress" query type.
func PetitionWorkflow(ctx workflow.Context, input PetitionWorkflowInput) (*PetitionWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	startTime := workflow.Now(ctx)

	progress := &workflowProgress{
		Status:  string(domain.CaseStatusInitializing),
		Percent: 5,
		Stage:   "initializing",
		Message: "Preparing petition case",
	}

	// Register query handler for progress reporting.
	err := workflow.SetQueryHandler(ctx, QueryProgress, func() (*workflowProgress, error) {
		return progress, nil
	})
	if err != nil {
		logger.Error("failed to register progress query handler", "error", err)
		return nil, fmt.Errorf("register query handler: %w", err)
	}

	// Set up cancellation signal handling.
	cancelCtx, cancelFunc := workflow.WithCancel(ctx)
	signalCh := workflow.GetSignalChannel(ctx, SignalCancel)
	workflow.Go(ctx, func(gCtx workflow.Context) {
		signalCh.Receive(gCtx, nil)
		logger.Info("received cancel signal", "caseID", input.CaseID)
		cancelFunc()
	})

	// Activity nil-pointer variables for method references.
	var contextAct *activities.ContextActivities
	var generationAct *activities.GenerationActivities
	var persistenceAct *activities.PersistenceActivities
	var deliveryAct *activities.DeliveryActivities

	// Build activity option contexts with retry policies.
	contextCtx := workflow.WithActivityOptions(cancelCtx, workflow.ActivityOptions{
		StartToCloseTimeout: contextActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    1 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	})

	// Retries and failover for generation live inside the gateway, so the
	// activity itself runs exactly once.
	generationCtx := workflow.WithActivityOptions(cancelCtx, workflow.ActivityOptions{
		StartToCloseTimeout: generationActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	persistenceCtx := workflow.WithActivityOptions(cancelCtx, workflow.ActivityOptions{
		StartToCloseTimeout: persistenceActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    500 * time.Millisecond,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	})

	eventCtx := workflow.WithActivityOptions(cancelCtx, workflow.ActivityOptions{
		StartToCloseTimeout: eventActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    500 * time.Millisecond,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	})

	// Helper to persist a progress update and mirror it in the query state.
	updateProgress := func(status domain.CaseStatus, percent int, stage, message string) error {
		progress.Status = string(status)
		progress.Percent = percent
		progress.Stage = stage
		progress.Message = message
		return workflow.ExecuteActivity(persistenceCtx, persistenceAct.UpdateProgress, activities.UpdateProgressInput{
			CaseID:  input.CaseID,
			Status:  status,
			Percent: percent,
			Stage:   stage,
			Message: message,
		}).Get(cancelCtx, nil)
	}

	// handleFailure marks the case failed and returns the original error.
	handleFailure := func(stage string, originalErr error) (*PetitionWorkflowResult, error) {
		logger.Error("workflow failed", "caseID", input.CaseID, "stage", stage, "error", originalErr)
		progress.Status = string(domain.CaseStatusFailed)
		progress.Stage = stage

		// Use the root context for failure writes to avoid cancelled context issues.
		failCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
			StartToCloseTimeout: persistenceActivityTimeout,
			RetryPolicy: &temporal.RetryPolicy{
				InitialInterval:    500 * time.Millisecond,
				BackoffCoefficient: 2.0,
				MaximumInterval:    10 * time.Second,
				MaximumAttempts:    5,
			},
		})
		_ = workflow.ExecuteActivity(failCtx, persistenceAct.FailCase, activities.FailCaseInput{
			CaseID:   input.CaseID,
			Stage:    stage,
			ErrorMsg: originalErr.Error(),
			Percent:  progress.Percent,
		}).Get(ctx, nil)

		// Fire-and-forget: publish case.failed event using root context.
		if payload, perr := json.Marshal(domain.CaseFailedPayload{
			CaseID: input.CaseID,
			Error:  originalErr.Error(),
			Stage:  stage,
		}); perr == nil {
			_ = workflow.ExecuteActivity(failCtx, deliveryAct.PublishEvent, activities.PublishEventInput{
				EventType: domain.EventTypeCaseFailed,
				CaseID:    input.CaseID,
				Payload:   payload,
			}).Get(ctx, nil)
		}

		return nil, originalErr
	}

	logger.Info("starting petition workflow",
		"caseID", input.CaseID,
		"visaCategory", input.VisaCategory,
		"urls", len(input.URLs),
		"files", len(input.Files),
	)

	if err := updateProgress(domain.CaseStatusInitializing, 5, "initializing", "Preparing petition case"); err != nil {
		return handleFailure("initializing", fmt.Errorf("update progress: %w", err))
	}

	// Fire-and-forget: publish case.started event.
	if payload, perr := json.Marshal(domain.CaseStartedPayload{
		CaseID:          input.CaseID,
		BeneficiaryName: input.BeneficiaryName,
		VisaCategory:    input.VisaCategory,
	}); perr == nil {
		_ = workflow.ExecuteActivity(eventCtx, deliveryAct.PublishEvent, activities.PublishEventInput{
			EventType: domain.EventTypeCaseStarted,
			CaseID:    input.CaseID,
			Payload:   payload,
		}).Get(cancelCtx, nil)
	}

	// =========================================================================
	// Phase 1: Prepare the case context
	// =========================================================================

	if err := updateProgress(domain.CaseStatusResearching, 10, "context_preparation", "Analyzing evidence and supporting sources"); err != nil {
		return handleFailure("context_preparation", fmt.Errorf("update progress: %w", err))
	}

	var prepOutput activities.PrepareContextOutput
	err = workflow.ExecuteActivity(contextCtx, contextAct.PrepareContext, activities.PrepareContextInput{
		CaseID:          input.CaseID,
		BeneficiaryName: input.BeneficiaryName,
		VisaCategory:    input.VisaCategory,
		FieldOfEndeavor: input.FieldOfEndeavor,
		URLs:            input.URLs,
		Files:           input.Files,
	}).Get(cancelCtx, &prepOutput)
	if err != nil {
		return handleFailure("context_preparation", fmt.Errorf("prepare context: %w", err))
	}

	// =========================================================================
	// Phase 2: Generate the eight petition documents in pipeline order
	// =========================================================================

	generated := make([]activities.GenerateDocumentOutput, 0, domain.DocumentCount)
	priorDocuments := make(map[int]string, domain.DocumentCount)
	fallbackCount := 0

	for number := 1; number <= domain.DocumentCount; number++ {
		stage := fmt.Sprintf("document_%d", number)
		message := fmt.Sprintf("Generating document %d of %d", number, domain.DocumentCount)
		if err := updateProgress(domain.CaseStatusGenerating, documentProgress[number], stage, message); err != nil {
			return handleFailure(stage, fmt.Errorf("update progress: %w", err))
		}

		var docOutput activities.GenerateDocumentOutput
		err = workflow.ExecuteActivity(generationCtx, generationAct.GenerateDocument, activities.GenerateDocumentInput{
			CaseID:         input.CaseID,
			StepNumber:     number,
			Preparation:    prepOutput.Preparation,
			PriorDocuments: priorDocuments,
		}).Get(cancelCtx, &docOutput)
		if err != nil {
			return handleFailure(stage, fmt.Errorf("generate document %d: %w", number, err))
		}

		generated = append(generated, docOutput)
		priorDocuments[number] = docOutput.Content
		if docOutput.IsFallback {
			fallbackCount++
		}

		progress.DocumentsDone = number
		progress.FallbackDocuments = fallbackCount

		logger.Info("document generated",
			"caseID", input.CaseID,
			"documentNumber", number,
			"documentName", docOutput.DocumentName,
			"isFallback", docOutput.IsFallback,
		)
	}

	// =========================================================================
	// Phase 3: Persist documents and complete the case
	// =========================================================================

	if err := updateProgress(domain.CaseStatusGenerating, 95, "saving", "Saving generated documents"); err != nil {
		return handleFailure("saving", fmt.Errorf("update progress: %w", err))
	}

	// Save failures never fail the case: the documents exist in workflow state
	// and the case completes with whatever subset could be persisted.
	var saveOutput activities.SaveDocumentsOutput
	err = workflow.ExecuteActivity(persistenceCtx, persistenceAct.SaveDocuments, activities.SaveDocumentsInput{
		CaseID:    input.CaseID,
		Documents: generated,
	}).Get(cancelCtx, &saveOutput)
	if err != nil {
		logger.Error("saving documents failed", "caseID", input.CaseID, "error", err)
	} else if len(saveOutput.FailedNumbers) > 0 {
		logger.Error("some documents failed to save",
			"caseID", input.CaseID,
			"savedCount", saveOutput.SavedCount,
			"failedNumbers", saveOutput.FailedNumbers,
		)
	}

	err = workflow.ExecuteActivity(persistenceCtx, persistenceAct.CompleteCase, activities.CompleteCaseInput{
		CaseID: input.CaseID,
	}).Get(cancelCtx, nil)
	if err != nil {
		return handleFailure("completing", fmt.Errorf("complete case: %w", err))
	}

	progress.Status = string(domain.CaseStatusCompleted)
	progress.Percent = 100
	progress.Stage = "completed"
	progress.Message = "All petition documents generated"

	elapsed := workflow.Now(ctx).Sub(startTime)
	duration := elapsed.Seconds()

	// Fire-and-forget: publish case.completed event.
	if payload, perr := json.Marshal(domain.CaseCompletedPayload{
		CaseID:            input.CaseID,
		DocumentCount:     saveOutput.SavedCount,
		FallbackDocuments: fallbackCount,
		Duration:          elapsed,
	}); perr == nil {
		_ = workflow.ExecuteActivity(eventCtx, deliveryAct.PublishEvent, activities.PublishEventInput{
			EventType: domain.EventTypeCaseCompleted,
			CaseID:    input.CaseID,
			Payload:   payload,
		}).Get(cancelCtx, nil)
	}

	logger.Info("petition workflow completed",
		"caseID", input.CaseID,
		"documents", saveOutput.SavedCount,
		"fallbackDocuments", fallbackCount,
		"durationSeconds", duration,
	)

	return &PetitionWorkflowResult{
		CaseID:            input.CaseID,
		DocumentCount:     saveOutput.SavedCount,
		FallbackDocuments: fallbackCount,
		Duration:          duration,
	}, nil
}
