package workflows

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/casewright/petition-service/internal/domain"
	"github.com/casewright/petition-service/internal/temporal/activities"
)

// newTestInput returns a PetitionWorkflowInput configured for tests.
func newTestInput() PetitionWorkflowInput {
	return PetitionWorkflowInput{
		CaseID:          "case-1",
		BeneficiaryName: "Dr. Maria Santos",
		VisaCategory:    "EB-1A",
		FieldOfEndeavor: "computational biology",
		URLs:            []string{"https://example.com/profile"},
		Files: []domain.UploadedFile{
			{Name: "cv.pdf", ExtractedText: "Publications: 42."},
		},
	}
}

// testPreparation returns the prepared case context used across tests.
func testPreparation() domain.PreparationData {
	return domain.PreparationData{
		CaseID:          "case-1",
		BeneficiaryName: "Dr. Maria Santos",
		VisaCategory:    "EB-1A",
		FieldOfEndeavor: "computational biology",
		KnowledgeBase:   "EB-1A criteria reference.",
	}
}

func TestPetitionWorkflow_Success(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	input := newTestInput()

	// Activity nil-pointer references matching the workflow pattern.
	var contextAct *activities.ContextActivities
	var generationAct *activities.GenerationActivities
	var persistenceAct *activities.PersistenceActivities
	var deliveryAct *activities.DeliveryActivities

	env.OnActivity(persistenceAct.UpdateProgress, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(deliveryAct.PublishEvent, mock.Anything, mock.Anything).Return(nil)

	env.OnActivity(contextAct.PrepareContext, mock.Anything, mock.Anything).Return(
		&activities.PrepareContextOutput{Preparation: testPreparation()}, nil,
	)

	// GenerateDocument echoes the requested step so the workflow can thread
	// prior document content into later steps.
	env.OnActivity(generationAct.GenerateDocument, mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.GenerateDocumentInput) (*activities.GenerateDocumentOutput, error) {
			return &activities.GenerateDocumentOutput{
				CaseID:         in.CaseID,
				DocumentNumber: in.StepNumber,
				DocumentName:   fmt.Sprintf("Document %d", in.StepNumber),
				DocumentType:   "analysis",
				Content:        fmt.Sprintf("content of document %d", in.StepNumber),
				Provider:       "anthropic",
				Model:          "test-model",
			}, nil
		},
	)

	env.OnActivity(persistenceAct.SaveDocuments, mock.Anything, mock.Anything).Return(
		&activities.SaveDocumentsOutput{SavedCount: 8}, nil,
	)
	env.OnActivity(persistenceAct.CompleteCase, mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(PetitionWorkflow, input)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result PetitionWorkflowResult
	require.NoError(t, env.GetWorkflowResult(&result))

	assert.Equal(t, "case-1", result.CaseID)
	assert.Equal(t, 8, result.DocumentCount)
	assert.Equal(t, 0, result.FallbackDocuments)
	assert.GreaterOrEqual(t, result.Duration, 0.0)

	env.AssertExpectations(t)
}

func TestPetitionWorkflow_CountsFallbackDocuments(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	var contextAct *activities.ContextActivities
	var generationAct *activities.GenerationActivities
	var persistenceAct *activities.PersistenceActivities
	var deliveryAct *activities.DeliveryActivities

	env.OnActivity(persistenceAct.UpdateProgress, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(deliveryAct.PublishEvent, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(contextAct.PrepareContext, mock.Anything, mock.Anything).Return(
		&activities.PrepareContextOutput{Preparation: testPreparation()}, nil,
	)

	// Documents 3 and 7 fall back to placeholder content.
	env.OnActivity(generationAct.GenerateDocument, mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.GenerateDocumentInput) (*activities.GenerateDocumentOutput, error) {
			fallback := in.StepNumber == 3 || in.StepNumber == 7
			return &activities.GenerateDocumentOutput{
				CaseID:         in.CaseID,
				DocumentNumber: in.StepNumber,
				DocumentName:   fmt.Sprintf("Document %d", in.StepNumber),
				DocumentType:   "analysis",
				Content:        "content",
				IsFallback:     fallback,
			}, nil
		},
	)

	env.OnActivity(persistenceAct.SaveDocuments, mock.Anything, mock.Anything).Return(
		&activities.SaveDocumentsOutput{SavedCount: 8}, nil,
	)
	env.OnActivity(persistenceAct.CompleteCase, mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(PetitionWorkflow, newTestInput())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result PetitionWorkflowResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, 2, result.FallbackDocuments)
}

func TestPetitionWorkflow_PrepareContextFailure(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	var contextAct *activities.ContextActivities
	var persistenceAct *activities.PersistenceActivities
	var deliveryAct *activities.DeliveryActivities

	env.OnActivity(persistenceAct.UpdateProgress, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(deliveryAct.PublishEvent, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(contextAct.PrepareContext, mock.Anything, mock.Anything).Return(
		nil, assert.AnError,
	)

	// The failure path must mark the case failed, keeping the percent the
	// workflow had reached when context preparation started.
	env.OnActivity(persistenceAct.FailCase, mock.Anything, mock.MatchedBy(func(in activities.FailCaseInput) bool {
		return in.CaseID == "case-1" && in.Stage == "context_preparation" && in.Percent == 10
	})).Return(nil)

	env.ExecuteWorkflow(PetitionWorkflow, newTestInput())

	require.True(t, env.IsWorkflowCompleted())

	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prepare context")

	env.AssertExpectations(t)
}

func TestPetitionWorkflow_PartialSaveStillCompletes(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	var contextAct *activities.ContextActivities
	var generationAct *activities.GenerationActivities
	var persistenceAct *activities.PersistenceActivities
	var deliveryAct *activities.DeliveryActivities

	env.OnActivity(persistenceAct.UpdateProgress, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(deliveryAct.PublishEvent, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(contextAct.PrepareContext, mock.Anything, mock.Anything).Return(
		&activities.PrepareContextOutput{Preparation: testPreparation()}, nil,
	)
	env.OnActivity(generationAct.GenerateDocument, mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.GenerateDocumentInput) (*activities.GenerateDocumentOutput, error) {
			return &activities.GenerateDocumentOutput{
				CaseID:         in.CaseID,
				DocumentNumber: in.StepNumber,
				DocumentName:   fmt.Sprintf("Document %d", in.StepNumber),
				DocumentType:   "analysis",
				Content:        "content",
			}, nil
		},
	)

	// Document 3 could not be written; the case still completes with the
	// documents that were.
	env.OnActivity(persistenceAct.SaveDocuments, mock.Anything, mock.Anything).Return(
		&activities.SaveDocumentsOutput{SavedCount: 7, FailedNumbers: []int{3}}, nil,
	)
	env.OnActivity(persistenceAct.CompleteCase, mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(PetitionWorkflow, newTestInput())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result PetitionWorkflowResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, 7, result.DocumentCount)

	env.AssertExpectations(t)
}

func TestPetitionWorkflow_SaveDocumentsErrorStillCompletes(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	var contextAct *activities.ContextActivities
	var generationAct *activities.GenerationActivities
	var persistenceAct *activities.PersistenceActivities
	var deliveryAct *activities.DeliveryActivities

	env.OnActivity(persistenceAct.UpdateProgress, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(deliveryAct.PublishEvent, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(contextAct.PrepareContext, mock.Anything, mock.Anything).Return(
		&activities.PrepareContextOutput{Preparation: testPreparation()}, nil,
	)
	env.OnActivity(generationAct.GenerateDocument, mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.GenerateDocumentInput) (*activities.GenerateDocumentOutput, error) {
			return &activities.GenerateDocumentOutput{
				CaseID:         in.CaseID,
				DocumentNumber: in.StepNumber,
				DocumentName:   fmt.Sprintf("Document %d", in.StepNumber),
				DocumentType:   "analysis",
				Content:        "content",
			}, nil
		},
	)

	// Persistence is unavailable entirely. The case must still complete; no
	// FailCase mock is registered, so routing to the failure path would fail
	// the test.
	env.OnActivity(persistenceAct.SaveDocuments, mock.Anything, mock.Anything).Return(
		nil, assert.AnError,
	)
	env.OnActivity(persistenceAct.CompleteCase, mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(PetitionWorkflow, newTestInput())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result PetitionWorkflowResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, 0, result.DocumentCount)

	env.AssertExpectations(t)
}

func TestPetitionWorkflow_ProgressPercentNeverDecreases(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	var contextAct *activities.ContextActivities
	var generationAct *activities.GenerationActivities
	var persistenceAct *activities.PersistenceActivities
	var deliveryAct *activities.DeliveryActivities

	var percents []int
	env.OnActivity(persistenceAct.UpdateProgress, mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.UpdateProgressInput) error {
			percents = append(percents, in.Percent)
			return nil
		},
	)
	env.OnActivity(deliveryAct.PublishEvent, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(contextAct.PrepareContext, mock.Anything, mock.Anything).Return(
		&activities.PrepareContextOutput{Preparation: testPreparation()}, nil,
	)
	env.OnActivity(generationAct.GenerateDocument, mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.GenerateDocumentInput) (*activities.GenerateDocumentOutput, error) {
			return &activities.GenerateDocumentOutput{
				CaseID:         in.CaseID,
				DocumentNumber: in.StepNumber,
				DocumentName:   fmt.Sprintf("Document %d", in.StepNumber),
				DocumentType:   "analysis",
				Content:        "content",
			}, nil
		},
	)
	env.OnActivity(persistenceAct.SaveDocuments, mock.Anything, mock.Anything).Return(
		&activities.SaveDocumentsOutput{SavedCount: 8}, nil,
	)
	env.OnActivity(persistenceAct.CompleteCase, mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(PetitionWorkflow, newTestInput())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	// One update per phase plus one per document.
	require.NotEmpty(t, percents)
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1],
			"percent decreased from %d to %d at update %d", percents[i-1], percents[i], i)
	}
	assert.Equal(t, 95, percents[len(percents)-1])

	encoded, err := env.QueryWorkflow(QueryProgress)
	require.NoError(t, err)
	var progress workflowProgress
	require.NoError(t, encoded.Get(&progress))
	assert.Equal(t, 100, progress.Percent)
}

func TestPetitionWorkflow_ProgressQuery(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	var contextAct *activities.ContextActivities
	var generationAct *activities.GenerationActivities
	var persistenceAct *activities.PersistenceActivities
	var deliveryAct *activities.DeliveryActivities

	env.OnActivity(persistenceAct.UpdateProgress, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(deliveryAct.PublishEvent, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(contextAct.PrepareContext, mock.Anything, mock.Anything).Return(
		&activities.PrepareContextOutput{Preparation: testPreparation()}, nil,
	)
	env.OnActivity(generationAct.GenerateDocument, mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.GenerateDocumentInput) (*activities.GenerateDocumentOutput, error) {
			return &activities.GenerateDocumentOutput{
				CaseID:         in.CaseID,
				DocumentNumber: in.StepNumber,
				DocumentName:   fmt.Sprintf("Document %d", in.StepNumber),
				DocumentType:   "analysis",
				Content:        "content",
			}, nil
		},
	)
	env.OnActivity(persistenceAct.SaveDocuments, mock.Anything, mock.Anything).Return(
		&activities.SaveDocumentsOutput{SavedCount: 8}, nil,
	)
	env.OnActivity(persistenceAct.CompleteCase, mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(PetitionWorkflow, newTestInput())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	encoded, err := env.QueryWorkflow(QueryProgress)
	require.NoError(t, err)

	var progress workflowProgress
	require.NoError(t, encoded.Get(&progress))

	assert.Equal(t, string(domain.CaseStatusCompleted), progress.Status)
	assert.Equal(t, 100, progress.Percent)
	assert.Equal(t, "completed", progress.Stage)
	assert.Equal(t, 8, progress.DocumentsDone)
}
