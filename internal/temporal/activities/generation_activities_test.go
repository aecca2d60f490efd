package activities

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/casewright/petition-service/internal/domain"
	"github.com/casewright/petition-service/internal/llm"
	"github.com/casewright/petition-service/internal/pipeline"
)

// fakeGenerator implements llm.TextGenerator for activity tests.
type fakeGenerator struct {
	result  *llm.GenerationResult
	err     error
	gotReqs []llm.GenerationRequest
}

func (g *fakeGenerator) Generate(_ context.Context, req llm.GenerationRequest) (*llm.GenerationResult, error) {
	g.gotReqs = append(g.gotReqs, req)
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

func (g *fakeGenerator) Provider() string    { return "fake" }
func (g *fakeGenerator) Model() string       { return "fake-model" }
func (g *fakeGenerator) MaxOutputTokens() int { return 16384 }

func testPreparation() domain.PreparationData {
	return domain.PreparationData{
		CaseID:          "case-1",
		BeneficiaryName: "Dr. Maria Santos",
		VisaCategory:    "EB-1A",
		FieldOfEndeavor: "computational biology",
	}
}

func TestGenerateDocument_Success(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()

	gen := &fakeGenerator{
		result: &llm.GenerationResult{
			Text:         "# Comprehensive Case Analysis\n\nThe beneficiary...",
			Model:        "claude-sonnet-4-20250514",
			Provider:     "anthropic",
			InputTokens:  1200,
			OutputTokens: 3400,
		},
	}
	acts := NewGenerationActivities(gen, nil)
	env.RegisterActivity(acts.GenerateDocument)

	input := GenerateDocumentInput{
		CaseID:      "case-1",
		StepNumber:  1,
		Preparation: testPreparation(),
	}

	result, err := env.ExecuteActivity(acts.GenerateDocument, input)
	require.NoError(t, err)

	var output GenerateDocumentOutput
	require.NoError(t, result.Get(&output))

	assert.Equal(t, "case-1", output.CaseID)
	assert.Equal(t, 1, output.DocumentNumber)
	assert.Equal(t, "Comprehensive Case Analysis", output.DocumentName)
	assert.Equal(t, "analysis", output.DocumentType)
	assert.Equal(t, gen.result.Text, output.Content)
	assert.Equal(t, "anthropic", output.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", output.Model)
	assert.Equal(t, 1200, output.InputTokens)
	assert.Equal(t, 3400, output.OutputTokens)
	assert.False(t, output.IsFallback)

	require.Len(t, gen.gotReqs, 1)
	req := gen.gotReqs[0]
	assert.Contains(t, req.Prompt, "Comprehensive Case Analysis")
	assert.Contains(t, req.Prompt, "Dr. Maria Santos")
	assert.NotEmpty(t, req.SystemPrompt)
	assert.Equal(t, 16384, req.MaxTokens)
	assert.InDelta(t, 0.3, req.Temperature, 0.0001)
}

func TestGenerateDocument_DependencyExcerpts(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()

	gen := &fakeGenerator{
		result: &llm.GenerationResult{Text: "brief", Provider: "anthropic", Model: "m"},
	}
	acts := NewGenerationActivities(gen, nil)
	env.RegisterActivity(acts.GenerateDocument)

	// Step 4 (legal brief) depends on steps 1 and 2.
	input := GenerateDocumentInput{
		CaseID:      "case-1",
		StepNumber:  4,
		Preparation: testPreparation(),
		PriorDocuments: map[int]string{
			1: "analysis content from step one",
			2: "publication analysis from step two",
			3: "unrelated reference content",
		},
	}

	_, err := env.ExecuteActivity(acts.GenerateDocument, input)
	require.NoError(t, err)

	require.Len(t, gen.gotReqs, 1)
	prompt := gen.gotReqs[0].Prompt
	assert.Contains(t, prompt, "analysis content from step one")
	assert.Contains(t, prompt, "publication analysis from step two")
	assert.NotContains(t, prompt, "unrelated reference content")
}

func TestGenerateDocument_FallbackOnTotalFailure(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()

	gen := &fakeGenerator{err: errors.New("anthropic: status 529: overloaded")}
	acts := NewGenerationActivities(gen, nil)
	env.RegisterActivity(acts.GenerateDocument)

	input := GenerateDocumentInput{
		CaseID:      "case-1",
		StepNumber:  6,
		Preparation: testPreparation(),
	}

	result, err := env.ExecuteActivity(acts.GenerateDocument, input)
	require.NoError(t, err, "total generation failure must yield fallback content, not an error")

	var output GenerateDocumentOutput
	require.NoError(t, result.Get(&output))

	spec, specErr := pipeline.StepByNumber(6)
	require.NoError(t, specErr)

	assert.True(t, output.IsFallback)
	assert.Empty(t, output.Provider)
	assert.Empty(t, output.Model)
	assert.Equal(t, spec.Name, output.DocumentName)
	assert.Contains(t, output.Content, "ACTION REQUIRED")
	assert.Contains(t, output.Content, "Dr. Maria Santos")
}

func TestGenerateDocument_InvalidStep(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()

	acts := NewGenerationActivities(&fakeGenerator{}, nil)
	env.RegisterActivity(acts.GenerateDocument)

	_, err := env.ExecuteActivity(acts.GenerateDocument, GenerateDocumentInput{
		CaseID:     "case-1",
		StepNumber: 99,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no step 99")
}
