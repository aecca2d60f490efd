package activities

import (
	"context"
	"fmt"
	"strings"

	"go.temporal.io/sdk/activity"

	"github.com/casewright/petition-service/internal/llm"
	"github.com/casewright/petition-service/internal/observability"
	"github.com/casewright/petition-service/internal/pipeline"
)

// GenerationActivities produces petition documents via the text generation
// gateway. Retry and provider failover live inside the gateway, so these
// activities are registered with a single Temporal attempt; when the gateway
// exhausts every provider the activity substitutes fallback content instead
// of failing, preserving the document's position in the petition package.
type GenerationActivities struct {
	generator llm.TextGenerator
	metrics   *observability.Metrics
}

// NewGenerationActivities creates a new GenerationActivities instance.
// The metrics parameter may be nil (metrics recording will be skipped).
func NewGenerationActivities(generator llm.TextGenerator, metrics *observability.Metrics) *GenerationActivities {
	return &GenerationActivities{
		generator: generator,
		metrics:   metrics,
	}
}

// GenerateDocument generates one petition document. The step's prompt is
// built from the prepared case context plus excerpts of the prior documents
// the step depends on. On total generation failure the activity returns
// fallback placeholder content with IsFallback set; it only errors when the
// step number is invalid or the context is cancelled.
func (a *GenerationActivities) GenerateDocument(ctx context.Context, input GenerateDocumentInput) (*GenerateDocumentOutput, error) {
	logger := activity.GetLogger(ctx)

	spec, err := pipeline.StepByNumber(input.StepNumber)
	if err != nil {
		return nil, fmt.Errorf("generate document: %w", err)
	}

	logger.Info("generating document",
		"caseID", input.CaseID,
		"documentNumber", spec.Number,
		"documentName", spec.Name,
		"priorDocuments", len(input.PriorDocuments),
	)

	excerpts := spec.DependencyExcerpts(input.PriorDocuments)
	prompt := pipeline.BuildPrompt(spec, input.Preparation, excerpts)

	result, err := a.generator.Generate(ctx, llm.GenerationRequest{
		Prompt:       prompt,
		SystemPrompt: pipeline.SystemPrompt(),
		MaxTokens:    spec.MaxTokens,
		Temperature:  spec.Temperature(),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		logger.Error("all generation attempts failed, substituting fallback content",
			"caseID", input.CaseID,
			"documentNumber", spec.Number,
			"error", err,
		)

		output := &GenerateDocumentOutput{
			CaseID:         input.CaseID,
			DocumentNumber: spec.Number,
			DocumentName:   spec.Name,
			DocumentType:   string(spec.Type),
			Content:        pipeline.FallbackContent(spec, input.Preparation),
			IsFallback:     true,
		}
		a.recordDocument(output)
		return output, nil
	}

	logger.Info("document generated",
		"caseID", input.CaseID,
		"documentNumber", spec.Number,
		"provider", result.Provider,
		"model", result.Model,
		"outputTokens", result.OutputTokens,
	)

	output := &GenerateDocumentOutput{
		CaseID:         input.CaseID,
		DocumentNumber: spec.Number,
		DocumentName:   spec.Name,
		DocumentType:   string(spec.Type),
		Content:        result.Text,
		Provider:       result.Provider,
		Model:          result.Model,
		InputTokens:    result.InputTokens,
		OutputTokens:   result.OutputTokens,
	}
	a.recordDocument(output)
	return output, nil
}

func (a *GenerationActivities) recordDocument(out *GenerateDocumentOutput) {
	if a.metrics == nil {
		return
	}

	wordCount := len(strings.Fields(out.Content))
	a.metrics.RecordDocumentGenerated(out.DocumentType, wordCount, out.IsFallback)
	if out.Provider != "" && (out.InputTokens > 0 || out.OutputTokens > 0) {
		a.metrics.RecordGenerationTokens(out.Provider, out.InputTokens, out.OutputTokens)
	}
}
