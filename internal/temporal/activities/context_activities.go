package activities

import (
	"context"
	"fmt"
	"strings"

	"go.temporal.io/sdk/activity"

	"github.com/casewright/petition-service/internal/domain"
	"github.com/casewright/petition-service/internal/fetcher"
	"github.com/casewright/petition-service/internal/observability"
)

// URLFetcher retrieves and extracts text from supporting web sources.
type URLFetcher interface {
	FetchAll(ctx context.Context, urls []string) []domain.AnalyzedURL
}

// KnowledgeLoader loads visa-category reference material for prompts.
type KnowledgeLoader interface {
	Load(category domain.VisaCategory) string
}

// URLDiscoverer finds supplementary evidence URLs about a beneficiary.
// Discovery is strictly additive: implementations return an empty slice on
// failure.
type URLDiscoverer interface {
	DiscoverURLs(ctx context.Context, beneficiaryName, fieldOfEndeavor string, category domain.VisaCategory) []string
}

// ContextActivities assembles the generation context for a case: fetched URL
// content, uploaded evidence text, and visa-category reference material.
// Methods on this struct are registered as Temporal activities via the worker.
type ContextActivities struct {
	fetcher    URLFetcher
	knowledge  KnowledgeLoader
	discoverer URLDiscoverer
	metrics    *observability.Metrics
}

// ContextActivitiesOption configures optional ContextActivities collaborators.
type ContextActivitiesOption func(*ContextActivities)

// WithURLDiscoverer enables AI URL discovery during context preparation.
func WithURLDiscoverer(d URLDiscoverer) ContextActivitiesOption {
	return func(a *ContextActivities) {
		a.discoverer = d
	}
}

// NewContextActivities creates a new ContextActivities instance.
// The metrics parameter may be nil (metrics recording will be skipped).
func NewContextActivities(urlFetcher URLFetcher, knowledge KnowledgeLoader, metrics *observability.Metrics, opts ...ContextActivitiesOption) *ContextActivities {
	a := &ContextActivities{
		fetcher:   urlFetcher,
		knowledge: knowledge,
		metrics:   metrics,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// PrepareContext fetches the case's supporting URLs, collects the extracted
// text of uploaded evidence files, and loads the reference material for the
// visa category. The assembled context feeds every generation step.
//
// URL fetch failures are recorded on the analyzed URL rather than failing the
// activity; a case with unreachable sources still generates documents.
func (a *ContextActivities) PrepareContext(ctx context.Context, input PrepareContextInput) (*PrepareContextOutput, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("preparing case context",
		"caseID", input.CaseID,
		"visaCategory", input.VisaCategory,
		"urls", len(input.URLs),
		"files", len(input.Files),
	)

	if input.CaseID == "" {
		return nil, fmt.Errorf("prepare context: case ID is required")
	}

	prep := domain.PreparationData{
		CaseID:          input.CaseID,
		BeneficiaryName: input.BeneficiaryName,
		VisaCategory:    input.VisaCategory,
		FieldOfEndeavor: input.FieldOfEndeavor,
	}

	if a.knowledge != nil {
		prep.KnowledgeBase = a.knowledge.Load(input.VisaCategory)
	}

	urls := input.URLs
	if a.discoverer != nil {
		discovered := a.discoverer.DiscoverURLs(ctx, input.BeneficiaryName, input.FieldOfEndeavor, input.VisaCategory)
		if len(discovered) > 0 {
			logger.Info("discovered supplementary URLs",
				"caseID", input.CaseID,
				"discovered", len(discovered),
			)
		}
		urls = fetcher.DedupURLs(input.URLs, discovered)
	}

	if len(urls) > 0 && a.fetcher != nil {
		prep.AnalyzedURLs = a.fetcher.FetchAll(ctx, urls)

		fetched := 0
		for _, u := range prep.AnalyzedURLs {
			if u.Success {
				fetched++
			}
		}
		logger.Info("fetched supporting URLs",
			"caseID", input.CaseID,
			"succeeded", fetched,
			"failed", len(prep.AnalyzedURLs)-fetched,
		)
	}

	prep.EvidenceText = assembleEvidenceText(input.Files)

	return &PrepareContextOutput{Preparation: prep}, nil
}

// assembleEvidenceText concatenates the extracted text of uploaded files into
// a single prompt section, one heading per file. Files without extracted text
// are skipped.
func assembleEvidenceText(files []domain.UploadedFile) string {
	var b strings.Builder
	for _, f := range files {
		text := strings.TrimSpace(f.ExtractedText)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s\n%s\n\n", f.Name, text)
	}
	return strings.TrimSpace(b.String())
}
