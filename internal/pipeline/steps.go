// Package pipeline defines the petition document pipeline: the ordered step
// definitions, their prompt templates, and the fallback content used when
// generation fails outright.
package pipeline

import (
	"fmt"
	"unicode/utf8"

	"github.com/casewright/petition-service/internal/domain"
)

// generationTemperature is used for every document step.
const generationTemperature = 0.3

// Dependency references an earlier step's output, truncated to MaxChars
// before it is spliced into the dependent prompt.
type Dependency struct {
	// Number is the step number of the dependency.
	Number int
	// MaxChars is the excerpt budget for the dependency's content.
	MaxChars int
}

// StepSpec describes one document generation step.
type StepSpec struct {
	// Number is the 1-based document number. Stable across regenerations.
	Number int
	// Name is the document title shown to users.
	Name string
	// Type classifies the document.
	Type domain.DocumentType
	// MaxTokens is the output token budget for the step.
	MaxTokens int
	// DependsOn lists earlier steps whose output feeds this prompt.
	DependsOn []Dependency
}

// Temperature returns the sampling temperature for the step.
func (s StepSpec) Temperature() float64 {
	return generationTemperature
}

// Steps is the full pipeline in execution order. Dependencies only ever point
// backwards, so running in slice order satisfies the DAG.
var Steps = []StepSpec{
	{
		Number:    1,
		Name:      "Comprehensive Case Analysis",
		Type:      domain.DocumentTypeAnalysis,
		MaxTokens: 16384,
	},
	{
		Number:    2,
		Name:      "Publication & Citation Analysis",
		Type:      domain.DocumentTypeAnalysis,
		MaxTokens: 12000,
		DependsOn: []Dependency{{Number: 1, MaxChars: 3000}},
	},
	{
		Number:    3,
		Name:      "URL Reference Summary",
		Type:      domain.DocumentTypeReference,
		MaxTokens: 8000,
	},
	{
		Number:    4,
		Name:      "Legal Brief",
		Type:      domain.DocumentTypeBrief,
		MaxTokens: 16384,
		DependsOn: []Dependency{{Number: 1, MaxChars: 4000}, {Number: 2, MaxChars: 2000}},
	},
	{
		Number:    5,
		Name:      "Evidence Gap Analysis",
		Type:      domain.DocumentTypeAnalysis,
		MaxTokens: 10000,
		DependsOn: []Dependency{{Number: 1, MaxChars: 5000}},
	},
	{
		Number:    6,
		Name:      "USCIS Cover Letter",
		Type:      domain.DocumentTypeLetter,
		MaxTokens: 4000,
		DependsOn: []Dependency{{Number: 1, MaxChars: 3000}},
	},
	{
		Number:    7,
		Name:      "Visa Application Checklist",
		Type:      domain.DocumentTypeChecklist,
		MaxTokens: 6000,
		DependsOn: []Dependency{{Number: 5, MaxChars: 4000}},
	},
	{
		Number:    8,
		Name:      "Exhibit Assembly Guide",
		Type:      domain.DocumentTypeGuide,
		MaxTokens: 6000,
		DependsOn: []Dependency{{Number: 4, MaxChars: 3000}},
	},
}

// StepByNumber returns the step definition for a document number.
func StepByNumber(number int) (StepSpec, error) {
	for _, s := range Steps {
		if s.Number == number {
			return s, nil
		}
	}
	return StepSpec{}, fmt.Errorf("pipeline: no step %d", number)
}

// DependencyExcerpts slices prior outputs down to each dependency's budget.
// Missing dependencies are skipped; a fallback upstream document still feeds
// its dependents.
func (s StepSpec) DependencyExcerpts(prior map[int]string) map[int]string {
	excerpts := make(map[int]string, len(s.DependsOn))
	for _, dep := range s.DependsOn {
		content, ok := prior[dep.Number]
		if !ok || content == "" {
			continue
		}
		if dep.MaxChars > 0 {
			content = truncate(content, dep.MaxChars)
		}
		excerpts[dep.Number] = content
	}
	return excerpts
}

// truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
