// Package domain provides domain models and business logic for the Petition Document Service.
package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CaseStatus represents the lifecycle states of a petition case.
// These values must match the database check constraint on petition_cases.status.
type CaseStatus string

const (
	CaseStatusInitializing CaseStatus = "initializing"
	CaseStatusResearching  CaseStatus = "researching"
	CaseStatusGenerating   CaseStatus = "generating"
	CaseStatusCompleted    CaseStatus = "completed"
	CaseStatusFailed       CaseStatus = "failed"
)

// IsTerminal returns true if the status represents a final state that will not change.
func (s CaseStatus) IsTerminal() bool {
	switch s {
	case CaseStatusCompleted, CaseStatusFailed:
		return true
	default:
		return false
	}
}

// validStatusTransitions defines the allowed status state machine.
var validStatusTransitions = map[CaseStatus][]CaseStatus{
	CaseStatusInitializing: {CaseStatusResearching, CaseStatusGenerating, CaseStatusFailed},
	CaseStatusResearching:  {CaseStatusGenerating, CaseStatusFailed},
	CaseStatusGenerating:   {CaseStatusCompleted, CaseStatusFailed},
	CaseStatusCompleted:    {},
	CaseStatusFailed:       {},
}

// CanTransitionTo returns true if the status may move to the target status.
func (s CaseStatus) CanTransitionTo(target CaseStatus) bool {
	for _, allowed := range validStatusTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// VisaCategory identifies the visa classification a petition is prepared for.
type VisaCategory string

const (
	VisaCategoryO1A    VisaCategory = "O-1A"
	VisaCategoryO1B    VisaCategory = "O-1B"
	VisaCategoryP1A    VisaCategory = "P-1A"
	VisaCategoryEB1A   VisaCategory = "EB-1A"
	VisaCategoryEB2NIW VisaCategory = "EB-2 NIW"
)

// KnownVisaCategories lists the categories with curated knowledge corpora.
var KnownVisaCategories = []VisaCategory{
	VisaCategoryO1A,
	VisaCategoryO1B,
	VisaCategoryP1A,
	VisaCategoryEB1A,
	VisaCategoryEB2NIW,
}

// IsKnown returns true if the category has a curated knowledge corpus.
func (v VisaCategory) IsKnown() bool {
	for _, known := range KnownVisaCategories {
		if known == v {
			return true
		}
	}
	return false
}

// Case represents a petition case stored in the petition_cases table.
type Case struct {
	ID                 string
	BeneficiaryName    string
	VisaCategory       VisaCategory
	FieldOfEndeavor    string
	Status             CaseStatus
	ProgressPercentage int
	CurrentStage       string
	CurrentMessage     string
	ErrorMessage       string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CompletedAt        *time.Time
}

// CaseURL represents a supporting URL submitted with a case.
type CaseURL struct {
	ID          uuid.UUID
	CaseID      string
	URL         string
	SubmittedAt time.Time
}

var caseIDSanitizer = regexp.MustCompile(`[^a-z0-9]+`)

// NewCaseID derives a human-readable case identifier from the beneficiary name
// and the current time. Names that sanitize to nothing fall back to a UUID slug.
func NewCaseID(beneficiaryName string, now time.Time) string {
	slug := caseIDSanitizer.ReplaceAllString(strings.ToLower(beneficiaryName), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = uuid.NewString()[:8]
	}
	return fmt.Sprintf("%s-%d", slug, now.Unix())
}
