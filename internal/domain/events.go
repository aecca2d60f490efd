package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants for published case events.
const (
	EventTypeCaseStarted   = "case.started"
	EventTypeCaseCompleted = "case.completed"
	EventTypeCaseFailed    = "case.failed"
)

// CaseEvent is the envelope published to Kafka for case lifecycle events.
type CaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	CaseID    string    `json:"case_id"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCaseEvent creates a case event with a JSON-serialized payload.
func NewCaseEvent(eventType, caseID string, payload interface{}) (*CaseEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &CaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		CaseID:    caseID,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}, nil
}

// CaseStartedPayload is the payload for case.started events.
type CaseStartedPayload struct {
	CaseID          string       `json:"case_id"`
	BeneficiaryName string       `json:"beneficiary_name"`
	VisaCategory    VisaCategory `json:"visa_category"`
}

// CaseCompletedPayload is the payload for case.completed events.
type CaseCompletedPayload struct {
	CaseID            string        `json:"case_id"`
	DocumentCount     int           `json:"document_count"`
	FallbackDocuments int           `json:"fallback_documents"`
	Duration          time.Duration `json:"duration_ns"`
}

// CaseFailedPayload is the payload for case.failed events.
type CaseFailedPayload struct {
	CaseID string `json:"case_id"`
	Error  string `json:"error"`
	Stage  string `json:"stage"`
}
