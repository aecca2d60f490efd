package progress

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/casewright/petition-service/internal/domain"
)

// Source indicates which store answered a progress query.
type Source string

const (
	// SourceDatabase means the durable store served the snapshot.
	SourceDatabase Source = "database"
	// SourceMemory means the in-memory store served the snapshot.
	SourceMemory Source = "memory"
)

// DurableStore is the persistent side of the tracker. Implemented by the
// case repository; defined here so this package does not depend on it.
type DurableStore interface {
	// UpdateProgress persists a progress update for a case.
	UpdateProgress(ctx context.Context, caseID string, status domain.CaseStatus, percent int, stage, message string) error
	// GetProgress loads the current progress snapshot for a case. Returns
	// an error wrapping domain.ErrNotFound when the case is unknown.
	GetProgress(ctx context.Context, caseID string) (Snapshot, error)
}

// Tracker writes progress to both stores and reads durable-first.
type Tracker struct {
	durable DurableStore
	memory  *MemoryStore
	logger  zerolog.Logger
}

// NewTracker creates a Tracker. durable may be nil in tests.
func NewTracker(durable DurableStore, memory *MemoryStore, logger zerolog.Logger) *Tracker {
	return &Tracker{
		durable: durable,
		memory:  memory,
		logger:  logger.With().Str("component", "progress_tracker").Logger(),
	}
}

// Set records a progress update. The in-memory store always receives the
// update; the durable write is best effort and a failure is logged, never
// returned, so a database hiccup cannot interrupt generation.
func (t *Tracker) Set(ctx context.Context, snapshot Snapshot) {
	if snapshot.UpdatedAt.IsZero() {
		snapshot.UpdatedAt = time.Now()
	}
	t.memory.Set(snapshot)

	if t.durable == nil {
		return
	}
	err := t.durable.UpdateProgress(ctx, snapshot.CaseID, snapshot.Status, snapshot.Percent, snapshot.Stage, snapshot.Message)
	if err != nil {
		t.logger.Warn().
			Err(err).
			Str("case_id", snapshot.CaseID).
			Int("percent", snapshot.Percent).
			Msg("durable progress write failed, memory store still updated")
	}
}

// Get returns the current snapshot for a case, preferring the durable store.
// On a durable miss or error it falls back to the in-memory store, with the
// returned Source naming which one answered. When neither store knows the
// case, domain.ErrNotFound is returned.
func (t *Tracker) Get(ctx context.Context, caseID string) (Snapshot, Source, error) {
	if t.durable != nil {
		snapshot, err := t.durable.GetProgress(ctx, caseID)
		if err == nil {
			return snapshot, SourceDatabase, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			t.logger.Warn().Err(err).Str("case_id", caseID).Msg("durable progress read failed, trying memory store")
		}
	}

	if snapshot, ok := t.memory.Get(caseID); ok {
		return snapshot, SourceMemory, nil
	}

	return Snapshot{}, "", domain.NewNotFoundError("case progress", caseID)
}
