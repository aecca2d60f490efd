// Package progress tracks live generation progress for petition cases. A
// durable store (Postgres) is the source of truth; a concurrency-safe
// in-memory store answers queries when the durable store misses or fails.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/casewright/petition-service/internal/domain"
)

// Sweeper defaults. Entries older than maxAge are dropped so the in-memory
// store cannot grow without bound on a long-lived worker.
const (
	defaultSweepInterval = 2 * time.Hour
	defaultMaxEntryAge   = 4 * time.Hour
)

// Snapshot is the externally visible progress state of a case.
type Snapshot struct {
	CaseID    string            `json:"case_id"`
	Status    domain.CaseStatus `json:"status"`
	Percent   int               `json:"percent"`
	Stage     string            `json:"stage"`
	Message   string            `json:"message"`
	Error     string            `json:"error,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// memoryEntry wraps a snapshot with its creation time for expiry.
type memoryEntry struct {
	snapshot  Snapshot
	createdAt time.Time
}

// MemoryStoreConfig holds sweeper tuning for the in-memory store.
type MemoryStoreConfig struct {
	// SweepInterval is how often expired entries are collected. Default: 2h.
	SweepInterval time.Duration
	// MaxEntryAge is how long an entry may live. Default: 4h.
	MaxEntryAge time.Duration
}

// MemoryStore is a mutex-guarded in-memory snapshot store. Entries keep
// their original creation time across updates, so a case that keeps updating
// still expires MaxEntryAge after it first appeared and then gets re-created
// on the next write.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	sweepInterval time.Duration
	maxEntryAge   time.Duration
	logger        zerolog.Logger

	startOnce sync.Once
}

// NewMemoryStore creates an empty store. Call StartSweeper to begin expiry.
func NewMemoryStore(cfg MemoryStoreConfig, logger zerolog.Logger) *MemoryStore {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.MaxEntryAge <= 0 {
		cfg.MaxEntryAge = defaultMaxEntryAge
	}
	return &MemoryStore{
		entries:       make(map[string]memoryEntry),
		sweepInterval: cfg.SweepInterval,
		maxEntryAge:   cfg.MaxEntryAge,
		logger:        logger.With().Str("component", "progress_store").Logger(),
	}
}

// Set stores a snapshot, preserving the creation time of an existing entry.
func (s *MemoryStore) Set(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := time.Now()
	if existing, ok := s.entries[snapshot.CaseID]; ok {
		createdAt = existing.createdAt
	}
	s.entries[snapshot.CaseID] = memoryEntry{snapshot: snapshot, createdAt: createdAt}
}

// Get returns the snapshot for a case, if present.
func (s *MemoryStore) Get(caseID string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[caseID]
	return entry.snapshot, ok
}

// Delete removes a case's snapshot.
func (s *MemoryStore) Delete(caseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, caseID)
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// StartSweeper launches the background expiry loop. It is idempotent and
// stops when ctx is cancelled.
func (s *MemoryStore) StartSweeper(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.sweepLoop(ctx)
	})
}

func (s *MemoryStore) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.removeExpired(time.Now()); removed > 0 {
				s.logger.Debug().Int("removed", removed).Msg("swept expired progress entries")
			}
		}
	}
}

// removeExpired drops entries older than MaxEntryAge relative to now and
// returns how many were removed.
func (s *MemoryStore) removeExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for caseID, entry := range s.entries {
		if now.Sub(entry.createdAt) > s.maxEntryAge {
			delete(s.entries, caseID)
			removed++
		}
	}
	return removed
}
