package scheduler

import (
	"context"
	"sync"
)

// JobStore persists job records. Implementations must be safe for
// concurrent use; the scheduler serializes state transitions itself, but
// Status reads records without holding the transition lock.
type JobStore interface {
	// Save inserts a new record. It fails if the ID is already taken.
	Save(ctx context.Context, rec Record) error
	// Update overwrites an existing record.
	Update(ctx context.Context, rec Record) error
	// Get returns the record with the given ID, or ErrJobNotFound.
	Get(ctx context.Context, id string) (Record, error)
	// ListPending returns all records still in the pending state.
	ListPending(ctx context.Context) ([]Record, error)
}

// MemoryJobStore keeps job records in memory. It is the default store and
// loses all records on process exit.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]Record
}

// NewMemoryJobStore creates an empty in-memory job store.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]Record)}
}

func (s *MemoryJobStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[rec.ID]; exists {
		return ErrDuplicateJobID
	}
	s.jobs[rec.ID] = rec
	return nil
}

func (s *MemoryJobStore) Update(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[rec.ID]; !exists {
		return ErrJobNotFound
	}
	s.jobs[rec.ID] = rec
	return nil
}

func (s *MemoryJobStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, exists := s.jobs[id]
	if !exists {
		return Record{}, ErrJobNotFound
	}
	return rec, nil
}

func (s *MemoryJobStore) ListPending(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pending := make([]Record, 0)
	for _, rec := range s.jobs {
		if rec.Status == StatusPending {
			pending = append(pending, rec)
		}
	}
	return pending, nil
}
