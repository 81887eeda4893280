package statestore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore provides an in-memory implementation of the Store interface.
// It is thread-safe and suitable for development, testing, and single-instance
// deployments. For distributed systems, use RedisStore.
type MemoryStore struct {
	mu      sync.RWMutex
	states  map[string]*DialogState
	history map[string][]HistoryEntry

	// timeFunc allows tests to control time
	timeFunc func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithTimeFunc sets a custom time source for LastInteractionAt stamping.
func WithTimeFunc(fn func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.timeFunc = fn
	}
}

// NewMemoryStore creates a new in-memory state store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		states:   make(map[string]*DialogState),
		history:  make(map[string][]HistoryEntry),
		timeFunc: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves dialog state by session key.
// Returns a deep copy to prevent external mutations.
func (s *MemoryStore) Get(ctx context.Context, key SessionKey) (*DialogState, error) {
	if !key.Valid() {
		return nil, ErrInvalidKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	state, exists := s.states[key.String()]
	if !exists {
		return nil, ErrNotFound
	}
	return state.Clone(), nil
}

// Create persists a new dialog state at version 1.
func (s *MemoryStore) Create(ctx context.Context, state *DialogState) error {
	if state == nil {
		return ErrInvalidState
	}
	if !state.Key.Valid() {
		return ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := state.Key.String()
	if _, exists := s.states[id]; exists {
		return ErrAlreadyExists
	}

	stored := state.Clone()
	stored.Version = 1
	stored.LastInteractionAt = s.timeFunc()
	s.states[id] = stored

	state.Version = stored.Version
	return nil
}

// Update applies mutate under the version check and commits the result.
func (s *MemoryStore) Update(ctx context.Context, key SessionKey, expectedVersion int64, mutate func(*DialogState)) (*DialogState, error) {
	if !key.Valid() {
		return nil, ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.states[key.String()]
	if !exists {
		return nil, ErrNotFound
	}
	if current.Version != expectedVersion {
		return nil, ErrVersionConflict
	}

	next := current.Clone()
	mutate(next)
	next.Key = key
	next.Version = expectedVersion + 1
	next.LastInteractionAt = s.timeFunc()
	s.states[key.String()] = next

	return next.Clone(), nil
}

// Delete removes dialog state and its transition history.
func (s *MemoryStore) Delete(ctx context.Context, key SessionKey) error {
	if !key.Valid() {
		return ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := key.String()
	if _, exists := s.states[id]; !exists {
		return ErrNotFound
	}
	delete(s.states, id)
	delete(s.history, id)
	return nil
}

// RecordHistory appends a transition record for the session.
func (s *MemoryStore) RecordHistory(ctx context.Context, key SessionKey, entry HistoryEntry) error {
	if !key.Valid() {
		return ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := key.String()
	s.history[id] = append(s.history[id], entry)
	return nil
}

// History returns the last n transition records, oldest first.
func (s *MemoryStore) History(ctx context.Context, key SessionKey, n int) ([]HistoryEntry, error) {
	if !key.Valid() {
		return nil, ErrInvalidKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.history[key.String()]
	if n > 0 && n < len(entries) {
		entries = entries[len(entries)-n:]
	}

	out := make([]HistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}
