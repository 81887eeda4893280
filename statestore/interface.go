// Package statestore provides dialog session state persistence with
// optimistic concurrency control.
package statestore

import (
	"context"
	"errors"
)

// Store defines the interface for persistent dialog state storage.
//
// All writes are versioned: Update succeeds only when the stored version
// matches the caller's expected version, so two concurrent writers cannot
// both commit against the same snapshot.
type Store interface {
	// Get retrieves dialog state by session key.
	Get(ctx context.Context, key SessionKey) (*DialogState, error)

	// Create persists a new dialog state at version 1.
	// Returns ErrAlreadyExists if state for the key is already present.
	Create(ctx context.Context, state *DialogState) error

	// Update applies mutate to the stored state and commits it, but only
	// if the stored version still equals expectedVersion. On success the
	// version is incremented and the committed state returned. Returns
	// ErrVersionConflict when another writer got there first.
	Update(ctx context.Context, key SessionKey, expectedVersion int64, mutate func(*DialogState)) (*DialogState, error)

	// Delete removes dialog state and its transition history.
	Delete(ctx context.Context, key SessionKey) error

	// RecordHistory appends a transition record for the session.
	RecordHistory(ctx context.Context, key SessionKey, entry HistoryEntry) error

	// History returns the last n transition records, oldest first.
	// A non-positive n returns all records.
	History(ctx context.Context, key SessionKey, n int) ([]HistoryEntry, error)
}

// ErrNotFound is returned when a session doesn't exist in the store.
var ErrNotFound = errors.New("session not found")

// ErrAlreadyExists is returned by Create when the session is already present.
var ErrAlreadyExists = errors.New("session already exists")

// ErrVersionConflict is returned by Update when the stored version no longer
// matches the expected version.
var ErrVersionConflict = errors.New("state version conflict")

// ErrInvalidKey is returned when a session key with empty components is provided.
var ErrInvalidKey = errors.New("invalid session key")

// ErrInvalidState is returned when a dialog state is invalid.
var ErrInvalidState = errors.New("invalid dialog state")
