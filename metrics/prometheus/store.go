package prometheus

import (
	"context"
	"errors"
	"time"

	"github.com/AltairaLabs/DialogKit/statestore"
)

// InstrumentedStore wraps a statestore.Store and records per-operation
// latency. Expected outcomes (not found, already exists, version conflict)
// get their own status label rather than counting as errors.
type InstrumentedStore struct {
	inner statestore.Store
}

// NewInstrumentedStore wraps store with latency instrumentation.
func NewInstrumentedStore(store statestore.Store) *InstrumentedStore {
	return &InstrumentedStore{inner: store}
}

func (s *InstrumentedStore) Get(ctx context.Context, key statestore.SessionKey) (*statestore.DialogState, error) {
	start := time.Now()
	st, err := s.inner.Get(ctx, key)
	RecordStoreOp("get", opStatus(err), time.Since(start).Seconds())
	return st, err
}

func (s *InstrumentedStore) Create(ctx context.Context, state *statestore.DialogState) error {
	start := time.Now()
	err := s.inner.Create(ctx, state)
	RecordStoreOp("create", opStatus(err), time.Since(start).Seconds())
	return err
}

func (s *InstrumentedStore) Update(ctx context.Context, key statestore.SessionKey, expectedVersion int64, mutate func(*statestore.DialogState)) (*statestore.DialogState, error) {
	start := time.Now()
	st, err := s.inner.Update(ctx, key, expectedVersion, mutate)
	RecordStoreOp("update", opStatus(err), time.Since(start).Seconds())
	return st, err
}

func (s *InstrumentedStore) Delete(ctx context.Context, key statestore.SessionKey) error {
	start := time.Now()
	err := s.inner.Delete(ctx, key)
	RecordStoreOp("delete", opStatus(err), time.Since(start).Seconds())
	return err
}

func (s *InstrumentedStore) RecordHistory(ctx context.Context, key statestore.SessionKey, entry statestore.HistoryEntry) error {
	start := time.Now()
	err := s.inner.RecordHistory(ctx, key, entry)
	RecordStoreOp("history", opStatus(err), time.Since(start).Seconds())
	return err
}

func (s *InstrumentedStore) History(ctx context.Context, key statestore.SessionKey, n int) ([]statestore.HistoryEntry, error) {
	start := time.Now()
	entries, err := s.inner.History(ctx, key, n)
	RecordStoreOp("history", opStatus(err), time.Since(start).Seconds())
	return entries, err
}

func opStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, statestore.ErrNotFound):
		return "not_found"
	case errors.Is(err, statestore.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, statestore.ErrVersionConflict):
		return "version_conflict"
	default:
		return "error"
	}
}
