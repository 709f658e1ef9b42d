package service

import (
	"context"
	"sync"

	"leadbot/internal/model"
)

// PreferenceStore owns the accumulated preferences of every session.
// Update applies fn as a read-merge-write that is atomic per session.
type PreferenceStore interface {
	Get(ctx context.Context, sessionID string) (model.PreferenceState, error)
	Update(ctx context.Context, sessionID string, fn func(model.PreferenceState) model.PreferenceState) (model.PreferenceState, error)
}

// MemoryPreferenceStore keeps preferences in process memory
type MemoryPreferenceStore struct {
	mu    sync.Mutex
	state map[string]model.PreferenceState
}

// NewMemoryPreferenceStore creates an empty in-memory store
func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{state: make(map[string]model.PreferenceState)}
}

// Get returns a copy of the session's preferences, empty when unknown
func (s *MemoryPreferenceStore) Get(_ context.Context, sessionID string) (model.PreferenceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[sessionID].Clone(), nil
}

// Update runs fn under the store lock and saves its result
func (s *MemoryPreferenceStore) Update(ctx context.Context, sessionID string, fn func(model.PreferenceState) model.PreferenceState) (model.PreferenceState, error) {
	if err := ctx.Err(); err != nil {
		return model.PreferenceState{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := fn(s.state[sessionID].Clone())
	s.state[sessionID] = next
	return next.Clone(), nil
}
