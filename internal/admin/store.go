package admin

import (
	"context"
	"sync"
	"time"
)

// Store is the single source of truth for one admin collection. Items change only through
// Refresh; mutations go to the API first and then refresh, never patching items locally.
type Store[T any] struct {
	fetch func(ctx context.Context) ([]T, error)
	id    func(T) int64

	mu          sync.RWMutex
	items       []T
	loaded      bool
	started     uint64
	applied     uint64
	refreshedAt time.Time
}

func NewStore[T any](fetch func(ctx context.Context) ([]T, error), id func(T) int64) *Store[T] {
	return &Store[T]{fetch: fetch, id: id}
}

// Refresh reloads the collection. A failed refresh keeps the previous items; a refresh that
// finishes after a newer one has been applied is dropped.
func (s *Store[T]) Refresh(ctx context.Context) ([]T, error) {
	s.mu.Lock()
	s.started++
	seq := s.started
	s.mu.Unlock()

	items, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq > s.applied {
		s.items = items
		s.loaded = true
		s.applied = seq
		s.refreshedAt = time.Now()
	}
	return s.copyLocked(), nil
}

// Items returns the cached collection, loading it first if it was never fetched.
func (s *Store[T]) Items(ctx context.Context) ([]T, error) {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		return s.copyLocked(), nil
	}
	s.mu.RUnlock()
	return s.Refresh(ctx)
}

func (s *Store[T]) Find(ctx context.Context, id int64) (T, bool, error) {
	var zero T
	items, err := s.Items(ctx)
	if err != nil {
		return zero, false, err
	}
	for _, item := range items {
		if s.id(item) == id {
			return item, true, nil
		}
	}
	return zero, false, nil
}

// FindFresh refreshes before looking id up, for decisions that must not rest on a cached
// copy another client may have changed.
func (s *Store[T]) FindFresh(ctx context.Context, id int64) (T, bool, error) {
	if _, err := s.Refresh(ctx); err != nil {
		var zero T
		return zero, false, err
	}
	return s.Find(ctx, id)
}

// Mutate runs op against the API and refreshes afterwards. The refresh happens only when op
// succeeds.
func (s *Store[T]) Mutate(ctx context.Context, op func(ctx context.Context) error) ([]T, error) {
	if err := op(ctx); err != nil {
		return nil, err
	}
	return s.Refresh(ctx)
}

func (s *Store[T]) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}

func (s *Store[T]) copyLocked() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}
