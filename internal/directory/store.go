package directory

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Store persists listings.
type Store interface {
	// Insert stores a new listing, or returns ErrListingExists when its ID
	// is taken.
	Insert(ctx context.Context, l Listing) error
	// Get returns the listing with id, or ErrListingNotFound.
	Get(ctx context.Context, id string) (Listing, error)
	// List returns listings matching q, newest first, at most q.MaxResults.
	List(ctx context.Context, q Query) ([]Listing, error)
	// AdjustOpenSlots adds delta to the open slot count, clamped to the
	// maximum. It returns ErrSessionFull when a claim finds no open slot.
	AdjustOpenSlots(ctx context.Context, id string, delta int) (Listing, error)
	// Delete removes the listing with id, or returns ErrListingNotFound.
	Delete(ctx context.Context, id string) error
}

// MemoryStore is an in-process Store.
//
// All methods are safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	listings map[string]Listing
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{listings: make(map[string]Listing)}
}

// Insert implements Store.
func (s *MemoryStore) Insert(_ context.Context, l Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[l.ID]; ok {
		return fmt.Errorf("%w: %s", ErrListingExists, l.ID)
	}
	l.Settings = cloneSettings(l.Settings)
	s.listings[l.ID] = l
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return Listing{}, ErrListingNotFound
	}
	l.Settings = cloneSettings(l.Settings)
	return l, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, q Query) ([]Listing, error) {
	s.mu.RLock()
	out := make([]Listing, 0, len(s.listings))
	for _, l := range s.listings {
		if l.matches(q) {
			l.Settings = cloneSettings(l.Settings)
			out = append(out, l)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if q.MaxResults > 0 && len(out) > q.MaxResults {
		out = out[:q.MaxResults]
	}
	return out, nil
}

// AdjustOpenSlots implements Store.
func (s *MemoryStore) AdjustOpenSlots(_ context.Context, id string, delta int) (Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return Listing{}, ErrListingNotFound
	}
	open := l.OpenPublicSlots + delta
	if open < 0 {
		return Listing{}, ErrSessionFull
	}
	if open > l.MaxPublicSlots {
		open = l.MaxPublicSlots
	}
	l.OpenPublicSlots = open
	s.listings[id] = l
	l.Settings = cloneSettings(l.Settings)
	return l, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[id]; !ok {
		return ErrListingNotFound
	}
	delete(s.listings, id)
	return nil
}
