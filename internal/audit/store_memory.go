package audit

import (
	"context"
	"sync"
)

// InMemoryStore keeps audit events per guest. Events without a guest are
// retained under the empty key so nothing is silently dropped.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.GuestID] = append(s.events[event.GuestID], event)
	return nil
}

func (s *InMemoryStore) ListByGuest(_ context.Context, guestID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[guestID]...), nil
}
