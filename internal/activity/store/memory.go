package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"genkan/internal/activity/models"
	"genkan/pkg/domain"
	"genkan/pkg/platform/sentinel"
)

type slotKey struct {
	guestID domain.GuestID
	slot    time.Time
}

// InMemory keeps activity entries keyed by (guest, timeslot) so the upsert
// is naturally idempotent, matching the postgres ON CONFLICT behavior.
type InMemory struct {
	mu      sync.RWMutex
	entries map[slotKey]models.Entry
	byID    map[domain.ActivityEntryID]slotKey
}

func NewInMemory() *InMemory {
	return &InMemory{
		entries: make(map[slotKey]models.Entry),
		byID:    make(map[domain.ActivityEntryID]slotKey),
	}
}

// Upsert writes the entry for its (guest, timeslot) bucket. An existing
// entry keeps its ID; categories and notes are replaced. The stored entry is
// returned.
func (s *InMemory) Upsert(_ context.Context, entry *models.Entry) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := slotKey{guestID: entry.GuestID, slot: entry.TimeslotStart.UTC()}
	stored := *entry
	stored.TimeslotStart = key.slot
	stored.Categories = append([]models.Category(nil), entry.Categories...)

	if existing, ok := s.entries[key]; ok {
		stored.ID = existing.ID
	} else {
		s.byID[stored.ID] = key
	}
	s.entries[key] = stored

	result := stored
	return &result, nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.ActivityEntryID) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	entry := s.entries[key]
	return &entry, nil
}

func (s *InMemory) Delete(_ context.Context, id domain.ActivityEntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.byID[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.entries, key)
	delete(s.byID, id)
	return nil
}

func (s *InMemory) DeleteByGuest(_ context.Context, guestID domain.GuestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if key.guestID == guestID {
			delete(s.entries, key)
			delete(s.byID, entry.ID)
		}
	}
	return nil
}

// ListForRange returns entries with timeslot in [from, to), ascending.
func (s *InMemory) ListForRange(_ context.Context, from, to time.Time) ([]models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []models.Entry
	for _, entry := range s.entries {
		if !entry.TimeslotStart.Before(from) && entry.TimeslotStart.Before(to) {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TimeslotStart.Equal(entries[j].TimeslotStart) {
			return entries[i].GuestID.String() < entries[j].GuestID.String()
		}
		return entries[i].TimeslotStart.Before(entries[j].TimeslotStart)
	})
	return entries, nil
}
