package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"genkan/internal/guest/models"
	"genkan/pkg/domain"
	"genkan/pkg/platform/sentinel"
)

// InMemory keeps guests in a map guarded by a RWMutex. It mirrors the
// postgres store's constraint behavior (unique display number, monotonic
// per-year sequence counter) so service tests exercise the same error paths.
type InMemory struct {
	mu     sync.RWMutex
	guests map[domain.GuestID]models.Guest
	// nextSeq is the per-year issuance counter: the next sequence to hand
	// out, starting at 0. It only grows; deleting a guest never frees its
	// display number.
	nextSeq map[int]int
}

func NewInMemory() *InMemory {
	return &InMemory{
		guests:  make(map[domain.GuestID]models.Guest),
		nextSeq: make(map[int]int),
	}
}

func (s *InMemory) Create(_ context.Context, guest *models.Guest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.guests {
		if existing.DisplayID == guest.DisplayID {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.guests[guest.ID] = *guest
	year := 2000 + guest.DisplayID/1000
	if next := guest.DisplayID%1000 + 1; next > s.nextSeq[year] {
		s.nextSeq[year] = next
	}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.GuestID) (*models.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if guest, ok := s.guests[id]; ok {
		g := guest
		return &g, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByDisplayID(_ context.Context, displayID int) (*models.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, guest := range s.guests {
		if guest.DisplayID == displayID {
			g := guest
			return &g, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) SearchByName(_ context.Context, substr string, limit int) ([]models.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(substr)
	var matches []models.Guest
	for _, guest := range s.guests {
		if strings.Contains(strings.ToLower(guest.Name), needle) {
			matches = append(matches, guest)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].DisplayID < matches[j].DisplayID
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *InMemory) Update(_ context.Context, guest *models.Guest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.guests[guest.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.guests[guest.ID] = *guest
	return nil
}

func (s *InMemory) Delete(_ context.Context, id domain.GuestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.guests[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.guests, id)
	return nil
}

// NextSequenceForYear atomically draws the yearly issuance counter, 0
// first. The counter never rewinds, so display numbers of deleted guests
// are not handed out again.
func (s *InMemory) NextSequenceForYear(_ context.Context, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.nextSeq[year]
	s.nextSeq[year] = seq + 1
	return seq, nil
}
