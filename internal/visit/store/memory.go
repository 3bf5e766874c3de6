package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	guestmodels "genkan/internal/guest/models"
	"genkan/internal/visit/models"
	"genkan/pkg/domain"
	"genkan/pkg/platform/sentinel"
)

// GuestNames resolves guest names for the memory store's name-pattern
// filter. The postgres store joins instead.
type GuestNames interface {
	FindByID(ctx context.Context, id domain.GuestID) (*guestmodels.Guest, error)
}

// InMemory keeps visit records in a map guarded by a RWMutex. The
// single-active-visit invariant is checked under the write lock, which gives
// the same atomicity the postgres partial unique index provides.
type InMemory struct {
	mu     sync.RWMutex
	visits map[domain.VisitID]models.VisitRecord
	guests GuestNames
}

// NewInMemory builds a memory visit store. guests may be nil when the
// name-pattern filter is not needed.
func NewInMemory(guests GuestNames) *InMemory {
	return &InMemory{
		visits: make(map[domain.VisitID]models.VisitRecord),
		guests: guests,
	}
}

func (s *InMemory) CreateActive(_ context.Context, visit *models.VisitRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.visits {
		if existing.GuestID == visit.GuestID && existing.IsActive {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.visits[visit.ID] = *visit
	return nil
}

// Update persists a modified record. Reopening a visit (IsActive becoming
// true) re-checks the single-active invariant, matching the partial unique
// index the postgres store relies on.
func (s *InMemory) Update(_ context.Context, visit *models.VisitRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visits[visit.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if visit.IsActive {
		for id, existing := range s.visits {
			if id != visit.ID && existing.GuestID == visit.GuestID && existing.IsActive {
				return sentinel.ErrAlreadyUsed
			}
		}
	}
	s.visits[visit.ID] = *visit
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.VisitID) (*models.VisitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if visit, ok := s.visits[id]; ok {
		v := visit
		return &v, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindActiveByGuest(_ context.Context, guestID domain.GuestID) (*models.VisitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, visit := range s.visits {
		if visit.GuestID == guestID && visit.IsActive {
			v := visit
			return &v, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListActive(_ context.Context) ([]models.VisitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []models.VisitRecord
	for _, visit := range s.visits {
		if visit.IsActive {
			active = append(active, visit)
		}
	}
	sortNewestFirst(active)
	return active, nil
}

func (s *InMemory) ListByGuest(_ context.Context, guestID domain.GuestID) ([]models.VisitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var visits []models.VisitRecord
	for _, visit := range s.visits {
		if visit.GuestID == guestID {
			visits = append(visits, visit)
		}
	}
	sortNewestFirst(visits)
	return visits, nil
}

// ListBetween returns visits whose check-in falls in [from, to), newest
// first. Stats aggregation scans these.
func (s *InMemory) ListBetween(_ context.Context, from, to time.Time) ([]models.VisitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var visits []models.VisitRecord
	for _, visit := range s.visits {
		if !visit.CheckinAt.Before(from) && visit.CheckinAt.Before(to) {
			visits = append(visits, visit)
		}
	}
	sortNewestFirst(visits)
	return visits, nil
}

func (s *InMemory) CountActive(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, visit := range s.visits {
		if visit.IsActive {
			count++
		}
	}
	return count, nil
}

func (s *InMemory) List(ctx context.Context, filter models.ListFilter, page models.Page) (*models.PagedVisits, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []models.VisitRecord
	for _, visit := range s.visits {
		if !s.matches(ctx, visit, filter) {
			continue
		}
		matches = append(matches, visit)
	}
	sortNewestFirst(matches)

	page = page.Normalize()
	total := len(matches)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return &models.PagedVisits{
		Items: matches[start:end],
		Total: total,
		Page:  page.Number,
		Limit: page.Limit,
	}, nil
}

func (s *InMemory) Delete(_ context.Context, id domain.VisitID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visits[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.visits, id)
	return nil
}

func (s *InMemory) DeleteByGuest(_ context.Context, guestID domain.GuestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, visit := range s.visits {
		if visit.GuestID == guestID {
			delete(s.visits, id)
		}
	}
	return nil
}

func (s *InMemory) matches(ctx context.Context, visit models.VisitRecord, filter models.ListFilter) bool {
	if filter.ActiveOnly && !visit.IsActive {
		return false
	}
	if filter.GuestID != nil && visit.GuestID != *filter.GuestID {
		return false
	}
	if filter.From != nil && visit.CheckinAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && !visit.CheckinAt.Before(*filter.To) {
		return false
	}
	if filter.NamePattern != "" {
		if s.guests == nil {
			return false
		}
		guest, err := s.guests.FindByID(ctx, visit.GuestID)
		if err != nil {
			return false
		}
		if !strings.Contains(strings.ToLower(guest.Name), strings.ToLower(filter.NamePattern)) {
			return false
		}
	}
	return true
}

func sortNewestFirst(visits []models.VisitRecord) {
	sort.Slice(visits, func(i, j int) bool {
		if visits[i].CheckinAt.Equal(visits[j].CheckinAt) {
			return visits[i].ID.String() < visits[j].ID.String()
		}
		return visits[i].CheckinAt.After(visits[j].CheckinAt)
	})
}
