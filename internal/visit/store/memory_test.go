package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	gueststore "genkan/internal/guest/store"
	"genkan/internal/visit/models"
	"genkan/pkg/domain"
	"genkan/pkg/platform/sentinel"

	guestmodels "genkan/internal/guest/models"
)

type VisitStoreSuite struct {
	suite.Suite
	guests *gueststore.InMemory
	store  *InMemory
	ctx    context.Context
	base   time.Time
}

func (s *VisitStoreSuite) SetupTest() {
	s.guests = gueststore.NewInMemory()
	s.store = NewInMemory(s.guests)
	s.ctx = context.Background()
	s.base = time.Date(2025, 6, 2, 1, 0, 0, 0, time.UTC)
}

func TestVisitStoreSuite(t *testing.T) {
	suite.Run(t, new(VisitStoreSuite))
}

func (s *VisitStoreSuite) newGuest(name string, displayID int) domain.GuestID {
	guest := &guestmodels.Guest{
		ID:        domain.NewGuestID(),
		DisplayID: displayID,
		Name:      name,
		CreatedAt: s.base,
		UpdatedAt: s.base,
	}
	s.Require().NoError(s.guests.Create(s.ctx, guest))
	return guest.ID
}

func (s *VisitStoreSuite) openVisit(guestID domain.GuestID, checkinAt time.Time) *models.VisitRecord {
	visit := models.NewActive(domain.NewVisitID(), guestID, checkinAt)
	s.Require().NoError(s.store.CreateActive(s.ctx, visit))
	return visit
}

func (s *VisitStoreSuite) TestSingleActiveInvariant() {
	guestID := s.newGuest("Hanako", 25001)

	s.Run("rejects a second active visit for the same guest", func() {
		s.openVisit(guestID, s.base)

		err := s.store.CreateActive(s.ctx, models.NewActive(domain.NewVisitID(), guestID, s.base.Add(time.Minute)))
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("allows a new visit after the previous one closes", func() {
		active, err := s.store.FindActiveByGuest(s.ctx, guestID)
		s.Require().NoError(err)
		s.Require().NoError(active.Close(s.base.Add(time.Hour)))
		s.Require().NoError(s.store.Update(s.ctx, active))

		s.openVisit(guestID, s.base.Add(2*time.Hour))
	})

	s.Run("rejects reopening while another visit is active", func() {
		closed, err := s.store.ListByGuest(s.ctx, guestID)
		s.Require().NoError(err)
		var stale *models.VisitRecord
		for i := range closed {
			if !closed[i].IsActive {
				stale = &closed[i]
				break
			}
		}
		s.Require().NotNil(stale)

		s.Require().NoError(stale.SetTimes(stale.CheckinAt, nil, s.base.Add(3*time.Hour)))
		err = s.store.Update(s.ctx, stale)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})
}

func (s *VisitStoreSuite) TestLookups() {
	guestID := s.newGuest("Taro", 25002)
	visit := s.openVisit(guestID, s.base)

	s.Run("finds by ID", func() {
		found, err := s.store.FindByID(s.ctx, visit.ID)
		s.Require().NoError(err)
		s.Equal(guestID, found.GuestID)
	})

	s.Run("finds the active visit by guest", func() {
		found, err := s.store.FindActiveByGuest(s.ctx, guestID)
		s.Require().NoError(err)
		s.Equal(visit.ID, found.ID)
	})

	s.Run("FindActiveByGuest returns ErrNotFound when none is open", func() {
		other := s.newGuest("Closed Guest", 25003)
		_, err := s.store.FindActiveByGuest(s.ctx, other)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("counts active visits", func() {
		count, err := s.store.CountActive(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, count)
	})
}

func (s *VisitStoreSuite) TestListBetween() {
	guestID := s.newGuest("Range Guest", 25004)

	first := s.openVisit(guestID, s.base)
	s.Require().NoError(first.Close(s.base.Add(30 * time.Minute)))
	s.Require().NoError(s.store.Update(s.ctx, first))

	second := s.openVisit(guestID, s.base.Add(24*time.Hour))
	s.Require().NoError(second.Close(s.base.Add(25 * time.Hour)))
	s.Require().NoError(s.store.Update(s.ctx, second))

	s.Run("half-open range includes start, excludes end", func() {
		visits, err := s.store.ListBetween(s.ctx, s.base, s.base.Add(24*time.Hour))
		s.Require().NoError(err)
		s.Require().Len(visits, 1)
		s.Equal(first.ID, visits[0].ID)
	})

	s.Run("orders newest check-in first", func() {
		visits, err := s.store.ListBetween(s.ctx, s.base, s.base.Add(48*time.Hour))
		s.Require().NoError(err)
		s.Require().Len(visits, 2)
		s.Equal(second.ID, visits[0].ID)
	})
}

func (s *VisitStoreSuite) TestFilteredListing() {
	aliceID := s.newGuest("Alice", 25005)
	bobID := s.newGuest("Bob", 25006)

	aliceVisit := s.openVisit(aliceID, s.base)
	s.openVisit(bobID, s.base.Add(time.Hour))

	s.Run("filters by guest", func() {
		page, err := s.store.List(s.ctx, models.ListFilter{GuestID: &aliceID}, models.Page{})
		s.Require().NoError(err)
		s.Require().Len(page.Items, 1)
		s.Equal(aliceVisit.ID, page.Items[0].ID)
	})

	s.Run("filters by guest name pattern", func() {
		page, err := s.store.List(s.ctx, models.ListFilter{NamePattern: "ali"}, models.Page{})
		s.Require().NoError(err)
		s.Require().Len(page.Items, 1)
		s.Equal(aliceID, page.Items[0].GuestID)
	})

	s.Run("paginates newest first with totals", func() {
		page, err := s.store.List(s.ctx, models.ListFilter{}, models.Page{Number: 1, Limit: 1})
		s.Require().NoError(err)
		s.Equal(2, page.Total)
		s.Require().Len(page.Items, 1)
		s.Equal(bobID, page.Items[0].GuestID)

		page, err = s.store.List(s.ctx, models.ListFilter{}, models.Page{Number: 2, Limit: 1})
		s.Require().NoError(err)
		s.Require().Len(page.Items, 1)
		s.Equal(aliceID, page.Items[0].GuestID)
	})

	s.Run("out-of-range page returns an empty slice", func() {
		page, err := s.store.List(s.ctx, models.ListFilter{}, models.Page{Number: 9, Limit: 10})
		s.Require().NoError(err)
		s.Empty(page.Items)
		s.Equal(2, page.Total)
	})
}

func (s *VisitStoreSuite) TestDeletes() {
	guestID := s.newGuest("Delete Guest", 25007)
	visit := s.openVisit(guestID, s.base)

	s.Run("deletes a single visit", func() {
		s.Require().NoError(s.store.Delete(s.ctx, visit.ID))
		_, err := s.store.FindByID(s.ctx, visit.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("delete of missing visit returns ErrNotFound", func() {
		err := s.store.Delete(s.ctx, domain.NewVisitID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("DeleteByGuest removes the whole history", func() {
		first := s.openVisit(guestID, s.base.Add(2*time.Hour))
		s.Require().NoError(first.Close(s.base.Add(3 * time.Hour)))
		s.Require().NoError(s.store.Update(s.ctx, first))
		s.openVisit(guestID, s.base.Add(4*time.Hour))

		s.Require().NoError(s.store.DeleteByGuest(s.ctx, guestID))
		visits, err := s.store.ListByGuest(s.ctx, guestID)
		s.Require().NoError(err)
		s.Empty(visits)
	})
}
