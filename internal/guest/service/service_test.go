package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	activitystore "genkan/internal/activity/store"
	"genkan/internal/calendar"
	"genkan/internal/guest/models"
	gueststore "genkan/internal/guest/store"
	visitstore "genkan/internal/visit/store"
	"genkan/pkg/domain"
	dErrors "genkan/pkg/domain-errors"
	"genkan/pkg/requestcontext"

	activitymodels "genkan/internal/activity/models"
	visitmodels "genkan/internal/visit/models"
)

type GuestServiceSuite struct {
	suite.Suite
	guests   *gueststore.InMemory
	visits   *visitstore.InMemory
	activity *activitystore.InMemory
	service  *Service
	ctx      context.Context
}

func (s *GuestServiceSuite) SetupTest() {
	s.guests = gueststore.NewInMemory()
	s.visits = visitstore.NewInMemory(s.guests)
	s.activity = activitystore.NewInMemory()
	s.service = New(s.guests, s.visits, s.activity, calendar.New())
	// 2025-06-02 10:00 in facility time.
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 6, 2, 1, 0, 0, 0, time.UTC))
}

func TestGuestServiceSuite(t *testing.T) {
	suite.Run(t, new(GuestServiceSuite))
}

func (s *GuestServiceSuite) TestCreate() {
	s.Run("issues year-scoped display numbers in order", func() {
		first, err := s.service.Create(s.ctx, "Hanako", "", models.GradeElementary4)
		s.Require().NoError(err)
		s.Equal(25000, first.DisplayID)

		second, err := s.service.Create(s.ctx, "Taro", "taro@example.com", "")
		s.Require().NoError(err)
		s.Equal(25001, second.DisplayID)
	})

	s.Run("the display year follows facility time, not UTC", func() {
		// 2024-12-31 23:30 UTC is already 2025-01-01 08:30 in facility time.
		ctx := requestcontext.WithTime(context.Background(), time.Date(2024, 12, 31, 23, 30, 0, 0, time.UTC))
		guest, err := s.service.Create(ctx, "New Year Guest", "", "")
		s.Require().NoError(err)
		s.Equal(2025, guest.DisplayID/1000+2000)
	})

	s.Run("rejects invalid input", func() {
		_, err := s.service.Create(s.ctx, "", "", "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.service.Create(s.ctx, "Valid Name", "not-an-email", "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.service.Create(s.ctx, "Valid Name", "", models.Grade("phd"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *GuestServiceSuite) TestLookups() {
	guest, err := s.service.Create(s.ctx, "Lookup Guest", "", "")
	s.Require().NoError(err)

	s.Run("by ID", func() {
		found, err := s.service.Get(s.ctx, guest.ID)
		s.Require().NoError(err)
		s.Equal(guest.DisplayID, found.DisplayID)
	})

	s.Run("by display number", func() {
		found, err := s.service.GetByDisplayID(s.ctx, guest.DisplayID)
		s.Require().NoError(err)
		s.Equal(guest.ID, found.ID)
	})

	s.Run("unknown guest maps to GUEST_NOT_FOUND", func() {
		_, err := s.service.Get(s.ctx, domain.NewGuestID())
		s.True(dErrors.HasCode(err, dErrors.CodeGuestNotFound))

		_, err = s.service.GetByDisplayID(s.ctx, 99999)
		s.True(dErrors.HasCode(err, dErrors.CodeGuestNotFound))
	})

	s.Run("name search", func() {
		matches, err := s.service.Search(s.ctx, "lookup", 10)
		s.Require().NoError(err)
		s.Len(matches, 1)
	})
}

func (s *GuestServiceSuite) TestUpdate() {
	guest, err := s.service.Create(s.ctx, "Before Edit", "", "")
	s.Require().NoError(err)

	s.Run("edits profile fields, identity untouched", func() {
		updated, err := s.service.Update(s.ctx, guest.ID, "After Edit", "after@example.com", models.GradeHigh1)
		s.Require().NoError(err)
		s.Equal("After Edit", updated.Name)
		s.Equal(guest.DisplayID, updated.DisplayID)
		s.Equal(guest.CreatedAt, updated.CreatedAt)
	})

	s.Run("rejects invalid edits without persisting", func() {
		_, err := s.service.Update(s.ctx, guest.ID, "", "", "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		found, err := s.service.Get(s.ctx, guest.ID)
		s.Require().NoError(err)
		s.Equal("After Edit", found.Name)
	})
}

func (s *GuestServiceSuite) TestDelete() {
	guest, err := s.service.Create(s.ctx, "Delete Guest", "", "")
	s.Require().NoError(err)

	s.Run("refuses while the guest is checked in", func() {
		visit := visitmodels.NewActive(domain.NewVisitID(), guest.ID, requestcontext.Now(s.ctx))
		s.Require().NoError(s.visits.CreateActive(s.ctx, visit))

		err := s.service.Delete(s.ctx, guest.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeGuestCurrentlyCheckedIn))

		s.Require().NoError(visit.Close(requestcontext.Now(s.ctx).Add(time.Hour)))
		s.Require().NoError(s.visits.Update(s.ctx, visit))
	})

	s.Run("cascades over visits and activity entries", func() {
		_, err := s.activity.Upsert(s.ctx, &activitymodels.Entry{
			ID:            domain.NewActivityEntryID(),
			GuestID:       guest.ID,
			TimeslotStart: requestcontext.Now(s.ctx),
			Categories:    []activitymodels.Category{activitymodels.CategoryStudy},
		})
		s.Require().NoError(err)

		s.Require().NoError(s.service.Delete(s.ctx, guest.ID))

		_, err = s.service.Get(s.ctx, guest.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeGuestNotFound))

		visits, err := s.visits.ListByGuest(s.ctx, guest.ID)
		s.Require().NoError(err)
		s.Empty(visits)

		now := requestcontext.Now(s.ctx)
		entries, err := s.activity.ListForRange(s.ctx, now.Add(-time.Hour), now.Add(time.Hour))
		s.Require().NoError(err)
		s.Empty(entries)
	})

	s.Run("the deleted display number is never reissued", func() {
		next, err := s.service.Create(s.ctx, "Next Guest", "", "")
		s.Require().NoError(err)
		s.Greater(next.DisplayID, guest.DisplayID)
	})

	s.Run("unknown guest", func() {
		err := s.service.Delete(s.ctx, domain.NewGuestID())
		s.True(dErrors.HasCode(err, dErrors.CodeGuestNotFound))
	})
}
