package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"genkan/internal/activity/models"
	activitystore "genkan/internal/activity/store"
	"genkan/internal/calendar"
	gueststore "genkan/internal/guest/store"
	"genkan/pkg/domain"
	dErrors "genkan/pkg/domain-errors"
	"genkan/pkg/requestcontext"

	guestmodels "genkan/internal/guest/models"
)

type ActivityServiceSuite struct {
	suite.Suite
	guests  *gueststore.InMemory
	entries *activitystore.InMemory
	service *Service
	guestID domain.GuestID
	// 10:05 in facility time on 2025-06-02.
	now time.Time
}

func (s *ActivityServiceSuite) SetupTest() {
	s.guests = gueststore.NewInMemory()
	s.entries = activitystore.NewInMemory()
	s.service = New(s.guests, s.entries, calendar.New())
	s.now = time.Date(2025, 6, 2, 1, 5, 0, 0, time.UTC)

	guest := &guestmodels.Guest{
		ID:        domain.NewGuestID(),
		DisplayID: 25001,
		Name:      "Hanako",
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}
	s.Require().NoError(s.guests.Create(context.Background(), guest))
	s.guestID = guest.ID
}

func TestActivityServiceSuite(t *testing.T) {
	suite.Run(t, new(ActivityServiceSuite))
}

func (s *ActivityServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *ActivityServiceSuite) staffCtx() context.Context {
	return requestcontext.WithRole(s.ctx(), domain.RoleStaff)
}

func (s *ActivityServiceSuite) TestRecord() {
	s.Run("floors the timestamp to its half-hour bucket", func() {
		entry, err := s.service.Record(s.ctx(), s.guestID,
			[]models.Category{models.CategoryStudy}, "math homework", "", nil)
		s.Require().NoError(err)
		s.Equal(time.Date(2025, 6, 2, 1, 0, 0, 0, time.UTC), entry.TimeslotStart)
	})

	s.Run("a second note in the same bucket updates in place", func() {
		at := s.now.Add(15 * time.Minute) // 10:20 facility time, same bucket
		entry, err := s.service.Record(s.ctx(), s.guestID,
			[]models.Category{models.CategoryGame}, "", "moved on to shogi", &at)
		s.Require().NoError(err)

		entries, err := s.service.ListForDay(s.ctx(), s.now)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(entry.ID, entries[0].ID)
		s.Equal([]models.Category{models.CategoryGame}, entries[0].Categories)
		s.Equal("moved on to shogi", entries[0].MentorNote)
	})

	s.Run("minute 30 starts a new bucket", func() {
		at := s.now.Add(25 * time.Minute) // 10:30 facility time
		entry, err := s.service.Record(s.ctx(), s.guestID,
			[]models.Category{models.CategoryReading}, "", "", &at)
		s.Require().NoError(err)
		s.Equal(time.Date(2025, 6, 2, 1, 30, 0, 0, time.UTC), entry.TimeslotStart)

		entries, err := s.service.ListForDay(s.ctx(), s.now)
		s.Require().NoError(err)
		s.Len(entries, 2)
	})

	s.Run("rejects unknown guests", func() {
		_, err := s.service.Record(s.ctx(), domain.NewGuestID(),
			[]models.Category{models.CategoryStudy}, "", "", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeGuestNotFound))
	})

	s.Run("rejects invalid categories", func() {
		_, err := s.service.Record(s.ctx(), s.guestID, nil, "", "", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ActivityServiceSuite) TestRemove() {
	entry, err := s.service.Record(s.ctx(), s.guestID,
		[]models.Category{models.CategoryCraft}, "", "", nil)
	s.Require().NoError(err)

	s.Run("kiosk role is refused", func() {
		err := s.service.Remove(s.ctx(), entry.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("staff role deletes the entry", func() {
		s.Require().NoError(s.service.Remove(s.staffCtx(), entry.ID))

		entries, err := s.service.ListForDay(s.ctx(), s.now)
		s.Require().NoError(err)
		s.Empty(entries)
	})

	s.Run("missing entry maps to NOT_FOUND", func() {
		err := s.service.Remove(s.staffCtx(), domain.NewActivityEntryID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ActivityServiceSuite) TestListForDayBoundaries() {
	// 23:50 facility time still belongs to June 2; 00:10 the next facility
	// morning does not.
	lateEvening := time.Date(2025, 6, 2, 14, 50, 0, 0, time.UTC)
	nextMorning := time.Date(2025, 6, 2, 15, 10, 0, 0, time.UTC)

	_, err := s.service.Record(s.ctx(), s.guestID,
		[]models.Category{models.CategoryTalk}, "", "", &lateEvening)
	s.Require().NoError(err)
	_, err = s.service.Record(s.ctx(), s.guestID,
		[]models.Category{models.CategoryTalk}, "", "", &nextMorning)
	s.Require().NoError(err)

	entries, err := s.service.ListForDay(s.ctx(), s.now)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC), entries[0].TimeslotStart)

	entries, err = s.service.ListForDay(s.ctx(), nextMorning)
	s.Require().NoError(err)
	s.Len(entries, 1)
}
