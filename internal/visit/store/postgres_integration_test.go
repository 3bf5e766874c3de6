//go:build integration

package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	guestmodels "genkan/internal/guest/models"
	gueststore "genkan/internal/guest/store"
	"genkan/internal/visit/models"
	"genkan/pkg/domain"
	"genkan/pkg/platform/sentinel"
	"genkan/pkg/testutil/containers"
)

type VisitPostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *PostgresStore
	guests   *gueststore.PostgresStore
	ctx      context.Context
	base     time.Time
}

func (s *VisitPostgresSuite) SetupSuite() {
	if testing.Short() {
		s.T().Skip("skipping integration tests in short mode")
	}
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = NewPostgres(s.postgres.DB)
	s.guests = gueststore.NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
	s.base = time.Date(2025, 6, 2, 1, 0, 0, 0, time.UTC)
}

func (s *VisitPostgresSuite) SetupTest() {
	err := s.postgres.TruncateTables(s.ctx,
		"audit_events", "activity_entries", "visits", "guests", "display_sequences")
	s.Require().NoError(err)
}

func TestVisitPostgresSuite(t *testing.T) {
	suite.Run(t, new(VisitPostgresSuite))
}

func (s *VisitPostgresSuite) seedGuest(displayID int, name string) domain.GuestID {
	guest, err := guestmodels.NewGuest(domain.NewGuestID(), displayID, name, "", "", s.base)
	s.Require().NoError(err)
	s.Require().NoError(s.guests.Create(s.ctx, guest))
	return guest.ID
}

func (s *VisitPostgresSuite) checkin(guestID domain.GuestID, at time.Time) *models.VisitRecord {
	visit := models.NewActive(domain.NewVisitID(), guestID, at)
	s.Require().NoError(s.store.CreateActive(s.ctx, visit))
	return visit
}

func (s *VisitPostgresSuite) TestSingleActiveVisitPerGuest() {
	guestID := s.seedGuest(25001, "Sato Hana")
	visit := s.checkin(guestID, s.base)

	s.Run("second open visit is rejected", func() {
		err := s.store.CreateActive(s.ctx, models.NewActive(domain.NewVisitID(), guestID, s.base.Add(time.Minute)))
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("allowed again once the first is closed", func() {
		s.Require().NoError(visit.Close(s.base.Add(time.Hour)))
		s.Require().NoError(s.store.Update(s.ctx, visit))

		s.checkin(guestID, s.base.Add(2*time.Hour))
	})

	s.Run("reopening a visit while another is active is rejected", func() {
		s.Require().NoError(visit.SetTimes(visit.CheckinAt, nil, s.base.Add(3*time.Hour)))
		err := s.store.Update(s.ctx, visit)
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})
}

// TestConcurrentCheckins verifies that concurrent check-in attempts for the
// same guest result in exactly one open visit.
func (s *VisitPostgresSuite) TestConcurrentCheckins() {
	const workers = 50

	guestID := s.seedGuest(25001, "Sato Hana")

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		conflicts atomic.Int32
		failures  atomic.Int32
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			visit := models.NewActive(domain.NewVisitID(), guestID, s.base)
			switch err := s.store.CreateActive(s.ctx, visit); {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				conflicts.Add(1)
			default:
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), succeeded.Load(), "exactly one check-in should win")
	s.Equal(int32(workers-1), conflicts.Load())
	s.Equal(int32(0), failures.Load())

	count, err := s.store.CountActive(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *VisitPostgresSuite) TestListBetween() {
	guestID := s.seedGuest(25001, "Sato Hana")
	other := s.seedGuest(25002, "Suzuki Ren")

	early := s.checkin(guestID, s.base)
	s.Require().NoError(early.Close(s.base.Add(time.Hour)))
	s.Require().NoError(s.store.Update(s.ctx, early))

	late := s.checkin(other, s.base.Add(2*time.Hour))
	_ = s.checkin(guestID, s.base.Add(26*time.Hour)) // next day, outside the window

	visits, err := s.store.ListBetween(s.ctx, s.base, s.base.Add(24*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(visits, 2)
	s.Equal(late.ID, visits[0].ID, "newest first")
	s.Equal(early.ID, visits[1].ID)
}

func (s *VisitPostgresSuite) TestFilteredList() {
	hana := s.seedGuest(25001, "Yamada Hana")
	ren := s.seedGuest(25002, "Suzuki Ren")

	for i := 0; i < 3; i++ {
		visit := s.checkin(hana, s.base.Add(time.Duration(i)*24*time.Hour))
		s.Require().NoError(visit.Close(visit.CheckinAt.Add(time.Hour)))
		s.Require().NoError(s.store.Update(s.ctx, visit))
	}
	s.checkin(ren, s.base.Add(time.Minute))

	s.Run("by guest with pagination", func() {
		page, err := s.store.List(s.ctx, models.ListFilter{GuestID: &hana}, models.Page{Number: 1, Limit: 2})
		s.Require().NoError(err)
		s.Equal(3, page.Total)
		s.Len(page.Items, 2)
	})

	s.Run("by name pattern", func() {
		page, err := s.store.List(s.ctx, models.ListFilter{NamePattern: "suzuki"}, models.Page{})
		s.Require().NoError(err)
		s.Equal(1, page.Total)
	})

	s.Run("active only", func() {
		page, err := s.store.List(s.ctx, models.ListFilter{ActiveOnly: true}, models.Page{})
		s.Require().NoError(err)
		s.Equal(1, page.Total)
		s.Equal(ren, page.Items[0].GuestID)
	})
}

func (s *VisitPostgresSuite) TestDeleteByGuestCascades() {
	guestID := s.seedGuest(25001, "Sato Hana")
	s.checkin(guestID, s.base)

	s.Require().NoError(s.store.DeleteByGuest(s.ctx, guestID))

	visits, err := s.store.ListByGuest(s.ctx, guestID)
	s.Require().NoError(err)
	s.Empty(visits)

	_, err = s.store.FindActiveByGuest(s.ctx, guestID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
