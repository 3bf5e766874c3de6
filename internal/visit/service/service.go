package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"genkan/internal/audit"
	guestmodels "genkan/internal/guest/models"
	"genkan/internal/platform/metrics"
	"genkan/internal/visit/models"
	"genkan/pkg/domain"
	dErrors "genkan/pkg/domain-errors"
	"genkan/pkg/platform/sentinel"
	"genkan/pkg/requestcontext"
)

type GuestStore interface {
	FindByID(ctx context.Context, id domain.GuestID) (*guestmodels.Guest, error)
}

type VisitStore interface {
	CreateActive(ctx context.Context, visit *models.VisitRecord) error
	Update(ctx context.Context, visit *models.VisitRecord) error
	FindByID(ctx context.Context, id domain.VisitID) (*models.VisitRecord, error)
	FindActiveByGuest(ctx context.Context, guestID domain.GuestID) (*models.VisitRecord, error)
	List(ctx context.Context, filter models.ListFilter, page models.Page) (*models.PagedVisits, error)
	Delete(ctx context.Context, id domain.VisitID) error
}

// Service is the visit state machine. A guest is either Absent (no active
// record) or Present (exactly one); every transition below preserves that.
type Service struct {
	guests  GuestStore
	visits  VisitStore
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor *audit.Recorder
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAudit(recorder *audit.Recorder) Option {
	return func(s *Service) { s.auditor = recorder }
}

func New(guests GuestStore, visits VisitStore, opts ...Option) *Service {
	s := &Service{
		guests: guests,
		visits: visits,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckIn opens a visit for the guest. at overrides the check-in instant
// for administrative back-dating; nil means the request time.
//
// Two concurrent check-ins for the same guest both pass the existence
// check; the storage uniqueness constraint rejects the loser, which
// surfaces here as ALREADY_CHECKED_IN rather than an internal error.
func (s *Service) CheckIn(ctx context.Context, guestID domain.GuestID, at *time.Time) (*models.VisitRecord, error) {
	if _, err := s.guests.FindByID(ctx, guestID); err != nil {
		return nil, guestErr(err, guestID)
	}

	checkinAt := requestcontext.Now(ctx)
	if at != nil {
		checkinAt = *at
	}

	visit := models.NewActive(domain.NewVisitID(), guestID, checkinAt)
	if err := s.visits.CreateActive(ctx, visit); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			if s.metrics != nil {
				s.metrics.CheckinRejects.Inc()
			}
			return nil, dErrors.New(dErrors.CodeAlreadyCheckedIn,
				"guest is already checked in", "guest_id", guestID.String())
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create visit")
	}

	if s.metrics != nil {
		s.metrics.Checkins.Inc()
		s.metrics.Occupancy.Inc()
	}
	s.logger.InfoContext(ctx, "guest checked in",
		"guest_id", guestID.String(),
		"visit_id", visit.ID.String(),
	)
	return visit, nil
}

// CheckOut closes the guest's active visit. Fails with NOT_CHECKED_IN when
// there is none; nothing is mutated in that case.
func (s *Service) CheckOut(ctx context.Context, guestID domain.GuestID, at *time.Time) (*models.VisitRecord, error) {
	visit, err := s.visits.FindActiveByGuest(ctx, guestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotCheckedIn,
				"guest has no active visit", "guest_id", guestID.String())
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find active visit")
	}
	return s.close(ctx, visit, at)
}

// CheckOutVisit closes a specific visit, for administrative correction
// flows addressed by visit rather than by guest.
func (s *Service) CheckOutVisit(ctx context.Context, visitID domain.VisitID, at *time.Time) (*models.VisitRecord, error) {
	visit, err := s.visits.FindByID(ctx, visitID)
	if err != nil {
		return nil, visitErr(err, visitID)
	}
	if !visit.IsActive {
		return nil, dErrors.New(dErrors.CodeNotCheckedIn,
			"visit is already closed", "visit_id", visitID.String())
	}
	return s.close(ctx, visit, at)
}

func (s *Service) close(ctx context.Context, visit *models.VisitRecord, at *time.Time) (*models.VisitRecord, error) {
	checkoutAt := requestcontext.Now(ctx)
	if at != nil {
		checkoutAt = *at
	}
	if err := visit.Close(checkoutAt); err != nil {
		return nil, err
	}
	if err := s.visits.Update(ctx, visit); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to close visit",
			"visit_id", visit.ID.String())
	}

	if s.metrics != nil {
		s.metrics.Checkouts.Inc()
		s.metrics.Occupancy.Dec()
		s.metrics.StayMinutes.Observe(float64(visit.StayMinutes(checkoutAt)))
	}
	s.logger.InfoContext(ctx, "guest checked out",
		"guest_id", visit.GuestID.String(),
		"visit_id", visit.ID.String(),
		"stay_minutes", visit.StayMinutes(checkoutAt),
	)
	return visit, nil
}

// EditTimes is the administrative correction path. Passing a nil checkoutAt
// reopens the visit; the update then re-validates the single-active
// invariant, so reopening while another visit is active for the same guest
// is rejected rather than silently creating a second Present state.
func (s *Service) EditTimes(ctx context.Context, visitID domain.VisitID, checkinAt time.Time, checkoutAt *time.Time) (*models.VisitRecord, error) {
	visit, err := s.visits.FindByID(ctx, visitID)
	if err != nil {
		return nil, visitErr(err, visitID)
	}

	if err := visit.SetTimes(checkinAt, checkoutAt, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.visits.Update(ctx, visit); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeAlreadyCheckedIn,
				"another visit is already active for this guest",
				"guest_id", visit.GuestID.String(), "visit_id", visitID.String())
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update visit",
			"visit_id", visitID.String())
	}

	s.auditor.Emit(ctx, audit.Event{
		Action:  audit.ActionVisitTimesEdited,
		GuestID: visit.GuestID.String(),
		VisitID: visitID.String(),
	})
	return visit, nil
}

// Delete removes a visit outright. Deleting an active record flips the
// guest back to Absent as a side effect; that is accepted behavior for the
// privileged correction flow, not an error.
func (s *Service) Delete(ctx context.Context, visitID domain.VisitID) error {
	visit, err := s.visits.FindByID(ctx, visitID)
	if err != nil {
		return visitErr(err, visitID)
	}
	if err := s.visits.Delete(ctx, visitID); err != nil {
		return visitErr(err, visitID)
	}
	if visit.IsActive && s.metrics != nil {
		s.metrics.Occupancy.Dec()
	}
	s.auditor.Emit(ctx, audit.Event{
		Action:  audit.ActionVisitDeleted,
		GuestID: visit.GuestID.String(),
		VisitID: visitID.String(),
	})
	return nil
}

// List pages through visit history, newest first.
func (s *Service) List(ctx context.Context, filter models.ListFilter, page models.Page) (*models.PagedVisits, error) {
	result, err := s.visits.List(ctx, filter, page)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list visits")
	}
	return result, nil
}

func guestErr(err error, id domain.GuestID) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeGuestNotFound, "guest does not exist", "guest_id", id.String())
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "guest storage failure", "guest_id", id.String())
}

func visitErr(err error, id domain.VisitID) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "visit does not exist", "visit_id", id.String())
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "visit storage failure", "visit_id", id.String())
}
