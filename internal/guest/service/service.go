package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"genkan/internal/audit"
	"genkan/internal/calendar"
	"genkan/internal/guest/identity"
	"genkan/internal/guest/models"
	"genkan/internal/platform/metrics"
	visitmodels "genkan/internal/visit/models"
	"genkan/pkg/domain"
	dErrors "genkan/pkg/domain-errors"
	"genkan/pkg/platform/sentinel"
	txcontext "genkan/pkg/platform/tx"
	"genkan/pkg/requestcontext"
)

// maxCreateAttempts bounds how often guest creation retries after losing
// the display-number uniqueness race to a concurrent registration.
const maxCreateAttempts = 3

type GuestStore interface {
	Create(ctx context.Context, guest *models.Guest) error
	FindByID(ctx context.Context, id domain.GuestID) (*models.Guest, error)
	FindByDisplayID(ctx context.Context, displayID int) (*models.Guest, error)
	SearchByName(ctx context.Context, substr string, limit int) ([]models.Guest, error)
	Update(ctx context.Context, guest *models.Guest) error
	Delete(ctx context.Context, id domain.GuestID) error
	NextSequenceForYear(ctx context.Context, year int) (int, error)
}

// VisitStore is the slice of visit storage guest administration needs:
// the active-visit guard before deletion and the deletion cascade.
type VisitStore interface {
	FindActiveByGuest(ctx context.Context, guestID domain.GuestID) (*visitmodels.VisitRecord, error)
	DeleteByGuest(ctx context.Context, guestID domain.GuestID) error
}

type ActivityStore interface {
	DeleteByGuest(ctx context.Context, guestID domain.GuestID) error
}

// Service owns guest registration and administration.
type Service struct {
	guests   GuestStore
	visits   VisitStore
	activity ActivityStore
	issuer   *identity.Issuer
	cal      calendar.Calendar
	logger   *slog.Logger
	metrics  *metrics.Metrics
	auditor  *audit.Recorder
	db       *sql.DB
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

// WithDB enables transactional deletion cascades. Without it (memory
// stores) the cascade runs as sequential writes.
func WithDB(db *sql.DB) Option {
	return func(s *Service) { s.db = db }
}

func New(guests GuestStore, visits VisitStore, activity ActivityStore, cal calendar.Calendar, opts ...Option) *Service {
	s := &Service{
		guests:   guests,
		visits:   visits,
		activity: activity,
		issuer:   identity.New(guests),
		cal:      cal,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a guest and issues its display number. Losing the
// display_id uniqueness race surfaces as sentinel.ErrAlreadyUsed from the
// store; the whole issue-and-insert is retried a bounded number of times.
func (s *Service) Create(ctx context.Context, name, contact string, grade models.Grade) (*models.Guest, error) {
	now := requestcontext.Now(ctx)
	year := s.cal.Year(now)

	var lastErr error
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		displayID, err := s.issuer.Issue(ctx, year)
		if err != nil {
			return nil, err
		}
		guest, err := models.NewGuest(domain.NewGuestID(), displayID, name, contact, grade, now.UTC())
		if err != nil {
			return nil, err
		}
		err = s.guests.Create(ctx, guest)
		if err == nil {
			if s.metrics != nil {
				s.metrics.GuestsCreated.Inc()
			}
			s.logger.InfoContext(ctx, "guest registered",
				"guest_id", guest.ID.String(),
				"display_id", guest.DisplayID,
			)
			return guest, nil
		}
		if !errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create guest")
		}
		lastErr = err
	}
	return nil, dErrors.Wrap(lastErr, dErrors.CodeDisplayIDGenerationFail,
		"display number allocation kept colliding", "year", year)
}

func (s *Service) Get(ctx context.Context, id domain.GuestID) (*models.Guest, error) {
	guest, err := s.guests.FindByID(ctx, id)
	if err != nil {
		return nil, guestErr(err, id)
	}
	return guest, nil
}

func (s *Service) GetByDisplayID(ctx context.Context, displayID int) (*models.Guest, error) {
	guest, err := s.guests.FindByDisplayID(ctx, displayID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeGuestNotFound, "no guest with this display number",
				"display_id", displayID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up guest")
	}
	return guest, nil
}

func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.Guest, error) {
	guests, err := s.guests.SearchByName(ctx, query, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search guests")
	}
	return guests, nil
}

// Update applies an administrative edit to name, contact, and grade.
func (s *Service) Update(ctx context.Context, id domain.GuestID, name, contact string, grade models.Grade) (*models.Guest, error) {
	guest, err := s.guests.FindByID(ctx, id)
	if err != nil {
		return nil, guestErr(err, id)
	}
	if err := guest.ApplyEdit(name, contact, grade, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.guests.Update(ctx, guest); err != nil {
		return nil, guestErr(err, id)
	}
	s.auditor.Emit(ctx, audit.Event{
		Action:  audit.ActionGuestEdited,
		GuestID: id.String(),
	})
	return guest, nil
}

// Delete removes a guest and every record referencing it. A guest with an
// active visit cannot be deleted; check them out first.
func (s *Service) Delete(ctx context.Context, id domain.GuestID) error {
	if _, err := s.guests.FindByID(ctx, id); err != nil {
		return guestErr(err, id)
	}

	_, err := s.visits.FindActiveByGuest(ctx, id)
	if err == nil {
		return dErrors.New(dErrors.CodeGuestCurrentlyCheckedIn,
			"guest has an active visit", "guest_id", id.String())
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check active visit")
	}

	err = txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		if err := s.activity.DeleteByGuest(ctx, id); err != nil {
			return err
		}
		if err := s.visits.DeleteByGuest(ctx, id); err != nil {
			return err
		}
		return s.guests.Delete(ctx, id)
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete guest", "guest_id", id.String())
	}

	s.auditor.Emit(ctx, audit.Event{
		Action:  audit.ActionGuestDeleted,
		GuestID: id.String(),
	})
	s.logger.InfoContext(ctx, "guest deleted", "guest_id", id.String())
	return nil
}

func guestErr(err error, id domain.GuestID) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeGuestNotFound, "guest does not exist", "guest_id", id.String())
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "guest storage failure", "guest_id", id.String())
}
