package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"genkan/internal/activity/models"
	"genkan/internal/audit"
	"genkan/internal/calendar"
	guestmodels "genkan/internal/guest/models"
	"genkan/pkg/domain"
	dErrors "genkan/pkg/domain-errors"
	"genkan/pkg/platform/sentinel"
	"genkan/pkg/requestcontext"
)

type GuestStore interface {
	FindByID(ctx context.Context, id domain.GuestID) (*guestmodels.Guest, error)
}

type ActivityStore interface {
	Upsert(ctx context.Context, entry *models.Entry) (*models.Entry, error)
	FindByID(ctx context.Context, id domain.ActivityEntryID) (*models.Entry, error)
	Delete(ctx context.Context, id domain.ActivityEntryID) error
	ListForRange(ctx context.Context, from, to time.Time) ([]models.Entry, error)
}

// Service records what guests were doing, one entry per guest per
// half-hour timeslot.
type Service struct {
	guests  GuestStore
	entries ActivityStore
	cal     calendar.Calendar
	logger  *slog.Logger
	auditor *audit.Recorder
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAudit(recorder *audit.Recorder) Option {
	return func(s *Service) { s.auditor = recorder }
}

func New(guests GuestStore, entries ActivityStore, cal calendar.Calendar, opts ...Option) *Service {
	s := &Service{
		guests:  guests,
		entries: entries,
		cal:     cal,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record floors the timestamp to its half-hour bucket and upserts the
// entry. A second call for the same guest and bucket replaces the first;
// the storage upsert is a single atomic statement, so concurrent calls
// cannot create duplicates.
func (s *Service) Record(ctx context.Context, guestID domain.GuestID, categories []models.Category,
	description, mentorNote string, at *time.Time) (*models.Entry, error) {

	if err := models.ValidateCategories(categories); err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)
	mentorNote = strings.TrimSpace(mentorNote)
	if err := models.ValidateNotes(description, mentorNote); err != nil {
		return nil, err
	}

	if _, err := s.guests.FindByID(ctx, guestID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeGuestNotFound, "guest does not exist",
				"guest_id", guestID.String())
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load guest")
	}

	when := requestcontext.Now(ctx)
	if at != nil {
		when = *at
	}
	entry := &models.Entry{
		ID:            domain.NewActivityEntryID(),
		GuestID:       guestID,
		TimeslotStart: s.cal.FloorToHalfHour(when),
		Categories:    categories,
		Description:   description,
		MentorNote:    mentorNote,
		UpdatedAt:     when.UTC(),
	}
	stored, err := s.entries.Upsert(ctx, entry)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save activity entry")
	}
	return stored, nil
}

// Remove deletes an entry. Only elevated roles may do this; the kiosk
// cannot erase the activity trail.
func (s *Service) Remove(ctx context.Context, entryID domain.ActivityEntryID) error {
	role := requestcontext.Role(ctx)
	if !role.Elevated() {
		return dErrors.New(dErrors.CodeForbidden, "deleting activity entries requires staff access",
			"role", string(role))
	}

	entry, err := s.entries.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "activity entry does not exist",
				"entry_id", entryID.String())
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load activity entry")
	}
	if err := s.entries.Delete(ctx, entryID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "activity entry does not exist",
				"entry_id", entryID.String())
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete activity entry")
	}

	s.auditor.Emit(ctx, audit.Event{
		Action:  audit.ActionActivityDeleted,
		GuestID: entry.GuestID.String(),
		EntryID: entryID.String(),
	})
	return nil
}

// ListForDay returns the facility-local day's entries ordered by timeslot.
func (s *Service) ListForDay(ctx context.Context, date time.Time) ([]models.Entry, error) {
	start, end := s.cal.DayRange(date)
	entries, err := s.entries.ListForRange(ctx, start, end)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list activity entries")
	}
	return entries, nil
}
