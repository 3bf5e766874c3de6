// Package stats derives aggregate numbers from visit records. It never
// mutates anything; every figure is recomputed from the ledger so the
// redundant is_active projection can be cross-checked against it.
package stats

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"genkan/internal/calendar"
	guestmodels "genkan/internal/guest/models"
	"genkan/internal/platform/metrics"
	visitmodels "genkan/internal/visit/models"
	"genkan/pkg/domain"
	dErrors "genkan/pkg/domain-errors"
	"genkan/pkg/platform/sentinel"
	"genkan/pkg/requestcontext"
)

type VisitSource interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]visitmodels.VisitRecord, error)
	ListActive(ctx context.Context) ([]visitmodels.VisitRecord, error)
	ListByGuest(ctx context.Context, guestID domain.GuestID) ([]visitmodels.VisitRecord, error)
	CountActive(ctx context.Context) (int, error)
}

type GuestSource interface {
	FindByID(ctx context.Context, id domain.GuestID) (*guestmodels.Guest, error)
}

// SummaryCache is an optional read-through cache for the day summary, which
// the kiosk dashboard polls aggressively. A nil result with nil error is a
// miss.
type SummaryCache interface {
	Get(ctx context.Context, key string) (*Summary, error)
	Set(ctx context.Context, key string, summary *Summary) error
}

// Summary is the windowed aggregate: check-ins in the window, guests
// currently present (system-wide, not windowed), and the mean stay of the
// window's closed visits in whole minutes. Open visits are excluded from
// the average rather than counted as zero.
type Summary struct {
	TotalCheckins      int `json:"total_checkins"`
	CurrentGuests      int `json:"current_guests"`
	AverageStayMinutes int `json:"average_stay_minutes"`
}

// DayStat is one day of a guest's trailing-window series.
type DayStat struct {
	Date        string `json:"date"`
	VisitCount  int    `json:"visit_count"`
	StayMinutes int    `json:"stay_minutes"`
}

// GuestDetail is a guest's lifetime and per-day statistics.
type GuestDetail struct {
	TotalVisitCount      int        `json:"total_visit_count"`
	TotalStayMinutes     int        `json:"total_stay_minutes"`
	LastVisitAt          *time.Time `json:"last_visit_at,omitempty"`
	IsCurrentlyCheckedIn bool       `json:"is_currently_checked_in"`
	Daily                []DayStat  `json:"daily"`
}

// Aggregator computes the stats surface.
type Aggregator struct {
	visits  VisitSource
	guests  GuestSource
	cal     calendar.Calendar
	logger  *slog.Logger
	metrics *metrics.Metrics
	cache   SummaryCache
}

type Option func(*Aggregator)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

func WithSummaryCache(cache SummaryCache) Option {
	return func(a *Aggregator) { a.cache = cache }
}

func New(visits VisitSource, guests GuestSource, cal calendar.Calendar, opts ...Option) *Aggregator {
	a := &Aggregator{
		visits: visits,
		guests: guests,
		cal:    cal,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TodayStats aggregates the current facility-local day. Results are served
// from the cache when one is wired; staleness is bounded by the cache TTL.
func (a *Aggregator) TodayStats(ctx context.Context) (*Summary, error) {
	now := requestcontext.Now(ctx)
	start, end := a.cal.DayRange(now)

	key := "stats:today:" + a.cal.DayKey(now)
	if a.cache != nil {
		if cached, err := a.cache.Get(ctx, key); err != nil {
			a.logger.WarnContext(ctx, "stats cache read failed", "error", err.Error())
		} else if cached != nil {
			return cached, nil
		}
	}

	summary, err := a.PeriodStats(ctx, start, end)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, key, summary); err != nil {
			a.logger.WarnContext(ctx, "stats cache write failed", "error", err.Error())
		}
	}
	return summary, nil
}

// PeriodStats aggregates an arbitrary [start, end) instant window. The
// window scopes check-in counting and the stay average; the current-guest
// count is always the system-wide active total.
func (a *Aggregator) PeriodStats(ctx context.Context, start, end time.Time) (*Summary, error) {
	defer a.metrics.ObserveStats(time.Now())

	var (
		visits []visitmodels.VisitRecord
		active int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		visits, err = a.visits.ListBetween(gctx, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		active, err = a.visits.CountActive(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate period stats")
	}

	summary := &Summary{
		TotalCheckins: len(visits),
		CurrentGuests: active,
	}
	closedCount, closedMinutes := 0, 0
	for i := range visits {
		if visits[i].IsActive {
			continue
		}
		closedCount++
		closedMinutes += visits[i].StayMinutes(time.Time{})
	}
	if closedCount > 0 {
		summary.AverageStayMinutes = closedMinutes / closedCount
	}
	return summary, nil
}

// CurrentOccupancy lists active visits enriched with guest identity and
// lifetime totals; an open visit contributes its elapsed time so far.
func (a *Aggregator) CurrentOccupancy(ctx context.Context) ([]visitmodels.VisitWithGuest, error) {
	now := requestcontext.Now(ctx)

	active, err := a.visits.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active visits")
	}

	result := make([]visitmodels.VisitWithGuest, 0, len(active))
	for _, visit := range active {
		guest, err := a.guests.FindByID(ctx, visit.GuestID)
		if err != nil {
			// A visit whose guest vanished mid-listing is skipped, not
			// fatal; deletion guards make this a transient read anomaly.
			if errors.Is(err, sentinel.ErrNotFound) {
				a.logger.WarnContext(ctx, "active visit without guest",
					"visit_id", visit.ID.String(), "guest_id", visit.GuestID.String())
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load guest for occupancy")
		}

		lifetime, err := a.visits.ListByGuest(ctx, visit.GuestID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load guest visit history")
		}
		totalMinutes := 0
		for i := range lifetime {
			totalMinutes += lifetime[i].StayMinutes(now)
		}

		result = append(result, visitmodels.VisitWithGuest{
			Visit:            visit,
			GuestName:        guest.Name,
			DisplayID:        guest.DisplayID,
			Grade:            guest.Grade,
			TotalVisitCount:  len(lifetime),
			TotalStayMinutes: totalMinutes,
		})
	}
	return result, nil
}

// GuestDetail returns lifetime totals plus a contiguous daily series for
// the trailing window of facility-local days, oldest day first. A visit
// that crosses midnight is attributed wholly to the day it started.
func (a *Aggregator) GuestDetail(ctx context.Context, guestID domain.GuestID, windowDays int) (*GuestDetail, error) {
	if windowDays < 1 {
		windowDays = 30
	}
	now := requestcontext.Now(ctx)

	if _, err := a.guests.FindByID(ctx, guestID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeGuestNotFound, "guest does not exist",
				"guest_id", guestID.String())
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load guest")
	}

	visits, err := a.visits.ListByGuest(ctx, guestID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load guest visit history")
	}

	detail := &GuestDetail{TotalVisitCount: len(visits)}
	byDay := make(map[string]*DayStat)
	for i := range visits {
		visit := &visits[i]
		detail.TotalStayMinutes += visit.StayMinutes(now)
		if visit.IsActive {
			detail.IsCurrentlyCheckedIn = true
		}
		if detail.LastVisitAt == nil || visit.CheckinAt.After(*detail.LastVisitAt) {
			at := visit.CheckinAt
			detail.LastVisitAt = &at
		}
		key := a.cal.DayKey(visit.CheckinAt)
		if stat, ok := byDay[key]; ok {
			stat.VisitCount++
			stat.StayMinutes += visit.StayMinutes(now)
		} else {
			byDay[key] = &DayStat{Date: key, VisitCount: 1, StayMinutes: visit.StayMinutes(now)}
		}
	}

	// Emit one row per day in the window, zeros included, so callers can
	// chart a contiguous series without re-deriving day boundaries.
	day := a.cal.TrailingWindow(now, windowDays)
	end := a.cal.StartOfNextDay(now)
	for day.Before(end) {
		key := a.cal.DayKey(day)
		if stat, ok := byDay[key]; ok {
			detail.Daily = append(detail.Daily, *stat)
		} else {
			detail.Daily = append(detail.Daily, DayStat{Date: key})
		}
		day = a.cal.StartOfNextDay(day)
	}
	return detail, nil
}

// VisitRow is one flattened visit for the monthly export query: guest
// identity plus the visit boundaries and its whole-minute duration.
type VisitRow struct {
	DisplayID   int        `json:"display_id"`
	GuestName   string     `json:"guest_name"`
	CheckinAt   time.Time  `json:"checkin_at"`
	CheckoutAt  *time.Time `json:"checkout_at,omitempty"`
	StayMinutes int        `json:"stay_minutes"`
}

// MonthlyVisitRows lists every visit checked in during one facility-local
// calendar month, oldest first. Rows whose guest has vanished are skipped
// the same way CurrentOccupancy skips them.
func (a *Aggregator) MonthlyVisitRows(ctx context.Context, year int, month time.Month) ([]VisitRow, error) {
	now := requestcontext.Now(ctx)
	start := a.cal.Day(year, month, 1)
	end := a.cal.Day(year, month+1, 1)

	visits, err := a.visits.ListBetween(ctx, start, end)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list monthly visits")
	}

	names := make(map[domain.GuestID]*guestmodels.Guest)
	rows := make([]VisitRow, 0, len(visits))
	// ListBetween is newest first; walk backwards for an ascending export.
	for i := len(visits) - 1; i >= 0; i-- {
		visit := &visits[i]
		guest, ok := names[visit.GuestID]
		if !ok {
			guest, err = a.guests.FindByID(ctx, visit.GuestID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					a.logger.WarnContext(ctx, "visit without guest",
						"visit_id", visit.ID.String(), "guest_id", visit.GuestID.String())
					names[visit.GuestID] = nil
					continue
				}
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load guest for export")
			}
			names[visit.GuestID] = guest
		}
		if guest == nil {
			continue
		}
		rows = append(rows, VisitRow{
			DisplayID:   guest.DisplayID,
			GuestName:   guest.Name,
			CheckinAt:   visit.CheckinAt,
			CheckoutAt:  visit.CheckoutAt,
			StayMinutes: visit.StayMinutes(now),
		})
	}
	return rows, nil
}
