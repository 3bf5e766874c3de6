package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"genkan/internal/calendar"
	"genkan/internal/stats"
	"genkan/internal/transport/http/shared"
	visitmodels "genkan/internal/visit/models"
	"genkan/pkg/domain"
	dErrors "genkan/pkg/domain-errors"
)

// Aggregator is the stats surface the handler delegates to.
type Aggregator interface {
	TodayStats(ctx context.Context) (*stats.Summary, error)
	PeriodStats(ctx context.Context, start, end time.Time) (*stats.Summary, error)
	CurrentOccupancy(ctx context.Context) ([]visitmodels.VisitWithGuest, error)
	GuestDetail(ctx context.Context, guestID domain.GuestID, windowDays int) (*stats.GuestDetail, error)
	MonthlyVisitRows(ctx context.Context, year int, month time.Month) ([]stats.VisitRow, error)
}

type Handler struct {
	agg    Aggregator
	cal    calendar.Calendar
	logger *slog.Logger
}

func New(agg Aggregator, cal calendar.Calendar, logger *slog.Logger) *Handler {
	return &Handler{agg: agg, cal: cal, logger: logger}
}

// Register mounts the stats routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/stats/today", h.handleToday)
	r.Get("/stats/period", h.handlePeriod)
	r.Get("/stats/occupancy", h.handleOccupancy)
	r.Get("/stats/guests/{guestID}", h.handleGuestDetail)
	r.Get("/stats/monthly", h.handleMonthly)
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	summary, err := h.agg.TodayStats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "today stats failed", "error", err.Error())
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, summary)
}

// handlePeriod aggregates a range of facility-local calendar days,
// inclusive on both ends.
func (h *Handler) handlePeriod(w http.ResponseWriter, r *http.Request) {
	from, err := parseDay(r.URL.Query().Get("from"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	to, err := parseDay(r.URL.Query().Get("to"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if to.Before(from) {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidRange, "to precedes from"))
		return
	}

	summary, err := h.agg.PeriodStats(r.Context(), h.cal.StartOfDay(from), h.cal.StartOfNextDay(to))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "period stats failed", "error", err.Error())
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	board, err := h.agg.CurrentOccupancy(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "occupancy failed", "error", err.Error())
		shared.WriteError(w, err)
		return
	}
	if board == nil {
		board = []visitmodels.VisitWithGuest{}
	}
	shared.WriteJSON(w, http.StatusOK, board)
}

func (h *Handler) handleGuestDetail(w http.ResponseWriter, r *http.Request) {
	guestID, err := domain.ParseGuestID(chi.URLParam(r, "guestID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 366 {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "days must be between 1 and 366"))
			return
		}
		days = parsed
	}

	detail, err := h.agg.GuestDetail(r.Context(), guestID, days)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleMonthly(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 2000 || year > 2099 {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "year must be a four-digit year"))
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "month must be 1-12"))
		return
	}

	rows, err := h.agg.MonthlyVisitRows(r.Context(), year, time.Month(month))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "monthly rows failed", "error", err.Error())
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, rows)
}

func parseDay(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, dErrors.New(dErrors.CodeInvalidInput, "from and to are required (YYYY-MM-DD)")
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeInvalidInput, "dates must be YYYY-MM-DD")
	}
	return t, nil
}
