package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"genkan/internal/transport/http/shared"
	"genkan/internal/visit/models"
	"genkan/pkg/domain"
	dErrors "genkan/pkg/domain-errors"
	"genkan/pkg/requestcontext"
)

// Service is the visit lifecycle surface the handler delegates to.
type Service interface {
	CheckIn(ctx context.Context, guestID domain.GuestID, at *time.Time) (*models.VisitRecord, error)
	CheckOut(ctx context.Context, guestID domain.GuestID, at *time.Time) (*models.VisitRecord, error)
	CheckOutVisit(ctx context.Context, visitID domain.VisitID, at *time.Time) (*models.VisitRecord, error)
	EditTimes(ctx context.Context, visitID domain.VisitID, checkinAt time.Time, checkoutAt *time.Time) (*models.VisitRecord, error)
	Delete(ctx context.Context, visitID domain.VisitID) error
	List(ctx context.Context, filter models.ListFilter, page models.Page) (*models.PagedVisits, error)
}

type Handler struct {
	visits Service
	logger *slog.Logger
}

func New(visits Service, logger *slog.Logger) *Handler {
	return &Handler{visits: visits, logger: logger}
}

// Register mounts the visit routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/visits/checkin", h.handleCheckIn)
	r.Post("/visits/checkout", h.handleCheckOut)
	r.Post("/visits/{visitID}/checkout", h.handleCheckOutVisit)
	r.Get("/visits", h.handleList)
	r.Put("/visits/{visitID}/times", h.handleEditTimes)
	r.Delete("/visits/{visitID}", h.handleDelete)
}

type transitionRequest struct {
	GuestID domain.GuestID `json:"guest_id"`
	At      *time.Time     `json:"at"`
}

// visitResponse adds the display-friendly stay duration next to the raw
// record.
type visitResponse struct {
	models.VisitRecord
	StayMinutes int    `json:"stay_minutes"`
	StayDisplay string `json:"stay_display"`
}

func respond(w http.ResponseWriter, status int, visit *models.VisitRecord, now time.Time) {
	minutes := visit.StayMinutes(now)
	shared.WriteJSON(w, status, visitResponse{
		VisitRecord: *visit,
		StayMinutes: minutes,
		StayDisplay: models.FormatMinutes(minutes),
	})
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if req.GuestID.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "guest_id is required"))
		return
	}
	visit, err := h.visits.CheckIn(r.Context(), req.GuestID, req.At)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	respond(w, http.StatusCreated, visit, requestcontext.Now(r.Context()))
}

func (h *Handler) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if req.GuestID.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "guest_id is required"))
		return
	}
	visit, err := h.visits.CheckOut(r.Context(), req.GuestID, req.At)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, visit, requestcontext.Now(r.Context()))
}

func (h *Handler) handleCheckOutVisit(w http.ResponseWriter, r *http.Request) {
	visitID, err := domain.ParseVisitID(chi.URLParam(r, "visitID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req struct {
		At *time.Time `json:"at"`
	}
	if r.ContentLength > 0 {
		if err := shared.DecodeJSON(r, &req); err != nil {
			shared.WriteError(w, err)
			return
		}
	}
	visit, err := h.visits.CheckOutVisit(r.Context(), visitID, req.At)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, visit, requestcontext.Now(r.Context()))
}

type editTimesRequest struct {
	CheckinAt  time.Time  `json:"checkin_at"`
	CheckoutAt *time.Time `json:"checkout_at"`
}

func (h *Handler) handleEditTimes(w http.ResponseWriter, r *http.Request) {
	visitID, err := domain.ParseVisitID(chi.URLParam(r, "visitID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req editTimesRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if req.CheckinAt.IsZero() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "checkin_at is required"))
		return
	}
	visit, err := h.visits.EditTimes(r.Context(), visitID, req.CheckinAt, req.CheckoutAt)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	respond(w, http.StatusOK, visit, requestcontext.Now(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	visitID, err := domain.ParseVisitID(chi.URLParam(r, "visitID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.visits.Delete(r.Context(), visitID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, page, err := parseListQuery(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	result, err := h.visits.List(r.Context(), filter, page)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list visits failed", "error", err.Error())
		shared.WriteError(w, err)
		return
	}
	if result.Items == nil {
		result.Items = []models.VisitRecord{}
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func parseListQuery(r *http.Request) (models.ListFilter, models.Page, error) {
	q := r.URL.Query()
	var filter models.ListFilter
	var page models.Page

	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, page, dErrors.New(dErrors.CodeInvalidInput, "from must be RFC 3339")
		}
		filter.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, page, dErrors.New(dErrors.CodeInvalidInput, "to must be RFC 3339")
		}
		filter.To = &t
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, page, dErrors.New(dErrors.CodeInvalidRange, "to precedes from")
	}
	if raw := q.Get("guest_id"); raw != "" {
		id, err := domain.ParseGuestID(raw)
		if err != nil {
			return filter, page, err
		}
		filter.GuestID = &id
	}
	filter.NamePattern = q.Get("name")
	filter.ActiveOnly = q.Get("active") == "true"

	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return filter, page, dErrors.New(dErrors.CodeInvalidInput, "page must be a positive integer")
		}
		page.Number = n
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return filter, page, dErrors.New(dErrors.CodeInvalidInput, "limit must be a positive integer")
		}
		page.Limit = n
	}
	return filter, page, nil
}
