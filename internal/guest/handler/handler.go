package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"genkan/internal/guest/models"
	"genkan/internal/transport/http/shared"
	"genkan/pkg/domain"
	dErrors "genkan/pkg/domain-errors"
	"genkan/pkg/requestcontext"
)

// Service is the guest operation surface the handler delegates to.
type Service interface {
	Create(ctx context.Context, name, contact string, grade models.Grade) (*models.Guest, error)
	Get(ctx context.Context, id domain.GuestID) (*models.Guest, error)
	GetByDisplayID(ctx context.Context, displayID int) (*models.Guest, error)
	Search(ctx context.Context, query string, limit int) ([]models.Guest, error)
	Update(ctx context.Context, id domain.GuestID, name, contact string, grade models.Grade) (*models.Guest, error)
	Delete(ctx context.Context, id domain.GuestID) error
}

type Handler struct {
	guests Service
	logger *slog.Logger
}

func New(guests Service, logger *slog.Logger) *Handler {
	return &Handler{guests: guests, logger: logger}
}

// Register mounts the guest routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/guests", h.handleCreate)
	r.Get("/guests", h.handleSearch)
	r.Get("/guests/{guestID}", h.handleGet)
	r.Get("/guests/by-display-id/{displayID}", h.handleGetByDisplayID)
	r.Put("/guests/{guestID}", h.handleUpdate)
	r.Delete("/guests/{guestID}", h.handleDelete)
}

type guestRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Grade   string `json:"grade"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req guestRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	grade, err := models.ParseGrade(req.Grade)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	guest, err := h.guests.Create(ctx, req.Name, req.Contact, grade)
	if err != nil {
		h.logError(ctx, "create guest failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, guest)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseGuestID(chi.URLParam(r, "guestID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	guest, err := h.guests.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, guest)
}

func (h *Handler) handleGetByDisplayID(w http.ResponseWriter, r *http.Request) {
	displayID, err := strconv.Atoi(chi.URLParam(r, "displayID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "display ID must be numeric"))
		return
	}
	guest, err := h.guests.GetByDisplayID(r.Context(), displayID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, guest)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("name")
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	guests, err := h.guests.Search(r.Context(), query, limit)
	if err != nil {
		h.logError(r.Context(), "guest search failed", err)
		shared.WriteError(w, err)
		return
	}
	if guests == nil {
		guests = []models.Guest{}
	}
	shared.WriteJSON(w, http.StatusOK, guests)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseGuestID(chi.URLParam(r, "guestID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req guestRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	grade, err := models.ParseGrade(req.Grade)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	guest, err := h.guests.Update(r.Context(), id, req.Name, req.Contact, grade)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, guest)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseGuestID(chi.URLParam(r, "guestID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.guests.Delete(r.Context(), id); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	)
}
