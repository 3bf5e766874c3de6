package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"genkan/internal/activity/models"
	"genkan/internal/transport/http/shared"
	"genkan/pkg/domain"
	dErrors "genkan/pkg/domain-errors"
	"genkan/pkg/requestcontext"
)

type Service interface {
	Record(ctx context.Context, guestID domain.GuestID, categories []models.Category,
		description, mentorNote string, at *time.Time) (*models.Entry, error)
	Remove(ctx context.Context, entryID domain.ActivityEntryID) error
	ListForDay(ctx context.Context, date time.Time) ([]models.Entry, error)
}

type Handler struct {
	activity Service
	logger   *slog.Logger
}

func New(activity Service, logger *slog.Logger) *Handler {
	return &Handler{activity: activity, logger: logger}
}

// Register mounts the activity routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/activity", h.handleRecord)
	r.Get("/activity", h.handleListForDay)
	r.Delete("/activity/{entryID}", h.handleRemove)
}

type recordRequest struct {
	GuestID     domain.GuestID    `json:"guest_id"`
	Categories  []models.Category `json:"categories"`
	Description string            `json:"description"`
	MentorNote  string            `json:"mentor_note"`
	At          *time.Time        `json:"at"`
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if req.GuestID.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "guest_id is required"))
		return
	}

	entry, err := h.activity.Record(r.Context(), req.GuestID, req.Categories,
		req.Description, req.MentorNote, req.At)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, entry)
}

// handleListForDay returns the entries of one facility-local day; the date
// parameter is a facility calendar date, defaulting to today.
func (h *Handler) handleListForDay(w http.ResponseWriter, r *http.Request) {
	date := requestcontext.Now(r.Context())
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "date must be YYYY-MM-DD"))
			return
		}
		date = parsed
	}

	entries, err := h.activity.ListForDay(r.Context(), date)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list activity failed", "error", err.Error())
		shared.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []models.Entry{}
	}
	shared.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	entryID, err := domain.ParseActivityEntryID(chi.URLParam(r, "entryID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.activity.Remove(r.Context(), entryID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
