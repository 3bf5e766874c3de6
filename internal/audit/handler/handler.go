package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"genkan/internal/audit"
	"genkan/internal/transport/http/shared"
	"genkan/pkg/domain"
	dErrors "genkan/pkg/domain-errors"
	"genkan/pkg/requestcontext"
)

// Handler exposes the audit trail read surface. Staff only; the kiosk has
// no business reading the mutation history.
type Handler struct {
	recorder *audit.Recorder
	logger   *slog.Logger
}

func New(recorder *audit.Recorder, logger *slog.Logger) *Handler {
	return &Handler{recorder: recorder, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/audit", h.handleList)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !requestcontext.Role(ctx).Elevated() {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "reading the audit trail requires staff access"))
		return
	}

	guestID, err := domain.ParseGuestID(r.URL.Query().Get("guest_id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	events, err := h.recorder.ListByGuest(ctx, guestID.String())
	if err != nil {
		h.logger.ErrorContext(ctx, "audit list failed", "error", err.Error())
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	shared.WriteJSON(w, http.StatusOK, events)
}
