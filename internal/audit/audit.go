// Package audit records administrative mutations: visit time edits, guest
// and visit deletions, activity entry removals. Append-only; emission is
// best-effort and never fails the operation that triggered it.
package audit

import (
	"context"
	"log/slog"
	"time"

	"genkan/pkg/domain"
	"genkan/pkg/requestcontext"
)

// Action names a recorded administrative mutation.
type Action string

const (
	ActionVisitTimesEdited Action = "visit.times_edited"
	ActionVisitDeleted     Action = "visit.deleted"
	ActionGuestEdited      Action = "guest.edited"
	ActionGuestDeleted     Action = "guest.deleted"
	ActionActivityDeleted  Action = "activity.deleted"
)

// Event is one audit trail row. GuestID is the primary lookup key; VisitID
// and EntryID are set when the action targets those records.
type Event struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Action    Action      `json:"action"`
	ActorRole domain.Role `json:"actor_role"`
	GuestID   string      `json:"guest_id,omitempty"`
	VisitID   string      `json:"visit_id,omitempty"`
	EntryID   string      `json:"entry_id,omitempty"`
	Detail    string      `json:"detail,omitempty"`
}

// Store is the persistence surface for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByGuest(ctx context.Context, guestID string) ([]Event, error)
}

// Recorder emits events to a store. A nil Recorder is safe to call, so
// services take it as an optional dependency.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Emit appends the event, filling timestamp and actor role from the request
// context when unset. Failures are logged, not returned: losing an audit row
// must not roll back the mutation it describes.
func (r *Recorder) Emit(ctx context.Context, event Event) {
	if r == nil || r.store == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.ActorRole == "" {
		event.ActorRole = requestcontext.Role(ctx)
	}
	if err := r.store.Append(ctx, event); err != nil && r.logger != nil {
		r.logger.ErrorContext(ctx, "failed to append audit event",
			"action", string(event.Action),
			"error", err.Error(),
		)
	}
}

// ListByGuest returns the audit trail for one guest, oldest first. A nil
// recorder has no trail and returns an empty slice.
func (r *Recorder) ListByGuest(ctx context.Context, guestID string) ([]Event, error) {
	if r == nil || r.store == nil {
		return []Event{}, nil
	}
	return r.store.ListByGuest(ctx, guestID)
}
