package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genkan/pkg/domain"
	"genkan/pkg/requestcontext"
)

func TestRecorderNilSafety(t *testing.T) {
	ctx := context.Background()

	t.Run("nil recorder emit is a no-op", func(t *testing.T) {
		var r *Recorder
		assert.NotPanics(t, func() {
			r.Emit(ctx, Event{Action: ActionGuestDeleted, GuestID: "g-1"})
		})
	})

	t.Run("nil recorder list returns empty", func(t *testing.T) {
		var r *Recorder
		events, err := r.ListByGuest(ctx, "g-1")
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("recorder with nil store list returns empty", func(t *testing.T) {
		r := NewRecorder(nil, nil)
		assert.NotPanics(t, func() {
			r.Emit(ctx, Event{Action: ActionVisitDeleted})
		})
		events, err := r.ListByGuest(ctx, "g-1")
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestRecorderEmit(t *testing.T) {
	now := time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRole(ctx, domain.RoleAdmin)

	t.Run("fills timestamp and actor role from context", func(t *testing.T) {
		store := NewInMemoryStore()
		r := NewRecorder(store, nil)

		r.Emit(ctx, Event{Action: ActionVisitTimesEdited, GuestID: "g-1", VisitID: "v-1"})

		events, err := r.ListByGuest(ctx, "g-1")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, ActionVisitTimesEdited, events[0].Action)
		assert.Equal(t, domain.RoleAdmin, events[0].ActorRole)
		assert.True(t, events[0].Timestamp.Equal(now))
	})

	t.Run("keeps explicit timestamp and role", func(t *testing.T) {
		store := NewInMemoryStore()
		r := NewRecorder(store, nil)
		earlier := now.Add(-time.Hour)

		r.Emit(ctx, Event{
			Action:    ActionGuestEdited,
			GuestID:   "g-2",
			ActorRole: domain.RoleStaff,
			Timestamp: earlier,
		})

		events, err := r.ListByGuest(ctx, "g-2")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, domain.RoleStaff, events[0].ActorRole)
		assert.True(t, events[0].Timestamp.Equal(earlier))
	})
}
