package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genkan/internal/guest/models"
	"genkan/internal/guest/store"
	"genkan/pkg/domain"
	dErrors "genkan/pkg/domain-errors"
)

func seedGuest(t *testing.T, s *store.InMemory, displayID int) {
	t.Helper()
	now := time.Now().UTC()
	err := s.Create(context.Background(), &models.Guest{
		ID:        domain.NewGuestID(),
		DisplayID: displayID,
		Name:      "Seed",
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
}

func TestCompose(t *testing.T) {
	assert.Equal(t, 25000, Compose(2025, 0))
	assert.Equal(t, 25007, Compose(2025, 7))
	assert.Equal(t, 25999, Compose(2025, 999))
	assert.Equal(t, 26001, Compose(2026, 1))
	assert.Equal(t, 0, Sequence(25000))
	assert.Equal(t, 7, Sequence(25007))
	assert.Equal(t, 999, Sequence(25999))
}

func TestIssue(t *testing.T) {
	ctx := context.Background()

	t.Run("first number of a year is sequence 0", func(t *testing.T) {
		issuer := New(store.NewInMemory())
		displayID, err := issuer.Issue(ctx, 2025)
		require.NoError(t, err)
		assert.Equal(t, 25000, displayID)
	})

	t.Run("counter continues past existing guests", func(t *testing.T) {
		s := store.NewInMemory()
		seedGuest(t, s, 25001)
		seedGuest(t, s, 25007)

		displayID, err := New(s).Issue(ctx, 2025)
		require.NoError(t, err)
		assert.Equal(t, 25008, displayID)
	})

	t.Run("years do not share sequences", func(t *testing.T) {
		s := store.NewInMemory()
		seedGuest(t, s, 25042)

		displayID, err := New(s).Issue(ctx, 2026)
		require.NoError(t, err)
		assert.Equal(t, 26000, displayID)
	})

	t.Run("deleted guests never free their numbers", func(t *testing.T) {
		s := store.NewInMemory()
		seedGuest(t, s, 25003)
		deleted, err := s.FindByDisplayID(ctx, 25003)
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, deleted.ID))

		displayID, err := New(s).Issue(ctx, 2025)
		require.NoError(t, err)
		assert.Equal(t, 25004, displayID)
	})

	t.Run("sequence 999 is the last issue of a year", func(t *testing.T) {
		s := store.NewInMemory()
		seedGuest(t, s, 25998)

		displayID, err := New(s).Issue(ctx, 2025)
		require.NoError(t, err)
		assert.Equal(t, 25999, displayID)

		seedGuest(t, s, 25999)
		_, err = New(s).Issue(ctx, 2025)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeSequenceLimitExceeded))
	})
}

func TestIssueYearCapacity(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()
	issuer := New(s)

	// A year holds exactly 1000 numbers, 25000 through 25999 in strictly
	// increasing order.
	prev := -1
	for i := 0; i < 1000; i++ {
		displayID, err := issuer.Issue(ctx, 2025)
		require.NoError(t, err, "issuance %d", i+1)
		require.Greater(t, displayID, prev)
		prev = displayID
		seedGuest(t, s, displayID)
	}
	assert.Equal(t, 25999, prev)

	_, err := issuer.Issue(ctx, 2025)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSequenceLimitExceeded))
}
