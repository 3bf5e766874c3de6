package models

import (
	"fmt"
	"time"

	"genkan/pkg/domain"
	dErrors "genkan/pkg/domain-errors"

	guestmodel "genkan/internal/guest/models"
)

// VisitRecord is one check-in/check-out episode.
//
// Invariants:
//   - At most one record per guest is active at any time; the store enforces
//     this with a uniqueness constraint evaluated atomically with the insert
//   - CheckoutAt, when set, never precedes CheckinAt
//   - IsActive is a projection of CheckoutAt == nil, persisted redundantly
//     for query performance and always written in the same statement
type VisitRecord struct {
	ID         domain.VisitID `json:"id"`
	GuestID    domain.GuestID `json:"guest_id"`
	CheckinAt  time.Time      `json:"checkin_at"`
	CheckoutAt *time.Time     `json:"checkout_at,omitempty"`
	IsActive   bool           `json:"is_active"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// NewActive constructs an open visit starting at checkinAt.
func NewActive(id domain.VisitID, guestID domain.GuestID, checkinAt time.Time) *VisitRecord {
	return &VisitRecord{
		ID:        id,
		GuestID:   guestID,
		CheckinAt: checkinAt.UTC(),
		IsActive:  true,
		UpdatedAt: checkinAt.UTC(),
	}
}

// Close marks the visit finished at checkoutAt. Closing an already-closed
// visit or supplying a checkout before the check-in is rejected, not
// silently corrected.
func (v *VisitRecord) Close(checkoutAt time.Time) error {
	if !v.IsActive {
		return dErrors.New(dErrors.CodeNotCheckedIn, "visit is already closed", "visit_id", v.ID.String())
	}
	if checkoutAt.Before(v.CheckinAt) {
		return dErrors.New(dErrors.CodeInvalidRange, "checkout precedes check-in",
			"visit_id", v.ID.String())
	}
	at := checkoutAt.UTC()
	v.CheckoutAt = &at
	v.IsActive = false
	v.UpdatedAt = at
	return nil
}

// SetTimes applies an administrative edit. A nil checkoutAt reopens the
// visit; the caller re-validates the single-active invariant before saving.
func (v *VisitRecord) SetTimes(checkinAt time.Time, checkoutAt *time.Time, now time.Time) error {
	if checkoutAt != nil && checkoutAt.Before(checkinAt) {
		return dErrors.New(dErrors.CodeInvalidRange, "checkout precedes check-in",
			"visit_id", v.ID.String())
	}
	v.CheckinAt = checkinAt.UTC()
	if checkoutAt == nil {
		v.CheckoutAt = nil
		v.IsActive = true
	} else {
		at := checkoutAt.UTC()
		v.CheckoutAt = &at
		v.IsActive = false
	}
	v.UpdatedAt = now.UTC()
	return nil
}

// StayMinutes returns the elapsed whole minutes of the visit, using now as
// the end for a still-open visit. Never negative.
func (v *VisitRecord) StayMinutes(now time.Time) int {
	end := now
	if v.CheckoutAt != nil {
		end = *v.CheckoutAt
	}
	minutes := int(end.Sub(v.CheckinAt).Minutes())
	if minutes < 0 {
		return 0
	}
	return minutes
}

// FormatMinutes renders whole minutes as "Xh", "Xm", or "XhYm" for kiosk and
// console display. Non-authoritative; durations stay numeric in responses.
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	hours, rem := minutes/60, minutes%60
	switch {
	case hours == 0:
		return fmt.Sprintf("%dm", rem)
	case rem == 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dh%dm", hours, rem)
	}
}

// ListFilter narrows visit listings. Zero values mean "no restriction".
type ListFilter struct {
	From        *time.Time
	To          *time.Time
	GuestID     *domain.GuestID
	NamePattern string
	ActiveOnly  bool
}

// Page is a 1-based pagination request.
type Page struct {
	Number int
	Limit  int
}

// Normalize clamps pagination to sane bounds.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Limit < 1 || p.Limit > 100 {
		p.Limit = 20
	}
	return p
}

// Offset converts the page to a row offset.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// PagedVisits is one page of a visit listing, newest first by CheckinAt.
type PagedVisits struct {
	Items []VisitRecord `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// VisitWithGuest enriches an active visit with the owning guest's identity
// and lifetime totals for the occupancy board.
type VisitWithGuest struct {
	Visit            VisitRecord      `json:"visit"`
	GuestName        string           `json:"guest_name"`
	DisplayID        int              `json:"display_id"`
	Grade            guestmodel.Grade `json:"grade,omitempty"`
	TotalVisitCount  int              `json:"total_visit_count"`
	TotalStayMinutes int              `json:"total_stay_minutes"`
}
