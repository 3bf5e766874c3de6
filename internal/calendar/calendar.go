// Package calendar owns every conversion between absolute instants and
// facility-local day or timeslot boundaries. The rest of the engine deals in
// absolute instants only; no other package is allowed to do timezone math.
package calendar

import "time"

// FacilityZone is the fixed local timezone for day boundaries and timeslot
// bucketing. Storage stays in UTC.
const FacilityZone = "Asia/Tokyo"

// Calendar is a stateless value object bound to one location.
type Calendar struct {
	loc *time.Location
}

// New returns a Calendar pinned to facility time. JST has no DST, so the
// fixed-offset fallback is exact even on hosts without tzdata.
func New() Calendar {
	loc, err := time.LoadLocation(FacilityZone)
	if err != nil {
		loc = time.FixedZone("JST", 9*60*60)
	}
	return Calendar{loc: loc}
}

// NewIn returns a Calendar for an arbitrary location. Tests use this to
// exercise boundary math in other offsets.
func NewIn(loc *time.Location) Calendar {
	return Calendar{loc: loc}
}

// Location exposes the facility location for presentation formatting.
func (c Calendar) Location() *time.Location {
	return c.loc
}

// StartOfDay returns the facility-local midnight of the day containing t,
// expressed as a UTC instant.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc).UTC()
}

// StartOfNextDay returns the facility-local midnight following the day
// containing t. With StartOfDay it forms the half-open range [start, next).
func (c Calendar) StartOfNextDay(t time.Time) time.Time {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, c.loc).UTC()
}

// DayRange returns [StartOfDay(t), StartOfNextDay(t)) in one call.
func (c Calendar) DayRange(t time.Time) (start, end time.Time) {
	return c.StartOfDay(t), c.StartOfNextDay(t)
}

// FloorToHalfHour truncates t down to the nearest 30-minute boundary in
// facility local time: minutes 0-29 floor to :00, minutes 30-59 to :30.
// The result is an absolute UTC instant.
func (c Calendar) FloorToHalfHour(t time.Time) time.Time {
	local := t.In(c.loc)
	minute := (local.Minute() / 30) * 30
	return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), minute, 0, 0, c.loc).UTC()
}

// DayKey returns the facility-local calendar date of t as "YYYY-MM-DD".
// Stats bucketing keys daily series by this value.
func (c Calendar) DayKey(t time.Time) string {
	return t.In(c.loc).Format("2006-01-02")
}

// Day returns the facility-local midnight instant for a calendar date.
func (c Calendar) Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, c.loc).UTC()
}

// TrailingWindow returns the start instant of the facility-local day that
// began days-1 days before the day containing now. Paired with
// StartOfNextDay(now) it spans a contiguous trailing window of whole days.
func (c Calendar) TrailingWindow(now time.Time, days int) time.Time {
	local := now.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day()-(days-1), 0, 0, 0, 0, c.loc).UTC()
}

// Year returns the facility-local calendar year of t. Display number
// issuance scopes sequences by this year, not the UTC one.
func (c Calendar) Year(t time.Time) int {
	return t.In(c.loc).Year()
}
