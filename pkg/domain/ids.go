package domain

import (
	"github.com/google/uuid"

	dErrors "genkan/pkg/domain-errors"
)

// Typed UUID wrappers keep guest, visit, and activity identifiers from being
// swapped at call sites. The compiler enforces the distinction.
type (
	GuestID         uuid.UUID
	VisitID         uuid.UUID
	ActivityEntryID uuid.UUID
)

func NewGuestID() GuestID                 { return GuestID(uuid.New()) }
func NewVisitID() VisitID                 { return VisitID(uuid.New()) }
func NewActivityEntryID() ActivityEntryID { return ActivityEntryID(uuid.New()) }

func (id GuestID) String() string         { return uuid.UUID(id).String() }
func (id VisitID) String() string         { return uuid.UUID(id).String() }
func (id ActivityEntryID) String() string { return uuid.UUID(id).String() }

func (id GuestID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id VisitID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ActivityEntryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps the IDs as canonical UUID strings in JSON payloads
// rather than raw byte arrays.
func (id GuestID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id VisitID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id ActivityEntryID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *GuestID) UnmarshalText(text []byte) error {
	parsed, err := ParseGuestID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *VisitID) UnmarshalText(text []byte) error {
	parsed, err := ParseVisitID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ActivityEntryID) UnmarshalText(text []byte) error {
	parsed, err := ParseActivityEntryID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseGuestID validates and returns a GuestID. Empty, malformed, and nil
// UUIDs are rejected so trust boundaries never hand a zero ID to a store.
func ParseGuestID(s string) (GuestID, error) {
	u, err := parseUUID(s, "guest id")
	return GuestID(u), err
}

func ParseVisitID(s string) (VisitID, error) {
	u, err := parseUUID(s, "visit id")
	return VisitID(u), err
}

func ParseActivityEntryID(s string) (ActivityEntryID, error) {
	u, err := parseUUID(s, "activity entry id")
	return ActivityEntryID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must not be the nil UUID")
	}
	return u, nil
}
