package models

import (
	"net/mail"
	"strings"
	"time"

	"genkan/pkg/domain"
	dErrors "genkan/pkg/domain-errors"
)

const maxNameLength = 50

// Grade is the school-year level of a guest. The set is closed; anything
// else is rejected at the boundary. An empty Grade means "not provided".
type Grade string

const (
	GradeElementary1 Grade = "es1"
	GradeElementary2 Grade = "es2"
	GradeElementary3 Grade = "es3"
	GradeElementary4 Grade = "es4"
	GradeElementary5 Grade = "es5"
	GradeElementary6 Grade = "es6"
	GradeJuniorHigh1 Grade = "jhs1"
	GradeJuniorHigh2 Grade = "jhs2"
	GradeJuniorHigh3 Grade = "jhs3"
	GradeHigh1       Grade = "hs1"
	GradeHigh2       Grade = "hs2"
	GradeHigh3       Grade = "hs3"
)

var validGrades = map[Grade]struct{}{
	GradeElementary1: {}, GradeElementary2: {}, GradeElementary3: {},
	GradeElementary4: {}, GradeElementary5: {}, GradeElementary6: {},
	GradeJuniorHigh1: {}, GradeJuniorHigh2: {}, GradeJuniorHigh3: {},
	GradeHigh1: {}, GradeHigh2: {}, GradeHigh3: {},
}

// ParseGrade validates a grade value. The empty string parses to the empty
// Grade because the field is optional.
func ParseGrade(s string) (Grade, error) {
	if s == "" {
		return "", nil
	}
	g := Grade(s)
	if _, ok := validGrades[g]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown grade", "grade", s)
	}
	return g, nil
}

// Guest is a registered visitor.
//
// Invariants:
//   - DisplayID is globally unique and never reused, even after deletion
//   - Name is non-empty and at most 50 characters
//   - Contact, when present, is a syntactically valid email address
//   - CreatedAt is immutable after construction
//
// Only Name, Contact, and Grade may change after creation, and only through
// an administrative edit.
type Guest struct {
	ID        domain.GuestID `json:"id"`
	DisplayID int            `json:"display_id"`
	Name      string         `json:"name"`
	Contact   string         `json:"contact,omitempty"`
	Grade     Grade          `json:"grade,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewGuest validates inputs and constructs a Guest. The display number is
// assigned separately by the identity issuer.
func NewGuest(id domain.GuestID, displayID int, name, contact string, grade Grade, now time.Time) (*Guest, error) {
	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidateContact(contact); err != nil {
		return nil, err
	}
	if _, err := ParseGrade(string(grade)); err != nil {
		return nil, err
	}
	return &Guest{
		ID:        id,
		DisplayID: displayID,
		Name:      name,
		Contact:   contact,
		Grade:     grade,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ApplyEdit updates the administratively editable fields after validating
// them. Identity fields (ID, DisplayID, CreatedAt) are untouchable.
func (g *Guest) ApplyEdit(name, contact string, grade Grade, now time.Time) error {
	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ValidateContact(contact); err != nil {
		return err
	}
	if _, err := ParseGrade(string(grade)); err != nil {
		return err
	}
	g.Name = name
	g.Contact = contact
	g.Grade = grade
	g.UpdatedAt = now
	return nil
}

// ValidateName enforces the non-empty, max-length name rule.
func ValidateName(name string) error {
	if name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if len([]rune(name)) > maxNameLength {
		return dErrors.New(dErrors.CodeInvalidInput, "name must be at most 50 characters")
	}
	return nil
}

// ValidateContact accepts an empty contact or a syntactically valid email.
func ValidateContact(contact string) error {
	if contact == "" {
		return nil
	}
	addr, err := mail.ParseAddress(contact)
	if err != nil || addr.Address != contact {
		return dErrors.New(dErrors.CodeInvalidInput, "contact must be a valid email address")
	}
	return nil
}
