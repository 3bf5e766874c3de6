package models

import (
	"time"

	"genkan/pkg/domain"
	dErrors "genkan/pkg/domain-errors"
)

const (
	maxCategories        = 5
	maxDescriptionLength = 100
	maxMentorNoteLength  = 200
)

// Category tags what a guest was doing during a timeslot. Closed set.
type Category string

const (
	CategoryStudy       Category = "study"
	CategoryReading     Category = "reading"
	CategoryProgramming Category = "programming"
	CategoryCraft       Category = "craft"
	CategoryGame        Category = "game"
	CategorySports      Category = "sports"
	CategoryTalk        Category = "talk"
	CategoryEvent       Category = "event"
)

var validCategories = map[Category]struct{}{
	CategoryStudy: {}, CategoryReading: {}, CategoryProgramming: {},
	CategoryCraft: {}, CategoryGame: {}, CategorySports: {},
	CategoryTalk: {}, CategoryEvent: {},
}

// Entry is a note attached to a guest at one half-hour timeslot.
//
// Invariant: unique on (GuestID, TimeslotStart). A second write to the same
// guest and bucket replaces the categories and notes in place.
type Entry struct {
	ID            domain.ActivityEntryID `json:"id"`
	GuestID       domain.GuestID         `json:"guest_id"`
	TimeslotStart time.Time              `json:"timeslot_start"`
	Categories    []Category             `json:"categories"`
	Description   string                 `json:"description,omitempty"`
	MentorNote    string                 `json:"mentor_note,omitempty"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// ValidateCategories enforces 1..5 distinct values from the closed set.
func ValidateCategories(categories []Category) error {
	if len(categories) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "at least one category is required")
	}
	if len(categories) > maxCategories {
		return dErrors.New(dErrors.CodeInvalidInput, "at most 5 categories are allowed")
	}
	seen := make(map[Category]struct{}, len(categories))
	for _, c := range categories {
		if _, ok := validCategories[c]; !ok {
			return dErrors.New(dErrors.CodeInvalidInput, "unknown category", "category", string(c))
		}
		if _, dup := seen[c]; dup {
			return dErrors.New(dErrors.CodeInvalidInput, "duplicate category", "category", string(c))
		}
		seen[c] = struct{}{}
	}
	return nil
}

// ValidateNotes enforces the description and mentor note length limits.
func ValidateNotes(description, mentorNote string) error {
	if len([]rune(description)) > maxDescriptionLength {
		return dErrors.New(dErrors.CodeInvalidInput, "description must be at most 100 characters")
	}
	if len([]rune(mentorNote)) > maxMentorNoteLength {
		return dErrors.New(dErrors.CodeInvalidInput, "mentor note must be at most 200 characters")
	}
	return nil
}
