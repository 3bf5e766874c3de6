// Package identity issues the human-presentable guest display numbers:
// two-digit year plus a three-digit zero-padded yearly sequence (year 2025,
// sequence 7 encodes as 25007; the year's first guest gets 25000).
package identity

import (
	"context"
	"errors"

	"genkan/internal/guest/models"
	dErrors "genkan/pkg/domain-errors"
	"genkan/pkg/platform/sentinel"
)

const (
	// maxSequence is the largest yearly sequence the three digits can hold.
	maxSequence = 999
	// maxVerifyAttempts bounds the generate-then-verify loop when the
	// counter has drifted behind manually inserted display numbers.
	maxVerifyAttempts = 3
)

// SequenceSource is the slice of guest storage the issuer needs.
type SequenceSource interface {
	NextSequenceForYear(ctx context.Context, year int) (int, error)
	FindByDisplayID(ctx context.Context, displayID int) (*models.Guest, error)
}

// Issuer allocates display numbers scoped by calendar year.
//
// The counter behind NextSequenceForYear is monotonic and survives guest
// deletion, so numbers are never reused. Each draw is verified against
// existing guests before use; the database uniqueness constraint on
// display_id remains the final arbiter, so a caller that still loses the
// race retries the whole create operation.
type Issuer struct {
	source SequenceSource
}

func New(source SequenceSource) *Issuer {
	return &Issuer{source: source}
}

// Compose builds a display number from a year and a yearly sequence.
func Compose(year, sequence int) int {
	return (year%100)*1000 + sequence
}

// Sequence extracts the yearly sequence from a display number.
func Sequence(displayID int) int {
	return displayID % 1000
}

// Issue returns the next unused display number for the year. Sequences run
// 0..999, so a year holds 1000 numbers; the next draw fails with
// SEQUENCE_LIMIT_EXCEEDED.
func (i *Issuer) Issue(ctx context.Context, year int) (int, error) {
	for attempt := 0; attempt < maxVerifyAttempts; attempt++ {
		sequence, err := i.source.NextSequenceForYear(ctx, year)
		if err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to advance display number sequence")
		}
		if sequence > maxSequence {
			return 0, dErrors.New(dErrors.CodeSequenceLimitExceeded,
				"yearly display number sequence exhausted", "year", year)
		}
		displayID := Compose(year, sequence)
		_, err = i.source.FindByDisplayID(ctx, displayID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return displayID, nil
		}
		if err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify display number")
		}
		// Something already holds the number: the counter drifted behind
		// a manual insert. Draw again a bounded number of times.
	}
	return 0, dErrors.New(dErrors.CodeDisplayIDGenerationFail,
		"could not allocate a unique display number", "year", year)
}
