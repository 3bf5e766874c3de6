package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// so services can translate them into coded domain errors without depending
// on driver details.
//
// These represent factual states about records, not validation failures:
//   - ErrNotFound: record does not exist in the store
//   - ErrAlreadyUsed: a uniqueness constraint rejected the write (second
//     active visit for a guest, duplicate display number)
//   - ErrInvalidState: record is in the wrong state for the operation
//     (closing an already-closed visit)
//   - ErrUnavailable: storage temporarily unreachable; callers may retry
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
