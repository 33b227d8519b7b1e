package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrPartyNotFound indicates no party exists for the given identifier.
	ErrPartyNotFound = errors.New("party not found")

	// ErrBackupFailed indicates a point-in-time export could not be produced.
	ErrBackupFailed = errors.New("backup failed")
)

// PartyError wraps party storage errors with additional context.
type PartyError struct {
	Op      string // Operation being performed (e.g., "Save", "Delete")
	PartyID string // Party ID if applicable
	Err     error  // Underlying error
}

func (e *PartyError) Error() string {
	return fmt.Sprintf("%s operation failed for party %s: %v", e.Op, e.PartyID, e.Err)
}

func (e *PartyError) Unwrap() error {
	return e.Err
}

func (e *PartyError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewPartyError creates a new party error with context.
func NewPartyError(op, partyID string, err error) *PartyError {
	return &PartyError{
		Op:      op,
		PartyID: partyID,
		Err:     err,
	}
}

// IsPartyNotFound checks if an error indicates a party was not found.
func IsPartyNotFound(err error) bool {
	return errors.Is(err, ErrPartyNotFound)
}
