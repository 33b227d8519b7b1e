// Package orchestrator coordinates party planning workflows: it admits new
// parties, fans execution requests out to the agents, and finalizes the plan
// once every required agent has reported.
package orchestrator

import (
	"errors"
	"fmt"
)

// Validation errors indicate client mistakes (4xx responses).
var (
	ErrNoInputs      = errors.New("party requires at least one non-empty input")
	ErrEmptyFeedback = errors.New("feedback content cannot be empty")
)

// OrchestratorError wraps orchestration failures with operation context.
type OrchestratorError struct {
	Op      string
	PartyID string
	Err     error
}

func (e *OrchestratorError) Error() string {
	if e.PartyID != "" {
		return fmt.Sprintf("%s: party %s: %v", e.Op, e.PartyID, e.Err)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OrchestratorError) Unwrap() error {
	return e.Err
}

func (e *OrchestratorError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNoInputs) ||
		errors.Is(err, ErrEmptyFeedback)
}
