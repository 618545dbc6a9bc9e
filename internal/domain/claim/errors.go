package claim

import "errors"

var (
	// ErrNotFound is returned when the referenced claim or approver is unknown
	ErrNotFound = errors.New("claim not found")

	// ErrForbidden is returned when the actor lacks the role or ownership for the action
	ErrForbidden = errors.New("actor not permitted")

	// ErrValidation is returned when field-level or remark-required constraints are violated
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition is returned when the action is not legal from the current status
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidStateForEdit is returned when a claim outside Draft is edited
	ErrInvalidStateForEdit = errors.New("claim not editable in current status")

	// ErrConfiguration is returned when no approver chain can be resolved for the claim's project
	ErrConfiguration = errors.New("no approver chain configured")

	// ErrConcurrentModification is returned when a concurrent writer won the version race.
	// Callers are expected to reload and retry.
	ErrConcurrentModification = errors.New("claim modified concurrently")
)
