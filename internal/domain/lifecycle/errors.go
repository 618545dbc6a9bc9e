package lifecycle

import "errors"

var (
	// ErrTransitionNotPermitted is returned when a trigger is not allowed from the current status
	ErrTransitionNotPermitted = errors.New("transition not permitted")

	// ErrGuardFailed is returned when every candidate transition's guard rejected the trigger
	ErrGuardFailed = errors.New("guard condition failed")
)
