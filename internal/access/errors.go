package access

import "errors"

// Sentinel errors for caregiver operations. Callers match with errors.Is.
var (
	// ErrNotFound indicates the requested caregiver does not exist.
	ErrNotFound = errors.New("access: caregiver not found")

	// ErrDuplicateID indicates a caregiver with the same ID already exists.
	ErrDuplicateID = errors.New("access: duplicate caregiver id")

	// ErrValidation indicates caregiver fields failed validation.
	ErrValidation = errors.New("access: validation failed")

	// ErrInvalidCapability indicates an unknown capability value.
	ErrInvalidCapability = errors.New("access: invalid capability")

	// ErrInvalidTransition indicates a lifecycle change the state machine
	// forbids, such as reactivating an inactive caregiver.
	ErrInvalidTransition = errors.New("access: invalid status transition")
)

// Denial reasons surfaced in CommandResult.Message. Fixed strings so
// clients can rely on them.
const (
	ReasonNotActive   = "caregiver not active"
	ReasonNoControl   = "missing control permission"
	ReasonNoEmergency = "missing emergency permission"
)
