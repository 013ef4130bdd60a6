package device

import "errors"

// Sentinel errors for device operations. Callers match with errors.Is.
var (
	// ErrNotFound indicates the requested device does not exist.
	ErrNotFound = errors.New("device: not found")

	// ErrDuplicateID indicates a device with the same ID already exists.
	ErrDuplicateID = errors.New("device: duplicate id")

	// ErrInvalidType indicates an unknown device type value.
	ErrInvalidType = errors.New("device: invalid type")

	// ErrValidation indicates a device failed validation checks.
	ErrValidation = errors.New("device: validation failed")

	// ErrEmptyPatch indicates an update carried no changes.
	ErrEmptyPatch = errors.New("device: empty patch")
)
