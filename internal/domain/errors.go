package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrNotFound      = errors.New("domain: not found")
	ErrConflict      = errors.New("domain: conflict")
	ErrForbidden     = errors.New("domain: forbidden")
	ErrInvalidStatus = errors.New("domain: status is not a board column")
	ErrInvalidOrder  = errors.New("domain: order must be a finite number")
	ErrInvalidTask   = errors.New("domain: task title is required")
)
