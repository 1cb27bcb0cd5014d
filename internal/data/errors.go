package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	ErrTokenRequired  = errors.New("token is required")
	ErrEmailRequired  = errors.New("email is required")
	ErrIDRequired     = errors.New("id is required")
	ErrStatusInvalid  = errors.New("invalid user status")
	ErrCreatorMissing = errors.New("created_by is required")
)
