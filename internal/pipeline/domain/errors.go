package domain

import "errors"

var (
	// ErrInvalidTransition is returned when a target status is not part of the enum.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrValidation is returned for missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrUnknownField is returned when a field update names a field that cannot be edited.
	ErrUnknownField = errors.New("unknown field")
	// ErrReplyRequired is returned when an inquiry is moved to replied without any reply.
	ErrReplyRequired = errors.New("inquiry has no replies")
)
