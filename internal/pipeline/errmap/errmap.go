// Package errmap translates store, policy and lifecycle errors into the
// apperr taxonomy served to callers.
package errmap

import (
	"context"
	"errors"

	"marketplace_backend/internal/pipeline/access"
	"marketplace_backend/internal/pipeline/domain"
	"marketplace_backend/internal/pipeline/repository"
	"marketplace_backend/platform/apperr"
)

const (
	msgNotFound    = "record not found"
	msgForbidden   = "you are not allowed to perform this action"
	msgConflict    = "record was modified by someone else, reload and try again"
	msgTimeout     = "the store did not answer in time"
	msgUnavailable = "the store is unavailable"
)

// Map returns err as an *apperr.Error. Errors that already carry a kind pass
// through; anything unrecognized is reported as an upstream failure.
func Map(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, access.ErrNotVisible):
		return apperr.Wrap(apperr.KindNotFound, msgNotFound, err)
	case errors.Is(err, access.ErrForbidden):
		return apperr.Wrap(apperr.KindForbidden, msgForbidden, err)
	case errors.Is(err, repository.ErrConflict):
		return apperr.Wrap(apperr.KindConflict, msgConflict, err)
	case errors.Is(err, domain.ErrInvalidTransition):
		return apperr.Wrap(apperr.KindInvalidTransition, err.Error(), err)
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrUnknownField),
		errors.Is(err, domain.ErrReplyRequired):
		return apperr.Wrap(apperr.KindValidation, err.Error(), err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.Unavailable(msgTimeout, err)
	default:
		return apperr.Unavailable(msgUnavailable, err)
	}
}

// Op maps err and tags it with the failing operation.
func Op(op string, err error) error {
	mapped := Map(err)
	var appErr *apperr.Error
	if errors.As(mapped, &appErr) && appErr.Op == "" {
		appErr.Op = op
	}
	return mapped
}
