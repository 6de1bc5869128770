package handlers

import (
	"errors"

	"eventhub/internal/status"

	"github.com/pocketbase/pocketbase/apis"
)

// apiError maps a service error onto the matching HTTP error. Gateway
// failures come back as 502 so callers know the outcome is inconclusive and
// a retry or the webhook will settle it.
func apiError(err error) error {
	switch {
	case errors.Is(err, status.ErrValidation):
		return apis.NewBadRequestError(err.Error(), err)

	case errors.Is(err, status.ErrNotFound):
		return apis.NewNotFoundError(err.Error(), err)

	case errors.Is(err, status.ErrAuthorization):
		return apis.NewForbiddenError(err.Error(), err)

	case errors.Is(err, status.ErrInvalidSignature),
		errors.Is(err, status.ErrInvalidToken),
		errors.Is(err, status.ErrExpiredToken):
		return apis.NewBadRequestError(err.Error(), err)

	case errors.Is(err, status.ErrInvalidState):
		return apis.NewApiError(409, err.Error(), err)

	case status.IsGatewayError(err):
		return apis.NewApiError(502, "payment gateway unavailable", err)

	default:
		return apis.NewInternalServerError("internal error", err)
	}
}
