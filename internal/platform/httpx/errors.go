// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/askcraft/askcraft-web/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Unexpected errors are logged and reported without detail.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		ValidationProblem(w, verr.Fields)
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", shared.UserSafeMessage(err))
	case shared.IsAuthFailure(err):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", "")
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrTooManyAttempts):
		Problem(w, http.StatusTooManyRequests, "Too Many Requests", shared.UserSafeMessage(err))
	default:
		if logger != nil {
			logger.Error("unexpected error", slog.Any("error", err))
		}
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
