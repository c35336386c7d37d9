package handler

import (
	"errors"
	"net/http"

	"medichat/internal/transport/httpdto"
	medichat_errors "medichat/pkg/errors"

	"github.com/gin-gonic/gin"
)

// respondError maps domain sentinel errors onto the HTTP surface in one
// place. Validation and authorization failures carry their specific
// message; everything unrecognized surfaces as a generic retryable failure.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, medichat_errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
	case errors.Is(err, medichat_errors.ErrForbidden):
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("forbidden", "FORBIDDEN"))
	case errors.Is(err, medichat_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("not found", "NOT_FOUND"))
	case errors.Is(err, medichat_errors.ErrInvalidInput),
		errors.Is(err, medichat_errors.ErrMessageTooOld),
		errors.Is(err, medichat_errors.ErrSessionInactive):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "VALIDATION_ERROR"))
	case errors.Is(err, medichat_errors.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("rate limited", "RATE_LIMITED"))
	case errors.Is(err, medichat_errors.ErrServiceUnavailable):
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("temporarily unavailable, retry", "TRANSIENT_ERROR"))
	default:
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
	}
}
