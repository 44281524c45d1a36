package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/papertrade/internal/domain"
	"go.uber.org/zap"
)

const internalErrorMessage = "internal server error"

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

// statusFor maps an error kind to its HTTP status. Duplicate identities answer
// 400 to match existing clients.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {error, request_id}. Unclassified errors are logged and hidden from the caller.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	requestID := c.GetString(RequestIDContextKey)
	status := statusFor(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("api error",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		msg = internalErrorMessage
	}

	c.JSON(status, errorResponse{Error: msg, RequestID: requestID})
}
