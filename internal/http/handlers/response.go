// Package handlers provides HTTP handler implementations for the dashboard API.
//
// This file defines the response utilities shared by all endpoints: the
// error envelope, the service-error mapping and success helpers.
//
// Conventions:
//   - All error responses carry an ErrorResponse with a stable `code`.
//   - `fail()` centralizes error formatting; 5xx responses are logged with
//     the request-scoped logger.
//   - `failErr()` maps service and notification errors onto status + code.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "client not found"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-shipment-tracker/internal/http/middleware"
	"github.com/tbourn/go-shipment-tracker/internal/notify"
	"github.com/tbourn/go-shipment-tracker/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"client not found"`
	// Field names the offending input field for validation_failed.
	Field string `json:"field,omitempty" example:"phone"`
}

// fail aborts the request with a structured error and logs server-side errors.
func fail(c *gin.Context, status int, code, msg string) {
	failField(c, status, code, msg, "")
}

func failField(c *gin.Context, status int, code, msg, field string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
		Field:     field,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for the router's NoRoute/NoMethod.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failErr translates an error returned by the tracker, the settings service
// or the dispatcher.
func failErr(c *gin.Context, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		failField(c, http.StatusBadRequest, ErrCodeValidation, ve.Error(), ve.Field)
	case errors.Is(err, services.ErrClientNotFound), errors.Is(err, services.ErrOrderNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrTransitionRejected):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, notify.ErrNotificationsDisabled):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrBackendUnavailable):
		c.Header("Retry-After", "5")
		fail(c, http.StatusServiceUnavailable, ErrCodeBackendUnavailable, "backend unavailable, retry later")
	case errors.Is(err, notify.ErrInvalidPhone):
		fail(c, http.StatusUnprocessableEntity, ErrCodeNotificationFailed, err.Error())
	case errors.Is(err, notify.ErrHandoff):
		fail(c, http.StatusBadGateway, ErrCodeNotificationFailed, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
