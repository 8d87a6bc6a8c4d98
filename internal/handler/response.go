package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidCustomerID),
		errors.Is(err, service.ErrInvalidVehicleClass),
		errors.Is(err, service.ErrInvalidBookingID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrMalformedCode),
		errors.Is(err, service.ErrInvalidCode),
		errors.Is(err, service.ErrInvalidFare),
		errors.Is(err, service.ErrPromoInvalid),
		errors.Is(err, domain.ErrBadCoordinate):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrRideAlreadyResolved),
		errors.Is(err, service.ErrRideNotInProgress),
		errors.Is(err, service.ErrDriverUnavailable):
		return http.StatusConflict

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
