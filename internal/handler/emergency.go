package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// EmergencyHandler handles SOS requests.
type EmergencyHandler struct {
	emergencyService *service.EmergencyService
}

// NewEmergencyHandler creates a new EmergencyHandler.
func NewEmergencyHandler(emergencyService *service.EmergencyService) *EmergencyHandler {
	return &EmergencyHandler{emergencyService: emergencyService}
}

// RaiseAlertRequest is the HTTP request body for an SOS. Location accepts
// the object and array coordinate encodings.
type RaiseAlertRequest struct {
	CustomerID string             `json:"customer_id" binding:"required"`
	BookingID  string             `json:"booking_id"`
	Location   *domain.Coordinate `json:"location"`
	Message    string             `json:"message"`
}

// RaiseAlert handles POST /v1/emergency/sos
func (h *EmergencyHandler) RaiseAlert(c *gin.Context) {
	var req RaiseAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	alert, err := h.emergencyService.RaiseAlert(c.Request.Context(), service.RaiseAlertParams{
		CustomerID: req.CustomerID,
		BookingID:  req.BookingID,
		Location:   req.Location,
		Message:    req.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, alert)
}
