package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// DriverHandler handles HTTP requests for driver presence.
type DriverHandler struct {
	driverService *service.DriverService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService) *DriverHandler {
	return &DriverHandler{driverService: driverService}
}

// DriverResponse is the HTTP representation of a driver presence record.
type DriverResponse struct {
	DriverID      string             `json:"driver_id"`
	Name          string             `json:"name,omitempty"`
	VehicleClass  string             `json:"vehicle_class"`
	VehicleNumber string             `json:"vehicle_number,omitempty"`
	Rating        float64            `json:"rating"`
	TotalTrips    int                `json:"total_trips"`
	IsOnline      bool               `json:"is_online"`
	IsAvailable   bool               `json:"is_available"`
	Location      *domain.Coordinate `json:"location,omitempty"`
	CurrentRideID string             `json:"current_ride_id,omitempty"`
	LastActiveAt  string             `json:"last_active_at,omitempty"`
}

func toDriverResponse(driver *domain.Driver) DriverResponse {
	return DriverResponse{
		DriverID:      driver.ID,
		Name:          driver.Name,
		VehicleClass:  string(driver.VehicleClass),
		VehicleNumber: driver.VehicleNumber,
		Rating:        driver.Rating,
		TotalTrips:    driver.TotalTrips,
		IsOnline:      driver.IsOnline,
		IsAvailable:   driver.IsAvailable,
		Location:      driver.Location,
		CurrentRideID: driver.CurrentRideID,
		LastActiveAt:  formatTime(driver.LastActiveAt),
	}
}

// GetDriver handles GET /v1/drivers/:id
func (h *DriverHandler) GetDriver(c *gin.Context) {
	driver, err := h.driverService.GetDriver(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// ReportLocationRequest is the HTTP request body for a location report.
// The flag fields are optional; omitting one leaves it unchanged.
type ReportLocationRequest struct {
	Location    domain.Coordinate `json:"location" binding:"required"`
	IsOnline    *bool             `json:"is_online"`
	IsAvailable *bool             `json:"is_available"`
}

// ReportLocation handles POST /v1/drivers/:id/location
func (h *DriverHandler) ReportLocation(c *gin.Context) {
	var req ReportLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	driver, err := h.driverService.ReportLocation(c.Request.Context(), c.Param("id"), service.LocationReport{
		Location:    req.Location,
		IsOnline:    req.IsOnline,
		IsAvailable: req.IsAvailable,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// SetOnline handles POST /v1/drivers/:id/online
func (h *DriverHandler) SetOnline(c *gin.Context) {
	driver, err := h.driverService.SetOnline(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// SetOffline handles POST /v1/drivers/:id/offline
func (h *DriverHandler) SetOffline(c *gin.Context) {
	driver, err := h.driverService.SetOffline(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}
