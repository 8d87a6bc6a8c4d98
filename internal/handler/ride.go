package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// RideHandler handles HTTP requests for the ride lifecycle.
type RideHandler struct {
	rideService   *service.RideService
	driverService *service.DriverService
}

// NewRideHandler creates a new RideHandler. driverService may be nil; ride
// responses then omit the assigned driver's details.
func NewRideHandler(rideService *service.RideService, driverService *service.DriverService) *RideHandler {
	return &RideHandler{rideService: rideService, driverService: driverService}
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	BookingID    string             `json:"booking_id"`
	CustomerID   string             `json:"customer_id"`
	DriverID     string             `json:"driver_id,omitempty"`
	Status       string             `json:"status"`
	VehicleClass string             `json:"vehicle_class"`
	Fare         float64            `json:"fare"`
	PromoCode    string             `json:"promo_code,omitempty"`
	Discount     float64            `json:"discount,omitempty"`
	Code         string             `json:"code,omitempty"`
	PickupLabel  string             `json:"pickup_label,omitempty"`
	DropLabel    string             `json:"drop_label,omitempty"`
	Pickup       *domain.Coordinate `json:"pickup,omitempty"`
	Drop         *domain.Coordinate `json:"drop,omitempty"`
	RequestedAt  string             `json:"requested_at"`
	AcceptedAt   string             `json:"accepted_at,omitempty"`
	CompletedAt  string             `json:"completed_at,omitempty"`
	CancelledAt  string             `json:"cancelled_at,omitempty"`
	CancelReason string             `json:"cancel_reason,omitempty"`
	Driver       *RideDriverInfo    `json:"driver,omitempty"`
}

// RideDriverInfo carries the assigned driver's details on a ride response.
type RideDriverInfo struct {
	Name          string  `json:"name,omitempty"`
	VehicleClass  string  `json:"vehicle_class"`
	VehicleNumber string  `json:"vehicle_number,omitempty"`
	Rating        float64 `json:"rating"`
}

func toRideResponse(ride *domain.Ride) RideResponse {
	return RideResponse{
		BookingID:    ride.BookingID,
		CustomerID:   ride.CustomerID,
		DriverID:     ride.DriverID,
		Status:       string(ride.Status),
		VehicleClass: string(ride.VehicleClass),
		Fare:         ride.Fare,
		PromoCode:    ride.PromoCode,
		Discount:     ride.Discount,
		Code:         ride.Code,
		PickupLabel:  ride.PickupLabel,
		DropLabel:    ride.DropLabel,
		Pickup:       ride.Pickup,
		Drop:         ride.Drop,
		RequestedAt:  formatTime(ride.RequestedAt),
		AcceptedAt:   formatTime(ride.AcceptedAt),
		CompletedAt:  formatTime(ride.CompletedAt),
		CancelledAt:  formatTime(ride.CancelledAt),
		CancelReason: ride.CancelReason,
	}
}

// withDriverInfo fills in the assigned driver's details. Lookup failures
// just leave the field empty.
func (h *RideHandler) withDriverInfo(c *gin.Context, resp RideResponse, ride *domain.Ride) RideResponse {
	if h.driverService == nil || ride.DriverID == "" {
		return resp
	}
	driver, err := h.driverService.GetDriver(c.Request.Context(), ride.DriverID)
	if err != nil {
		return resp
	}
	resp.Driver = &RideDriverInfo{
		Name:          driver.Name,
		VehicleClass:  string(driver.VehicleClass),
		VehicleNumber: driver.VehicleNumber,
		Rating:        driver.Rating,
	}
	return resp
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// RequestRideRequest is the HTTP request body for requesting a ride.
type RequestRideRequest struct {
	CustomerID   string             `json:"customer_id" binding:"required"`
	VehicleClass string             `json:"vehicle_class" binding:"required"`
	PickupLabel  string             `json:"pickup_label"`
	DropLabel    string             `json:"drop_label"`
	Pickup       *domain.Coordinate `json:"pickup"`
	Drop         *domain.Coordinate `json:"drop"`
	PromoCode    string             `json:"promo_code"`
}

// RequestRide handles POST /v1/rides
func (h *RideHandler) RequestRide(c *gin.Context) {
	var req RequestRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ride, err := h.rideService.RequestRide(c.Request.Context(), service.RequestRideParams{
		CustomerID:   req.CustomerID,
		VehicleClass: req.VehicleClass,
		PickupLabel:  req.PickupLabel,
		DropLabel:    req.DropLabel,
		Pickup:       req.Pickup,
		Drop:         req.Drop,
		PromoCode:    req.PromoCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRideResponse(ride))
}

// AcceptRideRequest is the HTTP request body for accepting a ride.
type AcceptRideRequest struct {
	DriverID string `json:"driver_id" binding:"required"`
}

// AcceptRide handles POST /v1/rides/:id/accept
func (h *RideHandler) AcceptRide(c *gin.Context) {
	var req AcceptRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ride, err := h.rideService.AcceptRide(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}

	// The start code goes to the customer, not the accepting driver.
	resp := toRideResponse(ride)
	resp.Code = ""
	respondJSON(c, http.StatusOK, h.withDriverInfo(c, resp, ride))
}

// VerifyCodeRequest is the HTTP request body for the start-code check.
type VerifyCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// VerifyStartCode handles POST /v1/rides/:id/verify-code
func (h *RideHandler) VerifyStartCode(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ride, err := h.rideService.VerifyStartCode(c.Request.Context(), c.Param("id"), req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CompleteRide handles POST /v1/rides/:id/complete
func (h *RideHandler) CompleteRide(c *gin.Context) {
	ride, err := h.rideService.CompleteRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CancelRideRequest is the HTTP request body for cancelling a ride.
type CancelRideRequest struct {
	Reason string `json:"reason"`
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	var req CancelRideRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ride, err := h.rideService.CancelRide(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, h.withDriverInfo(c, toRideResponse(ride), ride))
}

// NearbyOpenRides handles GET /v1/rides/available/nearby
func (h *RideHandler) NearbyOpenRides(c *gin.Context) {
	var center *domain.Coordinate
	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr != "" && lngStr != "" {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lng, errLng := strconv.ParseFloat(lngStr, 64)
		if errLat != nil || errLng != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "lat and lng must be numbers"})
			return
		}
		center = &domain.Coordinate{Lat: lat, Lng: lng}
	}

	radiusKm := 0.0
	if radiusStr := c.Query("radius_km"); radiusStr != "" {
		parsed, err := strconv.ParseFloat(radiusStr, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "radius_km must be a number"})
			return
		}
		radiusKm = parsed
	}

	rides, err := h.rideService.NearbyOpenRides(c.Request.Context(), center, radiusKm, c.Query("vehicle_class"))
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]RideResponse, len(rides))
	for i, ride := range rides {
		responses[i] = toRideResponse(ride)
	}
	respondJSON(c, http.StatusOK, gin.H{"rides": responses})
}

// ListCustomerRides handles GET /v1/customers/:id/rides
func (h *RideHandler) ListCustomerRides(c *gin.Context) {
	rides, err := h.rideService.ListCustomerRides(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]RideResponse, len(rides))
	for i, ride := range rides {
		responses[i] = toRideResponse(ride)
	}
	respondJSON(c, http.StatusOK, gin.H{"rides": responses})
}

// ClearPendingRides handles DELETE /v1/customers/:id/pending
func (h *RideHandler) ClearPendingRides(c *gin.Context) {
	cleared, err := h.rideService.ClearPendingRides(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"cleared": cleared})
}

// ApplyPromoRequest is the HTTP request body for applying a promo to a ride.
type ApplyPromoRequest struct {
	Code string `json:"code" binding:"required"`
}

// ApplyPromo handles POST /v1/rides/:id/promo
func (h *RideHandler) ApplyPromo(c *gin.Context) {
	var req ApplyPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ride, err := h.rideService.ApplyPromoToRide(c.Request.Context(), c.Param("id"), req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}
