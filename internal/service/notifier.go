package service

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// RideOffer is pushed to each candidate driver when a ride is requested.
type RideOffer struct {
	BookingID    string             `json:"bookingId"`
	CustomerID   string             `json:"customerId"`
	PickupLabel  string             `json:"pickupLabel,omitempty"`
	DropLabel    string             `json:"dropLabel,omitempty"`
	Pickup       *domain.Coordinate `json:"pickup,omitempty"`
	Drop         *domain.Coordinate `json:"drop,omitempty"`
	VehicleClass string             `json:"vehicleClass"`
	Fare         float64            `json:"fare"`
	RequestedAt  time.Time          `json:"requestedAt"`
}

// RideUpdate is pushed to the customer (and, after assignment, the driver)
// whenever a ride changes state. Code is only set on the acceptance update
// to the customer.
type RideUpdate struct {
	BookingID string `json:"bookingId"`
	Status    string `json:"status"`
	DriverID  string `json:"driverId,omitempty"`
	Code      string `json:"code,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// EmergencyAlert fans out to responders when a rider triggers an SOS.
type EmergencyAlert struct {
	AlertID    string             `json:"alertId"`
	CustomerID string             `json:"customerId"`
	BookingID  string             `json:"bookingId,omitempty"`
	Location   *domain.Coordinate `json:"location,omitempty"`
	Message    string             `json:"message,omitempty"`
	RaisedAt   time.Time          `json:"raisedAt"`
}

// Notifier delivers push messages to connected clients. Implementations
// must be fire-and-forget: a slow or absent recipient never blocks the
// caller and delivery failures are not surfaced as errors.
type Notifier interface {
	PushOfferToDriver(ctx context.Context, driverID string, offer RideOffer)
	PushRideUpdate(ctx context.Context, userID string, update RideUpdate)
	PushEmergency(ctx context.Context, alert EmergencyAlert)
}
