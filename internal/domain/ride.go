package domain

import (
	"strings"
	"time"
)

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusRequested  RideStatus = "REQUESTED"
	RideStatusAccepted   RideStatus = "ACCEPTED"
	RideStatusInProgress RideStatus = "IN_PROGRESS"
	RideStatusCompleted  RideStatus = "COMPLETED"
	RideStatusCancelled  RideStatus = "CANCELLED"
)

// Terminal reports whether no further transition is possible from the status.
func (s RideStatus) Terminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

// VehicleClass represents the requested vehicle category.
type VehicleClass string

const (
	VehicleShare VehicleClass = "Share"
	VehicleBike  VehicleClass = "Bike"
	VehicleAuto  VehicleClass = "Auto"
	VehicleCar   VehicleClass = "Car"
)

// ParseVehicleClass matches a vehicle class case-insensitively. Unknown or
// empty input returns ok=false with the input preserved in canonical-cased
// form where possible.
func ParseVehicleClass(s string) (VehicleClass, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "share":
		return VehicleShare, true
	case "bike":
		return VehicleBike, true
	case "auto":
		return VehicleAuto, true
	case "car":
		return VehicleCar, true
	}
	return VehicleClass(strings.TrimSpace(s)), false
}

// Equal compares vehicle classes case-insensitively.
func (v VehicleClass) Equal(other VehicleClass) bool {
	return strings.EqualFold(string(v), string(other))
}

// Ride represents a single booking from request through completion.
//
// BookingID is the externally visible identifier (BK-XXXXXXXX); ID is the
// internal storage key. DriverID is empty until the ride is accepted and
// never reassigned afterwards. Fare is computed once at request time and,
// apart from an explicit promo adjustment before acceptance, never changes.
type Ride struct {
	ID         string
	BookingID  string
	CustomerID string
	DriverID   string

	PickupLabel string
	DropLabel   string
	Pickup      *Coordinate
	Drop        *Coordinate

	VehicleClass VehicleClass
	Fare         float64
	PromoCode    string
	Discount     float64

	// Code is the 4-digit start code generated at acceptance. It is kept on
	// the record for audit; a successful verification moves the ride out of
	// ACCEPTED, which is what makes the code single-use.
	Code string

	Status       RideStatus
	RequestedAt  time.Time
	AcceptedAt   time.Time
	CompletedAt  time.Time
	CancelledAt  time.Time
	CancelReason string
}
