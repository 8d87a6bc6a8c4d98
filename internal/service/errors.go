package service

import "errors"

var (
	// ErrInvalidCustomerID is returned when the customer id is empty.
	ErrInvalidCustomerID = errors.New("invalid customer id")

	// ErrInvalidVehicleClass is returned when the vehicle class is missing
	// or not one of the known classes.
	ErrInvalidVehicleClass = errors.New("invalid vehicle class")

	// ErrInvalidBookingID is returned when the booking id is empty.
	ErrInvalidBookingID = errors.New("invalid booking id")

	// ErrInvalidDriverID is returned when the driver id is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidLocation is returned when coordinates are out of range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrRideAlreadyResolved is returned when a transition's precondition
	// fails because the ride has moved past the expected status. Callers
	// get the current status wrapped around this sentinel.
	ErrRideAlreadyResolved = errors.New("ride already resolved")

	// ErrRideNotInProgress is returned when completing a ride that has not
	// passed the start-code gate.
	ErrRideNotInProgress = errors.New("ride not in progress")

	// ErrDriverUnavailable is returned when a driver tries to accept a ride
	// while already bound to another one, or while a concurrent assignment
	// holds the driver's lock.
	ErrDriverUnavailable = errors.New("driver unavailable")

	// ErrMalformedCode is returned before any state is touched when the
	// submitted start code is not exactly 4 digits.
	ErrMalformedCode = errors.New("start code must be exactly 4 digits")

	// ErrInvalidCode is returned when the start code does not match, or the
	// ride is not awaiting verification.
	ErrInvalidCode = errors.New("incorrect start code")

	// ErrPromoInvalid is returned when a promo code is inactive, expired,
	// or at its usage limit.
	ErrPromoInvalid = errors.New("promo code is not valid")

	// ErrInvalidFare is returned when a promo is applied to a non-positive
	// fare.
	ErrInvalidFare = errors.New("invalid fare")
)
