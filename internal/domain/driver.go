package domain

import "time"

// Driver is a driver's presence record: the online/available/location state
// mutated by location reports and by ride lifecycle transitions.
//
// Flags are plain booleans defaulted at construction; a record is never in a
// "null means false, except when it means true" state. The invariants the
// dispatch engine maintains: IsAvailable implies IsOnline, and a driver with
// CurrentRideID set is never available.
type Driver struct {
	ID            string
	Name          string
	VehicleClass  VehicleClass
	VehicleNumber string
	LicenseNumber string

	Rating     float64
	TotalTrips int

	IsOnline    bool
	IsAvailable bool
	IsApproved  bool
	IsSuspended bool

	// Location is nil until the driver's first report.
	Location      *Coordinate
	CurrentRideID string
	LastActiveAt  time.Time
}

// Eligible reports whether the driver can be offered rides at all.
func (d *Driver) Eligible() bool {
	return d.IsApproved && !d.IsSuspended
}

// NewDefaultDriver builds the presence record synthesized when a driver
// accepts a ride before ever registering. Defaults mirror the observed
// product behavior: online, available, Bike, rating 5.0.
func NewDefaultDriver(driverID string) *Driver {
	return &Driver{
		ID:            driverID,
		VehicleClass:  VehicleBike,
		VehicleNumber: "TEMP-" + driverID,
		LicenseNumber: "TEMP-" + driverID,
		Rating:        5.0,
		IsOnline:      true,
		IsAvailable:   true,
		IsApproved:    true,
		LastActiveAt:  time.Now(),
	}
}
