package repository

import (
	"context"

	"dispatch/internal/domain"
)

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByBookingID retrieves a ride by its external booking identifier.
	GetByBookingID(ctx context.Context, bookingID string) (*domain.Ride, error)

	// GetByCustomerID retrieves all rides for a customer, newest first.
	GetByCustomerID(ctx context.Context, customerID string) ([]*domain.Ride, error)

	// GetByStatus retrieves all rides currently in the given status.
	GetByStatus(ctx context.Context, status domain.RideStatus) ([]*domain.Ride, error)

	// Update updates an existing ride.
	Update(ctx context.Context, ride *domain.Ride) error
}
