package redis

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// LocationStoreInterface defines the interface for the driver geo index.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, driverID string, loc domain.Coordinate) error
	FindNearbyDrivers(ctx context.Context, center domain.Coordinate, radiusKm float64) ([]DriverLocation, error)
	RemoveLocation(ctx context.Context, driverID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireRideLock(ctx context.Context, bookingID string, ttl time.Duration) (bool, error)
	ReleaseRideLock(ctx context.Context, bookingID string) error
	AcquireDriverLock(ctx context.Context, driverID string, ttl time.Duration) (bool, error)
	ReleaseDriverLock(ctx context.Context, driverID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
)
