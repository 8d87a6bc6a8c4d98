package repository

import (
	"context"

	"dispatch/internal/domain"
)

// DriverRepository defines the persistence operations for driver presence
// records.
type DriverRepository interface {
	// Create adds a new presence record.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a presence record by driver ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// GetOnlineAvailable retrieves all drivers that are both online and
	// available, regardless of vehicle class.
	GetOnlineAvailable(ctx context.Context) ([]*domain.Driver, error)

	// Update updates an existing presence record.
	Update(ctx context.Context, driver *domain.Driver) error
}
