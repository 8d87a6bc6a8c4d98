package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

const driverColumns = `
	id, name, vehicle_class, vehicle_number, license_number,
	rating, total_trips, is_online, is_available, is_approved, is_suspended,
	current_lat, current_lng, current_ride_id, last_active_at
`

// Create adds a new presence record.
func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	query := `
		INSERT INTO drivers (` + driverColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	lat, lng := coordinateColumns(driver.Location)

	_, err := r.q.ExecContext(ctx, query,
		driver.ID,
		driver.Name,
		driver.VehicleClass,
		driver.VehicleNumber,
		driver.LicenseNumber,
		driver.Rating,
		driver.TotalTrips,
		driver.IsOnline,
		driver.IsAvailable,
		driver.IsApproved,
		driver.IsSuspended,
		lat,
		lng,
		nullString(driver.CurrentRideID),
		driver.LastActiveAt,
	)

	return err
}

// GetByID retrieves a presence record by driver ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1`

	driver, err := scanDriver(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return driver, nil
}

// GetOnlineAvailable retrieves all drivers that are online and available.
func (r *DriverRepository) GetOnlineAvailable(ctx context.Context) ([]*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE is_online AND is_available`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		driver, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}
	return drivers, rows.Err()
}

// Update updates an existing presence record.
func (r *DriverRepository) Update(ctx context.Context, driver *domain.Driver) error {
	query := `
		UPDATE drivers
		SET name = $1, vehicle_class = $2, vehicle_number = $3, license_number = $4,
		    rating = $5, total_trips = $6, is_online = $7, is_available = $8,
		    is_approved = $9, is_suspended = $10, current_lat = $11, current_lng = $12,
		    current_ride_id = $13, last_active_at = $14
		WHERE id = $15
	`

	lat, lng := coordinateColumns(driver.Location)

	result, err := r.q.ExecContext(ctx, query,
		driver.Name,
		driver.VehicleClass,
		driver.VehicleNumber,
		driver.LicenseNumber,
		driver.Rating,
		driver.TotalTrips,
		driver.IsOnline,
		driver.IsAvailable,
		driver.IsApproved,
		driver.IsSuspended,
		lat,
		lng,
		nullString(driver.CurrentRideID),
		driver.LastActiveAt,
		driver.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanDriver(row rowScanner) (*domain.Driver, error) {
	var driver domain.Driver
	var lat, lng sql.NullFloat64
	var currentRideID sql.NullString

	err := row.Scan(
		&driver.ID,
		&driver.Name,
		&driver.VehicleClass,
		&driver.VehicleNumber,
		&driver.LicenseNumber,
		&driver.Rating,
		&driver.TotalTrips,
		&driver.IsOnline,
		&driver.IsAvailable,
		&driver.IsApproved,
		&driver.IsSuspended,
		&lat,
		&lng,
		&currentRideID,
		&driver.LastActiveAt,
	)
	if err != nil {
		return nil, err
	}

	driver.Location = coordinateFromColumns(lat, lng)
	driver.CurrentRideID = currentRideID.String

	return &driver, nil
}
