package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

const rideColumns = `
	id, booking_id, customer_id, driver_id,
	pickup_label, drop_label, pickup_lat, pickup_lng, drop_lat, drop_lng,
	vehicle_class, fare, promo_code, discount, code,
	status, requested_at, accepted_at, completed_at, cancelled_at, cancel_reason
`

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	pickupLat, pickupLng := coordinateColumns(ride.Pickup)
	dropLat, dropLng := coordinateColumns(ride.Drop)

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.BookingID,
		ride.CustomerID,
		nullString(ride.DriverID),
		ride.PickupLabel,
		ride.DropLabel,
		pickupLat,
		pickupLng,
		dropLat,
		dropLng,
		ride.VehicleClass,
		ride.Fare,
		nullString(ride.PromoCode),
		ride.Discount,
		nullString(ride.Code),
		ride.Status,
		ride.RequestedAt,
		nullTime(ride.AcceptedAt),
		nullTime(ride.CompletedAt),
		nullTime(ride.CancelledAt),
		nullString(ride.CancelReason),
	)

	return err
}

// GetByBookingID retrieves a ride by its external booking identifier.
func (r *RideRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE booking_id = $1`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, bookingID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ride, nil
}

// GetByCustomerID retrieves all rides for a customer, newest first.
func (r *RideRepository) GetByCustomerID(ctx context.Context, customerID string) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE customer_id = $1 ORDER BY requested_at DESC`
	return r.queryRides(ctx, query, customerID)
}

// GetByStatus retrieves all rides currently in the given status.
func (r *RideRepository) GetByStatus(ctx context.Context, status domain.RideStatus) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE status = $1 ORDER BY requested_at ASC`
	return r.queryRides(ctx, query, status)
}

// Update updates an existing ride.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	query := `
		UPDATE rides
		SET driver_id = $1, fare = $2, promo_code = $3, discount = $4, code = $5,
		    status = $6, accepted_at = $7, completed_at = $8, cancelled_at = $9, cancel_reason = $10
		WHERE booking_id = $11
	`

	result, err := r.q.ExecContext(ctx, query,
		nullString(ride.DriverID),
		ride.Fare,
		nullString(ride.PromoCode),
		ride.Discount,
		nullString(ride.Code),
		ride.Status,
		nullTime(ride.AcceptedAt),
		nullTime(ride.CompletedAt),
		nullTime(ride.CancelledAt),
		nullString(ride.CancelReason),
		ride.BookingID,
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

func (r *RideRepository) queryRides(ctx context.Context, query string, args ...any) ([]*domain.Ride, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var driverID, promoCode, code, cancelReason sql.NullString
	var pickupLat, pickupLng, dropLat, dropLng sql.NullFloat64
	var acceptedAt, completedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&ride.ID,
		&ride.BookingID,
		&ride.CustomerID,
		&driverID,
		&ride.PickupLabel,
		&ride.DropLabel,
		&pickupLat,
		&pickupLng,
		&dropLat,
		&dropLng,
		&ride.VehicleClass,
		&ride.Fare,
		&promoCode,
		&ride.Discount,
		&code,
		&ride.Status,
		&ride.RequestedAt,
		&acceptedAt,
		&completedAt,
		&cancelledAt,
		&cancelReason,
	)
	if err != nil {
		return nil, err
	}

	ride.DriverID = driverID.String
	ride.PromoCode = promoCode.String
	ride.Code = code.String
	ride.CancelReason = cancelReason.String
	ride.Pickup = coordinateFromColumns(pickupLat, pickupLng)
	ride.Drop = coordinateFromColumns(dropLat, dropLng)
	if acceptedAt.Valid {
		ride.AcceptedAt = acceptedAt.Time
	}
	if completedAt.Valid {
		ride.CompletedAt = completedAt.Time
	}
	if cancelledAt.Valid {
		ride.CancelledAt = cancelledAt.Time
	}

	return &ride, nil
}
