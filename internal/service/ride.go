package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dispatch/internal/domain"
	"dispatch/internal/geo"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
	"dispatch/internal/repository/postgres"
)

// rideLockTTL bounds how long a status transition can hold a ride's
// try-lock before it self-expires.
const rideLockTTL = 10 * time.Second

// driverLockTTL bounds how long an assignment or release can hold a
// driver's try-lock before it self-expires.
const driverLockTTL = 10 * time.Second

// RideService owns the ride lifecycle: request, guarded accept, start-code
// verification, completion and cancellation. Every status transition holds
// the ride's distributed try-lock, so each ride sees at most one
// read-check-write at a time; driver availability mutations additionally
// hold the driver's try-lock. The acceptance race is committed
// transactionally together with the winning driver's availability flip.
type RideService struct {
	db         *sql.DB
	rideRepo   repository.RideRepository
	driverRepo repository.DriverRepository
	lockStore  redis.LockStoreInterface
	matching   *MatchingEngine
	fare       *FareCalculator
	promos     *PromoLedger
	notifier   Notifier
	log        *logrus.Logger
}

// NewRideService creates a new RideService. db, lockStore, matching, promos
// and notifier may be nil; the corresponding behavior (transactional
// commits, lock serialization, dispatch fan-out, promo support) degrades
// gracefully.
func NewRideService(
	db *sql.DB,
	rideRepo repository.RideRepository,
	driverRepo repository.DriverRepository,
	lockStore redis.LockStoreInterface,
	matching *MatchingEngine,
	fare *FareCalculator,
	promos *PromoLedger,
	notifier Notifier,
	log *logrus.Logger,
) *RideService {
	if fare == nil {
		fare = NewFareCalculator(DefaultRatePerKm, log)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RideService{
		db:         db,
		rideRepo:   rideRepo,
		driverRepo: driverRepo,
		lockStore:  lockStore,
		matching:   matching,
		fare:       fare,
		promos:     promos,
		notifier:   notifier,
		log:        log,
	}
}

// RequestRideParams holds the input for a new ride request.
type RequestRideParams struct {
	CustomerID   string
	VehicleClass string
	PickupLabel  string
	DropLabel    string
	Pickup       *domain.Coordinate
	Drop         *domain.Coordinate
	PromoCode    string
}

// RequestRide validates the request, quotes the fare, persists the ride in
// REQUESTED and fans the offer out to matching drivers. The fan-out is
// fire-and-forget; the booking succeeds even when nobody is listening.
func (s *RideService) RequestRide(ctx context.Context, params RequestRideParams) (*domain.Ride, error) {
	if strings.TrimSpace(params.CustomerID) == "" {
		return nil, ErrInvalidCustomerID
	}
	class, ok := domain.ParseVehicleClass(params.VehicleClass)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVehicleClass, params.VehicleClass)
	}
	if err := validateOptionalCoordinate(params.Pickup); err != nil {
		return nil, err
	}
	if err := validateOptionalCoordinate(params.Drop); err != nil {
		return nil, err
	}

	now := time.Now()
	ride := &domain.Ride{
		ID:           uuid.New().String(),
		BookingID:    newBookingID(),
		CustomerID:   params.CustomerID,
		PickupLabel:  params.PickupLabel,
		DropLabel:    params.DropLabel,
		Pickup:       params.Pickup,
		Drop:         params.Drop,
		VehicleClass: class,
		Fare:         s.fare.Quote(class, params.Pickup, params.Drop),
		Status:       domain.RideStatusRequested,
		RequestedAt:  now,
	}

	if params.PromoCode != "" {
		if s.promos == nil {
			return nil, ErrPromoInvalid
		}
		applied, err := s.promos.Apply(ctx, params.PromoCode, ride.Fare)
		if err != nil {
			return nil, err
		}
		ride.PromoCode = applied.Code
		ride.Discount = applied.Discount
		ride.Fare = applied.FinalFare
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id":    ride.BookingID,
		"customer_id":   ride.CustomerID,
		"vehicle_class": ride.VehicleClass,
		"fare":          ride.Fare,
	}).Info("ride requested")

	go s.dispatchOffers(ride)

	return ride, nil
}

// dispatchOffers pushes the new ride to matching drivers. It runs detached
// from the request: failures are logged, never surfaced.
func (s *RideService) dispatchOffers(ride *domain.Ride) {
	if s.matching == nil || s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	candidates, err := s.matching.Candidates(ctx, CandidateRequest{
		Pickup:       ride.Pickup,
		VehicleClass: ride.VehicleClass,
	})
	if err != nil {
		s.log.WithError(err).WithField("booking_id", ride.BookingID).
			Warn("candidate lookup failed, offer not dispatched")
		return
	}

	offer := RideOffer{
		BookingID:    ride.BookingID,
		CustomerID:   ride.CustomerID,
		PickupLabel:  ride.PickupLabel,
		DropLabel:    ride.DropLabel,
		Pickup:       ride.Pickup,
		Drop:         ride.Drop,
		VehicleClass: string(ride.VehicleClass),
		Fare:         ride.Fare,
		RequestedAt:  ride.RequestedAt,
	}
	for _, driverID := range candidates {
		s.notifier.PushOfferToDriver(ctx, driverID, offer)
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": ride.BookingID,
		"candidates": len(candidates),
	}).Info("ride offer dispatched")
}

// AcceptRide assigns the ride to the driver. Concurrent accepts for the
// same booking produce exactly one winner; the rest get
// ErrRideAlreadyResolved. A driver already bound to another ride gets
// ErrDriverUnavailable. A repeated accept by the driver already assigned
// is a no-op success. Unknown drivers get a presence record created on the
// spot.
func (s *RideService) AcceptRide(ctx context.Context, bookingID, driverID string) (*domain.Ride, error) {
	if strings.TrimSpace(bookingID) == "" {
		return nil, ErrInvalidBookingID
	}
	if strings.TrimSpace(driverID) == "" {
		return nil, ErrInvalidDriverID
	}

	releaseRide, err := s.lockRide(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer releaseRide()

	ride, err := s.rideRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if ride.Status == domain.RideStatusAccepted && ride.DriverID == driverID {
		return ride, nil
	}
	if ride.Status != domain.RideStatusRequested {
		return nil, fmt.Errorf("%w: ride is %s", ErrRideAlreadyResolved, ride.Status)
	}

	releaseDriver, err := s.lockDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	defer releaseDriver()

	driver, driverIsNew, err := s.driverForAccept(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if driver.CurrentRideID != "" {
		return nil, fmt.Errorf("%w: already on ride %s", ErrDriverUnavailable, driver.CurrentRideID)
	}

	now := time.Now()
	ride.DriverID = driverID
	ride.Status = domain.RideStatusAccepted
	ride.AcceptedAt = now
	ride.Code = newStartCode()

	driver.IsAvailable = false
	driver.CurrentRideID = ride.BookingID
	driver.LastActiveAt = now

	if err := s.commitAccept(ctx, ride, driver, driverIsNew); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": ride.BookingID,
		"driver_id":  driverID,
	}).Info("ride accepted")

	if s.notifier != nil {
		s.notifier.PushRideUpdate(ctx, ride.CustomerID, RideUpdate{
			BookingID: ride.BookingID,
			Status:    string(ride.Status),
			DriverID:  driverID,
			Code:      ride.Code,
		})
	}

	return ride, nil
}

// lockRide takes the ride's try-lock, serializing status transitions per
// booking id. The returned release is a no-op when no lock store is
// configured.
func (s *RideService) lockRide(ctx context.Context, bookingID string) (func(), error) {
	if s.lockStore == nil {
		return func() {}, nil
	}
	acquired, err := s.lockStore.AcquireRideLock(ctx, bookingID, rideLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire ride lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: concurrent update in progress", ErrRideAlreadyResolved)
	}
	return func() {
		if err := s.lockStore.ReleaseRideLock(context.Background(), bookingID); err != nil {
			s.log.WithError(err).WithField("booking_id", bookingID).Warn("failed to release ride lock")
		}
	}, nil
}

// lockDriver takes the driver's try-lock, serializing availability
// mutations per driver. Held together with a ride lock this is always
// acquired second, so the two levels cannot deadlock.
func (s *RideService) lockDriver(ctx context.Context, driverID string) (func(), error) {
	if s.lockStore == nil {
		return func() {}, nil
	}
	acquired, err := s.lockStore.AcquireDriverLock(ctx, driverID, driverLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire driver lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: assignment in progress", ErrDriverUnavailable)
	}
	return func() {
		if err := s.lockStore.ReleaseDriverLock(context.Background(), driverID); err != nil {
			s.log.WithError(err).WithField("driver_id", driverID).Warn("failed to release driver lock")
		}
	}, nil
}

// driverForAccept fetches the driver's presence record, synthesizing a
// default one for drivers that have never registered.
func (s *RideService) driverForAccept(ctx context.Context, driverID string) (*domain.Driver, bool, error) {
	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err == nil {
		return driver, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}
	return domain.NewDefaultDriver(driverID), true, nil
}

// commitAccept persists the accepted ride and the driver's availability
// flip as one unit. Without a database handle the writes are sequential;
// the ride and driver locks already serialize this path.
func (s *RideService) commitAccept(ctx context.Context, ride *domain.Ride, driver *domain.Driver, driverIsNew bool) error {
	if s.db == nil {
		persistDriver := s.driverRepo.Update
		if driverIsNew {
			persistDriver = s.driverRepo.Create
		}
		if err := persistDriver(ctx, driver); err != nil {
			return err
		}
		return s.rideRepo.Update(ctx, ride)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	txDrivers := postgres.NewDriverRepositoryWithTx(tx)
	if driverIsNew {
		err = txDrivers.Create(ctx, driver)
	} else {
		err = txDrivers.Update(ctx, driver)
	}
	if err != nil {
		return err
	}
	if err := postgres.NewRideRepositoryWithTx(tx).Update(ctx, ride); err != nil {
		return err
	}
	return tx.Commit()
}

// VerifyStartCode checks the 4-digit start code and moves the ride from
// ACCEPTED to IN_PROGRESS. A malformed code is rejected before any state is
// consulted; a well-formed mismatch, or a ride not awaiting verification,
// fails with ErrInvalidCode and changes nothing.
func (s *RideService) VerifyStartCode(ctx context.Context, bookingID, code string) (*domain.Ride, error) {
	if strings.TrimSpace(bookingID) == "" {
		return nil, ErrInvalidBookingID
	}
	if !wellFormedStartCode(code) {
		return nil, ErrMalformedCode
	}

	release, err := s.lockRide(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer release()

	ride, err := s.rideRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusAccepted {
		return nil, fmt.Errorf("%w: ride is %s", ErrInvalidCode, ride.Status)
	}
	if ride.Code != code {
		return nil, ErrInvalidCode
	}

	ride.Status = domain.RideStatusInProgress
	if err := s.rideRepo.Update(ctx, ride); err != nil {
		return nil, err
	}

	s.log.WithField("booking_id", ride.BookingID).Info("ride started")
	s.pushStatus(ctx, ride, "")

	return ride, nil
}

// CompleteRide finishes an in-progress ride and releases its driver. A ride
// that never passed the start-code gate cannot be completed.
func (s *RideService) CompleteRide(ctx context.Context, bookingID string) (*domain.Ride, error) {
	if strings.TrimSpace(bookingID) == "" {
		return nil, ErrInvalidBookingID
	}

	release, err := s.lockRide(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer release()

	ride, err := s.rideRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusInProgress {
		return nil, fmt.Errorf("%w: ride is %s", ErrRideNotInProgress, ride.Status)
	}

	now := time.Now()
	ride.Status = domain.RideStatusCompleted
	ride.CompletedAt = now

	if err := s.commitResolution(ctx, ride, true); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": ride.BookingID,
		"driver_id":  ride.DriverID,
		"fare":       ride.Fare,
	}).Info("ride completed")
	s.pushStatus(ctx, ride, "")

	return ride, nil
}

// CancelRide cancels a ride that has not started yet. REQUESTED and
// ACCEPTED rides can be cancelled; anything further along gets
// ErrRideAlreadyResolved. An assigned driver is released.
func (s *RideService) CancelRide(ctx context.Context, bookingID, reason string) (*domain.Ride, error) {
	if strings.TrimSpace(bookingID) == "" {
		return nil, ErrInvalidBookingID
	}

	release, err := s.lockRide(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer release()

	ride, err := s.rideRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusRequested && ride.Status != domain.RideStatusAccepted {
		return nil, fmt.Errorf("%w: ride is %s", ErrRideAlreadyResolved, ride.Status)
	}

	ride.Status = domain.RideStatusCancelled
	ride.CancelledAt = time.Now()
	ride.CancelReason = reason

	if err := s.commitResolution(ctx, ride, false); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": ride.BookingID,
		"reason":     reason,
	}).Info("ride cancelled")
	s.pushStatus(ctx, ride, reason)

	return ride, nil
}

// commitResolution persists a terminal transition together with the
// driver's release when one is assigned. completed distinguishes a finished
// trip, which also counts toward the driver's totals.
func (s *RideService) commitResolution(ctx context.Context, ride *domain.Ride, completed bool) error {
	if ride.DriverID == "" {
		return s.rideRepo.Update(ctx, ride)
	}

	releaseDriver, err := s.lockDriver(ctx, ride.DriverID)
	if err != nil {
		return err
	}
	defer releaseDriver()

	driver, err := s.driverRepo.GetByID(ctx, ride.DriverID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if driver != nil {
		driver.IsAvailable = driver.IsOnline
		driver.CurrentRideID = ""
		driver.LastActiveAt = time.Now()
		if completed {
			driver.TotalTrips++
		}
	}

	if s.db == nil {
		if driver != nil {
			if err := s.driverRepo.Update(ctx, driver); err != nil {
				return err
			}
		}
		return s.rideRepo.Update(ctx, ride)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if driver != nil {
		if err := postgres.NewDriverRepositoryWithTx(tx).Update(ctx, driver); err != nil {
			return err
		}
	}
	if err := postgres.NewRideRepositoryWithTx(tx).Update(ctx, ride); err != nil {
		return err
	}
	return tx.Commit()
}

// pushStatus notifies the customer and, when assigned, the driver of a
// status change.
func (s *RideService) pushStatus(ctx context.Context, ride *domain.Ride, reason string) {
	if s.notifier == nil {
		return
	}
	update := RideUpdate{
		BookingID: ride.BookingID,
		Status:    string(ride.Status),
		DriverID:  ride.DriverID,
		Reason:    reason,
	}
	s.notifier.PushRideUpdate(ctx, ride.CustomerID, update)
	if ride.DriverID != "" {
		s.notifier.PushRideUpdate(ctx, ride.DriverID, update)
	}
}

// GetRide retrieves a ride by booking id.
func (s *RideService) GetRide(ctx context.Context, bookingID string) (*domain.Ride, error) {
	if strings.TrimSpace(bookingID) == "" {
		return nil, ErrInvalidBookingID
	}
	return s.rideRepo.GetByBookingID(ctx, bookingID)
}

// ListCustomerRides retrieves a customer's rides, newest first.
func (s *RideService) ListCustomerRides(ctx context.Context, customerID string) ([]*domain.Ride, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, ErrInvalidCustomerID
	}
	return s.rideRepo.GetByCustomerID(ctx, customerID)
}

// NearbyOpenRides lists REQUESTED rides a driver can pick up, nearest
// pickup first. A nil center skips the proximity filter; class narrows to
// one vehicle class. Rides without pickup coordinates rank at the fallback
// distance.
func (s *RideService) NearbyOpenRides(ctx context.Context, center *domain.Coordinate, radiusKm float64, class string) ([]*domain.Ride, error) {
	if err := validateOptionalCoordinate(center); err != nil {
		return nil, err
	}
	var vehicleClass domain.VehicleClass
	if class != "" {
		parsed, ok := domain.ParseVehicleClass(class)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidVehicleClass, class)
		}
		vehicleClass = parsed
	}
	if radiusKm <= 0 {
		radiusKm = DefaultSearchRadiusKm
	}

	pending, err := s.rideRepo.GetByStatus(ctx, domain.RideStatusRequested)
	if err != nil {
		return nil, err
	}

	type scored struct {
		ride *domain.Ride
		km   float64
	}
	var open []scored
	for _, ride := range pending {
		if vehicleClass != "" && !ride.VehicleClass.Equal(vehicleClass) {
			continue
		}
		km := 0.0
		if center != nil {
			km, _ = geo.Between(center, ride.Pickup)
			if km > radiusKm {
				continue
			}
		}
		open = append(open, scored{ride: ride, km: km})
	}

	sort.Slice(open, func(i, j int) bool { return open[i].km < open[j].km })
	rides := make([]*domain.Ride, len(open))
	for i, s := range open {
		rides[i] = s.ride
	}
	return rides, nil
}

// ApplyPromoToRide applies a promo code to a ride that is still awaiting a
// driver. Once accepted the fare is frozen.
func (s *RideService) ApplyPromoToRide(ctx context.Context, bookingID, code string) (*domain.Ride, error) {
	if strings.TrimSpace(bookingID) == "" {
		return nil, ErrInvalidBookingID
	}
	if s.promos == nil {
		return nil, ErrPromoInvalid
	}

	release, err := s.lockRide(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer release()

	ride, err := s.rideRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusRequested {
		return nil, fmt.Errorf("%w: ride is %s", ErrRideAlreadyResolved, ride.Status)
	}
	if ride.PromoCode != "" {
		return nil, fmt.Errorf("%w: promo already applied", ErrPromoInvalid)
	}

	applied, err := s.promos.Apply(ctx, code, ride.Fare)
	if err != nil {
		return nil, err
	}

	ride.PromoCode = applied.Code
	ride.Discount = applied.Discount
	ride.Fare = applied.FinalFare
	if err := s.rideRepo.Update(ctx, ride); err != nil {
		return nil, err
	}
	return ride, nil
}

// ClearPendingRides cancels every ride a customer still has in REQUESTED.
// Returns the number of rides cancelled. Rides lost to a concurrent accept
// are skipped, not failed.
func (s *RideService) ClearPendingRides(ctx context.Context, customerID string) (int, error) {
	if strings.TrimSpace(customerID) == "" {
		return 0, ErrInvalidCustomerID
	}

	rides, err := s.rideRepo.GetByCustomerID(ctx, customerID)
	if err != nil {
		return 0, err
	}

	cleared := 0
	for _, ride := range rides {
		if ride.Status != domain.RideStatusRequested {
			continue
		}
		if _, err := s.CancelRide(ctx, ride.BookingID, "cleared by customer"); err != nil {
			if errors.Is(err, ErrRideAlreadyResolved) {
				continue
			}
			return cleared, err
		}
		cleared++
	}
	return cleared, nil
}

// newBookingID generates the external booking identifier (BK- plus the
// first 8 uuid characters, upper-cased).
func newBookingID() string {
	return "BK-" + strings.ToUpper(uuid.New().String()[:8])
}

// newStartCode generates the 4-digit zero-padded start code.
func newStartCode() string {
	return fmt.Sprintf("%04d", rand.Intn(10000))
}

// wellFormedStartCode reports whether the submitted code is exactly 4
// digits.
func wellFormedStartCode(code string) bool {
	if len(code) != 4 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func validateOptionalCoordinate(c *domain.Coordinate) error {
	if c == nil {
		return nil
	}
	if !c.Valid() {
		return fmt.Errorf("%w: lat=%v lng=%v out of range", ErrInvalidLocation, c.Lat, c.Lng)
	}
	return nil
}
