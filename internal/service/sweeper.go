package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

const (
	// DefaultStaleAfter is how long a ride may sit in REQUESTED before the
	// sweeper cancels it.
	DefaultStaleAfter = 5 * time.Minute

	// DefaultSweepInterval is how often the sweeper runs.
	DefaultSweepInterval = time.Minute
)

// StaleSweeper periodically cancels rides that have been stuck in REQUESTED
// past the staleness threshold. Sweeping is best-effort: it takes the same
// per-ride try-lock as acceptance and simply skips rides it cannot lock, so
// a sweep lost to a concurrent accept is never an error.
type StaleSweeper struct {
	rideRepo   repository.RideRepository
	lockStore  redis.LockStoreInterface
	notifier   Notifier
	staleAfter time.Duration
	interval   time.Duration
	log        *logrus.Logger
}

// NewStaleSweeper creates a StaleSweeper. Non-positive durations fall back
// to the defaults; lockStore and notifier may be nil.
func NewStaleSweeper(
	rideRepo repository.RideRepository,
	lockStore redis.LockStoreInterface,
	notifier Notifier,
	staleAfter, interval time.Duration,
	log *logrus.Logger,
) *StaleSweeper {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StaleSweeper{
		rideRepo:   rideRepo,
		lockStore:  lockStore,
		notifier:   notifier,
		staleAfter: staleAfter,
		interval:   interval,
		log:        log,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *StaleSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.log.WithError(err).Error("stale ride sweep failed")
			}
		}
	}
}

// SweepOnce cancels every REQUESTED ride older than the staleness threshold
// and returns how many it cancelled.
func (s *StaleSweeper) SweepOnce(ctx context.Context) (int, error) {
	pending, err := s.rideRepo.GetByStatus(ctx, domain.RideStatusRequested)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-s.staleAfter)
	swept := 0
	for _, ride := range pending {
		if ride.RequestedAt.After(cutoff) {
			continue
		}
		if s.sweepRide(ctx, ride.BookingID) {
			swept++
		}
	}

	if swept > 0 {
		s.log.WithField("swept", swept).Info("stale requested rides cancelled")
	}
	return swept, nil
}

// sweepRide cancels one stale ride under the ride lock. Contention and
// rides that moved on since the listing are skipped.
func (s *StaleSweeper) sweepRide(ctx context.Context, bookingID string) bool {
	if s.lockStore != nil {
		acquired, err := s.lockStore.AcquireRideLock(ctx, bookingID, rideLockTTL)
		if err != nil || !acquired {
			return false
		}
		defer func() {
			if err := s.lockStore.ReleaseRideLock(context.Background(), bookingID); err != nil {
				s.log.WithError(err).WithField("booking_id", bookingID).Warn("failed to release ride lock")
			}
		}()
	}

	ride, err := s.rideRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.WithError(err).WithField("booking_id", bookingID).Warn("stale ride lookup failed")
		}
		return false
	}
	if ride.Status != domain.RideStatusRequested {
		return false
	}

	ride.Status = domain.RideStatusCancelled
	ride.CancelledAt = time.Now()
	ride.CancelReason = "no driver accepted in time"
	if err := s.rideRepo.Update(ctx, ride); err != nil {
		s.log.WithError(err).WithField("booking_id", bookingID).Warn("stale ride cancel failed")
		return false
	}

	if s.notifier != nil {
		s.notifier.PushRideUpdate(ctx, ride.CustomerID, RideUpdate{
			BookingID: ride.BookingID,
			Status:    string(ride.Status),
			Reason:    ride.CancelReason,
		})
	}
	return true
}
