package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// DriverService maintains driver presence: online/offline flags, location
// reports and the geo index behind proximity matching.
type DriverService struct {
	driverRepo    repository.DriverRepository
	locationStore redis.LocationStoreInterface
	log           *logrus.Logger
}

// NewDriverService creates a new DriverService. locationStore may be nil;
// location reports then only update the presence record.
func NewDriverService(
	driverRepo repository.DriverRepository,
	locationStore redis.LocationStoreInterface,
	log *logrus.Logger,
) *DriverService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DriverService{
		driverRepo:    driverRepo,
		locationStore: locationStore,
		log:           log,
	}
}

// GetDriver retrieves a driver's presence record.
func (s *DriverService) GetDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	if strings.TrimSpace(driverID) == "" {
		return nil, ErrInvalidDriverID
	}
	return s.driverRepo.GetByID(ctx, driverID)
}

// LocationReport is a driver's heartbeat. The flag pointers distinguish
// "not mentioned" from an explicit false.
type LocationReport struct {
	Location    domain.Coordinate
	IsOnline    *bool
	IsAvailable *bool
}

// ReportLocation records a driver's position and optional flag changes, and
// refreshes the geo index. Drivers reporting for the first time get a
// presence record created. Availability never flips on for a driver still
// assigned to a ride.
func (s *DriverService) ReportLocation(ctx context.Context, driverID string, report LocationReport) (*domain.Driver, error) {
	if strings.TrimSpace(driverID) == "" {
		return nil, ErrInvalidDriverID
	}
	if !report.Location.Valid() {
		return nil, fmt.Errorf("%w: lat=%v lng=%v out of range", ErrInvalidLocation, report.Location.Lat, report.Location.Lng)
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	created := false
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		driver = domain.NewDefaultDriver(driverID)
		created = true
	}

	loc := report.Location
	driver.Location = &loc
	driver.LastActiveAt = time.Now()
	if report.IsOnline != nil {
		driver.IsOnline = *report.IsOnline
	}
	if report.IsAvailable != nil {
		driver.IsAvailable = *report.IsAvailable
	}
	if !driver.IsOnline || driver.CurrentRideID != "" {
		driver.IsAvailable = false
	}

	if created {
		err = s.driverRepo.Create(ctx, driver)
	} else {
		err = s.driverRepo.Update(ctx, driver)
	}
	if err != nil {
		return nil, err
	}

	s.syncGeoIndex(ctx, driver)
	return driver, nil
}

// SetOnline marks a driver online and available (unless mid-ride).
func (s *DriverService) SetOnline(ctx context.Context, driverID string) (*domain.Driver, error) {
	return s.setPresence(ctx, driverID, true)
}

// SetOffline marks a driver offline; an offline driver is never available
// and leaves the geo index.
func (s *DriverService) SetOffline(ctx context.Context, driverID string) (*domain.Driver, error) {
	return s.setPresence(ctx, driverID, false)
}

func (s *DriverService) setPresence(ctx context.Context, driverID string, online bool) (*domain.Driver, error) {
	if strings.TrimSpace(driverID) == "" {
		return nil, ErrInvalidDriverID
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}

	driver.IsOnline = online
	driver.IsAvailable = online && driver.CurrentRideID == ""
	driver.LastActiveAt = time.Now()

	if err := s.driverRepo.Update(ctx, driver); err != nil {
		return nil, err
	}

	s.syncGeoIndex(ctx, driver)
	s.log.WithFields(logrus.Fields{
		"driver_id": driverID,
		"online":    online,
	}).Info("driver presence changed")

	return driver, nil
}

// syncGeoIndex keeps the geo index consistent with the presence record.
// Index failures are logged, never fatal; the record remains the source of
// truth.
func (s *DriverService) syncGeoIndex(ctx context.Context, driver *domain.Driver) {
	if s.locationStore == nil {
		return
	}

	var err error
	if driver.IsOnline && driver.Location != nil {
		err = s.locationStore.UpdateLocation(ctx, driver.ID, *driver.Location)
	} else {
		err = s.locationStore.RemoveLocation(ctx, driver.ID)
	}
	if err != nil {
		s.log.WithError(err).WithField("driver_id", driver.ID).Warn("failed to sync geo index")
	}
}
