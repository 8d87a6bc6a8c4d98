package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// EmergencyService handles rider SOS alerts. An alert is acknowledged
// immediately and fanned out to responders; it never depends on the ride
// being in any particular state.
type EmergencyService struct {
	rideRepo repository.RideRepository
	notifier Notifier
	log      *logrus.Logger
}

// NewEmergencyService creates a new EmergencyService. rideRepo and notifier
// may be nil.
func NewEmergencyService(rideRepo repository.RideRepository, notifier Notifier, log *logrus.Logger) *EmergencyService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &EmergencyService{rideRepo: rideRepo, notifier: notifier, log: log}
}

// RaiseAlertParams is the input for an SOS.
type RaiseAlertParams struct {
	CustomerID string
	BookingID  string
	Location   *domain.Coordinate
	Message    string
}

// RaiseAlert records and fans out an SOS. When a booking id is supplied the
// ride's last known pickup fills in a missing location.
func (s *EmergencyService) RaiseAlert(ctx context.Context, params RaiseAlertParams) (*EmergencyAlert, error) {
	if strings.TrimSpace(params.CustomerID) == "" {
		return nil, ErrInvalidCustomerID
	}
	if params.Location != nil && !params.Location.Valid() {
		return nil, fmt.Errorf("%w: lat=%v lng=%v out of range", ErrInvalidLocation, params.Location.Lat, params.Location.Lng)
	}

	alert := EmergencyAlert{
		AlertID:    uuid.New().String(),
		CustomerID: params.CustomerID,
		BookingID:  params.BookingID,
		Location:   params.Location,
		Message:    params.Message,
		RaisedAt:   time.Now(),
	}

	if alert.Location == nil && alert.BookingID != "" && s.rideRepo != nil {
		ride, err := s.rideRepo.GetByBookingID(ctx, alert.BookingID)
		if err == nil {
			alert.Location = ride.Pickup
		} else if !errors.Is(err, repository.ErrNotFound) {
			s.log.WithError(err).WithField("booking_id", alert.BookingID).Warn("sos ride lookup failed")
		}
	}

	s.log.WithFields(logrus.Fields{
		"alert_id":    alert.AlertID,
		"customer_id": alert.CustomerID,
		"booking_id":  alert.BookingID,
	}).Error("emergency alert raised")

	if s.notifier != nil {
		s.notifier.PushEmergency(ctx, alert)
	}
	return &alert, nil
}
