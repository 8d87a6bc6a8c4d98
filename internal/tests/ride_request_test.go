package tests

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/geo"
	"dispatch/internal/service"
)

func newRequestService(rideRepo *MockRideRepository, promoRepo *MockPromoRepository, matching *service.MatchingEngine, notifier service.Notifier) *service.RideService {
	fare := service.NewFareCalculator(0, nil)
	var promos *service.PromoLedger
	if promoRepo != nil {
		promos = service.NewPromoLedger(promoRepo, fare, nil)
	}
	return service.NewRideService(nil, rideRepo, NewMockDriverRepository(), nil, matching, fare, promos, notifier, nil)
}

func TestRequestRide_ValidatesCustomerID(t *testing.T) {
	svc := newRequestService(NewMockRideRepository(), nil, nil, nil)

	_, err := svc.RequestRide(context.Background(), service.RequestRideParams{
		CustomerID:   "",
		VehicleClass: "Car",
	})

	if !errors.Is(err, service.ErrInvalidCustomerID) {
		t.Errorf("expected ErrInvalidCustomerID, got %v", err)
	}
}

func TestRequestRide_ValidatesVehicleClass(t *testing.T) {
	svc := newRequestService(NewMockRideRepository(), nil, nil, nil)

	testCases := []struct {
		name  string
		class string
	}{
		{"empty", ""},
		{"unknown", "Helicopter"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RequestRide(context.Background(), service.RequestRideParams{
				CustomerID:   "cust-1",
				VehicleClass: tc.class,
			})

			if !errors.Is(err, service.ErrInvalidVehicleClass) {
				t.Errorf("expected ErrInvalidVehicleClass for %q, got %v", tc.class, err)
			}
		})
	}
}

func TestRequestRide_VehicleClassIsCaseInsensitive(t *testing.T) {
	rideRepo := NewMockRideRepository()
	svc := newRequestService(rideRepo, nil, nil, nil)

	for _, raw := range []string{"car", "CAR", "cAr"} {
		ride, err := svc.RequestRide(context.Background(), service.RequestRideParams{
			CustomerID:   "cust-1",
			VehicleClass: raw,
		})
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", raw, err)
		}
		if ride.VehicleClass != domain.VehicleCar {
			t.Errorf("expected canonical Car for %q, got %q", raw, ride.VehicleClass)
		}
	}
}

func TestRequestRide_ValidatesCoordinates(t *testing.T) {
	svc := newRequestService(NewMockRideRepository(), nil, nil, nil)

	_, err := svc.RequestRide(context.Background(), service.RequestRideParams{
		CustomerID:   "cust-1",
		VehicleClass: "Bike",
		Pickup:       &domain.Coordinate{Lat: 91, Lng: 0},
	})

	if !errors.Is(err, service.ErrInvalidLocation) {
		t.Errorf("expected ErrInvalidLocation, got %v", err)
	}
}

func TestRequestRide_CreatesRequestedRideWithBookingID(t *testing.T) {
	rideRepo := NewMockRideRepository()
	svc := newRequestService(rideRepo, nil, nil, nil)

	ride, err := svc.RequestRide(context.Background(), service.RequestRideParams{
		CustomerID:   "cust-1",
		VehicleClass: "Auto",
		Pickup:       &domain.Coordinate{Lat: 12.9716, Lng: 77.5946},
		Drop:         &domain.Coordinate{Lat: 12.9352, Lng: 77.6245},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ride.Status != domain.RideStatusRequested {
		t.Errorf("expected REQUESTED, got %s", ride.Status)
	}
	if !strings.HasPrefix(ride.BookingID, "BK-") || len(ride.BookingID) != 11 {
		t.Errorf("expected booking id like BK-XXXXXXXX, got %q", ride.BookingID)
	}
	if ride.BookingID != strings.ToUpper(ride.BookingID) {
		t.Errorf("expected upper-cased booking id, got %q", ride.BookingID)
	}
	if rideRepo.CountRides() != 1 {
		t.Errorf("expected 1 persisted ride, got %d", rideRepo.CountRides())
	}
	if ride.DriverID != "" || ride.Code != "" {
		t.Error("new ride must have no driver and no start code")
	}
}

func TestRequestRide_FareIsBasePlusDistance(t *testing.T) {
	pickup := &domain.Coordinate{Lat: 0, Lng: 0}
	drop := &domain.Coordinate{Lat: 0, Lng: 1}
	distance := geo.DistanceKm(*pickup, *drop)

	testCases := []struct {
		class string
		base  float64
	}{
		{"Share", 30},
		{"Bike", 40},
		{"Auto", 50},
		{"Car", 80},
	}

	for _, tc := range testCases {
		t.Run(tc.class, func(t *testing.T) {
			svc := newRequestService(NewMockRideRepository(), nil, nil, nil)

			ride, err := svc.RequestRide(context.Background(), service.RequestRideParams{
				CustomerID:   "cust-1",
				VehicleClass: tc.class,
				Pickup:       pickup,
				Drop:         drop,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			expected := tc.base + distance*service.DefaultRatePerKm
			if ride.Fare != expected {
				t.Errorf("expected fare %v, got %v", expected, ride.Fare)
			}
		})
	}
}

func TestRequestRide_MissingCoordinatesUseFallbackDistance(t *testing.T) {
	svc := newRequestService(NewMockRideRepository(), nil, nil, nil)

	ride, err := svc.RequestRide(context.Background(), service.RequestRideParams{
		CustomerID:   "cust-1",
		VehicleClass: "Bike",
		PickupLabel:  "Home",
		DropLabel:    "Office",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := 40 + geo.DefaultDistanceKm*service.DefaultRatePerKm
	if ride.Fare != expected {
		t.Errorf("expected fallback fare %v, got %v", expected, ride.Fare)
	}
}

func TestRequestRide_AppliesPromoAtBooking(t *testing.T) {
	promoRepo := NewMockPromoRepository()
	promoRepo.AddPromo(&domain.PromoCode{
		Code:            "SAVE10",
		DiscountPercent: 10,
		IsActive:        true,
	})
	svc := newRequestService(NewMockRideRepository(), promoRepo, nil, nil)

	ride, err := svc.RequestRide(context.Background(), service.RequestRideParams{
		CustomerID:   "cust-1",
		VehicleClass: "Bike",
		PromoCode:    "save10",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Fallback distance: 40 + 10*10 = 140, 10% off.
	if ride.Fare != 126 || ride.Discount != 14 {
		t.Errorf("expected fare 126 with discount 14, got fare=%v discount=%v", ride.Fare, ride.Discount)
	}
	if ride.PromoCode != "SAVE10" {
		t.Errorf("expected stored promo code SAVE10, got %q", ride.PromoCode)
	}
	if promoRepo.GetPromo("SAVE10").UsedCount != 1 {
		t.Error("expected promo usage to be consumed")
	}
}

func TestRequestRide_InvalidPromoFailsBooking(t *testing.T) {
	promoRepo := NewMockPromoRepository()
	promoRepo.AddPromo(&domain.PromoCode{
		Code:            "DEAD",
		DiscountPercent: 50,
		IsActive:        false,
	})
	rideRepo := NewMockRideRepository()
	svc := newRequestService(rideRepo, promoRepo, nil, nil)

	_, err := svc.RequestRide(context.Background(), service.RequestRideParams{
		CustomerID:   "cust-1",
		VehicleClass: "Bike",
		PromoCode:    "DEAD",
	})

	if !errors.Is(err, service.ErrPromoInvalid) {
		t.Errorf("expected ErrPromoInvalid, got %v", err)
	}
	if rideRepo.CountRides() != 0 {
		t.Error("failed booking must not persist a ride")
	}
}

func TestRequestRide_DispatchesOffersToMatchingDrivers(t *testing.T) {
	driverRepo := NewMockDriverRepository()
	near := domain.NewDefaultDriver("drv-near")
	near.VehicleClass = domain.VehicleCar
	near.Location = &domain.Coordinate{Lat: 0.01, Lng: 0}
	driverRepo.AddDriver(near)

	wrongClass := domain.NewDefaultDriver("drv-bike")
	wrongClass.Location = &domain.Coordinate{Lat: 0.01, Lng: 0.01}
	driverRepo.AddDriver(wrongClass)

	matching := service.NewMatchingEngine(driverRepo, nil, 10, nil)
	notifier := NewMockNotifier()
	fare := service.NewFareCalculator(0, nil)
	svc := service.NewRideService(nil, NewMockRideRepository(), driverRepo, nil, matching, fare, nil, notifier, nil)

	ride, err := svc.RequestRide(context.Background(), service.RequestRideParams{
		CustomerID:   "cust-1",
		VehicleClass: "Car",
		Pickup:       &domain.Coordinate{Lat: 0, Lng: 0},
		Drop:         &domain.Coordinate{Lat: 0, Lng: 0.5},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Fan-out is asynchronous.
	deadline := time.Now().Add(2 * time.Second)
	for len(notifier.OffersTo("drv-near")) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	offers := notifier.OffersTo("drv-near")
	if len(offers) != 1 {
		t.Fatalf("expected 1 offer to the Car driver, got %d", len(offers))
	}
	if offers[0].BookingID != ride.BookingID {
		t.Errorf("offer carries wrong booking id %q", offers[0].BookingID)
	}
	if len(notifier.OffersTo("drv-bike")) != 0 {
		t.Error("Bike driver must not be offered a Car request")
	}
}
