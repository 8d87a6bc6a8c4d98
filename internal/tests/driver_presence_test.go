package tests

import (
	"context"
	"errors"
	"testing"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

func boolPtr(b bool) *bool { return &b }

func TestReportLocation_CreatesRecordForUnknownDriver(t *testing.T) {
	driverRepo := NewMockDriverRepository()
	locationStore := NewMockLocationStore()
	svc := service.NewDriverService(driverRepo, locationStore, nil)

	driver, err := svc.ReportLocation(context.Background(), "drv-new", service.LocationReport{
		Location: domain.Coordinate{Lat: 12.9716, Lng: 77.5946},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if driver.Location == nil || driver.Location.Lat != 12.9716 {
		t.Error("expected location to be recorded")
	}
	if driverRepo.GetDriver("drv-new") == nil {
		t.Error("expected a presence record to be created")
	}
	if !locationStore.HasLocation("drv-new") {
		t.Error("expected the geo index to be updated")
	}
}

func TestReportLocation_RejectsOutOfRangeCoordinates(t *testing.T) {
	svc := service.NewDriverService(NewMockDriverRepository(), nil, nil)

	_, err := svc.ReportLocation(context.Background(), "drv-1", service.LocationReport{
		Location: domain.Coordinate{Lat: 12, Lng: 181},
	})
	if !errors.Is(err, service.ErrInvalidLocation) {
		t.Errorf("expected ErrInvalidLocation, got %v", err)
	}
}

func TestReportLocation_FlagsAreOptional(t *testing.T) {
	driverRepo := NewMockDriverRepository()
	driver := domain.NewDefaultDriver("drv-1")
	driver.IsAvailable = true
	driverRepo.AddDriver(driver)
	svc := service.NewDriverService(driverRepo, nil, nil)

	// No flags mentioned: both survive.
	updated, err := svc.ReportLocation(context.Background(), "drv-1", service.LocationReport{
		Location: domain.Coordinate{Lat: 1, Lng: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.IsOnline || !updated.IsAvailable {
		t.Error("omitted flags must not change")
	}

	// Explicit false is honored.
	updated, err = svc.ReportLocation(context.Background(), "drv-1", service.LocationReport{
		Location:    domain.Coordinate{Lat: 1, Lng: 1},
		IsAvailable: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.IsAvailable {
		t.Error("explicit is_available=false must be honored")
	}
}

func TestReportLocation_AssignedDriverCannotBecomeAvailable(t *testing.T) {
	driverRepo := NewMockDriverRepository()
	driver := domain.NewDefaultDriver("drv-1")
	driver.IsAvailable = false
	driver.CurrentRideID = "BK-12345678"
	driverRepo.AddDriver(driver)
	svc := service.NewDriverService(driverRepo, nil, nil)

	updated, err := svc.ReportLocation(context.Background(), "drv-1", service.LocationReport{
		Location:    domain.Coordinate{Lat: 1, Lng: 1},
		IsAvailable: boolPtr(true),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.IsAvailable {
		t.Error("a driver holding a ride must never become available")
	}
}

func TestSetOffline_RemovesAvailabilityAndGeoIndex(t *testing.T) {
	driverRepo := NewMockDriverRepository()
	locationStore := NewMockLocationStore()
	driver := domain.NewDefaultDriver("drv-1")
	driver.Location = &domain.Coordinate{Lat: 1, Lng: 1}
	driverRepo.AddDriver(driver)
	locationStore.UpdateLocation(context.Background(), "drv-1", *driver.Location)

	svc := service.NewDriverService(driverRepo, locationStore, nil)

	updated, err := svc.SetOffline(context.Background(), "drv-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.IsOnline || updated.IsAvailable {
		t.Error("offline driver must be neither online nor available")
	}
	if locationStore.HasLocation("drv-1") {
		t.Error("offline driver must leave the geo index")
	}
}

func TestSetOnline_RestoresAvailabilityUnlessAssigned(t *testing.T) {
	driverRepo := NewMockDriverRepository()
	driver := domain.NewDefaultDriver("drv-1")
	driver.IsOnline = false
	driver.IsAvailable = false
	driverRepo.AddDriver(driver)

	svc := service.NewDriverService(driverRepo, nil, nil)

	updated, err := svc.SetOnline(context.Background(), "drv-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.IsOnline || !updated.IsAvailable {
		t.Error("going online should restore availability")
	}

	// Mid-ride drivers come back online but stay unavailable.
	busy := domain.NewDefaultDriver("drv-2")
	busy.IsOnline = false
	busy.IsAvailable = false
	busy.CurrentRideID = "BK-12345678"
	driverRepo.AddDriver(busy)

	updated, err = svc.SetOnline(context.Background(), "drv-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.IsOnline || updated.IsAvailable {
		t.Error("mid-ride driver must stay unavailable when coming online")
	}
}

func TestGetDriver_UnknownDriver(t *testing.T) {
	svc := service.NewDriverService(NewMockDriverRepository(), nil, nil)

	_, err := svc.GetDriver(context.Background(), "drv-missing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
