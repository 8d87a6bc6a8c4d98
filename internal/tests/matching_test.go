package tests

import (
	"context"
	"errors"
	"testing"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

func availableDriver(id string, class domain.VehicleClass, loc *domain.Coordinate) *domain.Driver {
	driver := domain.NewDefaultDriver(id)
	driver.VehicleClass = class
	driver.Location = loc
	return driver
}

func TestCandidates_FiltersByVehicleClass(t *testing.T) {
	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(availableDriver("drv-car", domain.VehicleCar, &domain.Coordinate{Lat: 0.01, Lng: 0}))
	driverRepo.AddDriver(availableDriver("drv-bike", domain.VehicleBike, &domain.Coordinate{Lat: 0.01, Lng: 0}))
	driverRepo.AddDriver(availableDriver("drv-auto", domain.VehicleAuto, &domain.Coordinate{Lat: 0.01, Lng: 0}))

	engine := service.NewMatchingEngine(driverRepo, nil, 10, nil)

	ids, err := engine.Candidates(context.Background(), service.CandidateRequest{
		Pickup:       &domain.Coordinate{Lat: 0, Lng: 0},
		VehicleClass: domain.VehicleCar,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ids) != 1 || ids[0] != "drv-car" {
		t.Errorf("expected only drv-car, got %v", ids)
	}
}

func TestCandidates_ClassMatchIsCaseInsensitive(t *testing.T) {
	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(availableDriver("drv-1", domain.VehicleClass("car"), &domain.Coordinate{Lat: 0.01, Lng: 0}))

	engine := service.NewMatchingEngine(driverRepo, nil, 10, nil)

	ids, err := engine.Candidates(context.Background(), service.CandidateRequest{
		Pickup:       &domain.Coordinate{Lat: 0, Lng: 0},
		VehicleClass: domain.VehicleClass("CAR"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("expected a case-insensitive class match, got %v", ids)
	}
}

func TestCandidates_WithinRadiusSortedNearestFirst(t *testing.T) {
	// Roughly: 0.01 deg lat ≈ 1.1 km, 0.05 ≈ 5.6 km, 0.2 ≈ 22 km.
	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(availableDriver("drv-mid", domain.VehicleCar, &domain.Coordinate{Lat: 0.05, Lng: 0}))
	driverRepo.AddDriver(availableDriver("drv-near", domain.VehicleCar, &domain.Coordinate{Lat: 0.01, Lng: 0}))
	driverRepo.AddDriver(availableDriver("drv-far", domain.VehicleCar, &domain.Coordinate{Lat: 0.2, Lng: 0}))

	engine := service.NewMatchingEngine(driverRepo, nil, 10, nil)

	ids, err := engine.Candidates(context.Background(), service.CandidateRequest{
		Pickup:       &domain.Coordinate{Lat: 0, Lng: 0},
		VehicleClass: domain.VehicleCar,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ids) != 2 || ids[0] != "drv-near" || ids[1] != "drv-mid" {
		t.Errorf("expected [drv-near drv-mid], got %v", ids)
	}
}

func TestCandidates_FallsBackToFullClassPoolWhenNoneNear(t *testing.T) {
	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(availableDriver("drv-far-1", domain.VehicleCar, &domain.Coordinate{Lat: 1, Lng: 1}))
	driverRepo.AddDriver(availableDriver("drv-far-2", domain.VehicleCar, &domain.Coordinate{Lat: 2, Lng: 2}))
	driverRepo.AddDriver(availableDriver("drv-bike", domain.VehicleBike, &domain.Coordinate{Lat: 0.01, Lng: 0}))

	engine := service.NewMatchingEngine(driverRepo, nil, 10, nil)

	ids, err := engine.Candidates(context.Background(), service.CandidateRequest{
		Pickup:       &domain.Coordinate{Lat: 0, Lng: 0},
		VehicleClass: domain.VehicleCar,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ids) != 2 {
		t.Fatalf("expected the full Car pool as fallback, got %v", ids)
	}
	for _, id := range ids {
		if id == "drv-bike" {
			t.Error("fallback must never widen to a mismatched class")
		}
	}
}

func TestCandidates_SkipsUnavailableAndAssignedDrivers(t *testing.T) {
	driverRepo := NewMockDriverRepository()

	offline := availableDriver("drv-offline", domain.VehicleCar, &domain.Coordinate{Lat: 0.01, Lng: 0})
	offline.IsOnline = false
	driverRepo.AddDriver(offline)

	busy := availableDriver("drv-busy", domain.VehicleCar, &domain.Coordinate{Lat: 0.01, Lng: 0})
	busy.IsAvailable = false
	driverRepo.AddDriver(busy)

	assigned := availableDriver("drv-assigned", domain.VehicleCar, &domain.Coordinate{Lat: 0.01, Lng: 0})
	assigned.CurrentRideID = "BK-12345678"
	driverRepo.AddDriver(assigned)

	suspended := availableDriver("drv-suspended", domain.VehicleCar, &domain.Coordinate{Lat: 0.01, Lng: 0})
	suspended.IsSuspended = true
	driverRepo.AddDriver(suspended)

	driverRepo.AddDriver(availableDriver("drv-ok", domain.VehicleCar, &domain.Coordinate{Lat: 0.01, Lng: 0}))

	engine := service.NewMatchingEngine(driverRepo, nil, 10, nil)

	ids, err := engine.Candidates(context.Background(), service.CandidateRequest{
		Pickup:       &domain.Coordinate{Lat: 0, Lng: 0},
		VehicleClass: domain.VehicleCar,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ids) != 1 || ids[0] != "drv-ok" {
		t.Errorf("expected only drv-ok, got %v", ids)
	}
}

func TestCandidates_EmptyClassMatchesEveryClass(t *testing.T) {
	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(availableDriver("drv-car", domain.VehicleCar, &domain.Coordinate{Lat: 0.01, Lng: 0}))
	driverRepo.AddDriver(availableDriver("drv-bike", domain.VehicleBike, &domain.Coordinate{Lat: 0.02, Lng: 0}))

	engine := service.NewMatchingEngine(driverRepo, nil, 10, nil)

	ids, err := engine.Candidates(context.Background(), service.CandidateRequest{
		Pickup: &domain.Coordinate{Lat: 0, Lng: 0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected both drivers, got %v", ids)
	}
}

func TestCandidates_GeoIndexFastPathKeepsIndexOrder(t *testing.T) {
	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(availableDriver("drv-a", domain.VehicleCar, nil))
	driverRepo.AddDriver(availableDriver("drv-b", domain.VehicleCar, nil))

	locationStore := NewMockLocationStore()
	ctx := context.Background()
	locationStore.UpdateLocation(ctx, "drv-b", domain.Coordinate{Lat: 0.01, Lng: 0})
	locationStore.UpdateLocation(ctx, "drv-a", domain.Coordinate{Lat: 0.05, Lng: 0})
	// A driver in the index but not in the eligible pool must not leak in.
	locationStore.UpdateLocation(ctx, "drv-ghost", domain.Coordinate{Lat: 0.001, Lng: 0})

	engine := service.NewMatchingEngine(driverRepo, locationStore, 10, nil)

	ids, err := engine.Candidates(ctx, service.CandidateRequest{
		Pickup:       &domain.Coordinate{Lat: 0, Lng: 0},
		VehicleClass: domain.VehicleCar,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ids) != 2 || ids[0] != "drv-b" || ids[1] != "drv-a" {
		t.Errorf("expected index order [drv-b drv-a], got %v", ids)
	}
}

func TestCandidates_GeoIndexFailureFallsBackToRecords(t *testing.T) {
	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(availableDriver("drv-1", domain.VehicleCar, &domain.Coordinate{Lat: 0.01, Lng: 0}))

	locationStore := NewMockLocationStore()
	locationStore.FindError = errors.New("connection refused")

	engine := service.NewMatchingEngine(driverRepo, locationStore, 10, nil)

	ids, err := engine.Candidates(context.Background(), service.CandidateRequest{
		Pickup:       &domain.Coordinate{Lat: 0, Lng: 0},
		VehicleClass: domain.VehicleCar,
	})
	if err != nil {
		t.Fatalf("index failure must not fail matching: %v", err)
	}
	if len(ids) != 1 || ids[0] != "drv-1" {
		t.Errorf("expected presence-record fallback [drv-1], got %v", ids)
	}
}
