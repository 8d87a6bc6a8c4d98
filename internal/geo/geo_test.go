package geo

import (
	"math"
	"testing"

	"dispatch/internal/domain"
)

func TestDistanceKm_KnownDistances(t *testing.T) {
	testCases := []struct {
		name     string
		a, b     domain.Coordinate
		expected float64
		tol      float64
	}{
		{
			name:     "same point",
			a:        domain.Coordinate{Lat: 12.9716, Lng: 77.5946},
			b:        domain.Coordinate{Lat: 12.9716, Lng: 77.5946},
			expected: 0,
			tol:      0.001,
		},
		{
			name:     "one degree of longitude at the equator",
			a:        domain.Coordinate{Lat: 0, Lng: 0},
			b:        domain.Coordinate{Lat: 0, Lng: 1},
			expected: 111.19,
			tol:      0.05,
		},
		{
			name:     "one degree of latitude",
			a:        domain.Coordinate{Lat: 0, Lng: 0},
			b:        domain.Coordinate{Lat: 1, Lng: 0},
			expected: 111.19,
			tol:      0.05,
		},
		{
			name:     "bangalore to chennai",
			a:        domain.Coordinate{Lat: 12.9716, Lng: 77.5946},
			b:        domain.Coordinate{Lat: 13.0827, Lng: 80.2707},
			expected: 290,
			tol:      5,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := DistanceKm(tc.a, tc.b)
			if math.Abs(got-tc.expected) > tc.tol {
				t.Errorf("expected ~%v km, got %v km", tc.expected, got)
			}
		})
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	a := domain.Coordinate{Lat: 12.9716, Lng: 77.5946}
	b := domain.Coordinate{Lat: 13.0827, Lng: 80.2707}

	if DistanceKm(a, b) != DistanceKm(b, a) {
		t.Error("distance should be symmetric")
	}
}

func TestBetween_MissingCoordinates(t *testing.T) {
	point := &domain.Coordinate{Lat: 12.9716, Lng: 77.5946}

	testCases := []struct {
		name string
		a, b *domain.Coordinate
	}{
		{"both nil", nil, nil},
		{"first nil", nil, point},
		{"second nil", point, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			km, measured := Between(tc.a, tc.b)
			if measured {
				t.Error("expected measured=false")
			}
			if km != DefaultDistanceKm {
				t.Errorf("expected fallback distance %v, got %v", DefaultDistanceKm, km)
			}
		})
	}
}

func TestBetween_BothPresent(t *testing.T) {
	a := &domain.Coordinate{Lat: 0, Lng: 0}
	b := &domain.Coordinate{Lat: 0, Lng: 1}

	km, measured := Between(a, b)
	if !measured {
		t.Error("expected measured=true")
	}
	if km != DistanceKm(*a, *b) {
		t.Errorf("expected %v, got %v", DistanceKm(*a, *b), km)
	}
}
