package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestCoordinateUnmarshal_AcceptedEncodings(t *testing.T) {
	testCases := []struct {
		name     string
		payload  string
		lat, lng float64
	}{
		{"object lat/lng", `{"lat": 12.97, "lng": 77.59}`, 12.97, 77.59},
		{"object latitude/longitude", `{"latitude": 12.97, "longitude": 77.59}`, 12.97, 77.59},
		{"array", `[12.97, 77.59]`, 12.97, 77.59},
		{"quoted strings", `{"lat": "12.97", "lng": "77.59"}`, 12.97, 77.59},
		{"mixed keys", `{"lat": 12.97, "longitude": 77.59}`, 12.97, 77.59},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var c Coordinate
			if err := json.Unmarshal([]byte(tc.payload), &c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Lat != tc.lat || c.Lng != tc.lng {
				t.Errorf("expected (%v, %v), got (%v, %v)", tc.lat, tc.lng, c.Lat, c.Lng)
			}
		})
	}
}

func TestCoordinateUnmarshal_RejectedEncodings(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
	}{
		{"missing lng", `{"lat": 12.97}`},
		{"single element array", `[12.97]`},
		{"non-numeric", `{"lat": "north", "lng": 77.59}`},
		{"bare number", `12.97`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var c Coordinate
			err := json.Unmarshal([]byte(tc.payload), &c)
			if !errors.Is(err, ErrBadCoordinate) {
				t.Errorf("expected ErrBadCoordinate, got %v", err)
			}
		})
	}
}

func TestCoordinateValid(t *testing.T) {
	testCases := []struct {
		name  string
		coord Coordinate
		valid bool
	}{
		{"origin", Coordinate{0, 0}, true},
		{"bounds", Coordinate{90, 180}, true},
		{"negative bounds", Coordinate{-90, -180}, true},
		{"lat too high", Coordinate{90.1, 0}, false},
		{"lng too low", Coordinate{0, -180.1}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.coord.Valid() != tc.valid {
				t.Errorf("Valid() = %v, expected %v", tc.coord.Valid(), tc.valid)
			}
		})
	}
}

func TestParseVehicleClass(t *testing.T) {
	testCases := []struct {
		in       string
		expected VehicleClass
		ok       bool
	}{
		{"Car", VehicleCar, true},
		{"car", VehicleCar, true},
		{"  BIKE ", VehicleBike, true},
		{"share", VehicleShare, true},
		{"auto", VehicleAuto, true},
		{"", "", false},
		{"Helicopter", "Helicopter", false},
	}

	for _, tc := range testCases {
		got, ok := ParseVehicleClass(tc.in)
		if ok != tc.ok || got != tc.expected {
			t.Errorf("ParseVehicleClass(%q) = (%q, %v), expected (%q, %v)", tc.in, got, ok, tc.expected, tc.ok)
		}
	}
}
