// Package geo provides great-circle distance math for matching and fares.
package geo

import (
	"math"

	"dispatch/internal/domain"
)

// earthRadiusKm is the mean Earth radius used by the Haversine formula.
const earthRadiusKm = 6371.0

// DefaultDistanceKm is the last-resort fallback used when one of the
// coordinate pairs is unknown. Callers treat it as a degraded-mode signal,
// never as a measured value.
const DefaultDistanceKm = 10.0

// DistanceKm returns the Haversine great-circle distance between two points
// in kilometers.
func DistanceKm(a, b domain.Coordinate) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat + math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*sinLng*sinLng
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Between computes the distance between two optional points. When either is
// nil it returns DefaultDistanceKm and measured=false so that callers can
// surface the degraded mode instead of silently trusting the number.
func Between(a, b *domain.Coordinate) (km float64, measured bool) {
	if a == nil || b == nil {
		return DefaultDistanceKm, false
	}
	return DistanceKm(*a, *b), true
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
