package service

import (
	"math"

	"github.com/sirupsen/logrus"

	"dispatch/internal/domain"
	"dispatch/internal/geo"
)

// DefaultRatePerKm is the distance rate used when none is configured.
const DefaultRatePerKm = 10.0

// FareCalculator computes ride fares: a fixed base per vehicle class plus a
// distance-proportional component.
type FareCalculator struct {
	ratePerKm float64
	log       *logrus.Logger
}

// NewFareCalculator creates a FareCalculator. A non-positive rate falls back
// to DefaultRatePerKm.
func NewFareCalculator(ratePerKm float64, log *logrus.Logger) *FareCalculator {
	if ratePerKm <= 0 {
		ratePerKm = DefaultRatePerKm
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FareCalculator{ratePerKm: ratePerKm, log: log}
}

// BaseFare returns the fixed fare component for a vehicle class. Unknown
// classes fall into the same bucket as Auto.
func (f *FareCalculator) BaseFare(class domain.VehicleClass) float64 {
	switch {
	case class.Equal(domain.VehicleShare):
		return 30
	case class.Equal(domain.VehicleBike):
		return 40
	case class.Equal(domain.VehicleAuto):
		return 50
	case class.Equal(domain.VehicleCar):
		return 80
	default:
		return 50
	}
}

// Quote computes the fare for a trip: base fare plus Haversine distance
// times the per-km rate. A missing coordinate degrades the distance to the
// 10 km fallback; that is logged rather than hidden.
func (f *FareCalculator) Quote(class domain.VehicleClass, pickup, drop *domain.Coordinate) float64 {
	distanceKm, measured := geo.Between(pickup, drop)
	if !measured {
		f.log.WithFields(logrus.Fields{
			"vehicle_class": class,
			"distance_km":   distanceKm,
		}).Warn("quote computed with fallback distance, itinerary coordinates missing")
	}
	return f.BaseFare(class) + distanceKm*f.ratePerKm
}

// ApplyPromo computes the discounted fare for an already-validated promo.
// The discount is DiscountPercent of the fare, capped at MaxDiscount when
// set; both results are rounded to 2 decimal places, half up.
func (f *FareCalculator) ApplyPromo(fare float64, promo *domain.PromoCode) (finalFare, discount float64) {
	discount = fare * promo.DiscountPercent / 100
	if promo.MaxDiscount != nil && discount > *promo.MaxDiscount {
		discount = *promo.MaxDiscount
	}
	discount = round2(discount)
	return round2(fare - discount), discount
}

// round2 rounds to 2 decimal places, half away from zero; for the
// non-negative amounts used here that is round-half-up.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
