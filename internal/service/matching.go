package service

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"dispatch/internal/domain"
	"dispatch/internal/geo"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// DefaultSearchRadiusKm is the proximity radius used when none is configured.
const DefaultSearchRadiusKm = 10.0

// MatchingEngine selects the set of drivers to offer a ride to. The result
// is a push list: the dispatcher notifies every candidate at once, and the
// race between them is resolved by the ride lifecycle's guarded accept, not
// here.
type MatchingEngine struct {
	driverRepo    repository.DriverRepository
	locationStore redis.LocationStoreInterface
	radiusKm      float64
	log           *logrus.Logger
}

// NewMatchingEngine creates a MatchingEngine. locationStore may be nil;
// without it every proximity check falls back to the presence records.
func NewMatchingEngine(
	driverRepo repository.DriverRepository,
	locationStore redis.LocationStoreInterface,
	radiusKm float64,
	log *logrus.Logger,
) *MatchingEngine {
	if radiusKm <= 0 {
		radiusKm = DefaultSearchRadiusKm
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MatchingEngine{
		driverRepo:    driverRepo,
		locationStore: locationStore,
		radiusKm:      radiusKm,
		log:           log,
	}
}

// CandidateRequest describes the ride being dispatched.
type CandidateRequest struct {
	Pickup       *domain.Coordinate
	VehicleClass domain.VehicleClass // empty matches any class
	RadiusKm     float64             // 0 uses the engine default
}

// Candidates returns the ordered driver ids to notify for a request:
// online, available, eligible drivers of the matching vehicle class, within
// the radius of the pickup and sorted nearest first. When nobody with a
// known location is within the radius, the full type-matching set is
// returned unsorted instead; a request is never offered to a mismatched
// vehicle class.
func (e *MatchingEngine) Candidates(ctx context.Context, req CandidateRequest) ([]string, error) {
	radiusKm := req.RadiusKm
	if radiusKm <= 0 {
		radiusKm = e.radiusKm
	}

	pool, err := e.typeMatchingPool(ctx, req.VehicleClass)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 || req.Pickup == nil {
		return driverIDs(pool), nil
	}

	// Fast path: the geo index already returns nearest-first.
	if e.locationStore != nil {
		if ids := e.nearbyFromIndex(ctx, pool, *req.Pickup, radiusKm); len(ids) > 0 {
			return ids, nil
		}
	}

	type scored struct {
		id string
		km float64
	}
	var within []scored
	for _, d := range pool {
		if d.Location == nil {
			continue
		}
		km := geo.DistanceKm(*d.Location, *req.Pickup)
		if km <= radiusKm {
			within = append(within, scored{id: d.ID, km: km})
		}
	}

	if len(within) == 0 {
		// Nobody location-qualified: widen to everyone of the right class
		// rather than spamming other vehicle types.
		return driverIDs(pool), nil
	}

	sort.Slice(within, func(i, j int) bool { return within[i].km < within[j].km })
	ids := make([]string, len(within))
	for i, s := range within {
		ids[i] = s.id
	}
	return ids, nil
}

// typeMatchingPool returns online, available, eligible drivers whose class
// matches the request. An unset class matches everyone.
func (e *MatchingEngine) typeMatchingPool(ctx context.Context, class domain.VehicleClass) ([]*domain.Driver, error) {
	drivers, err := e.driverRepo.GetOnlineAvailable(ctx)
	if err != nil {
		return nil, err
	}

	pool := make([]*domain.Driver, 0, len(drivers))
	for _, d := range drivers {
		if !d.Eligible() || d.CurrentRideID != "" {
			continue
		}
		if class != "" && !d.VehicleClass.Equal(class) {
			continue
		}
		pool = append(pool, d)
	}
	return pool, nil
}

// nearbyFromIndex intersects the geo index's nearest-first result with the
// type-matching pool. Index errors degrade to the record-based path.
func (e *MatchingEngine) nearbyFromIndex(ctx context.Context, pool []*domain.Driver, pickup domain.Coordinate, radiusKm float64) []string {
	nearby, err := e.locationStore.FindNearbyDrivers(ctx, pickup, radiusKm)
	if err != nil {
		e.log.WithError(err).Warn("geo index lookup failed, falling back to presence records")
		return nil
	}

	inPool := make(map[string]bool, len(pool))
	for _, d := range pool {
		inPool[d.ID] = true
	}

	var ids []string
	for _, loc := range nearby {
		if inPool[loc.DriverID] {
			ids = append(ids, loc.DriverID)
		}
	}
	return ids
}

func driverIDs(drivers []*domain.Driver) []string {
	ids := make([]string, len(drivers))
	for i, d := range drivers {
		ids[i] = d.ID
	}
	return ids
}
