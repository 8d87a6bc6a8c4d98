package tests

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/geo"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is a mock implementation of RideRepository, keyed by
// booking id.
type MockRideRepository struct {
	mu    sync.RWMutex
	rides map[string]*domain.Ride

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{
		rides: make(map[string]*domain.Ride),
	}
}

// AddRide adds a ride to the mock repository.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.BookingID] = ride
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.BookingID] = ride
	return nil
}

func (m *MockRideRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[bookingID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *ride
	return &copy, nil
}

func (m *MockRideRepository) GetByCustomerID(ctx context.Context, customerID string) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Ride
	for _, r := range m.rides {
		if r.CustomerID == customerID {
			copy := *r
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RequestedAt.After(result[j].RequestedAt) })
	return result, nil
}

func (m *MockRideRepository) GetByStatus(ctx context.Context, status domain.RideStatus) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Ride
	for _, r := range m.rides {
		if r.Status == status {
			copy := *r
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RequestedAt.Before(result[j].RequestedAt) })
	return result, nil
}

func (m *MockRideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[ride.BookingID]; !ok {
		return repository.ErrNotFound
	}
	copy := *ride
	m.rides[ride.BookingID] = &copy
	return nil
}

// GetRide returns the ride by booking id (for test assertions).
func (m *MockRideRepository) GetRide(bookingID string) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rides[bookingID]
}

// CountRides returns the number of rides.
func (m *MockRideRepository) CountRides() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rides)
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers: make(map[string]*domain.Driver),
	}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

func (m *MockDriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *driver
	m.drivers[driver.ID] = &copy
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *driver
	return &copy, nil
}

func (m *MockDriverRepository) GetOnlineAvailable(ctx context.Context) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Driver
	for _, d := range m.drivers {
		if d.IsOnline && d.IsAvailable {
			copy := *d
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockDriverRepository) Update(ctx context.Context, driver *domain.Driver) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drivers[driver.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *driver
	m.drivers[driver.ID] = &copy
	return nil
}

// GetDriver returns the driver for test assertions.
func (m *MockDriverRepository) GetDriver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[id]
}

// ──────────────────────────────────────────────
// MOCK PROMO REPOSITORY
// ──────────────────────────────────────────────

// MockPromoRepository is a mock implementation of PromoRepository. The
// check-and-increment in ConsumeUsage happens under one mutex hold, which
// mirrors the atomicity of the SQL implementation.
type MockPromoRepository struct {
	mu     sync.Mutex
	promos map[string]*domain.PromoCode

	// Counters for verification
	ConsumeCallCount int32

	// Error injection
	ConsumeError error
}

// NewMockPromoRepository creates a new mock promo repository.
func NewMockPromoRepository() *MockPromoRepository {
	return &MockPromoRepository{
		promos: make(map[string]*domain.PromoCode),
	}
}

// AddPromo adds a promo code to the mock repository.
func (m *MockPromoRepository) AddPromo(promo *domain.PromoCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promos[upper(promo.Code)] = promo
}

func (m *MockPromoRepository) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	promo, ok := m.promos[upper(code)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *promo
	return &copy, nil
}

func (m *MockPromoRepository) ConsumeUsage(ctx context.Context, code string, now time.Time) (*domain.PromoCode, error) {
	atomic.AddInt32(&m.ConsumeCallCount, 1)
	if m.ConsumeError != nil {
		return nil, m.ConsumeError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	promo, ok := m.promos[upper(code)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !promo.Usable(now) {
		return nil, repository.ErrUsageExhausted
	}
	promo.UsedCount++
	copy := *promo
	return &copy, nil
}

// GetPromo returns the promo for test assertions.
func (m *MockPromoRepository) GetPromo(code string) *domain.PromoCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.promos[upper(code)]
}

func upper(s string) string {
	return strings.ToUpper(s)
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is an in-memory LockStoreInterface with SetNX semantics.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]bool

	// Counters for verification
	AcquireCallCount int32

	// Error injection
	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]bool)}
}

var _ redis.LockStoreInterface = (*MockLockStore)(nil)

func (m *MockLockStore) acquire(key string) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[key] {
		return false, nil
	}
	m.locks[key] = true
	return true, nil
}

func (m *MockLockStore) release(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}

func (m *MockLockStore) AcquireRideLock(ctx context.Context, bookingID string, ttl time.Duration) (bool, error) {
	return m.acquire("ride:" + bookingID)
}

func (m *MockLockStore) ReleaseRideLock(ctx context.Context, bookingID string) error {
	return m.release("ride:" + bookingID)
}

func (m *MockLockStore) AcquireDriverLock(ctx context.Context, driverID string, ttl time.Duration) (bool, error) {
	return m.acquire("driver:" + driverID)
}

func (m *MockLockStore) ReleaseDriverLock(ctx context.Context, driverID string) error {
	return m.release("driver:" + driverID)
}

// HoldRideLock grabs a ride lock out-of-band so tests can simulate
// contention.
func (m *MockLockStore) HoldRideLock(bookingID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks["ride:"+bookingID] = true
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is an in-memory LocationStoreInterface computing real
// Haversine distances.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations map[string]domain.Coordinate

	// Error injection
	FindError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{locations: make(map[string]domain.Coordinate)}
}

var _ redis.LocationStoreInterface = (*MockLocationStore)(nil)

func (m *MockLocationStore) UpdateLocation(ctx context.Context, driverID string, loc domain.Coordinate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[driverID] = loc
	return nil
}

func (m *MockLocationStore) FindNearbyDrivers(ctx context.Context, center domain.Coordinate, radiusKm float64) ([]redis.DriverLocation, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		loc redis.DriverLocation
		km  float64
	}
	var nearby []scored
	for id, loc := range m.locations {
		km := geo.DistanceKm(loc, center)
		if km <= radiusKm {
			nearby = append(nearby, scored{
				loc: redis.DriverLocation{DriverID: id, Lat: loc.Lat, Lng: loc.Lng},
				km:  km,
			})
		}
	}
	sort.Slice(nearby, func(i, j int) bool { return nearby[i].km < nearby[j].km })

	result := make([]redis.DriverLocation, len(nearby))
	for i, n := range nearby {
		result[i] = n.loc
	}
	return result, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, driverID)
	return nil
}

// HasLocation reports whether the driver is in the index.
func (m *MockLocationStore) HasLocation(driverID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.locations[driverID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK NOTIFIER
// ──────────────────────────────────────────────

// MockNotifier records every push for assertions.
type MockNotifier struct {
	mu          sync.Mutex
	offers      map[string][]service.RideOffer
	updates     map[string][]service.RideUpdate
	emergencies []service.EmergencyAlert

	// Counters for verification
	OfferCallCount     int32
	UpdateCallCount    int32
	EmergencyCallCount int32
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{
		offers:  make(map[string][]service.RideOffer),
		updates: make(map[string][]service.RideUpdate),
	}
}

var _ service.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) PushOfferToDriver(ctx context.Context, driverID string, offer service.RideOffer) {
	atomic.AddInt32(&m.OfferCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offers[driverID] = append(m.offers[driverID], offer)
}

func (m *MockNotifier) PushRideUpdate(ctx context.Context, userID string, update service.RideUpdate) {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates[userID] = append(m.updates[userID], update)
}

func (m *MockNotifier) PushEmergency(ctx context.Context, alert service.EmergencyAlert) {
	atomic.AddInt32(&m.EmergencyCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emergencies = append(m.emergencies, alert)
}

// OffersTo returns the offers pushed to one driver.
func (m *MockNotifier) OffersTo(driverID string) []service.RideOffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]service.RideOffer(nil), m.offers[driverID]...)
}

// UpdatesFor returns the updates pushed to one user.
func (m *MockNotifier) UpdatesFor(userID string) []service.RideUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]service.RideUpdate(nil), m.updates[userID]...)
}

// Emergencies returns every emergency alert pushed.
func (m *MockNotifier) Emergencies() []service.EmergencyAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]service.EmergencyAlert(nil), m.emergencies...)
}
