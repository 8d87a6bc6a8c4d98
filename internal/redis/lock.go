package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis. Ride locks serialize the
// acceptance race per booking id; driver locks serialize availability
// mutations per driver. Both are try-locks: callers that fail to acquire do
// not wait.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireRideLock attempts to acquire the lock for the given booking id.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireRideLock(ctx context.Context, bookingID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:ride:%s", bookingID)
	return s.client.SetNX(ctx, key, "1", ttl).Result()
}

// ReleaseRideLock releases the lock for the given booking id.
func (s *LockStore) ReleaseRideLock(ctx context.Context, bookingID string) error {
	key := fmt.Sprintf("lock:ride:%s", bookingID)
	return s.client.Del(ctx, key).Err()
}

// AcquireDriverLock attempts to acquire the lock for the given driver.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireDriverLock(ctx context.Context, driverID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:driver:%s", driverID)
	return s.client.SetNX(ctx, key, "1", ttl).Result()
}

// ReleaseDriverLock releases the lock for the given driver.
func (s *LockStore) ReleaseDriverLock(ctx context.Context, driverID string) error {
	key := fmt.Sprintf("lock:driver:%s", driverID)
	return s.client.Del(ctx, key).Err()
}
