package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	followersCountKeyPrefix = "social:followers:"
	followingCountKeyPrefix = "social:following:"
)

// CountStore defines Redis operations for caching follower and following
// counts.
type CountStore interface {
	GetFollowersCount(ctx context.Context, userID string) (int64, bool, error)
	SetFollowersCount(ctx context.Context, userID string, count int64) error
	CondIncrFollowersCount(ctx context.Context, userID string) error
	CondDecrFollowersCount(ctx context.Context, userID string) error
	GetFollowingCount(ctx context.Context, userID string) (int64, bool, error)
	SetFollowingCount(ctx context.Context, userID string, count int64) error
	CondIncrFollowingCount(ctx context.Context, userID string) error
	CondDecrFollowingCount(ctx context.Context, userID string) error
	Close() error
}

// RedisCountStore implements CountStore backed by Redis.
type RedisCountStore struct {
	client *redis.Client
}

// NewRedisCountStore creates a new Redis-backed count store.
func NewRedisCountStore(address, password string, db int) (*RedisCountStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCountStore{client: client}, nil
}

func followersCountKey(userID string) string {
	return followersCountKeyPrefix + userID
}

func followingCountKey(userID string) string {
	return followingCountKeyPrefix + userID
}

// condIncrScript atomically increments the key only if it exists.
// Returns 1 if incremented, 0 if key did not exist.
var condIncrScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
  return redis.call("INCR", key)
end
return 0
`)

// condDecrScript atomically decrements the key only if it exists and result >= 0.
// Returns the new value if decremented, 0 if key did not exist.
var condDecrScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
  local val = tonumber(redis.call("GET", key))
  if val and val > 0 then
    return redis.call("DECR", key)
  end
end
return 0
`)

func (s *RedisCountStore) getCount(ctx context.Context, key string) (int64, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis get count: %w", err)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse cached count: %w", err)
	}
	return count, true, nil
}

func (s *RedisCountStore) condIncr(ctx context.Context, key string) error {
	err := condIncrScript.Run(ctx, s.client, []string{key}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis cond incr count: %w", err)
	}
	return nil
}

func (s *RedisCountStore) condDecr(ctx context.Context, key string) error {
	err := condDecrScript.Run(ctx, s.client, []string{key}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis cond decr count: %w", err)
	}
	return nil
}

// GetFollowersCount returns the cached follower count for a user.
// Returns (count, true, nil) on hit, (0, false, nil) on miss, (0, false, err) on error.
func (s *RedisCountStore) GetFollowersCount(ctx context.Context, userID string) (int64, bool, error) {
	return s.getCount(ctx, followersCountKey(userID))
}

// SetFollowersCount sets the follower count for a user in Redis.
func (s *RedisCountStore) SetFollowersCount(ctx context.Context, userID string, count int64) error {
	if err := s.client.Set(ctx, followersCountKey(userID), count, 0).Err(); err != nil {
		return fmt.Errorf("redis set followers count: %w", err)
	}
	return nil
}

// CondIncrFollowersCount atomically increments the follower count only if
// the key exists, so a cold cache is never seeded with a partial value.
func (s *RedisCountStore) CondIncrFollowersCount(ctx context.Context, userID string) error {
	return s.condIncr(ctx, followersCountKey(userID))
}

// CondDecrFollowersCount atomically decrements the follower count only if
// the key exists.
func (s *RedisCountStore) CondDecrFollowersCount(ctx context.Context, userID string) error {
	return s.condDecr(ctx, followersCountKey(userID))
}

// GetFollowingCount returns the cached following count for a user.
func (s *RedisCountStore) GetFollowingCount(ctx context.Context, userID string) (int64, bool, error) {
	return s.getCount(ctx, followingCountKey(userID))
}

// SetFollowingCount sets the following count for a user in Redis.
func (s *RedisCountStore) SetFollowingCount(ctx context.Context, userID string, count int64) error {
	if err := s.client.Set(ctx, followingCountKey(userID), count, 0).Err(); err != nil {
		return fmt.Errorf("redis set following count: %w", err)
	}
	return nil
}

// CondIncrFollowingCount atomically increments the following count only if
// the key exists.
func (s *RedisCountStore) CondIncrFollowingCount(ctx context.Context, userID string) error {
	return s.condIncr(ctx, followingCountKey(userID))
}

// CondDecrFollowingCount atomically decrements the following count only if
// the key exists.
func (s *RedisCountStore) CondDecrFollowingCount(ctx context.Context, userID string) error {
	return s.condDecr(ctx, followingCountKey(userID))
}

// Close closes the Redis client.
func (s *RedisCountStore) Close() error {
	return s.client.Close()
}

// Ensure interface is satisfied at compile time.
var _ CountStore = (*RedisCountStore)(nil)
