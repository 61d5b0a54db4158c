package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mailprobe/internal/models"
)

const redisKeyPrefix = "verdict:"

// Redis stores verdicts as JSON values with a native TTL, so expiry is
// handled by Redis itself and Purge has nothing to do.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to Redis and pings it to ensure it's alive.
func NewRedis(addr string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    "", // No password for local docker
		DB:          0,  // Default DB
		DialTimeout: 5 * time.Second,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Redis{client: client, ttl: TTL}, nil
}

func (r *Redis) Get(ctx context.Context, email string) (models.Verdict, bool, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+email).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Verdict{}, false, nil
	}
	if err != nil {
		return models.Verdict{}, false, fmt.Errorf("cache read failed: %w", err)
	}

	var v models.Verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		return models.Verdict{}, false, fmt.Errorf("cache entry corrupt: %w", err)
	}
	return v, true, nil
}

func (r *Redis) Put(ctx context.Context, email string, v models.Verdict) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode verdict: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+email, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	return nil
}

// Purge is a no-op; Redis evicts expired keys on its own.
func (r *Redis) Purge(ctx context.Context) (int64, error) {
	return 0, nil
}

func (r *Redis) Close() {
	r.client.Close()
}
