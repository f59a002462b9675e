package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix is the Redis key prefix for rate limit windows.
const keyPrefix = "ratelimit:"

// fixedWindowScript increments the window counter and starts its expiry on
// the first hit. It returns the hit count and the window's remaining ms.
var fixedWindowScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	if ttl < 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
		ttl = tonumber(ARGV[1])
	end
	return {count, ttl}
`)

// Redis is a fixed-window limiter shared by every process using the same server.
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

var _ Limiter = (*Redis)(nil)

// NewRedis connects to redisURL and verifies the connection.
func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Connection pool settings
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return &Redis{client: client, now: time.Now}, nil
}

func (r *Redis) Allow(ctx context.Context, key string, rule Rule) (Result, error) {
	now := r.now()
	res, err := fixedWindowScript.Run(ctx, r.client,
		[]string{redisKey(rule, key)},
		rule.Window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 2 {
		return Result{}, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}

	resetAt := now.Add(time.Duration(res[1]) * time.Millisecond)
	return newResult(rule, int(res[0]), resetAt, now), nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// redisKey hashes the caller key so raw client addresses are not stored.
func redisKey(rule Rule, key string) string {
	sum := sha256.Sum256([]byte(key))
	return keyPrefix + rule.String() + ":" + hex.EncodeToString(sum[:8])
}
