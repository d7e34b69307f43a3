package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// reserveAttempt increments KEYS[1] and restarts its expiry unless it
// already holds ARGV[1]. It returns {count, taken}.
var reserveAttempt = redis.NewScript(`
	local n = tonumber(redis.call('GET', KEYS[1]) or '0')
	if n >= tonumber(ARGV[1]) then
		return {n, 0}
	end
	n = redis.call('INCR', KEYS[1])
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
	return {n, 1}
`)

// releaseAttempt decrements KEYS[1] if present and drops it at zero.
var releaseAttempt = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return 0
	end
	local n = redis.call('DECR', KEYS[1])
	if n <= 0 then
		redis.call('DEL', KEYS[1])
		return 0
	end
	return n
`)

// Reserve takes one attempt under key unless limit is reached.
func (s *Store) Reserve(ctx context.Context, key string, limit int64, window time.Duration) (int64, bool, error) {
	res, err := reserveAttempt.Run(ctx, s.client, []string{key}, limit, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("attempts reserve error: %w", err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("attempts reserve error: unexpected reply %v", res)
	}
	return res[0], res[1] == 1, nil
}

// Release returns one attempt under key.
func (s *Store) Release(ctx context.Context, key string) error {
	if err := releaseAttempt.Run(ctx, s.client, []string{key}).Err(); err != nil {
		return fmt.Errorf("attempts release error: %w", err)
	}
	return nil
}

// Reset deletes key.
func (s *Store) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("attempts reset error: %w", err)
	}
	return nil
}
