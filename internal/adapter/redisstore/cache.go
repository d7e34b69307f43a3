package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// setIfGeneration writes KEYS[1] only while KEYS[2] (the generation
// counter, absent meaning 0) still equals ARGV[1].
var setIfGeneration = redis.NewScript(`
	local gen = redis.call('GET', KEYS[2])
	if gen == false then
		gen = '0'
	end
	if gen ~= ARGV[1] then
		return 0
	end
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
	return 1
`)

func genKey(key string) string {
	return key + ":gen"
}

// Get returns the cached value for key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get error: %w", err)
	}
	return data, true, nil
}

// Generation returns the current generation of key.
func (s *Store) Generation(ctx context.Context, key string) (int64, error) {
	gen, err := s.client.Get(ctx, genKey(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("cache generation error: %w", err)
	}
	return gen, nil
}

// SetIfGeneration stores value with ttl if key's generation equals gen.
func (s *Store) SetIfGeneration(ctx context.Context, key string, gen int64, value []byte, ttl time.Duration) (bool, error) {
	ms := ttl.Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	stored, err := setIfGeneration.Run(ctx, s.client, []string{key, genKey(key)}, gen, value, ms).Int64()
	if err != nil {
		return false, fmt.Errorf("cache set error: %w", err)
	}
	return stored == 1, nil
}

// Invalidate deletes key and bumps its generation in one MULTI block.
func (s *Store) Invalidate(ctx context.Context, key string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.Incr(ctx, genKey(key))
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache invalidate error: %w", err)
	}
	return nil
}
