package domain

import (
	"context"
	"time"
)

// ListCache stores encoded list snapshots next to a per-key generation
// counter. Entries are disposable; the store stays authoritative.
type ListCache interface {
	// Get returns the cached bytes and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Generation returns the current generation of key, 0 if never
	// invalidated.
	Generation(ctx context.Context, key string) (int64, error)
	// SetIfGeneration stores value with ttl only while key's generation
	// still equals gen, reporting whether it did.
	SetIfGeneration(ctx context.Context, key string, gen int64, value []byte, ttl time.Duration) (bool, error)
	// Invalidate drops key and advances its generation atomically.
	Invalidate(ctx context.Context, key string) error
}

// AttemptCounter counts login attempts per key inside a sliding window.
type AttemptCounter interface {
	// Reserve atomically takes one attempt unless key already holds limit
	// attempts. A taken attempt restarts the window. It returns the count
	// after the call and whether the attempt was taken.
	Reserve(ctx context.Context, key string, limit int64, window time.Duration) (int64, bool, error)
	// Release returns one reserved attempt.
	Release(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}
