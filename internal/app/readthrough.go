package app

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"storefront/internal/domain"
	"storefront/internal/metrics"
)

// List cache keys.
const (
	KeyClients  = "clients"
	KeyProducts = "products_list"
	KeyOrders   = "orders"
)

// invalidateTimeout bounds a post-commit invalidation once the request
// context is gone.
const invalidateTimeout = 2 * time.Second

// loadTimeout bounds a shared miss load. The load outlives any single
// caller, so it cannot run on a caller's context.
const loadTimeout = 10 * time.Second

// CacheTTLs holds the lifetime of each list snapshot.
type CacheTTLs struct {
	Clients  time.Duration
	Products time.Duration
	Orders   time.Duration
}

// DefaultCacheTTLs returns the stock lifetimes.
func DefaultCacheTTLs() CacheTTLs {
	return CacheTTLs{
		Clients:  60 * time.Second,
		Products: 300 * time.Second,
		Orders:   60 * time.Second,
	}
}

// readThrough serves one list from the cache and falls back to load on a
// miss. A populate only lands if no invalidation happened since the
// generation was read, so a slow reader cannot overwrite a newer write.
type readThrough[T any] struct {
	cache domain.ListCache
	key   string
	ttl   time.Duration
	load  func(ctx context.Context) ([]T, error)
	group singleflight.Group
	log   zerolog.Logger
}

func newReadThrough[T any](cache domain.ListCache, key string, ttl time.Duration, load func(context.Context) ([]T, error), log zerolog.Logger) *readThrough[T] {
	return &readThrough[T]{
		cache: cache,
		key:   key,
		ttl:   ttl,
		load:  load,
		log:   log.With().Str("key", key).Logger(),
	}
}

// Get returns the list, from the cache when possible.
func (r *readThrough[T]) Get(ctx context.Context) ([]T, error) {
	if items, ok := r.cached(ctx); ok {
		metrics.CacheHits.WithLabelValues(r.key).Inc()
		r.log.Debug().Msg("cache hit")
		return items, nil
	}
	metrics.CacheMisses.WithLabelValues(r.key).Inc()

	gen, err := r.cache.Generation(ctx, r.key)
	if err != nil {
		r.cacheError("generation", err)
		return r.fetch(ctx)
	}

	ch := r.group.DoChan(r.key+"@"+strconv.FormatInt(gen, 10), func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		items, err := r.fetch(ctx)
		if err != nil {
			return nil, err
		}
		r.populate(ctx, gen, items)
		return items, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		r.log.Debug().Int64("generation", gen).Bool("shared", res.Shared).Msg("cache miss")
		return res.Val.([]T), nil
	}
}

// Invalidate drops the snapshot after a committed write. Failures are
// logged and counted but never returned; the write already happened.
func (r *readThrough[T]) Invalidate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()

	if err := r.cache.Invalidate(ctx, r.key); err != nil {
		metrics.CacheErrors.WithLabelValues("invalidate").Inc()
		r.log.Error().Err(err).Str("op", "invalidate").Msg("cache invalidation failed")
		return
	}
	metrics.CacheInvalidations.WithLabelValues(r.key).Inc()
}

func (r *readThrough[T]) cached(ctx context.Context) ([]T, bool) {
	data, ok, err := r.cache.Get(ctx, r.key)
	if err != nil {
		r.cacheError("get", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		r.cacheError("decode", err)
		return nil, false
	}
	if items == nil {
		items = []T{}
	}
	return items, true
}

func (r *readThrough[T]) fetch(ctx context.Context) ([]T, error) {
	items, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (r *readThrough[T]) populate(ctx context.Context, gen int64, items []T) {
	data, err := json.Marshal(items)
	if err != nil {
		r.cacheError("encode", err)
		return
	}
	stored, err := r.cache.SetIfGeneration(ctx, r.key, gen, data, r.ttl)
	if err != nil {
		r.cacheError("set", err)
		return
	}
	if !stored {
		r.log.Debug().Int64("generation", gen).Msg("populate skipped, generation moved")
	}
}

func (r *readThrough[T]) cacheError(op string, err error) {
	metrics.CacheErrors.WithLabelValues(op).Inc()
	r.log.Warn().Err(err).Str("op", op).Msg("cache error, serving from store")
}
