package routing

import (
	"context"
	"log"
	"time"

	"github.com/puertolima/puertolima_core/internal/cache"
	"github.com/puertolima/puertolima_core/internal/models"
)

// CachedResolver decorates a provider-backed resolver with the shared route
// cache. Cache failures degrade to a direct provider call; a comparison is
// never blocked on Redis.
type CachedResolver struct {
	Provider Resolver
	Profile  string
	TTL      time.Duration
	MutexTTL time.Duration
}

// NewCachedResolver wraps a provider resolver with cache settings from the
// environment
func NewCachedResolver(provider Resolver, profile string) *CachedResolver {
	config := cache.LoadConfigFromEnv()
	return &CachedResolver{
		Provider: provider,
		Profile:  profile,
		TTL:      config.TTL,
		MutexTTL: config.MutexTTL,
	}
}

func (c *CachedResolver) Resolve(ctx context.Context, origin models.Coordinate, port models.Port) (models.RouteResult, error) {
	key := cache.RouteKey(origin.Lat, origin.Lon, port.Lat, port.Lon, c.Profile)

	cached, err := cache.GetRoute(ctx, key)
	if err != nil {
		log.Printf("Route cache read failed: %v", err)
	}
	if cached != nil {
		// The port tag is not serialized; restore it from the call site.
		cached.Port = port.ID
		return *cached, nil
	}

	lockKey := cache.LockKey(key)
	locked, err := cache.AcquireLock(ctx, lockKey, c.MutexTTL)
	if err != nil {
		log.Printf("Route cache lock failed: %v", err)
		return c.Provider.Resolve(ctx, origin, port)
	}

	if !locked {
		// Another request is resolving the same route; wait for its result
		// instead of duplicating the provider call.
		if waited, err := cache.WaitForLock(ctx, key, c.MutexTTL); err == nil && waited != nil {
			waited.Port = port.ID
			return *waited, nil
		}
		return c.Provider.Resolve(ctx, origin, port)
	}

	defer func() {
		if err := cache.ReleaseLock(ctx, lockKey); err != nil {
			log.Printf("Route cache unlock failed: %v", err)
		}
	}()

	result, err := c.Provider.Resolve(ctx, origin, port)
	if err != nil {
		return models.RouteResult{}, err
	}

	// Only provider-confirmed routes are worth keeping.
	if result.Source == models.SourceProvider {
		if err := cache.SetRoute(ctx, key, &result, c.TTL); err != nil {
			log.Printf("Route cache write failed: %v", err)
		}
	}

	return result, nil
}
