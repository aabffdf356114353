// Package store contains the persistence boundaries of the sync core: the
// durable cache store and the remote city repository.
package store

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Category identifies an independently expiring cache bucket. No category's
// expiry affects another.
type Category string

const (
	CategoryWeather  Category = "weather"
	CategoryForecast Category = "forecast"
	CategoryCities   Category = "cities"
)

// TTLPolicy maps each category to its fixed time-to-live.
type TTLPolicy struct {
	Weather  time.Duration
	Forecast time.Duration
	Cities   time.Duration
}

// DefaultTTLPolicy matches the documented expiry: weather 10 minutes,
// forecast 30 minutes, city list 60 minutes.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Weather:  10 * time.Minute,
		Forecast: 30 * time.Minute,
		Cities:   time.Hour,
	}
}

// For returns the TTL of the given category.
func (p TTLPolicy) For(cat Category) time.Duration {
	switch cat {
	case CategoryWeather:
		return p.Weather
	case CategoryForecast:
		return p.Forecast
	case CategoryCities:
		return p.Cities
	default:
		return p.Weather
	}
}

// CacheStore is the durable key/expiry-stamped payload cache. Reads never
// return errors: a malformed or unreadable entry is a miss. Expired entries
// stay readable through GetStale so callers can fall back to stale data when
// a refresh fails.
type CacheStore interface {
	// Get decodes a fresh (non-expired) entry into dest and reports a hit.
	Get(ctx context.Context, cat Category, key string, dest interface{}) bool
	// GetStale decodes an entry of any age into dest and reports a hit.
	GetStale(ctx context.Context, cat Category, key string, dest interface{}) bool
	// Put stores payload stamped with the current time, overwriting any prior
	// entry for the key. The write is synchronous.
	Put(ctx context.Context, cat Category, key string, payload interface{})
	// Invalidate removes entries without waiting for natural expiry. With no
	// keys it removes the whole category.
	Invalidate(ctx context.Context, cat Category, keys ...string)
	// ClearAll wipes every category. No entry of any kind survives it.
	ClearAll(ctx context.Context) error
}

var cacheReads = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "glasscast_cache_reads_total",
	Help: "Cache read outcomes by category.",
}, []string{"category", "result"})

func observeCacheRead(cat Category, result string) {
	cacheReads.WithLabelValues(string(cat), result).Inc()
}
