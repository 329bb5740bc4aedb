// Package ratelimit provides a sliding-window rate limiter keyed on
// the calling client, with per-endpoint limit configuration attached
// through huma operation metadata.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// MetadataKey is the key used to store rate limit config in operation
// metadata.
const MetadataKey = "rateLimit"

// LimitConfig is one window/ceiling pair.
type LimitConfig struct {
	Window time.Duration
	Max    int64
}

// EndpointConfig defines per-endpoint rate limit configuration,
// attached to huma operations via the Metadata field.
type EndpointConfig struct {
	// Limits replaces the default limits for this endpoint.
	Limits []LimitConfig

	// Disabled skips rate limiting entirely for this endpoint.
	Disabled bool
}

// Store defines the interface for rate limit data storage.
type Store interface {
	// Record records a request and returns the count of requests in
	// the current window, pruning expired entries.
	Record(ctx context.Context, key string, window time.Duration) (count int64, err error)
}

// Exceeded describes which limit was hit.
type Exceeded struct {
	Config LimitConfig
	Count  int64
}

// SlidingWindowLimiter checks a client key against a set of
// window/ceiling pairs backed by a Store.
type SlidingWindowLimiter struct {
	store    Store
	defaults []LimitConfig
}

// NewSlidingWindowLimiter creates a limiter with default limits used
// when an endpoint carries no configuration of its own.
func NewSlidingWindowLimiter(store Store, defaults []LimitConfig) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		store:    store,
		defaults: defaults,
	}
}

// Allow checks all given limits for the client key; nil limits means
// the defaults. It returns false plus details when any limit is hit.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, clientKey string, limits []LimitConfig) (bool, *Exceeded, error) {
	if limits == nil {
		limits = l.defaults
	}

	for _, limit := range limits {
		// Key combines client + window for independent tracking
		key := fmt.Sprintf("%s:%d", clientKey, limit.Window.Milliseconds())

		count, err := l.store.Record(ctx, key, limit.Window)
		if err != nil {
			return false, nil, err
		}

		if count > limit.Max {
			return false, &Exceeded{Config: limit, Count: count}, nil
		}
	}

	return true, nil, nil
}
