package provider

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Default rate limits per provider (requests per second). The Google
// APIs allow far more, but the pipeline is strictly sequential and a
// conservative budget keeps re-runs well inside every quota.
var defaultRateLimits = map[Name]rate.Limit{
	NameSpotify:      5,
	NameAudioDB:      2,
	NameLastFM:       5,
	NameGoogleMaps:   10,
	NameGooglePlaces: 10,
}

// RateLimiterMap holds one rate.Limiter per provider, created once at
// startup and shared by every adapter.
type RateLimiterMap struct {
	mu       sync.RWMutex
	limiters map[Name]*rate.Limiter
}

// NewRateLimiterMap creates all provider rate limiters.
func NewRateLimiterMap() *RateLimiterMap {
	m := &RateLimiterMap{
		limiters: make(map[Name]*rate.Limiter, len(defaultRateLimits)),
	}
	for name, limit := range defaultRateLimits {
		m.limiters[name] = rate.NewLimiter(limit, 1)
	}
	return m
}

// Wait blocks until the rate limiter for the given provider allows a
// request, or the context is canceled. Unknown providers pass through.
func (m *RateLimiterMap) Wait(ctx context.Context, name Name) error {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}
