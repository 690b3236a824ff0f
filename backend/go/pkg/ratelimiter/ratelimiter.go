package ratelimiter

import (
	"fmt"
	"time"
)

// RateLimiter decides whether a single request may proceed.
type RateLimiter interface {
	// Allow returns true if the request is allowed, otherwise returns false.
	Allow() bool
}

// Algorithm names accepted by NewFactory.
const (
	AlgorithmTokenBucket = "tokenBucket"
	AlgorithmFixedWindow = "fixedWindow"
)

// Settings selects and parameterises a limiter algorithm.
type Settings struct {
	Algorithm string
	// tokenBucket
	Rate     float64
	Capacity int
	// fixedWindow
	Limit  int
	Window time.Duration
}

// Factory builds a fresh limiter. Per-key limiting calls it once per key.
type Factory func() RateLimiter

// NewFactory validates s and returns a Factory for it. An empty algorithm
// means tokenBucket.
func NewFactory(s Settings) (Factory, error) {
	switch s.Algorithm {
	case "", AlgorithmTokenBucket:
		if s.Rate <= 0 || s.Capacity <= 0 {
			return nil, fmt.Errorf("tokenBucket needs positive rate and capacity, got %v/%d", s.Rate, s.Capacity)
		}
		return func() RateLimiter { return NewTokenBucket(s.Rate, s.Capacity) }, nil
	case AlgorithmFixedWindow:
		if s.Limit <= 0 || s.Window <= 0 {
			return nil, fmt.Errorf("fixedWindow needs positive limit and window, got %d/%s", s.Limit, s.Window)
		}
		return func() RateLimiter { return NewFixedWindowCounter(s.Limit, s.Window) }, nil
	default:
		return nil, fmt.Errorf("unknown rate limiter algorithm: %s", s.Algorithm)
	}
}
