// Package ratelimit throttles outgoing requests per remote host.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter with a name for logging/debugging.
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// New creates a limiter allowing requestsPerSecond requests per second.
// Fractional rates are allowed (0.5 means one request every two seconds).
// The burst is the rate rounded up, at least one.
func New(name string, requestsPerSecond float64) *Limiter {
	burst := int(math.Ceil(requestsPerSecond))
	if burst < 1 {
		burst = 1
	}
	return NewWithBurst(name, requestsPerSecond, burst)
}

// NewWithBurst creates a new rate limiter with custom burst size.
func NewWithBurst(name string, requestsPerSecond float64, burst int) *Limiter {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	return &Limiter{
		limiter: rate.NewLimiter(limit, burst),
		name:    name,
	}
}

// Wait blocks until the rate limiter allows a request to proceed.
// Returns an error if the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", l.name, err)
	}
	return nil
}

// Allow reports whether a request can proceed without blocking.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Name returns the name of this rate limiter.
func (l *Limiter) Name() string {
	return l.name
}

// Registry hands out one limiter per host. Hosts without an explicit rate
// share the default rate, each with its own bucket.
type Registry struct {
	mu          sync.Mutex
	defaultRate float64
	rates       map[string]float64
	limiters    map[string]*Limiter
}

// NewRegistry creates a registry. A non-positive default disables
// throttling for hosts without an explicit rate.
func NewRegistry(defaultRate float64) *Registry {
	return &Registry{
		defaultRate: defaultRate,
		rates:       make(map[string]float64),
		limiters:    make(map[string]*Limiter),
	}
}

// SetRate configures the rate for host. It must be called before the first
// request to that host; later calls are ignored once a limiter exists.
func (r *Registry) SetRate(host string, requestsPerSecond float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.limiters[host]; exists {
		return
	}
	r.rates[host] = requestsPerSecond
}

// ForHost returns the limiter for host, creating it on first use.
func (r *Registry) ForHost(host string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[host]; ok {
		return l
	}
	rps, ok := r.rates[host]
	if !ok {
		rps = r.defaultRate
	}
	l := New(host, rps)
	r.limiters[host] = l
	return l
}
