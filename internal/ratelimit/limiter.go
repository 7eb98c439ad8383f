// Package ratelimit bounds outbound request rate to LLM vendors, keyed by
// provider name, ahead of the retry layer in internal/llm (spec §5:
// "internal HTTP pool bounded by max_connections").
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Config configures a single provider's rate limit.
type Config struct {
	// RequestsPerSecond is the sustained request rate allowed to a vendor.
	RequestsPerSecond float64
	// Burst is the maximum number of requests admitted instantaneously.
	Burst int
	// Enabled controls whether limiting is active; false is a pass-through.
	Enabled bool
}

// DefaultConfig returns a permissive default suitable for a single vendor.
func DefaultConfig() Config {
	return Config{RequestsPerSecond: 10, Burst: 20, Enabled: true}
}

// Limiter manages an independent golang.org/x/time/rate.Limiter per key
// (vendor/provider name), so one provider's bursts never borrow capacity
// from another's.
type Limiter struct {
	mu       sync.Mutex
	cfg      Config
	limiters map[string]*rate.Limiter
}

// NewLimiter returns a Limiter applying cfg to every key it sees.
func NewLimiter(cfg Config) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RequestsPerSecond * 2)
	}
	return &Limiter{cfg: cfg, limiters: make(map[string]*rate.Limiter)}
}

// Wait blocks until key's limiter admits one request, or ctx is done. A
// disabled Limiter returns immediately.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	if !l.cfg.Enabled {
		return nil
	}
	return l.bucket(key).Wait(ctx)
}

// Allow reports whether a request for key is admitted right now.
func (l *Limiter) Allow(key string) bool {
	if !l.cfg.Enabled {
		return true
	}
	return l.bucket(key).Allow()
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.limiters[key]
	if !ok {
		b = rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)
		l.limiters[key] = b
	}
	return b
}
