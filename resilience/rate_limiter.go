package resilience

import (
	"sync"
	"time"

	"github.com/kbukum/failsafe/clock"
)

// RateLimitConfig configures a fixed-window rate limiter.
type RateLimitConfig struct {
	// Limit is the number of calls allowed per window and key.
	Limit int `mapstructure:"limit" validate:"min=1"`
	// Window is the window length.
	Window time.Duration `mapstructure:"window" validate:"gt=0"`
}

// DefaultRateLimitConfig allows 100 calls per minute.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Limit: 100, Window: time.Minute}
}

// ApplyDefaults fills zero values.
func (c *RateLimitConfig) ApplyDefaults() {
	d := DefaultRateLimitConfig()
	if c.Limit <= 0 {
		c.Limit = d.Limit
	}
	if c.Window <= 0 {
		c.Window = d.Window
	}
}

type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter counts calls per key in fixed windows. A key's window starts
// at its first call and resets once it expires.
type RateLimiter struct {
	config RateLimitConfig
	clock  clock.Clock

	mu      sync.Mutex
	windows map[string]*window
}

// NewRateLimiter creates a rate limiter.
func NewRateLimiter(config RateLimitConfig, clk clock.Clock) *RateLimiter {
	config.ApplyDefaults()
	if clk == nil {
		clk = clock.New()
	}
	return &RateLimiter{
		config:  config,
		clock:   clk,
		windows: make(map[string]*window),
	}
}

// Config returns the effective configuration.
func (rl *RateLimiter) Config() RateLimitConfig { return rl.config }

// Allow records a call for key and reports whether it is within the limit.
// Rejected calls do not count against the window.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	w, ok := rl.windows[key]
	if !ok || !now.Before(w.resetAt) {
		rl.windows[key] = &window{count: 1, resetAt: now.Add(rl.config.Window)}
		return true
	}
	if w.count >= rl.config.Limit {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many calls key may still make in its current window.
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	if !ok || !rl.clock.Now().Before(w.resetAt) {
		return rl.config.Limit
	}
	return rl.config.Limit - w.count
}

// Reset forgets key's window.
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.windows, key)
}

// Prune drops expired windows and returns how many were removed.
func (rl *RateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	removed := 0
	for k, w := range rl.windows {
		if !now.Before(w.resetAt) {
			delete(rl.windows, k)
			removed++
		}
	}
	return removed
}
