// ratelimit.go provides Gin middleware that enforces per-client sliding-window
// rate limits, returning 429 responses when the configured requests-per-minute
// threshold is exceeded.
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/autoescola-ideal/sistema-interno/internal/config"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// RequestsPerMinute is the maximum number of requests allowed in any
	// rolling one-minute window
	RequestsPerMinute int
	// Burst is the maximum number of requests allowed in any rolling
	// one-second window, smoothing out short spikes
	Burst int
	// CleanupInterval is how often to clean up idle entries
	CleanupInterval time.Duration
}

// DefaultRateLimitConfig returns general API limits, overridable via config
func DefaultRateLimitConfig(cfg config.RateLimitingConfig) RateLimitConfig {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 100
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 10
	}
	return RateLimitConfig{
		RequestsPerMinute: rpm,
		Burst:             burst,
		CleanupInterval:   5 * time.Minute,
	}
}

// LoginRateLimitConfig returns stricter limits for the login endpoint
func LoginRateLimitConfig(cfg config.RateLimitingConfig) RateLimitConfig {
	rpm := cfg.LoginRequestsPerMinute
	if rpm <= 0 {
		rpm = 10
	}
	return RateLimitConfig{
		RequestsPerMinute: rpm,
		Burst:             5,
		CleanupInterval:   5 * time.Minute,
	}
}

// rateLimitEntry tracks recent request timestamps for a single client
type rateLimitEntry struct {
	requests   []time.Time
	lastUpdate time.Time
}

// RateLimiter implements a sliding-window rate limiter
type RateLimiter struct {
	config  RateLimitConfig
	entries map[string]*rateLimitEntry
	mu      sync.RWMutex
	stopCh  chan struct{}
}

// NewRateLimiter creates a new rate limiter with the given config
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		entries: make(map[string]*rateLimitEntry),
		stopCh:  make(chan struct{}),
	}

	// Start cleanup goroutine
	go rl.cleanup()

	return rl
}

// cleanup periodically removes idle entries
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for key, entry := range rl.entries {
				// Remove entries that haven't been accessed in 10 minutes
				if now.Sub(entry.lastUpdate) > 10*time.Minute {
					delete(rl.entries, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

// Stop stops the cleanup goroutine
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// Allow checks if a request from the given key should be allowed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	entry, exists := rl.entries[key]
	if !exists {
		entry = &rateLimitEntry{}
		rl.entries[key] = entry
	}

	// Drop timestamps that have slid out of the one-minute window.
	windowStart := now.Add(-time.Minute)
	kept := entry.requests[:0]
	for _, ts := range entry.requests {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}
	entry.requests = kept
	entry.lastUpdate = now

	if len(entry.requests) >= rl.config.RequestsPerMinute {
		return false
	}

	// Secondary cap over the last second keeps a client from spending the
	// whole minute's allowance in one spike.
	if rl.config.Burst > 0 {
		burstStart := now.Add(-time.Second)
		recent := 0
		for i := len(entry.requests) - 1; i >= 0; i-- {
			if !entry.requests[i].After(burstStart) {
				break
			}
			recent++
		}
		if recent >= rl.config.Burst {
			return false
		}
	}

	entry.requests = append(entry.requests, now)
	return true
}

// Remaining returns how many requests are left in the current window for a key
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	entry, exists := rl.entries[key]
	if !exists {
		return rl.config.RequestsPerMinute
	}

	windowStart := time.Now().Add(-time.Minute)
	used := 0
	for _, ts := range entry.requests {
		if ts.After(windowStart) {
			used++
		}
	}

	remaining := rl.config.RequestsPerMinute - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// RateLimitMiddleware creates a Gin middleware that rate limits requests
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := getRateLimitKey(c)

		if !limiter.Allow(key) {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Muitas requisições, tente novamente em instantes",
			})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.config.RequestsPerMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))

		c.Next()
	}
}

// getRateLimitKey determines the key to use for rate limiting.
// Priority: user_id > IP address.
func getRateLimitKey(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		if id, ok := userID.(string); ok && id != "" {
			return "user:" + id
		}
	}

	ip := c.ClientIP()
	if ip == "" {
		ip = c.Request.RemoteAddr
	}
	return "ip:" + ip
}
