package ratelimit

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/jonboulle/clockwork"
)

// Config holds HTTP rate limiting configuration
type Config struct {
	GlobalEnabled    bool
	GlobalCapacity   int     // Max burst
	GlobalRefillRate float64 // Requests per second

	PerIPEnabled    bool
	PerIPCapacity   int
	PerIPRefillRate float64

	// EndpointLimits are keyed by "METHOD /path" and counted per client IP.
	EndpointLimits map[string]EndpointLimit

	// BucketTTL is how long idle buckets stay in memory.
	BucketTTL time.Duration

	IncludeHeaders bool

	// TrustProxyHeaders keys clients by X-Forwarded-For or X-Real-IP. Enable
	// only behind a proxy that overwrites them; otherwise RemoteAddr is used.
	TrustProxyHeaders bool

	Clock clockwork.Clock
}

// EndpointLimit defines rate limits for a specific endpoint
type EndpointLimit struct {
	Capacity   int
	RefillRate float64
}

// DefaultConfig throttles each public endpoint to a handful of calls per
// minute per IP.
func DefaultConfig() *Config {
	return &Config{
		GlobalEnabled:    true,
		GlobalCapacity:   1000,
		GlobalRefillRate: 1000.0 / 60.0,

		PerIPEnabled:    true,
		PerIPCapacity:   60,
		PerIPRefillRate: 60.0 / 60.0,

		EndpointLimits: map[string]EndpointLimit{
			"POST /reset-password":    {Capacity: 5, RefillRate: 5.0 / 60.0},
			"POST /send-verification": {Capacity: 3, RefillRate: 3.0 / 60.0},
			"POST /verify-code":       {Capacity: 10, RefillRate: 10.0 / 60.0},
		},

		BucketTTL:      time.Hour,
		IncludeHeaders: true,
	}
}

// Middleware holds the rate limiting middleware state
type Middleware struct {
	config           *Config
	globalLimiter    *RateLimiter
	ipLimiter        *RateLimiter
	endpointLimiters map[string]*RateLimiter
}

// NewMiddleware creates a new rate limiting middleware
func NewMiddleware(config *Config) *Middleware {
	if config == nil {
		config = DefaultConfig()
	}
	clock := config.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	m := &Middleware{
		config:           config,
		endpointLimiters: make(map[string]*RateLimiter),
	}

	if config.GlobalEnabled {
		m.globalLimiter = NewRateLimiter(config.GlobalCapacity, config.GlobalRefillRate, config.BucketTTL, clock)
	}
	if config.PerIPEnabled {
		m.ipLimiter = NewRateLimiter(config.PerIPCapacity, config.PerIPRefillRate, config.BucketTTL, clock)
	}
	for endpoint, limit := range config.EndpointLimits {
		m.endpointLimiters[endpoint] = NewRateLimiter(limit.Capacity, limit.RefillRate, config.BucketTTL, clock)
	}

	return m
}

// Handler returns the rate limiting middleware handler
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.globalLimiter != nil {
			if ok, wait := m.globalLimiter.Reserve("global"); !ok {
				m.rateLimitExceeded(w, r, "global", wait)
				return
			}
		}

		ip := getClientIP(r, m.config.TrustProxyHeaders)
		if m.ipLimiter != nil && ip != "" {
			if ok, wait := m.ipLimiter.Reserve(ip); !ok {
				m.rateLimitExceeded(w, r, "ip", wait)
				return
			}
		}

		endpointKey := r.Method + " " + r.URL.Path
		if limiter, exists := m.endpointLimiters[endpointKey]; exists {
			if ok, wait := limiter.Reserve(ip + ":" + endpointKey); !ok {
				m.rateLimitExceeded(w, r, "endpoint", wait)
				return
			}
		}

		if m.config.IncludeHeaders && m.ipLimiter != nil {
			w.Header().Set("X-RateLimit-Limit-IP", strconv.Itoa(m.config.PerIPCapacity))
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) rateLimitExceeded(w http.ResponseWriter, r *http.Request, limitType string, wait time.Duration) {
	slog.Warn("Rate limit exceeded",
		"type", limitType,
		"ip", getClientIP(r, m.config.TrustProxyHeaders),
		"path", r.URL.Path,
		"method", r.Method,
	)

	retryAfter := int(math.Ceil(wait.Seconds()))
	if retryAfter < 1 || retryAfter > 3600 {
		retryAfter = 60
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	render.Status(r, http.StatusTooManyRequests)
	render.JSON(w, r, map[string]any{
		"success":           false,
		"error":             "Too many requests. Please try again later.",
		"code":              "RATE_LIMITED",
		"rateLimitExceeded": true,
		"type":              limitType,
	})
}

// getClientIP extracts the client IP address from the request. Forwarding
// headers are client-controlled unless a proxy rewrites them.
func getClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// GetStats returns statistics about all rate limiters
func (m *Middleware) GetStats() map[string]Stats {
	stats := make(map[string]Stats)
	if m.globalLimiter != nil {
		stats["global"] = m.globalLimiter.GetStats()
	}
	if m.ipLimiter != nil {
		stats["ip"] = m.ipLimiter.GetStats()
	}
	for endpoint, limiter := range m.endpointLimiters {
		stats["endpoint:"+endpoint] = limiter.GetStats()
	}
	return stats
}

// Stop ends the cleanup goroutines of every limiter.
func (m *Middleware) Stop() {
	if m.globalLimiter != nil {
		m.globalLimiter.Stop()
	}
	if m.ipLimiter != nil {
		m.ipLimiter.Stop()
	}
	for _, limiter := range m.endpointLimiters {
		limiter.Stop()
	}
}
