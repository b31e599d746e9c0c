package config

import (
	"time"

	"github.com/eduverse/accountd/pkg/ratelimit"
)

// HTTPRateLimitConfig configures per-IP burst throttling of the public endpoints.
type HTTPRateLimitConfig struct {
	GlobalEnabled    bool    `env:"HTTP_RATELIMIT_GLOBAL_ENABLED" env-default:"true"`
	GlobalCapacity   int     `env:"HTTP_RATELIMIT_GLOBAL_CAPACITY" env-default:"1000"`
	GlobalRefillRate float64 `env:"HTTP_RATELIMIT_GLOBAL_REFILL_RATE" env-default:"16.67"` // ~1000 per minute

	PerIPEnabled    bool    `env:"HTTP_RATELIMIT_PER_IP_ENABLED" env-default:"true"`
	PerIPCapacity   int     `env:"HTTP_RATELIMIT_PER_IP_CAPACITY" env-default:"60"`
	PerIPRefillRate float64 `env:"HTTP_RATELIMIT_PER_IP_REFILL_RATE" env-default:"1"`

	ResetCapacity    int     `env:"HTTP_RATELIMIT_RESET_CAPACITY" env-default:"5"`
	ResetRefillRate  float64 `env:"HTTP_RATELIMIT_RESET_REFILL_RATE" env-default:"0.0833"` // 5 per minute
	SendCapacity     int     `env:"HTTP_RATELIMIT_SEND_CAPACITY" env-default:"3"`
	SendRefillRate   float64 `env:"HTTP_RATELIMIT_SEND_REFILL_RATE" env-default:"0.05"` // 3 per minute
	VerifyCapacity   int     `env:"HTTP_RATELIMIT_VERIFY_CAPACITY" env-default:"10"`
	VerifyRefillRate float64 `env:"HTTP_RATELIMIT_VERIFY_REFILL_RATE" env-default:"0.167"` // 10 per minute

	BucketTTL      time.Duration `env:"HTTP_RATELIMIT_BUCKET_TTL" env-default:"1h"`
	IncludeHeaders bool          `env:"HTTP_RATELIMIT_INCLUDE_HEADERS" env-default:"true"`

	// TrustProxyHeaders should only be set behind a proxy that rewrites X-Forwarded-For.
	TrustProxyHeaders bool `env:"HTTP_RATELIMIT_TRUST_PROXY" env-default:"false"`
}

// ToMiddlewareConfig converts the config for ratelimit.NewMiddleware.
func (c HTTPRateLimitConfig) ToMiddlewareConfig() *ratelimit.Config {
	return &ratelimit.Config{
		GlobalEnabled:    c.GlobalEnabled,
		GlobalCapacity:   c.GlobalCapacity,
		GlobalRefillRate: c.GlobalRefillRate,
		PerIPEnabled:     c.PerIPEnabled,
		PerIPCapacity:    c.PerIPCapacity,
		PerIPRefillRate:  c.PerIPRefillRate,
		EndpointLimits: map[string]ratelimit.EndpointLimit{
			"POST /reset-password":    {Capacity: c.ResetCapacity, RefillRate: c.ResetRefillRate},
			"POST /send-verification": {Capacity: c.SendCapacity, RefillRate: c.SendRefillRate},
			"POST /verify-code":       {Capacity: c.VerifyCapacity, RefillRate: c.VerifyRefillRate},
		},
		BucketTTL:         c.BucketTTL,
		IncludeHeaders:    c.IncludeHeaders,
		TrustProxyHeaders: c.TrustProxyHeaders,
	}
}
