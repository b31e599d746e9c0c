// Package ratelimit throttles password resets per identity and HTTP requests
// per client.
//
// ResetLimiter keeps a rolling log of completed resets for each identity key
// and refuses a new reset once MaxAttempts fall inside the window. Logs live
// in an AttemptRepository backed by memory, a JSON file, postgres or redis.
//
//	limiter := ratelimit.NewResetLimiter(repo, ratelimit.WithWindow(7*24*time.Hour))
//	decision, err := limiter.Check(ctx, key, now)
//	if !decision.Allowed {
//	    // retry at decision.RetryAt
//	}
//	// after the password changed:
//	err = limiter.Record(ctx, key, email, now)
//
// Middleware applies token buckets per client IP and per endpoint.
package ratelimit
