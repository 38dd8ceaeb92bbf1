// Package middleware provides the gin middleware stack for the session API.
//
// Middleware stack includes:
//   - RequestID: X-Request-ID propagation (UUID)
//   - Logger: per-request zap logging keyed by request ID
//   - CORS: cross-origin access for browser terminals
//   - RateLimit: per-IP token bucket rate limiting
//
// Example Usage:
//
//	router.Use(middleware.RequestID())
//	router.Use(middleware.CORS(middleware.CORSForOrigins(cfg.Server.CORSOrigins)))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
