// Package config provides 12-factor configuration for the oneterm server.
//
// Configuration is loaded from environment variables with defaults suited to
// a local desktop companion: the server binds to loopback only.
//
// Configuration Sections:
//   - Server: listen address and allowed CORS origins
//   - Terminal: default shell, size, session limit and scrollback depth
//   - Stream: subscriber queue depth and retained parser events
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("listening on %s\n", cfg.Addr())
//
// Environment Variables:
//   - PORT, HOST, CORS_ORIGINS
//   - TERMINAL_SHELL, TERMINAL_CWD, TERMINAL_COLS, TERMINAL_ROWS
//   - TERMINAL_MAX_SESSIONS, TERMINAL_BACKLOG
//   - STREAM_SUBSCRIBER_BUFFER, STREAM_MAX_EVENTS
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
