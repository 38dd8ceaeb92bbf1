// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON to stderr for machine parsing
//   - Development: colored console output
//
// Subsystems take a *zap.Logger obtained from Component, so every entry
// carries the subsystem name.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	defer logger.Close()
//	sessions := logger.Component("terminal")
//	sessions.Info("session spawned", zap.Uint32("session_id", 1))
package logging
