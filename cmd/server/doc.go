// Package main is the entry point for the oneterm server.
//
// oneterm runs shells and CLI agents in pseudo-terminals and exposes them to
// a local UI: raw output and classified Claude events stream over
// WebSocket, while sessions are created, resized and closed over REST.
//
// Configuration:
//   - Environment variables (see internal/infrastructure/config)
//   - CLI flags (override env vars)
//
// Usage:
//
//	./server -port 8787
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: stop HTTP, then terminate every session's process group
package main
