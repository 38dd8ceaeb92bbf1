// Package http exposes the session manager, the per-session parsers and the
// one-shot command runner over a gin REST API.
//
// Routes:
//   - POST /sessions, GET /sessions, GET|DELETE /sessions/:id
//   - POST /sessions/:id/write, POST /sessions/:id/resize
//   - GET /sessions/:id/events, GET /sessions/:id/buffer, POST /sessions/:id/parser/clear
//   - GET /sessions/:id/backlog (text, gzip when accepted; ?format=frames for JSON)
//   - POST /exec, POST /logs
//   - GET /, GET /health, GET /metrics
//
// Errors are returned as {"error": "..."}: unknown sessions map to 404,
// failed writes and resizes to 409, spawn failures to 500.
package http
