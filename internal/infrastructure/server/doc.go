// Package server wires configuration, logging, metrics, the session manager,
// the output stream and the HTTP/WebSocket API into one runnable server.
//
// Shutdown drains HTTP first and then closes every session, so no child
// process outlives the server.
package server
