// Package ws streams a session's output and classified events over a
// WebSocket and accepts keyboard input and resizes from the client.
//
// Message Types (Server → Client):
//   - output: raw terminal output ({type, id, seq, data})
//   - event: a classified parser event ({type, id, seq, event})
//   - exit: the session's stream ended; the socket is closed afterwards
//   - pong: reply to ping
//   - error: a client message could not be applied
//
// Message Types (Client → Server):
//   - input: {type, data} written to the session
//   - resize: {type, cols, rows}
//   - ping: keep-alive
//
// A new connection first receives the session's backlog, then live frames
// with strictly increasing seq.
//
// Example Usage:
//
//	handler := ws.NewHandler(sessions, router.Hub(), metrics, logger, origins)
//	engine.GET("/sessions/:id/stream", handler.HandleConnection)
package ws
