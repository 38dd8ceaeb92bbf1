// Package terminal owns interactive shell sessions attached to pseudo-terminals.
//
// Each session spawns a child process on the subordinate side of a PTY and runs a
// background reader goroutine that forwards output to a Sink in chunks that never
// end mid-codepoint. The Manager keeps the table of live sessions, issues
// monotonically increasing session IDs, and tears down whole process groups so no
// zombies or orphaned descendants survive a close.
//
// Features:
//   - Multiple concurrent sessions, or a single-session facade (Single)
//   - UTF-8 safe chunking of raw PTY output (Boundary)
//   - Terminal resizing
//   - Graceful group termination: SIGTERM, grace interval, SIGKILL, reap
//   - Environment augmentation for GUI-launched processes
//
// Architecture:
//   - One reader goroutine per session; it only produces Output values
//   - One watcher goroutine per session owned by the Manager; it removes the
//     session from the table when the reader reports end-of-stream
//   - Table lock is held for lookups and mutations only, never across I/O
//
// Example Usage:
//
//	m := terminal.NewManager(terminal.WithLogger(logger))
//	id, err := m.Spawn(terminal.SpawnRequest{Cols: 80, Rows: 24}, sink)
//	_ = m.Write(id, []byte("ls -la\n"))
//	_ = m.Resize(id, 120, 40)
//	_ = m.Close(id)
package terminal
