package terminal

import (
	"strconv"
	"time"
)

// SessionID identifies a session within one Manager. IDs start at 1, increase
// monotonically and are never reused for the lifetime of the Manager.
type SessionID uint32

func (id SessionID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseSessionID parses the decimal form produced by String.
func ParseSessionID(s string) (SessionID, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return SessionID(v), nil
}

// Output is one message produced by a session's reader goroutine. Data is never
// cut inside a UTF-8 sequence, except for the final flush before EOF.
type Output struct {
	SessionID SessionID
	Data      []byte
	EOF       bool
}

// Sink receives session output. Deliver is called from the session's reader
// goroutine, one call at a time per session, and must be safe to call from a
// goroutine other than the one that spawned the session. Deliver must not call
// Close or Terminate on the session it is serving.
type Sink interface {
	Deliver(Output)
}

// StartNotifier is an optional Sink extension. SessionStarted is called once
// per session, before its first Deliver.
type StartNotifier interface {
	SessionStarted(id SessionID)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Output)

// Deliver calls f(out).
func (f SinkFunc) Deliver(out Output) { f(out) }

// SpawnRequest describes the child to start. Zero values are filled from the
// Manager's defaults and environment resolver.
type SpawnRequest struct {
	Command    string
	Args       []string
	WorkingDir string
	Cols       uint16
	Rows       uint16
	Env        map[string]string
}

// State is a session's position in the termination state machine.
type State int32

const (
	StateRunning State = iota
	StateGracefulWait
	StateDead
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateGracefulWait:
		return "graceful_wait"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// SessionInfo is the public representation of a session
type SessionInfo struct {
	ID         SessionID `json:"id"`
	PID        int       `json:"pid"`
	Shell      string    `json:"shell"`
	WorkingDir string    `json:"working_dir"`
	Cols       uint16    `json:"cols"`
	Rows       uint16    `json:"rows"`
	StartedAt  time.Time `json:"started_at"`
	State      string    `json:"state"`
}
